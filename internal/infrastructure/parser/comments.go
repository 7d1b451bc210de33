package parser

import (
	"github.com/PuerkitoBio/goquery"

	"ThreadHarvester/internal/domain"
	"ThreadHarvester/internal/scanner"
)

// DefaultMaxCommentDepth bounds the thread walk when no limit is configured.
const DefaultMaxCommentDepth = 200

// ParseComments walks a comment container into a tree.
// Only the direct thread nodes of each container are visited per level;
// nested replies are reached through each node's child container.
func ParseComments(container *goquery.Selection, d scanner.Dialect, maxDepth int) []domain.CommentNode {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxCommentDepth
	}
	return parseThread(container, d, 0, maxDepth)
}

func parseThread(container *goquery.Selection, d scanner.Dialect, depth, maxDepth int) []domain.CommentNode {
	comments := []domain.CommentNode{}
	if container == nil || container.Length() == 0 || depth >= maxDepth {
		return comments
	}

	container.ChildrenFiltered(d.ThreadTable).ChildrenFiltered(d.ThreadThing).Each(func(_ int, thing *goquery.Selection) {
		if d.MoreClass != "" && thing.HasClass(d.MoreClass) {
			return
		}
		comments = append(comments, parseComment(thing, d, depth, maxDepth))
	})

	return comments
}

func parseComment(thing *goquery.Selection, d scanner.Dialect, depth, maxDepth int) domain.CommentNode {
	// Replies live under the child container; everything else belongs to this comment.
	own := thing.Children().Not(d.ThreadChild)

	node := domain.CommentNode{
		IsDeleted: d.DeletedClass != "" && thing.HasClass(d.DeletedClass),
	}
	node.CreatedAt, _ = own.Find(d.CommentTime).First().Attr("datetime")

	if !node.IsDeleted {
		node.Author = text(own.Find(d.CommentAuthor).First())
		node.Body = text(own.Find(d.CommentBody).First())
		node.Score = text(own.Find(d.CommentScore).First())
	}

	node.Children = parseThread(thing.ChildrenFiltered(d.ThreadChild).First(), d, depth+1, maxDepth)
	return node
}

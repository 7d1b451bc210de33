package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ThreadHarvester/internal/domain"
	"ThreadHarvester/internal/scanner"
)

// ParsePost assembles a post record from a permalink page snapshot.
// Identity fields are carried over from the listing entry.
func ParsePost(doc *goquery.Document, d scanner.Dialect, entry domain.ListingEntry, maxCommentDepth int) (domain.PostRecord, error) {
	container := doc.Find(d.PostContainer).First()
	if container.Length() == 0 {
		return domain.PostRecord{}, missing(d.PostContainer)
	}

	thing := container.Find(d.PostThing).First()
	if thing.Length() == 0 {
		return domain.PostRecord{}, missing(d.PostContainer + " " + d.PostThing)
	}

	title := thing.Find(d.PostTitle).First()
	if title.Length() == 0 {
		title = doc.Find(d.PostTitle).First()
	}
	if title.Length() == 0 {
		return domain.PostRecord{}, missing(d.PostTitle)
	}

	score := container.Find(d.PostScore).First()
	if score.Length() == 0 {
		return domain.PostRecord{}, missing(d.PostScore)
	}

	commentArea := doc.Find(d.CommentArea).First()
	if commentArea.Length() == 0 {
		return domain.PostRecord{}, missing(d.CommentArea)
	}

	attrs := Attributes(thing)

	return domain.PostRecord{
		ID:          entry.ID,
		CommunityID: entry.CommunityID,
		MediaType:   attrs[d.MediaTypeAttr],
		MediaURL:    attrs[d.MediaURLAttr],
		IsPromoted:  attrs[d.PromotedAttr] == "true",
		IsGallery:   attrs[d.GalleryAttr] == "true",
		Title:       text(title),
		Timestamp:   entry.Timestamp,
		Author:      entry.Author,
		URL:         entry.PermalinkURL,
		Score:       ParseScore(score.Text()),
		// Link posts have no self text, so the body is optional.
		BodyText: text(container.Find(d.PostBody).First()),
		Comments: ParseComments(commentArea, d, maxCommentDepth),
	}, nil
}

// ParseScore reads the leading integer of a score label.
// Abbreviated or non-numeric labels such as "1.2k points" or "•" yield 0.
func ParseScore(label string) int {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0
	}
	return n
}

func missing(selector string) error {
	return fmt.Errorf("%w: %s", domain.ErrSelectorMiss, selector)
}

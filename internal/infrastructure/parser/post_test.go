package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ThreadHarvester/internal/domain"
	"ThreadHarvester/internal/scanner"
)

func fixtureEntry() domain.ListingEntry {
	return domain.ListingEntry{
		ID:                 "t3_aaa",
		CommunityID:        "r/programming",
		AuthorityTimestamp: "1792231200000",
		Timestamp:          1792231200000,
		Author:             "alice",
		PermalinkURL:       "https://old.reddit.com/r/programming/comments/aaa/first_post/",
	}
}

func wantFixtureComments() []domain.CommentNode {
	return []domain.CommentNode{
		{
			Author:    "bob",
			CreatedAt: "2026-10-17T10:10:00+00:00",
			Body:      "Top level reply",
			Score:     "5 points",
			Children: []domain.CommentNode{
				{
					CreatedAt: "2026-10-17T10:20:00+00:00",
					IsDeleted: true,
					Children: []domain.CommentNode{
						{
							Author:    "carol",
							CreatedAt: "2026-10-17T10:30:00+00:00",
							Body:      "Reply to a deleted comment",
							Score:     "1 point",
							Children:  []domain.CommentNode{},
						},
					},
				},
			},
		},
		{
			Author:    "dave",
			CreatedAt: "2026-10-17T11:00:00+00:00",
			Body:      "Second top level",
			Score:     "-2 points",
			Children:  []domain.CommentNode{},
		},
	}
}

func TestParsePost(t *testing.T) {
	t.Parallel()

	doc, err := ParseDocument(loadDocument(t, "testdata/post.html"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	got, err := ParsePost(doc, scanner.OldRedditDialect(), fixtureEntry(), 0)
	if err != nil {
		t.Fatalf("ParsePost error: %v", err)
	}

	want := domain.PostRecord{
		ID:          "t3_aaa",
		CommunityID: "r/programming",
		MediaType:   "link",
		MediaURL:    "/r/programming/comments/aaa/first_post/",
		IsPromoted:  false,
		IsGallery:   true,
		Title:       "First post",
		Timestamp:   1792231200000,
		Author:      "alice",
		URL:         "https://old.reddit.com/r/programming/comments/aaa/first_post/",
		Score:       42,
		BodyText:    "Hello there.",
		Comments:    wantFixtureComments(),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("post mismatch (-want +got):\n%s", diff)
	}
}

func TestParsePostSelectorMiss(t *testing.T) {
	t.Parallel()

	page := loadDocument(t, "testdata/post.html")

	tests := []struct {
		name   string
		mutate func(string) string
	}{
		{
			name: "no comment area",
			mutate: func(s string) string {
				return strings.Replace(s, `class="commentarea"`, `class="gone"`, 1)
			},
		},
		{
			name: "no score",
			mutate: func(s string) string {
				return strings.Replace(s, `class="score unvoted" title="42"`, `class="points"`, 1)
			},
		},
		{
			name: "no container",
			mutate: func(s string) string {
				return strings.ReplaceAll(s, "sitetable", "table")
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, err := ParseDocument(tt.mutate(page))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			_, err = ParsePost(doc, scanner.OldRedditDialect(), fixtureEntry(), 0)
			if !errors.Is(err, domain.ErrSelectorMiss) {
				t.Fatalf("expected ErrSelectorMiss, got %v", err)
			}
		})
	}
}

func TestParseScore(t *testing.T) {
	t.Parallel()

	tests := map[string]int{
		"42 points":   42,
		"42":          42,
		"-3 points":   -3,
		"1.2k points": 0,
		"•":           0,
		"":            0,
		"points":      0,
	}

	for label, want := range tests {
		if got := ParseScore(label); got != want {
			t.Fatalf("ParseScore(%q) = %d, want %d", label, got, want)
		}
	}
}

func TestParsePostUnparsableScoreDefaultsToZero(t *testing.T) {
	t.Parallel()

	page := strings.Replace(loadDocument(t, "testdata/post.html"), `title="42">42<`, `title="1.2k">1.2k points<`, 1)
	doc, err := ParseDocument(page)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	got, err := ParsePost(doc, scanner.OldRedditDialect(), fixtureEntry(), 0)
	if err != nil {
		t.Fatalf("ParsePost error: %v", err)
	}
	if got.Score != 0 {
		t.Fatalf("expected score 0, got %d", got.Score)
	}
}

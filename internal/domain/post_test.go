package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestCrawlWindowContains(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC)
	w := NewCrawlWindow(now, 24*time.Hour)

	if !w.Contains(now.UnixMilli()) {
		t.Fatalf("expected now to be inside the window")
	}
	if !w.Contains(now.Add(-2 * time.Hour).UnixMilli()) {
		t.Fatalf("expected now-2h to be inside the window")
	}
	if w.Contains(now.Add(-26 * time.Hour).UnixMilli()) {
		t.Fatalf("expected now-26h to be outside the window")
	}
	if w.Contains(w.CutoffTimestamp) {
		t.Fatalf("cutoff itself must be excluded")
	}
	if !w.Cutoff().Equal(now.Add(-24 * time.Hour)) {
		t.Fatalf("unexpected cutoff: %v", w.Cutoff())
	}
}

func TestPostRecordJSONRoundTrip(t *testing.T) {
	t.Parallel()

	record := PostRecord{
		ID:          "t3_abc",
		CommunityID: "r/programming",
		MediaType:   "link",
		MediaURL:    "https://example.org/article",
		IsPromoted:  false,
		IsGallery:   true,
		Title:       "A title",
		Timestamp:   1760702400000,
		Author:      "alice",
		URL:         "https://old.reddit.com/r/programming/comments/abc/a_title/",
		Score:       42,
		BodyText:    "body",
		Comments: []CommentNode{
			{
				Author:    "bob",
				CreatedAt: "2026-10-17T10:00:00+00:00",
				Body:      "first",
				Score:     "3 points",
				Children: []CommentNode{
					{CreatedAt: "2026-10-17T10:05:00+00:00", IsDeleted: true, Children: []CommentNode{}},
				},
			},
		},
		ScrapedAt: "2026-10-17T12:00:00Z",
	}

	raw, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded PostRecord
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if diff := cmp.Diff(record, decoded); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

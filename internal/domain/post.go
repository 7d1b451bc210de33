package domain

import "time"

// ListingEntry is the lightweight summary of a post taken from a listing page.
type ListingEntry struct {
	ID                 string `json:"id"`
	CommunityID        string `json:"communityId"`
	AuthorityTimestamp string `json:"authorityTimestamp"`
	Timestamp          int64  `json:"timestamp"`
	Author             string `json:"author"`
	PermalinkURL       string `json:"permalinkUrl"`
}

// Time returns the entry timestamp as a time.Time.
func (e ListingEntry) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// PostRecord is the fully harvested post handed to the publish sink.
type PostRecord struct {
	ID          string        `json:"id"`
	CommunityID string        `json:"communityId"`
	MediaType   string        `json:"mediaType"`
	MediaURL    string        `json:"mediaUrl"`
	IsPromoted  bool          `json:"isPromoted"`
	IsGallery   bool          `json:"isGallery"`
	Title       string        `json:"title"`
	Timestamp   int64         `json:"timestamp"`
	Author      string        `json:"author"`
	URL         string        `json:"url"`
	Score       int           `json:"score"`
	BodyText    string        `json:"bodyText"`
	Comments    []CommentNode `json:"comments"`
	ScrapedAt   string        `json:"scrapedAt"`
}

// CommentNode is one comment in a thread. Deleted comments stay in the tree
// with empty author, body and score.
type CommentNode struct {
	Author    string        `json:"author"`
	CreatedAt string        `json:"createdAt"`
	Body      string        `json:"body"`
	Score     string        `json:"score"`
	Children  []CommentNode `json:"children"`
	IsDeleted bool          `json:"isDeleted"`
}

// CrawlWindow bounds one crawl run.
type CrawlWindow struct {
	CutoffTimestamp int64
}

// NewCrawlWindow returns the window covering the span that ends at now.
func NewCrawlWindow(now time.Time, span time.Duration) CrawlWindow {
	return CrawlWindow{CutoffTimestamp: now.Add(-span).UnixMilli()}
}

// Contains reports whether ts (epoch ms) is strictly newer than the cutoff.
func (w CrawlWindow) Contains(ts int64) bool {
	return ts > w.CutoffTimestamp
}

// Cutoff returns the window boundary as a time.Time.
func (w CrawlWindow) Cutoff() time.Time {
	return time.UnixMilli(w.CutoffTimestamp)
}

// RunSummary describes the outcome of one harvest run.
type RunSummary struct {
	RunID            string
	PagesScanned     int
	EntriesFound     int
	MalformedEntries int
	PostsSkipped     int
	PostsFetched     int
	PostsFailed      int
	PostsPublished   int
	ScrapedAt        time.Time
}

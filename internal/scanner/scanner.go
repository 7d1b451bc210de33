package scanner

import "fmt"

// OldReddit is the dialect name of the classic reddit markup.
const OldReddit = "old-reddit"

// Dialect captures the selectors and attribute names of one listing site's markup.
type Dialect struct {
	Name string

	// Listing page.
	ListingThing     string
	ListingAuthor    string
	ListingPermalink string
	ListingTime      string
	NextPage         string

	// Post detail page.
	PostContainer string
	PostThing     string
	PostTitle     string
	PostScore     string
	PostBody      string
	CommentArea   string

	// Comment threads.
	ThreadTable   string
	ThreadThing   string
	ThreadChild   string
	CommentAuthor string
	CommentTime   string
	CommentBody   string
	CommentScore  string
	DeletedClass  string
	MoreClass     string

	// Attribute names.
	IDAttr        string
	CommunityAttr string
	TimestampAttr string
	MediaTypeAttr string
	MediaURLAttr  string
	PromotedAttr  string
	GalleryAttr   string
}

// OldRedditDialect describes old.reddit.com listings and comment pages.
func OldRedditDialect() Dialect {
	return Dialect{
		Name: OldReddit,

		ListingThing:     ".thing",
		ListingAuthor:    ".author",
		ListingPermalink: "a.comments",
		ListingTime:      "time",
		NextPage:         ".next-button a",

		PostContainer: "div.sitetable",
		PostThing:     ".thing",
		PostTitle:     "a.title",
		PostScore:     ".score.unvoted",
		PostBody:      "div.usertext-body",
		CommentArea:   "div.commentarea",

		ThreadTable:   ".sitetable",
		ThreadThing:   ".thing",
		ThreadChild:   ".child",
		CommentAuthor: ".author",
		CommentTime:   "time",
		CommentBody:   "div.md",
		CommentScore:  "span.score",
		DeletedClass:  "deleted",
		MoreClass:     "morechildren",

		IDAttr:        "data-fullname",
		CommunityAttr: "data-subreddit-prefixed",
		TimestampAttr: "data-timestamp",
		MediaTypeAttr: "data-type",
		MediaURLAttr:  "data-url",
		PromotedAttr:  "data-promoted",
		GalleryAttr:   "data-gallery",
	}
}

// Registry keeps a mapping from dialect names to their selector sets.
type Registry struct {
	dialects map[string]Dialect
}

// NewRegistry builds a registry with the built-in dialects registered.
func NewRegistry() *Registry {
	r := &Registry{dialects: map[string]Dialect{}}
	r.Register(OldRedditDialect())
	return r
}

// Register adds or replaces a dialect.
func (r *Registry) Register(d Dialect) {
	if r.dialects == nil {
		r.dialects = map[string]Dialect{}
	}
	r.dialects[d.Name] = d
}

// Resolve returns a dialect by name or an error if it is absent.
// An empty name resolves to the old-reddit dialect.
func (r *Registry) Resolve(name string) (Dialect, error) {
	if name == "" {
		name = OldReddit
	}
	if d, ok := r.dialects[name]; ok {
		return d, nil
	}
	return Dialect{}, fmt.Errorf("dialect %s is not registered", name)
}

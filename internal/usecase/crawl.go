package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ThreadHarvester/internal/domain"
	"ThreadHarvester/internal/infrastructure/parser"
	"ThreadHarvester/internal/ports"
	"ThreadHarvester/internal/scanner"
)

const (
	defaultMaxPages         = 50
	defaultOperationTimeout = 30 * time.Second
)

// CrawlResult is the outcome of paginating one listing.
type CrawlResult struct {
	// Entries holds only entries newer than the window cutoff, in crawl order.
	Entries   []domain.ListingEntry
	Pages     int
	Found     int
	Malformed int
}

// CrawlController paginates a listing until the crawl window is covered.
type CrawlController struct {
	dialect   scanner.Dialect
	maxPages  int
	opTimeout time.Duration
	logger    *slog.Logger
}

// NewCrawlController builds a controller; zero limits fall back to defaults.
func NewCrawlController(dialect scanner.Dialect, maxPages int, opTimeout time.Duration, logger *slog.Logger) *CrawlController {
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	if opTimeout <= 0 {
		opTimeout = defaultOperationTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CrawlController{dialect: dialect, maxPages: maxPages, opTimeout: opTimeout, logger: logger}
}

// Crawl walks listing pages from rootURL on page. Any navigation or snapshot
// failure aborts the crawl because the next link cannot be trusted.
func (c *CrawlController) Crawl(ctx context.Context, page ports.Page, rootURL string, window domain.CrawlWindow) (CrawlResult, error) {
	var (
		result    CrawlResult
		aggregate []domain.ListingEntry
		pageURL   = rootURL
	)

	for {
		if err := c.navigate(ctx, page, pageURL); err != nil {
			return result, fmt.Errorf("listing page %d: %w", result.Pages+1, err)
		}

		c.logger.Info("scanning listing page", "url", pageURL, "page", result.Pages+1)
		listing, err := c.scan(ctx, page, pageURL)
		if err != nil {
			return result, fmt.Errorf("listing page %d: %w", result.Pages+1, err)
		}
		result.Pages++

		for _, m := range listing.Malformed {
			c.logger.Warn("skipping malformed listing entry",
				"url", pageURL,
				"index", m.Index,
				"id", m.ID,
				"raw_timestamp", m.Raw,
				"error", m.Err,
			)
		}
		result.Malformed += len(listing.Malformed)

		if len(listing.Entries) == 0 {
			c.logger.Debug("listing exhausted", "url", pageURL)
			break
		}

		aggregate = append(aggregate, listing.Entries...)
		result.Found += len(listing.Entries)

		oldest := aggregate[len(aggregate)-1]
		if oldest.Timestamp < window.CutoffTimestamp {
			c.logger.Debug("crawl window covered", "oldest", oldest.Time().UTC(), "cutoff", window.Cutoff().UTC())
			break
		}

		if listing.NextURL == "" {
			c.logger.Debug("no next page", "url", pageURL)
			break
		}

		if result.Pages >= c.maxPages {
			c.logger.Warn("page limit reached before crawl window was covered",
				"max_pages", c.maxPages,
				"oldest", oldest.Time().UTC(),
			)
			break
		}

		pageURL = listing.NextURL
	}

	result.Entries = make([]domain.ListingEntry, 0, len(aggregate))
	for _, entry := range aggregate {
		if window.Contains(entry.Timestamp) {
			result.Entries = append(result.Entries, entry)
		}
	}

	return result, nil
}

func (c *CrawlController) navigate(ctx context.Context, page ports.Page, url string) error {
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	return page.Navigate(opCtx, url)
}

func (c *CrawlController) scan(ctx context.Context, page ports.Page, pageURL string) (parser.ListingPage, error) {
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	snapshot, err := page.Snapshot(opCtx)
	if err != nil {
		return parser.ListingPage{}, err
	}

	doc, err := parser.ParseDocument(snapshot)
	if err != nil {
		return parser.ListingPage{}, err
	}

	return parser.ScanListing(doc, c.dialect, pageURL), nil
}

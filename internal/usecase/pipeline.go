package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ThreadHarvester/internal/domain"
	"ThreadHarvester/internal/ports"
	"ThreadHarvester/internal/scanner"
)

// scrapedAtLayout matches JavaScript's Date.toISOString for UTC times.
const scrapedAtLayout = "2006-01-02T15:04:05.000Z07:00"

const defaultWindow = 24 * time.Hour

// Listing is one listing root crawled on every run.
type Listing struct {
	Name    string
	URL     string
	Dialect scanner.Dialect
}

// Settings tunes crawling and fetching.
type Settings struct {
	Window           time.Duration
	Concurrency      int
	OperationTimeout time.Duration
	RunTimeout       time.Duration
	MaxPages         int
	MaxCommentDepth  int
}

// PipelineDeps wires all driven adapters into the harvest pipeline.
type PipelineDeps struct {
	Browser   ports.SessionProvider
	Publisher ports.Publisher
	Ledger    ports.Ledger
	Notifier  ports.Notifier
	Observer  ports.RunObserver
	Listings  []Listing
	Settings  Settings
	Logger    *slog.Logger
	Clock     func() time.Time
}

// Pipeline implements one harvest run: crawl listings, fetch post details,
// publish the batch.
type Pipeline struct {
	browser   ports.SessionProvider
	publisher ports.Publisher
	ledger    ports.Ledger
	notifier  ports.Notifier
	observer  ports.RunObserver
	listings  []Listing
	settings  Settings
	logger    *slog.Logger
	clock     func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	settings := deps.Settings
	if settings.Window <= 0 {
		settings.Window = defaultWindow
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Pipeline{
		browser:   deps.Browser,
		publisher: deps.Publisher,
		ledger:    deps.Ledger,
		notifier:  deps.Notifier,
		observer:  deps.Observer,
		listings:  deps.Listings,
		settings:  settings,
		logger:    logger,
		clock:     clock,
	}
}

// Run harvests every post newer than now minus the configured window.
// Listing failures abort the run; detail failures only drop the affected post.
func (p *Pipeline) Run(ctx context.Context, now time.Time) (summary domain.RunSummary, err error) {
	if p.browser == nil || p.publisher == nil {
		return summary, fmt.Errorf("pipeline is missing a browser or publisher")
	}

	summary.RunID = uuid.NewString()
	logger := p.logger.With("run_id", summary.RunID)

	defer func() {
		if p.observer != nil {
			p.observer.ObserveRun(summary, err)
		}
	}()

	if p.settings.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.settings.RunTimeout)
		defer cancel()
	}

	window := domain.NewCrawlWindow(now, p.settings.Window)

	session, err := p.browser.Connect(ctx)
	if err != nil {
		return summary, fmt.Errorf("connect browser: %w", err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			logger.Warn("close browser session", "error", closeErr)
		}
	}()

	jobs, err := p.collect(ctx, session, window, &summary, logger)
	if err != nil {
		return summary, err
	}

	jobs, err = p.skipPublished(ctx, jobs, &summary)
	if err != nil {
		return summary, err
	}

	fetcher := NewDetailFetcher(session, p.settings.Concurrency, p.settings.OperationTimeout, p.settings.MaxCommentDepth, logger)
	results := fetcher.FetchAll(ctx, jobs)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return summary, fmt.Errorf("fetch posts: %w", ctxErr)
	}

	summary.ScrapedAt = p.clock().UTC()
	scrapedAt := summary.ScrapedAt.Format(scrapedAtLayout)

	batch := make([]domain.PostRecord, 0, len(results))
	for _, res := range results {
		if res.Err != nil {
			summary.PostsFailed++
			logger.Warn("post fetch failed", "id", res.Entry.ID, "url", res.Entry.PermalinkURL, "error", res.Err)
			continue
		}
		record := res.Record
		record.ScrapedAt = scrapedAt
		batch = append(batch, record)
	}
	summary.PostsFetched = len(batch)

	if err := p.publisher.Publish(ctx, batch); err != nil {
		return summary, fmt.Errorf("publish batch: %w", err)
	}
	summary.PostsPublished = len(batch)

	if p.ledger != nil && len(batch) > 0 {
		if err := p.ledger.MarkPublished(ctx, batch); err != nil {
			logger.Warn("record published posts", "error", err)
		}
	}

	logger.Info("harvest finished",
		"posts", summary.PostsPublished,
		"failed", summary.PostsFailed,
		"skipped", summary.PostsSkipped,
		"pages", summary.PagesScanned,
		"malformed_entries", summary.MalformedEntries,
	)

	p.notify(ctx, summary, logger)
	return summary, nil
}

func (p *Pipeline) collect(
	ctx context.Context,
	session ports.Session,
	window domain.CrawlWindow,
	summary *domain.RunSummary,
	logger *slog.Logger,
) ([]FetchJob, error) {
	var jobs []FetchJob
	seen := map[string]struct{}{}

	for _, listing := range p.listings {
		listingLogger := logger.With("listing", listing.Name)

		page, err := session.NewPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", listing.Name, err)
		}

		controller := NewCrawlController(listing.Dialect, p.settings.MaxPages, p.settings.OperationTimeout, listingLogger)
		result, err := controller.Crawl(ctx, page, listing.URL, window)
		if closeErr := page.Close(); closeErr != nil {
			listingLogger.Warn("close listing page", "error", closeErr)
		}
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", listing.Name, err)
		}

		summary.PagesScanned += result.Pages
		summary.EntriesFound += result.Found
		summary.MalformedEntries += result.Malformed

		for _, entry := range result.Entries {
			if _, dup := seen[entry.ID]; dup {
				continue
			}
			seen[entry.ID] = struct{}{}
			jobs = append(jobs, FetchJob{Entry: entry, Dialect: listing.Dialect})
		}

		listingLogger.Debug("listing crawled", "pages", result.Pages, "in_window", len(result.Entries))
	}

	return jobs, nil
}

func (p *Pipeline) skipPublished(ctx context.Context, jobs []FetchJob, summary *domain.RunSummary) ([]FetchJob, error) {
	if p.ledger == nil || len(jobs) == 0 {
		return jobs, nil
	}

	ids := make([]string, 0, len(jobs))
	for _, job := range jobs {
		ids = append(ids, job.Entry.ID)
	}

	published, err := p.ledger.AlreadyPublished(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load published posts: %w", err)
	}

	fresh := jobs[:0]
	for _, job := range jobs {
		if published[job.Entry.ID] {
			summary.PostsSkipped++
			continue
		}
		fresh = append(fresh, job)
	}
	return fresh, nil
}

func (p *Pipeline) notify(ctx context.Context, summary domain.RunSummary, logger *slog.Logger) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.PublishDigest(ctx, buildDigestMessage(summary)); err != nil {
		logger.Warn("send run digest", "error", err)
	}
}

func buildDigestMessage(summary domain.RunSummary) string {
	return fmt.Sprintf("Harvested %d posts (%d failed, %d already published) from %d listing pages at %s",
		summary.PostsPublished,
		summary.PostsFailed,
		summary.PostsSkipped,
		summary.PagesScanned,
		summary.ScrapedAt.Format(time.RFC3339),
	)
}

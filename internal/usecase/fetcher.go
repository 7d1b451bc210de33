package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"ThreadHarvester/internal/domain"
	"ThreadHarvester/internal/infrastructure/parser"
	"ThreadHarvester/internal/ports"
	"ThreadHarvester/internal/scanner"
)

const defaultFetchConcurrency = 4

// FetchJob pairs a listing entry with the dialect of the listing it came from.
type FetchJob struct {
	Entry   domain.ListingEntry
	Dialect scanner.Dialect
}

// FetchResult is the settled outcome of one detail fetch.
type FetchResult struct {
	Entry  domain.ListingEntry
	Record domain.PostRecord
	Err    error
}

// DetailFetcher loads permalink pages, one isolated page per post.
type DetailFetcher struct {
	session         ports.Session
	concurrency     int
	opTimeout       time.Duration
	maxCommentDepth int
	logger          *slog.Logger
}

// NewDetailFetcher builds a fetcher over an open browser session.
func NewDetailFetcher(session ports.Session, concurrency int, opTimeout time.Duration, maxCommentDepth int, logger *slog.Logger) *DetailFetcher {
	if concurrency <= 0 {
		concurrency = defaultFetchConcurrency
	}
	if opTimeout <= 0 {
		opTimeout = defaultOperationTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DetailFetcher{
		session:         session,
		concurrency:     concurrency,
		opTimeout:       opTimeout,
		maxCommentDepth: maxCommentDepth,
		logger:          logger,
	}
}

// FetchAll settles every job. Failures are reported per job and never stop
// the other fetches. Results keep the order of jobs.
func (f *DetailFetcher) FetchAll(ctx context.Context, jobs []FetchJob) []FetchResult {
	results := make([]FetchResult, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			results[i].Entry = job.Entry
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}

			record, err := f.Fetch(ctx, job)
			results[i].Record = record
			results[i].Err = err
			// The per-post error stays in results so siblings keep running.
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// Fetch opens a page, loads the permalink and parses the post.
// The page is closed on every return path.
func (f *DetailFetcher) Fetch(ctx context.Context, job FetchJob) (domain.PostRecord, error) {
	entry := job.Entry
	f.logger.Info("fetching post details", "id", entry.ID, "url", entry.PermalinkURL)

	page, err := f.session.NewPage(ctx)
	if err != nil {
		return domain.PostRecord{}, fmt.Errorf("post %s: %w", entry.ID, err)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			f.logger.Warn("close post page", "id", entry.ID, "error", closeErr)
		}
	}()

	snapshot, err := f.load(ctx, page, entry.PermalinkURL)
	if err != nil {
		return domain.PostRecord{}, fmt.Errorf("post %s: %w", entry.ID, err)
	}

	doc, err := parser.ParseDocument(snapshot)
	if err != nil {
		return domain.PostRecord{}, fmt.Errorf("post %s: %w", entry.ID, err)
	}

	record, err := parser.ParsePost(doc, job.Dialect, entry, f.maxCommentDepth)
	if err != nil {
		return domain.PostRecord{}, fmt.Errorf("post %s: %w", entry.ID, err)
	}
	return record, nil
}

func (f *DetailFetcher) load(ctx context.Context, page ports.Page, url string) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, f.opTimeout)
	defer cancel()

	if url == "" {
		return "", fmt.Errorf("%w: entry has no permalink", domain.ErrNavigation)
	}
	if err := page.Navigate(opCtx, url); err != nil {
		return "", err
	}
	return page.Snapshot(opCtx)
}

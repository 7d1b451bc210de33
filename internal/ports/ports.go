package ports

import (
	"context"
	"time"

	"ThreadHarvester/internal/domain"
)

// SessionProvider connects to the remote browser endpoint.
type SessionProvider interface {
	Connect(ctx context.Context) (Session, error)
}

// Session is one live browser connection. Every page it hands out runs in its
// own isolated browsing context.
type Session interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single tab with the resource filter already installed.
// Close releases the page and its browsing context; it is safe to call twice.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Snapshot(ctx context.Context) (string, error)
	Close() error
}

// Publisher delivers a finished batch to the downstream queue.
type Publisher interface {
	Publish(ctx context.Context, records []domain.PostRecord) error
}

// Ledger remembers which posts were already published.
type Ledger interface {
	AlreadyPublished(ctx context.Context, ids []string) (map[string]bool, error)
	MarkPublished(ctx context.Context, records []domain.PostRecord) error
}

// Notifier streams run digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// RunObserver records run outcomes (metrics). err is nil for successful runs.
type RunObserver interface {
	ObserveRun(summary domain.RunSummary, err error)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ThreadHarvester/internal/domain"
	"ThreadHarvester/internal/ports"
)

type fakeSite struct {
	pages map[string]string
	fail  map[string]bool
	delay time.Duration
}

type fakeBrowser struct {
	site       *fakeSite
	connectErr error

	mu          sync.Mutex
	navigations []string

	opened   atomic.Int32
	closed   atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
	sessions atomic.Int32
}

func newFakeBrowser(pages map[string]string) *fakeBrowser {
	return &fakeBrowser{site: &fakeSite{pages: pages, fail: map[string]bool{}}}
}

func (b *fakeBrowser) Connect(_ context.Context) (ports.Session, error) {
	if b.connectErr != nil {
		return nil, b.connectErr
	}
	b.sessions.Add(1)
	return &fakeSession{browser: b}, nil
}

func (b *fakeBrowser) visited() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.navigations...)
}

type fakeSession struct {
	browser *fakeBrowser
	closed  atomic.Bool
}

func (s *fakeSession) NewPage(ctx context.Context) (ports.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.browser.opened.Add(1)
	return &fakePage{browser: s.browser}, nil
}

func (s *fakeSession) Close() error {
	s.closed.Store(true)
	return nil
}

type fakePage struct {
	browser *fakeBrowser
	current string
	closed  bool
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	b := p.browser
	b.mu.Lock()
	b.navigations = append(b.navigations, url)
	b.mu.Unlock()

	n := b.inFlight.Add(1)
	defer b.inFlight.Add(-1)
	for {
		peak := b.peak.Load()
		if n <= peak || b.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	if b.site.delay > 0 {
		select {
		case <-time.After(b.site.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if b.site.fail[url] {
		return fmt.Errorf("%w: %s: connection reset", domain.ErrNavigation, url)
	}
	if _, ok := b.site.pages[url]; !ok {
		return fmt.Errorf("%w: %s: 404", domain.ErrNavigation, url)
	}
	p.current = url
	return nil
}

func (p *fakePage) Snapshot(_ context.Context) (string, error) {
	if p.current == "" {
		return "", errors.New("nothing loaded")
	}
	return p.browser.site.pages[p.current], nil
}

func (p *fakePage) Close() error {
	if !p.closed {
		p.closed = true
		p.browser.closed.Add(1)
	}
	return nil
}

type fakePublisher struct {
	mu      sync.Mutex
	calls   int
	batches [][]domain.PostRecord
	err     error
}

func (f *fakePublisher) Publish(_ context.Context, records []domain.PostRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, append([]domain.PostRecord(nil), records...))
	return nil
}

type fakeLedger struct {
	published map[string]bool
	marked    []string
}

func (f *fakeLedger) AlreadyPublished(_ context.Context, ids []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, id := range ids {
		if f.published[id] {
			out[id] = true
		}
	}
	return out, nil
}

func (f *fakeLedger) MarkPublished(_ context.Context, records []domain.PostRecord) error {
	for _, r := range records {
		f.marked = append(f.marked, r.ID)
	}
	return nil
}

type fakeNotifier struct {
	digests []string
}

func (f *fakeNotifier) PublishDigest(_ context.Context, digest string) error {
	f.digests = append(f.digests, digest)
	return nil
}

type fakeObserver struct {
	summaries []domain.RunSummary
	errs      []error
}

func (f *fakeObserver) ObserveRun(summary domain.RunSummary, err error) {
	f.summaries = append(f.summaries, summary)
	f.errs = append(f.errs, err)
}

type listingItem struct {
	id string
	ts time.Time
}

func permalink(id string) string {
	return "https://old.reddit.com/r/programming/comments/" + id + "/"
}

func listingHTML(items []listingItem, next string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div id="siteTable" class="sitetable linklisting">`)
	for _, item := range items {
		fmt.Fprintf(&b,
			`<div class="thing link" data-fullname="%s" data-subreddit-prefixed="r/programming" data-timestamp="%d">`+
				`<div class="entry"><a class="author">author_%s</a><a class="comments" href="%s">comments</a></div></div>`,
			item.id, item.ts.UnixMilli(), item.id, permalink(item.id))
	}
	if next != "" {
		fmt.Fprintf(&b, `<span class="next-button"><a href="%s">next</a></span>`, next)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func postHTML(id string, score string) string {
	return fmt.Sprintf(`<html><body>
<div class="sitetable linklisting">
  <div class="thing link" data-fullname="%[1]s" data-type="link" data-url="https://example.org/%[1]s" data-promoted="false" data-gallery="false">
    <div class="midcol"><div class="score unvoted">%[2]s</div></div>
    <div class="entry"><a class="title">Title %[1]s</a></div>
  </div>
</div>
<div class="commentarea"><div class="sitetable nestedlisting">
  <div class="thing comment"><div class="entry"><a class="author">commenter</a><span class="score">1 point</span>
  <time datetime="2026-10-17T11:00:00+00:00">now</time><div class="md">hi</div></div><div class="child"></div></div>
</div></div>
</body></html>`, id, score)
}

package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"ThreadHarvester/internal/domain"
	"ThreadHarvester/internal/ports"
)

// Connector dials a remote Chrome DevTools endpoint.
type Connector struct {
	endpoint string
	filter   ResourceFilter
	logger   *slog.Logger
}

var _ ports.SessionProvider = (*Connector)(nil)

// NewConnector wires the endpoint and the categories the resource filter blocks.
func NewConnector(endpoint string, blocked []string, logger *slog.Logger) *Connector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Connector{
		endpoint: strings.TrimSpace(endpoint),
		filter:   NewResourceFilter(blocked),
		logger:   logger,
	}
}

// Connect opens one browser connection for a crawl run.
func (c *Connector) Connect(ctx context.Context) (ports.Session, error) {
	if c.endpoint == "" {
		return nil, domain.ErrNoConnectionURL
	}

	controlURL, err := resolveControlURL(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %w", domain.ErrNavigation, c.endpoint, err)
	}

	// The websocket lives until cancel; the remote browser itself is shared
	// and never closed from here.
	connCtx, cancel := context.WithCancel(ctx)
	browser := rod.New().ControlURL(controlURL).Context(connCtx)
	if err := browser.Connect(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: connect %s: %w", domain.ErrNavigation, c.endpoint, err)
	}

	c.logger.Info("connected to browser", "endpoint", c.endpoint)
	return &Session{browser: browser, filter: c.filter, cancel: cancel}, nil
}

// Session is a live rod connection.
type Session struct {
	browser *rod.Browser
	filter  ResourceFilter
	cancel  context.CancelFunc
	once    sync.Once
}

// NewPage creates a tab inside a fresh incognito browser context.
func (s *Session) NewPage(ctx context.Context) (ports.Page, error) {
	incognito, err := s.browser.Context(ctx).Incognito()
	if err != nil {
		return nil, fmt.Errorf("%w: create browser context: %w", domain.ErrNavigation, err)
	}
	// Release must still work after ctx is cancelled.
	incognito = incognito.Context(context.Background())

	page, err := incognito.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = incognito.Close()
		return nil, fmt.Errorf("%w: create page: %w", domain.ErrNavigation, err)
	}
	page = page.Context(context.Background())

	router, err := s.filter.install(page)
	if err != nil {
		_ = page.Close()
		_ = incognito.Close()
		return nil, fmt.Errorf("install resource filter: %w", err)
	}

	return &Page{page: page, context: incognito, router: router}, nil
}

// Close disconnects from the browser without shutting it down.
func (s *Session) Close() error {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
	return nil
}

// Page wraps a rod page together with the browsing context that owns it.
type Page struct {
	page    *rod.Page
	context *rod.Browser
	router  *rod.HijackRouter
	once    sync.Once
	err     error
}

// Navigate loads url and waits for the load event.
func (p *Page) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrNavigation, url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("%w: wait for %s: %w", domain.ErrNavigation, url, err)
	}
	return nil
}

// Snapshot serializes the current document.
func (p *Page) Snapshot(ctx context.Context) (string, error) {
	html, err := p.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("%w: snapshot: %w", domain.ErrNavigation, err)
	}
	return html, nil
}

// Close stops interception, closes the tab and disposes the browsing context.
func (p *Page) Close() error {
	p.once.Do(func() {
		var errs []error
		if p.router != nil {
			errs = append(errs, p.router.Stop())
		}
		errs = append(errs, p.page.Close(), p.context.Close())
		p.err = errors.Join(errs...)
	})
	return p.err
}

// resolveControlURL accepts a DevTools websocket URL as is and resolves
// http(s) endpoints through /json/version.
func resolveControlURL(endpoint string) (string, error) {
	if strings.HasPrefix(endpoint, "ws://") || strings.HasPrefix(endpoint, "wss://") {
		return endpoint, nil
	}
	return launcher.ResolveURL(endpoint)
}

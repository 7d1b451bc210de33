package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"ThreadHarvester/internal/config"
	"ThreadHarvester/internal/infrastructure/browser"
	"ThreadHarvester/internal/infrastructure/queue"
	"ThreadHarvester/internal/infrastructure/scheduler"
	"ThreadHarvester/internal/infrastructure/storage"
	"ThreadHarvester/internal/infrastructure/telegram"
	"ThreadHarvester/internal/logging"
	"ThreadHarvester/internal/metrics"
	"ThreadHarvester/internal/ports"
	"ThreadHarvester/internal/scanner"
	"ThreadHarvester/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	metrics  *metrics.Metrics
	closers  []io.Closer
}

// New builds the application. It dials the sink and the ledger database;
// the browser is only contacted when a run starts.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	a := &Application{cfg: cfg, logger: baseLogger, metrics: metrics.New()}

	listings, err := resolveListings(scanner.NewRegistry(), cfg.Listings)
	if err != nil {
		return nil, err
	}

	publisher, err := a.buildPublisher(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	var ledger ports.Ledger
	if cfg.Database.DSN != "" {
		db, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("open ledger: %w", err)
		}
		a.closers = append(a.closers, db)
		ledger = storage.NewLedger(db, cfg.Database.Driver)
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		notifier, err = buildNotifier(cfg.Notifications.Telegram)
		if err != nil {
			// Digests are best effort.
			baseLogger.Warn("telegram notifier disabled", "error", err)
			notifier = nil
		}
	}

	connector := browser.NewConnector(
		cfg.Browser.ConnectionURL,
		cfg.Browser.BlockedResources,
		baseLogger.With("component", "browser"),
	)

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Browser:   connector,
		Publisher: publisher,
		Ledger:    ledger,
		Notifier:  notifier,
		Observer:  a.metrics,
		Listings:  listings,
		Settings: usecase.Settings{
			Window:           cfg.Crawl.Window,
			Concurrency:      cfg.Crawl.Concurrency,
			OperationTimeout: cfg.Crawl.OperationTimeout,
			RunTimeout:       cfg.Crawl.RunTimeout,
			MaxPages:         cfg.Crawl.MaxPages,
			MaxCommentDepth:  cfg.Crawl.MaxCommentDepth,
		},
		Logger: baseLogger.With("component", "pipeline"),
	})

	return a, nil
}

// Run performs a single harvest.
func (a *Application) Run(ctx context.Context) error {
	now := time.Now().In(a.cfg.Scheduler.Location())
	_, err := a.pipeline.Run(ctx, now)
	return err
}

// Serve runs harvests on the cron schedule and exposes /metrics until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	cron := scheduler.NewCronScheduler(
		a.cfg.Scheduler.CronExpression,
		a.cfg.Scheduler.Location(),
		a.logger.With("component", "cron"),
	)
	sched := usecase.NewScheduler(cron, a.pipeline, a.logger.With("component", "scheduler"))

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if err := sched.Start(gctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started",
		"cron", a.cfg.Scheduler.CronExpression,
		"timezone", a.cfg.Scheduler.Location().String(),
		"metrics_addr", a.cfg.Metrics.Addr,
	)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		stopErr := sched.Stop(shutdownCtx)
		return errors.Join(stopErr, srv.Shutdown(shutdownCtx))
	})

	return g.Wait()
}

// Close releases the sink and ledger connections.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Migrate applies ledger migrations without running a harvest.
func Migrate(ctx context.Context, cfg config.Config) error {
	if cfg.Database.DSN == "" {
		return errors.New("database dsn is not configured")
	}
	db, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	return db.Close()
}

func (a *Application) buildPublisher(ctx context.Context) (ports.Publisher, error) {
	sink := a.cfg.Sink
	logger := a.logger.With("component", "sink")

	switch sink.Kind {
	case config.SinkRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     sink.Redis.Addr,
			Password: sink.Redis.Password,
			DB:       sink.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect redis %s: %w", sink.Redis.Addr, err)
		}
		pub := queue.NewStreamPublisher(client, sink.Redis.Stream, sink.Redis.MaxLen, logger)
		a.closers = append(a.closers, pub)
		return pub, nil

	case config.SinkJSONL:
		if sink.Path == "" {
			return queue.NewLineWriter(os.Stdout), nil
		}
		f, err := os.OpenFile(sink.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open sink file: %w", err)
		}
		a.closers = append(a.closers, f)
		return queue.NewLineWriter(f), nil

	default:
		return nil, fmt.Errorf("unknown sink kind %q", sink.Kind)
	}
}

func buildNotifier(cfg config.TelegramConfig) (ports.Notifier, error) {
	chatID, err := cfg.ParseChatID()
	if err != nil {
		return nil, err
	}
	return telegram.Connect(cfg.BotToken, chatID)
}

func resolveListings(registry *scanner.Registry, configured []config.ListingConfig) ([]usecase.Listing, error) {
	listings := make([]usecase.Listing, 0, len(configured))
	for _, l := range configured {
		dialect, err := registry.Resolve(l.Dialect)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", l.Name, err)
		}
		name := l.Name
		if name == "" {
			name = l.URL
		}
		listings = append(listings, usecase.Listing{Name: name, URL: l.URL, Dialect: dialect})
	}
	if len(listings) == 0 {
		return nil, errors.New("no listings configured")
	}
	return listings, nil
}

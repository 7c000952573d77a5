package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"signalhub/internal/cache"
	"signalhub/internal/config"
	"signalhub/internal/httpapi"
	"signalhub/internal/infrastructure/newsfeed"
	"signalhub/internal/infrastructure/socialfeed"
	"signalhub/internal/infrastructure/storage"
	"signalhub/internal/logging"
	"signalhub/internal/merge"
	"signalhub/internal/metrics"
	"signalhub/internal/normalize"
	"signalhub/internal/payment"
	"signalhub/internal/queue"
	"signalhub/internal/usecase"
)

// Application wires configuration to components and owns their lifecycle.
// Everything is constructed once at startup and passed explicitly; there are
// no module-level instances.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	db      *sql.DB
	cache   *cache.Cache
	writer  *queue.Writer
	cleanup *queue.Cleanup
	server  *http.Server
}

// New builds a runnable application. An unreachable database is a fatal
// startup failure: the process refuses to start.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := storage.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("startup: %w", err)
	}

	store := storage.NewPostgres(db)
	if err := store.Ensure(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("startup: %w", err)
	}

	ttlCache := cache.New(cfg.Cache.DefaultTTL.Std())
	m := metrics.New()

	norm := normalize.New(baseLogger.With("component", "normalizer"))
	merger := merge.New(norm, baseLogger.With("component", "merger"))

	news := newsfeed.NewClient(cfg.News, baseLogger.With("component", "newsfeed"))
	social := socialfeed.NewClient(cfg.Social, baseLogger.With("component", "socialfeed"))

	writer := queue.NewWriter(cfg.Queue, store, m, baseLogger.With("component", "queue.writer"))
	cleanup := queue.NewCleanup(cfg.Queue, store, m, baseLogger.With("component", "queue.cleanup"))

	facilitator := payment.NewFacilitatorClient(cfg.Payment, baseLogger.With("component", "facilitator"))
	gate := payment.NewGate(cfg.Payment, facilitator, store, m, baseLogger.With("component", "payment.gate"))

	markets := usecase.NewMarkets(usecase.MarketsDeps{
		News:         news,
		Social:       social,
		Cache:        ttlCache,
		Merger:       merger,
		Persister:    writer,
		Metrics:      m,
		Logger:       baseLogger.With("component", "markets"),
		CacheTTL:     cfg.Cache.DefaultTTL.Std(),
		NewsLimit:    cfg.News.FetchLimit,
		SocialLimit:  cfg.Social.FetchLimit,
		FetchTimeout: cfg.News.FetchTimeout.Std(),
	})

	api := httpapi.NewServer(markets, gate, store, ttlCache, m, baseLogger.With("component", "httpapi"))

	return &Application{
		cfg:     cfg,
		logger:  baseLogger,
		db:      db,
		cache:   ttlCache,
		writer:  writer,
		cleanup: cleanup,
		server: &http.Server{
			Addr:    cfg.Server.Addr,
			Handler: api.Handler(),
		},
	}, nil
}

// Run starts the background workers and serves HTTP until ctx is cancelled,
// then shuts everything down in order.
func (a *Application) Run(ctx context.Context) error {
	a.writer.Start(ctx)
	a.cleanup.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.cfg.Server.Addr)
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.shutdown(context.Background())
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	return a.shutdown(shutdownCtx)
}

func (a *Application) shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	err := a.server.Shutdown(ctx)

	a.cleanup.Stop()
	a.writer.Stop()
	a.cache.Close()

	if closeErr := a.db.Close(); closeErr != nil && err == nil {
		err = closeErr
	}

	a.logger.Info("shutdown complete")
	return err
}

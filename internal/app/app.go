package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	"github.com/hanakhry/JARR/internal/api"
	"github.com/hanakhry/JARR/internal/config"
	"github.com/hanakhry/JARR/internal/enricher"
	"github.com/hanakhry/JARR/internal/infrastructure/scheduler"
	"github.com/hanakhry/JARR/internal/infrastructure/scrape"
	"github.com/hanakhry/JARR/internal/infrastructure/storage"
	"github.com/hanakhry/JARR/internal/logging"
	"github.com/hanakhry/JARR/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *sql.DB
	server    *http.Server
	scheduler *usecase.Scheduler
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	articles := storage.NewArticleRepository(db)
	feeds := storage.NewFeedRepository(db)
	categories := storage.NewCategoryRepository(db)
	users := storage.NewUserRepository(db)

	fetcher := scrape.NewFetcher(cfg.Crawler, baseLogger.With("component", "scrape"))
	registry := enricher.NewRegistry(fetcher, baseLogger.With("component", "enricher"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Articles: articles,
		Registry: registry,
		Logger:   baseLogger.With("component", "pipeline"),
	})

	driver := scheduler.NewTickerScheduler(cfg.Scheduler.IntervalDuration())

	server := api.New(api.Deps{
		Articles:   articles,
		Feeds:      feeds,
		Categories: categories,
		Users:      users,
		JWTSecret:  cfg.HTTP.JWTSecret,
		Logger:     baseLogger.With("component", "api"),
	})

	return &Application{
		cfg:    cfg,
		logger: baseLogger,
		db:     db,
		server: &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           server.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		scheduler: usecase.NewScheduler(driver, pipeline),
	}, nil
}

// Run starts the enrichment scheduler and serves the API until the context
// is canceled.
func (a *Application) Run(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("api listening", "addr", a.server.Addr)
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve api: %w", err)
		}
	}

	return a.shutdown()
}

func (a *Application) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.scheduler.Stop(ctx); err != nil {
		a.logger.Error("stop scheduler", "error", err)
	}

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("shutdown api", "error", err)
	}

	if err := a.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	return nil
}

package server

import (
	"context"

	"FinLoad/internal/domain/models"
	"FinLoad/internal/domain/repository"
	"FinLoad/internal/usecase"
	"FinLoad/pkg/config"
	xhttp "FinLoad/pkg/http"
	applogger "FinLoad/pkg/logger"
	"FinLoad/pkg/metrics"
)

// App encapsulates the application lifecycle: one-shot ingestion runs,
// schema migration and the read API.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	ingestion *usecase.Ingestion
	prices    *usecase.PricesUseCase
	store     repository.PriceStore
	http      *xhttp.Server
	recorder  *metrics.Recorder
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	ingestion *usecase.Ingestion,
	prices *usecase.PricesUseCase,
	store repository.PriceStore,
	httpServer *xhttp.Server,
	recorder *metrics.Recorder,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		ingestion: ingestion,
		prices:    prices,
		store:     store,
		http:      httpServer,
		recorder:  recorder,
	}
}

// Logger returns the application logger.
func (a *App) Logger() *applogger.Logger { return a.log }

// Migrate creates the price table if it does not exist.
func (a *App) Migrate(ctx context.Context) error {
	if err := a.store.EnsureSchema(ctx); err != nil {
		return err
	}
	a.log.Info("schema ready", applogger.String("store", a.cfg.Store.Type), applogger.String("table", a.cfg.Store.Table))
	return nil
}

// Ingest runs one ingestion over symbols and returns its report.
// Per-symbol failures, including an unreachable store, are in the report; the
// error covers an invalid run config or a lock held by another run.
func (a *App) Ingest(ctx context.Context, rc models.RunConfig, symbols []string) (*models.RunReport, error) {
	if err := a.Migrate(ctx); err != nil {
		a.log.Error("schema setup failed, symbols will fail at loading", applogger.Error(err))
	}

	report, err := a.ingestion.Run(ctx, rc, symbols)
	if err != nil {
		return nil, err
	}

	// cached "latest" rows may now be stale
	if err := a.prices.Invalidate(context.WithoutCancel(ctx), symbols...); err != nil {
		a.log.Warn("cache invalidation failed", applogger.Error(err))
	}

	a.recorder.MarkRunCompleted()
	if url := a.cfg.Metrics.PushURL; url != "" {
		if err := a.recorder.Push(context.WithoutCancel(ctx), url, a.cfg.Metrics.Job); err != nil {
			a.log.Warn("metrics push failed", applogger.String("url", url), applogger.Error(err))
		}
	}
	return report, nil
}

// Serve runs the read API until ctx is done or the listener fails.
func (a *App) Serve(ctx context.Context) error {
	if err := a.http.Start(); err != nil {
		return err
	}

	var serveErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case serveErr = <-a.http.Err():
		a.log.Error("http server error", applogger.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.http.ShutdownTimeout())
	defer cancel()
	if err := a.http.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	return serveErr
}

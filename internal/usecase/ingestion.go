package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"FinLoad/internal/domain/errs"
	"FinLoad/internal/domain/models"
	drepo "FinLoad/internal/domain/repository"
	"FinLoad/internal/service/normalize"
	"FinLoad/pkg/logger"
)

// ErrRunLocked is returned when another run holds the ingestion lock.
var ErrRunLocked = errors.New("ingestion: another run holds the lock")

// publishTimeout bounds one report publish; it runs even after the run budget expired.
const publishTimeout = 5 * time.Second

// Ingestion drives fetch, normalize and load for each symbol of a run.
type Ingestion struct {
	provider  drepo.QuoteProvider
	store     drepo.PriceStore
	publisher drepo.ReportPublisher
	metrics   drepo.Metrics
	lock      drepo.RunLock
	log       *logger.Logger
	now       func() time.Time
}

// NewIngestion creates the orchestrator. publisher, metrics and lock are optional.
func NewIngestion(
	provider drepo.QuoteProvider,
	store drepo.PriceStore,
	publisher drepo.ReportPublisher,
	metrics drepo.Metrics,
	lock drepo.RunLock,
	log *logger.Logger,
) *Ingestion {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Ingestion{
		provider:  provider,
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		lock:      lock,
		log:       log,
		now:       time.Now,
	}
}

// Run ingests every symbol and returns the per-symbol report. A symbol failure
// is recorded in its result and never aborts the run; the error return is
// reserved for an invalid config or a lock held by another run.
func (uc *Ingestion) Run(ctx context.Context, cfg models.RunConfig, symbols []string) (*models.RunReport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("run config: %w", err)
	}

	if uc.lock != nil {
		ok, err := uc.lock.Acquire(ctx)
		switch {
		case err != nil:
			// Lock backend down: the run proceeds unguarded.
			uc.log.Warn("run lock unavailable, continuing without it", logger.Error(err))
		case !ok:
			return nil, ErrRunLocked
		}
		if ok {
			defer func() {
				if err := uc.lock.Release(context.WithoutCancel(ctx)); err != nil {
					uc.log.Warn("release run lock", logger.Error(err))
				}
			}()
		}
	}

	if cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}

	report := &models.RunReport{
		StartedAt: uc.now(),
		Results:   make([]models.SymbolResult, len(symbols)),
	}
	for i, s := range symbols {
		report.Results[i] = models.SymbolResult{Symbol: s, State: models.StatePending}
	}

	uc.log.Info("ingestion started",
		logger.Int("symbols", len(symbols)),
		logger.String("start", cfg.StartDate.Format(models.DateLayout)),
		logger.String("end", cfg.EndDate.Format(models.DateLayout)),
		logger.String("interval", string(cfg.Interval)),
		logger.Int("workers", cfg.Workers),
	)

	norm := normalize.New(cfg.SkipBadRows)

	if cfg.Workers <= 1 {
		for i, s := range symbols {
			report.Results[i] = uc.processSymbol(ctx, cfg, norm, s)
		}
	} else {
		// Each worker owns one index of Results, so input order is kept.
		g := new(errgroup.Group)
		g.SetLimit(cfg.Workers)
		for i, s := range symbols {
			g.Go(func() error {
				report.Results[i] = uc.processSymbol(ctx, cfg, norm, s)
				return nil
			})
		}
		_ = g.Wait()
	}

	report.FinishedAt = uc.now()
	uc.log.Info("ingestion finished",
		logger.Int("succeeded", report.Succeeded()),
		logger.Int("failed", report.Failed()),
		logger.Int("rows_fetched", report.TotalFetched()),
		logger.Int("rows_written", report.TotalWritten()),
		logger.Duration("duration_ms", report.Duration()),
	)
	if failed := failedSymbols(report); len(failed) > 0 {
		uc.log.Warn("symbols failed", logger.Strings("symbols", failed))
	}
	uc.metrics.RecordLatency("run", report.Duration().Seconds())
	return report, nil
}

func (uc *Ingestion) processSymbol(ctx context.Context, cfg models.RunConfig, norm *normalize.Normalizer, symbol string) models.SymbolResult {
	started := uc.now()
	log := uc.log.With(logger.String("symbol", symbol))
	res := models.SymbolResult{Symbol: symbol, State: models.StatePending}

	finish := func() models.SymbolResult {
		res.Duration = uc.now().Sub(started)
		if res.Failed() {
			kind := errs.Kind(res.Err)
			uc.metrics.RecordError(kind)
			uc.metrics.RecordSymbolResult("failed")
			log.Error("symbol failed",
				logger.String("stage", string(res.FailedAt)),
				logger.String("kind", kind),
				logger.Error(res.Err),
			)
		} else {
			uc.metrics.RecordSymbolResult("done")
			log.Info("symbol done",
				logger.Int("rows_written", res.RowsWritten),
				logger.Int("rows_skipped", res.RowsSkipped),
				logger.Duration("duration_ms", res.Duration),
			)
		}
		uc.publish(ctx, res)
		return res
	}
	fail := func(stage models.SymbolState, err error) models.SymbolResult {
		res.State = models.StateFailed
		res.FailedAt = stage
		res.Err = err
		return finish()
	}

	// Symbols not started before the run budget ran out fail without a request.
	if err := ctx.Err(); err != nil {
		return fail(models.StateFetching, errs.Transport("run budget", 0, err))
	}

	res.State = models.StateFetching
	log.Info("fetching symbol")
	t := uc.now()
	quotes, err := uc.provider.Fetch(ctx, symbol, cfg.Interval, cfg.StartDate, cfg.EndDate)
	uc.metrics.RecordLatency("fetch", uc.now().Sub(t).Seconds())
	if err != nil {
		return fail(models.StateFetching, err)
	}
	res.RowsFetched = len(quotes)
	uc.metrics.RecordRowsFetched(symbol, len(quotes))
	log.Info("fetched rows", logger.Int("rows", len(quotes)))

	res.State = models.StateNormalizing
	rows, skipped, err := norm.Normalize(symbol, quotes)
	if err != nil {
		return fail(models.StateNormalizing, err)
	}
	res.RowsSkipped = len(skipped)
	for _, pe := range skipped {
		uc.metrics.RecordError(errs.KindParse)
		log.Warn("skipped malformed row", logger.Error(pe))
	}

	res.State = models.StateLoading
	t = uc.now()
	written, err := uc.store.Upsert(ctx, rows)
	uc.metrics.RecordLatency("upsert", uc.now().Sub(t).Seconds())
	if err != nil {
		return fail(models.StateLoading, err)
	}
	res.RowsWritten = written
	uc.metrics.RecordRowsWritten(symbol, written)

	res.State = models.StateDone
	return finish()
}

func (uc *Ingestion) publish(ctx context.Context, res models.SymbolResult) {
	if uc.publisher == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := uc.publisher.PublishResult(pctx, res); err != nil {
		uc.log.Warn("publish symbol result", logger.String("symbol", res.Symbol), logger.Error(err))
	}
}

func failedSymbols(r *models.RunReport) []string {
	var out []string
	for _, res := range r.Results {
		if res.Failed() {
			out = append(out, res.Symbol)
		}
	}
	return out
}

// FormatSummary renders the report totals followed by one line per failed symbol.
func FormatSummary(r *models.RunReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d symbols: %d done, %d failed; %d rows fetched, %d written in %s",
		len(r.Results), r.Succeeded(), r.Failed(), r.TotalFetched(), r.TotalWritten(), r.Duration().Round(time.Millisecond))
	for _, res := range r.Results {
		if res.Failed() {
			fmt.Fprintf(&b, "\n  %s failed at %s (%s): %v", res.Symbol, res.FailedAt, errs.Kind(res.Err), res.Err)
		}
	}
	return b.String()
}

type nopMetrics struct{}

func (nopMetrics) RecordRowsFetched(string, int) {}
func (nopMetrics) RecordRowsWritten(string, int) {}
func (nopMetrics) RecordSymbolResult(string)     {}
func (nopMetrics) RecordError(string)            {}
func (nopMetrics) RecordLatency(string, float64) {}

package repository

import (
	"context"
	"time"

	"FinLoad/internal/domain/models"
)

//go:generate mockgen -package=mocks -destination=../../mocks/repository_mock.go -source=interfaces.go

// QuoteProvider fetches one bounded range of bars for a symbol.
type QuoteProvider interface {
	Fetch(ctx context.Context, symbol string, interval models.Interval, start, end time.Time) ([]models.RawQuote, error)
}

// PriceStore persists canonical rows with insert-if-absent semantics on (symbol, datetime).
type PriceStore interface {
	EnsureSchema(ctx context.Context) error
	// Upsert returns the number of rows actually inserted; key conflicts are skipped.
	Upsert(ctx context.Context, rows []models.PriceRow) (int, error)
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.PriceRow, error)
	// Latest returns the most recent row for symbol, or nil when there is none.
	Latest(ctx context.Context, symbol string) (*models.PriceRow, error)
	Health(ctx context.Context) error
	Close() error
}

// ReportPublisher emits per-symbol outcomes to an external sink.
type ReportPublisher interface {
	PublishResult(ctx context.Context, res models.SymbolResult) error
	Close() error
}

// RunLock prevents two runs from ingesting concurrently.
type RunLock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type Metrics interface {
	RecordRowsFetched(symbol string, n int)
	RecordRowsWritten(symbol string, n int)
	RecordSymbolResult(status string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}

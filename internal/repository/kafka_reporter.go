package repository

import (
	"context"
	"fmt"
	"time"

	"FinLoad/internal/domain/errs"
	"FinLoad/internal/domain/models"
	domrepo "FinLoad/internal/domain/repository"
)

// Publisher is the part of pkg/kafka.Producer used by KafkaReporter.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// ResultEvent is the wire form of one symbol outcome.
type ResultEvent struct {
	Symbol      string    `json:"symbol"`
	State       string    `json:"state"`
	FailedAt    string    `json:"failed_at,omitempty"`
	RowsFetched int       `json:"rows_fetched"`
	RowsWritten int       `json:"rows_written"`
	RowsSkipped int       `json:"rows_skipped"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	Error       string    `json:"error,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	EmittedAt   time.Time `json:"emitted_at"`
}

// NewResultEvent converts a SymbolResult for publishing.
func NewResultEvent(res models.SymbolResult, at time.Time) ResultEvent {
	ev := ResultEvent{
		Symbol:      res.Symbol,
		State:       string(res.State),
		FailedAt:    string(res.FailedAt),
		RowsFetched: res.RowsFetched,
		RowsWritten: res.RowsWritten,
		RowsSkipped: res.RowsSkipped,
		DurationMS:  res.Duration.Milliseconds(),
		EmittedAt:   at.UTC(),
	}
	if res.Err != nil {
		ev.ErrorKind = errs.Kind(res.Err)
		ev.Error = res.Err.Error()
	}
	return ev
}

// KafkaReporter publishes per-symbol results keyed by symbol.
type KafkaReporter struct {
	producer Publisher
	topic    string
	now      func() time.Time
}

func NewKafkaReporter(producer Publisher, topic string) *KafkaReporter {
	return &KafkaReporter{producer: producer, topic: topic, now: time.Now}
}

func (r *KafkaReporter) PublishResult(ctx context.Context, res models.SymbolResult) error {
	if err := r.producer.Publish(ctx, r.topic, []byte(res.Symbol), NewResultEvent(res, r.now())); err != nil {
		return fmt.Errorf("publish result %s: %w", res.Symbol, err)
	}
	return nil
}

func (r *KafkaReporter) Close() error {
	return r.producer.Close()
}

var _ domrepo.ReportPublisher = (*KafkaReporter)(nil)

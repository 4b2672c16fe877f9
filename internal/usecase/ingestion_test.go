package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"FinLoad/internal/domain/errs"
	"FinLoad/internal/domain/models"
	"FinLoad/internal/mocks"
	"FinLoad/internal/repository"
)

func runConfig(t *testing.T) models.RunConfig {
	t.Helper()
	cfg, err := models.NewRunConfig("2024-01-02", "2024-01-03", "1h", 5000)
	require.NoError(t, err)
	return cfg
}

func quotes(symbol string, datetimes ...string) []models.RawQuote {
	out := make([]models.RawQuote, 0, len(datetimes))
	for _, dt := range datetimes {
		out = append(out, models.RawQuote{
			Symbol:   symbol,
			Datetime: dt,
			Open:     "187.15",
			High:     "188.44",
			Low:      "183.89",
			Close:    "185.64",
			Volume:   "82488700",
		})
	}
	return out
}

func TestIngestion_FailureIsIsolated(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockQuoteProvider(ctrl)
	store := repository.NewMemoryStore()
	cfg := runConfig(t)

	gomock.InOrder(
		provider.EXPECT().Fetch(gomock.Any(), "AAPL", models.Interval1H, cfg.StartDate, cfg.EndDate).
			Return(quotes("AAPL", "2024-01-02 09:30:00", "2024-01-02 10:30:00"), nil),
		provider.EXPECT().Fetch(gomock.Any(), "BAD", gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, &errs.UpstreamError{Code: 400, Message: "symbol not found"}),
		provider.EXPECT().Fetch(gomock.Any(), "MSFT", gomock.Any(), gomock.Any(), gomock.Any()).
			Return(quotes("MSFT", "2024-01-02 09:30:00"), nil),
	)

	uc := NewIngestion(provider, store, nil, nil, nil, nil)
	report, err := uc.Run(context.Background(), cfg, []string{"AAPL", "BAD", "MSFT"})
	require.NoError(t, err)

	require.Len(t, report.Results, 3)
	assert.Equal(t, models.StateDone, report.Results[0].State)
	assert.Equal(t, 2, report.Results[0].RowsWritten)

	bad := report.Results[1]
	assert.Equal(t, models.StateFailed, bad.State)
	assert.Equal(t, models.StateFetching, bad.FailedAt)
	assert.Equal(t, errs.KindUpstream, errs.Kind(bad.Err))

	assert.Equal(t, models.StateDone, report.Results[2].State)
	assert.Equal(t, 2, report.Succeeded())
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, 3, report.TotalWritten())
	assert.Equal(t, 3, store.Len())
}

func TestIngestion_UpstreamErrorStoresNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockQuoteProvider(ctrl)
	store := mocks.NewMockPriceStore(ctrl)

	provider.EXPECT().Fetch(gomock.Any(), "AAPL", gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, &errs.UpstreamError{Message: "Unknown error"})
	store.EXPECT().Upsert(gomock.Any(), gomock.Any()).Times(0)

	report, err := NewIngestion(provider, store, nil, nil, nil, nil).Run(context.Background(), runConfig(t), []string{"AAPL"})
	require.NoError(t, err)
	assert.True(t, report.Results[0].Failed())
	assert.Zero(t, report.TotalWritten())
}

func TestIngestion_ParseFailureStrictAndLenient(t *testing.T) {
	bad := quotes("AAPL", "2024-01-02 09:30:00", "2024-01-02 10:30:00")
	bad[1].Close = "n/a"

	t.Run("strict", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		provider := mocks.NewMockQuoteProvider(ctrl)
		provider.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(bad, nil)
		store := repository.NewMemoryStore()

		report, err := NewIngestion(provider, store, nil, nil, nil, nil).Run(context.Background(), runConfig(t), []string{"AAPL"})
		require.NoError(t, err)

		res := report.Results[0]
		assert.Equal(t, models.StateNormalizing, res.FailedAt)
		var pe *errs.ParseError
		require.ErrorAs(t, res.Err, &pe)
		assert.Equal(t, 1, pe.Row)
		assert.Equal(t, "close", pe.Field)
		assert.Zero(t, store.Len())
	})

	t.Run("lenient", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		provider := mocks.NewMockQuoteProvider(ctrl)
		provider.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(bad, nil)
		store := repository.NewMemoryStore()
		cfg := runConfig(t)
		cfg.SkipBadRows = true

		report, err := NewIngestion(provider, store, nil, nil, nil, nil).Run(context.Background(), cfg, []string{"AAPL"})
		require.NoError(t, err)

		res := report.Results[0]
		assert.Equal(t, models.StateDone, res.State)
		assert.Equal(t, 2, res.RowsFetched)
		assert.Equal(t, 1, res.RowsSkipped)
		assert.Equal(t, 1, res.RowsWritten)
	})
}

func TestIngestion_StoreErrorFailsAtLoading(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockQuoteProvider(ctrl)
	store := mocks.NewMockPriceStore(ctrl)

	provider.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(quotes("AAPL", "2024-01-02 09:30:00"), nil)
	store.EXPECT().Upsert(gomock.Any(), gomock.Len(1)).
		Return(0, errs.Store("upsert", errors.New("relation \"stock_prices\" does not exist")))

	report, err := NewIngestion(provider, store, nil, nil, nil, nil).Run(context.Background(), runConfig(t), []string{"AAPL"})
	require.NoError(t, err)

	res := report.Results[0]
	assert.Equal(t, models.StateLoading, res.FailedAt)
	assert.Equal(t, 1, res.RowsFetched)
	assert.Equal(t, errs.KindStore, errs.Kind(res.Err))
}

func TestIngestion_RerunIsIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockQuoteProvider(ctrl)
	store := repository.NewMemoryStore()

	provider.EXPECT().Fetch(gomock.Any(), "AAPL", gomock.Any(), gomock.Any(), gomock.Any()).
		Return(quotes("AAPL", "2024-01-02 09:30:00", "2024-01-02 10:30:00"), nil).Times(2)

	uc := NewIngestion(provider, store, nil, nil, nil, nil)
	first, err := uc.Run(context.Background(), runConfig(t), []string{"AAPL"})
	require.NoError(t, err)
	second, err := uc.Run(context.Background(), runConfig(t), []string{"AAPL"})
	require.NoError(t, err)

	assert.Equal(t, 2, first.TotalWritten())
	assert.Zero(t, second.TotalWritten())
	assert.Equal(t, models.StateDone, second.Results[0].State)
	assert.Equal(t, 2, store.Len())
}

func TestIngestion_WorkerPoolKeepsInputOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockQuoteProvider(ctrl)
	store := repository.NewMemoryStore()
	symbols := []string{"AAPL", "MSFT", "NVDA", "TSLA", "AMZN", "META"}

	var mu sync.Mutex
	inFlight, peak := 0, 0
	provider.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, symbol string, _ models.Interval, _, _ time.Time) ([]models.RawQuote, error) {
			mu.Lock()
			inFlight++
			if inFlight > peak {
				peak = inFlight
			}
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			inFlight--
			mu.Unlock()
			if symbol == "NVDA" {
				return nil, errs.Transport("GET /time_series", 502, errors.New("bad gateway"))
			}
			return quotes(symbol, "2024-01-02 09:30:00"), nil
		}).Times(len(symbols))

	cfg := runConfig(t)
	cfg.Workers = 3
	report, err := NewIngestion(provider, store, nil, nil, nil, nil).Run(context.Background(), cfg, symbols)
	require.NoError(t, err)

	for i, s := range symbols {
		assert.Equal(t, s, report.Results[i].Symbol)
	}
	assert.True(t, report.Results[2].Failed())
	assert.Equal(t, 5, report.Succeeded())
	assert.LessOrEqual(t, peak, 3)
}

func TestIngestion_RunTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockQuoteProvider(ctrl)

	provider.EXPECT().Fetch(gomock.Any(), "AAPL", gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string, _ models.Interval, _, _ time.Time) ([]models.RawQuote, error) {
			<-ctx.Done()
			return nil, errs.Transport("GET /time_series", 0, ctx.Err())
		})

	cfg := runConfig(t)
	cfg.RunTimeout = 20 * time.Millisecond
	report, err := NewIngestion(provider, repository.NewMemoryStore(), nil, nil, nil, nil).
		Run(context.Background(), cfg, []string{"AAPL", "MSFT"})
	require.NoError(t, err)

	for _, res := range report.Results {
		assert.True(t, res.Failed())
		assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
		assert.Equal(t, errs.KindTransport, errs.Kind(res.Err))
	}
}

func TestIngestion_PublishesAndRecords(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockQuoteProvider(ctrl)
	publisher := mocks.NewMockReportPublisher(ctrl)
	metrics := mocks.NewMockMetrics(ctrl)

	provider.EXPECT().Fetch(gomock.Any(), "AAPL", gomock.Any(), gomock.Any(), gomock.Any()).
		Return(quotes("AAPL", "2024-01-02 09:30:00"), nil)
	provider.EXPECT().Fetch(gomock.Any(), "BAD", gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, &errs.UpstreamError{Message: "bad symbol"})

	var published []models.SymbolResult
	publisher.EXPECT().PublishResult(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, res models.SymbolResult) error {
			published = append(published, res)
			return errors.New("broker down")
		}).Times(2)

	metrics.EXPECT().RecordLatency(gomock.Any(), gomock.Any()).AnyTimes()
	metrics.EXPECT().RecordRowsFetched("AAPL", 1)
	metrics.EXPECT().RecordRowsWritten("AAPL", 1)
	metrics.EXPECT().RecordSymbolResult("done")
	metrics.EXPECT().RecordSymbolResult("failed")
	metrics.EXPECT().RecordError(errs.KindUpstream)

	report, err := NewIngestion(provider, repository.NewMemoryStore(), publisher, metrics, nil, nil).
		Run(context.Background(), runConfig(t), []string{"AAPL", "BAD"})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed())
	require.Len(t, published, 2)
	assert.Equal(t, "AAPL", published[0].Symbol)
	assert.Equal(t, models.StateFailed, published[1].State)
}

func TestIngestion_RunLock(t *testing.T) {
	t.Run("held elsewhere", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		provider := mocks.NewMockQuoteProvider(ctrl)
		lock := mocks.NewMockRunLock(ctrl)
		lock.EXPECT().Acquire(gomock.Any()).Return(false, nil)

		_, err := NewIngestion(provider, repository.NewMemoryStore(), nil, nil, lock, nil).
			Run(context.Background(), runConfig(t), []string{"AAPL"})
		assert.ErrorIs(t, err, ErrRunLocked)
	})

	t.Run("lock backend down", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		provider := mocks.NewMockQuoteProvider(ctrl)
		lock := mocks.NewMockRunLock(ctrl)
		lock.EXPECT().Acquire(gomock.Any()).Return(false, errors.New("acquire run lock: connection refused"))
		lock.EXPECT().Release(gomock.Any()).Times(0)
		provider.EXPECT().Fetch(gomock.Any(), "AAPL", gomock.Any(), gomock.Any(), gomock.Any()).
			Return(quotes("AAPL", "2024-01-02 09:30:00"), nil)

		store := repository.NewMemoryStore()
		report, err := NewIngestion(provider, store, nil, nil, lock, nil).
			Run(context.Background(), runConfig(t), []string{"AAPL"})
		require.NoError(t, err)
		assert.Equal(t, models.StateDone, report.Results[0].State)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("released after run", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		provider := mocks.NewMockQuoteProvider(ctrl)
		lock := mocks.NewMockRunLock(ctrl)
		gomock.InOrder(
			lock.EXPECT().Acquire(gomock.Any()).Return(true, nil),
			provider.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil),
			lock.EXPECT().Release(gomock.Any()).Return(nil),
		)

		report, err := NewIngestion(provider, repository.NewMemoryStore(), nil, nil, lock, nil).
			Run(context.Background(), runConfig(t), []string{"AAPL"})
		require.NoError(t, err)
		assert.Equal(t, models.StateDone, report.Results[0].State)
	})
}

func TestIngestion_InvalidConfig(t *testing.T) {
	cfg := runConfig(t)
	cfg.StartDate, cfg.EndDate = cfg.EndDate, cfg.StartDate

	_, err := NewIngestion(nil, nil, nil, nil, nil, nil).Run(context.Background(), cfg, []string{"AAPL"})
	assert.ErrorContains(t, err, "after end date")
}

func TestFormatSummary(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	r := &models.RunReport{
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Results: []models.SymbolResult{
			{Symbol: "AAPL", State: models.StateDone, RowsFetched: 7, RowsWritten: 7},
			{Symbol: "BAD", State: models.StateFailed, FailedAt: models.StateFetching,
				Err: &errs.UpstreamError{Code: 404, Message: "symbol not found"}},
		},
	}

	got := FormatSummary(r)
	assert.Equal(t, "2 symbols: 1 done, 1 failed; 7 rows fetched, 7 written in 1.5s\n"+
		"  BAD failed at FETCHING (upstream): upstream: symbol not found (code 404)", got)
}

package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"FinLoad/internal/domain/errs"
	"FinLoad/internal/domain/models"
	"FinLoad/internal/mocks"
	"FinLoad/internal/usecase"
	"FinLoad/pkg/config"
	applogger "FinLoad/pkg/logger"
	"FinLoad/pkg/metrics"
)

func aaplQuote() []models.RawQuote {
	return []models.RawQuote{{
		Datetime: "2024-01-02 09:30:00",
		Open:     "187.15", High: "188.44", Low: "183.89", Close: "185.64",
		Volume: "82488700",
	}}
}

func TestApp_IngestStoreDown(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockQuoteProvider(ctrl)
	store := mocks.NewMockPriceStore(ctrl)

	refused := errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
	store.EXPECT().EnsureSchema(gomock.Any()).Return(errs.Store("ensure schema", refused))
	provider.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(aaplQuote(), nil).Times(2)
	store.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(0, errs.Store("upsert", refused)).Times(2)

	log := applogger.Nop()
	app := New(
		&config.Config{},
		log,
		usecase.NewIngestion(provider, store, nil, nil, nil, log),
		usecase.NewPricesUseCase(store, nil, log),
		store,
		nil,
		metrics.New(),
	)

	rc, err := models.NewRunConfig("2024-01-02", "2024-01-02", "1h", 5000)
	require.NoError(t, err)

	report, err := app.Ingest(context.Background(), rc, []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	require.NotNil(t, report)
	require.Len(t, report.Results, 2)
	assert.Equal(t, 2, report.Failed())
	for _, res := range report.Results {
		assert.Equal(t, models.StateFailed, res.State)
		assert.Equal(t, models.StateLoading, res.FailedAt)
		assert.Equal(t, errs.KindStore, errs.Kind(res.Err))
		assert.Equal(t, 1, res.RowsFetched)
	}
}

func TestApp_MigrateError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockPriceStore(ctrl)
	store.EXPECT().EnsureSchema(gomock.Any()).Return(errs.Store("ensure schema", errors.New("timeout")))

	app := New(&config.Config{}, applogger.Nop(), nil, nil, store, nil, nil)
	assert.ErrorContains(t, app.Migrate(context.Background()), "ensure schema")
}

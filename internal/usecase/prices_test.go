package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"FinLoad/internal/domain/models"
	"FinLoad/internal/mocks"
	"FinLoad/internal/repository"
	"FinLoad/pkg/cache"
	xhttp "FinLoad/pkg/http"
)

func storedRow() models.PriceRow {
	return models.PriceRow{
		Symbol:    "AAPL",
		Timestamp: time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC),
		Open:      187.15,
		High:      188.44,
		Low:       183.89,
		Close:     185.64,
		Volume:    82488700,
	}
}

func TestPricesUseCase_GetPrices(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	r := storedRow()
	_, err := store.Upsert(ctx, []models.PriceRow{r})
	require.NoError(t, err)

	uc := NewPricesUseCase(store, nil, nil)
	res, err := uc.GetPrices(ctx, GetPricesParams{Symbol: "AAPL", From: r.Timestamp.Add(-time.Hour), To: r.Timestamp})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, r, res.Rows[0])

	empty, err := uc.GetPrices(ctx, GetPricesParams{Symbol: "MSFT", From: r.Timestamp, To: r.Timestamp})
	require.NoError(t, err)
	assert.NotNil(t, empty.Rows)
	assert.Zero(t, empty.Count)
}

func TestPricesUseCase_GetPricesValidation(t *testing.T) {
	uc := NewPricesUseCase(repository.NewMemoryStore(), nil, nil)
	now := time.Now()

	_, err := uc.GetPrices(context.Background(), GetPricesParams{Symbol: "AAPL", From: now, To: now.Add(-time.Hour)})
	var appErr *xhttp.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
}

func TestPricesUseCase_GetPricesClampsLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockPriceStore(ctrl)
	store.EXPECT().Query(gomock.Any(), "AAPL", gomock.Any(), gomock.Any(), maxQueryLimit).Return(nil, nil)

	_, err := NewPricesUseCase(store, nil, nil).GetPrices(context.Background(),
		GetPricesParams{Symbol: "AAPL", From: time.Unix(0, 0), To: time.Now(), Limit: 1 << 20})
	require.NoError(t, err)
}

func TestPricesUseCase_LatestUsesCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockPriceStore(ctrl)
	r := storedRow()
	store.EXPECT().Latest(gomock.Any(), "AAPL").Return(&r, nil).Times(1)

	uc := NewPricesUseCase(store, cache.NewMemoryCache(), nil)
	for i := 0; i < 3; i++ {
		got, err := uc.Latest(context.Background(), "AAPL")
		require.NoError(t, err)
		assert.Equal(t, r, *got)
	}

	require.NoError(t, uc.Invalidate(context.Background(), "AAPL"))
	store.EXPECT().Latest(gomock.Any(), "AAPL").Return(&r, nil).Times(1)
	_, err := uc.Latest(context.Background(), "AAPL")
	require.NoError(t, err)
}

func TestPricesUseCase_LatestNotFound(t *testing.T) {
	uc := NewPricesUseCase(repository.NewMemoryStore(), nil, nil)
	_, err := uc.Latest(context.Background(), "TSLA")

	var appErr *xhttp.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
}

func TestPricesUseCase_LatestStoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockPriceStore(ctrl)
	store.EXPECT().Latest(gomock.Any(), "AAPL").Return(nil, errors.New("pool closed"))

	_, err := NewPricesUseCase(store, nil, nil).Latest(context.Background(), "AAPL")
	assert.ErrorContains(t, err, "pool closed")

	var appErr *xhttp.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.Status)
}

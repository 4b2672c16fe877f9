package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"FinLoad/internal/domain/models"
	"FinLoad/internal/mocks"
	"FinLoad/internal/repository"
	"FinLoad/internal/usecase"
	xlogger "FinLoad/pkg/logger"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestEcho(t *testing.T, store *repository.MemoryStore) *echo.Echo {
	t.Helper()
	h := NewPricesEchoHandler(xlogger.Nop(), usecase.NewPricesUseCase(store, nil, nil))
	h.now = func() time.Time { return time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC) }
	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func seededStore(t *testing.T) *repository.MemoryStore {
	t.Helper()
	store := repository.NewMemoryStore()
	_, err := store.Upsert(context.Background(), []models.PriceRow{
		{Symbol: "AAPL", Timestamp: time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC), Open: 187.15, High: 188.44, Low: 183.89, Close: 185.64, Volume: 82488700},
		{Symbol: "AAPL", Timestamp: time.Date(2024, 1, 3, 9, 30, 0, 0, time.UTC), Open: 184.22, High: 185.88, Low: 183.43, Close: 184.25, Volume: 58414500},
	})
	require.NoError(t, err)
	return store
}

func serve(e *echo.Echo, target string) (*httptest.ResponseRecorder, envelope) {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestPrices(t *testing.T) {
	e := newTestEcho(t, seededStore(t))

	rec, env := serve(e, "/api/prices?symbol=aapl&from=2024-01-02&to=2024-01-02")
	require.Equal(t, http.StatusOK, rec.Code)

	var res usecase.GetPricesResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "AAPL", res.Symbol)
	require.Equal(t, 1, res.Count)
	assert.Equal(t, 185.64, res.Rows[0].Close)
	assert.Equal(t, time.Date(2024, 1, 2, 23, 59, 59, 0, time.UTC), res.To)
}

func TestPrices_DefaultRange(t *testing.T) {
	e := newTestEcho(t, seededStore(t))

	rec, env := serve(e, "/api/prices?symbol=AAPL")
	require.Equal(t, http.StatusOK, rec.Code)

	var res usecase.GetPricesResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 2, res.Count)
}

func TestPrices_Validation(t *testing.T) {
	e := newTestEcho(t, seededStore(t))

	rec, _ := serve(e, "/api/prices")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_REQUIRED")

	rec, _ = serve(e, "/api/prices?symbol=AAPL&limit=0&from=x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = serve(e, "/api/prices?symbol=AAPL&from=2024-01-05&to=2024-01-01")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLatest(t *testing.T) {
	e := newTestEcho(t, seededStore(t))

	rec, env := serve(e, "/api/symbols/AAPL/latest")
	require.Equal(t, http.StatusOK, rec.Code)

	var row models.PriceRow
	require.NoError(t, json.Unmarshal(env.Data, &row))
	assert.Equal(t, time.Date(2024, 1, 3, 9, 30, 0, 0, time.UTC), row.Timestamp)

	rec, _ = serve(e, "/api/symbols/TSLA/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	rec, _ := serve(newTestEcho(t, repository.NewMemoryStore()), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	ctrl := gomock.NewController(t)
	store := mocks.NewMockPriceStore(ctrl)
	store.EXPECT().Health(gomock.Any()).Return(errors.New("connection refused"))

	e := echo.New()
	NewPricesEchoHandler(xlogger.Nop(), usecase.NewPricesUseCase(store, nil, nil)).RegisterRoutes(e)
	rec, _ = serve(e, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

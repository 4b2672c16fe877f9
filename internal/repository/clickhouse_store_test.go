package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinLoad/internal/domain/errs"
	"FinLoad/internal/domain/models"
)

func newMockClickHouseStore(t *testing.T) (*ClickHouseStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewClickHouseStore(db, DefaultTable), mock
}

func TestClickHouseStore_EnsureSchema(t *testing.T) {
	store, mock := newMockClickHouseStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS stock_prices .* ENGINE = ReplacingMergeTree ORDER BY \(symbol, datetime\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClickHouseStore_UpsertSkipsExisting(t *testing.T) {
	store, mock := newMockClickHouseStore(t)
	first := aaplRow()
	second := aaplRow()
	second.Timestamp = first.Timestamp.Add(time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT datetime FROM stock_prices FINAL WHERE symbol = ?")).
		WithArgs("AAPL", first.Timestamp, second.Timestamp).
		WillReturnRows(sqlmock.NewRows([]string{"datetime"}).AddRow(first.Timestamp))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO stock_prices (symbol, datetime, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?)")).
		WithArgs(second.Symbol, second.Timestamp, second.Open, second.High, second.Low, second.Close, second.Volume).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := store.Upsert(context.Background(), []models.PriceRow{first, second, second})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClickHouseStore_UpsertAllPresent(t *testing.T) {
	store, mock := newMockClickHouseStore(t)
	r := aaplRow()

	mock.ExpectQuery("SELECT datetime FROM stock_prices FINAL").
		WillReturnRows(sqlmock.NewRows([]string{"datetime"}).AddRow(r.Timestamp))

	n, err := store.Upsert(context.Background(), []models.PriceRow{r})
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClickHouseStore_UpsertInsertError(t *testing.T) {
	store, mock := newMockClickHouseStore(t)

	mock.ExpectQuery("SELECT datetime FROM stock_prices FINAL").
		WillReturnRows(sqlmock.NewRows([]string{"datetime"}))
	mock.ExpectExec("INSERT INTO stock_prices").WillReturnError(errors.New("code: 241, memory limit exceeded"))

	_, err := store.Upsert(context.Background(), []models.PriceRow{aaplRow()})

	var se *errs.StoreError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, err.Error(), "memory limit exceeded")
}

func TestClickHouseStore_Latest(t *testing.T) {
	store, mock := newMockClickHouseStore(t)
	r := aaplRow()

	mock.ExpectQuery(`SELECT symbol, datetime, open, high, low, close, volume FROM stock_prices FINAL\s+WHERE symbol = \? ORDER BY datetime DESC LIMIT 1`).
		WithArgs("AAPL").
		WillReturnRows(sqlmock.NewRows([]string{"symbol", "datetime", "open", "high", "low", "close", "volume"}).
			AddRow(r.Symbol, r.Timestamp, r.Open, r.High, r.Low, r.Close, r.Volume))

	got, err := store.Latest(context.Background(), "AAPL")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, r, *got)
}

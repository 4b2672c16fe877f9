package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinLoad/internal/domain/models"
)

func bars(base models.PriceRow, hours ...int) []models.PriceRow {
	out := make([]models.PriceRow, 0, len(hours))
	for _, h := range hours {
		r := base
		r.Timestamp = base.Timestamp.Add(time.Duration(h) * time.Hour)
		out = append(out, r)
	}
	return out
}

func TestMemoryStore_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	rows := bars(aaplRow(), 0, 1, 2)

	n, err := store.Upsert(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = store.Upsert(ctx, rows)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 3, store.Len())
}

func TestMemoryStore_DoesNotOverwrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	r := aaplRow()

	_, err := store.Upsert(ctx, []models.PriceRow{r})
	require.NoError(t, err)

	changed := r
	changed.Close = 1
	_, err = store.Upsert(ctx, []models.PriceRow{changed})
	require.NoError(t, err)

	got, err := store.Latest(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, r.Close, got.Close)
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	r := aaplRow()

	_, err := store.Upsert(ctx, []models.PriceRow{r})
	require.NoError(t, err)

	got, err := store.Query(ctx, "AAPL", r.Timestamp, r.Timestamp, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, r, got[0])
}

func TestMemoryStore_OverlapIsUnion(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := aaplRow()

	_, err := store.Upsert(ctx, bars(base, 0, 1, 2))
	require.NoError(t, err)
	n, err := store.Upsert(ctx, bars(base, 1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.Query(ctx, "AAPL", base.Timestamp, base.Timestamp.Add(3*time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].Timestamp.Before(got[i].Timestamp))
	}
}

func TestMemoryStore_QueryLimitAndSymbol(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := aaplRow()
	msft := base
	msft.Symbol = "MSFT"

	_, err := store.Upsert(ctx, append(bars(base, 0, 1, 2), msft))
	require.NoError(t, err)

	got, err := store.Query(ctx, "AAPL", base.Timestamp, base.Timestamp.Add(24*time.Hour), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, base.Timestamp, got[0].Timestamp)

	latest, err := store.Latest(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, base.Timestamp.Add(2*time.Hour), latest.Timestamp)

	none, err := store.Latest(ctx, "TSLA")
	require.NoError(t, err)
	assert.Nil(t, none)
}

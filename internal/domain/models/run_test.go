package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunConfig(t *testing.T) {
	rc, err := NewRunConfig("2024-01-01", "2024-01-31", "", 5000)
	require.NoError(t, err)
	assert.Equal(t, Interval1H, rc.Interval)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), rc.StartDate)
	assert.Equal(t, 1, rc.Workers)
}

func TestNewRunConfigAliases(t *testing.T) {
	rc, err := NewRunConfig("2024-01-01", "2024-01-01", "daily", 10)
	require.NoError(t, err)
	assert.Equal(t, Interval1Day, rc.Interval)
}

func TestNewRunConfigRejects(t *testing.T) {
	cases := []struct {
		name, start, end, interval string
		size                       int
	}{
		{"start after end", "2024-02-01", "2024-01-01", "1h", 10},
		{"bad date", "2024/01/01", "2024-01-02", "1h", 10},
		{"bad interval", "2024-01-01", "2024-01-02", "3h", 10},
		{"zero size", "2024-01-01", "2024-01-02", "1h", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRunConfig(tc.start, tc.end, tc.interval, tc.size)
			require.Error(t, err)
		})
	}
}

func TestRunReportTotals(t *testing.T) {
	r := &RunReport{Results: []SymbolResult{
		{Symbol: "AAPL", State: StateDone, RowsFetched: 3, RowsWritten: 2},
		{Symbol: "MSFT", State: StateFailed, FailedAt: StateFetching},
		{Symbol: "INFY.NSE", State: StateDone, RowsFetched: 4, RowsWritten: 4},
	}}
	assert.Equal(t, 2, r.Succeeded())
	assert.Equal(t, 1, r.Failed())
	assert.Equal(t, 7, r.TotalFetched())
	assert.Equal(t, 6, r.TotalWritten())
}

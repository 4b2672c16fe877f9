package util

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	want := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

	for _, s := range []string{
		"2024-01-02T09:30:00Z",
		"2024-01-02T04:30:00-05:00",
		"2024-01-02 09:30:00",
		"2024-01-02T09:30:00",
		strconv.FormatInt(want.Unix(), 10),
	} {
		got, ok := ParseTime(s)
		require.True(t, ok, s)
		assert.True(t, want.Equal(got), s)
		assert.Equal(t, time.UTC, got.Location(), s)
	}

	day, ok := ParseTime("2024-01-02")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), day)
}

func TestParseTimeInvalid(t *testing.T) {
	for _, s := range []string{"", "yesterday", "-5", "2024-13-01"} {
		_, ok := ParseTime(s)
		assert.False(t, ok, s)
	}
}

func TestEndOfDay(t *testing.T) {
	got := EndOfDay(time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 1, 2, 23, 59, 59, 0, time.UTC), got)
}

package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSymbols(t *testing.T) {
	in := "AAPL\n\n  MSFT  \n# indices\nNVDA\nAAPL\r\nEUR/USD\n"
	got, err := ParseSymbols(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA", "EUR/USD"}, got)
}

func TestReadSymbols(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stocks.txt")
	require.NoError(t, os.WriteFile(path, []byte("AAPL\nMSFT\n"), 0o644))

	got, err := ReadSymbols(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, got)

	_, err = ReadSymbols(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"FinLoad/internal/domain/errs"
	"FinLoad/internal/domain/models"
)

// datetimeLayouts are tried in order. Intraday bars come as "2006-01-02 15:04:05",
// daily and coarser bars as a bare date.
var datetimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339,
}

// Normalizer converts provider quotes into canonical rows. It performs no I/O.
type Normalizer struct {
	skipBadRows bool
}

// New creates a Normalizer. With skipBadRows a malformed row is dropped and
// reported instead of failing the whole symbol.
func New(skipBadRows bool) *Normalizer {
	return &Normalizer{skipBadRows: skipBadRows}
}

// Normalize attaches symbol to every quote and coerces its fields.
// In strict mode the first bad row aborts with a *errs.ParseError.
// In lenient mode rows holds the good rows and skipped the per-row errors.
func (n *Normalizer) Normalize(symbol string, quotes []models.RawQuote) (rows []models.PriceRow, skipped []*errs.ParseError, err error) {
	rows = make([]models.PriceRow, 0, len(quotes))
	for i, q := range quotes {
		row, perr := normalizeRow(i, symbol, q)
		if perr != nil {
			if !n.skipBadRows {
				return nil, nil, perr
			}
			skipped = append(skipped, perr)
			continue
		}
		rows = append(rows, row)
	}
	return rows, skipped, nil
}

func normalizeRow(i int, symbol string, q models.RawQuote) (models.PriceRow, *errs.ParseError) {
	ts, err := ParseDatetime(q.Datetime)
	if err != nil {
		return models.PriceRow{}, &errs.ParseError{Row: i, Field: "datetime", Value: q.Datetime, Err: err}
	}

	row := models.PriceRow{Symbol: symbol, Timestamp: ts}
	prices := []struct {
		field string
		raw   string
		dst   *float64
	}{
		{"open", q.Open, &row.Open},
		{"high", q.High, &row.High},
		{"low", q.Low, &row.Low},
		{"close", q.Close, &row.Close},
	}
	for _, p := range prices {
		d, err := decimal.NewFromString(strings.TrimSpace(p.raw))
		if err != nil {
			return models.PriceRow{}, &errs.ParseError{Row: i, Field: p.field, Value: p.raw, Err: err}
		}
		*p.dst = d.InexactFloat64()
	}

	vol, err := parseVolume(q.Volume)
	if err != nil {
		return models.PriceRow{}, &errs.ParseError{Row: i, Field: "volume", Value: q.Volume, Err: err}
	}
	row.Volume = vol
	return row, nil
}

// ParseDatetime parses a provider datetime into a UTC wall-clock timestamp.
func ParseDatetime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised datetime")
}

// parseVolume accepts integral values, including decimal spellings such as "1000.0".
// FX and crypto series carry no volume; an empty string maps to zero.
func parseVolume(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("volume is not integral")
	}
	if d.GreaterThan(decimal.NewFromInt(maxInt64)) || d.LessThan(decimal.NewFromInt(minInt64)) {
		return 0, fmt.Errorf("volume out of range")
	}
	return d.IntPart(), nil
}

const (
	maxInt64 = 1<<63 - 1
	minInt64 = -1 << 63
)

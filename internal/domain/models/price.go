package models

import "time"

// RawQuote is one bar exactly as the provider returned it.
type RawQuote struct {
	Symbol   string `json:"symbol,omitempty"`
	Datetime string `json:"datetime"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
	Volume   string `json:"volume"`
}

// PriceRow is the canonical persisted bar. (Symbol, Timestamp) is the natural key.
// Timestamp carries the provider's wall clock in the UTC location.
type PriceRow struct {
	Symbol    string    `json:"symbol" gorm:"column:symbol;type:text;primaryKey"`
	Timestamp time.Time `json:"datetime" gorm:"column:datetime;type:timestamp;primaryKey"`
	Open      float64   `json:"open" gorm:"column:open;type:double precision"`
	High      float64   `json:"high" gorm:"column:high;type:double precision"`
	Low       float64   `json:"low" gorm:"column:low;type:double precision"`
	Close     float64   `json:"close" gorm:"column:close;type:double precision"`
	Volume    int64     `json:"volume" gorm:"column:volume;type:bigint"`
}

// Key returns the natural key of the row.
func (r PriceRow) Key() PriceKey {
	return PriceKey{Symbol: r.Symbol, Timestamp: r.Timestamp.UTC()}
}

// PriceKey identifies a row in the store.
type PriceKey struct {
	Symbol    string
	Timestamp time.Time
}

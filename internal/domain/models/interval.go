package models

// Interval is a bar size the provider accepts.
type Interval string

const (
	Interval1Min   Interval = "1min"
	Interval5Min   Interval = "5min"
	Interval15Min  Interval = "15min"
	Interval30Min  Interval = "30min"
	Interval45Min  Interval = "45min"
	Interval1H     Interval = "1h"
	Interval2H     Interval = "2h"
	Interval4H     Interval = "4h"
	Interval8H     Interval = "8h"
	Interval1Day   Interval = "1day"
	Interval1Week  Interval = "1week"
	Interval1Month Interval = "1month"
)

// IntervalNames lists accepted intervals, space separated for validator oneof tags.
const IntervalNames = "1min 5min 15min 30min 45min 1h 2h 4h 8h 1day 1week 1month"

// IsValidInterval returns true if iv is a supported interval.
func IsValidInterval(iv Interval) bool {
	switch iv {
	case Interval1Min, Interval5Min, Interval15Min, Interval30Min, Interval45Min,
		Interval1H, Interval2H, Interval4H, Interval8H,
		Interval1Day, Interval1Week, Interval1Month:
		return true
	default:
		return false
	}
}

// DefaultInterval returns the interval used when none is given.
func DefaultInterval() Interval { return Interval1H }

// NormalizeInterval maps common aliases onto provider tokens. Unknown values are
// returned unchanged so validation can reject them.
func NormalizeInterval(s string) Interval {
	switch s {
	case "":
		return DefaultInterval()
	case "daily", "1d":
		return Interval1Day
	case "weekly", "1w":
		return Interval1Week
	case "monthly":
		return Interval1Month
	case "1m":
		return Interval1Min
	case "5m":
		return Interval5Min
	case "15m":
		return Interval15Min
	case "30m":
		return Interval30Min
	default:
		return Interval(s)
	}
}

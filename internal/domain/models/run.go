package models

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format accepted for run boundaries.
const DateLayout = "2006-01-02"

// RunConfig is the immutable input of one ingestion run.
type RunConfig struct {
	StartDate   time.Time
	EndDate     time.Time
	Interval    Interval
	OutputSize  int
	Workers     int
	SkipBadRows bool
	RunTimeout  time.Duration
}

// NewRunConfig parses and validates the date range and interval.
func NewRunConfig(start, end, interval string, outputSize int) (RunConfig, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return RunConfig{}, fmt.Errorf("start date %q: %w", start, err)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return RunConfig{}, fmt.Errorf("end date %q: %w", end, err)
	}
	rc := RunConfig{
		StartDate:  s,
		EndDate:    e,
		Interval:   NormalizeInterval(interval),
		OutputSize: outputSize,
		Workers:    1,
	}
	return rc, rc.Validate()
}

// Validate checks the run invariants.
func (c RunConfig) Validate() error {
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		return fmt.Errorf("start and end dates are required")
	}
	if c.StartDate.After(c.EndDate) {
		return fmt.Errorf("start date %s is after end date %s", c.StartDate.Format(DateLayout), c.EndDate.Format(DateLayout))
	}
	if !IsValidInterval(c.Interval) {
		return fmt.Errorf("unsupported interval %q", c.Interval)
	}
	if c.OutputSize <= 0 {
		return fmt.Errorf("output size must be positive, got %d", c.OutputSize)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	return nil
}

package models

import "time"

// SymbolState is a stage of the per-symbol pipeline.
type SymbolState string

const (
	StatePending     SymbolState = "PENDING"
	StateFetching    SymbolState = "FETCHING"
	StateNormalizing SymbolState = "NORMALIZING"
	StateLoading     SymbolState = "LOADING"
	StateDone        SymbolState = "DONE"
	StateFailed      SymbolState = "FAILED"
)

// SymbolResult is the outcome of one symbol's pipeline.
type SymbolResult struct {
	Symbol      string
	State       SymbolState
	FailedAt    SymbolState // stage that failed, empty unless State == FAILED
	RowsFetched int
	RowsWritten int
	RowsSkipped int // malformed rows dropped in lenient mode
	Err         error
	Duration    time.Duration
}

// Failed reports whether the symbol ended in FAILED.
func (r SymbolResult) Failed() bool { return r.State == StateFailed }

// RunReport aggregates the per-symbol outcomes of one run.
type RunReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []SymbolResult
}

func (r *RunReport) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.State == StateDone {
			n++
		}
	}
	return n
}

func (r *RunReport) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Failed() {
			n++
		}
	}
	return n
}

func (r *RunReport) TotalFetched() int {
	n := 0
	for _, res := range r.Results {
		n += res.RowsFetched
	}
	return n
}

func (r *RunReport) TotalWritten() int {
	n := 0
	for _, res := range r.Results {
		n += res.RowsWritten
	}
	return n
}

// Duration is the wall time of the run.
func (r *RunReport) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

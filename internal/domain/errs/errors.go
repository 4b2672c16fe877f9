package errs

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds, also used as metric and report labels.
const (
	KindTransport = "transport"
	KindUpstream  = "upstream"
	KindParse     = "parse"
	KindStore     = "store"
	KindUnknown   = "unknown"
)

// TransportError is a network or HTTP status failure. Retryable.
type TransportError struct {
	Op         string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport: %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UpstreamError means the provider answered but reported a logical failure.
type UpstreamError struct {
	Code    int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("upstream: %s (code %d)", e.Message, e.Code)
	}
	return "upstream: " + e.Message
}

// ParseError is a malformed field in one provider row.
type ParseError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse: row %d field %s %q: %v", e.Row, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StoreError wraps any persistence failure other than a skipped conflict.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

// Transport builds a TransportError.
func Transport(op string, status int, err error) error {
	return &TransportError{Op: op, StatusCode: status, Err: err}
}

// Store builds a StoreError, or returns nil for a nil err.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// Kind classifies err into one of the Kind* labels.
func Kind(err error) string {
	var (
		te *TransportError
		ue *UpstreamError
		pe *ParseError
		se *StoreError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &te):
		return KindTransport
	case errors.As(err, &ue):
		return KindUpstream
	case errors.As(err, &pe):
		return KindParse
	case errors.As(err, &se):
		return KindStore
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindTransport
	default:
		return KindUnknown
	}
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	var te *TransportError
	if !errors.As(err, &te) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	// 4xx other than 429 will not change on retry.
	if te.StatusCode >= 400 && te.StatusCode < 500 && te.StatusCode != 429 {
		return false
	}
	return true
}

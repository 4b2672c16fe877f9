package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"transport", Transport("get", 502, errors.New("bad gateway")), KindTransport},
		{"wrapped upstream", fmt.Errorf("fetch: %w", &UpstreamError{Message: "Unknown error"}), KindUpstream},
		{"parse", &ParseError{Row: 1, Field: "open", Value: "x", Err: errors.New("bad")}, KindParse},
		{"store", Store("insert", errors.New("conn refused")), KindStore},
		{"deadline", context.DeadlineExceeded, KindTransport},
		{"other", errors.New("boom"), KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Kind(tc.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(Transport("get", 0, errors.New("reset"))))
	assert.True(t, IsRetryable(Transport("get", 503, errors.New("unavailable"))))
	assert.True(t, IsRetryable(Transport("get", 429, errors.New("slow down"))))
	assert.False(t, IsRetryable(Transport("get", 401, errors.New("unauthorized"))))
	assert.False(t, IsRetryable(Transport("get", 0, context.Canceled)))
	assert.False(t, IsRetryable(&UpstreamError{Message: "invalid symbol"}))
}

func TestTransportErrorKeepsDeadline(t *testing.T) {
	err := Transport("get", 0, context.DeadlineExceeded)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "transport: get")
}

func TestStoreNil(t *testing.T) {
	require.NoError(t, Store("insert", nil))
}

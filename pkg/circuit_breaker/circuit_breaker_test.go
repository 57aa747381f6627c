package circuit_breaker_test

import (
	"errors"
	"testing"
	"time"

	"github.com/Astemirdum/lending-service/pkg/circuit_breaker"
	"github.com/stretchr/testify/require"
)

var errBroker = errors.New("broker unavailable")

func ok() error   { return nil }
func fail() error { return errBroker }

func Test_circuitBreaker_Call(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		calls     []func() error
		wantState circuit_breaker.Status
	}{
		{
			name:      "stays closed on success",
			calls:     []func() error{ok, ok, ok, ok},
			wantState: circuit_breaker.Closed,
		},
		{
			name:      "stays closed below percentile",
			calls:     []func() error{ok, ok, ok, fail},
			wantState: circuit_breaker.Closed,
		},
		{
			name:      "opens at percentile",
			calls:     []func() error{ok, ok, fail, fail},
			wantState: circuit_breaker.Open,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cb := circuit_breaker.New(4, time.Minute, 0.5, 1)
			for _, call := range tt.calls {
				_ = cb.Call(call)
			}
			require.Equal(t, tt.wantState, cb.State())
		})
	}
}

func Test_circuitBreaker_OpenRejects(t *testing.T) {
	t.Parallel()
	cb := circuit_breaker.New(2, time.Minute, 0.5, 1)
	require.ErrorIs(t, cb.Call(fail), errBroker)
	require.Equal(t, circuit_breaker.Open, cb.State())

	called := false
	err := cb.Call(func() error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, circuit_breaker.ErrOpenCB)
	require.False(t, called)
}

func Test_circuitBreaker_Recovery(t *testing.T) {
	t.Parallel()
	cb := circuit_breaker.New(2, 20*time.Millisecond, 0.5, 2)
	_ = cb.Call(fail)
	require.Equal(t, circuit_breaker.Open, cb.State())

	time.Sleep(40 * time.Millisecond)
	require.NoError(t, cb.Call(ok))
	require.Equal(t, circuit_breaker.HalfOpen, cb.State())
	require.NoError(t, cb.Call(ok))
	require.Equal(t, circuit_breaker.Closed, cb.State())
}

func Test_circuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	t.Parallel()
	cb := circuit_breaker.New(2, 20*time.Millisecond, 0.5, 2)
	_ = cb.Call(fail)
	time.Sleep(40 * time.Millisecond)

	require.ErrorIs(t, cb.Call(fail), errBroker)
	require.Equal(t, circuit_breaker.Open, cb.State())

	cb.Reset()
	require.Equal(t, circuit_breaker.Closed, cb.State())
}

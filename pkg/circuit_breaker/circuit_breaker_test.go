package circuit_breaker_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bibliotec/catalog-service/pkg/circuit_breaker"
)

func TestCircuitBreaker_Call(t *testing.T) {
	fail := func() error { return errors.New("service error") }
	ok := func() error { return nil }

	cb := circuit_breaker.New(10, 50*time.Millisecond, 0.5, 2)

	for i := 0; i < 10; i++ {
		require.NoError(t, cb.Call(ok))
	}

	// push the failure share over the percentile: breaker opens
	for i := 0; i < 5; i++ {
		require.Error(t, cb.Call(fail))
	}
	require.ErrorIs(t, cb.Call(ok), circuit_breaker.ErrOpenCB)

	// after the timeout the breaker probes in half-open
	time.Sleep(60 * time.Millisecond)
	require.NoError(t, cb.Call(ok))
	require.NoError(t, cb.Call(ok))
	require.NoError(t, cb.Call(ok)) // third success closes it

	// a failing probe while half-open re-opens immediately
	for i := 0; i < 10; i++ {
		_ = cb.Call(fail)
	}
	require.ErrorIs(t, cb.Call(ok), circuit_breaker.ErrOpenCB)
	time.Sleep(60 * time.Millisecond)
	require.Error(t, cb.Call(fail))
	require.ErrorIs(t, cb.Call(ok), circuit_breaker.ErrOpenCB)
}

func TestCircuitBreaker_Reset(t *testing.T) {
	fail := func() error { return errors.New("service error") }
	ok := func() error { return nil }

	cb := circuit_breaker.New(4, time.Hour, 0.5, 1)
	for i := 0; i < 4; i++ {
		_ = cb.Call(fail)
	}
	require.ErrorIs(t, cb.Call(ok), circuit_breaker.ErrOpenCB)

	cb.Reset()
	require.NoError(t, cb.Call(ok))
}

package errors

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	// Given: a circuit breaker with max 3 failures
	cb := NewCircuitBreaker("embed",
		WithMaxFailures(3),
		WithResetTimeout(1*time.Second),
	)

	// When: recording 3 failures
	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error {
			return errors.New("error")
		})
	}

	// Then: circuit is open
	assert.Equal(t, StateOpen, cb.State())

	// And: requests are rejected
	err := cb.Execute(func() error {
		return nil // Would succeed if called
	})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrCircuitOpen))
}

func TestCircuitBreaker_RecoversAfterTimeout(t *testing.T) {
	// Given: an open circuit breaker
	cb := NewCircuitBreaker("embed",
		WithMaxFailures(2),
		WithResetTimeout(50*time.Millisecond),
	)

	// Trip the circuit
	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error {
			return errors.New("error")
		})
	}
	require.Equal(t, StateOpen, cb.State())

	// When: waiting for reset timeout
	time.Sleep(60 * time.Millisecond)

	// Then: circuit is half-open and allows one request
	executed := false
	err := cb.Execute(func() error {
		executed = true
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, executed)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReOpens(t *testing.T) {
	// Given: a circuit in half-open state
	cb := NewCircuitBreaker("embed",
		WithMaxFailures(2),
		WithResetTimeout(50*time.Millisecond),
	)

	// Trip and wait for half-open
	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errors.New("error") })
	}
	time.Sleep(60 * time.Millisecond)

	// When: the test request fails
	_ = cb.Execute(func() error {
		return errors.New("still failing")
	})

	// Then: circuit reopens
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_SuccessResetsClosed(t *testing.T) {
	// Given: a circuit breaker with some failures (but not tripped)
	cb := NewCircuitBreaker("embed",
		WithMaxFailures(5),
		WithResetTimeout(1*time.Second),
	)

	// Record some failures
	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errors.New("error") })
	}

	// When: a success occurs
	err := cb.Execute(func() error { return nil })

	// Then: failure count resets
	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitExecuteWithResult_UsesFallbackWhenOpen(t *testing.T) {
	// Given: an open circuit breaker
	cb := NewCircuitBreaker("embed",
		WithMaxFailures(1),
		WithResetTimeout(1*time.Second),
	)
	_ = cb.Execute(func() error { return errors.New("error") })
	require.Equal(t, StateOpen, cb.State())

	// When: executing with a fallback
	primaryCalled := false
	result, err := CircuitExecuteWithResult(cb,
		func() ([]float32, error) {
			primaryCalled = true
			return []float32{1, 2, 3}, nil
		},
		func() ([]float32, error) {
			return []float32{0, 0, 0}, nil
		},
	)

	// Then: the fallback result is returned without calling the primary
	assert.NoError(t, err)
	assert.False(t, primaryCalled)
	assert.Equal(t, []float32{0, 0, 0}, result)
}

func TestCircuitExecuteWithResult_ReturnsPrimaryWhenClosed(t *testing.T) {
	cb := NewCircuitBreaker("embed")

	result, err := CircuitExecuteWithResult(cb,
		func() (string, error) { return "primary", nil },
		func() (string, error) { return "fallback", nil },
	)

	assert.NoError(t, err)
	assert.Equal(t, "primary", result)
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	// Given: a circuit breaker shared by many goroutines
	cb := NewCircuitBreaker("embed",
		WithMaxFailures(100),
		WithResetTimeout(1*time.Second),
	)

	// When: executing concurrently with mixed outcomes
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = cb.Execute(func() error {
				if n%2 == 0 {
					return errors.New("error")
				}
				return nil
			})
		}(i)
	}
	wg.Wait()

	// Then: no race, and the breaker is in a coherent state
	state := cb.State()
	assert.Contains(t, []State{StateClosed, StateOpen}, state)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(99).String())
}

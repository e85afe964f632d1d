package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_Execute(t *testing.T) {
	tests := []struct {
		name          string
		execFunc      func() error
		expectErr     bool
		expectedState State
	}{
		{
			name:          "successful execution stays closed",
			execFunc:      func() error { return nil },
			expectErr:     false,
			expectedState: StateClosed,
		},
		{
			name:          "single failure surfaces the error and stays closed",
			execFunc:      func() error { return errors.New("boom") },
			expectErr:     true,
			expectedState: StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := NewCircuitBreaker(CircuitBreakerConfig{
				MaxFailures: 3,
				Timeout:     5 * time.Second,
			})

			err := cb.Execute(tt.execFunc)

			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expectedState, cb.State())
		})
	}
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 3,
		Timeout:     5 * time.Second,
	})

	for i := 0; i < 3; i++ {
		cb.Execute(func() error { return errors.New("fail") })
	}

	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_HalfOpenAfterTimeout(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 3,
		Timeout:     50 * time.Millisecond,
	})

	for i := 0; i < 3; i++ {
		cb.Execute(func() error { return errors.New("fail") })
	}
	assert.Equal(t, StateOpen, cb.State())

	time.Sleep(100 * time.Millisecond)

	err := cb.Execute(func() error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, StateHalfOpen, cb.State())
}

func TestCircuitBreaker_ClosesAfterHalfOpenSuccesses(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 2,
		Timeout:     50 * time.Millisecond,
		HalfOpenMax: 2,
	})

	for i := 0; i < 2; i++ {
		cb.Execute(func() error { return errors.New("fail") })
	}
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 2; i++ {
		assert.NoError(t, cb.Execute(func() error { return nil }))
	}

	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 2,
		Timeout:     50 * time.Millisecond,
	})

	for i := 0; i < 2; i++ {
		cb.Execute(func() error { return errors.New("fail") })
	}
	time.Sleep(100 * time.Millisecond)

	cb.Execute(func() error { return errors.New("still failing") })

	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 1,
		Timeout:     time.Minute,
	})

	cb.Execute(func() error { return errors.New("fail") })
	assert.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.NoError(t, cb.Execute(func() error { return nil }))
}

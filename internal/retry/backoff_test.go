package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Multiplier: 2.0,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result := Do(context.Background(), fastConfig(), func() error {
		calls++
		return nil
	})

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesRetryableErrors(t *testing.T) {
	calls := 0
	result := Do(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
}

func TestDo_NonRetryableFailsFast(t *testing.T) {
	calls := 0
	result := Do(context.Background(), fastConfig(), func() error {
		calls++
		return errors.New("invalid api key")
	})

	assert.False(t, result.Success)
	assert.Equal(t, 1, calls)
	assert.EqualError(t, result.LastError, "invalid api key")
}

func TestDo_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	result := Do(context.Background(), fastConfig(), func() error {
		calls++
		return errors.New("503 service unavailable")
	})

	assert.False(t, result.Success)
	assert.Equal(t, 4, calls) // initial attempt + 3 retries
}

func TestRecoverOnce_SuccessSkipsRecovery(t *testing.T) {
	recovered := false
	err := RecoverOnce(
		func() error { return nil },
		func() error { recovered = true; return nil },
	)

	require.NoError(t, err)
	assert.False(t, recovered)
}

func TestRecoverOnce_RetriesOnceAfterRecovery(t *testing.T) {
	calls := 0
	err := RecoverOnce(
		func() error {
			calls++
			if calls == 1 {
				return errors.New("boom")
			}
			return nil
		},
		func() error { return nil },
	)

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRecoverOnce_SecondFailureIsReturned(t *testing.T) {
	calls := 0
	err := RecoverOnce(
		func() error {
			calls++
			return fmt.Errorf("attempt %d failed", calls)
		},
		func() error { return nil },
	)

	require.Error(t, err)
	assert.EqualError(t, err, "attempt 2 failed")
	assert.Equal(t, 2, calls)
}

func TestRecoverOnce_FailedRecoveryShortCircuits(t *testing.T) {
	calls := 0
	err := RecoverOnce(
		func() error {
			calls++
			return errors.New("boom")
		},
		func() error { return errors.New("recovery failed") },
	)

	require.Error(t, err)
	assert.EqualError(t, err, "recovery failed")
	assert.Equal(t, 1, calls)
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(errors.New("HTTP 429 Too Many Requests")))
	assert.True(t, IsRetryableError(errors.New("dial tcp: connection refused")))
	assert.False(t, IsRetryableError(errors.New("invalid request body")))
	assert.False(t, IsRetryableError(nil))
}

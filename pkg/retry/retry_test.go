package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type classifiedError struct {
	retryable bool
}

func (e *classifiedError) Error() string   { return "classified" }
func (e *classifiedError) Retryable() bool { return e.retryable }

func fastConfig() Config {
	return Config{MaxRetries: 2, BaseDelay: time.Millisecond, MaxJitter: time.Millisecond}
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(_ context.Context, _ int) error {
		calls++
		return &classifiedError{retryable: true}
	})

	require.Error(t, err)
	require.Equal(t, 3, calls, "1 initial attempt + 2 retries")
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(_ context.Context, _ int) error {
		calls++
		return &classifiedError{retryable: false}
	})

	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestDoSucceedsAfterRetry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(_ context.Context, _ int) error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestDoPassesAttemptIndex(t *testing.T) {
	var attempts []int
	_ = Do(context.Background(), fastConfig(), func(_ context.Context, attempt int) error {
		attempts = append(attempts, attempt)
		return errors.New("transient")
	})

	require.Equal(t, []int{0, 1, 2}, attempts)
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Do(ctx, fastConfig(), func(_ context.Context, _ int) error {
		calls++
		cancel()
		return errors.New("transient")
	})

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestIsRetryable(t *testing.T) {
	require.False(t, IsRetryable(nil))
	require.True(t, IsRetryable(errors.New("unclassified transport error")))
	require.True(t, IsRetryable(&classifiedError{retryable: true}))
	require.False(t, IsRetryable(&classifiedError{retryable: false}))
}

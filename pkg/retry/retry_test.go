package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Config{MaxAttempts: 3, BaseDelay: time.Millisecond}, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoExhaustsAttempts(t *testing.T) {
	attempts := 0
	failure := errors.New("still down")

	err := Do(context.Background(), Config{MaxAttempts: 4, BaseDelay: time.Millisecond}, func(ctx context.Context) error {
		attempts++
		return failure
	})

	assert.ErrorIs(t, err, failure)
	assert.Equal(t, 4, attempts)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	fatal := errors.New("malformed")
	attempts := 0

	cfg := Config{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		Retryable:   func(err error) bool { return !errors.Is(err, fatal) },
	}

	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		return fatal
	})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, attempts, "non-retryable errors must not be retried")
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := Do(ctx, Config{MaxAttempts: 10, BaseDelay: time.Hour}, func(ctx context.Context) error {
		attempts++
		cancel()
		return errors.New("transient")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts, "cancellation during backoff ends the loop")
}

func TestDoDefaultsSingleAttempt(t *testing.T) {
	attempts := 0
	_ = Do(context.Background(), Config{BaseDelay: time.Millisecond}, func(ctx context.Context) error {
		attempts++
		return errors.New("nope")
	})
	assert.Equal(t, 1, attempts)
}

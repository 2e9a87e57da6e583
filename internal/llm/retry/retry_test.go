package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err  string
		want Class
	}{
		{"429 Too Many Requests", ClassRateLimit},
		{"Rate limit reached for gpt-4o", ClassRateLimit},
		{"quota exceeded for project", ClassRateLimit},
		{"context deadline exceeded (Client.Timeout)", ClassTimeout},
		{"request timed out", ClassTimeout},
		{"500 Internal Server Error", ClassServerError},
		{"502 Bad Gateway", ClassServerError},
		{"Service Unavailable", ClassServerError},
		{"connection refused", ClassNetwork},
		{"network is unreachable", ClassNetwork},
		{"invalid api key", ClassNonRetryable},
		{"model not found", ClassNonRetryable},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(errors.New(tt.err)), "error: %s", tt.err)
	}
	assert.Equal(t, ClassNonRetryable, Classify(nil))
}

func TestClassify_RateLimitBeatsTimeout(t *testing.T) {
	// Markers are checked in order; a message matching both lands on the
	// first class.
	assert.Equal(t, ClassRateLimit, Classify(errors.New("rate limit: request timed out")))
}

func TestPolicyFor(t *testing.T) {
	p, ok := PolicyFor(ClassRateLimit)
	require.True(t, ok)
	assert.Equal(t, 3, p.MaxRetries)
	assert.Equal(t, 2*time.Second, p.InitialDelay)

	_, ok = PolicyFor(ClassNonRetryable)
	assert.False(t, ok)
}

func TestDo_SuccessFirstTry(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), "test", func() (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestDo_NonRetryableReturnsImmediately(t *testing.T) {
	calls := 0
	start := time.Now()
	_, err := Do(context.Background(), "test", func() (string, error) {
		calls++
		return "", errors.New("invalid api key")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestDo_RetriesThenSucceeds(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), "test", func() (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("connection reset by peer")
		}
		return 7, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 7, result)
	assert.Equal(t, 2, calls)
}

func TestDo_ExhaustsNetworkRetries(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), "test", func() (int, error) {
		calls++
		return 0, errors.New("network is unreachable")
	})

	require.Error(t, err)
	// 1 initial attempt + 2 retries
	assert.Equal(t, 3, calls)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.TotalAttempts)
	assert.Equal(t, ClassNetwork, exhausted.Class)
	assert.ErrorContains(t, exhausted.LastErr, "unreachable")
}

func TestDo_StopsWhenErrorTurnsNonRetryable(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), "test", func() (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("connection refused")
		}
		return 0, errors.New("invalid api key")
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.ErrorContains(t, err, "invalid api key")
	var exhausted *ExhaustedError
	assert.False(t, errors.As(err, &exhausted))
}

func TestDo_CanceledContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Do(ctx, "test", func() (int, error) {
		calls++
		return 0, errors.New("503 service unavailable")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

package retry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sovtrack/sovtrack/internal/logger"
)

// Class is the retry classification of a provider error.
type Class string

const (
	ClassRateLimit    Class = "rate_limit"
	ClassTimeout      Class = "timeout"
	ClassServerError  Class = "server_error"
	ClassNetwork      Class = "network"
	ClassNonRetryable Class = "non_retryable"
)

// Policy bounds the retries of one error class.
type Policy struct {
	MaxRetries   int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

var policies = map[Class]Policy{
	ClassRateLimit:   {MaxRetries: 3, InitialDelay: 2 * time.Second, Multiplier: 2, MaxDelay: 30 * time.Second},
	ClassTimeout:     {MaxRetries: 2, InitialDelay: 1 * time.Second, Multiplier: 1.5, MaxDelay: 10 * time.Second},
	ClassServerError: {MaxRetries: 2, InitialDelay: 3 * time.Second, Multiplier: 2, MaxDelay: 20 * time.Second},
	ClassNetwork:     {MaxRetries: 2, InitialDelay: 1 * time.Second, Multiplier: 2, MaxDelay: 10 * time.Second},
}

// PolicyFor returns the retry policy of a class. Non-retryable classes have
// no policy.
func PolicyFor(c Class) (Policy, bool) {
	p, ok := policies[c]
	return p, ok
}

var classMarkers = []struct {
	class   Class
	markers []string
}{
	{ClassRateLimit, []string{"rate", "429", "quota exceeded"}},
	{ClassTimeout, []string{"timeout", "timed out"}},
	{ClassServerError, []string{"500", "502", "503", "internal server error", "bad gateway", "service unavailable"}},
	{ClassNetwork, []string{"connection", "network"}},
}

// Classify maps an error message onto a retry class by case-insensitive
// substring matching. Anything unrecognized is non-retryable.
func Classify(err error) Class {
	if err == nil {
		return ClassNonRetryable
	}
	msg := strings.ToLower(err.Error())
	for _, cm := range classMarkers {
		for _, marker := range cm.markers {
			if strings.Contains(msg, marker) {
				return cm.class
			}
		}
	}
	return ClassNonRetryable
}

// ExhaustedError is returned when every allowed attempt of a retryable
// error class has failed.
type ExhaustedError struct {
	TotalAttempts int
	Class         Class
	LastErr       error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("exhausted %d attempts (%s): %v", e.TotalAttempts, e.Class, e.LastErr)
}

func (e *ExhaustedError) Unwrap() error {
	return e.LastErr
}

// Do invokes op, retrying per the policy of the classified error. The first
// call carries no delay. Non-retryable errors return immediately, as does a
// retry whose error switches to a non-retryable class.
func Do[T any](ctx context.Context, label string, op func() (T, error)) (T, error) {
	result, err := op()
	if err == nil {
		return result, nil
	}

	class := Classify(err)
	policy, ok := PolicyFor(class)
	if !ok {
		return result, err
	}

	attempts := 1
	delay := policy.InitialDelay
	for retries := 0; retries < policy.MaxRetries; retries++ {
		logger.Warning("%s: attempt %d failed (%s), retrying in %v: %v", label, attempts, class, delay, err)

		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return result, sleepErr
		}
		delay = time.Duration(float64(delay) * policy.Multiplier)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}

		result, err = op()
		attempts++
		if err == nil {
			return result, nil
		}

		if c := Classify(err); c != class && c == ClassNonRetryable {
			return result, err
		}
	}

	return result, &ExhaustedError{TotalAttempts: attempts, Class: class, LastErr: err}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

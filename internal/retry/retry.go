// Package retry repeats failed provider calls with exponential backoff.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	apperrors "github.com/portfolio-dashboard/internal/errors"
	"github.com/portfolio-dashboard/internal/logging"
)

// Policy configures retry behavior
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Retryable decides whether a failed attempt is worth repeating. Nil retries every error
	// that errors.IsRetryable accepts.
	Retryable func(error) bool
}

// DefaultPolicy backs off 500ms, 1s, 2s over four attempts
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  4,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}
}

// Result describes how an operation finished
type Result struct {
	Attempts      int           `json:"attempts"`
	Success       bool          `json:"success"`
	TotalDuration time.Duration `json:"totalDuration"`
	LastError     error         `json:"-"`
}

// Func is one attempt of a retried operation. attempt starts at 1.
type Func func(ctx context.Context, attempt int) error

// sleep waits for d or until ctx is done. Replaced in tests.
var sleep = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Delay returns the wait before the attempt following attempt
func (p Policy) Delay(attempt int) time.Duration {
	delay := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	return time.Duration(delay)
}

func (p Policy) retryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return apperrors.IsRetryable(err)
}

// WithExponentialBackoff runs fn until it succeeds, returns a non-retryable error, runs out
// of attempts or ctx is cancelled
func WithExponentialBackoff(ctx context.Context, policy Policy, fn Func) *Result {
	logger := logging.FromContext(ctx)
	start := time.Now()
	result := &Result{}

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		result.Attempts = attempt

		err := fn(ctx, attempt)
		if err == nil {
			result.Success = true
			result.LastError = nil
			if attempt > 1 {
				logger.WithField("attempts", attempt).Info("Operation succeeded after retry")
			}
			break
		}
		result.LastError = err

		if attempt == policy.MaxAttempts || !policy.retryable(err) {
			break
		}

		delay := policy.Delay(attempt)
		logger.WithFields(map[string]interface{}{
			"attempt":     attempt,
			"maxAttempts": policy.MaxAttempts,
			"delay":       delay.String(),
		}).WithError(err).Warn("Operation failed, retrying")

		if err := sleep(ctx, delay); err != nil {
			result.LastError = err
			break
		}
	}

	result.TotalDuration = time.Since(start)
	return result
}

// Do runs fn under policy and returns its value, or the last error wrapped with the number of
// attempts made
func Do[T any](ctx context.Context, policy Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var value T
	result := WithExponentialBackoff(ctx, policy, func(ctx context.Context, _ int) error {
		v, err := fn(ctx)
		if err == nil {
			value = v
		}
		return err
	})
	if !result.Success {
		var zero T
		return zero, fmt.Errorf("operation failed after %d attempts: %w", result.Attempts, result.LastError)
	}
	return value, nil
}

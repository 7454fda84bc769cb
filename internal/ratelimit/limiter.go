package ratelimit

import (
	"context"
	"time"

	apperrors "github.com/portfolio-dashboard/internal/errors"
	"github.com/portfolio-dashboard/internal/logging"
)

// DefaultMaxWait bounds how long Acquire waits for budget before giving up
const DefaultMaxWait = 10 * time.Second

type priorityKey struct{}

// WithPriority marks the calls made under ctx with a budget priority
func WithPriority(ctx context.Context, p Priority) context.Context {
	return context.WithValue(ctx, priorityKey{}, p)
}

// PriorityFromContext returns the priority set by WithPriority, or PriorityHigh
func PriorityFromContext(ctx context.Context) Priority {
	if p, ok := ctx.Value(priorityKey{}).(Priority); ok {
		return p
	}
	return PriorityHigh
}

// Limiter prices calls with a CUCostRegistry and blocks until a CUBudgetTracker admits them
type Limiter struct {
	tracker  *CUBudgetTracker
	registry *CUCostRegistry
	maxWait  time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewLimiter creates a limiter. A nil registry uses the built-in costs and a non-positive
// maxWait uses DefaultMaxWait.
func NewLimiter(tracker *CUBudgetTracker, registry *CUCostRegistry, maxWait time.Duration) *Limiter {
	if registry == nil {
		registry = NewCUCostRegistry(nil)
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &Limiter{
		tracker:  tracker,
		registry: registry,
		maxWait:  maxWait,
		sleep:    sleepContext,
	}
}

// Acquire waits until calls invocations of method fit the budget of the priority carried by
// ctx. It fails with a provider rate limit error once maxWait has passed.
func (l *Limiter) Acquire(ctx context.Context, method string, calls int) error {
	if calls <= 0 {
		return nil
	}
	cu := l.registry.GetCost(method) * calls
	priority := PriorityFromContext(ctx)

	var waited time.Duration
	for {
		allowed, wait := l.tracker.TryConsume(ctx, cu, priority)
		if allowed {
			break
		}
		if waited+wait > l.maxWait {
			logging.FromContext(ctx).WithFields(map[string]interface{}{
				"method":   method,
				"cu":       cu,
				"priority": priority.String(),
				"waited":   waited.String(),
			}).Warn("CU budget exhausted")
			return apperrors.NewProviderRateLimitError("alchemy")
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
		waited += wait
	}

	if err := l.tracker.RecordMethodUsage(ctx, method, cu); err != nil {
		logging.FromContext(ctx).WithError(err).Debug("Failed to record method usage")
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

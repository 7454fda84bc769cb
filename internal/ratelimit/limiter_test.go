package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/portfolio-dashboard/internal/errors"
)

func TestCostRegistry(t *testing.T) {
	registry := NewCUCostRegistry(nil)
	assert.Equal(t, CostAlchemyGetTokenBalances, registry.GetCost(MethodAlchemyGetTokenBalances))
	assert.Equal(t, DefaultCUCost, registry.GetCost("eth_getLogs"))

	registry.SetCost(MethodEthGetBalance, 25)
	registry.SetCost(MethodEthCall, 0)
	assert.Equal(t, 25, registry.GetCost(MethodEthGetBalance))
	assert.Equal(t, CostEthCall, registry.GetCost(MethodEthCall), "non-positive costs are ignored")

	custom := NewCUCostRegistry(&CUCostRegistryConfig{
		DefaultCost: 50,
		Overrides:   map[string]int{MethodAlchemyGetTokenMetadata: 12, MethodEthCall: -1},
	})
	assert.Equal(t, 50, custom.GetCost("unknown_method"))
	assert.Equal(t, 12, custom.GetCost(MethodAlchemyGetTokenMetadata))
	assert.Equal(t, CostEthCall, custom.GetCost(MethodEthCall))
}

func TestPriorityFromContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, PriorityHigh, PriorityFromContext(ctx))
	assert.Equal(t, PriorityLow, PriorityFromContext(WithPriority(ctx, PriorityLow)))
}

func TestLimiterAcquire(t *testing.T) {
	tracker, _, _ := newTestTracker(t, 100, 60)
	limiter := NewLimiter(tracker, nil, time.Second)
	ctx := context.Background()

	// 2 metadata calls cost 20 CU
	require.NoError(t, limiter.Acquire(ctx, MethodAlchemyGetTokenMetadata, 2))
	require.NoError(t, limiter.Acquire(ctx, MethodAlchemyGetTokenMetadata, 0))

	stats, err := tracker.GetUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, stats.ReservedUsed)
	assert.Equal(t, 0, stats.SharedUsed)

	require.NoError(t, limiter.Acquire(WithPriority(ctx, PriorityLow), MethodAlchemyGetTokenBalances, 1))
	stats, err = tracker.GetUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, CostAlchemyGetTokenBalances, stats.SharedUsed)
}

func TestLimiterWaitsForNextWindow(t *testing.T) {
	tracker, clock, _ := newTestTracker(t, 100, 60)
	limiter := NewLimiter(tracker, nil, 5*time.Second)

	var slept []time.Duration
	limiter.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		clock.Advance(d)
		return nil
	}

	ctx := WithPriority(context.Background(), PriorityLow)
	require.NoError(t, limiter.Acquire(ctx, MethodAlchemyGetTokenBalances, 1))
	require.NoError(t, limiter.Acquire(ctx, MethodAlchemyGetTokenBalances, 1), "second call waits one window")

	require.Len(t, slept, 1)
	assert.Equal(t, 501*time.Millisecond, slept[0])
}

func TestLimiterGivesUp(t *testing.T) {
	tracker, _, _ := newTestTracker(t, 100, 60)
	limiter := NewLimiter(tracker, nil, 100*time.Millisecond)
	limiter.sleep = func(context.Context, time.Duration) error {
		t.Fatal("must not sleep past maxWait")
		return nil
	}

	// more than the whole reserved pool
	err := limiter.Acquire(context.Background(), MethodAlchemyGetTokenMetadata, 7)
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))
}

func TestLimiterContextCancelled(t *testing.T) {
	tracker, _, _ := newTestTracker(t, 100, 60)
	limiter := NewLimiter(tracker, nil, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := limiter.Acquire(ctx, MethodAlchemyGetTokenMetadata, 7)
	assert.ErrorIs(t, err, context.Canceled)
}

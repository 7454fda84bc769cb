package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default budget configuration values, sized for the Alchemy free tier.
const (
	DefaultTotalBudget    = 330             // Total CU/s
	DefaultReservedBudget = 200             // Reserved for interactive refreshes
	DefaultWindowSize     = time.Second     // Fixed window length
	DefaultKeyTTL         = 2 * time.Second // Window plus buffer
)

// Redis key prefixes for CU tracking.
const (
	KeyPrefixTotal    = "cu:total:"
	KeyPrefixReserved = "cu:reserved:"
	KeyPrefixShared   = "cu:shared:"
	KeyPrefixMethod   = "cu:method:"
)

// Priority selects the budget pool a call draws from.
type Priority int

const (
	// PriorityHigh is for refreshes requested through the API (reserved pool).
	PriorityHigh Priority = iota
	// PriorityLow is for scheduled snapshots (shared pool).
	PriorityLow
)

// String returns a string representation of the priority level.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// consumeScript checks both the total and the pool counter and increments them together
var consumeScript = redis.NewScript(`
	local totalKey = KEYS[1]
	local poolKey = KEYS[2]
	local cu = tonumber(ARGV[1])
	local totalBudget = tonumber(ARGV[2])
	local poolBudget = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])

	local totalUsed = tonumber(redis.call('GET', totalKey) or '0')
	local poolUsed = tonumber(redis.call('GET', poolKey) or '0')

	if totalUsed + cu > totalBudget then
		return {0, totalUsed, poolUsed}
	end
	if poolUsed + cu > poolBudget then
		return {0, totalUsed, poolUsed}
	end

	redis.call('INCRBY', totalKey, cu)
	redis.call('EXPIRE', totalKey, ttl)
	redis.call('INCRBY', poolKey, cu)
	redis.call('EXPIRE', poolKey, ttl)

	return {1, totalUsed + cu, poolUsed + cu}
`)

// CUBudgetTracker coordinates CU consumption across processes using Redis counters per
// fixed window, with a reserved pool for high priority calls and a shared pool for the rest.
type CUBudgetTracker struct {
	redis          redis.Cmdable
	totalBudget    int
	reservedBudget int
	sharedBudget   int
	windowSize     time.Duration
	keyTTL         time.Duration
	now            func() time.Time
}

// CUBudgetTrackerConfig holds configuration for the budget tracker.
type CUBudgetTrackerConfig struct {
	// Redis is required.
	Redis redis.Cmdable

	// TotalBudget is the CU allowed per window. Default: 330.
	TotalBudget int

	// ReservedBudget is the part of TotalBudget only high priority calls may use. Default: 200.
	ReservedBudget int

	// WindowSize is the window duration. Default: 1s.
	WindowSize time.Duration

	// KeyTTL is the TTL for Redis keys and should be at least WindowSize. Default: 2s.
	KeyTTL time.Duration
}

// CUUsageStats contains the consumption of the current window.
type CUUsageStats struct {
	TotalUsed      int
	ReservedUsed   int
	SharedUsed     int
	TotalBudget    int
	ReservedBudget int
	SharedBudget   int
	WindowStart    time.Time
}

// Validate checks if the configuration is valid.
func (c *CUBudgetTrackerConfig) Validate() error {
	if c.Redis == nil {
		return errors.New("redis client is required")
	}
	if c.TotalBudget < 0 {
		return errors.New("total budget cannot be negative")
	}
	if c.ReservedBudget < 0 {
		return errors.New("reserved budget cannot be negative")
	}

	totalBudget := c.TotalBudget
	if totalBudget == 0 {
		totalBudget = DefaultTotalBudget
	}
	reservedBudget := c.ReservedBudget
	if reservedBudget == 0 {
		reservedBudget = DefaultReservedBudget
	}
	if reservedBudget > totalBudget {
		return fmt.Errorf("reserved budget (%d) cannot exceed total budget (%d)", reservedBudget, totalBudget)
	}

	return nil
}

// NewCUBudgetTracker creates a new tracker with the given configuration.
func NewCUBudgetTracker(cfg *CUBudgetTrackerConfig) (*CUBudgetTracker, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	totalBudget := cfg.TotalBudget
	if totalBudget == 0 {
		totalBudget = DefaultTotalBudget
	}
	reservedBudget := cfg.ReservedBudget
	if reservedBudget == 0 {
		reservedBudget = DefaultReservedBudget
	}
	windowSize := cfg.WindowSize
	if windowSize == 0 {
		windowSize = DefaultWindowSize
	}
	keyTTL := cfg.KeyTTL
	if keyTTL == 0 {
		keyTTL = DefaultKeyTTL
	}
	if keyTTL < windowSize {
		keyTTL = windowSize
	}

	return &CUBudgetTracker{
		redis:          cfg.Redis,
		totalBudget:    totalBudget,
		reservedBudget: reservedBudget,
		sharedBudget:   totalBudget - reservedBudget,
		windowSize:     windowSize,
		keyTTL:         keyTTL,
		now:            time.Now,
	}, nil
}

// windowStart returns the start of the current window.
func (t *CUBudgetTracker) windowStart() time.Time {
	return t.now().Truncate(t.windowSize)
}

// getKeys returns the Redis keys for a window.
func (t *CUBudgetTracker) getKeys(window time.Time) (totalKey, reservedKey, sharedKey string) {
	ts := strconv.FormatInt(window.UnixMilli(), 10)
	return KeyPrefixTotal + ts, KeyPrefixReserved + ts, KeyPrefixShared + ts
}

// TryConsume attempts to take cu from the pool for priority. When the budget is exhausted
// it returns false with the time until the next window. Redis failures deny the request.
func (t *CUBudgetTracker) TryConsume(ctx context.Context, cu int, priority Priority) (bool, time.Duration) {
	if cu <= 0 {
		return true, 0
	}

	window := t.windowStart()
	totalKey, reservedKey, sharedKey := t.getKeys(window)

	poolKey, poolBudget := sharedKey, t.sharedBudget
	if priority == PriorityHigh {
		poolKey, poolBudget = reservedKey, t.reservedBudget
	}

	ttlSeconds := int(t.keyTTL.Seconds())
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}

	result, err := consumeScript.Run(ctx, t.redis, []string{totalKey, poolKey},
		cu, t.totalBudget, poolBudget, ttlSeconds).Int64Slice()
	if err != nil || len(result) == 0 || result[0] != 1 {
		return false, t.waitTime(window)
	}

	return true, 0
}

// waitTime returns the time until the window after window starts.
func (t *CUBudgetTracker) waitTime(window time.Time) time.Duration {
	wait := window.Add(t.windowSize).Sub(t.now())
	if wait < 0 {
		wait = 0
	}
	return wait + time.Millisecond
}

// GetUsage returns the consumption of the current window.
func (t *CUBudgetTracker) GetUsage(ctx context.Context) (*CUUsageStats, error) {
	window := t.windowStart()
	totalKey, reservedKey, sharedKey := t.getKeys(window)

	pipe := t.redis.Pipeline()
	totalCmd := pipe.Get(ctx, totalKey)
	reservedCmd := pipe.Get(ctx, reservedKey)
	sharedCmd := pipe.Get(ctx, sharedKey)

	// missing keys come back as redis.Nil and count as zero
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read CU usage: %w", err)
	}

	return &CUUsageStats{
		TotalUsed:      parseIntOrZero(totalCmd),
		ReservedUsed:   parseIntOrZero(reservedCmd),
		SharedUsed:     parseIntOrZero(sharedCmd),
		TotalBudget:    t.totalBudget,
		ReservedBudget: t.reservedBudget,
		SharedBudget:   t.sharedBudget,
		WindowStart:    window,
	}, nil
}

func parseIntOrZero(cmd *redis.StringCmd) int {
	val, err := cmd.Int()
	if err != nil {
		return 0
	}
	return val
}

// RecordMethodUsage adds cu to the per-method counter of the current window.
func (t *CUBudgetTracker) RecordMethodUsage(ctx context.Context, method string, cu int) error {
	if cu <= 0 || method == "" {
		return nil
	}

	key := fmt.Sprintf("%s%s:%d", KeyPrefixMethod, method, t.windowStart().UnixMilli())

	pipe := t.redis.Pipeline()
	pipe.IncrBy(ctx, key, int64(cu))
	pipe.Expire(ctx, key, t.keyTTL)
	_, err := pipe.Exec(ctx)

	return err
}

// AvailableBudget returns what is left of the pool for priority in the current window.
func (t *CUBudgetTracker) AvailableBudget(ctx context.Context, priority Priority) (int, error) {
	stats, err := t.GetUsage(ctx)
	if err != nil {
		return 0, err
	}

	poolLeft := t.sharedBudget - stats.SharedUsed
	if priority == PriorityHigh {
		poolLeft = t.reservedBudget - stats.ReservedUsed
	}
	totalLeft := t.totalBudget - stats.TotalUsed

	available := min(poolLeft, totalLeft)
	if available < 0 {
		available = 0
	}
	return available, nil
}

package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/portfolio-dashboard/internal/logging"
)

// DefaultCooldown is how long a failed endpoint is skipped
const DefaultCooldown = 60 * time.Second

// RPCPool manages clients for multiple RPC endpoints of one chain with failover.
// Strategy: stick to the current endpoint until it fails, then switch to the next one that
// is not cooling down. Clients are dialed lazily.
type RPCPool[C any] struct {
	name         string
	endpoints    []string
	clients      []C
	dialed       []bool
	currentIndex int
	mu           sync.Mutex
	cooldowns    map[int]time.Time // when each endpoint last failed
	cooldownTime time.Duration

	dial    func(ctx context.Context, url string) (C, error)
	probe   func(ctx context.Context, client C) error
	closeFn func(C)
	now     func() time.Time
}

// RPCPoolConfig holds configuration for creating an RPC pool
type RPCPoolConfig[C any] struct {
	// Name identifies the pool in logs
	Name string
	// Endpoints is a list of RPC URLs tried in order
	Endpoints []string
	// CooldownTime is how long to wait before retrying a failed endpoint.
	// Default: 60 seconds
	CooldownTime time.Duration
	// Dial connects to one endpoint
	Dial func(ctx context.Context, url string) (C, error)
	// Probe checks a connected endpoint answers. Optional.
	Probe func(ctx context.Context, client C) error
	// Close releases a client. Optional.
	Close func(C)
}

// NewRPCPool creates a pool over the non-empty endpoints in cfg
func NewRPCPool[C any](cfg RPCPoolConfig[C]) (*RPCPool[C], error) {
	var endpoints []string
	for _, ep := range cfg.Endpoints {
		if ep = strings.TrimSpace(ep); ep != "" {
			endpoints = append(endpoints, ep)
		}
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("%s: %w", cfg.Name, ErrNoEndpoints)
	}
	if cfg.Dial == nil {
		return nil, fmt.Errorf("%s: dial function is required", cfg.Name)
	}

	cooldownTime := cfg.CooldownTime
	if cooldownTime == 0 {
		cooldownTime = DefaultCooldown
	}

	return &RPCPool[C]{
		name:         cfg.Name,
		endpoints:    endpoints,
		clients:      make([]C, len(endpoints)),
		dialed:       make([]bool, len(endpoints)),
		cooldowns:    make(map[int]time.Time),
		cooldownTime: cooldownTime,
		dial:         cfg.Dial,
		probe:        cfg.Probe,
		closeFn:      cfg.Close,
		now:          time.Now,
	}, nil
}

// Client returns a working client, starting from the current endpoint. Endpoints that fail
// to dial or probe are put in cooldown. When every endpoint is cooling down they are all
// tried once more rather than failing outright.
func (p *RPCPool[C]) Client(ctx context.Context) (C, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var zero C
	var lastErr error
	for pass := 0; pass < 2; pass++ {
		attempted := false
		for i := 0; i < len(p.endpoints); i++ {
			idx := (p.currentIndex + i) % len(p.endpoints)
			if pass == 0 && p.inCooldown(idx) {
				continue
			}
			attempted = true

			client, err := p.connect(ctx, idx)
			if err == nil && p.probe != nil {
				err = p.probe(ctx, client)
			}
			if err != nil {
				if ctx.Err() != nil {
					return zero, ctx.Err()
				}
				lastErr = err
				p.cooldowns[idx] = p.now()
				logging.WithFields(map[string]interface{}{
					"pool":     p.name,
					"endpoint": idx,
				}).WithError(err).Warn("RPC endpoint failed, marking cooldown")
				continue
			}

			if idx != p.currentIndex {
				logging.WithFields(map[string]interface{}{
					"pool": p.name,
					"from": p.currentIndex,
					"to":   idx,
				}).Info("Switched RPC endpoint")
				p.currentIndex = idx
			}
			delete(p.cooldowns, idx)
			return client, nil
		}
		if attempted {
			break
		}
	}

	if lastErr == nil {
		return zero, fmt.Errorf("%s: %w", p.name, ErrAllEndpointsFailed)
	}
	return zero, fmt.Errorf("%s: %w: %v", p.name, ErrAllEndpointsFailed, lastErr)
}

// connect dials endpoint index if needed (must hold lock)
func (p *RPCPool[C]) connect(ctx context.Context, index int) (C, error) {
	if p.dialed[index] {
		return p.clients[index], nil
	}
	client, err := p.dial(ctx, p.endpoints[index])
	if err != nil {
		var zero C
		return zero, fmt.Errorf("failed to connect to endpoint %d: %w", index, err)
	}
	p.clients[index] = client
	p.dialed[index] = true
	return client, nil
}

// inCooldown reports whether endpoint index failed recently (must hold lock)
func (p *RPCPool[C]) inCooldown(index int) bool {
	failedAt, exists := p.cooldowns[index]
	if !exists {
		return false
	}
	if p.now().Sub(failedAt) < p.cooldownTime {
		return true
	}
	delete(p.cooldowns, index)
	return false
}

// OnRateLimited should be called when a call on the current client is rate limited.
// It marks the current endpoint and moves to the next one; the next Client call dials it.
func (p *RPCPool[C]) OnRateLimited() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cooldowns[p.currentIndex] = p.now()
	logging.WithFields(map[string]interface{}{
		"pool":     p.name,
		"endpoint": p.currentIndex,
	}).Warn("RPC endpoint rate limited, marking cooldown")
	p.currentIndex = (p.currentIndex + 1) % len(p.endpoints)
}

// TryResetToPrimary switches back to the primary endpoint (index 0) if its cooldown has
// expired. Call this periodically to prefer the primary.
func (p *RPCPool[C]) TryResetToPrimary() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.currentIndex == 0 {
		return true
	}
	if p.inCooldown(0) {
		return false
	}
	p.currentIndex = 0
	logging.WithField("pool", p.name).Info("Reset to primary RPC endpoint")
	return true
}

// EndpointCount returns the number of endpoints in the pool
func (p *RPCPool[C]) EndpointCount() int {
	return len(p.endpoints)
}

// Close closes all client connections
func (p *RPCPool[C]) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	var zero C
	for i := range p.clients {
		if p.dialed[i] && p.closeFn != nil {
			p.closeFn(p.clients[i])
		}
		p.clients[i] = zero
		p.dialed[i] = false
	}
}

// Status returns the current status of the pool
func (p *RPCPool[C]) Status() *RPCPoolStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := &RPCPoolStatus{
		Name:           p.name,
		TotalEndpoints: len(p.endpoints),
		CurrentIndex:   p.currentIndex,
		EndpointStatus: make([]EndpointStatus, len(p.endpoints)),
	}

	for i := range p.endpoints {
		es := EndpointStatus{
			Index:     i,
			Connected: p.dialed[i],
			IsCurrent: i == p.currentIndex,
		}
		if failedAt, exists := p.cooldowns[i]; exists {
			if remaining := p.cooldownTime - p.now().Sub(failedAt); remaining > 0 {
				es.InCooldown = true
				es.CooldownRemaining = remaining
			}
		}
		status.EndpointStatus[i] = es
	}

	return status
}

// RPCPoolStatus represents the current status of the RPC pool
type RPCPoolStatus struct {
	Name           string           `json:"name"`
	TotalEndpoints int              `json:"totalEndpoints"`
	CurrentIndex   int              `json:"currentIndex"`
	EndpointStatus []EndpointStatus `json:"endpoints"`
}

// EndpointStatus represents the status of a single endpoint
type EndpointStatus struct {
	Index             int           `json:"index"`
	Connected         bool          `json:"connected"`
	IsCurrent         bool          `json:"isCurrent"`
	InCooldown        bool          `json:"inCooldown"`
	CooldownRemaining time.Duration `json:"cooldownRemaining"`
}

// IsRateLimitError checks if an error indicates rate limiting (429)
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrProviderRateLimit) {
		return true
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "exceeded") ||
		strings.Contains(errStr, "throttl")
}

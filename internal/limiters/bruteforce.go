package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// BruteforceConfig holds the escalating counter policy.
type BruteforceConfig struct {
	Threshold int
	Window    time.Duration
	Penalty   time.Duration
}

// DefaultBruteforceConfig returns 5 attempts per 10 s, then a 60 s lockout.
func DefaultBruteforceConfig() BruteforceConfig {
	return BruteforceConfig{
		Threshold: 5,
		Window:    10 * time.Second,
		Penalty:   60 * time.Second,
	}
}

var (
	// ErrBruteforceUnavailable indicates the counter backend is unreachable.
	ErrBruteforceUnavailable = errors.New("bruteforce backend unavailable")
	// ErrMissingClient rejects an empty client identifier.
	ErrMissingClient = errors.New("bruteforce client identifier missing")
)

// Counter is the store surface the guard needs. *store.Client satisfies it.
type Counter interface {
	Increment(ctx context.Context, key string) (int64, error)
	SetExpiry(ctx context.Context, key string, ttl time.Duration) error
}

// BruteforceGuard is a fixed-window escalating attempt counter keyed by
// client identity. The window only resets when the key expires, so a client
// over the threshold stays denied for the whole penalty period.
type BruteforceGuard struct {
	counter Counter
	config  BruteforceConfig
}

// NewBruteforceGuard creates a guard. Zero config fields fall back to defaults.
func NewBruteforceGuard(counter Counter, cfg BruteforceConfig) *BruteforceGuard {
	def := DefaultBruteforceConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.Penalty <= 0 {
		cfg.Penalty = def.Penalty
	}
	return &BruteforceGuard{counter: counter, config: cfg}
}

func (g *BruteforceGuard) key(clientID string) string {
	return "bruteforce:" + clientID
}

// RecordAttempt counts one attempt for clientID and reports whether it may
// proceed. Every attempt counts, successful or not.
func (g *BruteforceGuard) RecordAttempt(ctx context.Context, clientID string) (bool, error) {
	if clientID == "" {
		return false, ErrMissingClient
	}

	key := g.key(clientID)
	count, err := g.counter.Increment(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBruteforceUnavailable, err)
	}

	allowed := count < int64(g.config.Threshold)
	ttl := g.config.Window
	if !allowed {
		ttl = g.config.Penalty
	}
	if err := g.counter.SetExpiry(ctx, key, ttl); err != nil {
		return false, fmt.Errorf("%w: %v", ErrBruteforceUnavailable, err)
	}
	return allowed, nil
}

// Config returns the effective policy.
func (g *BruteforceGuard) Config() BruteforceConfig {
	return g.config
}

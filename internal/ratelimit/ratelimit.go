// Package ratelimit throttles requests per client key, either in process
// or shared across instances through Valkey.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/donhauser001/dongui/internal/config"
)

// Result describes the outcome of one Allow call.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // zero when allowed
}

// Limiter decides whether the caller identified by key may proceed.
// A non-nil error means the backend failed; the Result is then permissive.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
	Close() error
}

// New builds the limiter selected by cfg.Backend.
func New(cfg config.RateLimitConfig) (Limiter, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryLimiter(cfg.Requests, cfg.Window), nil
	case "valkey":
		return NewValkeyLimiter(cfg.ValkeyAddr, cfg.Requests, cfg.Window)
	default:
		return nil, fmt.Errorf("unsupported rate limit backend: %s", cfg.Backend)
	}
}

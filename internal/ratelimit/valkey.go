package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/valkey-io/valkey-go"
)

const keyPrefix = "dongui:ratelimit:"

// ValkeyLimiter is a fixed-window counter shared by every instance that
// talks to the same Valkey server.
type ValkeyLimiter struct {
	client   valkey.Client
	requests int
	window   time.Duration
}

// NewValkeyLimiter connects to addr and verifies the connection.
func NewValkeyLimiter(addr string, requests int, window time.Duration) (*ValkeyLimiter, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:  []string{addr},
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Valkey: %w", err)
	}

	slog.Info("Initialized Valkey rate limiter", "address", addr, "requests", requests, "window", window)
	return NewValkeyLimiterWithClient(client, requests, window), nil
}

// NewValkeyLimiterWithClient wraps an existing client.
func NewValkeyLimiterWithClient(client valkey.Client, requests int, window time.Duration) *ValkeyLimiter {
	return &ValkeyLimiter{client: client, requests: requests, window: window}
}

// Allow increments the key's counter for the current window. On backend
// errors the request is allowed and the error returned for logging.
func (l *ValkeyLimiter) Allow(ctx context.Context, key string) (Result, error) {
	k := keyPrefix + key
	open := Result{Allowed: true, Limit: l.requests}

	resps := l.client.DoMulti(ctx,
		l.client.B().Incr().Key(k).Build(),
		l.client.B().Pttl().Key(k).Build(),
	)
	count, err := resps[0].AsInt64()
	if err != nil {
		return open, fmt.Errorf("valkey incr: %w", err)
	}
	ttl, err := resps[1].AsInt64()
	if err != nil {
		return open, fmt.Errorf("valkey pttl: %w", err)
	}

	// A fresh key, or one left without expiry, starts a new window.
	if count == 1 || ttl < 0 {
		ttl = l.window.Milliseconds()
		if err := l.client.Do(ctx, l.client.B().Pexpire().Key(k).Milliseconds(ttl).Build()).Error(); err != nil {
			return open, fmt.Errorf("valkey pexpire: %w", err)
		}
	}

	res := Result{Limit: l.requests}
	if count > int64(l.requests) {
		res.RetryAfter = time.Duration(ttl) * time.Millisecond
		return res, nil
	}
	res.Allowed = true
	res.Remaining = l.requests - int(count)
	return res, nil
}

func (l *ValkeyLimiter) Close() error {
	l.client.Close()
	return nil
}

// Package ratelimit provides per-client request throttling.
//
// A single instance uses the in-memory token bucket (MemoryLimiter). When
// REDIS_URL is set, RedisLimiter shares the same bucket semantics across
// every instance behind a load balancer.
package ratelimit

import "context"

// Limiter decides whether a request identified by key should be allowed.
// Implementations must be safe for concurrent use.
type Limiter interface {
	// Allow reports whether the request should proceed. The key is opaque;
	// callers construct it (e.g. "client:<id>" or "ip:<addr>"). An error
	// signals a limiter malfunction and callers fail open.
	Allow(ctx context.Context, key string) (bool, error)

	// Close releases resources (cleanup goroutines, connections).
	Close() error
}

// NoopLimiter permits every request. Used when rate limiting is disabled.
type NoopLimiter struct{}

// Allow always returns true.
func (NoopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }

// Close is a no-op.
func (NoopLimiter) Close() error { return nil }

// Package cache is the fail-open face of the cache store. Every failure of the
// underlying technology is logged, counted and reported to callers as a miss, so
// feed and scoring paths always fall back to the source of truth.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"FeedRanker/internal/metrics"
	"FeedRanker/internal/ports"
)

const defaultTimeout = 2 * time.Second

// Layer wraps a ports.CacheStore. A nil store disables caching entirely.
type Layer struct {
	store   ports.CacheStore
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewLayer wires the store with a per-operation timeout.
func NewLayer(store ports.CacheStore, timeout time.Duration, logger *slog.Logger, m *metrics.Metrics) *Layer {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Layer{store: store, timeout: timeout, logger: logger, metrics: m}
}

func (l *Layer) enabled() bool {
	return l != nil && l.store != nil
}

func (l *Layer) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, l.timeout)
}

func (l *Layer) fail(op, key string, err error) {
	l.metrics.RecordCacheError(namespace(key), op)
	if l.logger != nil {
		l.logger.Warn("cache operation failed", "op", op, "key", key, "error", err)
	}
}

// GetJSON decodes the cached value into dst and reports whether it was a hit.
func (l *Layer) GetJSON(ctx context.Context, key string, dst any) bool {
	if !l.enabled() {
		return false
	}
	opCtx, cancel := l.opContext(ctx)
	defer cancel()

	raw, err := l.store.Get(opCtx, key)
	if errors.Is(err, ports.ErrCacheMiss) {
		l.metrics.RecordCache(namespace(key), false)
		return false
	}
	if err != nil {
		l.fail("get", key, err)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		l.fail("decode", key, err)
		return false
	}
	l.metrics.RecordCache(namespace(key), true)
	return true
}

// SetJSON encodes and stores v; failures are logged only.
func (l *Layer) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	if !l.enabled() {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		l.fail("encode", key, err)
		return
	}
	opCtx, cancel := l.opContext(ctx)
	defer cancel()

	if err := l.store.Set(opCtx, key, raw, ttl); err != nil {
		l.fail("set", key, err)
	}
}

// Invalidate deletes the given keys.
func (l *Layer) Invalidate(ctx context.Context, keys ...string) {
	if !l.enabled() || len(keys) == 0 {
		return
	}
	opCtx, cancel := l.opContext(ctx)
	defer cancel()

	if err := l.store.Delete(opCtx, keys...); err != nil {
		l.fail("delete", keys[0], err)
	}
}

// InvalidatePattern deletes every key matching the glob and returns how many went away.
func (l *Layer) InvalidatePattern(ctx context.Context, pattern string) int {
	if !l.enabled() {
		return 0
	}
	opCtx, cancel := l.opContext(ctx)
	defer cancel()

	n, err := l.store.DeletePattern(opCtx, pattern)
	if err != nil {
		l.fail("delete_pattern", pattern, err)
	}
	return n
}

// Increment bumps a counter; ok is false when the store could not answer.
func (l *Layer) Increment(ctx context.Context, key string) (int64, bool) {
	if !l.enabled() {
		return 0, false
	}
	opCtx, cancel := l.opContext(ctx)
	defer cancel()

	n, err := l.store.Increment(opCtx, key)
	if err != nil {
		l.fail("increment", key, err)
		return 0, false
	}
	return n, true
}

// Expire sets a TTL on key.
func (l *Layer) Expire(ctx context.Context, key string, ttl time.Duration) bool {
	if !l.enabled() {
		return false
	}
	opCtx, cancel := l.opContext(ctx)
	defer cancel()

	if err := l.store.Expire(opCtx, key, ttl); err != nil {
		l.fail("expire", key, err)
		return false
	}
	return true
}

// TTL returns remaining seconds or -1.
func (l *Layer) TTL(ctx context.Context, key string) int64 {
	if !l.enabled() {
		return -1
	}
	opCtx, cancel := l.opContext(ctx)
	defer cancel()

	ttl, err := l.store.TTL(opCtx, key)
	if err != nil {
		l.fail("ttl", key, err)
		return -1
	}
	return ttl
}

// TryLock takes a job key built on increment+expire. When the store is unreachable
// the lock is reported as acquired. A held key without expiry gets one.
func (l *Layer) TryLock(ctx context.Context, key string, ttl time.Duration) bool {
	n, ok := l.Increment(ctx, key)
	if !ok {
		return true
	}
	if n == 1 {
		l.Expire(ctx, key, ttl)
		return true
	}
	if l.TTL(ctx, key) < 0 {
		l.Expire(ctx, key, ttl)
	}
	return false
}

// Unlock releases a job key.
func (l *Layer) Unlock(ctx context.Context, key string) {
	l.Invalidate(ctx, key)
}

// Copyright (c) 2026 Maktaba. All rights reserved.

/*
Package cache provides the read-through caching layer backed by Redis.

# Architecture

Services never write to the cache directly. They call [Remember] (or
[RememberForever]) with a compute function; the cache either serves the
stored JSON value or runs the compute, stores the result, and returns it.

Key construction is canonical: the same logical query always produces the
same key regardless of parameter order, so equivalent requests share one
cache entry.

# Failure Mode

Redis being down never fails a read. Every cache error degrades to running
the compute function directly, trading latency for availability.
*/
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/maktaba/maktaba/internal/platform/ctxutil"
)

// Cache wraps a Redis client with read-through semantics and stampede
// protection.
type Cache struct {
	client *redis.Client
	group  singleflight.Group
}

// New creates a Cache backed by the provided Redis client.
func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// # Key Construction

// ListKey builds a canonical key for a parameterized listing.
//
// Parameters are sorted by name before hashing, so {page:2, q:"x"} and
// {q:"x", page:2} resolve to the same key. The hash keeps keys short and
// opaque even for long search strings.
func ListKey(prefix string, params map[string]string) string {
	if len(params) == 0 {
		return prefix + "all"
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(params[name])
		sb.WriteByte('&')
	}

	return fmt.Sprintf("%s%016x", prefix, xxhash.Sum64String(sb.String()))
}

// DetailKey builds the key for a single entity.
func DetailKey(prefix string, id int64) string {
	return fmt.Sprintf("%s%d", prefix, id)
}

// # Read-Through Access

// Remember returns the cached value for key, computing and storing it on a
// miss. A ttl of zero means the entry never expires and must be removed by
// explicit invalidation.
//
// Concurrent misses on the same key are collapsed: only one caller runs the
// compute function, the rest wait for its result.
func Remember[T any](c *Cache, ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	var zero T

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var value T
		if unmarshalErr := json.Unmarshal(raw, &value); unmarshalErr == nil {
			return value, nil
		}
		// Corrupt entry: drop it and fall through to compute.
		_ = c.client.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "cache_read_failed",
			slog.String("key", key), slog.Any("error", err))
		return compute(ctx)
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		value, computeErr := compute(ctx)
		if computeErr != nil {
			return zero, computeErr
		}

		encoded, marshalErr := json.Marshal(value)
		if marshalErr != nil {
			ctxutil.GetLogger(ctx).WarnContext(ctx, "cache_encode_failed",
				slog.String("key", key), slog.Any("error", marshalErr))
			return value, nil
		}

		if setErr := c.client.Set(ctx, key, encoded, ttl).Err(); setErr != nil {
			ctxutil.GetLogger(ctx).WarnContext(ctx, "cache_write_failed",
				slog.String("key", key), slog.Any("error", setErr))
		}
		return value, nil
	})
	if err != nil {
		return zero, err
	}

	return result.(T), nil
}

// RememberForever is [Remember] without an expiry. Used for entries whose
// staleness is controlled purely by invalidation, like book details and the
// home aggregate.
func RememberForever[T any](c *Cache, ctx context.Context, key string, compute func(context.Context) (T, error)) (T, error) {
	return Remember(c, ctx, key, 0, compute)
}

// # Invalidation

// Forget removes the given keys. Missing keys are not an error.
func (c *Cache) Forget(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "cache_forget_failed",
			slog.Any("keys", keys), slog.Any("error", err))
		return err
	}
	return nil
}

// ForgetPrefix removes every key under the given prefix using incremental
// SCAN, never KEYS, so large keyspaces don't block Redis.
func (c *Cache) ForgetPrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, prefix+"*", 200).Result()
		if err != nil {
			ctxutil.GetLogger(ctx).WarnContext(ctx, "cache_scan_failed",
				slog.String("prefix", prefix), slog.Any("error", err))
			return err
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// FlushAll clears the entire cache database. This is the blunt tier used
// after role or permission changes, where the set of stale entries cannot
// be enumerated cheaply.
func (c *Cache) FlushAll(ctx context.Context) error {
	if err := c.client.FlushDB(ctx).Err(); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "cache_flush_failed", slog.Any("error", err))
		return err
	}
	return nil
}

// # View Markers

// MarkOnce sets key with ttl if it does not already exist, reporting whether
// this call created it. Used for the per-session view dedup marker.
func (c *Cache) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	created, err := c.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "cache_mark_failed",
			slog.String("key", key), slog.Any("error", err))
		return false, err
	}
	return created, nil
}

// Copyright (c) 2026 Maktaba. All rights reserved.

package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maktaba/maktaba/internal/platform/cache"
)

func newTestCache(t *testing.T) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return cache.New(client), srv
}

/*
TestListKey_CanonicalOrdering verifies that parameter order never changes
the resulting key, while differing values do.
*/
func TestListKey_CanonicalOrdering(t *testing.T) {
	a := cache.ListKey("books:list:", map[string]string{"page": "2", "q": "rumi"})
	b := cache.ListKey("books:list:", map[string]string{"q": "rumi", "page": "2"})
	c := cache.ListKey("books:list:", map[string]string{"q": "rumi", "page": "3"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "books:list:")
}

func TestListKey_NoParams(t *testing.T) {
	assert.Equal(t, "authors:list:all", cache.ListKey("authors:list:", nil))
}

/*
TestRemember_ComputesOnceThenServes checks read-through behavior: the first
call runs the compute function and stores the result, subsequent calls for
the same key serve the stored value.
*/
func TestRemember_ComputesOnceThenServes(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	calls := 0
	compute := func(context.Context) (string, error) {
		calls++
		return "value", nil
	}

	first, err := cache.Remember(c, ctx, "k1", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, "value", first)

	second, err := cache.Remember(c, ctx, "k1", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, "value", second)

	assert.Equal(t, 1, calls)
}

/*
TestRemember_ComputeErrorNotCached verifies that a failed compute leaves the
cache empty so the next call retries.
*/
func TestRemember_ComputeErrorNotCached(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	_, err := cache.Remember(c, ctx, "k2", time.Minute, func(context.Context) (int, error) {
		return 0, errors.New("db unavailable")
	})
	require.Error(t, err)
	assert.False(t, srv.Exists("k2"))

	value, err := cache.Remember(c, ctx, "k2", time.Minute, func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, value)
}

/*
TestRemember_DegradesWhenRedisDown confirms that a broken Redis connection
falls back to running the compute function instead of failing the read.
*/
func TestRemember_DegradesWhenRedisDown(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()
	srv.Close()

	value, err := cache.Remember(c, ctx, "k3", time.Minute, func(context.Context) (string, error) {
		return "computed", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "computed", value)
}

func TestRememberForever_NoExpiry(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	_, err := cache.RememberForever(c, ctx, "home:all", func(context.Context) (string, error) {
		return "aggregate", nil
	})
	require.NoError(t, err)

	require.True(t, srv.Exists("home:all"))
	assert.Equal(t, time.Duration(0), srv.TTL("home:all"))
}

func TestForget_RemovesKeys(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, srv.Set("books:detail:7", `"x"`))
	require.NoError(t, c.Forget(ctx, "books:detail:7", "missing-key"))
	assert.False(t, srv.Exists("books:detail:7"))
}

/*
TestForgetPrefix_ScopedRemoval verifies that only keys under the prefix are
removed while unrelated entries survive.
*/
func TestForgetPrefix_ScopedRemoval(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, srv.Set("books:list:aaa", "1"))
	require.NoError(t, srv.Set("books:list:bbb", "2"))
	require.NoError(t, srv.Set("authors:list:ccc", "3"))

	require.NoError(t, c.ForgetPrefix(ctx, "books:list:"))

	assert.False(t, srv.Exists("books:list:aaa"))
	assert.False(t, srv.Exists("books:list:bbb"))
	assert.True(t, srv.Exists("authors:list:ccc"))
}

func TestFlushAll_ClearsEverything(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, srv.Set("roles:list:all", "1"))
	require.NoError(t, srv.Set("users:list:abc", "2"))

	require.NoError(t, c.FlushAll(ctx))

	assert.False(t, srv.Exists("roles:list:all"))
	assert.False(t, srv.Exists("users:list:abc"))
}

/*
TestMarkOnce_Deduplicates checks the view marker semantics: the first call
creates the marker, later calls within the TTL report it already exists.
*/
func TestMarkOnce_Deduplicates(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	created, err := c.MarkOnce(ctx, "views:seen:9:user:4", 12*time.Hour)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = c.MarkOnce(ctx, "views:seen:9:user:4", 12*time.Hour)
	require.NoError(t, err)
	assert.False(t, created)
}

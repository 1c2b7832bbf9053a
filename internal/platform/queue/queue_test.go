// Copyright (c) 2026 Maktaba. All rights reserved.

package queue_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maktaba/maktaba/internal/platform/constants"
	"github.com/maktaba/maktaba/internal/platform/queue"
)

func newTestQueue(t *testing.T) (*queue.Queue, *redis.Client) {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return queue.New(client, slog.Default()), client
}

/*
TestEnqueue_AppendsToStream verifies that an immediate job lands on the
stream with its kind and payload intact.
*/
func TestEnqueue_AppendsToStream(t *testing.T) {
	q, client := newTestQueue(t)
	ctx := context.Background()

	jobID, err := q.Enqueue(ctx, "notify_user", map[string]int64{"user_id": 7})
	require.NoError(t, err)
	assert.NotEmpty(t, jobID)

	msgs, err := client.XRange(ctx, constants.QueueStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	assert.Equal(t, jobID, msgs[0].Values["id"])
	assert.Equal(t, "notify_user", msgs[0].Values["kind"])

	var payload map[string]int64
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["payload"].(string)), &payload))
	assert.Equal(t, int64(7), payload["user_id"])
}

/*
TestEnqueueIn_ParksUntilDue verifies delayed jobs stay off the stream until
promotion, then move over exactly once.
*/
func TestEnqueueIn_ParksUntilDue(t *testing.T) {
	q, client := newTestQueue(t)
	ctx := context.Background()

	_, err := q.EnqueueIn(ctx, 5*time.Second, "popularity_check", map[string]int64{"book_id": 3})
	require.NoError(t, err)

	msgs, err := client.XRange(ctx, constants.QueueStream, "-", "+").Result()
	require.NoError(t, err)
	assert.Empty(t, msgs, "delayed job must not reach the stream early")

	parked, err := client.ZCard(ctx, constants.QueueDelayed).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), parked)

	// Not due yet.
	require.NoError(t, q.PromoteDue(ctx, time.Now()))
	msgs, _ = client.XRange(ctx, constants.QueueStream, "-", "+").Result()
	assert.Empty(t, msgs)

	// Past the delay.
	require.NoError(t, q.PromoteDue(ctx, time.Now().Add(6*time.Second)))
	msgs, err = client.XRange(ctx, constants.QueueStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "popularity_check", msgs[0].Values["kind"])

	parked, _ = client.ZCard(ctx, constants.QueueDelayed).Result()
	assert.Equal(t, int64(0), parked)
}

func TestEnqueueIn_ZeroDelayIsImmediate(t *testing.T) {
	q, client := newTestQueue(t)
	ctx := context.Background()

	_, err := q.EnqueueIn(ctx, 0, "file_ingest", map[string]int64{"book_id": 1})
	require.NoError(t, err)

	msgs, err := client.XRange(ctx, constants.QueueStream, "-", "+").Result()
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

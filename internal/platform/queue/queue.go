// Copyright (c) 2026 Maktaba. All rights reserved.

/*
Package queue implements the background job pipeline on Redis Streams.

# Architecture

Jobs are small envelopes {id, kind, payload} appended to a single stream and
consumed by a worker pool through a consumer group. Each worker dispatches by
kind to a registered [Handler]. Failed jobs are re-delivered up to the retry
limit, then dropped with an error log.

Delayed jobs park in a sorted set scored by their due time. A promoter
goroutine moves due entries onto the stream, so delay never blocks a worker.

# Delivery Semantics

At-least-once. Handlers must tolerate replays: a worker crash after handling
but before the acknowledgement re-delivers the job to another consumer via
XAUTOCLAIM.
*/
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/maktaba/maktaba/internal/platform/constants"
)

// Job is the envelope carried through the stream. Payload holds the
// kind-specific arguments as JSON.
type Job struct {
	ID       string          `json:"id"`
	Kind     string          `json:"kind"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Handler processes one job of a given kind. Returning an error triggers a
// retry until the attempt limit is reached.
type Handler func(ctx context.Context, job Job) error

// Queue is a Redis Streams backed job pipeline with a delayed lane.
type Queue struct {
	client   *redis.Client
	logger   *slog.Logger
	stream   string
	group    string
	delayed  string
	maxRetry int

	mu       sync.RWMutex
	handlers map[string]Handler

	groupOnce sync.Once
}

// New creates a Queue on the shared Redis client.
func New(client *redis.Client, logger *slog.Logger) *Queue {
	return &Queue{
		client:   client,
		logger:   logger,
		stream:   constants.QueueStream,
		group:    constants.QueueGroup,
		delayed:  constants.QueueDelayed,
		maxRetry: constants.QueueMaxRetry,
		handlers: make(map[string]Handler),
	}
}

// Register binds a handler to a job kind. Must be called before [Start].
func (q *Queue) Register(kind string, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[kind] = handler
}

// # Producing

/*
Enqueue appends a job for immediate processing.

Parameters:
  - ctx: context.Context
  - kind: registered job kind
  - payload: kind-specific arguments, marshalled to JSON

Returns:
  - string: the generated job ID
  - error: marshalling or Redis failures
*/
func (q *Queue) Enqueue(ctx context.Context, kind string, payload any) (string, error) {
	job, err := q.newJob(kind, payload)
	if err != nil {
		return "", err
	}

	if err := q.append(ctx, q.client, job); err != nil {
		return "", fmt.Errorf("queue_enqueue_failed: %w", err)
	}
	return job.ID, nil
}

// EnqueueIn parks a job in the delayed lane; the promoter moves it onto the
// stream once the delay elapses. A non-positive delay enqueues immediately.
func (q *Queue) EnqueueIn(ctx context.Context, delay time.Duration, kind string, payload any) (string, error) {
	if delay <= 0 {
		return q.Enqueue(ctx, kind, payload)
	}

	job, err := q.newJob(kind, payload)
	if err != nil {
		return "", err
	}

	encoded, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("queue_encode_failed: %w", err)
	}

	due := float64(time.Now().Add(delay).UnixMilli())
	if err := q.client.ZAdd(ctx, q.delayed, redis.Z{Score: due, Member: encoded}).Err(); err != nil {
		return "", fmt.Errorf("queue_delay_failed: %w", err)
	}
	return job.ID, nil
}

func (q *Queue) newJob(kind string, payload any) (Job, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return Job{}, fmt.Errorf("queue_payload_encode_failed: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Job{}, fmt.Errorf("queue_id_failed: %w", err)
	}

	return Job{ID: id.String(), Kind: kind, Payload: encoded}, nil
}

func (q *Queue) append(ctx context.Context, cmd redis.Cmdable, job Job) error {
	return cmd.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: 10000,
		Approx: true,
		Values: map[string]any{
			"id":       job.ID,
			"kind":     job.Kind,
			"payload":  string(job.Payload),
			"attempts": strconv.Itoa(job.Attempts),
		},
	}).Err()
}

// # Consuming

// Start launches the worker pool and the delayed-lane promoter. Workers run
// until ctx is cancelled; callers wait on the returned WaitGroup during
// shutdown.
func (q *Queue) Start(ctx context.Context, concurrency int) *sync.WaitGroup {
	if concurrency <= 0 {
		concurrency = 1
	}

	q.ensureGroup(ctx)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		q.promoteLoop(ctx)
	}()

	for i := 0; i < concurrency; i++ {
		consumer := fmt.Sprintf("%s-%d", constants.AppName, i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.consumeLoop(ctx, consumer)
		}()
	}

	return &wg
}

func (q *Queue) ensureGroup(ctx context.Context) {
	q.groupOnce.Do(func() {
		err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			q.logger.ErrorContext(ctx, "queue_group_create_failed", slog.Any("error", err))
		}
	})
}

// promoteLoop moves due delayed jobs onto the stream once per tick.
func (q *Queue) promoteLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := q.PromoteDue(ctx, time.Now()); err != nil {
				q.logger.WarnContext(ctx, "queue_promote_failed", slog.Any("error", err))
			}
		}
	}
}

// PromoteDue moves every delayed job due at or before now onto the stream.
// Exported so tests can drive promotion without the ticker.
func (q *Queue) PromoteDue(ctx context.Context, now time.Time) error {
	cutoff := strconv.FormatInt(now.UnixMilli(), 10)

	members, err := q.client.ZRangeByScore(ctx, q.delayed, &redis.ZRangeBy{
		Min: "-inf", Max: cutoff, Count: 100,
	}).Result()
	if err != nil {
		return err
	}

	for _, member := range members {
		var job Job
		if err := json.Unmarshal([]byte(member), &job); err != nil {
			_ = q.client.ZRem(ctx, q.delayed, member).Err()
			continue
		}

		// Remove first so a crash re-parks nothing twice; the stream append
		// is retried on the next tick if it fails.
		removed, err := q.client.ZRem(ctx, q.delayed, member).Result()
		if err != nil || removed == 0 {
			continue
		}

		if err := q.append(ctx, q.client, job); err != nil {
			return err
		}
	}
	return nil
}

func (q *Queue) consumeLoop(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if msgs, err := q.claimStale(ctx, consumer); err == nil {
			for _, msg := range msgs {
				q.handleMessage(ctx, msg)
			}
		}

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: consumer,
			Streams:  []string{q.stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if err != redis.Nil && ctx.Err() == nil {
				q.logger.WarnContext(ctx, "queue_read_failed", slog.Any("error", err))
			}
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				q.handleMessage(ctx, msg)
			}
		}
	}
}

// claimStale adopts messages another consumer left pending, covering worker
// crashes between delivery and acknowledgement.
func (q *Queue) claimStale(ctx context.Context, consumer string) ([]redis.XMessage, error) {
	msgs, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: consumer,
		MinIdle:  30 * time.Second,
		Start:    "0-0",
		Count:    10,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	return msgs, err
}

func (q *Queue) handleMessage(ctx context.Context, msg redis.XMessage) {
	job, ok := decodeMessage(msg)
	if !ok {
		q.ackAndDel(ctx, msg.ID)
		return
	}

	q.mu.RLock()
	handler, found := q.handlers[job.Kind]
	q.mu.RUnlock()

	if !found {
		q.logger.ErrorContext(ctx, "queue_unknown_kind",
			slog.String("kind", job.Kind), slog.String("job_id", job.ID))
		q.ackAndDel(ctx, msg.ID)
		return
	}

	job.Attempts++

	if err := handler(ctx, job); err != nil {
		if job.Attempts >= q.maxRetry {
			q.logger.ErrorContext(ctx, "job_failed_permanently",
				slog.String("kind", job.Kind),
				slog.String("job_id", job.ID),
				slog.Int("attempts", job.Attempts),
				slog.Any("error", err))
			q.ackAndDel(ctx, msg.ID)
			return
		}

		q.logger.WarnContext(ctx, "job_failed_retrying",
			slog.String("kind", job.Kind),
			slog.String("job_id", job.ID),
			slog.Int("attempts", job.Attempts),
			slog.Any("error", err))
		q.requeueAndAck(ctx, msg.ID, job)
		return
	}

	q.ackAndDel(ctx, msg.ID)
}

func (q *Queue) ackAndDel(ctx context.Context, msgID string) {
	_ = q.client.XAck(ctx, q.stream, q.group, msgID).Err()
	_ = q.client.XDel(ctx, q.stream, msgID).Err()
}

func (q *Queue) requeueAndAck(ctx context.Context, msgID string, job Job) {
	pipe := q.client.TxPipeline()
	_ = q.append(ctx, pipe, job)
	pipe.XAck(ctx, q.stream, q.group, msgID)
	pipe.XDel(ctx, q.stream, msgID)
	if _, err := pipe.Exec(ctx); err != nil {
		q.logger.WarnContext(ctx, "queue_requeue_failed",
			slog.String("job_id", job.ID), slog.Any("error", err))
	}
}

func decodeMessage(msg redis.XMessage) (Job, bool) {
	id, _ := msg.Values["id"].(string)
	kind, _ := msg.Values["kind"].(string)
	payload, _ := msg.Values["payload"].(string)
	if id == "" || kind == "" {
		return Job{}, false
	}

	attempts := 0
	if raw, ok := msg.Values["attempts"].(string); ok {
		if n, err := strconv.Atoi(raw); err == nil {
			attempts = n
		}
	}

	return Job{ID: id, Kind: kind, Payload: json.RawMessage(payload), Attempts: attempts}, true
}

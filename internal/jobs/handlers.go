// Copyright (c) 2026 Maktaba. All rights reserved.

package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maktaba/maktaba/internal/platform/cache"
	"github.com/maktaba/maktaba/internal/platform/constants"
	"github.com/maktaba/maktaba/internal/platform/objstore"
	"github.com/maktaba/maktaba/internal/platform/queue"
)

// Enqueuer lets handlers queue follow-up jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, kind string, payload any) (string, error)
}

// CacheInvalidator evicts cached reads a job's writes made stale.
type CacheInvalidator interface {
	Forget(ctx context.Context, keys ...string) error
	ForgetPrefix(ctx context.Context, prefix string) error
}

// Handlers holds the collaborators for every job kind.
type Handlers struct {
	books       BookStore
	downloads   DownloadStore
	notifier    Notifier
	broadcaster Broadcaster
	files       objstore.Store
	enqueue     Enqueuer
	invalidator CacheInvalidator
	logger      *slog.Logger
}

// NewHandlers constructs the job handler set.
func NewHandlers(
	books BookStore,
	downloads DownloadStore,
	notifier Notifier,
	broadcaster Broadcaster,
	files objstore.Store,
	enqueue Enqueuer,
	invalidator CacheInvalidator,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		books:       books,
		downloads:   downloads,
		notifier:    notifier,
		broadcaster: broadcaster,
		files:       files,
		enqueue:     enqueue,
		invalidator: invalidator,
		logger:      logger,
	}
}

// invalidateBook evicts the book's detail entry plus the listings it can
// appear on. Jobs mutate book rows outside the HTTP services, so the
// services' own post-write eviction never sees these writes.
func (h *Handlers) invalidateBook(ctx context.Context, bookID int64) {
	_ = h.invalidator.Forget(ctx, cache.DetailKey(constants.CacheKeyBookDetail, bookID))
	_ = h.invalidator.ForgetPrefix(ctx, constants.CacheKeyBookList)
	_ = h.invalidator.ForgetPrefix(ctx, constants.CacheKeyBookPending)
	_ = h.invalidator.ForgetPrefix(ctx, constants.CacheKeyHome)
}

// Register binds every handler to its kind on the queue.
func (h *Handlers) Register(q *queue.Queue) {
	q.Register(KindFileIngest, h.HandleFileIngest)
	q.Register(KindDownloadFulfill, h.HandleDownloadFulfill)
	q.Register(KindNotifyUser, h.HandleNotifyUser)
	q.Register(KindPopularityCheck, h.HandlePopularityCheck)
}

// HandleNotifyUser inserts one notification row per recipient.
//
// Insert failures for individual recipients are logged and skipped rather
// than failing the whole batch: retrying the batch would duplicate rows for
// the recipients that already succeeded.
func (h *Handlers) HandleNotifyUser(ctx context.Context, job queue.Job) error {
	payload, err := DecodePayload[NotifyUserPayload](job.Payload)
	if err != nil {
		return fmt.Errorf("notify_user_decode_failed: %w", err)
	}

	for _, userID := range payload.UserIDs {
		if err := h.notifier.Insert(ctx, userID, payload.Type, payload.Data); err != nil {
			h.logger.ErrorContext(ctx, "notify_insert_failed",
				slog.Int64("user_id", userID),
				slog.String("type", payload.Type),
				slog.Any("error", err))
		}
	}
	return nil
}

// HandlePopularityCheck announces a book that crossed the popularity
// thresholds.
//
// # Debounce
//
// The announcement fires at most once per book: the claim is an atomic
// conditional update, so concurrent checks and replays race for a single
// winner and the losers exit silently.
func (h *Handlers) HandlePopularityCheck(ctx context.Context, job queue.Job) error {
	payload, err := DecodePayload[PopularityCheckPayload](job.Payload)
	if err != nil {
		return fmt.Errorf("popularity_check_decode_failed: %w", err)
	}

	stats, err := h.books.PopularityStats(ctx, payload.BookID)
	if err != nil {
		// The book may have been deleted since the check was queued.
		h.logger.WarnContext(ctx, "popularity_stats_unavailable",
			slog.Int64("book_id", payload.BookID), slog.Any("error", err))
		return nil
	}

	if stats.Views <= constants.PopularViewsThreshold && stats.Downloads <= constants.PopularDownloadsThreshold {
		return nil
	}

	claimed, err := h.books.ClaimPopularNotice(ctx, payload.BookID)
	if err != nil {
		return fmt.Errorf("popularity_claim_failed: %w", err)
	}
	if !claimed {
		return nil
	}

	recipients, err := h.broadcaster.FanOut(ctx, constants.NotificationBookPopular, map[string]any{
		"book_id": payload.BookID,
		"title":   stats.Title,
	})
	if err != nil {
		return fmt.Errorf("popularity_fanout_failed: %w", err)
	}

	h.logger.InfoContext(ctx, "book_popularity_announced",
		slog.Int64("book_id", payload.BookID),
		slog.Int("recipients", recipients))
	return nil
}

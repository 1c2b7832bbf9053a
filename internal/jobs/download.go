// Copyright (c) 2026 Maktaba. All rights reserved.

package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maktaba/maktaba/internal/platform/objstore"
	"github.com/maktaba/maktaba/internal/platform/queue"
)

// HandleDownloadFulfill counts one download after verifying the file
// actually exists.
//
// # Ordering
//
//  1. Confirm the stored object is present; a missing file fails the job
//     before any counter moves.
//  2. Increment the book's download counter.
//  3. Record a per-user download row for authenticated requesters.
//  4. Queue a popularity re-check.
//
// Anonymous downloads (UserID zero) skip step 3 but still count.
func (h *Handlers) HandleDownloadFulfill(ctx context.Context, job queue.Job) error {
	payload, err := DecodePayload[DownloadFulfillPayload](job.Payload)
	if err != nil {
		return fmt.Errorf("download_decode_failed: %w", err)
	}

	meta, err := h.books.FileMeta(ctx, payload.BookID)
	if err != nil {
		h.logger.WarnContext(ctx, "download_book_missing",
			slog.Int64("book_id", payload.BookID), slog.Any("error", err))
		return nil
	}

	if meta.FileKey == "" {
		h.logger.WarnContext(ctx, "download_no_file",
			slog.Int64("book_id", payload.BookID))
		return nil
	}

	if _, err := h.files.Stat(ctx, meta.FileKey); err != nil {
		if objstore.IsNotFound(err) {
			// Counter must not move for a file that is not there.
			h.logger.ErrorContext(ctx, "download_file_gone",
				slog.Int64("book_id", payload.BookID),
				slog.String("key", meta.FileKey))
			return nil
		}
		return fmt.Errorf("download_stat_failed: %w", err)
	}

	if err := h.books.IncrementDownloads(ctx, payload.BookID); err != nil {
		return fmt.Errorf("download_increment_failed: %w", err)
	}
	h.invalidateBook(ctx, payload.BookID)

	if payload.UserID != 0 {
		if err := h.downloads.Record(ctx, payload.BookID, payload.UserID, time.Now().UTC()); err != nil {
			// The public counter already moved; losing the personal record is
			// logged, not retried, to keep the counter single-increment.
			h.logger.ErrorContext(ctx, "download_record_failed",
				slog.Int64("book_id", payload.BookID),
				slog.Int64("user_id", payload.UserID),
				slog.Any("error", err))
		}
	}

	if h.enqueue != nil {
		if _, err := h.enqueue.Enqueue(ctx, KindPopularityCheck, PopularityCheckPayload{BookID: payload.BookID}); err != nil {
			h.logger.WarnContext(ctx, "popularity_enqueue_failed",
				slog.Int64("book_id", payload.BookID), slog.Any("error", err))
		}
	}

	return nil
}

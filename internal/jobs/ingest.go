// Copyright (c) 2026 Maktaba. All rights reserved.

package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/ledongthuc/pdf"

	"github.com/maktaba/maktaba/internal/platform/objstore"
	"github.com/maktaba/maktaba/internal/platform/queue"
)

// HandleFileIngest moves a staged upload into the object store.
//
// # Pipeline
//
//  1. Read the staged PDF: page count via the pdf reader, byte size via stat.
//  2. Upload to the book's canonical object key, replacing any old file.
//  3. Persist key, page count, and size in one update.
//  4. Evict the book's cached reads, which predate the new file.
//  5. Remove the staging file.
//
// The staging file is only removed after the metadata update commits, so a
// crash anywhere leaves the job replayable from the same staged bytes.
func (h *Handlers) HandleFileIngest(ctx context.Context, job queue.Job) error {
	payload, err := DecodePayload[FileIngestPayload](job.Payload)
	if err != nil {
		return fmt.Errorf("file_ingest_decode_failed: %w", err)
	}

	meta, err := h.books.FileMeta(ctx, payload.BookID)
	if err != nil {
		// Book deleted between upload and ingestion: discard the staged file.
		h.logger.WarnContext(ctx, "ingest_book_missing",
			slog.Int64("book_id", payload.BookID), slog.Any("error", err))
		_ = os.Remove(payload.StagingPath)
		return nil
	}

	pages, sizeBytes, err := inspectPDF(payload.StagingPath)
	if err != nil {
		return fmt.Errorf("file_ingest_inspect_failed: %w", err)
	}

	file, err := os.Open(payload.StagingPath)
	if err != nil {
		return fmt.Errorf("file_ingest_open_failed: %w", err)
	}
	defer file.Close()

	key := objstore.BookKey(meta.BookID, meta.Slug)
	if err := h.files.Put(ctx, key, file, sizeBytes, "application/pdf"); err != nil {
		return fmt.Errorf("file_ingest_upload_failed: %w", err)
	}

	sizeMB := math.Round(float64(sizeBytes)/(1024*1024)*100) / 100
	if err := h.books.UpdateFile(ctx, meta.BookID, key, pages, sizeMB); err != nil {
		return fmt.Errorf("file_ingest_update_failed: %w", err)
	}

	// The detail entry has no expiry; a read between upload and ingest
	// pins the fileless row unless it is evicted here.
	h.invalidateBook(ctx, meta.BookID)

	if err := os.Remove(payload.StagingPath); err != nil {
		h.logger.WarnContext(ctx, "ingest_staging_cleanup_failed",
			slog.String("path", payload.StagingPath), slog.Any("error", err))
	}

	h.logger.InfoContext(ctx, "book_file_ingested",
		slog.Int64("book_id", meta.BookID),
		slog.Int("pages", pages),
		slog.Float64("size_mb", sizeMB))
	return nil
}

// inspectPDF returns the page count and byte size of the staged file.
func inspectPDF(path string) (int, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, 0, err
	}

	file, reader, err := pdf.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("not a readable PDF: %w", err)
	}
	defer file.Close()

	return reader.NumPage(), info.Size(), nil
}

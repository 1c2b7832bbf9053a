// Copyright (c) 2026 Maktaba. All rights reserved.

/*
Package jobs defines the background job kinds and their handlers.

# Job Kinds

  - file_ingest: move a staged upload into the object store, extracting page
    count and size along the way.
  - download_fulfill: count a download and record who made it.
  - notify_user: insert notification rows for a batch of recipients.
  - popularity_check: announce a book once it crosses the popularity
    thresholds, at most once per book.

Handlers run under at-least-once delivery, so each one is written to be
safe on replay.
*/
package jobs

import (
	"context"
	"encoding/json"
	"time"
)

// # Kinds
const (
	KindFileIngest      = "file_ingest"
	KindDownloadFulfill = "download_fulfill"
	KindNotifyUser      = "notify_user"
	KindPopularityCheck = "popularity_check"
)

// # Payloads

// FileIngestPayload moves a staged upload into the object store.
type FileIngestPayload struct {
	BookID      int64  `json:"book_id"`
	StagingPath string `json:"staging_path"`
}

// DownloadFulfillPayload counts one download. UserID is zero for anonymous
// downloads, which still count but leave no per-user record.
type DownloadFulfillPayload struct {
	BookID int64 `json:"book_id"`
	UserID int64 `json:"user_id"`
}

// NotifyUserPayload inserts one notification per listed recipient.
type NotifyUserPayload struct {
	UserIDs []int64        `json:"user_ids"`
	Type    string         `json:"type"`
	Data    map[string]any `json:"data"`
}

// PopularityCheckPayload re-evaluates one book against the thresholds.
type PopularityCheckPayload struct {
	BookID int64 `json:"book_id"`
}

// DecodePayload unmarshals a job payload into its typed form.
func DecodePayload[T any](raw json.RawMessage) (T, error) {
	var payload T
	err := json.Unmarshal(raw, &payload)
	return payload, err
}

// # Collaborator Contracts
//
// The handlers name their own narrow interfaces; the domain repositories
// satisfy them and main wires them up.

// BookFileMeta is what ingestion needs to know about a book.
type BookFileMeta struct {
	BookID  int64
	OwnerID int64
	Title   string
	Slug    string
	FileKey string
}

// PopularityStats is the counter snapshot for a popularity evaluation.
type PopularityStats struct {
	Title     string
	Views     int64
	Downloads int64
}

// BookStore is the slice of the book repository the handlers use.
type BookStore interface {
	FileMeta(ctx context.Context, bookID int64) (BookFileMeta, error)
	UpdateFile(ctx context.Context, bookID int64, fileKey string, pages int, sizeMB float64) error
	IncrementDownloads(ctx context.Context, bookID int64) error
	PopularityStats(ctx context.Context, bookID int64) (PopularityStats, error)

	// ClaimPopularNotice atomically stamps the book as announced. It reports
	// false when another job already claimed it, which is what debounces the
	// announcement to once per book.
	ClaimPopularNotice(ctx context.Context, bookID int64) (bool, error)
}

// DownloadStore records who downloaded what.
type DownloadStore interface {
	Record(ctx context.Context, bookID, userID int64, downloadedAt time.Time) error
}

// Notifier inserts notification rows.
type Notifier interface {
	Insert(ctx context.Context, userID int64, notificationType string, data map[string]any) error
}

// Broadcaster fans a notification out to every user.
type Broadcaster interface {
	FanOut(ctx context.Context, notificationType string, data map[string]any) (int, error)
}

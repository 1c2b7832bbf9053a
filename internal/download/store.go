// Copyright (c) 2026 Maktaba. All rights reserved.

package download

import (
	"context"
	"time"
)

// Repository is the persistence surface for download history. It also
// satisfies [jobs.DownloadStore] for the fulfillment handler.
type Repository interface {
	Record(ctx context.Context, bookID, userID int64, downloadedAt time.Time) error
	ListForUser(ctx context.Context, userID int64, limit, offset int) ([]*Download, int, error)
}

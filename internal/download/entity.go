// Copyright (c) 2026 Maktaba. All rights reserved.

// Package download keeps the per-user download history. Rows are written by
// the fulfillment job, never by a request handler.
package download

import "time"

// Download is one fulfilled download by a known user.
type Download struct {
	ID           int64     `json:"id"`
	BookID       int64     `json:"book_id"`
	UserID       int64     `json:"-"`
	BookTitle    string    `json:"book_title"`
	BookSlug     string    `json:"book_slug"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// Copyright (c) 2026 Maktaba. All rights reserved.

package book

import (
	"context"

	"github.com/maktaba/maktaba/internal/jobs"
)

// Repository is the persistence surface for books. It also satisfies
// [jobs.BookStore] so the background handlers can share it.
type Repository interface {
	List(ctx context.Context, status string, f Filter, limit, offset int) ([]*Book, int, error)
	FindByID(ctx context.Context, id int64) (*Book, error)
	Create(ctx context.Context, b *Book) error
	Update(ctx context.Context, b *Book) error
	Delete(ctx context.Context, id int64) error

	// SetStatus flips the publication status without touching other fields.
	SetStatus(ctx context.Context, id int64, status string) error

	// Exists reports whether an approved book with the id is in the catalog.
	Exists(ctx context.Context, id int64) (bool, error)

	// IncrementViews bumps the view counter atomically at the row level.
	IncrementViews(ctx context.Context, id int64) error

	FileMeta(ctx context.Context, bookID int64) (jobs.BookFileMeta, error)
	UpdateFile(ctx context.Context, bookID int64, fileKey string, pages int, sizeMB float64) error
	IncrementDownloads(ctx context.Context, bookID int64) error
	PopularityStats(ctx context.Context, bookID int64) (jobs.PopularityStats, error)
	ClaimPopularNotice(ctx context.Context, bookID int64) (bool, error)
}

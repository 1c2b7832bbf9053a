// Copyright (c) 2026 Maktaba. All rights reserved.

package download

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maktaba/maktaba/internal/platform/dberr"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (repository *PostgresRepository) Record(ctx context.Context, bookID, userID int64, downloadedAt time.Time) error {
	_, err := repository.db.Exec(ctx, `
		INSERT INTO downloads (book_id, user_id, downloaded_at)
		VALUES ($1, $2, $3)
	`, bookID, userID, downloadedAt)
	return dberr.Wrap(err, "record_download")
}

func (repository *PostgresRepository) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]*Download, int, error) {
	var total int
	if err := repository.db.QueryRow(ctx,
		`SELECT count(*) FROM downloads WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_downloads")
	}

	rows, err := repository.db.Query(ctx, `
		SELECT d.id, d.book_id, d.user_id, COALESCE(b.title, ''), COALESCE(b.slug, ''), d.downloaded_at
		FROM downloads d
		LEFT JOIN books b ON b.id = d.book_id
		WHERE d.user_id = $1
		ORDER BY d.downloaded_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_downloads")
	}
	defer rows.Close()

	var downloads []*Download
	for rows.Next() {
		d := &Download{}
		if err := rows.Scan(&d.ID, &d.BookID, &d.UserID, &d.BookTitle, &d.BookSlug, &d.DownloadedAt); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_download")
		}
		downloads = append(downloads, d)
	}

	return downloads, total, rows.Err()
}

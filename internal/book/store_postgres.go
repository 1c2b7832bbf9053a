// Copyright (c) 2026 Maktaba. All rights reserved.

package book

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maktaba/maktaba/internal/jobs"
	"github.com/maktaba/maktaba/internal/platform/dberr"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// bookColumns joins in the display names and the comment-derived rating so
// listings render without N+1 lookups.
const bookColumns = `
	b.id, b.user_id, b.author_id, b.category_id, b.series_id,
	b.title, b.slug, b.description, b.status,
	b.file_key, b.number_pages, b.size_mb,
	b.views_count, b.downloads_count, b.popular_notified_at,
	COALESCE(a.name, ''), COALESCE(c.name, ''), COALESCE(s.name, ''),
	COALESCE((SELECT avg(rating)::float8 FROM comments cm WHERE cm.book_id = b.id AND cm.status), 0),
	b.created_at, b.updated_at
`

const bookJoins = `
	FROM books b
	LEFT JOIN authors a ON a.id = b.author_id
	LEFT JOIN categories c ON c.id = b.category_id
	LEFT JOIN book_series s ON s.id = b.series_id
`

func scanBook(row interface{ Scan(...any) error }) (*Book, error) {
	b := &Book{}
	err := row.Scan(
		&b.ID, &b.UserID, &b.AuthorID, &b.CategoryID, &b.SeriesID,
		&b.Title, &b.Slug, &b.Description, &b.Status,
		&b.FileKey, &b.Pages, &b.SizeMB,
		&b.ViewsCount, &b.DownloadsCount, &b.PopularNotifiedAt,
		&b.AuthorName, &b.CategoryName, &b.SeriesName,
		&b.AverageRating,
		&b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

func (repository *PostgresRepository) List(ctx context.Context, status string, f Filter, limit, offset int) ([]*Book, int, error) {
	where := ` WHERE b.status = $1`
	args := []any{status}

	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		where += ` AND (b.title ILIKE $` + strconv.Itoa(len(args)) + ` OR COALESCE(a.name, '') ILIKE $` + strconv.Itoa(len(args)) + `)`
	}
	if f.AuthorID != 0 {
		args = append(args, f.AuthorID)
		where += ` AND b.author_id = $` + strconv.Itoa(len(args))
	}
	if f.CategoryID != 0 {
		args = append(args, f.CategoryID)
		where += ` AND b.category_id = $` + strconv.Itoa(len(args))
	}
	if f.SeriesID != 0 {
		args = append(args, f.SeriesID)
		where += ` AND b.series_id = $` + strconv.Itoa(len(args))
	}

	var total int
	countQuery := `SELECT count(*)` + bookJoins + where
	if err := repository.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_books")
	}

	args = append(args, limit, offset)
	query := `SELECT` + bookColumns + bookJoins + where +
		` ORDER BY b.created_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := repository.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_books")
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, 0, dberr.Wrap(err, "scan_book")
		}
		books = append(books, b)
	}

	return books, total, rows.Err()
}

func (repository *PostgresRepository) FindByID(ctx context.Context, id int64) (*Book, error) {
	row := repository.db.QueryRow(ctx, `SELECT`+bookColumns+bookJoins+` WHERE b.id = $1`, id)
	b, err := scanBook(row)
	if err != nil {
		return nil, dberr.Wrap(err, "get_book")
	}
	return b, nil
}

func (repository *PostgresRepository) Create(ctx context.Context, b *Book) error {
	query := `
		INSERT INTO books (user_id, author_id, category_id, series_id, title, slug, description, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := repository.db.QueryRow(ctx, query,
		b.UserID, b.AuthorID, b.CategoryID, b.SeriesID, b.Title, b.Slug, b.Description, b.Status).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	return dberr.Wrap(err, "create_book")
}

func (repository *PostgresRepository) Update(ctx context.Context, b *Book) error {
	query := `
		UPDATE books
		SET author_id = $2, category_id = $3, series_id = $4, title = $5, slug = $6, description = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := repository.db.QueryRow(ctx, query,
		b.ID, b.AuthorID, b.CategoryID, b.SeriesID, b.Title, b.Slug, b.Description).
		Scan(&b.UpdatedAt)
	return dberr.Wrap(err, "update_book")
}

func (repository *PostgresRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := repository.db.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return dberr.Wrap(err, "delete_book")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

func (repository *PostgresRepository) SetStatus(ctx context.Context, id int64, status string) error {
	cmd, err := repository.db.Exec(ctx,
		`UPDATE books SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return dberr.Wrap(err, "set_book_status")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

func (repository *PostgresRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := repository.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM books WHERE id = $1 AND status = 'approved')`, id).Scan(&exists)
	return exists, dberr.Wrap(err, "book_exists")
}

func (repository *PostgresRepository) IncrementViews(ctx context.Context, id int64) error {
	_, err := repository.db.Exec(ctx,
		`UPDATE books SET views_count = views_count + 1 WHERE id = $1`, id)
	return dberr.Wrap(err, "increment_views")
}

func (repository *PostgresRepository) FileMeta(ctx context.Context, bookID int64) (jobs.BookFileMeta, error) {
	meta := jobs.BookFileMeta{}
	err := repository.db.QueryRow(ctx, `
		SELECT id, user_id, title, slug, file_key
		FROM books
		WHERE id = $1
	`, bookID).Scan(&meta.BookID, &meta.OwnerID, &meta.Title, &meta.Slug, &meta.FileKey)
	return meta, dberr.Wrap(err, "book_file_meta")
}

func (repository *PostgresRepository) UpdateFile(ctx context.Context, bookID int64, fileKey string, pages int, sizeMB float64) error {
	cmd, err := repository.db.Exec(ctx, `
		UPDATE books
		SET file_key = $2, number_pages = $3, size_mb = $4, updated_at = NOW()
		WHERE id = $1
	`, bookID, fileKey, pages, sizeMB)
	if err != nil {
		return dberr.Wrap(err, "update_book_file")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

func (repository *PostgresRepository) IncrementDownloads(ctx context.Context, bookID int64) error {
	_, err := repository.db.Exec(ctx,
		`UPDATE books SET downloads_count = downloads_count + 1 WHERE id = $1`, bookID)
	return dberr.Wrap(err, "increment_downloads")
}

func (repository *PostgresRepository) PopularityStats(ctx context.Context, bookID int64) (jobs.PopularityStats, error) {
	stats := jobs.PopularityStats{}
	err := repository.db.QueryRow(ctx, `
		SELECT title, views_count, downloads_count
		FROM books
		WHERE id = $1
	`, bookID).Scan(&stats.Title, &stats.Views, &stats.Downloads)
	return stats, dberr.Wrap(err, "popularity_stats")
}

// ClaimPopularNotice is a conditional update so concurrent popularity checks
// race safely: exactly one of them observes a row change.
func (repository *PostgresRepository) ClaimPopularNotice(ctx context.Context, bookID int64) (bool, error) {
	cmd, err := repository.db.Exec(ctx, `
		UPDATE books
		SET popular_notified_at = NOW()
		WHERE id = $1 AND popular_notified_at IS NULL
	`, bookID)
	if err != nil {
		return false, dberr.Wrap(err, "claim_popular_notice")
	}
	return cmd.RowsAffected() == 1, nil
}

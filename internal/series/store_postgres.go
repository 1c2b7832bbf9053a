// Copyright (c) 2026 Maktaba. All rights reserved.

package series

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maktaba/maktaba/internal/platform/dberr"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (repository *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*Series, int, error) {
	var total int
	if err := repository.db.QueryRow(ctx, `SELECT count(*) FROM book_series`).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_series")
	}

	rows, err := repository.db.Query(ctx, `
		SELECT s.id, s.user_id, s.name, s.slug, s.description,
		       (SELECT count(*) FROM books b WHERE b.series_id = s.id AND b.status = 'approved'),
		       s.created_at, s.updated_at
		FROM book_series s
		ORDER BY s.name ASC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_series")
	}
	defer rows.Close()

	var result []*Series
	for rows.Next() {
		s := &Series{}
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.Slug, &s.Description,
			&s.BooksCount, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_series")
		}
		result = append(result, s)
	}

	return result, total, rows.Err()
}

func (repository *PostgresRepository) FindByID(ctx context.Context, id int64) (*Series, error) {
	s := &Series{}
	err := repository.db.QueryRow(ctx, `
		SELECT s.id, s.user_id, s.name, s.slug, s.description,
		       (SELECT count(*) FROM books b WHERE b.series_id = s.id AND b.status = 'approved'),
		       s.created_at, s.updated_at
		FROM book_series s
		WHERE s.id = $1
	`, id).Scan(&s.ID, &s.UserID, &s.Name, &s.Slug, &s.Description, &s.BooksCount, &s.CreatedAt, &s.UpdatedAt)
	return s, dberr.Wrap(err, "get_series")
}

func (repository *PostgresRepository) Create(ctx context.Context, s *Series) error {
	query := `
		INSERT INTO book_series (user_id, name, slug, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := repository.db.QueryRow(ctx, query, s.UserID, s.Name, s.Slug, s.Description).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	return dberr.Wrap(err, "create_series")
}

func (repository *PostgresRepository) Update(ctx context.Context, s *Series) error {
	query := `
		UPDATE book_series
		SET name = $2, slug = $3, description = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := repository.db.QueryRow(ctx, query, s.ID, s.Name, s.Slug, s.Description).Scan(&s.UpdatedAt)
	return dberr.Wrap(err, "update_series")
}

func (repository *PostgresRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := repository.db.Exec(ctx, `DELETE FROM book_series WHERE id = $1`, id)
	if err != nil {
		return dberr.Wrap(err, "delete_series")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

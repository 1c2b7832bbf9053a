// Copyright (c) 2026 Maktaba. All rights reserved.

package author

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

func (repository *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*Author, int, error) {
	var total int
	if err := repository.db.QueryRow(ctx, `SELECT count(*) FROM authors`).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_authors")
	}

	rows, err := repository.db.Query(ctx, `
		SELECT id, user_id, name, slug, biography, birthdate, created_at, updated_at
		FROM authors
		ORDER BY name ASC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_authors")
	}
	defer rows.Close()

	var authors []*Author
	for rows.Next() {
		a := &Author{}
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Slug, &a.Biography,
			&a.Birthdate, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_author")
		}
		authors = append(authors, a)
	}

	return authors, total, rows.Err()
}

func (repository *PostgresRepository) FindByID(ctx context.Context, id int64) (*Author, error) {
	a := &Author{}
	err := repository.db.QueryRow(ctx, `
		SELECT id, user_id, name, slug, biography, birthdate, created_at, updated_at
		FROM authors
		WHERE id = $1
	`, id).Scan(&a.ID, &a.UserID, &a.Name, &a.Slug, &a.Biography, &a.Birthdate, &a.CreatedAt, &a.UpdatedAt)
	return a, dberr.Wrap(err, "get_author")
}

func (repository *PostgresRepository) Create(ctx context.Context, a *Author) error {
	query := `
		INSERT INTO authors (user_id, name, slug, biography, birthdate, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := repository.db.QueryRow(ctx, query, a.UserID, a.Name, a.Slug, a.Biography, a.Birthdate).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	return dberr.Wrap(err, "create_author")
}

func (repository *PostgresRepository) Update(ctx context.Context, a *Author) error {
	query := `
		UPDATE authors
		SET user_id = $2, name = $3, slug = $4, biography = $5, birthdate = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := repository.db.QueryRow(ctx, query, a.ID, a.UserID, a.Name, a.Slug, a.Biography, a.Birthdate).
		Scan(&a.UpdatedAt)
	return dberr.Wrap(err, "update_author")
}

func (repository *PostgresRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := repository.db.Exec(ctx, `DELETE FROM authors WHERE id = $1`, id)
	if err != nil {
		return dberr.Wrap(err, "delete_author")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

func (repository *PostgresRepository) ListRequests(ctx context.Context, limit, offset int) ([]*Request, int, error) {
	var total int
	if err := repository.db.QueryRow(ctx, `SELECT count(*) FROM author_requests`).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_author_requests")
	}

	rows, err := repository.db.Query(ctx, `
		SELECT id, user_id, author_id, name, biography, birthdate, status, created_at, updated_at
		FROM author_requests
		ORDER BY id ASC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_author_requests")
	}
	defer rows.Close()

	var requests []*Request
	for rows.Next() {
		r := &Request{}
		if err := rows.Scan(&r.ID, &r.UserID, &r.AuthorID, &r.Name, &r.Biography,
			&r.Birthdate, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_author_request")
		}
		requests = append(requests, r)
	}

	return requests, total, rows.Err()
}

func (repository *PostgresRepository) FindRequestByID(ctx context.Context, id int64) (*Request, error) {
	r := &Request{}
	err := repository.db.QueryRow(ctx, `
		SELECT id, user_id, author_id, name, biography, birthdate, status, created_at, updated_at
		FROM author_requests
		WHERE id = $1
	`, id).Scan(&r.ID, &r.UserID, &r.AuthorID, &r.Name, &r.Biography, &r.Birthdate, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	return r, dberr.Wrap(err, "get_author_request")
}

func (repository *PostgresRepository) CreateRequest(ctx context.Context, r *Request) error {
	query := `
		INSERT INTO author_requests (user_id, author_id, name, biography, birthdate, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := repository.db.QueryRow(ctx, query, r.UserID, r.AuthorID, r.Name, r.Biography, r.Birthdate, r.Status).
		Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	return dberr.Wrap(err, "create_author_request")
}

func (repository *PostgresRepository) UpdateRequest(ctx context.Context, r *Request) error {
	query := `
		UPDATE author_requests
		SET author_id = $2, name = $3, biography = $4, birthdate = $5, status = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := repository.db.QueryRow(ctx, query, r.ID, r.AuthorID, r.Name, r.Biography, r.Birthdate, r.Status).
		Scan(&r.UpdatedAt)
	return dberr.Wrap(err, "update_author_request")
}

func (repository *PostgresRepository) DeleteRequest(ctx context.Context, id int64) error {
	cmd, err := repository.db.Exec(ctx, `DELETE FROM author_requests WHERE id = $1`, id)
	if err != nil {
		return dberr.Wrap(err, "delete_author_request")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

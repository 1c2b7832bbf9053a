// Copyright (c) 2026 Maktaba. All rights reserved.

package comment

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

func (repository *PostgresRepository) ListForBook(ctx context.Context, bookID int64, limit, offset int) ([]*Comment, int, error) {
	var total int
	if err := repository.db.QueryRow(ctx,
		`SELECT count(*) FROM comments WHERE book_id = $1 AND status`, bookID).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_comments")
	}

	rows, err := repository.db.Query(ctx, `
		SELECT c.id, c.book_id, c.user_id, COALESCE(u.name, ''), c.content, c.rating, c.created_at, c.updated_at
		FROM comments c
		LEFT JOIN users u ON u.id = c.user_id
		WHERE c.book_id = $1 AND c.status
		ORDER BY c.created_at DESC
		LIMIT $2 OFFSET $3
	`, bookID, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_comments")
	}
	defer rows.Close()

	var comments []*Comment
	for rows.Next() {
		c := &Comment{}
		if err := rows.Scan(&c.ID, &c.BookID, &c.UserID, &c.UserName, &c.Content,
			&c.Rating, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_comment")
		}
		comments = append(comments, c)
	}

	return comments, total, rows.Err()
}

func (repository *PostgresRepository) FindByID(ctx context.Context, id int64) (*Comment, error) {
	c := &Comment{}
	err := repository.db.QueryRow(ctx, `
		SELECT c.id, c.book_id, c.user_id, COALESCE(u.name, ''), c.content, c.rating, c.created_at, c.updated_at
		FROM comments c
		LEFT JOIN users u ON u.id = c.user_id
		WHERE c.id = $1 AND c.status
	`, id).Scan(&c.ID, &c.BookID, &c.UserID, &c.UserName, &c.Content, &c.Rating, &c.CreatedAt, &c.UpdatedAt)
	return c, dberr.Wrap(err, "get_comment")
}

func (repository *PostgresRepository) Create(ctx context.Context, c *Comment) error {
	query := `
		INSERT INTO comments (book_id, user_id, content, rating, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := repository.db.QueryRow(ctx, query, c.BookID, c.UserID, c.Content, c.Rating).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return dberr.Wrap(err, "create_comment")
}

func (repository *PostgresRepository) Update(ctx context.Context, c *Comment) error {
	query := `
		UPDATE comments
		SET content = $2, rating = $3, updated_at = NOW()
		WHERE id = $1 AND status
		RETURNING updated_at
	`
	err := repository.db.QueryRow(ctx, query, c.ID, c.Content, c.Rating).Scan(&c.UpdatedAt)
	return dberr.Wrap(err, "update_comment")
}

// Delete retires the comment without removing the row. Retired comments
// disappear from listings and from the book's average rating.
func (repository *PostgresRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := repository.db.Exec(ctx,
		`UPDATE comments SET status = FALSE, updated_at = NOW() WHERE id = $1 AND status`, id)
	if err != nil {
		return dberr.Wrap(err, "delete_comment")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

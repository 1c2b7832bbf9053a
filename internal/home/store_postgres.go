// Copyright (c) 2026 Maktaba. All rights reserved.

package home

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maktaba/maktaba/internal/platform/dberr"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const cardColumns = `
	b.id, b.title, b.slug, COALESCE(a.name, ''), b.views_count,
	COALESCE((SELECT avg(rating)::float8 FROM comments cm WHERE cm.book_id = b.id AND cm.status), 0)
`

const cardJoins = `
	FROM books b
	LEFT JOIN authors a ON a.id = b.author_id
	WHERE b.status = 'approved'
`

func (repository *PostgresRepository) cards(ctx context.Context, query string, args ...any) ([]BookCard, error) {
	rows, err := repository.db.Query(ctx, query, args...)
	if err != nil {
		return nil, dberr.Wrap(err, "home_books")
	}
	defer rows.Close()

	return scanCards(rows)
}

func scanCards(rows pgx.Rows) ([]BookCard, error) {
	var cards []BookCard
	for rows.Next() {
		var card BookCard
		if err := rows.Scan(&card.ID, &card.Title, &card.Slug, &card.AuthorName,
			&card.ViewsCount, &card.AverageRating); err != nil {
			return nil, dberr.Wrap(err, "scan_home_book")
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

func (repository *PostgresRepository) LatestBooks(ctx context.Context, limit int) ([]BookCard, error) {
	return repository.cards(ctx,
		`SELECT`+cardColumns+cardJoins+` ORDER BY b.created_at DESC LIMIT $1`, limit)
}

func (repository *PostgresRepository) MostViewedBooks(ctx context.Context, limit int) ([]BookCard, error) {
	return repository.cards(ctx,
		`SELECT`+cardColumns+cardJoins+` ORDER BY b.views_count DESC LIMIT $1`, limit)
}

func (repository *PostgresRepository) TopRatedBooks(ctx context.Context, limit int) ([]BookCard, error) {
	return repository.cards(ctx,
		`SELECT`+cardColumns+cardJoins+` ORDER BY 6 DESC NULLS LAST, b.id ASC LIMIT $1`, limit)
}

func (repository *PostgresRepository) SearchBooks(ctx context.Context, query string, limit int) ([]BookCard, error) {
	return repository.cards(ctx,
		`SELECT`+cardColumns+cardJoins+
			` AND (b.title ILIKE $1 OR COALESCE(a.name, '') ILIKE $1) ORDER BY b.views_count DESC LIMIT $2`,
		"%"+query+"%", limit)
}

func (repository *PostgresRepository) FeaturedAuthors(ctx context.Context, limit int) ([]AuthorCard, error) {
	rows, err := repository.db.Query(ctx, `
		SELECT a.id, a.name, a.slug
		FROM authors a
		ORDER BY (SELECT count(*) FROM books b WHERE b.author_id = a.id AND b.status = 'approved') DESC, a.id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, dberr.Wrap(err, "home_authors")
	}
	defer rows.Close()

	var authors []AuthorCard
	for rows.Next() {
		var a AuthorCard
		if err := rows.Scan(&a.ID, &a.Name, &a.Slug); err != nil {
			return nil, dberr.Wrap(err, "scan_home_author")
		}
		authors = append(authors, a)
	}
	return authors, rows.Err()
}

func (repository *PostgresRepository) CatalogTotals(ctx context.Context) (Totals, error) {
	var totals Totals
	err := repository.db.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM books WHERE status = 'approved'),
			(SELECT count(*) FROM authors),
			(SELECT count(*) FROM categories)
	`).Scan(&totals.Books, &totals.Authors, &totals.Categories)
	return totals, dberr.Wrap(err, "home_totals")
}

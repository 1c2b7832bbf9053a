// Copyright (c) 2026 Maktaba. All rights reserved.

package category

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

func (repository *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*Category, int, error) {
	var total int
	if err := repository.db.QueryRow(ctx, `SELECT count(*) FROM categories`).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_categories")
	}

	rows, err := repository.db.Query(ctx, `
		SELECT c.id, c.group_id, c.name, c.slug, c.description,
		       (SELECT count(*) FROM books b WHERE b.category_id = c.id AND b.status = 'approved'),
		       c.created_at, c.updated_at
		FROM categories c
		ORDER BY c.name ASC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_categories")
	}
	defer rows.Close()

	var categories []*Category
	for rows.Next() {
		c := &Category{}
		if err := rows.Scan(&c.ID, &c.GroupID, &c.Name, &c.Slug, &c.Description,
			&c.BooksCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_category")
		}
		categories = append(categories, c)
	}

	return categories, total, rows.Err()
}

func (repository *PostgresRepository) FindByID(ctx context.Context, id int64) (*Category, error) {
	c := &Category{}
	err := repository.db.QueryRow(ctx, `
		SELECT id, group_id, name, slug, description, created_at, updated_at
		FROM categories
		WHERE id = $1
	`, id).Scan(&c.ID, &c.GroupID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	return c, dberr.Wrap(err, "get_category")
}

func (repository *PostgresRepository) Create(ctx context.Context, c *Category) error {
	query := `
		INSERT INTO categories (group_id, name, slug, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := repository.db.QueryRow(ctx, query, c.GroupID, c.Name, c.Slug, c.Description).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return dberr.Wrap(err, "create_category")
}

func (repository *PostgresRepository) Update(ctx context.Context, c *Category) error {
	query := `
		UPDATE categories
		SET group_id = $2, name = $3, slug = $4, description = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := repository.db.QueryRow(ctx, query, c.ID, c.GroupID, c.Name, c.Slug, c.Description).
		Scan(&c.UpdatedAt)
	return dberr.Wrap(err, "update_category")
}

func (repository *PostgresRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := repository.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return dberr.Wrap(err, "delete_category")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

func (repository *PostgresRepository) ListGroups(ctx context.Context) ([]*Group, error) {
	rows, err := repository.db.Query(ctx, `
		SELECT id, name, created_at, updated_at
		FROM category_groups
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, dberr.Wrap(err, "list_category_groups")
	}
	defer rows.Close()

	var groups []*Group
	byID := map[int64]*Group{}
	for rows.Next() {
		g := &Group{}
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, dberr.Wrap(err, "scan_category_group")
		}
		groups = append(groups, g)
		byID[g.ID] = g
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "list_category_groups")
	}

	memberRows, err := repository.db.Query(ctx, `
		SELECT id, group_id, name, slug, description, created_at, updated_at
		FROM categories
		WHERE group_id IS NOT NULL
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, dberr.Wrap(err, "list_grouped_categories")
	}
	defer memberRows.Close()

	for memberRows.Next() {
		var c Category
		if err := memberRows.Scan(&c.ID, &c.GroupID, &c.Name, &c.Slug, &c.Description,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, dberr.Wrap(err, "scan_grouped_category")
		}
		if g, ok := byID[*c.GroupID]; ok {
			g.Categories = append(g.Categories, c)
		}
	}

	return groups, memberRows.Err()
}

func (repository *PostgresRepository) FindGroupByID(ctx context.Context, id int64) (*Group, error) {
	g := &Group{}
	err := repository.db.QueryRow(ctx, `
		SELECT id, name, created_at, updated_at
		FROM category_groups
		WHERE id = $1
	`, id).Scan(&g.ID, &g.Name, &g.CreatedAt, &g.UpdatedAt)
	return g, dberr.Wrap(err, "get_category_group")
}

func (repository *PostgresRepository) CreateGroup(ctx context.Context, g *Group) error {
	query := `
		INSERT INTO category_groups (name, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := repository.db.QueryRow(ctx, query, g.Name).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	return dberr.Wrap(err, "create_category_group")
}

func (repository *PostgresRepository) UpdateGroup(ctx context.Context, g *Group) error {
	query := `
		UPDATE category_groups
		SET name = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := repository.db.QueryRow(ctx, query, g.ID, g.Name).Scan(&g.UpdatedAt)
	return dberr.Wrap(err, "update_category_group")
}

func (repository *PostgresRepository) DeleteGroup(ctx context.Context, id int64) error {
	cmd, err := repository.db.Exec(ctx, `DELETE FROM category_groups WHERE id = $1`, id)
	if err != nil {
		return dberr.Wrap(err, "delete_category_group")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

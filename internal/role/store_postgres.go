// Copyright (c) 2026 Maktaba. All rights reserved.

package role

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

func (repository *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*Role, int, error) {
	var total int
	if err := repository.db.QueryRow(ctx, `SELECT count(*) FROM roles`).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_roles")
	}

	rows, err := repository.db.Query(ctx, `
		SELECT id, name, description, role_level, created_at, updated_at
		FROM roles
		ORDER BY role_level DESC, name ASC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_roles")
	}
	defer rows.Close()

	var roles []*Role
	for rows.Next() {
		r := &Role{}
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.Level, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_role")
		}
		roles = append(roles, r)
	}

	for _, r := range roles {
		if err := repository.loadPermissions(ctx, r); err != nil {
			return nil, 0, err
		}
	}

	return roles, total, rows.Err()
}

func (repository *PostgresRepository) FindByID(ctx context.Context, id int64) (*Role, error) {
	r := &Role{}
	err := repository.db.QueryRow(ctx, `
		SELECT id, name, description, role_level, created_at, updated_at
		FROM roles
		WHERE id = $1
	`, id).Scan(&r.ID, &r.Name, &r.Description, &r.Level, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, dberr.Wrap(err, "get_role")
	}

	if err := repository.loadPermissions(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (repository *PostgresRepository) Create(ctx context.Context, r *Role) error {
	query := `
		INSERT INTO roles (name, description, role_level, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := repository.db.QueryRow(ctx, query, r.Name, r.Description, r.Level).
		Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	return dberr.Wrap(err, "create_role")
}

func (repository *PostgresRepository) Update(ctx context.Context, r *Role) error {
	query := `
		UPDATE roles
		SET name = $2, description = $3, role_level = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := repository.db.QueryRow(ctx, query, r.ID, r.Name, r.Description, r.Level).
		Scan(&r.UpdatedAt)
	return dberr.Wrap(err, "update_role")
}

func (repository *PostgresRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := repository.db.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return dberr.Wrap(err, "delete_role")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

func (repository *PostgresRepository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := repository.db.Query(ctx,
		`SELECT id, name, description FROM permissions ORDER BY name ASC`)
	if err != nil {
		return nil, dberr.Wrap(err, "list_permissions")
	}
	defer rows.Close()

	var permissions []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, dberr.Wrap(err, "scan_permission")
		}
		permissions = append(permissions, p)
	}
	return permissions, rows.Err()
}

// SyncPermissions replaces the grant set transactionally so a failure never
// leaves the role half-granted.
func (repository *PostgresRepository) SyncPermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	tx, err := repository.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return dberr.Wrap(err, "sync_permissions_begin")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM permission_role WHERE role_id = $1`, roleID); err != nil {
		return dberr.Wrap(err, "sync_permissions_clear")
	}

	for _, permissionID := range permissionIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO permission_role (permission_id, role_id) VALUES ($1, $2)`,
			permissionID, roleID); err != nil {
			return dberr.Wrap(err, "sync_permissions_insert")
		}
	}

	return dberr.Wrap(tx.Commit(ctx), "sync_permissions_commit")
}

func (repository *PostgresRepository) loadPermissions(ctx context.Context, r *Role) error {
	rows, err := repository.db.Query(ctx, `
		SELECT p.id, p.name, p.description
		FROM permissions p
		JOIN permission_role pr ON pr.permission_id = p.id
		WHERE pr.role_id = $1
		ORDER BY p.name ASC
	`, r.ID)
	if err != nil {
		return dberr.Wrap(err, "load_role_permissions")
	}
	defer rows.Close()

	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return dberr.Wrap(err, "scan_role_permission")
		}
		r.Permissions = append(r.Permissions, p)
	}
	return rows.Err()
}

// Copyright (c) 2026 Maktaba. All rights reserved.

package rbac

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maktaba/maktaba/internal/platform/dberr"
)

// PostgresStore implements [Store] against the role tables.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed membership store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (store *PostgresStore) RolesForUser(ctx context.Context, userID int64) ([]Role, error) {
	query := `
		SELECT r.id, r.name, r.role_level
		FROM roles r
		JOIN role_user ru ON ru.role_id = r.id
		WHERE ru.user_id = $1
		ORDER BY ru.id ASC
	`

	rows, err := store.db.Query(ctx, query, userID)
	if err != nil {
		return nil, dberr.Wrap(err, "list_user_roles")
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Level); err != nil {
			return nil, dberr.Wrap(err, "scan_user_role")
		}
		roles = append(roles, role)
	}

	return roles, rows.Err()
}

// FindRoleByName loads a single role by its unique name.
func (store *PostgresStore) FindRoleByName(ctx context.Context, name string) (Role, error) {
	var role Role
	err := store.db.QueryRow(ctx,
		`SELECT id, name, role_level FROM roles WHERE name = $1`, name).
		Scan(&role.ID, &role.Name, &role.Level)
	if err != nil {
		return Role{}, dberr.Wrap(err, "get_role_by_name")
	}
	return role, nil
}

// FindRole loads a single role by id.
func (store *PostgresStore) FindRole(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := store.db.QueryRow(ctx,
		`SELECT id, name, role_level FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Name, &role.Level)
	if err != nil {
		return Role{}, dberr.Wrap(err, "get_role")
	}
	return role, nil
}

func (store *PostgresStore) UserHasPermission(ctx context.Context, userID int64, permission string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM role_user ru
			JOIN permission_role pr ON pr.role_id = ru.role_id
			JOIN permissions p ON p.id = pr.permission_id
			WHERE ru.user_id = $1 AND p.name = $2
		)
	`

	var granted bool
	if err := store.db.QueryRow(ctx, query, userID, permission).Scan(&granted); err != nil {
		return false, dberr.Wrap(err, "check_user_permission")
	}

	return granted, nil
}

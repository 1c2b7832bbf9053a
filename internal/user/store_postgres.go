// Copyright (c) 2026 Maktaba. All rights reserved.

package user

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maktaba/maktaba/internal/platform/dberr"
	"github.com/maktaba/maktaba/internal/rbac"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (repository *PostgresRepository) List(ctx context.Context, f Filter, limit, offset int) ([]*User, int, error) {
	query := `
		SELECT id, name, email, password_hash, is_active, created_at, updated_at
		FROM users
		WHERE TRUE
	`
	countQuery := `SELECT count(*) FROM users WHERE TRUE`

	args := []any{}
	countArgs := []any{}

	if f.Query != "" {
		searchTerm := "%" + f.Query + "%"
		query += ` AND (name ILIKE $1 OR email ILIKE $1)`
		countQuery += ` AND (name ILIKE $1 OR email ILIKE $1)`
		args = append(args, searchTerm)
		countArgs = append(countArgs, searchTerm)
	}

	query += ` ORDER BY id ASC LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	var total int
	if err := repository.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_users")
	}

	rows, err := repository.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_users")
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u := &User{}
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_user")
		}
		users = append(users, u)
	}

	if err := repository.loadRoles(ctx, users); err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (repository *PostgresRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	query := `
		SELECT id, name, email, password_hash, is_active, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	u := &User{}
	err := repository.db.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "get_user")
	}

	if err := repository.loadRoles(ctx, []*User{u}); err != nil {
		return nil, err
	}
	return u, nil
}

func (repository *PostgresRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, name, email, password_hash, is_active, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	u := &User{}
	err := repository.db.QueryRow(ctx, query, email).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "get_user_by_email")
	}

	if err := repository.loadRoles(ctx, []*User{u}); err != nil {
		return nil, err
	}
	return u, nil
}

func (repository *PostgresRepository) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (name, email, password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := repository.db.QueryRow(ctx, query, u.Name, u.Email, u.PasswordHash, u.IsActive).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	return dberr.Wrap(err, "create_user")
}

func (repository *PostgresRepository) Update(ctx context.Context, u *User) error {
	query := `
		UPDATE users
		SET name = $2, email = $3, password_hash = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := repository.db.QueryRow(ctx, query, u.ID, u.Name, u.Email, u.PasswordHash, u.IsActive).
		Scan(&u.UpdatedAt)
	return dberr.Wrap(err, "update_user")
}

func (repository *PostgresRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := repository.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return dberr.Wrap(err, "delete_user")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

func (repository *PostgresRepository) AssignRole(ctx context.Context, userID, roleID int64) error {
	query := `
		INSERT INTO role_user (user_id, role_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, role_id) DO NOTHING
	`
	_, err := repository.db.Exec(ctx, query, userID, roleID)
	return dberr.Wrap(err, "assign_role")
}

func (repository *PostgresRepository) RevokeRole(ctx context.Context, userID, roleID int64) error {
	_, err := repository.db.Exec(ctx,
		`DELETE FROM role_user WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	return dberr.Wrap(err, "revoke_role")
}

func (repository *PostgresRepository) ListIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	rows, err := repository.db.Query(ctx,
		`SELECT id FROM users WHERE id > $1 AND is_active ORDER BY id ASC LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, dberr.Wrap(err, "list_user_ids")
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, dberr.Wrap(err, "scan_user_id")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// loadRoles attaches role sets to the given users in one query.
func (repository *PostgresRepository) loadRoles(ctx context.Context, users []*User) error {
	if len(users) == 0 {
		return nil
	}

	byID := make(map[int64]*User, len(users))
	ids := make([]int64, 0, len(users))
	for _, u := range users {
		byID[u.ID] = u
		ids = append(ids, u.ID)
	}

	query := `
		SELECT ru.user_id, r.id, r.name, r.role_level
		FROM roles r
		JOIN role_user ru ON ru.role_id = r.id
		WHERE ru.user_id = ANY($1)
		ORDER BY ru.id ASC
	`
	rows, err := repository.db.Query(ctx, query, ids)
	if err != nil {
		return dberr.Wrap(err, "load_user_roles")
	}
	defer rows.Close()

	for rows.Next() {
		var userID int64
		var role rbac.Role
		if err := rows.Scan(&userID, &role.ID, &role.Name, &role.Level); err != nil {
			return dberr.Wrap(err, "scan_user_role")
		}
		if u, ok := byID[userID]; ok {
			u.Roles = append(u.Roles, role)
		}
	}

	for _, u := range users {
		u.WithRoleNames()
	}
	return rows.Err()
}

// Copyright (c) 2026 Maktaba. All rights reserved.

/*
Package rbac evaluates role and permission membership for users.

# Consistency Model

Every check reads the database; nothing is cached and nothing rides in the
access token. A role revoked mid-session takes effect on the user's next
request. The cost is one indexed join per authorization decision, which the
policy layer keeps to a handful per request.
*/
package rbac

import (
	"context"
)

// # Role Names
//
// The three seeded roles. Installations may add more; the policy layer only
// special-cases these.
const (
	RoleSuperAdmin = "superAdmin"
	RoleAdmin      = "admin"
	RoleUser       = "user"
)

// DefaultRoleLevel is the hierarchy level assumed for users with no roles.
const DefaultRoleLevel = 1

// # Permission Names
const (
	PermViewBooks          = "view-books"
	PermCreateBooks        = "create-books"
	PermUpdateBooks        = "update-books"
	PermDeleteBooks        = "delete-books"
	PermManagePublications = "manage-publications"

	PermViewUsers  = "view-users"
	PermCreateUser = "create-user"
	PermEditUser   = "edit-user"
	PermDeleteUser = "delete-user"

	PermViewRoles  = "view-roles"
	PermCreateRole = "create-role"
	PermEditRole   = "edit-role"
	PermDeleteRole = "delete-role"

	PermCreateCategory = "create-category"
	PermEditCategory   = "edit-category"
	PermDeleteCategory = "delete-category"

	PermUpdateSeries = "update-series"
	PermDeleteSeries = "delete-series"
)

// Role is a named level in the authorization hierarchy.
type Role struct {
	ID    int64
	Name  string
	Level int
}

// Store supplies membership data for the evaluator. The Postgres
// implementation is [PostgresStore]; tests use an in-memory fake.
type Store interface {
	// RolesForUser returns the user's roles ordered by assignment.
	RolesForUser(ctx context.Context, userID int64) ([]Role, error)

	// UserHasPermission reports whether any of the user's roles grants the
	// named permission.
	UserHasPermission(ctx context.Context, userID int64, permission string) (bool, error)
}

// Evaluator answers role and permission questions for the policy layer.
type Evaluator struct {
	store Store
}

// NewEvaluator creates an Evaluator over the given store.
func NewEvaluator(store Store) *Evaluator {
	return &Evaluator{store: store}
}

// HasPermission reports whether the user holds the named permission through
// any assigned role.
func (e *Evaluator) HasPermission(ctx context.Context, userID int64, permission string) (bool, error) {
	return e.store.UserHasPermission(ctx, userID, permission)
}

// HasRole reports exact role-name membership.
func (e *Evaluator) HasRole(ctx context.Context, userID int64, roleName string) (bool, error) {
	roles, err := e.store.RolesForUser(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, role := range roles {
		if role.Name == roleName {
			return true, nil
		}
	}
	return false, nil
}

// RoleLevel returns the level of the user's primary (first assigned) role,
// or [DefaultRoleLevel] when the user has none. The user-management policy
// compares these levels to stop lower-privileged staff from editing their
// superiors.
func (e *Evaluator) RoleLevel(ctx context.Context, userID int64) (int, error) {
	roles, err := e.store.RolesForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(roles) == 0 {
		return DefaultRoleLevel, nil
	}
	return roles[0].Level, nil
}

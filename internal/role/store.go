// Copyright (c) 2026 Maktaba. All rights reserved.

package role

import "context"

// Repository defines persistence for roles and their permission grants.
type Repository interface {
	List(ctx context.Context, limit, offset int) ([]*Role, int, error)
	FindByID(ctx context.Context, id int64) (*Role, error)
	Create(ctx context.Context, r *Role) error
	Update(ctx context.Context, r *Role) error
	Delete(ctx context.Context, id int64) error

	ListPermissions(ctx context.Context) ([]Permission, error)

	// SyncPermissions replaces the role's grant set with exactly the given
	// permission ids.
	SyncPermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
}

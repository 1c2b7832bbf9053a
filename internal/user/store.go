// Copyright (c) 2026 Maktaba. All rights reserved.

package user

import "context"

// Repository defines persistence operations for user accounts.
type Repository interface {
	List(ctx context.Context, f Filter, limit, offset int) ([]*User, int, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id int64) error

	// AssignRole links a role to a user. Assigning an already-held role is
	// a no-op.
	AssignRole(ctx context.Context, userID, roleID int64) error
	RevokeRole(ctx context.Context, userID, roleID int64) error

	// ListIDs pages through active user ids in ascending order, for fan-out.
	// Deactivated accounts are excluded.
	ListIDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
}

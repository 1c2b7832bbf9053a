// Copyright (c) 2026 Maktaba. All rights reserved.

package category

import "context"

// Repository defines persistence for categories and groups.
type Repository interface {
	List(ctx context.Context, limit, offset int) ([]*Category, int, error)
	FindByID(ctx context.Context, id int64) (*Category, error)
	Create(ctx context.Context, c *Category) error
	Update(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id int64) error

	ListGroups(ctx context.Context) ([]*Group, error)
	FindGroupByID(ctx context.Context, id int64) (*Group, error)
	CreateGroup(ctx context.Context, g *Group) error
	UpdateGroup(ctx context.Context, g *Group) error
	DeleteGroup(ctx context.Context, id int64) error
}

// Copyright (c) 2026 Maktaba. All rights reserved.

package comment

import "context"

// Repository is the persistence surface for comments. Reads only see active
// comments; Delete retires a comment rather than dropping its row, and a
// retired id behaves like a missing one everywhere.
type Repository interface {
	ListForBook(ctx context.Context, bookID int64, limit, offset int) ([]*Comment, int, error)
	FindByID(ctx context.Context, id int64) (*Comment, error)
	Create(ctx context.Context, c *Comment) error
	Update(ctx context.Context, c *Comment) error
	Delete(ctx context.Context, id int64) error
}

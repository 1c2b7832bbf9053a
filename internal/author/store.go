// Copyright (c) 2026 Maktaba. All rights reserved.

package author

import "context"

// Repository is the persistence surface for authors and their requests.
type Repository interface {
	List(ctx context.Context, limit, offset int) ([]*Author, int, error)
	FindByID(ctx context.Context, id int64) (*Author, error)
	Create(ctx context.Context, a *Author) error
	Update(ctx context.Context, a *Author) error
	Delete(ctx context.Context, id int64) error

	ListRequests(ctx context.Context, limit, offset int) ([]*Request, int, error)
	FindRequestByID(ctx context.Context, id int64) (*Request, error)
	CreateRequest(ctx context.Context, r *Request) error
	UpdateRequest(ctx context.Context, r *Request) error
	DeleteRequest(ctx context.Context, id int64) error
}

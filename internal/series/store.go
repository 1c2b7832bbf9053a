// Copyright (c) 2026 Maktaba. All rights reserved.

package series

import "context"

// Repository is the persistence surface for book series.
type Repository interface {
	List(ctx context.Context, limit, offset int) ([]*Series, int, error)
	FindByID(ctx context.Context, id int64) (*Series, error)
	Create(ctx context.Context, s *Series) error
	Update(ctx context.Context, s *Series) error
	Delete(ctx context.Context, id int64) error
}

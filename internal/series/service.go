// Copyright (c) 2026 Maktaba. All rights reserved.

package series

import (
	"context"

	"github.com/maktaba/maktaba/internal/platform/cache"
	"github.com/maktaba/maktaba/internal/platform/constants"
	"github.com/maktaba/maktaba/internal/platform/validate"
	"github.com/maktaba/maktaba/pkg/pagination"
	"github.com/maktaba/maktaba/pkg/slug"
)

// Service implements series management.
type Service struct {
	repository Repository
	policy     *Policy
	cache      *cache.Cache
}

// NewService constructs the series service.
func NewService(repository Repository, policy *Policy, c *cache.Cache) *Service {
	return &Service{repository: repository, policy: policy, cache: c}
}

// List returns a page of series.
func (service *Service) List(ctx context.Context, page pagination.Params) ([]*Series, int, error) {
	return service.repository.List(ctx, page.Limit, page.Offset())
}

// Get returns one series.
func (service *Service) Get(ctx context.Context, id int64) (*Series, error) {
	return service.repository.FindByID(ctx, id)
}

// Input holds series fields for create and update.
type Input struct {
	Name        string
	Description string
}

// Create adds a series owned by the actor.
func (service *Service) Create(ctx context.Context, actorID int64, input Input) (*Series, error) {
	if err := service.validateInput(input); err != nil {
		return nil, err
	}

	s := &Series{
		UserID:      actorID,
		Name:        input.Name,
		Slug:        slug.From(input.Name),
		Description: input.Description,
	}
	if err := service.repository.Create(ctx, s); err != nil {
		return nil, err
	}

	service.invalidate(ctx)
	return s, nil
}

// Update changes a series.
func (service *Service) Update(ctx context.Context, actorID, id int64, input Input) (*Series, error) {
	s, err := service.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := service.policy.CanUpdate(ctx, actorID, s); err != nil {
		return nil, err
	}

	if err := service.validateInput(input); err != nil {
		return nil, err
	}

	s.Name = input.Name
	s.Slug = slug.From(input.Name)
	s.Description = input.Description
	if err := service.repository.Update(ctx, s); err != nil {
		return nil, err
	}

	service.invalidate(ctx)
	return s, nil
}

// Delete removes a series. Its books keep their rows with the reference
// nulled out.
func (service *Service) Delete(ctx context.Context, actorID, id int64) error {
	s, err := service.repository.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := service.policy.CanDelete(ctx, actorID, s); err != nil {
		return err
	}

	if err := service.repository.Delete(ctx, id); err != nil {
		return err
	}

	service.invalidate(ctx)
	return nil
}

func (service *Service) validateInput(input Input) error {
	v := &validate.Validator{}
	v.Required("name", input.Name).MaxLen("name", input.Name, 120)
	v.MaxLen("description", input.Description, 255)
	return v.Err()
}

// invalidate clears book views, which render series names.
func (service *Service) invalidate(ctx context.Context) {
	_ = service.cache.ForgetPrefix(ctx, constants.CacheKeyBookPrefix)
}

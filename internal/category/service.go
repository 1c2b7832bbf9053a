// Copyright (c) 2026 Maktaba. All rights reserved.

package category

import (
	"context"

	"github.com/maktaba/maktaba/internal/platform/apperr"
	"github.com/maktaba/maktaba/internal/platform/cache"
	"github.com/maktaba/maktaba/internal/platform/constants"
	"github.com/maktaba/maktaba/internal/platform/validate"
	"github.com/maktaba/maktaba/internal/rbac"
	"github.com/maktaba/maktaba/pkg/pagination"
	"github.com/maktaba/maktaba/pkg/slug"
)

// PermissionEvaluator is the slice of the rbac evaluator this service needs.
type PermissionEvaluator interface {
	HasPermission(ctx context.Context, userID int64, permission string) (bool, error)
}

// Service manages the category taxonomy and its groups.
//
// Reads are public and served from the reference-data cache tier; mutations
// require the category permissions and invalidate the category and book list
// prefixes together, since book listings embed category names.
type Service struct {
	repository Repository
	evaluator  PermissionEvaluator
	cache      *cache.Cache
}

// NewService constructs the category service.
func NewService(repository Repository, evaluator PermissionEvaluator, c *cache.Cache) *Service {
	return &Service{repository: repository, evaluator: evaluator, cache: c}
}

var errCategoryDenied = apperr.Forbidden("You are not allowed to manage categories")

type listResult struct {
	Categories []*Category `json:"categories"`
	Total      int         `json:"total"`
}

// List returns a page of categories with their approved-book counts.
func (service *Service) List(ctx context.Context, page pagination.Params) ([]*Category, int, error) {
	key := cache.ListKey(constants.CacheKeyCategoryList, page.CacheParams(nil))
	result, err := cache.Remember(service.cache, ctx, key, constants.CacheTTLReferenceList,
		func(ctx context.Context) (listResult, error) {
			categories, total, err := service.repository.List(ctx, page.Limit, page.Offset())
			if err != nil {
				return listResult{}, err
			}
			return listResult{Categories: categories, Total: total}, nil
		})
	if err != nil {
		return nil, 0, err
	}

	return result.Categories, result.Total, nil
}

// Get returns one category.
func (service *Service) Get(ctx context.Context, id int64) (*Category, error) {
	return service.repository.FindByID(ctx, id)
}

// Groups returns all category groups with their member categories.
func (service *Service) Groups(ctx context.Context) ([]*Group, error) {
	key := cache.ListKey(constants.CacheKeyCatGroupList, nil)
	return cache.Remember(service.cache, ctx, key, constants.CacheTTLReferenceList,
		func(ctx context.Context) ([]*Group, error) {
			return service.repository.ListGroups(ctx)
		})
}

// Input holds category fields for create and update.
type Input struct {
	GroupID     *int64
	Name        string
	Description string
}

// Create adds a category.
func (service *Service) Create(ctx context.Context, actorID int64, input Input) (*Category, error) {
	if err := service.require(ctx, actorID, rbac.PermCreateCategory); err != nil {
		return nil, err
	}

	if err := service.validateInput(input); err != nil {
		return nil, err
	}

	if err := service.checkGroup(ctx, input.GroupID); err != nil {
		return nil, err
	}

	c := &Category{
		GroupID:     input.GroupID,
		Name:        input.Name,
		Slug:        slug.From(input.Name),
		Description: input.Description,
	}
	if err := service.repository.Create(ctx, c); err != nil {
		return nil, err
	}

	service.invalidate(ctx)
	return c, nil
}

// Update changes a category. The slug follows the name.
func (service *Service) Update(ctx context.Context, actorID, id int64, input Input) (*Category, error) {
	if err := service.require(ctx, actorID, rbac.PermEditCategory); err != nil {
		return nil, err
	}

	c, err := service.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := service.validateInput(input); err != nil {
		return nil, err
	}

	if err := service.checkGroup(ctx, input.GroupID); err != nil {
		return nil, err
	}

	c.GroupID = input.GroupID
	c.Name = input.Name
	c.Slug = slug.From(input.Name)
	c.Description = input.Description
	if err := service.repository.Update(ctx, c); err != nil {
		return nil, err
	}

	service.invalidate(ctx)
	return c, nil
}

// Delete removes a category. Books keep their rows; the foreign key nulls out.
func (service *Service) Delete(ctx context.Context, actorID, id int64) error {
	if err := service.require(ctx, actorID, rbac.PermDeleteCategory); err != nil {
		return err
	}

	if err := service.repository.Delete(ctx, id); err != nil {
		return err
	}

	service.invalidate(ctx)
	return nil
}

// CreateGroup adds a category group.
func (service *Service) CreateGroup(ctx context.Context, actorID int64, name string) (*Group, error) {
	if err := service.require(ctx, actorID, rbac.PermCreateCategory); err != nil {
		return nil, err
	}

	v := &validate.Validator{}
	v.Required("name", name).MaxLen("name", name, 120)
	if err := v.Err(); err != nil {
		return nil, err
	}

	g := &Group{Name: name}
	if err := service.repository.CreateGroup(ctx, g); err != nil {
		return nil, err
	}

	service.invalidate(ctx)
	return g, nil
}

// UpdateGroup renames a category group.
func (service *Service) UpdateGroup(ctx context.Context, actorID, id int64, name string) (*Group, error) {
	if err := service.require(ctx, actorID, rbac.PermEditCategory); err != nil {
		return nil, err
	}

	g, err := service.repository.FindGroupByID(ctx, id)
	if err != nil {
		return nil, err
	}

	v := &validate.Validator{}
	v.Required("name", name).MaxLen("name", name, 120)
	if err := v.Err(); err != nil {
		return nil, err
	}

	g.Name = name
	if err := service.repository.UpdateGroup(ctx, g); err != nil {
		return nil, err
	}

	service.invalidate(ctx)
	return g, nil
}

// DeleteGroup removes a group. Member categories survive ungrouped.
func (service *Service) DeleteGroup(ctx context.Context, actorID, id int64) error {
	if err := service.require(ctx, actorID, rbac.PermDeleteCategory); err != nil {
		return err
	}

	if err := service.repository.DeleteGroup(ctx, id); err != nil {
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

func (service *Service) checkGroup(ctx context.Context, groupID *int64) error {
	if groupID == nil {
		return nil
	}
	_, err := service.repository.FindGroupByID(ctx, *groupID)
	return err
}

// invalidate clears the category prefixes plus the book and home views that
// render category names.
func (service *Service) invalidate(ctx context.Context) {
	_ = service.cache.ForgetPrefix(ctx, constants.CacheKeyCategoryList)
	_ = service.cache.ForgetPrefix(ctx, constants.CacheKeyCatGroupList)
	_ = service.cache.ForgetPrefix(ctx, constants.CacheKeyBookPrefix)
	_ = service.cache.ForgetPrefix(ctx, constants.CacheKeyHome)
}

func (service *Service) require(ctx context.Context, actorID int64, permission string) error {
	granted, err := service.evaluator.HasPermission(ctx, actorID, permission)
	if err != nil {
		return err
	}
	if !granted {
		return errCategoryDenied
	}
	return nil
}

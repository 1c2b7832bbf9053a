// Copyright (c) 2026 Maktaba. All rights reserved.

package role

import (
	"context"

	"github.com/maktaba/maktaba/internal/platform/apperr"
	"github.com/maktaba/maktaba/internal/platform/cache"
	"github.com/maktaba/maktaba/internal/platform/constants"
	"github.com/maktaba/maktaba/internal/platform/validate"
	"github.com/maktaba/maktaba/internal/rbac"
	"github.com/maktaba/maktaba/pkg/pagination"
)

// PermissionEvaluator is the slice of the rbac evaluator this service needs.
type PermissionEvaluator interface {
	HasPermission(ctx context.Context, userID int64, permission string) (bool, error)
	HasRole(ctx context.Context, userID int64, roleName string) (bool, error)
}

// Service implements role catalog management.
type Service struct {
	repository Repository
	evaluator  PermissionEvaluator
	cache      *cache.Cache
}

// NewService constructs the role service.
func NewService(repository Repository, evaluator PermissionEvaluator, c *cache.Cache) *Service {
	return &Service{repository: repository, evaluator: evaluator, cache: c}
}

var errRoleDenied = apperr.Forbidden("You are not allowed to manage roles")

type listResult struct {
	Roles []*Role `json:"roles"`
	Total int     `json:"total"`
}

// List returns a page of roles with their grants.
func (service *Service) List(ctx context.Context, actorID int64, page pagination.Params) ([]*Role, int, error) {
	if err := service.require(ctx, actorID, rbac.PermViewRoles); err != nil {
		return nil, 0, err
	}

	key := cache.ListKey(constants.CacheKeyRoleList, page.CacheParams(nil))
	result, err := cache.Remember(service.cache, ctx, key, constants.CacheTTLReferenceList,
		func(ctx context.Context) (listResult, error) {
			roles, total, err := service.repository.List(ctx, page.Limit, page.Offset())
			if err != nil {
				return listResult{}, err
			}
			return listResult{Roles: roles, Total: total}, nil
		})
	if err != nil {
		return nil, 0, err
	}

	return result.Roles, result.Total, nil
}

// Get returns one role with its grants.
func (service *Service) Get(ctx context.Context, actorID, roleID int64) (*Role, error) {
	if err := service.require(ctx, actorID, rbac.PermViewRoles); err != nil {
		return nil, err
	}
	return service.repository.FindByID(ctx, roleID)
}

// Permissions returns the full permission catalog for grant editing.
func (service *Service) Permissions(ctx context.Context, actorID int64) ([]Permission, error) {
	if err := service.require(ctx, actorID, rbac.PermViewRoles); err != nil {
		return nil, err
	}
	return service.repository.ListPermissions(ctx)
}

// Input holds role fields for create and update.
type Input struct {
	Name          string
	Description   string
	Level         int
	PermissionIDs []int64
}

// Create adds a role and its initial grants.
func (service *Service) Create(ctx context.Context, actorID int64, input Input) (*Role, error) {
	if err := service.require(ctx, actorID, rbac.PermCreateRole); err != nil {
		return nil, err
	}

	if err := service.validateInput(input); err != nil {
		return nil, err
	}

	r := &Role{Name: input.Name, Description: input.Description, Level: input.Level}
	if err := service.repository.Create(ctx, r); err != nil {
		return nil, err
	}

	if len(input.PermissionIDs) > 0 {
		if err := service.repository.SyncPermissions(ctx, r.ID, input.PermissionIDs); err != nil {
			return nil, err
		}
	}

	service.invalidate(ctx)
	return service.repository.FindByID(ctx, r.ID)
}

// Update changes a role and replaces its grants.
//
// Changing a role's grants silently changes what every holder may do, so
// this takes the blunt invalidation tier.
func (service *Service) Update(ctx context.Context, actorID, roleID int64, input Input) (*Role, error) {
	if err := service.require(ctx, actorID, rbac.PermEditRole); err != nil {
		return nil, err
	}

	r, err := service.repository.FindByID(ctx, roleID)
	if err != nil {
		return nil, err
	}

	if r.Name == rbac.RoleSuperAdmin {
		return nil, errRoleDenied
	}

	if err := service.validateInput(input); err != nil {
		return nil, err
	}

	r.Name = input.Name
	r.Description = input.Description
	r.Level = input.Level
	if err := service.repository.Update(ctx, r); err != nil {
		return nil, err
	}

	if err := service.repository.SyncPermissions(ctx, roleID, input.PermissionIDs); err != nil {
		return nil, err
	}

	service.invalidate(ctx)
	return service.repository.FindByID(ctx, roleID)
}

// Delete removes a role. The seeded roles are protected.
func (service *Service) Delete(ctx context.Context, actorID, roleID int64) error {
	if err := service.require(ctx, actorID, rbac.PermDeleteRole); err != nil {
		return err
	}

	r, err := service.repository.FindByID(ctx, roleID)
	if err != nil {
		return err
	}

	switch r.Name {
	case rbac.RoleSuperAdmin, rbac.RoleAdmin, rbac.RoleUser:
		return errRoleDenied
	}

	if err := service.repository.Delete(ctx, roleID); err != nil {
		return err
	}

	service.invalidate(ctx)
	return nil
}

func (service *Service) validateInput(input Input) error {
	v := &validate.Validator{}
	v.Required("name", input.Name).MaxLen("name", input.Name, 60)
	v.MaxLen("description", input.Description, 255)
	v.Range("role_level", input.Level, 1, 5)
	return v.Err()
}

func (service *Service) invalidate(ctx context.Context) {
	_ = service.cache.FlushAll(ctx)
}

func (service *Service) require(ctx context.Context, actorID int64, permission string) error {
	granted, err := service.evaluator.HasPermission(ctx, actorID, permission)
	if err != nil {
		return err
	}
	if !granted {
		return errRoleDenied
	}
	return nil
}

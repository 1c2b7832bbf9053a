// Copyright (c) 2026 Maktaba. All rights reserved.

package user

import (
	"context"
	"fmt"

	"github.com/maktaba/maktaba/internal/jobs"
	"github.com/maktaba/maktaba/internal/platform/apperr"
	"github.com/maktaba/maktaba/internal/platform/cache"
	"github.com/maktaba/maktaba/internal/platform/constants"
	"github.com/maktaba/maktaba/internal/platform/sec"
	"github.com/maktaba/maktaba/internal/platform/validate"
	"github.com/maktaba/maktaba/internal/rbac"
	"github.com/maktaba/maktaba/pkg/pagination"
)

// RoleFinder resolves role metadata for assignment operations.
type RoleFinder interface {
	FindRole(ctx context.Context, id int64) (rbac.Role, error)
}

// JobEnqueuer hands work to the background pipeline.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, kind string, payload any) (string, error)
}

// Service implements user management use cases.
type Service struct {
	repository Repository
	policy     *Policy
	roles      RoleFinder
	cache      *cache.Cache
	queue      JobEnqueuer
}

// NewService constructs the user management service.
func NewService(repository Repository, policy *Policy, roles RoleFinder, c *cache.Cache, queue JobEnqueuer) *Service {
	return &Service{
		repository: repository,
		policy:     policy,
		roles:      roles,
		cache:      c,
		queue:      queue,
	}
}

type listResult struct {
	Users []*User `json:"users"`
	Total int     `json:"total"`
}

// List returns a page of users. Results cache for the reference-data TTL
// since user rows change rarely relative to how often staff list them.
func (service *Service) List(ctx context.Context, actorID int64, f Filter, page pagination.Params) ([]*User, int, error) {
	if err := service.policy.CanList(ctx, actorID); err != nil {
		return nil, 0, err
	}

	key := cache.ListKey(constants.CacheKeyUserList, page.CacheParams(map[string]string{"q": f.Query}))
	result, err := cache.Remember(service.cache, ctx, key, constants.CacheTTLReferenceList,
		func(ctx context.Context) (listResult, error) {
			users, total, err := service.repository.List(ctx, f, page.Limit, page.Offset())
			if err != nil {
				return listResult{}, err
			}
			return listResult{Users: users, Total: total}, nil
		})
	if err != nil {
		return nil, 0, err
	}

	return result.Users, result.Total, nil
}

// Get returns a single user, subject to the view policy.
func (service *Service) Get(ctx context.Context, actorID, targetID int64) (*User, error) {
	if err := service.policy.CanView(ctx, actorID, targetID); err != nil {
		return nil, err
	}
	return service.repository.FindByID(ctx, targetID)
}

// CreateInput holds the fields for staff-created accounts.
type CreateInput struct {
	Name     string
	Email    string
	Password string
}

// Create provisions a new account on behalf of staff.
func (service *Service) Create(ctx context.Context, actorID int64, input CreateInput) (*User, error) {
	if err := service.policy.CanCreate(ctx, actorID); err != nil {
		return nil, err
	}

	v := &validate.Validator{}
	v.Required("name", input.Name).MaxLen("name", input.Name, 120)
	v.Required("email", input.Email).Email("email", input.Email)
	v.MinLen("password", input.Password, 8)
	if err := v.Err(); err != nil {
		return nil, err
	}

	if _, err := service.repository.FindByEmail(ctx, input.Email); err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}

	passwordHash, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user_service_hash_failed: %w", err)
	}

	u := &User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: passwordHash,
		IsActive:     true,
	}
	if err := service.repository.Create(ctx, u); err != nil {
		return nil, err
	}

	_ = service.cache.ForgetPrefix(ctx, constants.CacheKeyUserList)
	return u, nil
}

// UpdateInput carries optional profile changes; nil fields stay untouched.
type UpdateInput struct {
	Name     *string
	Email    *string
	Password *string
	IsActive *bool
}

// Update changes another account's profile under the hierarchy gate.
func (service *Service) Update(ctx context.Context, actorID, targetID int64, input UpdateInput) (*User, error) {
	if err := service.policy.CanUpdate(ctx, actorID, targetID); err != nil {
		return nil, err
	}

	u, err := service.repository.FindByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	v := &validate.Validator{}
	if input.Name != nil {
		v.Required("name", *input.Name).MaxLen("name", *input.Name, 120)
		u.Name = *input.Name
	}
	if input.Email != nil {
		v.Email("email", *input.Email)
		u.Email = *input.Email
	}
	if input.Password != nil {
		v.MinLen("password", *input.Password, 8)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	if input.Password != nil {
		passwordHash, err := sec.HashPassword(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("user_service_hash_failed: %w", err)
		}
		u.PasswordHash = passwordHash
	}
	if input.IsActive != nil {
		u.IsActive = *input.IsActive
	}

	if err := service.repository.Update(ctx, u); err != nil {
		return nil, err
	}

	_ = service.cache.ForgetPrefix(ctx, constants.CacheKeyUserList)
	return u, nil
}

// Delete removes an account under the hierarchy gate.
func (service *Service) Delete(ctx context.Context, actorID, targetID int64) error {
	if err := service.policy.CanDelete(ctx, actorID, targetID); err != nil {
		return err
	}

	if err := service.repository.Delete(ctx, targetID); err != nil {
		return err
	}

	_ = service.cache.ForgetPrefix(ctx, constants.CacheKeyUserList)
	return nil
}

// AssignRole grants a role to the target and notifies them.
//
// A role change alters what every cached listing may show the target, so this
// takes the blunt invalidation tier: the whole cache database resets.
func (service *Service) AssignRole(ctx context.Context, actorID, targetID, roleID int64) error {
	if err := service.policy.CanManageRoles(ctx, actorID, targetID); err != nil {
		return err
	}

	role, err := service.roles.FindRole(ctx, roleID)
	if err != nil {
		return err
	}

	if _, err := service.repository.FindByID(ctx, targetID); err != nil {
		return err
	}

	if err := service.repository.AssignRole(ctx, targetID, roleID); err != nil {
		return err
	}

	_ = service.cache.FlushAll(ctx)

	_, err = service.queue.Enqueue(ctx, jobs.KindNotifyUser, jobs.NotifyUserPayload{
		UserIDs: []int64{targetID},
		Type:    constants.NotificationRoleChanged,
		Data: map[string]any{
			"role":    role.Name,
			"message": fmt.Sprintf("Your account was granted the %q role", role.Name),
		},
	})
	if err != nil {
		return fmt.Errorf("user_service_role_notify_failed: %w", err)
	}
	return nil
}

// RevokeRole removes a role from the target and notifies them.
func (service *Service) RevokeRole(ctx context.Context, actorID, targetID, roleID int64) error {
	if err := service.policy.CanManageRoles(ctx, actorID, targetID); err != nil {
		return err
	}

	role, err := service.roles.FindRole(ctx, roleID)
	if err != nil {
		return err
	}

	if err := service.repository.RevokeRole(ctx, targetID, roleID); err != nil {
		return err
	}

	_ = service.cache.FlushAll(ctx)

	_, err = service.queue.Enqueue(ctx, jobs.KindNotifyUser, jobs.NotifyUserPayload{
		UserIDs: []int64{targetID},
		Type:    constants.NotificationRoleChanged,
		Data: map[string]any{
			"role":    role.Name,
			"message": fmt.Sprintf("Your account no longer holds the %q role", role.Name),
		},
	})
	if err != nil {
		return fmt.Errorf("user_service_role_notify_failed: %w", err)
	}
	return nil
}

// Copyright (c) 2026 Maktaba. All rights reserved.

package book

import (
	"context"

	"github.com/maktaba/maktaba/internal/platform/apperr"
	"github.com/maktaba/maktaba/internal/rbac"
)

// PermissionEvaluator is the slice of the rbac evaluator the policy needs.
type PermissionEvaluator interface {
	HasPermission(ctx context.Context, userID int64, permission string) (bool, error)
	HasRole(ctx context.Context, userID int64, roleName string) (bool, error)
}

// Policy gates every book operation. Every check re-reads the actor's grants
// so a role revocation takes effect immediately.
type Policy struct {
	evaluator PermissionEvaluator
}

// NewPolicy constructs the book policy.
func NewPolicy(evaluator PermissionEvaluator) *Policy {
	return &Policy{evaluator: evaluator}
}

var errBookDenied = apperr.Forbidden("You are not allowed to manage this book")

// CanView authorizes reading the approved catalog.
func (policy *Policy) CanView(ctx context.Context, actorID int64) error {
	return policy.require(ctx, actorID, rbac.PermViewBooks)
}

// CanCreate authorizes adding a book.
func (policy *Policy) CanCreate(ctx context.Context, actorID int64) error {
	return policy.require(ctx, actorID, rbac.PermCreateBooks)
}

// CanUpdate authorizes editing. Only the owner may edit, permission or not.
func (policy *Policy) CanUpdate(ctx context.Context, actorID int64, b *Book) error {
	if err := policy.require(ctx, actorID, rbac.PermUpdateBooks); err != nil {
		return err
	}
	if b.UserID != actorID {
		return errBookDenied
	}
	return nil
}

// CanDelete authorizes removal: the owner, or a holder of delete-books with
// a role above the base one.
func (policy *Policy) CanDelete(ctx context.Context, actorID int64, b *Book) error {
	if err := policy.require(ctx, actorID, rbac.PermDeleteBooks); err != nil {
		return err
	}

	if b.UserID == actorID {
		return nil
	}

	base, err := policy.evaluator.HasRole(ctx, actorID, rbac.RoleUser)
	if err != nil {
		return err
	}
	if base {
		return errBookDenied
	}
	return nil
}

// CanModerate authorizes the publication workflow: the pending list, approve
// and reject.
func (policy *Policy) CanModerate(ctx context.Context, actorID int64) error {
	return policy.require(ctx, actorID, rbac.PermManagePublications)
}

// IsStaff reports whether the actor holds one of the administrative roles.
// Staff submissions skip the pending state.
func (policy *Policy) IsStaff(ctx context.Context, actorID int64) (bool, error) {
	for _, name := range []string{rbac.RoleAdmin, rbac.RoleSuperAdmin} {
		held, err := policy.evaluator.HasRole(ctx, actorID, name)
		if err != nil {
			return false, err
		}
		if held {
			return true, nil
		}
	}
	return false, nil
}

func (policy *Policy) require(ctx context.Context, actorID int64, permission string) error {
	granted, err := policy.evaluator.HasPermission(ctx, actorID, permission)
	if err != nil {
		return err
	}
	if !granted {
		return errBookDenied
	}
	return nil
}

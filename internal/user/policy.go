// Copyright (c) 2026 Maktaba. All rights reserved.

package user

import (
	"context"

	"github.com/maktaba/maktaba/internal/platform/apperr"
	"github.com/maktaba/maktaba/internal/rbac"
)

// PermissionEvaluator is the slice of the rbac evaluator this policy needs.
type PermissionEvaluator interface {
	HasPermission(ctx context.Context, userID int64, permission string) (bool, error)
	HasRole(ctx context.Context, userID int64, roleName string) (bool, error)
	RoleLevel(ctx context.Context, userID int64) (int, error)
}

// Policy gates user management behind the role hierarchy.
//
// # Hierarchy Rules
//
// Beyond plain permission checks, mutations on another account also require
// the actor to sit strictly above the target:
//
//  1. Nobody touches a superAdmin account through this API.
//  2. Nobody mutates their own account through the management endpoints.
//  3. The actor's role level must exceed the target's.
//
// Only after all three pass is the named permission consulted. Every denial
// is an [apperr.Forbidden] so the caller learns nothing about which rule
// fired.
type Policy struct {
	evaluator PermissionEvaluator
}

// NewPolicy creates the user management policy.
func NewPolicy(evaluator PermissionEvaluator) *Policy {
	return &Policy{evaluator: evaluator}
}

var errUserDenied = apperr.Forbidden("You are not allowed to manage this user")

// CanList requires the view-users permission.
func (policy *Policy) CanList(ctx context.Context, actorID int64) error {
	return policy.requirePermission(ctx, actorID, rbac.PermViewUsers)
}

// CanView allows self-access, hierarchical superiors, and holders of
// view-users.
func (policy *Policy) CanView(ctx context.Context, actorID, targetID int64) error {
	if actorID == targetID {
		return nil
	}

	above, err := policy.actorAbove(ctx, actorID, targetID)
	if err != nil {
		return err
	}
	if above {
		return nil
	}

	return policy.requirePermission(ctx, actorID, rbac.PermViewUsers)
}

// CanCreate requires the create-user permission.
func (policy *Policy) CanCreate(ctx context.Context, actorID int64) error {
	return policy.requirePermission(ctx, actorID, rbac.PermCreateUser)
}

// CanUpdate applies the hierarchy rules, then requires edit-user.
func (policy *Policy) CanUpdate(ctx context.Context, actorID, targetID int64) error {
	return policy.hierarchicalGate(ctx, actorID, targetID, rbac.PermEditUser)
}

// CanDelete applies the hierarchy rules, then requires delete-user.
func (policy *Policy) CanDelete(ctx context.Context, actorID, targetID int64) error {
	return policy.hierarchicalGate(ctx, actorID, targetID, rbac.PermDeleteUser)
}

// CanManageRoles applies the hierarchy rules, then requires edit-user.
// Covers both role assignment and revocation.
func (policy *Policy) CanManageRoles(ctx context.Context, actorID, targetID int64) error {
	return policy.hierarchicalGate(ctx, actorID, targetID, rbac.PermEditUser)
}

func (policy *Policy) hierarchicalGate(ctx context.Context, actorID, targetID int64, permission string) error {
	targetIsSuper, err := policy.evaluator.HasRole(ctx, targetID, rbac.RoleSuperAdmin)
	if err != nil {
		return err
	}
	if targetIsSuper {
		return errUserDenied
	}

	if actorID == targetID {
		return errUserDenied
	}

	above, err := policy.actorAbove(ctx, actorID, targetID)
	if err != nil {
		return err
	}
	if !above {
		return errUserDenied
	}

	return policy.requirePermission(ctx, actorID, permission)
}

func (policy *Policy) actorAbove(ctx context.Context, actorID, targetID int64) (bool, error) {
	actorLevel, err := policy.evaluator.RoleLevel(ctx, actorID)
	if err != nil {
		return false, err
	}
	targetLevel, err := policy.evaluator.RoleLevel(ctx, targetID)
	if err != nil {
		return false, err
	}
	return actorLevel > targetLevel, nil
}

func (policy *Policy) requirePermission(ctx context.Context, actorID int64, permission string) error {
	granted, err := policy.evaluator.HasPermission(ctx, actorID, permission)
	if err != nil {
		return err
	}
	if !granted {
		return errUserDenied
	}
	return nil
}

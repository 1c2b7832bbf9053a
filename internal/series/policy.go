// Copyright (c) 2026 Maktaba. All rights reserved.

package series

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

// Policy gates series mutations. Reads are public; any authenticated user may
// create a series; changing one requires the series permission plus either
// ownership or an elevated role.
type Policy struct {
	evaluator PermissionEvaluator
}

// NewPolicy constructs the series policy.
func NewPolicy(evaluator PermissionEvaluator) *Policy {
	return &Policy{evaluator: evaluator}
}

var errSeriesDenied = apperr.Forbidden("You are not allowed to manage this series")

// CanUpdate authorizes an update of the given series.
func (policy *Policy) CanUpdate(ctx context.Context, actorID int64, s *Series) error {
	return policy.gate(ctx, actorID, s, rbac.PermUpdateSeries)
}

// CanDelete authorizes removal of the given series.
func (policy *Policy) CanDelete(ctx context.Context, actorID int64, s *Series) error {
	return policy.gate(ctx, actorID, s, rbac.PermDeleteSeries)
}

func (policy *Policy) gate(ctx context.Context, actorID int64, s *Series, permission string) error {
	granted, err := policy.evaluator.HasPermission(ctx, actorID, permission)
	if err != nil {
		return err
	}
	if !granted {
		return errSeriesDenied
	}

	if s.UserID == actorID {
		return nil
	}

	// Non-owners pass only with a role above the base one.
	base, err := policy.evaluator.HasRole(ctx, actorID, rbac.RoleUser)
	if err != nil {
		return err
	}
	if base {
		return errSeriesDenied
	}
	return nil
}

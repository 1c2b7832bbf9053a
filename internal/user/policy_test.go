// Copyright (c) 2026 Maktaba. All rights reserved.

package user_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maktaba/maktaba/internal/platform/apperr"
	"github.com/maktaba/maktaba/internal/rbac"
	"github.com/maktaba/maktaba/internal/user"
)

type fakeEvaluator struct {
	roles  map[int64][]string
	levels map[int64]int
	perms  map[int64][]string
}

func (f *fakeEvaluator) HasPermission(_ context.Context, userID int64, permission string) (bool, error) {
	for _, p := range f.perms[userID] {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeEvaluator) HasRole(_ context.Context, userID int64, roleName string) (bool, error) {
	for _, r := range f.roles[userID] {
		if r == roleName {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeEvaluator) RoleLevel(_ context.Context, userID int64) (int, error) {
	if level, ok := f.levels[userID]; ok {
		return level, nil
	}
	return rbac.DefaultRoleLevel, nil
}

// Fixture: 1=superAdmin lvl 5, 2=admin lvl 4, 3=moderator lvl 2, 4=member lvl 1.
func newPolicy() *user.Policy {
	return user.NewPolicy(&fakeEvaluator{
		roles: map[int64][]string{
			1: {rbac.RoleSuperAdmin},
			2: {rbac.RoleAdmin},
			3: {"moderator"},
			4: {rbac.RoleUser},
		},
		levels: map[int64]int{1: 5, 2: 4, 3: 2, 4: 1},
		perms: map[int64][]string{
			1: {rbac.PermViewUsers, rbac.PermCreateUser, rbac.PermEditUser, rbac.PermDeleteUser},
			2: {rbac.PermViewUsers, rbac.PermEditUser, rbac.PermDeleteUser},
			3: {rbac.PermEditUser},
		},
	})
}

func assertForbidden(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "FORBIDDEN", ae.Code)
}

/*
TestPolicy_SuperAdminIsUntouchable verifies that no actor, regardless of
permissions, can mutate a superAdmin account.
*/
func TestPolicy_SuperAdminIsUntouchable(t *testing.T) {
	policy := newPolicy()
	ctx := context.Background()

	assertForbidden(t, policy.CanUpdate(ctx, 2, 1))
	assertForbidden(t, policy.CanDelete(ctx, 2, 1))
	assertForbidden(t, policy.CanManageRoles(ctx, 2, 1))
}

/*
TestPolicy_SelfMutationDenied verifies the management endpoints refuse
self-modification even for fully privileged actors.
*/
func TestPolicy_SelfMutationDenied(t *testing.T) {
	policy := newPolicy()
	ctx := context.Background()

	assertForbidden(t, policy.CanUpdate(ctx, 2, 2))
	assertForbidden(t, policy.CanDelete(ctx, 2, 2))
	assertForbidden(t, policy.CanManageRoles(ctx, 2, 2))
}

/*
TestPolicy_HierarchyOrdering checks that mutations require the actor's role
level to strictly exceed the target's, and that level alone is not enough
without the named permission.
*/
func TestPolicy_HierarchyOrdering(t *testing.T) {
	policy := newPolicy()
	ctx := context.Background()

	tests := []struct {
		name    string
		check   func() error
		allowed bool
	}{
		{"admin_updates_member", func() error { return policy.CanUpdate(ctx, 2, 4) }, true},
		{"admin_updates_moderator", func() error { return policy.CanUpdate(ctx, 2, 3) }, true},
		{"moderator_updates_member", func() error { return policy.CanUpdate(ctx, 3, 4) }, true},
		{"moderator_updates_admin", func() error { return policy.CanUpdate(ctx, 3, 2) }, false},
		{"equal_level_denied", func() error { return policy.CanUpdate(ctx, 4, 4) }, false},
		{"member_updates_member", func() error { return policy.CanUpdate(ctx, 4, 3) }, false},
		// moderator holds edit-user but not delete-user
		{"moderator_deletes_member", func() error { return policy.CanDelete(ctx, 3, 4) }, false},
		{"admin_deletes_member", func() error { return policy.CanDelete(ctx, 2, 4) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.check()
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assertForbidden(t, err)
			}
		})
	}
}

func TestPolicy_View(t *testing.T) {
	policy := newPolicy()
	ctx := context.Background()

	// Self-access is always allowed.
	assert.NoError(t, policy.CanView(ctx, 4, 4))

	// Hierarchical superiors can view without the permission.
	assert.NoError(t, policy.CanView(ctx, 3, 4))

	// Permission holders can view peers and superiors.
	assert.NoError(t, policy.CanView(ctx, 2, 1))

	// Plain members cannot view other accounts.
	assertForbidden(t, policy.CanView(ctx, 4, 3))
}

func TestPolicy_ListAndCreate(t *testing.T) {
	policy := newPolicy()
	ctx := context.Background()

	assert.NoError(t, policy.CanList(ctx, 2))
	assertForbidden(t, policy.CanList(ctx, 4))

	assert.NoError(t, policy.CanCreate(ctx, 1))
	assertForbidden(t, policy.CanCreate(ctx, 2))
}

// Copyright (c) 2026 Maktaba. All rights reserved.

package rbac_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maktaba/maktaba/internal/rbac"
)

type fakeStore struct {
	roles map[int64][]rbac.Role
	perms map[int64][]string
}

func (f *fakeStore) RolesForUser(_ context.Context, userID int64) ([]rbac.Role, error) {
	return f.roles[userID], nil
}

func (f *fakeStore) UserHasPermission(_ context.Context, userID int64, permission string) (bool, error) {
	for _, name := range f.perms[userID] {
		if name == permission {
			return true, nil
		}
	}
	return false, nil
}

func newFakeEvaluator() *rbac.Evaluator {
	return rbac.NewEvaluator(&fakeStore{
		roles: map[int64][]rbac.Role{
			1: {{ID: 1, Name: rbac.RoleSuperAdmin, Level: 5}},
			2: {{ID: 2, Name: rbac.RoleAdmin, Level: 4}},
			3: {{ID: 3, Name: rbac.RoleUser, Level: 1}},
		},
		perms: map[int64][]string{
			1: {rbac.PermDeleteUser, rbac.PermManagePublications},
			2: {rbac.PermManagePublications},
			3: {rbac.PermViewBooks, rbac.PermCreateBooks},
		},
	})
}

func TestEvaluator_HasPermission(t *testing.T) {
	e := newFakeEvaluator()
	ctx := context.Background()

	granted, err := e.HasPermission(ctx, 3, rbac.PermCreateBooks)
	require.NoError(t, err)
	assert.True(t, granted)

	granted, err = e.HasPermission(ctx, 3, rbac.PermDeleteBooks)
	require.NoError(t, err)
	assert.False(t, granted)
}

func TestEvaluator_HasRole(t *testing.T) {
	e := newFakeEvaluator()
	ctx := context.Background()

	isSuper, err := e.HasRole(ctx, 1, rbac.RoleSuperAdmin)
	require.NoError(t, err)
	assert.True(t, isSuper)

	isSuper, err = e.HasRole(ctx, 3, rbac.RoleSuperAdmin)
	require.NoError(t, err)
	assert.False(t, isSuper)
}

/*
TestEvaluator_RoleLevel covers the hierarchy levels, including the default
level for users with no role assignments.
*/
func TestEvaluator_RoleLevel(t *testing.T) {
	e := newFakeEvaluator()
	ctx := context.Background()

	tests := []struct {
		name   string
		userID int64
		level  int
	}{
		{"super_admin", 1, 5},
		{"admin", 2, 4},
		{"base_user", 3, 1},
		{"no_roles", 99, rbac.DefaultRoleLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, err := e.RoleLevel(ctx, tt.userID)
			require.NoError(t, err)
			assert.Equal(t, tt.level, level)
		})
	}
}

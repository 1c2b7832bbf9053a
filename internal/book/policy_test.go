// Copyright (c) 2026 Maktaba. All rights reserved.

package book_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maktaba/maktaba/internal/book"
	"github.com/maktaba/maktaba/internal/platform/apperr"
	"github.com/maktaba/maktaba/internal/rbac"
)

type fakeEvaluator struct {
	roles map[int64][]string
	perms map[int64][]string
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

// Fixture: 1=admin with every book permission, 2=member (base role) with the
// base grants, 3=member with no grants at all.
func newPolicy() *book.Policy {
	return book.NewPolicy(&fakeEvaluator{
		roles: map[int64][]string{
			1: {rbac.RoleAdmin},
			2: {rbac.RoleUser},
			3: {rbac.RoleUser},
		},
		perms: map[int64][]string{
			1: {rbac.PermViewBooks, rbac.PermCreateBooks, rbac.PermUpdateBooks,
				rbac.PermDeleteBooks, rbac.PermManagePublications},
			2: {rbac.PermViewBooks, rbac.PermCreateBooks, rbac.PermUpdateBooks, rbac.PermDeleteBooks},
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

func TestPolicy_UpdateRequiresOwnership(t *testing.T) {
	policy := newPolicy()
	ctx := context.Background()
	owned := &book.Book{ID: 10, UserID: 2}

	assert.NoError(t, policy.CanUpdate(ctx, 2, owned))

	// The admin holds update-books but does not own the book.
	assertForbidden(t, policy.CanUpdate(ctx, 1, owned))
}

func TestPolicy_DeleteAllowsOwnerAndElevatedRoles(t *testing.T) {
	policy := newPolicy()
	ctx := context.Background()
	owned := &book.Book{ID: 10, UserID: 2}

	// Owner with delete-books.
	assert.NoError(t, policy.CanDelete(ctx, 2, owned))

	// Admin is not the owner but holds a role above the base one.
	assert.NoError(t, policy.CanDelete(ctx, 1, owned))

	// Another base-role member cannot delete someone else's book, and a
	// member without the permission is rejected before the ownership check.
	other := &book.Book{ID: 11, UserID: 9}
	assertForbidden(t, policy.CanDelete(ctx, 2, other))
	assertForbidden(t, policy.CanDelete(ctx, 3, owned))
}

func TestPolicy_ModerationNeedsManagePublications(t *testing.T) {
	policy := newPolicy()
	ctx := context.Background()

	assert.NoError(t, policy.CanModerate(ctx, 1))
	assertForbidden(t, policy.CanModerate(ctx, 2))
}

func TestPolicy_IsStaff(t *testing.T) {
	policy := newPolicy()
	ctx := context.Background()

	staff, err := policy.IsStaff(ctx, 1)
	require.NoError(t, err)
	assert.True(t, staff)

	staff, err = policy.IsStaff(ctx, 2)
	require.NoError(t, err)
	assert.False(t, staff)
}

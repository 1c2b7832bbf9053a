// Copyright (c) 2026 Maktaba. All rights reserved.

package comment_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maktaba/maktaba/internal/comment"
	"github.com/maktaba/maktaba/internal/platform/apperr"
	"github.com/maktaba/maktaba/internal/platform/cache"
	"github.com/maktaba/maktaba/internal/platform/dberr"
	"github.com/maktaba/maktaba/internal/rbac"
	"github.com/maktaba/maktaba/pkg/pagination"
)

// memoryComments models the store contract: rows are retired, not removed,
// and a retired id reads as missing everywhere.
type memoryComments struct {
	byID   map[int64]*comment.Comment
	active map[int64]bool
	nextID int64
}

func newMemoryComments() *memoryComments {
	return &memoryComments{byID: map[int64]*comment.Comment{}, active: map[int64]bool{}, nextID: 1}
}

func (m *memoryComments) ListForBook(_ context.Context, bookID int64, limit, offset int) ([]*comment.Comment, int, error) {
	var matched []*comment.Comment
	for id, c := range m.byID {
		if c.BookID == bookID && m.active[id] {
			matched = append(matched, c)
		}
	}
	total := len(matched)
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (m *memoryComments) FindByID(_ context.Context, id int64) (*comment.Comment, error) {
	c, ok := m.byID[id]
	if !ok || !m.active[id] {
		return nil, dberr.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (m *memoryComments) Create(_ context.Context, c *comment.Comment) error {
	c.ID = m.nextID
	m.nextID++
	clone := *c
	m.byID[c.ID] = &clone
	m.active[c.ID] = true
	return nil
}

func (m *memoryComments) Update(_ context.Context, c *comment.Comment) error {
	if _, ok := m.byID[c.ID]; !ok || !m.active[c.ID] {
		return dberr.ErrNotFound
	}
	clone := *c
	m.byID[c.ID] = &clone
	return nil
}

func (m *memoryComments) Delete(_ context.Context, id int64) error {
	if _, ok := m.byID[id]; !ok || !m.active[id] {
		return dberr.ErrNotFound
	}
	m.active[id] = false
	return nil
}

type fakeRoles struct {
	staff map[int64]bool
}

func (f *fakeRoles) HasRole(_ context.Context, userID int64, roleName string) (bool, error) {
	if roleName == rbac.RoleAdmin {
		return f.staff[userID], nil
	}
	return false, nil
}

type fakeBooks struct {
	published map[int64]bool
}

func (f *fakeBooks) Exists(_ context.Context, bookID int64) (bool, error) {
	return f.published[bookID], nil
}

type fixture struct {
	service    *comment.Service
	repository *memoryComments
}

// newFixture wires user 1 as staff and book 7 as published.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repository := newMemoryComments()
	service := comment.NewService(repository,
		&fakeRoles{staff: map[int64]bool{1: true}},
		&fakeBooks{published: map[int64]bool{7: true}},
		cache.New(client))

	return &fixture{service: service, repository: repository}
}

func page() pagination.Params {
	return pagination.Params{Page: 1, Limit: 20}
}

/*
TestDelete_RetiresComment verifies the removal contract: the row survives as
a retired record, listings stop showing it, and the retired id behaves like
a missing one for every later call.
*/
func TestDelete_RetiresComment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.service.Create(ctx, 2, 7, comment.Input{Content: "A classic", Rating: 5})
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(ctx, 2, c.ID))

	// The row is kept but no longer readable.
	_, ok := f.repository.byID[c.ID]
	assert.True(t, ok)
	assert.False(t, f.repository.active[c.ID])

	listed, total, err := f.service.ListForBook(ctx, 7, page())
	require.NoError(t, err)
	assert.Empty(t, listed)
	assert.Zero(t, total)

	err = f.service.Delete(ctx, 2, c.ID)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)

	_, err = f.service.Update(ctx, 2, c.ID, comment.Input{Content: "Edited", Rating: 4})
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
}

/*
TestDelete_OwnershipRules verifies who may remove a comment: the owner and
staff, nobody else.
*/
func TestDelete_OwnershipRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.service.Create(ctx, 2, 7, comment.Input{Content: "A classic", Rating: 5})
	require.NoError(t, err)

	err = f.service.Delete(ctx, 3, c.ID)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperr.As(err).Code)

	require.NoError(t, f.service.Delete(ctx, 1, c.ID))
}

func TestUpdate_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.service.Create(ctx, 2, 7, comment.Input{Content: "A classic", Rating: 5})
	require.NoError(t, err)

	// Even staff cannot edit someone else's words.
	_, err = f.service.Update(ctx, 1, c.ID, comment.Input{Content: "Edited", Rating: 3})
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperr.As(err).Code)

	updated, err := f.service.Update(ctx, 2, c.ID, comment.Input{Content: "Still a classic", Rating: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Rating)
}

func TestCreate_RequiresPublishedBook(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(context.Background(), 2, 99, comment.Input{Content: "Lost", Rating: 3})
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
}

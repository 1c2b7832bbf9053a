// Copyright (c) 2026 Maktaba. All rights reserved.

package notification_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maktaba/maktaba/internal/jobs"
	"github.com/maktaba/maktaba/internal/notification"
	"github.com/maktaba/maktaba/internal/platform/apperr"
	"github.com/maktaba/maktaba/internal/platform/constants"
	"github.com/maktaba/maktaba/internal/platform/dberr"
	"github.com/maktaba/maktaba/internal/rbac"
	"github.com/maktaba/maktaba/pkg/pagination"
)

type fakeRoles struct {
	staff map[int64]bool
}

func (f *fakeRoles) HasRole(_ context.Context, userID int64, roleName string) (bool, error) {
	if roleName == rbac.RoleAdmin {
		return f.staff[userID], nil
	}
	return false, nil
}

// fakeDirectory serves ids 1..total in keyset order, skipping deactivated
// accounts the way the store-level active filter does.
type fakeDirectory struct {
	total    int64
	inactive map[int64]bool
}

func (f *fakeDirectory) ListIDs(_ context.Context, afterID int64, limit int) ([]int64, error) {
	var ids []int64
	for id := afterID + 1; id <= f.total && len(ids) < limit; id++ {
		if f.inactive[id] {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type queuedJob struct {
	delay   time.Duration
	payload jobs.NotifyUserPayload
}

type recordingQueue struct {
	queued []queuedJob
}

func (q *recordingQueue) Enqueue(_ context.Context, _ string, payload any) (string, error) {
	q.queued = append(q.queued, queuedJob{payload: payload.(jobs.NotifyUserPayload)})
	return "job", nil
}

func (q *recordingQueue) EnqueueIn(_ context.Context, delay time.Duration, _ string, payload any) (string, error) {
	q.queued = append(q.queued, queuedJob{delay: delay, payload: payload.(jobs.NotifyUserPayload)})
	return "job", nil
}

func newService(totalUsers int64, staffID int64) (*notification.Service, *recordingQueue) {
	queue := &recordingQueue{}
	service := notification.NewService(nil,
		&fakeRoles{staff: map[int64]bool{staffID: true}},
		&fakeDirectory{total: totalUsers},
		queue)
	return service, queue
}

/*
TestFanOut_ChunksAndStaggers verifies the broadcast shape: recipients split
into chunks of 100, each chunk delayed 5s later than the one before.
*/
func TestFanOut_ChunksAndStaggers(t *testing.T) {
	service, queue := newService(250, 1)

	recipients, err := service.FanOut(context.Background(), constants.NotificationBookNew, map[string]any{"title": "Divan"})
	require.NoError(t, err)
	assert.Equal(t, 250, recipients)

	require.Len(t, queue.queued, 3)
	assert.Len(t, queue.queued[0].payload.UserIDs, 100)
	assert.Len(t, queue.queued[1].payload.UserIDs, 100)
	assert.Len(t, queue.queued[2].payload.UserIDs, 50)

	assert.Equal(t, time.Duration(0), queue.queued[0].delay)
	assert.Equal(t, constants.FanOutStagger, queue.queued[1].delay)
	assert.Equal(t, 2*constants.FanOutStagger, queue.queued[2].delay)

	// Keyset paging must not skip or repeat anyone across chunk borders.
	assert.Equal(t, int64(100), queue.queued[0].payload.UserIDs[99])
	assert.Equal(t, int64(101), queue.queued[1].payload.UserIDs[0])
}

func TestFanOut_ExactChunkBoundary(t *testing.T) {
	service, queue := newService(100, 1)

	recipients, err := service.FanOut(context.Background(), constants.NotificationGeneral, nil)
	require.NoError(t, err)
	assert.Equal(t, 100, recipients)
	assert.Len(t, queue.queued, 1)
}

/*
TestFanOut_SkipsInactiveUsers verifies broadcasts reach active accounts
only: deactivated users neither count as recipients nor appear in any
queued chunk.
*/
func TestFanOut_SkipsInactiveUsers(t *testing.T) {
	queue := &recordingQueue{}
	service := notification.NewService(nil,
		&fakeRoles{staff: map[int64]bool{1: true}},
		&fakeDirectory{total: 10, inactive: map[int64]bool{4: true, 7: true}},
		queue)

	recipients, err := service.FanOut(context.Background(), constants.NotificationGeneral, nil)
	require.NoError(t, err)
	assert.Equal(t, 8, recipients)

	require.Len(t, queue.queued, 1)
	assert.NotContains(t, queue.queued[0].payload.UserIDs, int64(4))
	assert.NotContains(t, queue.queued[0].payload.UserIDs, int64(7))
}

func TestFanOut_NoUsers(t *testing.T) {
	service, queue := newService(0, 1)

	recipients, err := service.FanOut(context.Background(), constants.NotificationGeneral, nil)
	require.NoError(t, err)
	assert.Zero(t, recipients)
	assert.Empty(t, queue.queued)
}

/*
TestBroadcast_StaffGate verifies that only the administrative roles may use
the send endpoints.
*/
func TestBroadcast_StaffGate(t *testing.T) {
	service, queue := newService(10, 1)
	ctx := context.Background()

	_, err := service.Broadcast(ctx, 2, "Scheduled maintenance tonight")
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "FORBIDDEN", ae.Code)
	assert.Empty(t, queue.queued)

	recipients, err := service.Broadcast(ctx, 1, "Scheduled maintenance tonight")
	require.NoError(t, err)
	assert.Equal(t, 10, recipients)
}

func TestSendToUser_ValidatesAfterAuthorization(t *testing.T) {
	service, queue := newService(10, 1)
	ctx := context.Background()

	// Non-staff with an invalid body still sees only the denial.
	err := service.SendToUser(ctx, 2, 5, "")
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperr.As(err).Code)

	// Staff with an empty message gets the validation failure.
	err = service.SendToUser(ctx, 1, 5, "")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)

	require.NoError(t, service.SendToUser(ctx, 1, 5, "Welcome aboard"))
	require.Len(t, queue.queued, 1)
	assert.Equal(t, []int64{5}, queue.queued[0].payload.UserIDs)
}

// # Inbox Scoping

// memoryInbox models the store's ownership rule: a notification id belonging
// to another user behaves exactly like a missing one, and marking an
// already-read notification again is a no-op.
type memoryInbox struct {
	rows   map[string]*notification.Notification
	nextID int
	lastID string
}

func newMemoryInbox() *memoryInbox {
	return &memoryInbox{rows: map[string]*notification.Notification{}}
}

func (m *memoryInbox) owned(userID int64, id string) (*notification.Notification, bool) {
	n, ok := m.rows[id]
	if !ok || n.UserID != userID {
		return nil, false
	}
	return n, true
}

func (m *memoryInbox) ListForUser(_ context.Context, userID int64, unreadOnly bool, _, _ int) ([]*notification.Notification, int, error) {
	var owned []*notification.Notification
	for _, n := range m.rows {
		if n.UserID != userID || (unreadOnly && n.ReadAt != nil) {
			continue
		}
		owned = append(owned, n)
	}
	return owned, len(owned), nil
}

func (m *memoryInbox) UnreadCount(_ context.Context, userID int64) (int, error) {
	count := 0
	for _, n := range m.rows {
		if n.UserID == userID && n.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (m *memoryInbox) Insert(_ context.Context, userID int64, notificationType string, _ map[string]any) error {
	m.nextID++
	m.lastID = fmt.Sprintf("n-%d", m.nextID)
	m.rows[m.lastID] = &notification.Notification{
		ID:        m.lastID,
		UserID:    userID,
		Type:      notificationType,
		CreatedAt: time.Now(),
	}
	return nil
}

func (m *memoryInbox) MarkRead(_ context.Context, userID int64, id string) error {
	n, ok := m.owned(userID, id)
	if !ok {
		return dberr.ErrNotFound
	}
	if n.ReadAt == nil {
		now := time.Now()
		n.ReadAt = &now
	}
	return nil
}

func (m *memoryInbox) MarkAllRead(_ context.Context, userID int64) error {
	now := time.Now()
	for _, n := range m.rows {
		if n.UserID == userID && n.ReadAt == nil {
			n.ReadAt = &now
		}
	}
	return nil
}

func (m *memoryInbox) Delete(_ context.Context, userID int64, id string) error {
	if _, ok := m.owned(userID, id); !ok {
		return dberr.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memoryInbox) DeleteAll(_ context.Context, userID int64) error {
	for id, n := range m.rows {
		if n.UserID == userID {
			delete(m.rows, id)
		}
	}
	return nil
}

/*
TestInbox_OwnerScoping verifies the ownership contract end to end: foreign
ids read as missing, marking twice stays a no-op, and removals only touch
the caller's rows.
*/
func TestInbox_OwnerScoping(t *testing.T) {
	inbox := newMemoryInbox()
	service := notification.NewService(inbox, &fakeRoles{}, &fakeDirectory{}, &recordingQueue{})
	ctx := context.Background()

	require.NoError(t, inbox.Insert(ctx, 2, constants.NotificationGeneral, nil))
	id := inbox.lastID

	// Another user's id is indistinguishable from a missing one.
	err := service.MarkRead(ctx, 3, id)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)

	err = service.Delete(ctx, 3, id)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)

	// Marking read is idempotent for the owner.
	require.NoError(t, service.MarkRead(ctx, 2, id))
	require.NoError(t, service.MarkRead(ctx, 2, id))

	count, err := service.UnreadCount(ctx, 2)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, service.Delete(ctx, 2, id))
	err = service.Delete(ctx, 2, id)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
}

func TestInbox_DeleteAllTouchesOnlyOwnRows(t *testing.T) {
	inbox := newMemoryInbox()
	service := notification.NewService(inbox, &fakeRoles{}, &fakeDirectory{}, &recordingQueue{})
	ctx := context.Background()

	require.NoError(t, inbox.Insert(ctx, 2, constants.NotificationGeneral, nil))
	require.NoError(t, inbox.Insert(ctx, 2, constants.NotificationGeneral, nil))
	require.NoError(t, inbox.Insert(ctx, 3, constants.NotificationGeneral, nil))

	require.NoError(t, service.DeleteAll(ctx, 2))

	mine, _, err := service.List(ctx, 2, false, pagination.Params{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Empty(t, mine)

	theirs, _, err := service.List(ctx, 3, false, pagination.Params{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}

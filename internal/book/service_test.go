// Copyright (c) 2026 Maktaba. All rights reserved.

package book_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maktaba/maktaba/internal/book"
	"github.com/maktaba/maktaba/internal/jobs"
	"github.com/maktaba/maktaba/internal/platform/apperr"
	"github.com/maktaba/maktaba/internal/platform/cache"
)

// memoryBooks is an in-memory stand-in for the postgres repository.
type memoryBooks struct {
	byID   map[int64]*book.Book
	nextID int64
	views  map[int64]int64
}

func newMemoryBooks() *memoryBooks {
	return &memoryBooks{byID: map[int64]*book.Book{}, nextID: 1, views: map[int64]int64{}}
}

func (m *memoryBooks) List(_ context.Context, status string, _ book.Filter, limit, offset int) ([]*book.Book, int, error) {
	var matched []*book.Book
	for _, b := range m.byID {
		if b.Status == status {
			matched = append(matched, b)
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

func (m *memoryBooks) FindByID(_ context.Context, id int64) (*book.Book, error) {
	b, ok := m.byID[id]
	if !ok {
		return nil, errNotFound
	}
	clone := *b
	return &clone, nil
}

func (m *memoryBooks) Create(_ context.Context, b *book.Book) error {
	b.ID = m.nextID
	m.nextID++
	clone := *b
	m.byID[b.ID] = &clone
	return nil
}

func (m *memoryBooks) Update(_ context.Context, b *book.Book) error {
	if _, ok := m.byID[b.ID]; !ok {
		return errNotFound
	}
	clone := *b
	m.byID[b.ID] = &clone
	return nil
}

func (m *memoryBooks) Delete(_ context.Context, id int64) error {
	if _, ok := m.byID[id]; !ok {
		return errNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memoryBooks) SetStatus(_ context.Context, id int64, status string) error {
	b, ok := m.byID[id]
	if !ok {
		return errNotFound
	}
	b.Status = status
	return nil
}

func (m *memoryBooks) Exists(_ context.Context, id int64) (bool, error) {
	b, ok := m.byID[id]
	return ok && b.Status == book.StatusApproved, nil
}

func (m *memoryBooks) IncrementViews(_ context.Context, id int64) error {
	m.views[id]++
	if b, ok := m.byID[id]; ok {
		b.ViewsCount++
	}
	return nil
}

func (m *memoryBooks) FileMeta(_ context.Context, bookID int64) (jobs.BookFileMeta, error) {
	b, ok := m.byID[bookID]
	if !ok {
		return jobs.BookFileMeta{}, errNotFound
	}
	return jobs.BookFileMeta{BookID: b.ID, OwnerID: b.UserID, Title: b.Title, Slug: b.Slug, FileKey: b.FileKey}, nil
}

func (m *memoryBooks) UpdateFile(_ context.Context, bookID int64, fileKey string, pages int, sizeMB float64) error {
	b, ok := m.byID[bookID]
	if !ok {
		return errNotFound
	}
	b.FileKey, b.Pages, b.SizeMB = fileKey, pages, sizeMB
	return nil
}

func (m *memoryBooks) IncrementDownloads(_ context.Context, bookID int64) error {
	if b, ok := m.byID[bookID]; ok {
		b.DownloadsCount++
	}
	return nil
}

func (m *memoryBooks) PopularityStats(_ context.Context, bookID int64) (jobs.PopularityStats, error) {
	b, ok := m.byID[bookID]
	if !ok {
		return jobs.PopularityStats{}, errNotFound
	}
	return jobs.PopularityStats{Title: b.Title, Views: b.ViewsCount, Downloads: b.DownloadsCount}, nil
}

func (m *memoryBooks) ClaimPopularNotice(_ context.Context, bookID int64) (bool, error) {
	b, ok := m.byID[bookID]
	if !ok || b.PopularNotifiedAt != nil {
		return false, nil
	}
	now := b.CreatedAt
	b.PopularNotifiedAt = &now
	return true, nil
}

var errNotFound = assert.AnError

// recordingQueue captures enqueued jobs.
type recordingQueue struct {
	kinds []string
}

func (q *recordingQueue) Enqueue(_ context.Context, kind string, _ any) (string, error) {
	q.kinds = append(q.kinds, kind)
	return "job-1", nil
}

func (q *recordingQueue) count(kind string) int {
	n := 0
	for _, k := range q.kinds {
		if k == kind {
			n++
		}
	}
	return n
}

type fakeBroadcaster struct {
	types []string
}

func (f *fakeBroadcaster) FanOut(_ context.Context, notificationType string, _ map[string]any) (int, error) {
	f.types = append(f.types, notificationType)
	return 1, nil
}

type fixture struct {
	service     *book.Service
	repository  *memoryBooks
	queue       *recordingQueue
	broadcaster *fakeBroadcaster
	redis       *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repository := newMemoryBooks()
	queue := &recordingQueue{}
	broadcaster := &fakeBroadcaster{}
	service := book.NewService(repository, newPolicy(), cache.New(client),
		queue, nil, broadcaster, t.TempDir())

	return &fixture{
		service:     service,
		repository:  repository,
		queue:       queue,
		broadcaster: broadcaster,
		redis:       srv,
	}
}

/*
TestCreate_StatusFollowsRole verifies the publication shortcut: staff
submissions are approved immediately, everyone else waits in moderation.
*/
func TestCreate_StatusFollowsRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fromMember, err := f.service.Create(ctx, 2, book.CreateInput{Title: "Divan"})
	require.NoError(t, err)
	assert.Equal(t, book.StatusPending, fromMember.Status)

	fromAdmin, err := f.service.Create(ctx, 1, book.CreateInput{Title: "Masnavi"})
	require.NoError(t, err)
	assert.Equal(t, book.StatusApproved, fromAdmin.Status)
}

/*
TestGet_CountsViewOncePerSession verifies the dedup marker: the same viewer
reading twice bumps views_count once, and each counted view schedules a
popularity re-evaluation.
*/
func TestGet_CountsViewOncePerSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.service.Create(ctx, 1, book.CreateInput{Title: "Masnavi"})
	require.NoError(t, err)

	_, err = f.service.Get(ctx, 2, "u2", b.ID)
	require.NoError(t, err)
	_, err = f.service.Get(ctx, 2, "u2", b.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(1), f.repository.views[b.ID])
	assert.Equal(t, 1, f.queue.count(jobs.KindPopularityCheck))

	// A different session counts again.
	_, err = f.service.Get(ctx, 0, "ip10.0.0.9", b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), f.repository.views[b.ID])
}

/*
TestGet_PendingBookIsHidden verifies that a pending book reads as missing
for everyone but its owner and the moderators.
*/
func TestGet_PendingBookIsHidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.service.Create(ctx, 2, book.CreateInput{Title: "Divan"})
	require.NoError(t, err)

	// Owner and moderator see it.
	_, err = f.service.Get(ctx, 2, "u2", b.ID)
	assert.NoError(t, err)
	_, err = f.service.Get(ctx, 1, "u1", b.ID)
	assert.NoError(t, err)

	// A stranger and an anonymous viewer get NotFound, not Forbidden.
	_, err = f.service.Get(ctx, 3, "u3", b.ID)
	require.Error(t, err)
	_, err = f.service.Get(ctx, 0, "ip10.0.0.9", b.ID)
	require.Error(t, err)

	// Hidden books never count views.
	assert.Equal(t, int64(0), f.repository.views[b.ID])
}

/*
TestApprove_NotifiesOwnerAndAnnounces verifies approval flips the status,
queues the owner's publication notice, and fans out the announcement.
*/
func TestApprove_NotifiesOwnerAndAnnounces(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.service.Create(ctx, 2, book.CreateInput{Title: "Divan"})
	require.NoError(t, err)

	approved, err := f.service.Approve(ctx, 1, b.ID)
	require.NoError(t, err)
	assert.Equal(t, book.StatusApproved, approved.Status)

	assert.Equal(t, 1, f.queue.count(jobs.KindNotifyUser))
	assert.Equal(t, []string{"book_new"}, f.broadcaster.types)

	// Re-approving is a no-op, not a second announcement.
	_, err = f.service.Approve(ctx, 1, b.ID)
	require.NoError(t, err)
	assert.Len(t, f.broadcaster.types, 1)
}

/*
TestReject_HardDeletesPendingBook verifies that rejection removes the record
entirely and tells the owner, and that an already published book cannot be
rejected.
*/
func TestReject_HardDeletesPendingBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending, err := f.service.Create(ctx, 2, book.CreateInput{Title: "Divan"})
	require.NoError(t, err)

	require.NoError(t, f.service.Reject(ctx, 1, pending.ID))
	_, ok := f.repository.byID[pending.ID]
	assert.False(t, ok)
	assert.Equal(t, 1, f.queue.count(jobs.KindNotifyUser))

	published, err := f.service.Create(ctx, 1, book.CreateInput{Title: "Masnavi"})
	require.NoError(t, err)

	err = f.service.Reject(ctx, 1, published.ID)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperr.As(err).Code)
	_, ok = f.repository.byID[published.ID]
	assert.True(t, ok)
}

/*
TestDownload_QueuesFulfillment verifies the request path only enqueues; the
counters stay untouched until the job runs.
*/
func TestDownload_QueuesFulfillment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.service.Create(ctx, 1, book.CreateInput{Title: "Masnavi"})
	require.NoError(t, err)
	require.NoError(t, f.repository.UpdateFile(ctx, b.ID, "books/1/masnavi.pdf", 120, 4.2))

	require.NoError(t, f.service.Download(ctx, 2, b.ID))

	assert.Equal(t, 1, f.queue.count(jobs.KindDownloadFulfill))
	assert.Equal(t, int64(0), f.repository.byID[b.ID].DownloadsCount)
}

func TestDownload_RejectsFilelessBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.service.Create(ctx, 1, book.CreateInput{Title: "Masnavi"})
	require.NoError(t, err)

	err = f.service.Download(ctx, 2, b.ID)
	require.Error(t, err)
	assert.Equal(t, 0, f.queue.count(jobs.KindDownloadFulfill))
}

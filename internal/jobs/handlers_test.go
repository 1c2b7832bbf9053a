// Copyright (c) 2026 Maktaba. All rights reserved.

package jobs_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maktaba/maktaba/internal/jobs"
	"github.com/maktaba/maktaba/internal/platform/cache"
	"github.com/maktaba/maktaba/internal/platform/constants"
	"github.com/maktaba/maktaba/internal/platform/queue"
)

// # Fakes

type fakeBookStore struct {
	meta       jobs.BookFileMeta
	metaErr    error
	stats      jobs.PopularityStats
	claimed    bool
	increments int
	fileKey    string
	pages      int
	sizeMB     float64
}

func (f *fakeBookStore) FileMeta(context.Context, int64) (jobs.BookFileMeta, error) {
	return f.meta, f.metaErr
}

func (f *fakeBookStore) UpdateFile(_ context.Context, _ int64, fileKey string, pages int, sizeMB float64) error {
	f.fileKey, f.pages, f.sizeMB = fileKey, pages, sizeMB
	return nil
}

func (f *fakeBookStore) IncrementDownloads(context.Context, int64) error {
	f.increments++
	return nil
}

func (f *fakeBookStore) PopularityStats(context.Context, int64) (jobs.PopularityStats, error) {
	return f.stats, nil
}

func (f *fakeBookStore) ClaimPopularNotice(context.Context, int64) (bool, error) {
	if f.claimed {
		return false, nil
	}
	f.claimed = true
	return true, nil
}

type fakeDownloadStore struct {
	records []int64
}

func (f *fakeDownloadStore) Record(_ context.Context, _ int64, userID int64, _ time.Time) error {
	f.records = append(f.records, userID)
	return nil
}

type fakeNotifier struct {
	inserted []int64
}

func (f *fakeNotifier) Insert(_ context.Context, userID int64, _ string, _ map[string]any) error {
	f.inserted = append(f.inserted, userID)
	return nil
}

type fakeBroadcaster struct {
	types []string
}

func (f *fakeBroadcaster) FanOut(_ context.Context, notificationType string, _ map[string]any) (int, error) {
	f.types = append(f.types, notificationType)
	return 42, nil
}

type fakeFileStore struct {
	missing bool
}

func (f *fakeFileStore) Put(context.Context, string, io.Reader, int64, string) error { return nil }

func (f *fakeFileStore) Stat(context.Context, string) (int64, error) {
	if f.missing {
		// Wrapped exactly the way MinioStore.Stat returns it.
		return 0, fmt.Errorf("objstore_stat_failed: %w", minio.ErrorResponse{Code: "NoSuchKey"})
	}
	return 1024, nil
}

func (f *fakeFileStore) PresignGet(context.Context, string, time.Duration) (string, error) {
	return "", nil
}

func (f *fakeFileStore) Remove(context.Context, string) error { return nil }

type fakeEnqueuer struct {
	kinds []string
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, kind string, _ any) (string, error) {
	f.kinds = append(f.kinds, kind)
	return "job-1", nil
}

type fixture struct {
	books     *fakeBookStore
	downloads *fakeDownloadStore
	notifier  *fakeNotifier
	broadcast *fakeBroadcaster
	files     *fakeFileStore
	enqueue   *fakeEnqueuer
	cache     *cache.Cache
	handlers  *jobs.Handlers
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{
		books:     &fakeBookStore{meta: jobs.BookFileMeta{BookID: 9, Title: "Masnavi", Slug: "masnavi", FileKey: "books/9/masnavi.pdf"}},
		downloads: &fakeDownloadStore{},
		notifier:  &fakeNotifier{},
		broadcast: &fakeBroadcaster{},
		files:     &fakeFileStore{},
		enqueue:   &fakeEnqueuer{},
		cache:     cache.New(client),
	}
	f.handlers = jobs.NewHandlers(f.books, f.downloads, f.notifier, f.broadcast, f.files, f.enqueue, f.cache, slog.Default())
	return f
}

func jobFor(t *testing.T, payload any) queue.Job {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return queue.Job{ID: "j1", Payload: raw}
}

// # Download Fulfillment

/*
TestDownloadFulfill_AuthenticatedUser checks the full path: counter moves,
a personal record appears, and a popularity re-check is queued.
*/
func TestDownloadFulfill_AuthenticatedUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.handlers.HandleDownloadFulfill(ctx, jobFor(t, jobs.DownloadFulfillPayload{BookID: 9, UserID: 5}))
	require.NoError(t, err)

	assert.Equal(t, 1, f.books.increments)
	assert.Equal(t, []int64{5}, f.downloads.records)
	assert.Contains(t, f.enqueue.kinds, jobs.KindPopularityCheck)
}

func TestDownloadFulfill_AnonymousCountsWithoutRecord(t *testing.T) {
	f := newFixture(t)

	err := f.handlers.HandleDownloadFulfill(context.Background(), jobFor(t, jobs.DownloadFulfillPayload{BookID: 9, UserID: 0}))
	require.NoError(t, err)

	assert.Equal(t, 1, f.books.increments)
	assert.Empty(t, f.downloads.records)
}

/*
TestDownloadFulfill_MissingFileLeavesCounters verifies the existence check
runs before any side effect: no increment, no record.
*/
func TestDownloadFulfill_MissingFileLeavesCounters(t *testing.T) {
	f := newFixture(t)
	f.books.meta.FileKey = ""

	err := f.handlers.HandleDownloadFulfill(context.Background(), jobFor(t, jobs.DownloadFulfillPayload{BookID: 9, UserID: 5}))
	require.NoError(t, err)

	assert.Zero(t, f.books.increments)
	assert.Empty(t, f.downloads.records)
}

/*
TestDownloadFulfill_VanishedFileFailsFast verifies the classification of a
missing stored object: the job is dropped with no side effects instead of
being retried, even though the store wraps the backend error.
*/
func TestDownloadFulfill_VanishedFileFailsFast(t *testing.T) {
	f := newFixture(t)
	f.files.missing = true

	err := f.handlers.HandleDownloadFulfill(context.Background(), jobFor(t, jobs.DownloadFulfillPayload{BookID: 9, UserID: 5}))
	require.NoError(t, err)

	assert.Zero(t, f.books.increments)
	assert.Empty(t, f.downloads.records)
	assert.Empty(t, f.enqueue.kinds)
}

// # Notification Delivery

func TestNotifyUser_InsertsPerRecipient(t *testing.T) {
	f := newFixture(t)

	err := f.handlers.HandleNotifyUser(context.Background(), jobFor(t, jobs.NotifyUserPayload{
		UserIDs: []int64{1, 2, 3},
		Type:    constants.NotificationGeneral,
		Data:    map[string]any{"message": "hello"},
	}))
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 3}, f.notifier.inserted)
}

// # Popularity

/*
TestPopularityCheck_Thresholds exercises the strict-inequality boundaries:
exactly 1000 views or 500 downloads is not popular, one more is.
*/
func TestPopularityCheck_Thresholds(t *testing.T) {
	tests := []struct {
		name      string
		views     int64
		downloads int64
		announced bool
	}{
		{"below_both", 10, 10, false},
		{"views_at_threshold", 1000, 0, false},
		{"views_over_threshold", 1001, 0, true},
		{"downloads_at_threshold", 0, 500, false},
		{"downloads_over_threshold", 0, 501, true},
		{"both_over", 5000, 900, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.books.stats = jobs.PopularityStats{Title: "Masnavi", Views: tt.views, Downloads: tt.downloads}

			err := f.handlers.HandlePopularityCheck(context.Background(), jobFor(t, jobs.PopularityCheckPayload{BookID: 9}))
			require.NoError(t, err)

			if tt.announced {
				assert.Equal(t, []string{constants.NotificationBookPopular}, f.broadcast.types)
			} else {
				assert.Empty(t, f.broadcast.types)
			}
		})
	}
}

/*
TestPopularityCheck_AnnouncesOnce verifies the debounce: a book that keeps
gaining views after the announcement never announces twice.
*/
func TestPopularityCheck_AnnouncesOnce(t *testing.T) {
	f := newFixture(t)
	f.books.stats = jobs.PopularityStats{Title: "Masnavi", Views: 2000, Downloads: 800}
	ctx := context.Background()
	job := jobFor(t, jobs.PopularityCheckPayload{BookID: 9})

	require.NoError(t, f.handlers.HandlePopularityCheck(ctx, job))
	require.NoError(t, f.handlers.HandlePopularityCheck(ctx, job))
	require.NoError(t, f.handlers.HandlePopularityCheck(ctx, job))

	assert.Len(t, f.broadcast.types, 1)
}

// # File Ingest

// stagePDF writes a one-page PDF with a correct xref table, the smallest
// document the ingest parser accepts.
func stagePDF(t *testing.T) string {
	t.Helper()

	var buf bytes.Buffer
	offsets := make([]int, 4)

	buf.WriteString("%PDF-1.4\n")
	offsets[1] = buf.Len()
	buf.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	offsets[2] = buf.Len()
	buf.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	offsets[3] = buf.Len()
	buf.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n")

	xrefStart := buf.Len()
	buf.WriteString("xref\n0 4\n0000000000 65535 f \n")
	for _, offset := range offsets[1:] {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offset)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size 4 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xrefStart)

	path := filepath.Join(t.TempDir(), "staged.pdf")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

/*
TestFileIngest_RefreshesCachedDetail verifies the eviction step: the detail
entry has no expiry, so a read cached before ingestion must not survive the
metadata update.
*/
func TestFileIngest_RefreshesCachedDetail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	detailKey := cache.DetailKey(constants.CacheKeyBookDetail, 9)

	// A reader lands before the job runs and pins the fileless row.
	stale, err := cache.RememberForever(f.cache, ctx, detailKey, func(context.Context) (int, error) {
		return f.books.pages, nil
	})
	require.NoError(t, err)
	require.Zero(t, stale)

	err = f.handlers.HandleFileIngest(ctx, jobFor(t, jobs.FileIngestPayload{BookID: 9, StagingPath: stagePDF(t)}))
	require.NoError(t, err)
	assert.Equal(t, "books/9/masnavi.pdf", f.books.fileKey)
	assert.Equal(t, 1, f.books.pages)

	// The next read must recompute from the updated row.
	fresh, err := cache.RememberForever(f.cache, ctx, detailKey, func(context.Context) (int, error) {
		return f.books.pages, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, fresh)
}

func TestFileIngest_RemovesStagingFile(t *testing.T) {
	f := newFixture(t)
	path := stagePDF(t)

	err := f.handlers.HandleFileIngest(context.Background(), jobFor(t, jobs.FileIngestPayload{BookID: 9, StagingPath: path}))
	require.NoError(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

// Copyright (c) 2026 Maktaba. All rights reserved.

package book

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/maktaba/maktaba/internal/jobs"
	"github.com/maktaba/maktaba/internal/platform/apperr"
	"github.com/maktaba/maktaba/internal/platform/cache"
	"github.com/maktaba/maktaba/internal/platform/constants"
	"github.com/maktaba/maktaba/internal/platform/objstore"
	"github.com/maktaba/maktaba/internal/platform/validate"
	"github.com/maktaba/maktaba/pkg/pagination"
	"github.com/maktaba/maktaba/pkg/slug"
)

// JobEnqueuer appends jobs for asynchronous processing.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, kind string, payload any) (string, error)
}

// Broadcaster fans a notification out to every user.
type Broadcaster interface {
	FanOut(ctx context.Context, notificationType string, data map[string]any) (int, error)
}

// Service implements the book catalog and its publication workflow.
//
// Uploads are staged on local disk and handed to the ingestion job, which
// owns the object store write. The service never blocks a request on file
// parsing or uploads.
type Service struct {
	repository  Repository
	policy      *Policy
	cache       *cache.Cache
	queue       JobEnqueuer
	files       objstore.Store
	broadcaster Broadcaster
	uploadDir   string
}

// NewService constructs the book service.
func NewService(
	repository Repository,
	policy *Policy,
	c *cache.Cache,
	queue JobEnqueuer,
	files objstore.Store,
	broadcaster Broadcaster,
	uploadDir string,
) *Service {
	return &Service{
		repository:  repository,
		policy:      policy,
		cache:       c,
		queue:       queue,
		files:       files,
		broadcaster: broadcaster,
		uploadDir:   uploadDir,
	}
}

// errBookNotFound hides pending and fileless books from callers who may not
// know they exist.
var errBookNotFound = apperr.NotFound("Book")

type listResult struct {
	Books []*Book `json:"books"`
	Total int     `json:"total"`
}

// List returns a page of the approved catalog. Anonymous viewers are allowed;
// authenticated ones must still hold view-books so a revocation bites
// immediately.
func (service *Service) List(ctx context.Context, actorID int64, f Filter, page pagination.Params) ([]*Book, int, error) {
	if actorID != 0 {
		if err := service.policy.CanView(ctx, actorID); err != nil {
			return nil, 0, err
		}
	}

	key := cache.ListKey(constants.CacheKeyBookList, page.CacheParams(map[string]string{
		"q":        f.Query,
		"author":   idParam(f.AuthorID),
		"category": idParam(f.CategoryID),
		"series":   idParam(f.SeriesID),
	}))
	result, err := cache.Remember(service.cache, ctx, key, constants.CacheTTLVolatileList,
		func(ctx context.Context) (listResult, error) {
			books, total, err := service.repository.List(ctx, StatusApproved, f, page.Limit, page.Offset())
			if err != nil {
				return listResult{}, err
			}
			return listResult{Books: books, Total: total}, nil
		})
	if err != nil {
		return nil, 0, err
	}

	return result.Books, result.Total, nil
}

// Pending returns the moderation queue.
func (service *Service) Pending(ctx context.Context, actorID int64, page pagination.Params) ([]*Book, int, error) {
	if err := service.policy.CanModerate(ctx, actorID); err != nil {
		return nil, 0, err
	}

	key := cache.ListKey(constants.CacheKeyBookPending, page.CacheParams(nil))
	result, err := cache.Remember(service.cache, ctx, key, constants.CacheTTLVolatileList,
		func(ctx context.Context) (listResult, error) {
			books, total, err := service.repository.List(ctx, StatusPending, Filter{}, page.Limit, page.Offset())
			if err != nil {
				return listResult{}, err
			}
			return listResult{Books: books, Total: total}, nil
		})
	if err != nil {
		return nil, 0, err
	}

	return result.Books, result.Total, nil
}

// Get returns one book and counts the view.
//
// viewerKey identifies the viewing session (user id, or client IP for
// anonymous viewers); a redis marker dedupes repeat views for 12 hours.
// The counter lives outside the cached detail, so a stale views_count on
// the detail payload is expected and harmless.
func (service *Service) Get(ctx context.Context, actorID int64, viewerKey string, id int64) (*Book, error) {
	if actorID != 0 {
		if err := service.policy.CanView(ctx, actorID); err != nil {
			return nil, err
		}
	}

	key := cache.DetailKey(constants.CacheKeyBookDetail, id)
	b, err := cache.RememberForever(service.cache, ctx, key,
		func(ctx context.Context) (*Book, error) {
			return service.repository.FindByID(ctx, id)
		})
	if err != nil {
		return nil, err
	}

	if b.Status != StatusApproved {
		if err := service.requireOwnerOrModerator(ctx, actorID, b); err != nil {
			return nil, err
		}
		return b, nil
	}

	service.countView(ctx, id, viewerKey)
	return b, nil
}

// CreateInput holds the book form plus its uploaded file.
type CreateInput struct {
	Title       string
	Description string
	AuthorID    *int64
	CategoryID  *int64
	SeriesID    *int64

	// File is the uploaded PDF; nil means no file yet.
	File     io.Reader
	Filename string
}

// Create adds a book. Staff submissions are approved immediately; everyone
// else enters the moderation queue. The file, if present, is staged locally
// and ingested in the background.
func (service *Service) Create(ctx context.Context, actorID int64, input CreateInput) (*Book, error) {
	if err := service.policy.CanCreate(ctx, actorID); err != nil {
		return nil, err
	}

	if err := service.validateInput(input.Title, input.Description); err != nil {
		return nil, err
	}

	staff, err := service.policy.IsStaff(ctx, actorID)
	if err != nil {
		return nil, err
	}

	status := StatusPending
	if staff {
		status = StatusApproved
	}

	b := &Book{
		UserID:      actorID,
		AuthorID:    input.AuthorID,
		CategoryID:  input.CategoryID,
		SeriesID:    input.SeriesID,
		Title:       input.Title,
		Slug:        slug.From(input.Title),
		Description: input.Description,
		Status:      status,
	}
	if err := service.repository.Create(ctx, b); err != nil {
		return nil, err
	}

	if input.File != nil {
		if err := service.stageAndIngest(ctx, b.ID, input.File); err != nil {
			return nil, err
		}
	}

	service.invalidateLists(ctx)
	return b, nil
}

// UpdateInput holds the editable book fields plus an optional replacement
// file.
type UpdateInput struct {
	Title       string
	Description string
	AuthorID    *int64
	CategoryID  *int64
	SeriesID    *int64

	File     io.Reader
	Filename string
}

// Update edits a book. A replacement file re-runs ingestion, which overwrites
// the previous object under the book's fixed key.
func (service *Service) Update(ctx context.Context, actorID, id int64, input UpdateInput) (*Book, error) {
	b, err := service.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := service.policy.CanUpdate(ctx, actorID, b); err != nil {
		return nil, err
	}

	if err := service.validateInput(input.Title, input.Description); err != nil {
		return nil, err
	}

	b.Title = input.Title
	b.Slug = slug.From(input.Title)
	b.Description = input.Description
	b.AuthorID = input.AuthorID
	b.CategoryID = input.CategoryID
	b.SeriesID = input.SeriesID
	if err := service.repository.Update(ctx, b); err != nil {
		return nil, err
	}

	if input.File != nil {
		if err := service.stageAndIngest(ctx, b.ID, input.File); err != nil {
			return nil, err
		}
	}

	service.invalidate(ctx, id)
	return b, nil
}

// Delete removes a book and its stored file.
func (service *Service) Delete(ctx context.Context, actorID, id int64) error {
	b, err := service.repository.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := service.policy.CanDelete(ctx, actorID, b); err != nil {
		return err
	}

	if err := service.repository.Delete(ctx, id); err != nil {
		return err
	}

	if b.HasFile() {
		if err := service.files.Remove(ctx, b.FileKey); err != nil && !objstore.IsNotFound(err) {
			return err
		}
	}

	service.invalidate(ctx, id)
	return nil
}

// Approve publishes a pending book, tells its owner, and announces it to
// every user.
func (service *Service) Approve(ctx context.Context, actorID, id int64) (*Book, error) {
	if err := service.policy.CanModerate(ctx, actorID); err != nil {
		return nil, err
	}

	b, err := service.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if b.Status == StatusApproved {
		return b, nil
	}

	if err := service.repository.SetStatus(ctx, id, StatusApproved); err != nil {
		return nil, err
	}
	b.Status = StatusApproved

	service.invalidate(ctx, id)

	service.notifyOwner(ctx, b, constants.NotificationPublication,
		fmt.Sprintf("Your book %q was approved and published", b.Title))
	_, _ = service.broadcaster.FanOut(ctx, constants.NotificationBookNew, map[string]any{
		"book_id": b.ID,
		"title":   b.Title,
		"author":  b.AuthorName,
	})

	return b, nil
}

// Reject removes a pending book outright and tells its owner.
func (service *Service) Reject(ctx context.Context, actorID, id int64) error {
	if err := service.policy.CanModerate(ctx, actorID); err != nil {
		return err
	}

	b, err := service.repository.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if b.Status != StatusPending {
		return apperr.Conflict("Only pending books can be rejected")
	}

	if err := service.repository.Delete(ctx, id); err != nil {
		return err
	}

	if b.HasFile() {
		if err := service.files.Remove(ctx, b.FileKey); err != nil && !objstore.IsNotFound(err) {
			return err
		}
	}

	service.invalidate(ctx, id)
	service.notifyOwner(ctx, b, constants.NotificationPublication,
		fmt.Sprintf("Your book %q was rejected", b.Title))
	return nil
}

// Download accepts a download request and fulfills it in the background.
// actorID is zero for anonymous downloads, which count but leave no
// per-user record.
func (service *Service) Download(ctx context.Context, actorID, id int64) error {
	b, err := service.repository.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if b.Status != StatusApproved {
		return errBookNotFound
	}
	if !b.HasFile() {
		return apperr.Conflict("This book has no file yet")
	}

	_, err = service.queue.Enqueue(ctx, jobs.KindDownloadFulfill, jobs.DownloadFulfillPayload{
		BookID: id,
		UserID: actorID,
	})
	return err
}

// PresignDownload returns a short-lived URL for the book's file. Used after
// fulfillment has been accepted.
func (service *Service) PresignDownload(ctx context.Context, id int64) (string, error) {
	b, err := service.repository.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	if b.Status != StatusApproved || !b.HasFile() {
		return "", errBookNotFound
	}
	return service.files.PresignGet(ctx, b.FileKey, constants.DownloadURLTTL)
}

// stageAndIngest copies the upload to the local staging directory and hands
// it to the ingestion job.
func (service *Service) stageAndIngest(ctx context.Context, bookID int64, file io.Reader) error {
	if err := os.MkdirAll(service.uploadDir, 0o755); err != nil {
		return apperr.Internal(err)
	}

	stagingPath := filepath.Join(service.uploadDir, uuid.Must(uuid.NewV7()).String()+".pdf")
	staged, err := os.Create(stagingPath)
	if err != nil {
		return apperr.Internal(err)
	}

	if _, err := io.Copy(staged, file); err != nil {
		staged.Close()
		os.Remove(stagingPath)
		return apperr.Internal(err)
	}
	if err := staged.Close(); err != nil {
		os.Remove(stagingPath)
		return apperr.Internal(err)
	}

	_, err = service.queue.Enqueue(ctx, jobs.KindFileIngest, jobs.FileIngestPayload{
		BookID:      bookID,
		StagingPath: stagingPath,
	})
	return err
}

// countView bumps views_count at most once per viewer session and schedules
// a popularity re-evaluation when it does.
func (service *Service) countView(ctx context.Context, bookID int64, viewerKey string) {
	if viewerKey == "" {
		return
	}

	marker := constants.CacheKeyViewMarker + strconv.FormatInt(bookID, 10) + ":" + viewerKey
	created, err := service.cache.MarkOnce(ctx, marker, constants.ViewMarkerTTL)
	if err != nil || !created {
		return
	}

	if err := service.repository.IncrementViews(ctx, bookID); err != nil {
		return
	}
	_, _ = service.queue.Enqueue(ctx, jobs.KindPopularityCheck, jobs.PopularityCheckPayload{BookID: bookID})
}

func (service *Service) notifyOwner(ctx context.Context, b *Book, notificationType, message string) {
	_, _ = service.queue.Enqueue(ctx, jobs.KindNotifyUser, jobs.NotifyUserPayload{
		UserIDs: []int64{b.UserID},
		Type:    notificationType,
		Data: map[string]any{
			"book_id": b.ID,
			"title":   b.Title,
			"message": message,
		},
	})
}

func (service *Service) requireOwnerOrModerator(ctx context.Context, actorID int64, b *Book) error {
	if actorID == 0 {
		return errBookNotFound
	}
	if b.UserID == actorID {
		return nil
	}
	if err := service.policy.CanModerate(ctx, actorID); err != nil {
		// A pending book is invisible to everyone else.
		return errBookNotFound
	}
	return nil
}

func (service *Service) validateInput(title, description string) error {
	v := &validate.Validator{}
	v.Required("title", title).MaxLen("title", title, 200)
	v.MaxLen("description", description, 5000)
	return v.Err()
}

func (service *Service) invalidateLists(ctx context.Context) {
	_ = service.cache.ForgetPrefix(ctx, constants.CacheKeyBookList)
	_ = service.cache.ForgetPrefix(ctx, constants.CacheKeyBookPending)
	_ = service.cache.ForgetPrefix(ctx, constants.CacheKeyHome)
}

func (service *Service) invalidate(ctx context.Context, bookID int64) {
	_ = service.cache.Forget(ctx, cache.DetailKey(constants.CacheKeyBookDetail, bookID))
	service.invalidateLists(ctx)
}

func idParam(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}



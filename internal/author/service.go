// Copyright (c) 2026 Maktaba. All rights reserved.

package author

import (
	"context"
	"time"

	"github.com/maktaba/maktaba/internal/jobs"
	"github.com/maktaba/maktaba/internal/platform/apperr"
	"github.com/maktaba/maktaba/internal/platform/cache"
	"github.com/maktaba/maktaba/internal/platform/constants"
	"github.com/maktaba/maktaba/internal/platform/validate"
	"github.com/maktaba/maktaba/internal/rbac"
	"github.com/maktaba/maktaba/pkg/pagination"
	"github.com/maktaba/maktaba/pkg/slug"
)

// RoleChecker is the slice of the rbac evaluator this service needs.
type RoleChecker interface {
	HasRole(ctx context.Context, userID int64, roleName string) (bool, error)
}

// JobEnqueuer appends jobs for asynchronous delivery.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, kind string, payload any) (string, error)
}

// Service manages the author catalog and its request flow.
//
// Anyone authenticated may submit a request; the admin roles moderate them.
// Approving a request creates or corrects the catalog entry and removes the
// request. Staff submissions skip moderation and materialize immediately.
type Service struct {
	repository Repository
	roles      RoleChecker
	cache      *cache.Cache
	queue      JobEnqueuer
}

// NewService constructs the author service.
func NewService(repository Repository, roles RoleChecker, c *cache.Cache, queue JobEnqueuer) *Service {
	return &Service{repository: repository, roles: roles, cache: c, queue: queue}
}

var errAuthorDenied = apperr.Forbidden("You are not allowed to manage authors")

type listResult struct {
	Authors []*Author `json:"authors"`
	Total   int       `json:"total"`
}

// List returns a page of authors.
func (service *Service) List(ctx context.Context, page pagination.Params) ([]*Author, int, error) {
	key := cache.ListKey(constants.CacheKeyAuthorList, page.CacheParams(nil))
	result, err := cache.Remember(service.cache, ctx, key, constants.CacheTTLVolatileList,
		func(ctx context.Context) (listResult, error) {
			authors, total, err := service.repository.List(ctx, page.Limit, page.Offset())
			if err != nil {
				return listResult{}, err
			}
			return listResult{Authors: authors, Total: total}, nil
		})
	if err != nil {
		return nil, 0, err
	}

	return result.Authors, result.Total, nil
}

// Get returns one author.
func (service *Service) Get(ctx context.Context, id int64) (*Author, error) {
	key := cache.DetailKey(constants.CacheKeyAuthorDetail, id)
	return cache.Remember(service.cache, ctx, key, constants.CacheTTLVolatileList,
		func(ctx context.Context) (*Author, error) {
			return service.repository.FindByID(ctx, id)
		})
}

// Input holds author fields shared by requests and direct edits.
type Input struct {
	AuthorID  *int64
	Name      string
	Biography string
	Birthdate *time.Time
}

// SubmitRequest stages an author proposal. A staff actor's proposal is
// materialized immediately instead of waiting for moderation.
func (service *Service) SubmitRequest(ctx context.Context, actorID int64, input Input) (*Request, error) {
	if err := service.validateInput(input); err != nil {
		return nil, err
	}

	if input.AuthorID != nil {
		if _, err := service.repository.FindByID(ctx, *input.AuthorID); err != nil {
			return nil, err
		}
	}

	staff, err := service.isStaff(ctx, actorID)
	if err != nil {
		return nil, err
	}

	request := &Request{
		UserID:    actorID,
		AuthorID:  input.AuthorID,
		Name:      input.Name,
		Biography: input.Biography,
		Birthdate: input.Birthdate,
		Status:    RequestPending,
	}

	if staff {
		if _, err := service.materialize(ctx, request); err != nil {
			return nil, err
		}
		request.Status = RequestApproved
		service.invalidate(ctx)
		return request, nil
	}

	if err := service.repository.CreateRequest(ctx, request); err != nil {
		return nil, err
	}
	return request, nil
}

// UpdateRequest edits a pending request. Only its owner or staff may touch it.
func (service *Service) UpdateRequest(ctx context.Context, actorID, requestID int64, input Input) (*Request, error) {
	request, err := service.repository.FindRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if request.UserID != actorID {
		staff, err := service.isStaff(ctx, actorID)
		if err != nil {
			return nil, err
		}
		if !staff {
			return nil, errAuthorDenied
		}
	}

	if err := service.validateInput(input); err != nil {
		return nil, err
	}

	request.AuthorID = input.AuthorID
	request.Name = input.Name
	request.Biography = input.Biography
	request.Birthdate = input.Birthdate
	if err := service.repository.UpdateRequest(ctx, request); err != nil {
		return nil, err
	}
	return request, nil
}

// ListRequests returns the moderation queue.
func (service *Service) ListRequests(ctx context.Context, actorID int64, page pagination.Params) ([]*Request, int, error) {
	if err := service.requireStaff(ctx, actorID); err != nil {
		return nil, 0, err
	}
	return service.repository.ListRequests(ctx, page.Limit, page.Offset())
}

// Approve materializes a request into the catalog, removes the request, and
// tells the requester.
func (service *Service) Approve(ctx context.Context, actorID, requestID int64) (*Author, error) {
	if err := service.requireStaff(ctx, actorID); err != nil {
		return nil, err
	}

	request, err := service.repository.FindRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	a, err := service.materialize(ctx, request)
	if err != nil {
		return nil, err
	}

	if err := service.repository.DeleteRequest(ctx, requestID); err != nil {
		return nil, err
	}

	service.invalidate(ctx)
	service.notifyRequester(ctx, request.UserID, "Your author request was approved", a.Name)
	return a, nil
}

// Reject drops a request without touching the catalog.
func (service *Service) Reject(ctx context.Context, actorID, requestID int64) error {
	if err := service.requireStaff(ctx, actorID); err != nil {
		return err
	}

	request, err := service.repository.FindRequestByID(ctx, requestID)
	if err != nil {
		return err
	}

	if err := service.repository.DeleteRequest(ctx, requestID); err != nil {
		return err
	}

	service.notifyRequester(ctx, request.UserID, "Your author request was rejected", request.Name)
	return nil
}

// Update edits a catalog entry directly, bypassing the request flow.
func (service *Service) Update(ctx context.Context, actorID, authorID int64, input Input) (*Author, error) {
	if err := service.requireStaff(ctx, actorID); err != nil {
		return nil, err
	}

	a, err := service.repository.FindByID(ctx, authorID)
	if err != nil {
		return nil, err
	}

	if err := service.validateInput(input); err != nil {
		return nil, err
	}

	a.Name = input.Name
	a.Slug = slug.From(input.Name)
	a.Biography = input.Biography
	a.Birthdate = input.Birthdate
	if err := service.repository.Update(ctx, a); err != nil {
		return nil, err
	}

	service.invalidate(ctx)
	return a, nil
}

// Delete removes a catalog entry.
func (service *Service) Delete(ctx context.Context, actorID, authorID int64) error {
	if err := service.requireStaff(ctx, actorID); err != nil {
		return err
	}

	if err := service.repository.Delete(ctx, authorID); err != nil {
		return err
	}

	service.invalidate(ctx)
	return nil
}

// materialize applies a request to the catalog, either creating a new author
// or correcting the one it targets.
func (service *Service) materialize(ctx context.Context, request *Request) (*Author, error) {
	if request.AuthorID != nil {
		a, err := service.repository.FindByID(ctx, *request.AuthorID)
		if err != nil {
			return nil, err
		}
		a.Name = request.Name
		a.Slug = slug.From(request.Name)
		a.Biography = request.Biography
		a.Birthdate = request.Birthdate
		if err := service.repository.Update(ctx, a); err != nil {
			return nil, err
		}
		return a, nil
	}

	a := &Author{
		UserID:    &request.UserID,
		Name:      request.Name,
		Slug:      slug.From(request.Name),
		Biography: request.Biography,
		Birthdate: request.Birthdate,
	}
	if err := service.repository.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (service *Service) notifyRequester(ctx context.Context, userID int64, message, authorName string) {
	_, _ = service.queue.Enqueue(ctx, jobs.KindNotifyUser, jobs.NotifyUserPayload{
		UserIDs: []int64{userID},
		Type:    constants.NotificationGeneral,
		Data:    map[string]any{"message": message, "author": authorName},
	})
}

func (service *Service) validateInput(input Input) error {
	v := &validate.Validator{}
	v.Required("name", input.Name).MaxLen("name", input.Name, 120)
	v.MaxLen("biography", input.Biography, 5000)
	return v.Err()
}

// invalidate clears authors plus the book and home views that embed them.
func (service *Service) invalidate(ctx context.Context) {
	_ = service.cache.ForgetPrefix(ctx, constants.CacheKeyAuthorList)
	_ = service.cache.ForgetPrefix(ctx, constants.CacheKeyAuthorDetail)
	_ = service.cache.ForgetPrefix(ctx, constants.CacheKeyBookPrefix)
	_ = service.cache.ForgetPrefix(ctx, constants.CacheKeyHome)
}

func (service *Service) isStaff(ctx context.Context, actorID int64) (bool, error) {
	for _, name := range []string{rbac.RoleAdmin, rbac.RoleSuperAdmin} {
		held, err := service.roles.HasRole(ctx, actorID, name)
		if err != nil {
			return false, err
		}
		if held {
			return true, nil
		}
	}
	return false, nil
}

func (service *Service) requireStaff(ctx context.Context, actorID int64) error {
	staff, err := service.isStaff(ctx, actorID)
	if err != nil {
		return err
	}
	if !staff {
		return errAuthorDenied
	}
	return nil
}

// Copyright (c) 2026 Maktaba. All rights reserved.

package comment

import (
	"context"

	"github.com/maktaba/maktaba/internal/platform/apperr"
	"github.com/maktaba/maktaba/internal/platform/cache"
	"github.com/maktaba/maktaba/internal/platform/constants"
	"github.com/maktaba/maktaba/internal/platform/validate"
	"github.com/maktaba/maktaba/internal/rbac"
	"github.com/maktaba/maktaba/pkg/pagination"
)

// RoleChecker is the slice of the rbac evaluator this service needs.
type RoleChecker interface {
	HasRole(ctx context.Context, userID int64, roleName string) (bool, error)
}

// BookFinder verifies a comment targets a real, published book.
type BookFinder interface {
	Exists(ctx context.Context, bookID int64) (bool, error)
}

// Service implements book comments. A comment belongs to exactly one
// (book, owner) pair; only its owner may edit it, and only its owner or
// staff may remove it.
type Service struct {
	repository Repository
	roles      RoleChecker
	books      BookFinder
	cache      *cache.Cache
}

// NewService constructs the comment service.
func NewService(repository Repository, roles RoleChecker, books BookFinder, c *cache.Cache) *Service {
	return &Service{repository: repository, roles: roles, books: books, cache: c}
}

var errCommentDenied = apperr.Forbidden("You are not allowed to manage this comment")

// ListForBook returns a page of comments on one book.
func (service *Service) ListForBook(ctx context.Context, bookID int64, page pagination.Params) ([]*Comment, int, error) {
	return service.repository.ListForBook(ctx, bookID, page.Limit, page.Offset())
}

// Input holds the editable comment fields.
type Input struct {
	Content string
	Rating  int
}

// Create adds the actor's comment on a book.
func (service *Service) Create(ctx context.Context, actorID, bookID int64, input Input) (*Comment, error) {
	if err := service.validateInput(input); err != nil {
		return nil, err
	}

	published, err := service.books.Exists(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !published {
		return nil, apperr.NotFound("Book")
	}

	c := &Comment{
		BookID:  bookID,
		UserID:  actorID,
		Content: input.Content,
		Rating:  input.Rating,
	}
	if err := service.repository.Create(ctx, c); err != nil {
		return nil, err
	}

	service.invalidate(ctx, bookID)
	return c, nil
}

// Update edits the actor's own comment.
func (service *Service) Update(ctx context.Context, actorID, commentID int64, input Input) (*Comment, error) {
	c, err := service.repository.FindByID(ctx, commentID)
	if err != nil {
		return nil, err
	}

	if c.UserID != actorID {
		return nil, errCommentDenied
	}

	if err := service.validateInput(input); err != nil {
		return nil, err
	}

	c.Content = input.Content
	c.Rating = input.Rating
	if err := service.repository.Update(ctx, c); err != nil {
		return nil, err
	}

	service.invalidate(ctx, c.BookID)
	return c, nil
}

// Delete removes a comment. The owner may always remove their own; staff may
// remove anyone's.
func (service *Service) Delete(ctx context.Context, actorID, commentID int64) error {
	c, err := service.repository.FindByID(ctx, commentID)
	if err != nil {
		return err
	}

	if c.UserID != actorID {
		staff, err := service.isStaff(ctx, actorID)
		if err != nil {
			return err
		}
		if !staff {
			return errCommentDenied
		}
	}

	if err := service.repository.Delete(ctx, commentID); err != nil {
		return err
	}

	service.invalidate(ctx, c.BookID)
	return nil
}

func (service *Service) validateInput(input Input) error {
	v := &validate.Validator{}
	v.Required("content", input.Content).MaxLen("content", input.Content, 2000)
	v.Range("rating", input.Rating, 1, 5)
	return v.Err()
}

// invalidate clears the commented book's detail (its average rating changed)
// and the home aggregate (top-rated ranking may shift).
func (service *Service) invalidate(ctx context.Context, bookID int64) {
	_ = service.cache.Forget(ctx, cache.DetailKey(constants.CacheKeyBookDetail, bookID))
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

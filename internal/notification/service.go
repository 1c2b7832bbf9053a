// Copyright (c) 2026 Maktaba. All rights reserved.

package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/maktaba/maktaba/internal/jobs"
	"github.com/maktaba/maktaba/internal/platform/apperr"
	"github.com/maktaba/maktaba/internal/platform/constants"
	"github.com/maktaba/maktaba/internal/platform/validate"
	"github.com/maktaba/maktaba/internal/rbac"
	"github.com/maktaba/maktaba/pkg/pagination"
)

// RoleChecker answers role-membership questions for the send endpoints.
type RoleChecker interface {
	HasRole(ctx context.Context, userID int64, roleName string) (bool, error)
}

// UserDirectory pages through active user ids for broadcast fan-out.
type UserDirectory interface {
	ListIDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
}

// JobEnqueuer hands notification deliveries to the background pipeline.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, kind string, payload any) (string, error)
	EnqueueIn(ctx context.Context, delay time.Duration, kind string, payload any) (string, error)
}

// Service implements notification inbox and delivery use cases.
type Service struct {
	repository Repository
	roles      RoleChecker
	users      UserDirectory
	queue      JobEnqueuer
}

// NewService constructs the notification service.
func NewService(repository Repository, roles RoleChecker, users UserDirectory, queue JobEnqueuer) *Service {
	return &Service{repository: repository, roles: roles, users: users, queue: queue}
}

// # Inbox

// List returns the caller's notifications, newest first.
func (service *Service) List(ctx context.Context, userID int64, unreadOnly bool, page pagination.Params) ([]*Notification, int, error) {
	return service.repository.ListForUser(ctx, userID, unreadOnly, page.Limit, page.Offset())
}

// UnreadCount returns how many unread notifications the caller has.
func (service *Service) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return service.repository.UnreadCount(ctx, userID)
}

// MarkRead marks one of the caller's notifications as read. A foreign or
// unknown id is NotFound; marking an already-read notification is a no-op.
func (service *Service) MarkRead(ctx context.Context, userID int64, id string) error {
	return service.repository.MarkRead(ctx, userID, id)
}

// MarkAllRead marks every unread notification of the caller as read.
func (service *Service) MarkAllRead(ctx context.Context, userID int64) error {
	return service.repository.MarkAllRead(ctx, userID)
}

// Delete removes one of the caller's notifications.
func (service *Service) Delete(ctx context.Context, userID int64, id string) error {
	return service.repository.Delete(ctx, userID, id)
}

// DeleteAll clears the caller's inbox.
func (service *Service) DeleteAll(ctx context.Context, userID int64) error {
	return service.repository.DeleteAll(ctx, userID)
}

// # Staff Delivery

var errSendDenied = apperr.Forbidden("You are not allowed to send notifications")

// SendToUser queues a general notification for one user. Admin only.
func (service *Service) SendToUser(ctx context.Context, actorID, targetID int64, message string) error {
	if err := service.requireStaff(ctx, actorID); err != nil {
		return err
	}

	v := &validate.Validator{}
	v.Required("message", message).MaxLen("message", message, 2000)
	if err := v.Err(); err != nil {
		return err
	}

	_, err := service.queue.Enqueue(ctx, jobs.KindNotifyUser, jobs.NotifyUserPayload{
		UserIDs: []int64{targetID},
		Type:    constants.NotificationGeneral,
		Data:    map[string]any{"message": message},
	})
	if err != nil {
		return fmt.Errorf("notification_send_failed: %w", err)
	}
	return nil
}

// Broadcast queues a general notification for every user. Admin only.
//
// # Fan-Out Shape
//
// Recipients are paged in chunks of [constants.FanOutChunkSize]; each chunk
// becomes one delayed job, staggered by [constants.FanOutStagger] per chunk
// so a large member base never lands on the database at once.
func (service *Service) Broadcast(ctx context.Context, actorID int64, message string) (int, error) {
	if err := service.requireStaff(ctx, actorID); err != nil {
		return 0, err
	}

	v := &validate.Validator{}
	v.Required("message", message).MaxLen("message", message, 2000)
	if err := v.Err(); err != nil {
		return 0, err
	}

	return service.FanOut(ctx, constants.NotificationGeneral, map[string]any{"message": message})
}

// FanOut queues one notification of the given type for every user, chunked
// and staggered. Returns the number of recipients queued. Also used by job
// handlers for book announcements, so it performs no authorization itself.
func (service *Service) FanOut(ctx context.Context, notificationType string, data map[string]any) (int, error) {
	var (
		afterID    int64
		chunkIndex int64
		recipients int
	)

	for {
		ids, err := service.users.ListIDs(ctx, afterID, constants.FanOutChunkSize)
		if err != nil {
			return recipients, err
		}
		if len(ids) == 0 {
			return recipients, nil
		}

		delay := time.Duration(chunkIndex) * constants.FanOutStagger
		_, err = service.queue.EnqueueIn(ctx, delay, jobs.KindNotifyUser, jobs.NotifyUserPayload{
			UserIDs: ids,
			Type:    notificationType,
			Data:    data,
		})
		if err != nil {
			return recipients, fmt.Errorf("notification_fanout_failed: %w", err)
		}

		recipients += len(ids)
		afterID = ids[len(ids)-1]
		chunkIndex++

		if len(ids) < constants.FanOutChunkSize {
			return recipients, nil
		}
	}
}

func (service *Service) requireStaff(ctx context.Context, actorID int64) error {
	for _, roleName := range []string{rbac.RoleAdmin, rbac.RoleSuperAdmin} {
		isStaff, err := service.roles.HasRole(ctx, actorID, roleName)
		if err != nil {
			return err
		}
		if isStaff {
			return nil
		}
	}
	return errSendDenied
}

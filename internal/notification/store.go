// Copyright (c) 2026 Maktaba. All rights reserved.

package notification

import "context"

// Repository defines persistence for notifications.
//
// Every read and mutation is scoped by owner: a notification id belonging to
// another user behaves exactly like a missing one.
type Repository interface {
	ListForUser(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]*Notification, int, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)

	// Insert stores one notification for one user.
	Insert(ctx context.Context, userID int64, notificationType string, data map[string]any) error

	// MarkRead marks one notification read. Returns dberr.ErrNotFound when
	// the id does not exist for this user.
	MarkRead(ctx context.Context, userID int64, id string) error
	MarkAllRead(ctx context.Context, userID int64) error
	Delete(ctx context.Context, userID int64, id string) error
	DeleteAll(ctx context.Context, userID int64) error
}

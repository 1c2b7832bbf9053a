// Copyright (c) 2026 Maktaba. All rights reserved.

// Package notification stores and delivers per-user notifications: role
// changes, publication decisions, new and popular books, and staff
// announcements.
package notification

import (
	"encoding/json"
	"time"
)

// Notification is one delivered message. Data carries the type-specific
// payload as JSON: the role name for role_changed, the book id and title for
// the book types, free-form text for general announcements.
type Notification struct {
	ID        string          `json:"id"`
	UserID    int64           `json:"-"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	ReadAt    *time.Time      `json:"read_at"`
	CreatedAt time.Time       `json:"created_at"`
}

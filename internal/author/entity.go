// Copyright (c) 2026 Maktaba. All rights reserved.

// Package author manages the author catalog and the request flow through
// which users propose new authors or corrections to existing ones.
package author

import "time"

// Author is a published catalog entry.
type Author struct {
	ID        int64      `json:"id"`
	UserID    *int64     `json:"user_id,omitempty"`
	Name      string     `json:"name"`
	Slug      string     `json:"slug"`
	Biography string     `json:"biography"`
	Birthdate *time.Time `json:"birthdate,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Request statuses.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
)

// Request is a staged author create or correction. AuthorID is nil for a
// brand-new author and set when the request proposes changes to an existing
// entry. Approving a request materializes the author and removes the request.
type Request struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	AuthorID  *int64     `json:"author_id,omitempty"`
	Name      string     `json:"name"`
	Biography string     `json:"biography"`
	Birthdate *time.Time `json:"birthdate,omitempty"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

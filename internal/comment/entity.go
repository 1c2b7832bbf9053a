// Copyright (c) 2026 Maktaba. All rights reserved.

// Package comment implements per-book comments with ratings.
package comment

import "time"

// Comment is one user's review of a book. Rating runs 1 to 5.
type Comment struct {
	ID        int64     `json:"id"`
	BookID    int64     `json:"book_id"`
	UserID    int64     `json:"user_id"`
	UserName  string    `json:"user_name,omitempty"`
	Content   string    `json:"content"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Copyright (c) 2026 Maktaba. All rights reserved.

// Package series manages book series, the ordered groupings a book may
// belong to.
package series

import "time"

// Series is a named grouping of books owned by the user who created it.
type Series struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	BooksCount  int       `json:"books_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Copyright (c) 2026 Maktaba. All rights reserved.

// Package category manages book categories and the groups that organize
// them on the home page.
package category

import "time"

// Category classifies books. A category may belong to one group.
type Category struct {
	ID          int64     `json:"id"`
	GroupID     *int64    `json:"group_id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	BooksCount  int       `json:"books_count,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Group bundles categories for presentation.
type Group struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Categories []Category `json:"categories,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

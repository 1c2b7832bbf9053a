// Copyright (c) 2026 Maktaba. All rights reserved.

// Package book implements the catalog core: publication workflow, file
// ingestion hand-off, view and download counting.
package book

import "time"

// Publication statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
)

// Book is a catalog entry. FileKey is empty until ingestion finishes;
// Pages and SizeMB are derived from the file during ingestion.
type Book struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	AuthorID    *int64 `json:"author_id,omitempty"`
	CategoryID  *int64 `json:"category_id,omitempty"`
	SeriesID    *int64 `json:"series_id,omitempty"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Status      string `json:"status"`

	FileKey string  `json:"-"`
	Pages   int     `json:"number_pages"`
	SizeMB  float64 `json:"size_mb"`

	ViewsCount     int64 `json:"views_count"`
	DownloadsCount int64 `json:"downloads_count"`

	// AverageRating is computed from comments; zero when unrated.
	AverageRating float64 `json:"average_rating"`

	// PopularNotifiedAt stamps the one-time popularity announcement.
	PopularNotifiedAt *time.Time `json:"-"`

	AuthorName   string `json:"author_name,omitempty"`
	CategoryName string `json:"category_name,omitempty"`
	SeriesName   string `json:"series_name,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasFile reports whether ingestion has produced a downloadable object.
func (b *Book) HasFile() bool {
	return b.FileKey != ""
}

// Filter narrows book listings.
type Filter struct {
	Query      string
	AuthorID   int64
	CategoryID int64
	SeriesID   int64
}

// Copyright (c) 2026 Maktaba. All rights reserved.

// Package home assembles the landing page aggregate: a handful of book
// shelves, featured authors, and catalog totals in one cached payload.
package home

import (
	"context"
	"strings"

	"github.com/maktaba/maktaba/internal/platform/cache"
	"github.com/maktaba/maktaba/internal/platform/constants"
)

// shelfSize is how many entries each shelf carries.
const shelfSize = 5

// BookCard is the trimmed book shape the landing page renders.
type BookCard struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	Slug          string  `json:"slug"`
	AuthorName    string  `json:"author_name,omitempty"`
	ViewsCount    int64   `json:"views_count"`
	AverageRating float64 `json:"average_rating"`
}

// AuthorCard is the trimmed author shape the landing page renders.
type AuthorCard struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Totals are the catalog counters shown in the page header.
type Totals struct {
	Books      int64 `json:"books"`
	Authors    int64 `json:"authors"`
	Categories int64 `json:"categories"`
}

// Aggregate is the full landing page payload.
type Aggregate struct {
	Latest     []BookCard   `json:"latest"`
	MostViewed []BookCard   `json:"most_viewed"`
	TopRated   []BookCard   `json:"top_rated"`
	Authors    []AuthorCard `json:"authors"`
	Totals     Totals       `json:"totals"`
}

// Repository is the read-only persistence surface behind the aggregate.
type Repository interface {
	LatestBooks(ctx context.Context, limit int) ([]BookCard, error)
	MostViewedBooks(ctx context.Context, limit int) ([]BookCard, error)
	TopRatedBooks(ctx context.Context, limit int) ([]BookCard, error)
	FeaturedAuthors(ctx context.Context, limit int) ([]AuthorCard, error)
	CatalogTotals(ctx context.Context) (Totals, error)
	SearchBooks(ctx context.Context, query string, limit int) ([]BookCard, error)
}

// Service serves the landing page. Payloads cache forever; every write path
// that could change them clears the home prefix.
type Service struct {
	repository Repository
	cache      *cache.Cache
}

// NewService constructs the home service.
func NewService(repository Repository, c *cache.Cache) *Service {
	return &Service{repository: repository, cache: c}
}

// Page returns the landing page aggregate.
func (service *Service) Page(ctx context.Context) (Aggregate, error) {
	key := cache.ListKey(constants.CacheKeyHome, nil)
	return cache.RememberForever(service.cache, ctx, key,
		func(ctx context.Context) (Aggregate, error) {
			return service.assemble(ctx)
		})
}

// Search returns books matching the query, cached per normalized query.
func (service *Service) Search(ctx context.Context, query string) ([]BookCard, error) {
	normalized := strings.ToLower(strings.TrimSpace(query))
	if normalized == "" {
		return nil, nil
	}

	key := cache.ListKey(constants.CacheKeyHome, map[string]string{"q": normalized})
	return cache.RememberForever(service.cache, ctx, key,
		func(ctx context.Context) ([]BookCard, error) {
			return service.repository.SearchBooks(ctx, normalized, constants.MaxSearchResults)
		})
}

func (service *Service) assemble(ctx context.Context) (Aggregate, error) {
	var page Aggregate
	var err error

	if page.Latest, err = service.repository.LatestBooks(ctx, shelfSize); err != nil {
		return Aggregate{}, err
	}
	if page.MostViewed, err = service.repository.MostViewedBooks(ctx, shelfSize); err != nil {
		return Aggregate{}, err
	}
	if page.TopRated, err = service.repository.TopRatedBooks(ctx, shelfSize); err != nil {
		return Aggregate{}, err
	}
	if page.Authors, err = service.repository.FeaturedAuthors(ctx, shelfSize); err != nil {
		return Aggregate{}, err
	}
	if page.Totals, err = service.repository.CatalogTotals(ctx); err != nil {
		return Aggregate{}, err
	}

	return page, nil
}

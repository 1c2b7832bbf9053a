// Copyright (c) 2026 Maktaba. All rights reserved.

/*
Package constants provides centralized, immutable values for the platform.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Cache Taxonomy: key prefixes and TTL tiers for the read-through cache.
  - Queue Lanes: stream and consumer-group names for background jobs.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "maktaba-api"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	DefaultRateLimitRPS   = 100.0
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often idle IP entries are evicted.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before eviction.
	RateLimitClientTTL = 3 * time.Minute
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in JWTs.
	AuthIssuer = "maktaba.app"

	// AccessTokenTTL is the lifetime of an issued access token.
	AccessTokenTTL = 24 * time.Hour
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
)

// # JSON Field Identifiers

const (
	FieldCode  = "code"
	FieldError = "error"
)

// # Cache Taxonomy
//
// List keys append a canonical parameter hash; detail keys append the entity
// id. TTL tiers follow volatility: 60s for book/author lists, 20 minutes for
// reference data, and no expiry (explicit invalidation only) for detail views
// and the home aggregate.

const (
	// CacheKeyBookPrefix covers every book-derived key for cross-domain
	// invalidation (category renames, author merges, comment edits).
	CacheKeyBookPrefix = "books:"

	CacheKeyBookList      = "books:list:"
	CacheKeyBookPending   = "books:pending:"
	CacheKeyBookDetail    = "books:detail:"
	CacheKeyAuthorList    = "authors:list:"
	CacheKeyAuthorDetail  = "authors:detail:"
	CacheKeyCategoryList  = "categories:list:"
	CacheKeyCatGroupList  = "category-groups:list:"
	CacheKeyRoleList      = "roles:list:"
	CacheKeyUserList      = "users:list:"
	CacheKeyHome          = "home:"
	CacheKeyViewMarker    = "views:seen:"

	CacheTTLVolatileList  = 60 * time.Second
	CacheTTLReferenceList = 20 * time.Minute

	// ViewMarkerTTL bounds the per-session "already counted" flag that stops
	// one browsing session from inflating views_count.
	ViewMarkerTTL = 12 * time.Hour

	// MaxSearchResults bounds the home search payload.
	MaxSearchResults = 50
)

// # Job Queue

const (
	QueueStream   = "maktaba:jobs"
	QueueGroup    = "workers"
	QueueDelayed  = "maktaba:jobs:delayed"
	QueueMaxRetry = 3

	// FanOutChunkSize bounds how many users are loaded per batch during a
	// notification fan-out.
	FanOutChunkSize = 100

	// FanOutStagger is the enqueue delay applied to each fan-out delivery.
	FanOutStagger = 5 * time.Second
)

// # Object Store

const (
	// DownloadURLTTL is the lifetime of a presigned download link.
	DownloadURLTTL = 15 * time.Minute
)

// # Notification Types

const (
	NotificationGeneral     = "general"
	NotificationPublication = "publication"
	NotificationRoleChanged = "role_changed"
	NotificationBookNew     = "book_new"
	NotificationBookPopular = "book_popular"
)

// # Popularity Thresholds

const (
	PopularViewsThreshold     = 1000
	PopularDownloadsThreshold = 500
)

// Copyright (c) 2026 Maktaba. All rights reserved.

// Package objstore provides S3-compatible object storage for book files.
//
// # Architecture
//
// Each book owns at most one stored file, addressed by a fixed key derived
// from the book ID. Re-uploading overwrites the previous object, which keeps
// the at-most-one-file invariant without a delete-then-put window.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/maktaba/maktaba/internal/platform/config"
)

// Store abstracts the object storage so job handlers can be tested with a
// fake. The production implementation is [MinioStore].
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Stat(ctx context.Context, key string) (int64, error)
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	Remove(ctx context.Context, key string) error
}

// MinioStore implements [Store] for MinIO and S3-compatible backends.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// New connects to the configured endpoint and ensures the bucket exists.
func New(cfg *config.Config) (*MinioStore, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("objstore_init_failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.S3Bucket)
	if err != nil {
		return nil, fmt.Errorf("objstore_bucket_check_failed: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.S3Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("objstore_bucket_create_failed: %w", err)
		}
	}

	return &MinioStore{client: client, bucket: cfg.S3Bucket}, nil
}

// BookKey returns the canonical object key for a book's file.
func BookKey(bookID int64, slug string) string {
	return fmt.Sprintf("books/%d/%s.pdf", bookID, slug)
}

// Put uploads an object, overwriting any previous version under the key.
func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if _, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return fmt.Errorf("objstore_put_failed: %w", err)
	}
	return nil
}

// Stat returns the stored object size in bytes. A missing key returns an
// error carrying the minio "NoSuchKey" response.
func (s *MinioStore) Stat(ctx context.Context, key string) (int64, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("objstore_stat_failed: %w", err)
	}
	return info.Size, nil
}

// IsNotFound reports whether err carries the backend's missing-object
// response anywhere in its chain. Store methods wrap the raw minio error,
// so callers must not rely on a bare type assertion.
func IsNotFound(err error) bool {
	var response minio.ErrorResponse
	if !errors.As(err, &response) {
		return false
	}
	return response.Code == "NoSuchKey"
}

// PresignGet generates a time-limited download URL for the object.
func (s *MinioStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	url, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("objstore_presign_failed: %w", err)
	}
	return url.String(), nil
}

// Remove deletes the object. Removing a missing key is not an error.
func (s *MinioStore) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("objstore_remove_failed: %w", err)
	}
	return nil
}

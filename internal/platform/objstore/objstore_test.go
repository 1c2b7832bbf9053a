// Copyright (c) 2026 Maktaba. All rights reserved.

package objstore_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"

	"github.com/maktaba/maktaba/internal/platform/objstore"
)

/*
TestIsNotFound verifies the missing-object classification across the forms
a caller actually sees: the bare backend response and the wrapped errors
returned by the store methods.
*/
func TestIsNotFound(t *testing.T) {
	raw := minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."}

	assert.True(t, objstore.IsNotFound(raw))
	assert.True(t, objstore.IsNotFound(fmt.Errorf("objstore_stat_failed: %w", raw)))
	assert.True(t, objstore.IsNotFound(fmt.Errorf("outer: %w", fmt.Errorf("objstore_remove_failed: %w", raw))))

	assert.False(t, objstore.IsNotFound(nil))
	assert.False(t, objstore.IsNotFound(errors.New("connection refused")))
	assert.False(t, objstore.IsNotFound(fmt.Errorf("objstore_stat_failed: %w", minio.ErrorResponse{Code: "AccessDenied"})))
}

func TestBookKey(t *testing.T) {
	assert.Equal(t, "books/9/masnavi.pdf", objstore.BookKey(9, "masnavi"))
}

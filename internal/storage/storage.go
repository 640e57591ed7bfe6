// Package storage keeps named byte blobs. The ledger writes its whole state
// as a single blob, so a backend only needs whole value load and save.
package storage

import (
	"context"
	"errors"
	"regexp"
)

// ErrNotFound is returned by Load when nothing was saved under the key yet.
var ErrNotFound = errors.New("blob not found")

// ErrInvalidKey rejects keys that could escape a directory or table namespace.
var ErrInvalidKey = errors.New("invalid storage key")

// BlobStore loads and saves opaque values by key. Save replaces the whole value.
type BlobStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateKey accepts letters, digits, dot, dash and underscore.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return ErrInvalidKey
	}
	return nil
}

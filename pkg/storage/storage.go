// Package storage defines the object store used for product media.
package storage

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrObjectExists is returned when an upload targets a key that is already taken.
	ErrObjectExists = errors.New("object already exists")
	// ErrObjectNotFound is returned when deleting a key that does not exist.
	ErrObjectNotFound = errors.New("object not found")
)

// ObjectStore is a bucket-scoped blob store with public read URLs.
type ObjectStore interface {
	// Bucket returns the configured bucket name.
	Bucket() string
	// BucketExists reports whether the configured bucket is reachable.
	BucketExists(ctx context.Context) (bool, error)
	// Upload writes body under key. Existing objects are never overwritten.
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
	// Delete removes the object stored under key.
	Delete(ctx context.Context, key string) error
	// PublicURL resolves the public read URL of key.
	PublicURL(key string) string
}

// Package blob abstracts the object storage that holds event photos and
// mirrored encoding payloads.
package blob

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when an object does not exist.
//
// Implementations return an error that satisfies errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("blob not found")

// Object describes a stored object.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store is a flat key/value object store.
type Store interface {
	// Get returns the full object content.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put writes an object, replacing any previous content.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// List returns objects under prefix sorted by key. limit <= 0 means no limit.
	List(ctx context.Context, prefix string, limit int) ([]Object, error)
}

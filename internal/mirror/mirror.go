// Package mirror holds the remote copy of each event's encoding payload.
package mirror

import (
	"context"
	"errors"

	"github.com/saturnino-fabrica-de-software/facefind/internal/domain"
)

// ErrNotFound is returned by Fetch when no payload was ever published.
var ErrNotFound = errors.New("mirror: payload not found")

// Mirror stores one opaque payload per event. Upload overwrites, so the
// last writer wins.
type Mirror interface {
	Fetch(ctx context.Context, event domain.Event) ([]byte, error)
	Upload(ctx context.Context, event domain.Event, payload []byte) error
}

// EventLister is implemented by mirrors that can enumerate published events.
type EventLister interface {
	Events(ctx context.Context) ([]string, error)
}

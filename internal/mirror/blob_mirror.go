package mirror

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/saturnino-fabrica-de-software/facefind/internal/blob"
	"github.com/saturnino-fabrica-de-software/facefind/internal/domain"
)

const (
	blobRoot     = "encodings/"
	blobFileName = "encodings.json"
)

// BlobMirror keeps payloads at "encodings/<event>/encodings.json".
type BlobMirror struct {
	store blob.Store
}

func NewBlobMirror(store blob.Store) *BlobMirror {
	return &BlobMirror{store: store}
}

// Key returns the object key of an event's payload.
func Key(event domain.Event) string {
	return blobRoot + event.ID + "/" + blobFileName
}

func (m *BlobMirror) Fetch(ctx context.Context, event domain.Event) ([]byte, error) {
	data, err := m.store.Get(ctx, Key(event))
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("event %s: fetch mirror: %w", event, err)
	}
	return data, nil
}

func (m *BlobMirror) Upload(ctx context.Context, event domain.Event, payload []byte) error {
	if err := m.store.Put(ctx, Key(event), payload, "application/json"); err != nil {
		return fmt.Errorf("event %s: upload mirror: %w", event, err)
	}
	return nil
}

// Events lists event IDs that have a published payload.
func (m *BlobMirror) Events(ctx context.Context) ([]string, error) {
	objects, err := m.store.List(ctx, blobRoot, 0)
	if err != nil {
		return nil, fmt.Errorf("list mirror: %w", err)
	}

	var events []string
	for _, obj := range objects {
		rest := strings.TrimPrefix(obj.Key, blobRoot)
		id, file, ok := strings.Cut(rest, "/")
		if !ok || file != blobFileName {
			continue
		}
		events = append(events, id)
	}
	return events, nil
}

var (
	_ Mirror      = (*BlobMirror)(nil)
	_ EventLister = (*BlobMirror)(nil)
)

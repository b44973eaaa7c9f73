package mirror

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facefind/internal/blob"
	"github.com/saturnino-fabrica-de-software/facefind/internal/domain"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "encodings/event_A/encodings.json", Key(domain.Event{ID: "event_A"}))
}

func TestBlobMirror_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemoryStore()
	m := NewBlobMirror(store)

	_, err := m.Fetch(ctx, testEvent)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Upload(ctx, testEvent, []byte(`[1]`)))
	require.NoError(t, m.Upload(ctx, testEvent, []byte(`[2]`)))

	got, err := m.Fetch(ctx, testEvent)
	require.NoError(t, err)
	assert.Equal(t, []byte(`[2]`), got, "last upload wins")

	raw, err := store.Get(ctx, "encodings/event_A/encodings.json")
	require.NoError(t, err)
	assert.Equal(t, got, raw)
}

func TestBlobMirror_Events(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemoryStore()
	m := NewBlobMirror(store)

	require.NoError(t, m.Upload(ctx, domain.Event{ID: "b"}, []byte(`[]`)))
	require.NoError(t, m.Upload(ctx, domain.Event{ID: "a"}, []byte(`[]`)))
	require.NoError(t, store.Put(ctx, "encodings/a/notes.txt", []byte("x"), "text/plain"))
	require.NoError(t, store.Put(ctx, "a/known_faces/1.jpg", []byte("x"), "image/jpeg"))

	events, err := m.Events(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, events)
}

type brokenStore struct {
	blob.Store
}

func (brokenStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func TestBlobMirror_FetchError(t *testing.T) {
	m := NewBlobMirror(brokenStore{})

	_, err := m.Fetch(context.Background(), testEvent)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

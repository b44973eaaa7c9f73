package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facefind/internal/domain"
)

type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) List(ctx context.Context, event domain.Event) ([]domain.ImageRef, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ImageRef), args.Error(1)
}

func (m *MockImageStore) Fetch(ctx context.Context, ref domain.ImageRef) ([]byte, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type MockEncodingStore struct {
	mock.Mock
}

func (m *MockEncodingStore) Load(ctx context.Context, event domain.Event) (*domain.EncodingCollection, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// callers own what Load returns
	return args.Get(0).(*domain.EncodingCollection).Clone(), args.Error(1)
}

func (m *MockEncodingStore) Save(ctx context.Context, event domain.Event, c *domain.EncodingCollection) error {
	args := m.Called(ctx, event, c)
	return args.Error(0)
}

func (m *MockEncodingStore) Publish(ctx context.Context, event domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEncodingStore) Sync(ctx context.Context, event domain.Event) (*domain.EncodingCollection, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EncodingCollection), args.Error(1)
}

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, image []byte) ([]domain.Embedding, error) {
	args := m.Called(ctx, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Embedding), args.Error(1)
}

type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) CheckMatchLimit(event domain.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func vec(fill float64) domain.Embedding {
	e := make(domain.Embedding, domain.EmbeddingDimension)
	for i := range e {
		e[i] = fill
	}
	return e
}

// vecAt is the zero vector with v at position i.
func vecAt(i int, v float64) domain.Embedding {
	e := make(domain.Embedding, domain.EmbeddingDimension)
	e[i] = v
	return e
}

// pngBytes returns a tiny valid PNG whose content depends on shade.
func pngBytes(t *testing.T, shade uint8) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: shade, G: 255 - shade, B: uint8(x * y), A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func mustEventContext(t *testing.T, id string) domain.EventContext {
	t.Helper()
	ec, err := domain.NewEventContext(id)
	require.NoError(t, err)
	return ec
}

func collectionOf(records ...domain.EncodingRecord) *domain.EncodingCollection {
	c := domain.NewEncodingCollection()
	for _, r := range records {
		c.Append(r)
	}
	return c
}

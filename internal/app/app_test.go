package app

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facefind/internal/blob"
	"github.com/saturnino-fabrica-de-software/facefind/internal/config"
	"github.com/saturnino-fabrica-de-software/facefind/internal/domain"
	"github.com/saturnino-fabrica-de-software/facefind/internal/mirror"
	"github.com/saturnino-fabrica-de-software/facefind/internal/service"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment:      "test",
		ProviderType:     "mock",
		EncodingsDir:     t.TempDir(),
		StorageBackend:   "s3",
		StorageBucket:    "photos",
		PublicBaseURL:    "https://cdn.example",
		MirrorBackend:    "blob",
		MatchTolerance:   0.55,
		MatchMaxResults:  500,
		BuildConcurrency: 2,
		FetchTimeout:     5 * time.Second,
		MirrorTimeout:    5 * time.Second,
		DeepFaceTimeout:  5 * time.Second,
		CorpusMaxImages:  500,
	}
}

func photo(t *testing.T, shade uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = shade + uint8(i)
	}
	img.Set(0, 0, color.Gray{Y: shade})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestApp_EndToEnd(t *testing.T) {
	ctx := context.Background()
	objects := blob.NewMemoryStore()

	a, err := NewWithObjects(ctx, testConfig(t), discardLogger(), objects)
	require.NoError(t, err)
	defer a.Close()

	ec, err := domain.NewEventContext("gala")
	require.NoError(t, err)

	guest := photo(t, 10)
	for name, data := range map[string][]byte{"1.png": guest, "2.png": photo(t, 90), "3.png": photo(t, 170)} {
		_, err := a.Images.Upload(ctx, ec.Event, name, data)
		require.NoError(t, err)
	}

	report, err := a.Service.BuildCorpus(ctx, ec, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Added)
	assert.True(t, report.Published)

	// mirror copy lives next to the corpus
	_, err = objects.Get(ctx, mirror.Key(ec.Event))
	require.NoError(t, err)

	matches, err := a.Service.MatchSelfie(ctx, ec, guest)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example/gala/known_faces/1.png"}, service.Links(matches))
}

func TestApp_SecondHostHydratesFromMirror(t *testing.T) {
	ctx := context.Background()
	objects := blob.NewMemoryStore()

	first, err := NewWithObjects(ctx, testConfig(t), discardLogger(), objects)
	require.NoError(t, err)

	ec, err := domain.NewEventContext("gala")
	require.NoError(t, err)
	_, err = first.Images.Upload(ctx, ec.Event, "1.png", photo(t, 1))
	require.NoError(t, err)
	_, err = first.Service.BuildCorpus(ctx, ec, nil)
	require.NoError(t, err)

	// fresh cache directory, same bucket
	second, err := NewWithObjects(ctx, testConfig(t), discardLogger(), objects)
	require.NoError(t, err)

	c, err := second.Store.Load(ctx, ec.Event)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
	assert.FileExists(t, second.Store.Path(ec.Event))
}

func TestApp_EventSource(t *testing.T) {
	ctx := context.Background()
	objects := blob.NewMemoryStore()
	cfg := testConfig(t)

	a, err := NewWithObjects(ctx, cfg, discardLogger(), objects)
	require.NoError(t, err)

	ids, err := a.EventSource([]string{"x"})(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, ids)

	require.NoError(t, a.Mirror.Upload(ctx, domain.Event{ID: "published"}, []byte(`[]`)))
	ids, err = a.EventSource(nil)(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"published"}, ids)

	cfg.Events = []string{"configured"}
	ids, err = a.EventSource(nil)(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"configured"}, ids)
}

func TestApp_UnknownProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.ProviderType = "rekognition"

	_, err := NewWithObjects(context.Background(), cfg, discardLogger(), blob.NewMemoryStore())
	assert.Error(t, err)
}

func TestNewObjectStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.StorageBackend = "minio"
	cfg.StorageEndpoint = "localhost:9000"

	objects, err := NewObjectStore(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, objects)

	cfg.StorageBackend = "gcs"
	_, err = NewObjectStore(context.Background(), cfg)
	assert.Error(t, err)
}

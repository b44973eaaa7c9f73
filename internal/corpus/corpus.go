// Package corpus lists and fetches the photographs of an event.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/saturnino-fabrica-de-software/facefind/internal/blob"
	"github.com/saturnino-fabrica-de-software/facefind/internal/domain"
)

const (
	// DefaultMaxImages caps a listing, as the photo upload UI does.
	DefaultMaxImages = 500
	// DefaultFetchTimeout bounds a single image download.
	DefaultFetchTimeout = 20 * time.Second

	knownFacesDir = "known_faces"
)

// ErrImageNotFound is returned by Fetch for a reference that no longer exists.
var ErrImageNotFound = errors.New("image not found")

var imageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

// ImageStore is the read side of an event's photo corpus.
type ImageStore interface {
	List(ctx context.Context, event domain.Event) ([]domain.ImageRef, error)
	Fetch(ctx context.Context, ref domain.ImageRef) ([]byte, error)
}

// Config tunes a BlobImageStore.
type Config struct {
	PublicBaseURL string
	MaxImages     int
	FetchTimeout  time.Duration
	ListTimeout   time.Duration
}

// BlobImageStore keeps event photos under "<event>/known_faces/" in a
// blob.Store. The object key is the image's public ID.
type BlobImageStore struct {
	store  blob.Store
	config Config
}

func NewBlobImageStore(store blob.Store, config Config) *BlobImageStore {
	if config.MaxImages <= 0 {
		config.MaxImages = DefaultMaxImages
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = DefaultFetchTimeout
	}
	if config.ListTimeout <= 0 {
		config.ListTimeout = config.FetchTimeout
	}
	return &BlobImageStore{store: store, config: config}
}

// Prefix returns the key prefix holding the event's photos.
func Prefix(event domain.Event) string {
	return event.ID + "/" + knownFacesDir + "/"
}

// List returns image objects in key order, skipping non-image keys.
func (s *BlobImageStore) List(ctx context.Context, event domain.Event) ([]domain.ImageRef, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.ListTimeout)
	defer cancel()

	// Over-fetch so that skipped non-image keys do not shrink the page.
	objects, err := s.store.List(ctx, Prefix(event), s.config.MaxImages*2)
	if err != nil {
		return nil, domain.ErrStorageUnavailable.WithError(fmt.Errorf("event %s: list images: %w", event, err))
	}

	refs := make([]domain.ImageRef, 0, len(objects))
	for _, obj := range objects {
		if !IsImageKey(obj.Key) {
			continue
		}
		refs = append(refs, domain.ImageRef{PublicID: obj.Key, URL: s.URL(obj.Key)})
		if len(refs) >= s.config.MaxImages {
			break
		}
	}
	return refs, nil
}

// Fetch downloads one image within FetchTimeout.
func (s *BlobImageStore) Fetch(ctx context.Context, ref domain.ImageRef) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	defer cancel()

	data, err := s.store.Get(ctx, ref.PublicID)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", ref.PublicID, ErrImageNotFound)
		}
		return nil, domain.ErrStorageUnavailable.WithError(fmt.Errorf("fetch %s: %w", ref.PublicID, err))
	}
	return data, nil
}

// Upload stores a photo under the event prefix and returns its reference.
func (s *BlobImageStore) Upload(ctx context.Context, event domain.Event, name string, data []byte) (domain.ImageRef, error) {
	name = path.Base(name)
	if !IsImageKey(name) {
		return domain.ImageRef{}, domain.ErrInvalidImage.WithError(fmt.Errorf("unsupported extension: %s", name))
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	defer cancel()

	key := Prefix(event) + name
	contentType := imageExtensions[strings.ToLower(path.Ext(name))]
	if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
		contentType = sniffed
	}

	if err := s.store.Put(ctx, key, data, contentType); err != nil {
		return domain.ImageRef{}, domain.ErrStorageUnavailable.WithError(fmt.Errorf("upload %s: %w", key, err))
	}
	return domain.ImageRef{PublicID: key, URL: s.URL(key)}, nil
}

// URL resolves a key against PublicBaseURL. It is empty when no base is set.
func (s *BlobImageStore) URL(key string) string {
	if s.config.PublicBaseURL == "" {
		return ""
	}
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.TrimRight(s.config.PublicBaseURL, "/") + "/" + strings.Join(segments, "/")
}

// IsImageKey reports whether the key has a supported image extension.
func IsImageKey(key string) bool {
	_, ok := imageExtensions[strings.ToLower(path.Ext(key))]
	return ok
}

var _ ImageStore = (*BlobImageStore)(nil)

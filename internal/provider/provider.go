package provider

import (
	"context"

	"github.com/saturnino-fabrica-de-software/facefind/internal/domain"
)

// Extractor transforma uma imagem em zero ou mais embeddings faciais.
type Extractor interface {
	// Extract returns one embedding per detected face, in detection order.
	// An unreadable image or an image without faces yields an empty slice and
	// a nil error. A non-nil error means the backend is unavailable.
	Extract(ctx context.Context, image []byte) ([]domain.Embedding, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, image []byte) ([]domain.Embedding, error)

func (f ExtractorFunc) Extract(ctx context.Context, image []byte) ([]domain.Embedding, error) {
	return f(ctx, image)
}

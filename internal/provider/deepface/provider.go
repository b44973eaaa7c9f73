package deepface

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/saturnino-fabrica-de-software/facefind/internal/domain"
	"github.com/saturnino-fabrica-de-software/facefind/internal/provider"
)

// Provider implements provider.Extractor using the DeepFace API
type Provider struct {
	client *Client
	logger *slog.Logger
}

// Ensure Provider implements provider.Extractor at compile time
var _ provider.Extractor = (*Provider)(nil)

// NewProvider creates a new DeepFace provider
func NewProvider(config Config, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		client: NewClient(config),
		logger: logger.With("component", "deepface"),
	}
}

// Extract returns one embedding per face DeepFace detects. Images that do not
// decode locally never reach the service.
func (p *Provider) Extract(ctx context.Context, image []byte) ([]domain.Embedding, error) {
	if !provider.Decodable(image) {
		p.logger.DebugContext(ctx, "image not decodable, no faces", slog.Int("bytes", len(image)))
		return []domain.Embedding{}, nil
	}

	resp, err := p.client.Represent(ctx, dataURI(image))
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && isClientError(se) {
			// Rejections of this particular image, not of the service.
			p.logger.DebugContext(ctx, "deepface rejected image",
				slog.Int("status", se.StatusCode),
				slog.Bool("no_face", se.NoFace()),
			)
			return []domain.Embedding{}, nil
		}
		return nil, domain.ErrExtractorUnavailable.WithError(fmt.Errorf("represent: %w", err))
	}

	embeddings := make([]domain.Embedding, 0, len(resp.Results))
	for i, result := range resp.Results {
		if len(result.Embedding) != domain.EmbeddingDimension {
			return nil, fmt.Errorf("%w: face %d has %d values, want %d (model %q)",
				ErrUnexpectedDimension, i, len(result.Embedding), domain.EmbeddingDimension, p.client.config.Model)
		}
		embeddings = append(embeddings, domain.Embedding(result.Embedding))
	}

	return embeddings, nil
}

func dataURI(image []byte) string {
	return "data:" + http.DetectContentType(image) + ";base64," + base64.StdEncoding.EncodeToString(image)
}

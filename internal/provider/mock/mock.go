package mock

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/saturnino-fabrica-de-software/facefind/internal/domain"
	"github.com/saturnino-fabrica-de-software/facefind/internal/provider"
)

// Provider implementa provider.Extractor para testes e desenvolvimento.
// Identical images yield identical embeddings, so a photo used as its own
// selfie always matches.
type Provider struct {
	facesPerImage int
}

// New cria uma nova instância do MockProvider com uma face por imagem
func New() *Provider {
	return &Provider{facesPerImage: 1}
}

// WithFaces sets how many faces every decodable image reports.
func (p *Provider) WithFaces(n int) *Provider {
	if n < 0 {
		n = 0
	}
	p.facesPerImage = n
	return p
}

// Extract gera embeddings determinísticos baseados no hash da imagem
func (p *Provider) Extract(ctx context.Context, image []byte) ([]domain.Embedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !provider.Decodable(image) {
		return []domain.Embedding{}, nil
	}

	embeddings := make([]domain.Embedding, 0, p.facesPerImage)
	for face := 0; face < p.facesPerImage; face++ {
		embeddings = append(embeddings, generateEmbedding(image, face))
	}
	return embeddings, nil
}

// generateEmbedding expands sha256(image || face) into a unit vector.
func generateEmbedding(image []byte, face int) domain.Embedding {
	seed := make([]byte, 8)
	binary.BigEndian.PutUint64(seed, uint64(face))

	h := sha256.New()
	h.Write(image)
	h.Write(seed)
	hash := h.Sum(nil)
	hashLen := len(hash)

	embedding := make(domain.Embedding, domain.EmbeddingDimension)
	for i := range embedding {
		idx := (i*7 + i/hashLen) % hashLen
		embedding[i] = (float64(hash[idx])/255.0)*2 - 1
	}

	norm := 0.0
	for _, v := range embedding {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return embedding
	}

	for i := range embedding {
		embedding[i] /= norm
	}

	return embedding
}

var _ provider.Extractor = (*Provider)(nil)

package service

import (
	"context"

	"github.com/saturnino-fabrica-de-software/facefind/internal/domain"
)

// EncodingLoader is the read side of the encoding store.
type EncodingLoader interface {
	Load(ctx context.Context, event domain.Event) (*domain.EncodingCollection, error)
}

type EncodingStoreInterface interface {
	EncodingLoader
	Save(ctx context.Context, event domain.Event, c *domain.EncodingCollection) error
	Publish(ctx context.Context, event domain.Event) error
	Sync(ctx context.Context, event domain.Event) (*domain.EncodingCollection, error)
}

type RateLimiterInterface interface {
	CheckMatchLimit(event domain.Event) error
}

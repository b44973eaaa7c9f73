// Package app wires configuration into the concrete storage, mirror,
// extractor and service graph used by the facefind commands.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saturnino-fabrica-de-software/facefind/internal/audit"
	"github.com/saturnino-fabrica-de-software/facefind/internal/blob"
	miniostore "github.com/saturnino-fabrica-de-software/facefind/internal/blob/minio"
	s3store "github.com/saturnino-fabrica-de-software/facefind/internal/blob/s3"
	"github.com/saturnino-fabrica-de-software/facefind/internal/config"
	"github.com/saturnino-fabrica-de-software/facefind/internal/corpus"
	"github.com/saturnino-fabrica-de-software/facefind/internal/database"
	"github.com/saturnino-fabrica-de-software/facefind/internal/face"
	"github.com/saturnino-fabrica-de-software/facefind/internal/mirror"
	"github.com/saturnino-fabrica-de-software/facefind/internal/ratelimit"
	"github.com/saturnino-fabrica-de-software/facefind/internal/service"
	"github.com/saturnino-fabrica-de-software/facefind/internal/store"
)

// App holds the wired components. Close releases the database pool, if any.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Objects blob.Store
	Images  *corpus.BlobImageStore
	Mirror  mirror.Mirror
	Store   *store.EncodingStore
	Limiter *ratelimit.RateLimiter
	Service *service.EventService

	pool *pgxpool.Pool
}

// New connects the object store selected by STORAGE_BACKEND and wires the rest.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	objects, err := NewObjectStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewWithObjects(ctx, cfg, logger, objects)
}

// NewObjectStore returns the S3 or MinIO store holding corpus and blob mirror.
func NewObjectStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.StorageBackend {
	case "minio":
		client, err := miniostore.NewClient(miniostore.Config{
			Endpoint:  cfg.StorageEndpoint,
			AccessKey: cfg.StorageAccessKey,
			SecretKey: cfg.StorageSecretKey,
			UseSSL:    cfg.StorageUseSSL,
			Region:    cfg.AWSRegion,
		})
		if err != nil {
			return nil, err
		}
		return miniostore.NewStore(client, cfg.StorageBucket, ""), nil

	case "s3", "":
		client, err := s3store.NewClient(ctx, s3store.Config{
			Region:    cfg.AWSRegion,
			Endpoint:  cfg.StorageEndpoint,
			AccessKey: cfg.StorageAccessKey,
			SecretKey: cfg.StorageSecretKey,
		})
		if err != nil {
			return nil, err
		}
		return s3store.NewStore(client, cfg.StorageBucket, ""), nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}
}

// NewWithObjects wires everything on top of an existing object store.
func NewWithObjects(ctx context.Context, cfg *config.Config, logger *slog.Logger, objects blob.Store) (*App, error) {
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Objects: objects,
	}

	auditLogger := audit.MultiLogger{audit.NewSlogLogger(logger)}

	switch cfg.MirrorBackend {
	case "postgres":
		if err := database.MigrateUp(ctx, cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("migrate mirror schema: %w", err)
		}
		pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
		if err != nil {
			return nil, err
		}
		a.pool = pool
		a.Mirror = mirror.NewPostgresMirror(pool)
		auditLogger = append(auditLogger, audit.NewPostgresLogger(pool))
	default:
		a.Mirror = mirror.NewBlobMirror(objects)
	}

	extractor, err := face.NewExtractor(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Images = corpus.NewBlobImageStore(objects, corpus.Config{
		PublicBaseURL: cfg.PublicBaseURL,
		MaxImages:     cfg.CorpusMaxImages,
		FetchTimeout:  cfg.FetchTimeout,
	})

	a.Store = store.New(store.Config{
		Dir:           cfg.EncodingsDir,
		MirrorTimeout: cfg.MirrorTimeout,
	}, a.Mirror, logger)

	builder := service.NewCorpusBuilder(a.Images, a.Store, extractor, logger).
		WithConcurrency(cfg.BuildConcurrency).
		WithExtractRateLimit(cfg.ExtractRateLimit).
		WithAudit(auditLogger)

	matcher := service.NewMatchEngine(a.Store, logger).
		WithTolerance(cfg.MatchTolerance).
		WithMaxResults(cfg.MatchMaxResults)

	a.Limiter = ratelimit.NewRateLimiter(cfg.MatchRateLimit, 1)

	a.Service = service.NewEventService(builder, matcher, a.Store, extractor, logger).
		WithAllowedEvents(cfg.Events).
		WithRateLimiter(a.Limiter).
		WithAudit(auditLogger)

	return a, nil
}

// EventSource yields the configured EVENTS or, when none are configured,
// every event published on the mirror.
func (a *App) EventSource(explicit []string) service.EventSource {
	if len(explicit) > 0 {
		return service.StaticEvents(explicit)
	}
	if len(a.Config.Events) > 0 {
		return service.StaticEvents(a.Config.Events)
	}
	lister, ok := a.Mirror.(mirror.EventLister)
	if !ok {
		return service.StaticEvents(nil)
	}
	return lister.Events
}

func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/saturnino-fabrica-de-software/facefind/internal/audit"
	"github.com/saturnino-fabrica-de-software/facefind/internal/corpus"
	"github.com/saturnino-fabrica-de-software/facefind/internal/domain"
	"github.com/saturnino-fabrica-de-software/facefind/internal/provider"
)

const DefaultBuildConcurrency = 4

// ProgressFunc is called after each pending image is processed.
type ProgressFunc func(done, total int)

// CorpusBuilder brings an event's EncodingCollection up to date with its
// image corpus. Runs are additive and idempotent: existing records are never
// rewritten and a re-run on an unchanged corpus appends nothing.
type CorpusBuilder struct {
	images      corpus.ImageStore
	store       EncodingStoreInterface
	extractor   provider.Extractor
	concurrency int
	limiter     *rate.Limiter
	audit       audit.Logger
	logger      *slog.Logger
}

func NewCorpusBuilder(
	images corpus.ImageStore,
	store EncodingStoreInterface,
	extractor provider.Extractor,
	logger *slog.Logger,
) *CorpusBuilder {
	return &CorpusBuilder{
		images:      images,
		store:       store,
		extractor:   extractor,
		concurrency: DefaultBuildConcurrency,
		audit:       &audit.NoOpLogger{},
		logger:      logger.With("component", "corpus_builder"),
	}
}

func (b *CorpusBuilder) WithConcurrency(n int) *CorpusBuilder {
	if n < 1 {
		n = 1
	}
	b.concurrency = n
	return b
}

// WithExtractRateLimit caps extractor calls per second across all workers.
// perSecond <= 0 removes the cap.
func (b *CorpusBuilder) WithExtractRateLimit(perSecond float64) *CorpusBuilder {
	if perSecond <= 0 {
		b.limiter = nil
		return b
	}
	b.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	return b
}

func (b *CorpusBuilder) WithAudit(a audit.Logger) *CorpusBuilder {
	b.audit = a
	return b
}

type extraction struct {
	embeddings []domain.Embedding
	reason     string // non-empty when the image was skipped
}

// Build scans the corpus, extracts embeddings for images not yet recorded
// and persists the appended records. Per-image failures are reported on the
// BuildReport; listing, loading, saving and cancellation are fatal.
func (b *CorpusBuilder) Build(ctx context.Context, ec domain.EventContext, onProgress ProgressFunc) (*domain.BuildReport, error) {
	if err := ec.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	event := ec.Event
	log := b.logger.With("event", event.ID, "request_id", ec.RequestID)

	refs, err := b.images.List(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("event %s: list corpus: %w", event, err)
	}

	collection, err := b.store.Load(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("event %s: load encodings: %w", event, err)
	}

	var pending []domain.ImageRef
	for _, ref := range refs {
		if !collection.HasImage(ref.PublicID) {
			pending = append(pending, ref)
		}
	}

	report := &domain.BuildReport{
		Event:   event.ID,
		Scanned: len(refs),
	}

	log.Info("corpus scan", "images", len(refs), "pending", len(pending), "records", collection.Len())

	results, err := b.extractAll(ctx, pending, onProgress, log)
	if err != nil {
		return nil, fmt.Errorf("event %s: extract: %w", event, err)
	}

	// merge in scan order, after every worker is done
	for i, ref := range pending {
		res := results[i]
		switch {
		case res.reason != "":
			report.Skipped = append(report.Skipped, domain.SkippedImage{PublicID: ref.PublicID, Reason: res.reason})
			continue
		case len(res.embeddings) == 0:
			report.NoFace = append(report.NoFace, ref.PublicID)
			continue
		}

		report.Processed++
		for faceIndex, emb := range res.embeddings {
			added := collection.Append(domain.EncodingRecord{
				PublicID:  ref.PublicID,
				FaceIndex: faceIndex,
				URL:       ref.URL,
				Encoding:  emb,
			})
			if added {
				report.Added++
			} else {
				log.Warn("encoding rejected by collection",
					"key", domain.RecordKey{PublicID: ref.PublicID, FaceIndex: faceIndex}.String())
			}
		}
	}
	report.Total = collection.Len()

	if report.Added > 0 {
		if err := b.store.Save(ctx, event, collection); err != nil {
			return nil, fmt.Errorf("event %s: save encodings: %w", event, err)
		}
		report.Saved = true

		if err := b.store.Publish(ctx, event); err != nil {
			// local cache stays effective; publish can be retried
			log.Warn("publish failed", "error", err)
			report.PublishError = err.Error()
		} else {
			report.Published = true
		}
	}

	report.Duration = time.Since(start)

	log.Info("corpus built",
		"added", report.Added,
		"total", report.Total,
		"skipped", len(report.Skipped),
		"no_face", len(report.NoFace),
		"published", report.Published,
		"duration", report.Duration,
	)

	_ = b.audit.Log(ctx, audit.Entry{
		EventID:   event.ID,
		RequestID: ec.RequestID,
		Action:    audit.ActionCorpusBuilt,
		Success:   true,
		Metadata: map[string]string{
			"scanned": strconv.Itoa(report.Scanned),
			"added":   strconv.Itoa(report.Added),
			"skipped": strconv.Itoa(len(report.Skipped)),
		},
	})

	return report, nil
}

func (b *CorpusBuilder) extractAll(ctx context.Context, pending []domain.ImageRef, onProgress ProgressFunc, log *slog.Logger) ([]extraction, error) {
	results := make([]extraction, len(pending))
	if len(pending) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	var done atomic.Int64
	total := len(pending)

	for i, ref := range pending {
		g.Go(func() error {
			res, err := b.extractOne(gctx, ref, log)
			if err != nil {
				return err
			}
			results[i] = res

			if onProgress != nil {
				onProgress(int(done.Add(1)), total)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// extractOne only returns an error on cancellation; everything else is a skip.
func (b *CorpusBuilder) extractOne(ctx context.Context, ref domain.ImageRef, log *slog.Logger) (extraction, error) {
	if err := ctx.Err(); err != nil {
		return extraction{}, err
	}

	data, err := b.images.Fetch(ctx, ref)
	if err != nil {
		if ctx.Err() != nil {
			return extraction{}, ctx.Err()
		}
		log.Warn("image fetch failed, skipping", "public_id", ref.PublicID, "error", err)
		return extraction{reason: "fetch: " + err.Error()}, nil
	}

	if !provider.Decodable(data) {
		log.Warn("image not decodable, skipping", "public_id", ref.PublicID, "bytes", len(data))
		return extraction{reason: "decode: unreadable image"}, nil
	}

	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return extraction{}, err
		}
	}

	embeddings, err := b.extractor.Extract(ctx, data)
	if err != nil {
		if ctx.Err() != nil {
			return extraction{}, ctx.Err()
		}
		log.Warn("extraction failed, skipping", "public_id", ref.PublicID, "error", err)
		return extraction{reason: "extract: " + err.Error()}, nil
	}

	for i, emb := range embeddings {
		if len(emb) != domain.EmbeddingDimension {
			log.Warn("extractor returned unusable embedding, skipping",
				"public_id", ref.PublicID, "face_index", i, "dimension", len(emb))
			return extraction{reason: fmt.Sprintf("extract: face %d has %d values, want %d",
				i, len(emb), domain.EmbeddingDimension)}, nil
		}
	}

	log.Debug("image processed", "public_id", ref.PublicID, "faces", len(embeddings))
	return extraction{embeddings: embeddings}, nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/saturnino-fabrica-de-software/facefind/internal/domain"
)

const (
	DefaultTolerance  = 0.55
	DefaultMaxResults = 500

	// collections below this size are scanned on the calling goroutine
	parallelThreshold = 4096
	matchChunkSize    = 1024
)

// MatchEngine resolves a query embedding against an event's collection.
type MatchEngine struct {
	store      EncodingLoader
	tolerance  float64
	maxResults int
	logger     *slog.Logger
}

func NewMatchEngine(store EncodingLoader, logger *slog.Logger) *MatchEngine {
	return &MatchEngine{
		store:      store,
		tolerance:  DefaultTolerance,
		maxResults: DefaultMaxResults,
		logger:     logger.With("component", "match_engine"),
	}
}

// WithTolerance sets the inclusive distance threshold. Values that are not
// finite and positive leave the current tolerance unchanged.
func (m *MatchEngine) WithTolerance(tolerance float64) *MatchEngine {
	if !validTolerance(tolerance) {
		m.logger.Warn("ignoring invalid tolerance", "tolerance", tolerance, "current", m.tolerance)
		return m
	}
	m.tolerance = tolerance
	return m
}

func validTolerance(t float64) bool {
	return t > 0 && !math.IsInf(t, 0) && !math.IsNaN(t)
}

// WithMaxResults caps the number of returned images. 0 disables the cap.
func (m *MatchEngine) WithMaxResults(n int) *MatchEngine {
	m.maxResults = n
	return m
}

func (m *MatchEngine) Tolerance() float64 {
	return m.tolerance
}

// Match returns the distinct images having at least one face within
// tolerance of query (distance <= tolerance), in first-seen collection order.
// An empty collection is an empty result.
func (m *MatchEngine) Match(ctx context.Context, ec domain.EventContext, query domain.Embedding) ([]domain.Match, error) {
	if err := ec.Validate(); err != nil {
		return nil, err
	}
	event := ec.Event

	if len(query) == 0 {
		return nil, domain.ErrDimensionMismatch.WithError(fmt.Errorf("event %s: empty query embedding", event))
	}

	if i, ok := nonFinite(query); ok {
		return nil, domain.ErrBadRequest.WithError(
			fmt.Errorf("event %s: query component %d is %v", event, i, query[i]))
	}

	collection, err := m.store.Load(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("event %s: load encodings: %w", event, err)
	}

	matches := []domain.Match{}
	if collection.IsEmpty() {
		return matches, nil
	}

	records := collection.Records()
	distances, err := m.distances(ctx, query, records)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", event, err)
	}

	seen := make(map[string]struct{})
	for i, r := range records {
		// NaN never passes
		if !(distances[i] <= m.tolerance) {
			continue
		}
		if _, ok := seen[r.PublicID]; ok {
			continue
		}
		seen[r.PublicID] = struct{}{}
		matches = append(matches, domain.Match{PublicID: r.PublicID, URL: r.URL, Distance: distances[i]})

		if m.maxResults > 0 && len(matches) >= m.maxResults {
			break
		}
	}

	m.logger.Debug("match completed",
		"event", event.ID,
		"request_id", ec.RequestID,
		"records", len(records),
		"matches", len(matches),
	)

	return matches, nil
}

// distances fills one distance per record. Large collections are split into
// chunks computed concurrently; each chunk writes only its own range.
func (m *MatchEngine) distances(ctx context.Context, query domain.Embedding, records []domain.EncodingRecord) ([]float64, error) {
	out := make([]float64, len(records))

	fill := func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			d, err := EuclideanDistance(query, records[i].Encoding)
			if err != nil {
				return fmt.Errorf("record %s: %w", records[i].Key(), err)
			}
			out[i] = d
		}
		return nil
	}

	if len(records) < parallelThreshold {
		if err := fill(0, len(records)); err != nil {
			return nil, err
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < len(records); lo += matchChunkSize {
		hi := min(lo+matchChunkSize, len(records))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fill(lo, hi)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// nonFinite returns the index of the first NaN or infinite component.
func nonFinite(e domain.Embedding) (int, bool) {
	for i, v := range e {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return i, true
		}
	}
	return 0, false
}

// EuclideanDistance returns the L2 distance between a and b, or
// domain.ErrDimensionMismatch when their lengths differ.
func EuclideanDistance(a, b domain.Embedding) (float64, error) {
	if len(a) != len(b) {
		return 0, domain.ErrDimensionMismatch.WithError(fmt.Errorf("got %d, want %d", len(a), len(b)))
	}

	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

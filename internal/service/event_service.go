package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/saturnino-fabrica-de-software/facefind/internal/audit"
	"github.com/saturnino-fabrica-de-software/facefind/internal/domain"
	"github.com/saturnino-fabrica-de-software/facefind/internal/provider"
)

// EventService is the library boundary used by the CLI and any web layer.
type EventService struct {
	builder   *CorpusBuilder
	matcher   *MatchEngine
	store     EncodingStoreInterface
	extractor provider.Extractor
	limiter   RateLimiterInterface
	allowed   map[string]struct{}
	audit     audit.Logger
	logger    *slog.Logger
}

func NewEventService(
	builder *CorpusBuilder,
	matcher *MatchEngine,
	store EncodingStoreInterface,
	extractor provider.Extractor,
	logger *slog.Logger,
) *EventService {
	return &EventService{
		builder:   builder,
		matcher:   matcher,
		store:     store,
		extractor: extractor,
		audit:     &audit.NoOpLogger{},
		logger:    logger.With("component", "event_service"),
	}
}

// WithAllowedEvents restricts the service to ids. An empty list allows every
// well-formed event.
func (s *EventService) WithAllowedEvents(ids []string) *EventService {
	if len(ids) == 0 {
		s.allowed = nil
		return s
	}
	s.allowed = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.allowed[id] = struct{}{}
	}
	return s
}

func (s *EventService) WithRateLimiter(rl RateLimiterInterface) *EventService {
	s.limiter = rl
	return s
}

func (s *EventService) WithAudit(a audit.Logger) *EventService {
	s.audit = a
	return s
}

func (s *EventService) checkEvent(ec domain.EventContext) error {
	if err := ec.Validate(); err != nil {
		return err
	}
	if s.allowed == nil {
		return nil
	}
	if _, ok := s.allowed[ec.Event.ID]; !ok {
		return domain.ErrUnknownEvent.WithError(fmt.Errorf("event %s is not configured", ec.Event))
	}
	return nil
}

func (s *EventService) checkLimit(ec domain.EventContext) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.CheckMatchLimit(ec.Event)
}

func (s *EventService) BuildCorpus(ctx context.Context, ec domain.EventContext, onProgress ProgressFunc) (*domain.BuildReport, error) {
	if err := s.checkEvent(ec); err != nil {
		return nil, err
	}
	return s.builder.Build(ctx, ec, onProgress)
}

// Match returns the URLs of images matching embedding, falling back to the
// public ID for records stored without a URL.
func (s *EventService) Match(ctx context.Context, ec domain.EventContext, embedding domain.Embedding) ([]string, error) {
	if err := s.checkEvent(ec); err != nil {
		return nil, err
	}
	if err := s.checkLimit(ec); err != nil {
		return nil, err
	}

	matches, err := s.match(ctx, ec, embedding)
	if err != nil {
		return nil, err
	}
	return Links(matches), nil
}

// MatchSelfie extracts the selfie's faces and matches the first one. A selfie
// without a detectable face is an empty result.
func (s *EventService) MatchSelfie(ctx context.Context, ec domain.EventContext, image []byte) ([]domain.Match, error) {
	if err := s.checkEvent(ec); err != nil {
		return nil, err
	}
	if err := s.checkLimit(ec); err != nil {
		return nil, err
	}

	embeddings, err := s.extractor.Extract(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("event %s: extract selfie: %w", ec.Event, err)
	}
	if len(embeddings) == 0 {
		s.logger.Info("no face in selfie", "event", ec.Event.ID, "request_id", ec.RequestID)
		return []domain.Match{}, nil
	}
	if len(embeddings) > 1 {
		s.logger.Debug("selfie has several faces, using the first",
			"event", ec.Event.ID, "request_id", ec.RequestID, "faces", len(embeddings))
	}

	return s.match(ctx, ec, embeddings[0])
}

func (s *EventService) match(ctx context.Context, ec domain.EventContext, embedding domain.Embedding) ([]domain.Match, error) {
	matches, err := s.matcher.Match(ctx, ec, embedding)

	entry := audit.Entry{
		EventID:   ec.Event.ID,
		RequestID: ec.RequestID,
		Action:    audit.ActionFacesMatched,
		Success:   err == nil,
		Metadata: map[string]string{
			"matches":   strconv.Itoa(len(matches)),
			"tolerance": strconv.FormatFloat(s.matcher.Tolerance(), 'f', -1, 64),
		},
	}
	if err != nil {
		entry.Error = err.Error()
	}
	_ = s.audit.Log(ctx, entry)

	return matches, err
}

// Publish republishes the local cache, e.g. after a failed publish during Build.
func (s *EventService) Publish(ctx context.Context, ec domain.EventContext) error {
	if err := s.checkEvent(ec); err != nil {
		return err
	}

	err := s.store.Publish(ctx, ec.Event)

	entry := audit.Entry{
		EventID:   ec.Event.ID,
		RequestID: ec.RequestID,
		Action:    audit.ActionEncodingsPublished,
		Success:   err == nil,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	_ = s.audit.Log(ctx, entry)

	return err
}

// Sync replaces the local cache with the mirror copy.
func (s *EventService) Sync(ctx context.Context, ec domain.EventContext) (*domain.EncodingCollection, error) {
	if err := s.checkEvent(ec); err != nil {
		return nil, err
	}

	c, err := s.store.Sync(ctx, ec.Event)

	entry := audit.Entry{
		EventID:   ec.Event.ID,
		RequestID: ec.RequestID,
		Action:    audit.ActionEncodingsSynced,
		Success:   err == nil,
	}
	if err != nil {
		entry.Error = err.Error()
	} else {
		entry.Metadata = map[string]string{"records": strconv.Itoa(c.Len())}
	}
	_ = s.audit.Log(ctx, entry)

	return c, err
}

// Links maps matches to display links.
func Links(matches []domain.Match) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Link())
	}
	return out
}

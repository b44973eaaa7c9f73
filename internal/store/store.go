// Package store persists each event's EncodingCollection in a local JSON
// cache, mirrored to a remote copy for other hosts and restarts.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/saturnino-fabrica-de-software/facefind/internal/domain"
	"github.com/saturnino-fabrica-de-software/facefind/internal/mirror"
)

const DefaultMirrorTimeout = 20 * time.Second

// Config holds EncodingStore settings.
type Config struct {
	Dir           string
	MirrorTimeout time.Duration
}

// EncodingStore is the two-tier store. The local cache is authoritative for
// the running process; Publish overwrites the mirror (last writer wins).
// There is no locking across processes.
type EncodingStore struct {
	dir           string
	mirror        mirror.Mirror
	mirrorTimeout time.Duration
	logger        *slog.Logger

	loads singleflight.Group

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a store rooted at cfg.Dir. m may be nil, in which case the
// store is local only and Publish always fails with ErrStorageUnavailable.
func New(cfg Config, m mirror.Mirror, logger *slog.Logger) *EncodingStore {
	if cfg.MirrorTimeout <= 0 {
		cfg.MirrorTimeout = DefaultMirrorTimeout
	}
	return &EncodingStore{
		dir:           cfg.Dir,
		mirror:        m,
		mirrorTimeout: cfg.MirrorTimeout,
		logger:        logger.With("component", "encoding_store"),
		locks:         make(map[string]*sync.Mutex),
	}
}

// Path returns the local cache file of event.
func (s *EncodingStore) Path(event domain.Event) string {
	return filepath.Join(s.dir, event.ID+".json")
}

// Load returns the local cache if present, otherwise the mirror copy
// (written through to the local cache), otherwise an empty collection.
// Unreadable or malformed sources are logged and treated as absent.
// Concurrent loads of the same event share one read, which is detached from
// any single caller's cancellation and bounded by the mirror timeout. Every
// caller gets its own copy and stops waiting when its own ctx is done.
func (s *EncodingStore) Load(ctx context.Context, event domain.Event) (*domain.EncodingCollection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := s.loads.DoChan(event.ID, func() (interface{}, error) {
		return s.load(context.WithoutCancel(ctx), event)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.EncodingCollection).Clone(), nil
	}
}

func (s *EncodingStore) load(ctx context.Context, event domain.Event) (*domain.EncodingCollection, error) {
	log := s.logger.With("event", event.ID)

	if c, ok := s.readLocal(event, log); ok {
		return c, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload, ok := s.fetchMirror(ctx, event, log)
	if !ok {
		return domain.NewEncodingCollection(), nil
	}

	c, dropped, err := Decode(payload)
	if err != nil {
		log.Warn("mirror payload is malformed, treating as absent", "error", err)
		return domain.NewEncodingCollection(), nil
	}
	logDropped(log, "mirror", dropped)

	if err := s.Save(ctx, event, c); err != nil {
		// still usable in memory; the next Load retries the mirror
		log.Warn("failed to hydrate local cache", "error", err)
	} else {
		log.Info("hydrated local cache from mirror", "records", c.Len())
	}

	return c, nil
}

func (s *EncodingStore) readLocal(event domain.Event, log *slog.Logger) (*domain.EncodingCollection, bool) {
	data, err := os.ReadFile(s.Path(event))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn("local cache unreadable, treating as absent", "error", err)
		}
		return nil, false
	}

	c, dropped, err := Decode(data)
	if err != nil {
		log.Warn("local cache is malformed, treating as absent", "error", err)
		return nil, false
	}
	logDropped(log, "local cache", dropped)

	return c, true
}

func (s *EncodingStore) fetchMirror(ctx context.Context, event domain.Event, log *slog.Logger) ([]byte, bool) {
	if s.mirror == nil {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, s.mirrorTimeout)
	defer cancel()

	payload, err := s.mirror.Fetch(ctx, event)
	switch {
	case err == nil:
		return payload, true
	case errors.Is(err, mirror.ErrNotFound):
		log.Debug("no mirror copy yet")
	default:
		log.Warn("mirror unavailable, treating as absent", "error", err)
	}
	return nil, false
}

// Save writes the local cache atomically.
func (s *EncodingStore) Save(ctx context.Context, event domain.Event, c *domain.EncodingCollection) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := Encode(c)
	if err != nil {
		return fmt.Errorf("event %s: %w", event, err)
	}

	lock := s.lockFor(event)
	lock.Lock()
	defer lock.Unlock()

	if err := s.writeLocal(event, data); err != nil {
		return fmt.Errorf("event %s: save local cache: %w", event, err)
	}

	s.logger.Debug("local cache saved", "event", event.ID, "records", c.Len())
	return nil
}

// Publish uploads the current local cache bytes, overwriting the mirror.
func (s *EncodingStore) Publish(ctx context.Context, event domain.Event) error {
	lock := s.lockFor(event)
	lock.Lock()
	defer lock.Unlock()

	data, err := os.ReadFile(s.Path(event))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.ErrNoEncodings.WithError(fmt.Errorf("event %s: no local cache", event))
		}
		return domain.ErrStorageUnavailable.WithError(fmt.Errorf("event %s: read local cache: %w", event, err))
	}

	if s.mirror == nil {
		return domain.ErrStorageUnavailable.WithError(fmt.Errorf("event %s: no mirror configured", event))
	}

	ctx, cancel := context.WithTimeout(ctx, s.mirrorTimeout)
	defer cancel()

	if err := s.mirror.Upload(ctx, event, data); err != nil {
		return domain.ErrStorageUnavailable.WithError(err)
	}

	s.logger.Info("encodings published", "event", event.ID, "bytes", len(data))
	return nil
}

// Sync replaces the local cache with the mirror copy. Unlike Load it
// reports why the mirror could not be used.
func (s *EncodingStore) Sync(ctx context.Context, event domain.Event) (*domain.EncodingCollection, error) {
	if s.mirror == nil {
		return nil, domain.ErrStorageUnavailable.WithError(fmt.Errorf("event %s: no mirror configured", event))
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.mirrorTimeout)
	payload, err := s.mirror.Fetch(fetchCtx, event)
	cancel()
	if err != nil {
		if errors.Is(err, mirror.ErrNotFound) {
			return nil, domain.ErrNoEncodings.WithError(fmt.Errorf("event %s: nothing published", event))
		}
		return nil, domain.ErrStorageUnavailable.WithError(err)
	}

	c, dropped, err := Decode(payload)
	if err != nil {
		return nil, domain.ErrStorageUnavailable.WithError(fmt.Errorf("event %s: %w", event, err))
	}
	logDropped(s.logger.With("event", event.ID), "mirror", dropped)

	// rewrite from the decoded collection so dropped records do not reach the cache
	if err := s.Save(ctx, event, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *EncodingStore) writeLocal(event domain.Event, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return writeFileAtomic(s.Path(event), func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func (s *EncodingStore) lockFor(event domain.Event) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[event.ID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[event.ID] = l
	}
	return l
}

func logDropped(log *slog.Logger, source string, dropped []domain.EncodingRecord) {
	if len(dropped) == 0 {
		return
	}
	keys := make([]string, 0, len(dropped))
	for _, r := range dropped {
		keys = append(keys, r.Key().String())
	}
	log.Warn("dropped invalid records", "source", source, "count", len(dropped), "keys", keys)
}

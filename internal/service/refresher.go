package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/facefind/internal/domain"
)

const DefaultRefreshInterval = 5 * time.Minute

// EventSource yields the events to refresh on each tick.
type EventSource func(ctx context.Context) ([]string, error)

// StaticEvents returns a source that always yields ids.
func StaticEvents(ids []string) EventSource {
	return func(context.Context) ([]string, error) {
		return ids, nil
	}
}

// Refresher rebuilds events periodically, picking up photographs uploaded
// since the previous run.
type Refresher struct {
	service  *EventService
	events   EventSource
	interval time.Duration
	logger   *slog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once

	// events whose local cache is newer than the mirror
	mu          sync.Mutex
	unpublished map[string]struct{}
}

func NewRefresher(service *EventService, events EventSource, interval time.Duration, logger *slog.Logger) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Refresher{
		service:  service,
		events:   events,
		interval: interval,
		logger:   logger.With("component", "refresher"),
		stopCh:   make(chan struct{}),

		unpublished: make(map[string]struct{}),
	}
}

// Run refreshes once immediately and then on every tick until ctx is done or
// Stop is called.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("refresher started", "interval", r.interval)
	r.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresher stopped")
			return
		case <-r.stopCh:
			r.logger.Info("refresher stopped")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

func (r *Refresher) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// RunOnce builds every event of the source in turn. Failures are logged and
// do not stop the remaining events. It returns the reports of successful builds.
func (r *Refresher) RunOnce(ctx context.Context) []*domain.BuildReport {
	ids, err := r.events(ctx)
	if err != nil {
		r.logger.Error("failed to list events", "error", err)
		return nil
	}

	var reports []*domain.BuildReport
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}

		report, err := r.refresh(ctx, id)
		if err != nil {
			r.logger.Error("failed to refresh event", "event", id, "error", err)
			continue
		}
		reports = append(reports, report)
	}
	return reports
}

func (r *Refresher) refresh(ctx context.Context, id string) (*domain.BuildReport, error) {
	ec, err := domain.NewEventContext(id)
	if err != nil {
		return nil, err
	}

	report, buildErr := r.service.BuildCorpus(ctx, ec, nil)
	if buildErr == nil && report.Saved && !report.Published {
		r.setUnpublished(id, true)
	}

	// a cache left unpublished by any earlier tick is retried until it lands,
	// even when this build added nothing or failed
	if r.isUnpublished(id) {
		r.logger.Warn("encodings saved locally but not published, retrying", "event", id)
		if err := r.service.Publish(ctx, ec); err != nil {
			r.logger.Warn("publish retry failed", "event", id, "error", err)
		} else {
			r.setUnpublished(id, false)
			if report != nil {
				report.Published = true
				report.PublishError = ""
			}
		}
	}

	if buildErr != nil {
		return nil, fmt.Errorf("build: %w", buildErr)
	}
	return report, nil
}

// Unpublished lists the events still waiting for a successful publish.
func (r *Refresher) Unpublished() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.unpublished))
	for id := range r.unpublished {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Refresher) isUnpublished(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.unpublished[id]
	return ok
}

func (r *Refresher) setUnpublished(id string, pending bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pending {
		r.unpublished[id] = struct{}{}
	} else {
		delete(r.unpublished, id)
	}
}

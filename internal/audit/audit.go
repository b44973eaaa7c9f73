package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Action defines the type of auditable operation
type Action string

const (
	ActionCorpusBuilt        Action = "CORPUS_BUILT"
	ActionEncodingsPublished Action = "ENCODINGS_PUBLISHED"
	ActionEncodingsSynced    Action = "ENCODINGS_SYNCED"
	ActionFacesMatched       Action = "FACES_MATCHED"
)

// Entry records one core operation on an event. Guest selfies are biometric
// data, so entries carry counts and outcomes only, never embeddings.
type Entry struct {
	ID        uuid.UUID         `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventID   string            `json:"event_id"`
	RequestID uuid.UUID         `json:"request_id"`
	Action    Action            `json:"action"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (e *Entry) fill() {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
}

// Logger defines the interface for audit logging
type Logger interface {
	Log(ctx context.Context, entry Entry) error
}

// SlogLogger implements Logger using slog
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a new audit logger using slog
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{
		logger: logger.With("component", "audit"),
	}
}

// Log records an audit entry
func (l *SlogLogger) Log(ctx context.Context, entry Entry) error {
	entry.fill()

	entryJSON, err := json.Marshal(entry)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to marshal audit entry",
			slog.String("error", err.Error()),
			slog.String("action", string(entry.Action)),
		)
		return err
	}

	l.logger.InfoContext(ctx, "audit_event",
		slog.String("audit_id", entry.ID.String()),
		slog.String("action", string(entry.Action)),
		slog.String("event", entry.EventID),
		slog.String("request_id", entry.RequestID.String()),
		slog.Bool("success", entry.Success),
		slog.String("entry", string(entryJSON)),
	)

	return nil
}

// MultiLogger fans an entry out to several loggers. Every logger is tried;
// the first error is returned.
type MultiLogger []Logger

func (m MultiLogger) Log(ctx context.Context, entry Entry) error {
	entry.fill()

	var first error
	for _, l := range m {
		if err := l.Log(ctx, entry); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NoOpLogger is a logger that does nothing (for testing or when audit is disabled)
type NoOpLogger struct{}

// Log does nothing and returns nil
func (l *NoOpLogger) Log(_ context.Context, _ Entry) error {
	return nil
}

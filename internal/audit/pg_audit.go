package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the audit table needs (pgxmock compatible)
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

// PostgresLogger appends entries to the audit_events table.
type PostgresLogger struct {
	db DB
}

func NewPostgresLogger(db DB) *PostgresLogger {
	return &PostgresLogger{db: db}
}

func (l *PostgresLogger) Log(ctx context.Context, entry Entry) error {
	entry.fill()

	m := make(map[string]string, len(entry.Metadata)+2)
	for k, v := range entry.Metadata {
		m[k] = v
	}
	m["success"] = strconv.FormatBool(entry.Success)
	if entry.Error != "" {
		m["error"] = entry.Error
	}
	metadata, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}

	query := `
		INSERT INTO audit_events (id, event_id, request_id, action, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = l.db.Exec(ctx, query,
		entry.ID, entry.EventID, entry.RequestID, string(entry.Action), metadata, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("event %s: write audit entry: %w", entry.EventID, err)
	}
	return nil
}

var _ Logger = (*PostgresLogger)(nil)

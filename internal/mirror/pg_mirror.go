package mirror

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saturnino-fabrica-de-software/facefind/internal/domain"
)

// DB interface for database operations (compatible with pgxpool.Pool and pgxmock)
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

// PostgresMirror stores payloads in the encoding_mirrors table.
type PostgresMirror struct {
	db DB
}

// NewPostgresMirror accepts a *pgxpool.Pool or a pgxmock pool
func NewPostgresMirror(db DB) *PostgresMirror {
	return &PostgresMirror{db: db}
}

// Fetch retrieves the payload of an event
func (m *PostgresMirror) Fetch(ctx context.Context, event domain.Event) ([]byte, error) {
	query := `
		SELECT payload
		FROM encoding_mirrors
		WHERE event_id = $1
	`

	var payload []byte
	err := m.db.QueryRow(ctx, query, event.ID).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("event %s: fetch mirror: %w", event, err)
	}

	return payload, nil
}

// Upload replaces the payload of an event
func (m *PostgresMirror) Upload(ctx context.Context, event domain.Event, payload []byte) error {
	query := `
		INSERT INTO encoding_mirrors (event_id, payload, record_count, updated_at)
		VALUES ($1, $2::jsonb, jsonb_array_length($2::jsonb), NOW())
		ON CONFLICT (event_id) DO UPDATE
		SET payload = EXCLUDED.payload,
		    record_count = EXCLUDED.record_count,
		    updated_at = NOW()
	`

	if _, err := m.db.Exec(ctx, query, event.ID, string(payload)); err != nil {
		return fmt.Errorf("event %s: upload mirror: %w", event, err)
	}
	return nil
}

// Events lists event IDs that have a published payload
func (m *PostgresMirror) Events(ctx context.Context) ([]string, error) {
	rows, err := m.db.Query(ctx, `SELECT event_id FROM encoding_mirrors ORDER BY event_id`)
	if err != nil {
		return nil, fmt.Errorf("list mirror: %w", err)
	}
	defer rows.Close()

	var events []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		events = append(events, id)
	}

	return events, rows.Err()
}

var (
	_ Mirror      = (*PostgresMirror)(nil)
	_ EventLister = (*PostgresMirror)(nil)
)

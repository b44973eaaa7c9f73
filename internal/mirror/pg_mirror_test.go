package mirror

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facefind/internal/domain"
)

var testEvent = domain.Event{ID: "event_A"}

func TestPostgresMirror_Fetch(t *testing.T) {
	t.Run("returns stored payload", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		m := NewPostgresMirror(mock)
		payload := []byte(`[{"public_id":"a"}]`)

		rows := pgxmock.NewRows([]string{"payload"}).AddRow(payload)
		mock.ExpectQuery("SELECT payload").
			WithArgs("event_A").
			WillReturnRows(rows)

		got, err := m.Fetch(context.Background(), testEvent)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row maps to ErrNotFound", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		m := NewPostgresMirror(mock)

		mock.ExpectQuery("SELECT payload").
			WithArgs("event_A").
			WillReturnError(pgx.ErrNoRows)

		got, err := m.Fetch(context.Background(), testEvent)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error is wrapped", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		m := NewPostgresMirror(mock)
		dbErr := errors.New("connection reset")

		mock.ExpectQuery("SELECT payload").
			WithArgs("event_A").
			WillReturnError(dbErr)

		_, err = m.Fetch(context.Background(), testEvent)
		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresMirror_Upload(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	m := NewPostgresMirror(mock)
	payload := []byte(`[]`)

	mock.ExpectExec("INSERT INTO encoding_mirrors").
		WithArgs("event_A", "[]").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = m.Upload(context.Background(), testEvent, payload)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMirror_Upload_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	m := NewPostgresMirror(mock)

	mock.ExpectExec("INSERT INTO encoding_mirrors").
		WithArgs("event_A", "[]").
		WillReturnError(errors.New("read-only transaction"))

	err = m.Upload(context.Background(), testEvent, []byte(`[]`))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "event_A")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMirror_Events(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	m := NewPostgresMirror(mock)

	rows := pgxmock.NewRows([]string{"event_id"}).
		AddRow("event_A").
		AddRow("event_B")
	mock.ExpectQuery("SELECT event_id FROM encoding_mirrors").
		WillReturnRows(rows)

	events, err := m.Events(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"event_A", "event_B"}, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

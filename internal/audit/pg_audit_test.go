package audit

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresLogger_Log(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	logger := NewPostgresLogger(mock)
	requestID := uuid.New()

	mock.ExpectExec("INSERT INTO audit_events").
		WithArgs(
			pgxmock.AnyArg(), // id
			"event_A",
			requestID,
			"CORPUS_BUILT",
			pgxmock.AnyArg(), // metadata
			pgxmock.AnyArg(), // created_at
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = logger.Log(context.Background(), Entry{
		EventID:   "event_A",
		RequestID: requestID,
		Action:    ActionCorpusBuilt,
		Success:   true,
		Metadata:  map[string]string{"added": "3"},
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLogger_Log_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	logger := NewPostgresLogger(mock)

	mock.ExpectExec("INSERT INTO audit_events").
		WithArgs(
			pgxmock.AnyArg(),
			"event_A",
			pgxmock.AnyArg(),
			"FACES_MATCHED",
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
		).
		WillReturnError(errors.New("relation does not exist"))

	err = logger.Log(context.Background(), Entry{EventID: "event_A", Action: ActionFacesMatched})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "event_A")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// metadataArg decodes the JSONB argument and checks it against want.
type metadataArg struct {
	want map[string]string
}

func (a metadataArg) Match(v interface{}) bool {
	raw, ok := v.([]byte)
	if !ok {
		return false
	}
	var got map[string]string
	if err := json.Unmarshal(raw, &got); err != nil {
		return false
	}
	return reflect.DeepEqual(a.want, got)
}

func TestPostgresLogger_Log_Metadata(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		want  map[string]string
	}{
		{
			name:  "success without metadata",
			entry: Entry{EventID: "event_A", Action: ActionEncodingsPublished, Success: true},
			want:  map[string]string{"success": "true"},
		},
		{
			name:  "failure carries error",
			entry: Entry{EventID: "event_A", Action: ActionEncodingsPublished, Error: "mirror down"},
			want:  map[string]string{"success": "false", "error": "mirror down"},
		},
		{
			name: "metadata merged",
			entry: Entry{
				EventID:  "event_A",
				Action:   ActionFacesMatched,
				Success:  true,
				Metadata: map[string]string{"matches": "2"},
			},
			want: map[string]string{"success": "true", "matches": "2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			mock.ExpectExec("INSERT INTO audit_events").
				WithArgs(
					pgxmock.AnyArg(),
					"event_A",
					pgxmock.AnyArg(),
					string(tt.entry.Action),
					metadataArg{want: tt.want},
					pgxmock.AnyArg(),
				).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))

			require.NoError(t, NewPostgresLogger(mock).Log(context.Background(), tt.entry))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

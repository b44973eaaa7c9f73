package domain

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

var eventIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// Event identifica o escopo de um corpus de imagens e suas codificações.
type Event struct {
	ID string `json:"id"`
}

// NewEvent validates id and returns the event it names. The id ends up in
// file paths and object keys, so separators and dots are rejected.
func NewEvent(id string) (Event, error) {
	if !eventIDRegex.MatchString(id) {
		return Event{}, ErrInvalidEvent.WithError(errInvalidEventID(id))
	}
	return Event{ID: id}, nil
}

func (e Event) String() string {
	return e.ID
}

// EventContext carries the resolved event of one request into the core API.
type EventContext struct {
	Event     Event
	RequestID uuid.UUID
}

// NewEventContext resolves id into a context with a fresh request ID.
func NewEventContext(id string) (EventContext, error) {
	ev, err := NewEvent(id)
	if err != nil {
		return EventContext{}, err
	}
	return EventContext{Event: ev, RequestID: uuid.New()}, nil
}

// Validate guards against zero-value contexts built without NewEventContext.
func (ec EventContext) Validate() error {
	if !eventIDRegex.MatchString(ec.Event.ID) {
		return ErrInvalidEvent.WithError(errInvalidEventID(ec.Event.ID))
	}
	return nil
}

func errInvalidEventID(id string) error {
	return fmt.Errorf("event id %q must be 1-64 letters, digits, '_' or '-'", id)
}

package events

import (
	"encoding/json"
	"fmt"

	"github.com/go-go-golems/chatscript/pkg/usage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type EventType string

const (
	EventTypeRunStart           EventType = "run-start"
	EventTypeTurnStart          EventType = "turn-start"
	EventTypeTurnComplete       EventType = "turn-complete"
	EventTypeReminderUnresolved EventType = "reminder-unresolved"
	EventTypeMissingVariables   EventType = "missing-variables"
	EventTypeRunComplete        EventType = "run-complete"
	EventTypeError              EventType = "error"
)

type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

// EventMetadata identifies the run and, for per-turn events, the script entry.
// Index is -1 for events about the run as a whole.
type EventMetadata struct {
	ID    uuid.UUID `json:"message_id" yaml:"message_id"`
	RunID uuid.UUID `json:"run_id" yaml:"run_id"`
	Model string    `json:"model,omitempty" yaml:"model,omitempty"`
	Index int       `json:"index" yaml:"index"`
	Name  string    `json:"name,omitempty" yaml:"name,omitempty"`
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("message_id", em.ID.String())
	e.Str("run_id", em.RunID.String())
	if em.Model != "" {
		e.Str("model", em.Model)
	}
	if em.Index >= 0 {
		e.Int("index", em.Index)
	}
	if em.Name != "" {
		e.Str("name", em.Name)
	}
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta"`

	// set when the event was decoded by NewEventFromJson
	payload []byte
}

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
	ev.Object("meta", e.Metadata_)
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Metadata() EventMetadata {
	return e.Metadata_
}

func (e *EventImpl) Payload() []byte {
	return e.payload
}

var _ Event = &EventImpl{}

type EventRunStart struct {
	EventImpl
	Entries    int              `json:"entries"`
	Accounting usage.Accounting `json:"accounting"`
}

func NewRunStartEvent(metadata EventMetadata, entries int, accounting usage.Accounting) *EventRunStart {
	return &EventRunStart{
		EventImpl:  EventImpl{Type_: EventTypeRunStart, Metadata_: metadata},
		Entries:    entries,
		Accounting: accounting,
	}
}

var _ Event = &EventRunStart{}

// EventTurnStart is published once the prompt is resolved, right before it
// is sent to the backend.
type EventTurnStart struct {
	EventImpl
	Prompt string `json:"prompt"`
}

func NewTurnStartEvent(metadata EventMetadata, prompt string) *EventTurnStart {
	return &EventTurnStart{
		EventImpl: EventImpl{Type_: EventTypeTurnStart, Metadata_: metadata},
		Prompt:    prompt,
	}
}

var _ Event = &EventTurnStart{}

type EventTurnComplete struct {
	EventImpl
	Prompt string       `json:"prompt"`
	Reply  string       `json:"reply"`
	Usage  usage.Turn   `json:"usage"`
	Totals usage.Totals `json:"totals"`
}

func NewTurnCompleteEvent(metadata EventMetadata, prompt string, reply string, turn usage.Turn, totals usage.Totals) *EventTurnComplete {
	return &EventTurnComplete{
		EventImpl: EventImpl{Type_: EventTypeTurnComplete, Metadata_: metadata},
		Prompt:    prompt,
		Reply:     reply,
		Usage:     turn,
		Totals:    totals,
	}
}

var _ Event = &EventTurnComplete{}

// EventReminderUnresolved reports a reminder entry whose key names no
// earlier entry. The turn still runs, with nothing appended.
type EventReminderUnresolved struct {
	EventImpl
	Key string `json:"key"`
}

func NewReminderUnresolvedEvent(metadata EventMetadata, key string) *EventReminderUnresolved {
	return &EventReminderUnresolved{
		EventImpl: EventImpl{Type_: EventTypeReminderUnresolved, Metadata_: metadata},
		Key:       key,
	}
}

var _ Event = &EventReminderUnresolved{}

type EventMissingVariables struct {
	EventImpl
	Tokens []string `json:"tokens"`
}

func NewMissingVariablesEvent(metadata EventMetadata, tokens []string) *EventMissingVariables {
	return &EventMissingVariables{
		EventImpl: EventImpl{Type_: EventTypeMissingVariables, Metadata_: metadata},
		Tokens:    tokens,
	}
}

var _ Event = &EventMissingVariables{}

type EventRunComplete struct {
	EventImpl
	Turns  int          `json:"turns"`
	Totals usage.Totals `json:"totals"`
}

func NewRunCompleteEvent(metadata EventMetadata, turns int, totals usage.Totals) *EventRunComplete {
	return &EventRunComplete{
		EventImpl: EventImpl{Type_: EventTypeRunComplete, Metadata_: metadata},
		Turns:     turns,
		Totals:    totals,
	}
}

var _ Event = &EventRunComplete{}

type EventError struct {
	EventImpl
	ErrorString string `json:"error_string"`
}

func NewErrorEvent(metadata EventMetadata, err error) *EventError {
	return &EventError{
		EventImpl:   EventImpl{Type_: EventTypeError, Metadata_: metadata},
		ErrorString: err.Error(),
	}
}

var _ Event = &EventError{}

func NewEventFromJson(b []byte) (Event, error) {
	var e *EventImpl
	err := json.Unmarshal(b, &e)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("empty event payload")
	}
	e.payload = b

	switch e.Type_ {
	case EventTypeRunStart:
		return decodeTyped[EventRunStart](e)
	case EventTypeTurnStart:
		return decodeTyped[EventTurnStart](e)
	case EventTypeTurnComplete:
		return decodeTyped[EventTurnComplete](e)
	case EventTypeReminderUnresolved:
		return decodeTyped[EventReminderUnresolved](e)
	case EventTypeMissingVariables:
		return decodeTyped[EventMissingVariables](e)
	case EventTypeRunComplete:
		return decodeTyped[EventRunComplete](e)
	case EventTypeError:
		return decodeTyped[EventError](e)
	}

	return e, nil
}

type typedEvent[T any] interface {
	*T
	Event
	setPayload([]byte)
}

func (e *EventImpl) setPayload(b []byte) {
	e.payload = b
}

func decodeTyped[T any, PT typedEvent[T]](e Event) (Event, error) {
	ret, ok := ToTypedEvent[T](e)
	if !ok {
		return nil, fmt.Errorf("could not cast event to %s", e.Type())
	}
	PT(ret).setPayload(e.Payload())
	return PT(ret), nil
}

func ToTypedEvent[T any](e Event) (*T, bool) {
	var ret *T
	err := json.Unmarshal(e.Payload(), &ret)
	if err != nil || ret == nil {
		return nil, false
	}
	return ret, true
}

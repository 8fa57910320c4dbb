// Package cqrs provides the in-process command, query and event buses that
// decouple HTTP routes from side effects. Commands dispatch to exactly one
// handler and propagate failures to the caller; events fan out to any number
// of subscribers and absorb their failures.
package cqrs

import (
	"time"

	"github.com/google/uuid"
)

// Metadata travels opaquely with a message. The buses never interpret it;
// handlers use CorrelationID to tie logs across a command -> event chain.
type Metadata struct {
	CorrelationID string
	UserID        string
	Source        string
	Timestamp     time.Time
}

// Command is an instruction to change state.
type Command struct {
	Type    string
	Payload any
	Meta    Metadata
}

// Query is a read-side request, structurally identical to Command.
type Query struct {
	Type    string
	Payload any
	Meta    Metadata
}

// Event is a notification that something already happened.
type Event struct {
	Type    string
	Payload any
	Meta    Metadata
}

// NewCommand builds a command, defaulting the metadata timestamp to now and
// minting a correlation id when the caller did not supply one.
func NewCommand(msgType string, payload any, meta Metadata) Command {
	return Command{Type: msgType, Payload: payload, Meta: fillMeta(meta)}
}

// NewQuery builds a query with defaulted metadata.
func NewQuery(msgType string, payload any, meta Metadata) Query {
	return Query{Type: msgType, Payload: payload, Meta: fillMeta(meta)}
}

// NewEvent builds an event with defaulted metadata. Handlers that publish
// events in reaction to a command should pass the command's metadata through
// so the correlation id survives the hop.
func NewEvent(msgType string, payload any, meta Metadata) Event {
	return Event{Type: msgType, Payload: payload, Meta: fillMeta(meta)}
}

func fillMeta(meta Metadata) Metadata {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now().UTC()
	}
	if meta.CorrelationID == "" {
		meta.CorrelationID = uuid.NewString()
	}
	return meta
}

// Package realtime carries feed change notifications from the process that
// wrote a feed to every open feed viewer. Events travel over Redis Pub/Sub;
// each viewer runs a Reconciler that decides how its page should react.
package realtime

import (
	"encoding/json"
	"fmt"
)

// EventType is the kind of change that happened to a feed.
type EventType string

// Feed change kinds.
const (
	EventInsert EventType = "insert"
	EventDelete EventType = "delete"
)

// FeedRef identifies the feed an event is about.
type FeedRef struct {
	ID           string `json:"id"`
	SubmissionID string `json:"submission_id"`
}

// Event is one feed change.
type Event struct {
	Type EventType `json:"type"`
	Feed FeedRef   `json:"feed"`
}

// Encode serializes the event for the wire.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEvent parses a wire message. Unknown types are rejected.
func DecodeEvent(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("decoding feed event: %w", err)
	}
	switch e.Type {
	case EventInsert, EventDelete:
	default:
		return Event{}, fmt.Errorf("decoding feed event: unknown type %q", e.Type)
	}
	if e.Feed.ID == "" {
		return Event{}, fmt.Errorf("decoding feed event: missing feed id")
	}
	return e, nil
}

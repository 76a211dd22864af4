package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Topic is the watermill topic all UI events are published on.
const Topic = "kbchat.ui"

type EventType string

const (
	EventTurnAppended        EventType = "turn.appended"
	EventTypingShown         EventType = "typing.shown"
	EventTypingRemoved       EventType = "typing.removed"
	EventTranscriptCleared   EventType = "transcript.cleared"
	EventBannerShown         EventType = "banner.shown"
	EventBannerFading        EventType = "banner.fading"
	EventBannerRemoved       EventType = "banner.removed"
	EventConversationChanged EventType = "conversation.changed"
	EventTitleChanged        EventType = "title.changed"
	EventHistoryChanged      EventType = "history.changed"
	EventSendSettled         EventType = "send.settled"
)

// Event describes one UI state change. Receivers treat it as a notification
// and read authoritative state from the transcript, banner board and history.
type Event struct {
	Type           EventType `json:"type"`
	NodeID         string    `json:"node_id,omitempty"`
	Role           string    `json:"role,omitempty"`
	Content        string    `json:"content,omitempty"`
	Message        string    `json:"message,omitempty"`
	ConversationID string    `json:"conversation_id,omitempty"`
	At             time.Time `json:"at"`
}

func (e Event) Marshal() ([]byte, error) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	return json.Marshal(e)
}

func Unmarshal(b []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return Event{}, errors.Wrap(err, "decode ui event")
	}
	if e.Type == "" {
		return Event{}, errors.New("decode ui event: missing type")
	}
	return e, nil
}

// Sink receives UI events.
type Sink interface {
	Publish(e Event) error
}

// Discard drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Publish(Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

var _ Sink = &Recorder{}

func (r *Recorder) Publish(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

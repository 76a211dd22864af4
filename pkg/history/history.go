// Package history keeps the list of the user's conversations and which one
// is highlighted as active.
package history

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/kbchat/pkg/api"
	"github.com/go-go-golems/kbchat/pkg/events"
)

type Lister interface {
	ListConversations(ctx context.Context) ([]api.Conversation, error)
}

type Entry struct {
	ID        api.ConversationID
	Title     string
	Preview   string
	CreatedAt string
	Active    bool
}

type List struct {
	lister Lister
	sink   events.Sink

	mu      sync.RWMutex
	entries []Entry
	active  api.ConversationID
}

func NewList(lister Lister, sink events.Sink) *List {
	if sink == nil {
		sink = events.Discard
	}
	return &List{lister: lister, sink: sink}
}

// Refresh reloads the entries from the server. The active id survives the
// reload. On error the previous entries are kept.
func (l *List) Refresh(ctx context.Context) error {
	convs, err := l.lister.ListConversations(ctx)
	if err != nil {
		return errors.Wrap(err, "list conversations")
	}

	entries := make([]Entry, 0, len(convs))
	for _, c := range convs {
		entries = append(entries, Entry{
			ID:        c.ID,
			Title:     c.Title,
			Preview:   c.Preview,
			CreatedAt: c.CreatedAt,
		})
	}

	l.mu.Lock()
	l.entries = entries
	active := l.active
	l.mu.Unlock()

	log.Debug().Int("count", len(entries)).Msg("conversation history refreshed")
	l.changed(active)
	return nil
}

// Entries returns a copy of the list with Active set on the highlighted one.
func (l *List) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		e.Active = !l.active.IsZero() && e.ID == l.active
		out[i] = e
	}
	return out
}

func (l *List) SetActive(id api.ConversationID) {
	l.mu.Lock()
	l.active = id
	l.mu.Unlock()
	l.changed(id)
}

// ClearActive removes the highlighting from every entry.
func (l *List) ClearActive() {
	l.SetActive("")
}

func (l *List) Active() api.ConversationID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Remove drops id from the list, clearing the highlight when it was active.
func (l *List) Remove(id api.ConversationID) bool {
	l.mu.Lock()
	idx := -1
	for i, e := range l.entries {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		l.mu.Unlock()
		return false
	}
	l.entries = append(l.entries[:idx:idx], l.entries[idx+1:]...)
	if l.active == id {
		l.active = ""
	}
	active := l.active
	l.mu.Unlock()
	l.changed(active)
	return true
}

func (l *List) changed(active api.ConversationID) {
	err := l.sink.Publish(events.Event{
		Type:           events.EventHistoryChanged,
		ConversationID: active.String(),
	})
	if err != nil {
		log.Warn().Err(err).Msg("could not publish history.changed")
	}
}

package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/kbchat/pkg/api"
	"github.com/go-go-golems/kbchat/pkg/events"
)

// ProgramSender is satisfied by *tea.Program.
type ProgramSender interface {
	Send(msg tea.Msg)
}

// EventMsg wraps a bus event delivered to the program.
type EventMsg struct {
	Event events.Event
}

// ForwardFunc returns a bus handler that injects every event into p.
// The handler blocks until the program accepts the message, so nothing
// running inside Update may publish on the bus.
func ForwardFunc(p ProgramSender) func(e events.Event) error {
	return func(e events.Event) error {
		log.Debug().Str("event", string(e.Type)).Msg("forwarding ui event")
		p.Send(EventMsg{Event: e})
		return nil
	}
}

type clearInputMsg struct{}

type focusInputMsg struct{}

type titleMsg struct{ title string }

type conversationMsg struct{ id api.ConversationID }

// Bridge hands widget operations requested from worker goroutines to the
// program. Calls made before Attach are dropped.
type Bridge struct {
	mu sync.Mutex
	p  ProgramSender
}

func NewBridge() *Bridge {
	return &Bridge{}
}

func (b *Bridge) Attach(p ProgramSender) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.p = p
}

// Clear empties the message field.
func (b *Bridge) Clear() { b.send(clearInputMsg{}) }

// Focus moves the cursor to the message field.
func (b *Bridge) Focus() { b.send(focusInputMsg{}) }

func (b *Bridge) SetTitle(title string) { b.send(titleMsg{title: title}) }

func (b *Bridge) SetConversationID(id api.ConversationID) { b.send(conversationMsg{id: id}) }

func (b *Bridge) send(msg tea.Msg) {
	b.mu.Lock()
	p := b.p
	b.mu.Unlock()
	if p == nil {
		log.Debug().Msgf("ui bridge not attached, dropping %T", msg)
		return
	}
	p.Send(msg)
}

package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/kbchat/pkg/api"
	"github.com/go-go-golems/kbchat/pkg/events"
)

// PlainPrinter writes bus events as lines, for pipes and dumb terminals.
type PlainPrinter struct {
	mu       sync.Mutex
	w        io.Writer
	markdown *glamour.TermRenderer
}

// NewPlainPrinter wraps assistant replies at width. A width of zero leaves
// them unwrapped.
func NewPlainPrinter(w io.Writer, width int) *PlainPrinter {
	p := &PlainPrinter{w: w}
	opts := []glamour.TermRendererOption{glamour.WithStandardStyle("notty")}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		log.Debug().Err(err).Msg("plain output without markdown rendering")
	} else {
		p.markdown = r
	}
	return p
}

// Handle is a bus handler.
func (p *PlainPrinter) Handle(e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	switch e.Type {
	case events.EventTurnAppended:
		if e.Role == "user" {
			_, err = fmt.Fprintf(p.w, "you> %s\n", e.Content)
		} else {
			_, err = fmt.Fprintf(p.w, "assistant> %s\n", p.render(e.Content))
		}
	case events.EventTypingShown:
		_, err = fmt.Fprintln(p.w, "... assistant is typing")
	case events.EventBannerShown:
		_, err = fmt.Fprintf(p.w, "! %s\n", e.Message)
	case events.EventTranscriptCleared:
		_, err = fmt.Fprintln(p.w, "---")
	case events.EventTitleChanged:
		_, err = fmt.Fprintf(p.w, "== %s ==\n", e.Message)
	case events.EventConversationChanged:
		if e.ConversationID != "" {
			_, err = fmt.Fprintf(p.w, "(conversation %s)\n", e.ConversationID)
		}
	}
	return err
}

func (p *PlainPrinter) render(content string) string {
	if p.markdown == nil {
		return content
	}
	out, err := p.markdown.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

// Notifier publishes title and conversation changes on the bus instead of
// driving widgets. Line mode uses it where the TUI uses a Bridge.
type Notifier struct {
	Sink events.Sink
}

func (n Notifier) Clear() {}

func (n Notifier) Focus() {}

func (n Notifier) SetTitle(title string) {
	n.publish(events.Event{Type: events.EventTitleChanged, Message: title})
}

func (n Notifier) SetConversationID(id api.ConversationID) {
	n.publish(events.Event{Type: events.EventConversationChanged, ConversationID: id.String()})
}

func (n Notifier) publish(e events.Event) {
	if n.Sink == nil {
		return
	}
	if err := n.Sink.Publish(e); err != nil {
		log.Warn().Err(err).Str("event", string(e.Type)).Msg("could not publish ui event")
	}
}

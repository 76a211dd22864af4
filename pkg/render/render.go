// Package render turns conversation turns into transcript nodes and manages
// the typing placeholder and error banners.
package render

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/kbchat/pkg/config"
	"github.com/go-go-golems/kbchat/pkg/events"
	"github.com/go-go-golems/kbchat/pkg/transcript"
)

// View is the transcript handle the renderer writes to.
type View interface {
	Append(n transcript.Node)
	AppendUnique(n transcript.Node) bool
	Remove(id string) bool
	Clear()
	ScrollToEnd()
}

var _ View = &transcript.Container{}

// BannerArea is where ShowError places its notices.
type BannerArea interface {
	Add(b Banner)
	SetFading(id string) bool
	Remove(id string) bool
}

var _ BannerArea = &BannerBoard{}

const typingHTML = `<div class="typing-indicator"><span></span><span></span><span></span></div>`

type Renderer struct {
	view     View
	banners  BannerArea
	markdown Markdown
	sink     events.Sink

	chat   config.ChatConfig
	banner config.BannerConfig

	afterFunc func(d time.Duration, f func())
	now       func() time.Time
}

type Option func(*Renderer)

func WithMarkdown(md Markdown) Option {
	return func(r *Renderer) { r.markdown = md }
}

func WithSink(s events.Sink) Option {
	return func(r *Renderer) { r.sink = s }
}

// WithAfterFunc replaces time.AfterFunc for banner timers.
func WithAfterFunc(f func(d time.Duration, fn func())) Option {
	return func(r *Renderer) { r.afterFunc = f }
}

func NewRenderer(view View, banners BannerArea, cfg *config.Config, options ...Option) *Renderer {
	r := &Renderer{
		view:     view,
		banners:  banners,
		markdown: NewGoldmarkMarkdown(),
		sink:     events.Discard,
		chat:     cfg.Chat,
		banner:   cfg.Banner,
		afterFunc: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
		now: time.Now,
	}
	for _, o := range options {
		o(r)
	}
	return r
}

// NodeFor builds the node for turn without appending it.
func (r *Renderer) NodeFor(turn transcript.Turn) transcript.Node {
	var body string
	if turn.Role == transcript.RoleAssistant {
		body = r.markdown.ToSafeHTML(turn.Content)
	} else {
		body = EscapeHTML(turn.Content)
	}
	return transcript.Node{
		ID:        uuid.NewString(),
		Kind:      transcript.KindTurn,
		Role:      turn.Role,
		Raw:       turn.Content,
		HTML:      body,
		CreatedAt: r.now(),
	}
}

// AppendTurn renders turn into the transcript and scrolls to it.
func (r *Renderer) AppendTurn(turn transcript.Turn) transcript.Node {
	n := r.NodeFor(turn)
	r.view.Append(n)
	r.view.ScrollToEnd()
	r.publish(events.Event{
		Type:    events.EventTurnAppended,
		NodeID:  n.ID,
		Role:    string(n.Role),
		Content: n.Raw,
	})
	return n
}

// AppendWelcome renders the configured greeting as an assistant turn.
func (r *Renderer) AppendWelcome() transcript.Node {
	return r.AppendTurn(transcript.Turn{Role: transcript.RoleAssistant, Content: r.chat.WelcomeMessage})
}

// ShowTyping adds the typing placeholder unless it is already present.
func (r *Renderer) ShowTyping() {
	added := r.view.AppendUnique(transcript.Node{
		ID:        r.chat.TypingID,
		Kind:      transcript.KindTyping,
		Role:      transcript.RoleAssistant,
		HTML:      typingHTML,
		CreatedAt: r.now(),
	})
	if !added {
		return
	}
	r.view.ScrollToEnd()
	r.publish(events.Event{Type: events.EventTypingShown, NodeID: r.chat.TypingID})
}

// RemoveTyping removes the typing placeholder. It is a no-op without one.
func (r *Renderer) RemoveTyping() {
	if !r.view.Remove(r.chat.TypingID) {
		return
	}
	r.publish(events.Event{Type: events.EventTypingRemoved, NodeID: r.chat.TypingID})
}

// ClearTranscript empties the transcript.
func (r *Renderer) ClearTranscript() {
	r.view.Clear()
	r.publish(events.Event{Type: events.EventTranscriptCleared})
}

// ShowError puts message on a banner that fades after the configured visible
// time and disappears after the fade.
func (r *Renderer) ShowError(message string) {
	b := Banner{ID: uuid.NewString(), Message: message, CreatedAt: r.now()}
	r.banners.Add(b)
	r.publish(events.Event{Type: events.EventBannerShown, NodeID: b.ID, Message: message})

	r.afterFunc(r.banner.Visible, func() {
		if r.banners.SetFading(b.ID) {
			r.publish(events.Event{Type: events.EventBannerFading, NodeID: b.ID})
		}
		r.afterFunc(r.banner.Fade, func() {
			if r.banners.Remove(b.ID) {
				r.publish(events.Event{Type: events.EventBannerRemoved, NodeID: b.ID})
			}
		})
	})
}

func (r *Renderer) publish(e events.Event) {
	if e.At.IsZero() {
		e.At = r.now()
	}
	if err := r.sink.Publish(e); err != nil {
		log.Warn().Err(err).Str("event", string(e.Type)).Msg("could not publish ui event")
	}
}

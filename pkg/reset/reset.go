// Package reset starts a fresh conversation locally without touching the
// server.
package reset

import (
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/kbchat/pkg/transcript"
)

type Session interface {
	Reset()
}

type Renderer interface {
	ClearTranscript()
	AppendWelcome() transcript.Node
}

// History is the conversation list whose highlighting is cleared.
type History interface {
	ClearActive()
}

type Input interface {
	Focus()
}

type TitleSetter interface {
	SetTitle(title string)
}

type Controller struct {
	session  Session
	renderer Renderer
	history  History
	input    Input
	title    TitleSetter

	defaultTitle string
}

type Option func(*Controller)

func WithHistory(h History) Option {
	return func(c *Controller) { c.history = h }
}

func WithInput(in Input) Option {
	return func(c *Controller) { c.input = in }
}

// WithTitle sets the header that gets defaultTitle on reset.
func WithTitle(t TitleSetter, defaultTitle string) Option {
	return func(c *Controller) {
		c.title = t
		c.defaultTitle = defaultTitle
	}
}

func New(session Session, renderer Renderer, options ...Option) *Controller {
	c := &Controller{session: session, renderer: renderer}
	for _, o := range options {
		o(c)
	}
	return c
}

// ResetSession forgets the current conversation and leaves only the welcome
// turn in the transcript. Sends still in flight may append after it returns.
func (c *Controller) ResetSession() {
	c.session.Reset()
	c.renderer.ClearTranscript()
	c.renderer.AppendWelcome()
	if c.history != nil {
		c.history.ClearActive()
	}
	if c.title != nil {
		c.title.SetTitle(c.defaultTitle)
	}
	if c.input != nil {
		c.input.Focus()
	}
	log.Debug().Msg("session reset")
}

// Package dispatch runs the send cycle for one user message: optimistic user
// turn, typing placeholder, remote call, then the assistant reply or an
// in-transcript diagnostic.
package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/kbchat/pkg/api"
	"github.com/go-go-golems/kbchat/pkg/events"
	"github.com/go-go-golems/kbchat/pkg/transcript"
)

type Outcome int

const (
	// OutcomeIgnored means the input was blank.
	OutcomeIgnored Outcome = iota
	// OutcomeAborted means no conversation could be established.
	OutcomeAborted
	// OutcomeFailed means the message request failed and a diagnostic turn
	// was appended.
	OutcomeFailed
	OutcomeDelivered
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeAborted:
		return "aborted"
	case OutcomeFailed:
		return "failed"
	case OutcomeDelivered:
		return "delivered"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

type Session interface {
	EnsureConversation(ctx context.Context) (api.ConversationID, error)
}

type Sender interface {
	SendMessage(ctx context.Context, id api.ConversationID, message string) (*api.SendResult, error)
}

type Renderer interface {
	AppendTurn(turn transcript.Turn) transcript.Node
	ShowTyping()
	RemoveTyping()
}

// Input is the message field.
type Input interface {
	Clear()
}

type InputFunc func()

func (f InputFunc) Clear() { f() }

var noInput = InputFunc(func() {})

// Settled describes a finished send.
type Settled struct {
	ConversationID api.ConversationID
	Outcome        Outcome
	Err            error
}

type Dispatcher struct {
	session  Session
	sender   Sender
	renderer Renderer
	input    Input
	sink     events.Sink

	onSettled func(context.Context, Settled)
}

type Option func(*Dispatcher)

func WithInput(in Input) Option {
	return func(d *Dispatcher) { d.input = in }
}

func WithSink(s events.Sink) Option {
	return func(d *Dispatcher) { d.sink = s }
}

// OnSettled registers f to run after every send that got past conversation
// creation. f receives the context the send ran under.
func OnSettled(f func(context.Context, Settled)) Option {
	return func(d *Dispatcher) { d.onSettled = f }
}

func New(session Session, sender Sender, renderer Renderer, options ...Option) *Dispatcher {
	d := &Dispatcher{
		session:  session,
		sender:   sender,
		renderer: renderer,
		input:    noInput,
		sink:     events.Discard,
	}
	for _, o := range options {
		o(d)
	}
	return d
}

// ErrorContent is the assistant turn shown for a failed send.
func ErrorContent(reason string) string {
	return "Error: " + reason + ". Please check the console for details."
}

// Send blocks until the message request settles. Concurrent calls are not
// serialized; each one interleaves with the others at its remote calls.
func (d *Dispatcher) Send(ctx context.Context, raw string) Outcome {
	if strings.TrimSpace(raw) == "" {
		return OutcomeIgnored
	}

	id, err := d.session.EnsureConversation(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("send aborted, no conversation")
		return OutcomeAborted
	}

	d.renderer.AppendTurn(transcript.Turn{Role: transcript.RoleUser, Content: raw})
	d.input.Clear()
	d.renderer.ShowTyping()

	outcome, err := d.exchange(ctx, id, raw)

	logger := log.With().Str("conversation_id", id.String()).Str("outcome", outcome.String()).Logger()
	if err != nil {
		logger.Warn().Err(err).Msg("message send failed")
	} else {
		logger.Info().Msg("message delivered")
	}

	if perr := d.sink.Publish(events.Event{
		Type:           events.EventSendSettled,
		ConversationID: id.String(),
		Message:        outcome.String(),
	}); perr != nil {
		log.Warn().Err(perr).Msg("could not publish send.settled")
	}
	if d.onSettled != nil {
		d.onSettled(ctx, Settled{ConversationID: id, Outcome: outcome, Err: err})
	}
	return outcome
}

func (d *Dispatcher) exchange(ctx context.Context, id api.ConversationID, raw string) (Outcome, error) {
	res, err := d.send(ctx, id, raw)
	if err != nil {
		d.renderer.AppendTurn(transcript.Turn{
			Role:    transcript.RoleAssistant,
			Content: ErrorContent(api.Reason(err)),
		})
		return OutcomeFailed, err
	}
	d.renderer.AppendTurn(transcript.Turn{Role: transcript.RoleAssistant, Content: res.AIMessage.Content})
	return OutcomeDelivered, nil
}

// send removes the typing placeholder once the request settles, before any
// reply or diagnostic is appended.
func (d *Dispatcher) send(ctx context.Context, id api.ConversationID, raw string) (*api.SendResult, error) {
	defer d.renderer.RemoveTyping()
	return d.sender.SendMessage(ctx, id, raw)
}

// Package navigator switches the client to an existing conversation and
// reloads its transcript from the server.
package navigator

import (
	"context"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/kbchat/pkg/api"
	"github.com/go-go-golems/kbchat/pkg/transcript"
)

// QueryParam carries the conversation id in chat page URLs.
const QueryParam = "conversation"

const chatPath = "/chat/"

// ConversationURL returns the chat page URL for id under base.
func ConversationURL(base *url.URL, id api.ConversationID) string {
	u := *base
	u.Path = strings.TrimSuffix(u.Path, "/") + chatPath
	u.RawQuery = url.Values{QueryParam: []string{id.String()}}.Encode()
	u.Fragment = ""
	return u.String()
}

// ParseTarget accepts a bare conversation id or a chat page URL carrying
// one in its query string.
func ParseTarget(s string) (api.ConversationID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("empty conversation target")
	}
	if !strings.ContainsAny(s, "/?=") {
		return api.ConversationID(s), nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", errors.Wrapf(err, "parse conversation target %q", s)
	}
	id := strings.TrimSpace(u.Query().Get(QueryParam))
	if id == "" {
		return "", errors.Errorf("no %s parameter in %q", QueryParam, s)
	}
	return api.ConversationID(id), nil
}

type Fetcher interface {
	GetConversation(ctx context.Context, id api.ConversationID) (*api.ConversationDetail, error)
}

type Session interface {
	Adopt(id api.ConversationID)
	Reset()
}

type Renderer interface {
	ClearTranscript()
	AppendTurn(turn transcript.Turn) transcript.Node
	AppendWelcome() transcript.Node
	ShowError(message string)
}

type History interface {
	SetActive(id api.ConversationID)
	ClearActive()
}

type TitleSetter interface {
	SetTitle(title string)
}

type Navigator struct {
	fetcher  Fetcher
	session  Session
	renderer Renderer
	history  History
	title    TitleSetter

	defaultTitle string
}

type Option func(*Navigator)

func WithHistory(h History) Option {
	return func(n *Navigator) { n.history = h }
}

func WithTitle(t TitleSetter, defaultTitle string) Option {
	return func(n *Navigator) {
		n.title = t
		n.defaultTitle = defaultTitle
	}
}

func New(fetcher Fetcher, session Session, renderer Renderer, options ...Option) *Navigator {
	n := &Navigator{fetcher: fetcher, session: session, renderer: renderer}
	for _, o := range options {
		o(n)
	}
	return n
}

// Open replaces the local state with conversation id as stored on the
// server. When the conversation cannot be loaded the client is left in a
// fresh session with a banner explaining why.
func (n *Navigator) Open(ctx context.Context, id api.ConversationID) error {
	logger := log.With().Str("conversation_id", id.String()).Logger()
	logger.Debug().Msg("opening conversation")

	detail, err := n.fetcher.GetConversation(ctx, id)
	if err != nil {
		logger.Warn().Err(err).Msg("could not load conversation")
		n.session.Reset()
		n.renderer.ClearTranscript()
		n.renderer.AppendWelcome()
		if n.history != nil {
			n.history.ClearActive()
		}
		n.setTitle(n.defaultTitle)
		n.renderer.ShowError("Failed to load conversation: " + api.Reason(err))
		return errors.Wrapf(err, "open conversation %s", id)
	}

	n.session.Adopt(id)
	n.renderer.ClearTranscript()
	if len(detail.Messages) == 0 {
		n.renderer.AppendWelcome()
	}
	for _, m := range detail.Messages {
		n.renderer.AppendTurn(transcript.Turn{Role: roleOf(m.Role), Content: m.Content})
	}
	if n.history != nil {
		n.history.SetActive(id)
	}
	title := detail.Title
	if title == "" {
		title = n.defaultTitle
	}
	n.setTitle(title)
	logger.Info().Int("messages", len(detail.Messages)).Msg("conversation opened")
	return nil
}

func (n *Navigator) setTitle(title string) {
	if n.title != nil {
		n.title.SetTitle(title)
	}
}

func roleOf(r string) transcript.Role {
	if strings.EqualFold(r, string(transcript.RoleUser)) {
		return transcript.RoleUser
	}
	return transcript.RoleAssistant
}

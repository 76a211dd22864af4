// Package session owns the identifier of the conversation the client is
// currently talking in.
package session

import (
	"context"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/go-go-golems/kbchat/pkg/api"
)

// Creator is the remote call that starts a conversation.
type Creator interface {
	CreateConversation(ctx context.Context, title string) (*api.Conversation, error)
}

// ErrorSurface shows a transient error to the user.
type ErrorSurface interface {
	ShowError(message string)
}

// Mirror reflects the current id somewhere visible. It never owns the id.
type Mirror interface {
	SetConversationID(id api.ConversationID)
}

type MirrorFunc func(id api.ConversationID)

func (f MirrorFunc) SetConversationID(id api.ConversationID) { f(id) }

// Session holds the current conversation id. An empty id means none yet;
// the first send creates one.
type Session struct {
	creator Creator
	errs    ErrorSurface
	title   string

	mu         sync.Mutex
	current    api.ConversationID
	generation uint64
	mirror     Mirror

	creates singleflight.Group
}

type Option func(*Session)

// WithInitialID starts the session in an existing conversation.
func WithInitialID(id api.ConversationID) Option {
	return func(s *Session) { s.current = id }
}

func WithMirror(m Mirror) Option {
	return func(s *Session) { s.mirror = m }
}

func New(creator Creator, errs ErrorSurface, defaultTitle string, options ...Option) *Session {
	s := &Session{
		creator: creator,
		errs:    errs,
		title:   defaultTitle,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

func (s *Session) CurrentID() api.ConversationID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// EnsureConversation returns the current id, creating a conversation first
// when there is none. Callers racing on an empty session share one create
// call. A create that completes after Reset returns its id to its callers
// but does not become the session's id.
func (s *Session) EnsureConversation(ctx context.Context) (api.ConversationID, error) {
	s.mu.Lock()
	if !s.current.IsZero() {
		id := s.current
		s.mu.Unlock()
		return id, nil
	}
	gen := s.generation
	s.mu.Unlock()

	v, err, _ := s.creates.Do(strconv.FormatUint(gen, 10), func() (interface{}, error) {
		s.mu.Lock()
		if !s.current.IsZero() && s.generation == gen {
			id := s.current
			s.mu.Unlock()
			return id, nil
		}
		s.mu.Unlock()

		log.Debug().Uint64("generation", gen).Msg("creating conversation")
		conv, err := s.creator.CreateConversation(ctx, s.title)
		if err != nil {
			log.Warn().Err(err).Msg("could not create conversation")
			s.errs.ShowError("Failed to create conversation: " + api.Reason(err))
			return nil, err
		}
		s.adopt(conv.ID, gen)
		return conv.ID, nil
	})
	if err != nil {
		return "", errors.Wrap(err, "create conversation")
	}
	return v.(api.ConversationID), nil
}

// Adopt makes id the current conversation without any network call. Like
// Reset it starts a new generation, so creates already in flight cannot
// replace id when they complete.
func (s *Session) Adopt(id api.ConversationID) {
	s.mu.Lock()
	s.generation++
	s.current = id
	m := s.mirror
	s.mu.Unlock()
	if m != nil {
		m.SetConversationID(id)
	}
}

// Reset forgets the current conversation. In-flight creates started before
// the reset can no longer set the id.
func (s *Session) Reset() {
	s.mu.Lock()
	s.current = ""
	s.generation++
	m := s.mirror
	s.mu.Unlock()
	if m != nil {
		m.SetConversationID("")
	}
}

func (s *Session) adopt(id api.ConversationID, gen uint64) {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		log.Debug().Str("conversation_id", id.String()).Msg("session was reset, not adopting conversation")
		return
	}
	s.current = id
	m := s.mirror
	s.mu.Unlock()
	if m != nil {
		m.SetConversationID(id)
	}
}

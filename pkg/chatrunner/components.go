package chatrunner

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/kbchat/pkg/api"
	"github.com/go-go-golems/kbchat/pkg/config"
	"github.com/go-go-golems/kbchat/pkg/dispatch"
	"github.com/go-go-golems/kbchat/pkg/events"
	"github.com/go-go-golems/kbchat/pkg/history"
	"github.com/go-go-golems/kbchat/pkg/navigator"
	"github.com/go-go-golems/kbchat/pkg/render"
	"github.com/go-go-golems/kbchat/pkg/reset"
	"github.com/go-go-golems/kbchat/pkg/session"
	"github.com/go-go-golems/kbchat/pkg/transcript"
)

// Handles are the widgets the controllers drive. The TUI passes a ui.Bridge,
// line mode a ui.Notifier.
type Handles interface {
	Clear()
	Focus()
	SetTitle(title string)
	SetConversationID(id api.ConversationID)
}

type nopHandles struct{}

func (nopHandles) Clear() {}

func (nopHandles) Focus() {}

func (nopHandles) SetTitle(string) {}

func (nopHandles) SetConversationID(api.ConversationID) {}

// Components is one wired client: state, renderer and the controllers that
// operate on them.
type Components struct {
	Config     *config.Config
	Client     *api.Client
	Transcript *transcript.Container
	Banners    *render.BannerBoard
	Renderer   *render.Renderer
	Session    *session.Session
	History    *history.List
	Dispatcher *dispatch.Dispatcher
	Reset      *reset.Controller
	Navigator  *navigator.Navigator
}

type componentsOptions struct {
	initialID      api.ConversationID
	refreshOnSend  bool
	rendererOption []render.Option
}

type ComponentsOption func(*componentsOptions)

// WithInitialConversation starts the session in id without loading it.
func WithInitialConversation(id api.ConversationID) ComponentsOption {
	return func(o *componentsOptions) { o.initialID = id }
}

// WithHistoryRefreshOnSend reloads the history list after every delivered
// message so new conversations and titles show up.
func WithHistoryRefreshOnSend() ComponentsOption {
	return func(o *componentsOptions) { o.refreshOnSend = true }
}

func WithRendererOptions(opts ...render.Option) ComponentsOption {
	return func(o *componentsOptions) { o.rendererOption = append(o.rendererOption, opts...) }
}

func NewComponents(
	cfg *config.Config,
	client *api.Client,
	sink events.Sink,
	handles Handles,
	options ...ComponentsOption,
) *Components {
	o := &componentsOptions{}
	for _, opt := range options {
		opt(o)
	}
	if sink == nil {
		sink = events.Discard
	}
	if handles == nil {
		handles = nopHandles{}
	}

	c := &Components{
		Config:     cfg,
		Client:     client,
		Transcript: transcript.NewContainer(),
		Banners:    render.NewBannerBoard(),
	}
	c.Renderer = render.NewRenderer(c.Transcript, c.Banners, cfg,
		append([]render.Option{render.WithSink(sink)}, o.rendererOption...)...)

	c.History = history.NewList(client, sink)

	// a freshly created conversation becomes the highlighted history entry
	mirror := session.MirrorFunc(func(id api.ConversationID) {
		handles.SetConversationID(id)
		if !id.IsZero() {
			c.History.SetActive(id)
		}
	})
	sessionOpts := []session.Option{session.WithMirror(mirror)}
	if !o.initialID.IsZero() {
		sessionOpts = append(sessionOpts, session.WithInitialID(o.initialID))
	}
	c.Session = session.New(client, c.Renderer, cfg.Chat.DefaultTitle, sessionOpts...)

	dispatchOpts := []dispatch.Option{dispatch.WithInput(handles), dispatch.WithSink(sink)}
	if o.refreshOnSend {
		h := c.History
		dispatchOpts = append(dispatchOpts, dispatch.OnSettled(func(ctx context.Context, s dispatch.Settled) {
			if s.Outcome != dispatch.OutcomeDelivered || ctx.Err() != nil {
				return
			}
			if err := h.Refresh(ctx); err != nil {
				log.Debug().Err(err).Msg("could not refresh history after send")
			}
		}))
	}
	c.Dispatcher = dispatch.New(c.Session, client, c.Renderer, dispatchOpts...)

	c.Reset = reset.New(c.Session, c.Renderer,
		reset.WithHistory(c.History),
		reset.WithInput(handles),
		reset.WithTitle(handles, cfg.Chat.DefaultTitle))
	c.Navigator = navigator.New(client, c.Session, c.Renderer,
		navigator.WithHistory(c.History),
		navigator.WithTitle(handles, cfg.Chat.DefaultTitle))
	return c
}

// Start puts the client in its initial state: the target conversation when
// one is given, the most recent one when resumeLatest is set, otherwise a
// fresh session showing the welcome turn.
func (c *Components) Start(ctx context.Context, target api.ConversationID, resumeLatest bool) error {
	if target.IsZero() && resumeLatest {
		if err := c.History.Refresh(ctx); err != nil {
			c.Renderer.ShowError("Failed to load conversations: " + api.Reason(err))
			log.Warn().Err(err).Msg("could not load conversations to resume")
		} else if entries := c.History.Entries(); len(entries) > 0 {
			target = entries[0].ID
		}
	}
	if !target.IsZero() {
		return c.Navigator.Open(ctx, target)
	}
	c.Reset.ResetSession()
	return nil
}

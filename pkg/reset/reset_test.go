package reset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/kbchat/pkg/api"
	"github.com/go-go-golems/kbchat/pkg/config"
	"github.com/go-go-golems/kbchat/pkg/dispatch"
	"github.com/go-go-golems/kbchat/pkg/events"
	"github.com/go-go-golems/kbchat/pkg/history"
	"github.com/go-go-golems/kbchat/pkg/render"
	"github.com/go-go-golems/kbchat/pkg/session"
	"github.com/go-go-golems/kbchat/pkg/transcript"
)

type focusInput struct{ focused int }

func (f *focusInput) Focus() { f.focused++ }

type title struct{ value string }

func (t *title) SetTitle(s string) { t.value = s }

type fixture struct {
	requests  atomic.Int32
	container *transcript.Container
	session   *session.Session
	history   *history.List
	dispatch  *dispatch.Dispatcher
	input     *focusInput
	title     *title
	ctrl      *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		container: transcript.NewContainer(),
		input:     &focusInput{},
		title:     &title{value: "Old title"},
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		switch r.URL.Path {
		case "/api/conversation/create/":
			_, _ = w.Write([]byte(`{"id": 7}`))
		case "/api/message/send/":
			_, _ = w.Write([]byte(`{"ai_message": {"content": "reply"}}`))
		case "/api/conversations/":
			_, _ = w.Write([]byte(`{"conversations": [{"id": 7, "title": "Seven"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)

	client, err := api.NewClient(ts.URL)
	require.NoError(t, err)
	cfg := config.Default()
	r := render.NewRenderer(f.container, render.NewBannerBoard(), cfg,
		render.WithAfterFunc(func(time.Duration, func()) {}))
	f.session = session.New(client, r, cfg.Chat.DefaultTitle)
	f.history = history.NewList(client, events.Discard)
	f.dispatch = dispatch.New(f.session, client, r)
	f.ctrl = New(f.session, r,
		WithHistory(f.history),
		WithInput(f.input),
		WithTitle(f.title, cfg.Chat.DefaultTitle))
	return f
}

func (f *fixture) assertReset(t *testing.T) {
	t.Helper()
	require.True(t, f.session.CurrentID().IsZero())
	require.Equal(t, []transcript.Turn{
		{Role: transcript.RoleAssistant, Content: config.DefaultWelcomeMessage},
	}, f.container.Turns())
	require.True(t, f.history.Active().IsZero())
	for _, e := range f.history.Entries() {
		require.False(t, e.Active)
	}
	require.Equal(t, "New Conversation", f.title.value)
}

func TestResetSession_AfterConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.Equal(t, dispatch.OutcomeDelivered, f.dispatch.Send(ctx, "hello"))
	require.NoError(t, f.history.Refresh(ctx))
	f.history.SetActive(f.session.CurrentID())
	f.container.Append(transcript.Node{ID: "typingIndicator", Kind: transcript.KindTyping})

	before := f.requests.Load()
	f.ctrl.ResetSession()

	require.Equal(t, before, f.requests.Load())
	f.assertReset(t)
	require.Equal(t, 0, f.container.Count(transcript.KindTyping))
	require.Equal(t, 1, f.input.focused)
}

func TestResetSession_FromEmptyState(t *testing.T) {
	f := newFixture(t)

	f.ctrl.ResetSession()
	f.ctrl.ResetSession()

	f.assertReset(t)
	require.Equal(t, int32(0), f.requests.Load())
	require.Equal(t, 2, f.input.focused)
}

func TestResetSession_NextSendCreatesNewConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.dispatch.Send(ctx, "one")
	f.ctrl.ResetSession()
	f.dispatch.Send(ctx, "two")

	require.Equal(t, api.ConversationID("7"), f.session.CurrentID())
	require.Equal(t, []transcript.Turn{
		{Role: transcript.RoleAssistant, Content: config.DefaultWelcomeMessage},
		{Role: transcript.RoleUser, Content: "two"},
		{Role: transcript.RoleAssistant, Content: "reply"},
	}, f.container.Turns())
}

package ui

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/kbchat/pkg/api"
	"github.com/go-go-golems/kbchat/pkg/config"
	"github.com/go-go-golems/kbchat/pkg/dispatch"
	"github.com/go-go-golems/kbchat/pkg/events"
	"github.com/go-go-golems/kbchat/pkg/history"
	"github.com/go-go-golems/kbchat/pkg/render"
	"github.com/go-go-golems/kbchat/pkg/transcript"
)

type fakeSender struct {
	got     []string
	outcome dispatch.Outcome
}

func (f *fakeSender) Send(_ context.Context, raw string) dispatch.Outcome {
	f.got = append(f.got, raw)
	return f.outcome
}

type fakeResetter struct{ calls int }

func (f *fakeResetter) ResetSession() { f.calls++ }

type fakeOpener struct{ opened []api.ConversationID }

func (f *fakeOpener) Open(_ context.Context, id api.ConversationID) error {
	f.opened = append(f.opened, id)
	return nil
}

type fakeHistory struct{ entries []history.Entry }

func (f *fakeHistory) Refresh(context.Context) error { return nil }

func (f *fakeHistory) Entries() []history.Entry { return f.entries }

type recordingProgram struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recordingProgram) Send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

type testModel struct {
	Model
	sender    *fakeSender
	resetter  *fakeResetter
	opener    *fakeOpener
	history   *fakeHistory
	container *transcript.Container
	banners   *render.BannerBoard
	copied    []string
}

func newTestModel(t *testing.T) *testModel {
	t.Helper()
	tm := &testModel{
		sender:    &fakeSender{outcome: dispatch.OutcomeDelivered},
		resetter:  &fakeResetter{},
		opener:    &fakeOpener{},
		history:   &fakeHistory{},
		container: transcript.NewContainer(),
		banners:   render.NewBannerBoard(),
	}
	tm.Model = NewModel(context.Background(), Deps{
		Sender:     tm.sender,
		Resetter:   tm.resetter,
		Opener:     tm.opener,
		History:    tm.history,
		Transcript: tm.container,
		Banners:    tm.banners,
		Copy: func(text string) error {
			tm.copied = append(tm.copied, text)
			return nil
		},
	}, config.Default())
	tm.update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return tm
}

func (tm *testModel) update(msg tea.Msg) tea.Cmd {
	m, cmd := tm.Model.Update(msg)
	tm.Model = m.(Model)
	return cmd
}

func TestSubmitRunsSendInCommand(t *testing.T) {
	tm := newTestModel(t)
	tm.textarea.SetValue("hello there")

	cmd := tm.update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	require.Empty(t, tm.sender.got)
	require.Equal(t, 1, tm.inFlight)

	msg := cmd()
	require.Equal(t, []string{"hello there"}, tm.sender.got)
	tm.update(msg)
	require.Equal(t, 0, tm.inFlight)
}

func TestSubmitBlankDoesNothing(t *testing.T) {
	tm := newTestModel(t)
	tm.textarea.SetValue("   ")

	cmd := tm.update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Nil(t, cmd)
	require.Equal(t, 0, tm.inFlight)
}

func TestFailedSendSetsStatus(t *testing.T) {
	tm := newTestModel(t)
	tm.sender.outcome = dispatch.OutcomeFailed
	tm.textarea.SetValue("x")

	tm.update(tm.update(tea.KeyMsg{Type: tea.KeyEnter})())
	require.Equal(t, "message failed", tm.status)
}

func TestAltEnterInsertsNewlineAndGrows(t *testing.T) {
	tm := newTestModel(t)
	tm.textarea.SetValue("first")

	tm.update(tea.KeyMsg{Type: tea.KeyEnter, Alt: true})
	tm.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("second")})

	require.Equal(t, "first\nsecond", tm.textarea.Value())
	require.Equal(t, 2, tm.textarea.Height())
	require.Empty(t, tm.sender.got)
}

func TestInputHeightIsCapped(t *testing.T) {
	tm := newTestModel(t)
	tm.textarea.SetValue(strings.Repeat("line\n", 20) + "end")
	tm.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("!")})
	require.Equal(t, config.Default().Input.MaxLines, tm.textarea.Height())
}

func TestClearAndFocusMessages(t *testing.T) {
	tm := newTestModel(t)
	tm.textarea.SetValue("draft")
	tm.textarea.Blur()

	tm.update(clearInputMsg{})
	require.Equal(t, "", tm.textarea.Value())

	tm.update(focusInputMsg{})
	require.True(t, tm.textarea.Focused())
}

func TestTranscriptEventsRefreshView(t *testing.T) {
	tm := newTestModel(t)
	r := render.NewRenderer(tm.container, tm.banners, config.Default())

	r.AppendTurn(transcript.Turn{Role: transcript.RoleUser, Content: "<b>hello</b>"})
	r.ShowTyping()
	tm.update(EventMsg{Event: events.Event{Type: events.EventTypingShown}})

	view := tm.View()
	require.Contains(t, view, "<b>hello</b>")
	require.Contains(t, view, "Assistant is typing")

	r.RemoveTyping()
	r.AppendTurn(transcript.Turn{Role: transcript.RoleAssistant, Content: "Hi **there**"})
	tm.update(EventMsg{Event: events.Event{Type: events.EventTurnAppended}})

	view = tm.View()
	require.NotContains(t, view, "Assistant is typing")
	require.Len(t, tm.nodes, 2)
	require.Equal(t, transcript.RoleAssistant, tm.nodes[1].Role)
}

func TestBannerEvents(t *testing.T) {
	tm := newTestModel(t)
	tm.banners.Add(render.Banner{ID: "b1", Message: "Failed to create conversation: boom"})
	tm.update(EventMsg{Event: events.Event{Type: events.EventBannerShown}})
	require.Contains(t, tm.View(), "Failed to create conversation: boom")

	tm.banners.Remove("b1")
	tm.update(EventMsg{Event: events.Event{Type: events.EventBannerRemoved}})
	require.NotContains(t, tm.View(), "Failed to create conversation")
}

func TestTitleAndConversation(t *testing.T) {
	tm := newTestModel(t)
	require.Contains(t, tm.View(), "New Conversation")

	tm.update(titleMsg{title: "Physics"})
	tm.update(conversationMsg{id: "42"})
	view := tm.View()
	require.Contains(t, view, "Physics")
	require.Contains(t, view, "#42")
}

func TestNewConversationKey(t *testing.T) {
	tm := newTestModel(t)
	cmd := tm.update(tea.KeyMsg{Type: tea.KeyCtrlN})
	require.NotNil(t, cmd)
	require.Equal(t, 0, tm.resetter.calls)
	cmd()
	require.Equal(t, 1, tm.resetter.calls)
}

func TestSidebarOpensSelected(t *testing.T) {
	tm := newTestModel(t)
	tm.history.entries = []history.Entry{
		{ID: "1", Title: "First"},
		{ID: "2", Title: "Second", Active: true},
	}
	tm.update(EventMsg{Event: events.Event{Type: events.EventHistoryChanged}})
	require.Contains(t, tm.View(), "Second")

	tm.update(tea.KeyMsg{Type: tea.KeyTab})
	require.True(t, tm.sidebarFocused)
	require.False(t, tm.textarea.Focused())

	tm.update(tea.KeyMsg{Type: tea.KeyDown})
	cmd := tm.update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	cmd()
	require.Equal(t, []api.ConversationID{"2"}, tm.opener.opened)
	require.Empty(t, tm.sender.got)

	tm.update(tea.KeyMsg{Type: tea.KeyTab})
	require.False(t, tm.sidebarFocused)
	require.True(t, tm.textarea.Focused())
}

func TestToggleSidebar(t *testing.T) {
	tm := newTestModel(t)
	tm.update(tea.KeyMsg{Type: tea.KeyCtrlG})
	require.False(t, tm.showSidebar)

	tm.update(tea.KeyMsg{Type: tea.KeyTab})
	require.False(t, tm.sidebarFocused)
}

func TestCopyReply(t *testing.T) {
	tm := newTestModel(t)
	tm.update(tea.KeyMsg{Type: tea.KeyCtrlY})
	require.Equal(t, "no reply to copy", tm.status)

	r := render.NewRenderer(tm.container, tm.banners, config.Default())
	r.AppendTurn(transcript.Turn{Role: transcript.RoleAssistant, Content: "first"})
	r.AppendTurn(transcript.Turn{Role: transcript.RoleUser, Content: "q"})
	r.AppendTurn(transcript.Turn{Role: transcript.RoleAssistant, Content: "**second**"})
	tm.update(EventMsg{Event: events.Event{Type: events.EventTurnAppended}})

	cmd := tm.update(tea.KeyMsg{Type: tea.KeyCtrlY})
	tm.update(cmd())
	require.Equal(t, []string{"**second**"}, tm.copied)
	require.Equal(t, "reply copied", tm.status)
}

func TestForwardFunc(t *testing.T) {
	p := &recordingProgram{}
	f := ForwardFunc(p)
	require.NoError(t, f(events.Event{Type: events.EventTurnAppended, Content: "x"}))
	require.Equal(t, []tea.Msg{EventMsg{Event: events.Event{Type: events.EventTurnAppended, Content: "x"}}}, p.msgs)
}

func TestBridge(t *testing.T) {
	b := NewBridge()
	b.Clear()

	p := &recordingProgram{}
	b.Attach(p)
	b.Clear()
	b.Focus()
	b.SetTitle("t")
	b.SetConversationID("c1")

	require.Equal(t, []tea.Msg{
		clearInputMsg{},
		focusInputMsg{},
		titleMsg{title: "t"},
		conversationMsg{id: "c1"},
	}, p.msgs)
}

func TestPlainPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlainPrinter(&buf, 0)

	for _, e := range []events.Event{
		{Type: events.EventTitleChanged, Message: "New Conversation"},
		{Type: events.EventTurnAppended, Role: "user", Content: "<b>hi</b>"},
		{Type: events.EventTypingShown},
		{Type: events.EventTypingRemoved},
		{Type: events.EventTurnAppended, Role: "assistant", Content: "hello"},
		{Type: events.EventBannerShown, Message: "oops"},
		{Type: events.EventConversationChanged},
	} {
		require.NoError(t, p.Handle(e))
	}

	out := buf.String()
	require.Contains(t, out, "== New Conversation ==\n")
	require.Contains(t, out, "you> <b>hi</b>\n")
	require.Contains(t, out, "... assistant is typing\n")
	require.Contains(t, out, "assistant> ")
	require.Contains(t, out, "hello")
	require.Contains(t, out, "! oops\n")
	require.NotContains(t, out, "(conversation")
}

func TestNotifier(t *testing.T) {
	rec := &events.Recorder{}
	n := Notifier{Sink: rec}
	n.Clear()
	n.Focus()
	n.SetTitle("T")
	n.SetConversationID("9")
	require.Equal(t, []events.EventType{events.EventTitleChanged, events.EventConversationChanged}, rec.Types())
	require.Equal(t, "9", rec.Events()[1].ConversationID)
}

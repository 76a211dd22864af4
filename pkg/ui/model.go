// Package ui is the bubbletea front end. The model only reads state; every
// operation that mutates the transcript runs in a tea.Cmd, and the resulting
// bus events come back in as EventMsg.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/kbchat/pkg/api"
	"github.com/go-go-golems/kbchat/pkg/config"
	"github.com/go-go-golems/kbchat/pkg/dispatch"
	"github.com/go-go-golems/kbchat/pkg/events"
	"github.com/go-go-golems/kbchat/pkg/history"
	"github.com/go-go-golems/kbchat/pkg/render"
	"github.com/go-go-golems/kbchat/pkg/transcript"
)

type Sender interface {
	Send(ctx context.Context, raw string) dispatch.Outcome
}

type Resetter interface {
	ResetSession()
}

type Opener interface {
	Open(ctx context.Context, id api.ConversationID) error
}

type History interface {
	Refresh(ctx context.Context) error
	Entries() []history.Entry
}

type TranscriptSource interface {
	Nodes() []transcript.Node
}

type BannerSource interface {
	Banners() []render.Banner
}

// Deps are the controllers and state the model drives.
type Deps struct {
	Sender     Sender
	Resetter   Resetter
	Opener     Opener
	History    History
	Transcript TranscriptSource
	Banners    BannerSource

	// Startup runs once in the background when the program starts.
	Startup func(ctx context.Context) error

	// Copy writes to the system clipboard. Defaults to clipboard.WriteAll.
	Copy func(text string) error
}

type sendDoneMsg struct{ outcome dispatch.Outcome }

type opDoneMsg struct {
	op  string
	err error
}

type copiedMsg struct{ err error }

const (
	headerHeight = 1
	helpHeight   = 1
	inputChrome  = 2
	sidebarWidth = 30
)

type Model struct {
	ctx    context.Context
	deps   Deps
	keyMap KeyMap
	styles Styles

	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	sidebar  SidebarModel

	markdown    *glamour.TermRenderer
	mdWidth     int
	rendered    map[string]string
	lastNodeLen int

	title          string
	conversationID api.ConversationID
	nodes          []transcript.Node
	banners        []render.Banner
	inFlight       int
	status         string

	showSidebar    bool
	sidebarFocused bool
	maxLines       int
	width          int
	height         int
}

func NewModel(ctx context.Context, deps Deps, cfg *config.Config) Model {
	if deps.Copy == nil {
		deps.Copy = clipboard.WriteAll
	}
	keyMap := DefaultKeyMap
	styles := DefaultStyles()

	ta := textarea.New()
	ta.Placeholder = "Type your message..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.Prompt = ""
	ta.KeyMap.InsertNewline = keyMap.InsertNewline
	ta.SetHeight(1)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Typing

	vp := viewport.New(80, 20)

	maxLines := cfg.Input.MaxLines
	if maxLines < 1 {
		maxLines = 1
	}

	return Model{
		ctx:         ctx,
		deps:        deps,
		keyMap:      keyMap,
		styles:      styles,
		textarea:    ta,
		viewport:    vp,
		spinner:     sp,
		sidebar:     NewSidebarModel(keyMap, styles),
		rendered:    map[string]string{},
		title:       cfg.Chat.DefaultTitle,
		maxLines:    maxLines,
		width:       80,
		height:      24,
		showSidebar: true,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, m.spinner.Tick, m.refreshHistory()}
	if m.deps.Startup != nil {
		startup := m.deps.Startup
		ctx := m.ctx
		cmds = append(cmds, func() tea.Msg {
			return opDoneMsg{op: "startup", err: startup(ctx)}
		})
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.refreshViewport()
		return m, nil

	case EventMsg:
		m.apply(msg.Event)
		return m, nil

	case clearInputMsg:
		m.textarea.Reset()
		m.layout()
		return m, nil

	case focusInputMsg:
		m.sidebarFocused = false
		m.sidebar.focused = false
		cmd := m.textarea.Focus()
		return m, cmd

	case titleMsg:
		m.title = msg.title
		return m, nil

	case conversationMsg:
		m.conversationID = msg.id
		return m, nil

	case sendDoneMsg:
		m.inFlight--
		if m.inFlight < 0 {
			m.inFlight = 0
		}
		m.status = ""
		if msg.outcome == dispatch.OutcomeFailed {
			m.status = "message failed"
		}
		return m, nil

	case opDoneMsg:
		if msg.err != nil {
			log.Debug().Err(msg.err).Str("op", msg.op).Msg("ui operation failed")
			m.status = msg.op + " failed"
		}
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.status = "copy failed: " + msg.err.Error()
		} else {
			m.status = "reply copied"
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.hasTyping() {
			m.refreshViewport()
		}
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m Model) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(k, m.keyMap.Quit):
		return m, tea.Quit

	case key.Matches(k, m.keyMap.NewConversation):
		resetter := m.deps.Resetter
		m.status = ""
		return m, func() tea.Msg {
			resetter.ResetSession()
			return opDoneMsg{op: "reset"}
		}

	case key.Matches(k, m.keyMap.RefreshHistory):
		return m, m.refreshHistory()

	case key.Matches(k, m.keyMap.ToggleSidebar):
		m.showSidebar = !m.showSidebar
		if !m.showSidebar && m.sidebarFocused {
			m.sidebarFocused = false
			m.sidebar.focused = false
			m.layout()
			m.refreshViewport()
			cmd := m.textarea.Focus()
			return m, cmd
		}
		m.layout()
		m.refreshViewport()
		return m, nil

	case key.Matches(k, m.keyMap.FocusSidebar) && m.showSidebar:
		m.sidebarFocused = !m.sidebarFocused
		m.sidebar.focused = m.sidebarFocused
		if m.sidebarFocused {
			m.textarea.Blur()
			return m, nil
		}
		cmd := m.textarea.Focus()
		return m, cmd

	case key.Matches(k, m.keyMap.CopyReply):
		text, ok := m.lastReply()
		if !ok {
			m.status = "no reply to copy"
			return m, nil
		}
		copyFn := m.deps.Copy
		return m, func() tea.Msg { return copiedMsg{err: copyFn(text)} }

	case key.Matches(k, m.keyMap.ScrollUp), key.Matches(k, m.keyMap.ScrollDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(k)
		return m, cmd
	}

	if m.sidebarFocused {
		if key.Matches(k, m.keyMap.OpenSelected) {
			id, ok := m.sidebar.Selected()
			if !ok {
				return m, nil
			}
			opener := m.deps.Opener
			ctx := m.ctx
			return m, func() tea.Msg {
				return opDoneMsg{op: "open", err: opener.Open(ctx, id)}
			}
		}
		var cmd tea.Cmd
		m.sidebar, cmd = m.sidebar.Update(k)
		return m, cmd
	}

	if key.Matches(k, m.keyMap.Submit) {
		raw := m.textarea.Value()
		if strings.TrimSpace(raw) == "" {
			return m, nil
		}
		m.inFlight++
		m.status = ""
		sender := m.deps.Sender
		ctx := m.ctx
		return m, func() tea.Msg {
			return sendDoneMsg{outcome: sender.Send(ctx, raw)}
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(k)
	m.layout()
	return m, cmd
}

func (m Model) refreshHistory() tea.Cmd {
	h := m.deps.History
	if h == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: "refresh", err: h.Refresh(ctx)}
	}
}

// apply re-reads the authoritative state an event refers to.
func (m *Model) apply(e events.Event) {
	switch e.Type {
	case events.EventTurnAppended, events.EventTypingShown, events.EventTypingRemoved, events.EventTranscriptCleared:
		m.nodes = m.deps.Transcript.Nodes()
		if e.Type == events.EventTranscriptCleared {
			m.rendered = map[string]string{}
		}
		m.refreshViewport()
	case events.EventBannerShown, events.EventBannerFading, events.EventBannerRemoved:
		m.banners = m.deps.Banners.Banners()
		m.layout()
		m.refreshViewport()
	case events.EventHistoryChanged:
		if m.deps.History != nil {
			m.sidebar.SetEntries(m.deps.History.Entries())
		}
	case events.EventConversationChanged:
		m.conversationID = api.ConversationID(e.ConversationID)
	case events.EventTitleChanged:
		m.title = e.Message
	}
}

func (m *Model) layout() {
	lines := m.textarea.LineCount()
	if lines < 1 {
		lines = 1
	}
	if lines > m.maxLines {
		lines = m.maxLines
	}
	m.textarea.SetHeight(lines)

	mainWidth := m.width
	if m.showSidebar {
		mainWidth -= sidebarWidth
	}
	if mainWidth < 20 {
		mainWidth = 20
	}
	m.textarea.SetWidth(mainWidth - inputChrome)

	vpHeight := m.height - headerHeight - len(m.banners) - lines - inputChrome - helpHeight
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = mainWidth
	m.viewport.Height = vpHeight
	m.sidebar.SetSize(sidebarWidth, m.height-helpHeight)

	if mainWidth != m.mdWidth {
		m.mdWidth = mainWidth
		m.markdown = nil
		m.rendered = map[string]string{}
	}
}

func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderTranscript())
	if len(m.nodes) != m.lastNodeLen {
		m.lastNodeLen = len(m.nodes)
		m.viewport.GotoBottom()
	}
}

func (m *Model) renderTranscript() string {
	var b strings.Builder
	for i, n := range m.nodes {
		if i > 0 {
			b.WriteString("\n")
		}
		switch {
		case n.Kind == transcript.KindTyping:
			b.WriteString(m.styles.Typing.Render(m.spinner.View() + " Assistant is typing..."))
		case n.Role == transcript.RoleUser:
			b.WriteString(m.styles.UserLabel.Render("You"))
			b.WriteString("\n")
			b.WriteString(m.styles.UserText.Width(m.viewport.Width).Render(n.Raw))
		default:
			b.WriteString(m.styles.AssistantLabel.Render("Assistant"))
			b.WriteString("\n")
			b.WriteString(m.renderMarkdown(n))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderMarkdown(n transcript.Node) string {
	if s, ok := m.rendered[n.ID]; ok {
		return s
	}
	if m.markdown == nil {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(m.viewport.Width-4),
		)
		if err != nil {
			log.Debug().Err(err).Msg("could not create markdown renderer")
			return n.Raw
		}
		m.markdown = r
	}
	out, err := m.markdown.Render(n.Raw)
	if err != nil {
		log.Debug().Err(err).Str("node", n.ID).Msg("could not render markdown")
		out = n.Raw
	}
	out = strings.TrimRight(out, "\n")
	m.rendered[n.ID] = out
	return out
}

func (m Model) hasTyping() bool {
	for _, n := range m.nodes {
		if n.Kind == transcript.KindTyping {
			return true
		}
	}
	return false
}

// lastReply returns the raw content of the newest assistant turn.
func (m Model) lastReply() (string, bool) {
	for i := len(m.nodes) - 1; i >= 0; i-- {
		n := m.nodes[i]
		if n.Kind == transcript.KindTurn && n.Role == transcript.RoleAssistant {
			return n.Raw, true
		}
	}
	return "", false
}

func (m Model) View() string {
	header := m.styles.Header.Render(m.title)
	if !m.conversationID.IsZero() {
		header += " " + m.styles.ConversationID.Render("#"+m.conversationID.String())
	}
	if m.inFlight > 0 {
		header += " " + m.spinner.View()
	}
	if m.status != "" {
		header += "  " + m.styles.Status.Render(m.status)
	}

	parts := []string{header}
	for _, b := range m.banners {
		style := m.styles.Banner
		if b.Fading {
			style = m.styles.BannerFading
		}
		parts = append(parts, style.Render(b.Message))
	}
	parts = append(parts, m.viewport.View(), m.styles.Input.Render(m.textarea.View()))
	main := lipgloss.JoinVertical(lipgloss.Left, parts...)

	if m.showSidebar {
		main = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar.View(), main)
	}
	return main + "\n" + m.helpView()
}

func (m Model) helpView() string {
	var items []string
	for _, b := range m.keyMap.help() {
		h := b.Help()
		items = append(items, fmt.Sprintf("%s %s", h.Key, h.Desc))
	}
	return m.styles.Help.Render(strings.Join(items, " • "))
}

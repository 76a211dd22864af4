package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/go-go-golems/kbchat/pkg/api"
	"github.com/go-go-golems/kbchat/pkg/history"
)

// SidebarModel lists past conversations.
type SidebarModel struct {
	width   int
	height  int
	entries []history.Entry
	cursor  int
	focused bool

	keyMap KeyMap
	styles Styles
}

func NewSidebarModel(keyMap KeyMap, styles Styles) SidebarModel {
	return SidebarModel{width: 28, keyMap: keyMap, styles: styles}
}

func (m *SidebarModel) SetEntries(entries []history.Entry) {
	m.entries = entries
	if m.cursor >= len(entries) {
		m.cursor = len(entries) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *SidebarModel) SetSize(width, height int) {
	if width > 0 {
		m.width = width
	}
	m.height = height
}

func (m SidebarModel) Width() int { return m.width }

// Selected returns the id under the cursor.
func (m SidebarModel) Selected() (api.ConversationID, bool) {
	if len(m.entries) == 0 {
		return "", false
	}
	return m.entries[m.cursor].ID, true
}

func (m SidebarModel) Update(msg tea.Msg) (SidebarModel, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok || !m.focused {
		return m, nil
	}
	switch {
	case key.Matches(k, m.keyMap.SidebarUp):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(k, m.keyMap.SidebarDown):
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	}
	return m, nil
}

func (m SidebarModel) View() string {
	inner := m.width - 2
	if inner < 4 {
		inner = 4
	}
	var b strings.Builder
	b.WriteString(m.styles.SidebarTitle.Render("Conversations"))
	b.WriteString("\n")
	if len(m.entries) == 0 {
		b.WriteString(m.styles.SidebarPreview.Render("No conversations yet"))
	}
	for i, e := range m.entries {
		title := e.Title
		if title == "" {
			title = "Untitled"
		}
		title = truncate(title, inner)
		style := m.styles.SidebarItem
		if e.Active {
			style = m.styles.SidebarActive
		}
		if m.focused && i == m.cursor {
			style = style.Inherit(m.styles.SidebarCursor)
		}
		b.WriteString(style.Render(title))
		b.WriteString("\n")
		if e.Preview != "" {
			b.WriteString(m.styles.SidebarPreview.Render(truncate(e.Preview, inner)))
			b.WriteString("\n")
		}
	}
	return m.styles.SidebarBorder.
		Width(inner).
		Height(m.height).
		MaxHeight(m.height).
		Render(b.String())
}

func truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}

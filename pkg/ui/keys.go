package ui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

type KeyMap struct {
	Submit          key.Binding
	InsertNewline   key.Binding
	NewConversation key.Binding
	RefreshHistory  key.Binding
	ToggleSidebar   key.Binding
	FocusSidebar    key.Binding
	SidebarUp       key.Binding
	SidebarDown     key.Binding
	OpenSelected    key.Binding
	CopyReply       key.Binding
	ScrollUp        key.Binding
	ScrollDown      key.Binding
	Quit            key.Binding
}

// Enter submits. The terminal cannot report shift+enter, so a literal
// newline is alt+enter or ctrl+j.
var DefaultKeyMap = KeyMap{
	Submit:          key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
	InsertNewline:   key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"), key.WithHelp("alt+enter", "newline")),
	NewConversation: key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new")),
	RefreshHistory:  key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "refresh")),
	ToggleSidebar:   key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "history")),
	FocusSidebar:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "focus")),
	SidebarUp:       key.NewBinding(key.WithKeys("up", "k")),
	SidebarDown:     key.NewBinding(key.WithKeys("down", "j")),
	OpenSelected:    key.NewBinding(key.WithKeys("enter")),
	CopyReply:       key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy reply")),
	ScrollUp:        key.NewBinding(key.WithKeys("pgup")),
	ScrollDown:      key.NewBinding(key.WithKeys("pgdown")),
	Quit:            key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}

func (k KeyMap) help() []key.Binding {
	return []key.Binding{k.Submit, k.InsertNewline, k.NewConversation, k.ToggleSidebar, k.CopyReply, k.Quit}
}

type Styles struct {
	Header         lipgloss.Style
	ConversationID lipgloss.Style
	UserLabel      lipgloss.Style
	UserText       lipgloss.Style
	AssistantLabel lipgloss.Style
	Typing         lipgloss.Style
	Banner         lipgloss.Style
	BannerFading   lipgloss.Style
	Input          lipgloss.Style
	Help           lipgloss.Style
	Status         lipgloss.Style

	SidebarTitle   lipgloss.Style
	SidebarItem    lipgloss.Style
	SidebarActive  lipgloss.Style
	SidebarCursor  lipgloss.Style
	SidebarPreview lipgloss.Style
	SidebarBorder  lipgloss.Style
}

func DefaultStyles() Styles {
	subtle := lipgloss.AdaptiveColor{Light: "#999999", Dark: "#666666"}
	return Styles{
		Header:         lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		ConversationID: lipgloss.NewStyle().Foreground(subtle),
		UserLabel:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		UserText:       lipgloss.NewStyle().PaddingLeft(2),
		AssistantLabel: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("118")),
		Typing:         lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Italic(true),
		Banner: lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("160")).
			Padding(0, 1),
		BannerFading: lipgloss.NewStyle().Foreground(lipgloss.Color("160")).Faint(true).Padding(0, 1),
		Input: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#CCCCCC", Dark: "#444444"}),
		Help:   lipgloss.NewStyle().Foreground(subtle),
		Status: lipgloss.NewStyle().Foreground(lipgloss.Color("213")),

		SidebarTitle:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		SidebarItem:    lipgloss.NewStyle(),
		SidebarActive:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		SidebarCursor:  lipgloss.NewStyle().Reverse(true),
		SidebarPreview: lipgloss.NewStyle().Foreground(subtle),
		SidebarBorder: lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(subtle).
			PaddingRight(1),
	}
}

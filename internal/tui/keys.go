package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the client's key bindings.
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	Compose     key.Binding
	Search      key.Binding
	Submit      key.Binding
	Menu        key.Binding
	Edit        key.Binding
	Delete      key.Binding
	Copy        key.Binding
	Save        key.Binding
	Cancel      key.Binding
	DarkMode    key.Binding
	Sidebar     key.Binding
	PrevSection key.Binding
	NextSection key.Binding
	Refresh     key.Binding
	Quit        key.Binding
}

// Keys holds the default bindings.
var Keys = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Compose: key.NewBinding(
		key.WithKeys("n", "a"),
		key.WithHelp("n", "new note"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "add"),
	),
	Menu: key.NewBinding(
		key.WithKeys("enter", " ", "m"),
		key.WithHelp("enter", "actions"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "edit"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d", "x"),
		key.WithHelp("d", "delete"),
	),
	Copy: key.NewBinding(
		key.WithKeys("y", "c"),
		key.WithHelp("y", "copy"),
	),
	Save: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "save"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
	DarkMode: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "theme"),
	),
	Sidebar: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "sidebar"),
	),
	PrevSection: key.NewBinding(
		key.WithKeys("["),
		key.WithHelp("[", "prev section"),
	),
	NextSection: key.NewBinding(
		key.WithKeys("]"),
		key.WithHelp("]", "next section"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

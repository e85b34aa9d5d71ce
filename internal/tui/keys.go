package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// keyMap holds the shell's bindings
type keyMap struct {
	Retry        key.Binding
	SwitchEngine key.Binding
	SwitchSource key.Binding
	Format       key.Binding
	Copy         key.Binding
	Help         key.Binding
	Quit         key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry"),
		),
		SwitchEngine: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "switch engine"),
		),
		SwitchSource: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "switch source"),
		),
		Format: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "force mp4"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy url"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more keys"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Retry, k.SwitchEngine, k.SwitchSource, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Retry, k.SwitchEngine, k.SwitchSource},
		{k.Format, k.Copy},
		{k.Help, k.Quit},
	}
}

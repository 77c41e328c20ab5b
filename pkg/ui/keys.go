package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the dashboard bindings. It satisfies help.KeyMap.
type KeyMap struct {
	Quit   key.Binding
	Pause  key.Binding
	Clear  key.Binding
	Newer  key.Binding
	Older  key.Binding
	Errors key.Binding
	Help   key.Binding
}

func binding(help string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(keys[0], help))
}

// DefaultKeyMap returns the dashboard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:   binding("quit", "q", "ctrl+c"),
		Pause:  binding("freeze feed", "p"),
		Clear:  binding("clear bundles", "c"),
		Newer:  binding("newer", "up", "k"),
		Older:  binding("older", "down", "j"),
		Errors: binding("clear errors", "e"),
		Help:   binding("more", "?"),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Pause, k.Newer, k.Older, k.Help}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Quit, k.Pause, k.Help},
		{k.Newer, k.Older},
		{k.Clear, k.Errors},
	}
}

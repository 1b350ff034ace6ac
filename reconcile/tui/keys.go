package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up         key.Binding
	Down       key.Binding
	Toggle     key.Binding
	ClearAll   key.Binding
	PendingAll key.Binding
	Target     key.Binding
	Sort       key.Binding
	Refresh    key.Binding
	Account    key.Binding
	Open       key.Binding
	Help       key.Binding
	Quit       key.Binding

	Confirm key.Binding
	Cancel  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Toggle:     key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle !")),
		ClearAll:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear all !")),
		PendingAll: key.NewBinding(key.WithKeys("!"), key.WithHelp("!", "set all !")),
		Target:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "adjust target")),
		Sort:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "reverse sort")),
		Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Account:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "switch account")),
		Open:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open in editor")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),

		Confirm: key.NewBinding(key.WithKeys("y", "Y", "enter"), key.WithHelp("y", "yes")),
		Cancel:  key.NewBinding(key.WithKeys("n", "N", "esc"), key.WithHelp("n", "no")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.ClearAll, k.PendingAll, k.Target, k.Account, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.ClearAll, k.PendingAll, k.Target},
		{k.Sort, k.Refresh, k.Account, k.Open},
		{k.Up, k.Down, k.Help, k.Quit},
	}
}

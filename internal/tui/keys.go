package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit    key.Binding
	Next    key.Binding
	Prev    key.Binding
	Submit  key.Binding
	Cancel  key.Binding
	Toggle  key.Binding
	Edit    key.Binding
	Delete  key.Binding
	Filter  key.Binding
	Add     key.Binding
	SignOut key.Binding
}

var keys = keyMap{
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Next:    key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next")),
	Prev:    key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "prev")),
	Submit:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
	Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	Toggle:  key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "toggle")),
	Edit:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
	Delete:  key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
	Filter:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter")),
	Add:     key.NewBinding(key.WithKeys("a", "i", "tab"), key.WithHelp("a", "add")),
	SignOut: key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "sign out")),
}

func (m Model) helpKeys() []key.Binding {
	switch m.focus {
	case focusEmail, focusPassword:
		return []key.Binding{keys.Next, keys.Submit, withHelp(keys.Cancel, "esc", "quit")}
	case focusInput:
		return []key.Binding{withHelp(keys.Submit, "enter", "add"), withHelp(keys.Next, "tab", "list"), keys.SignOut}
	case focusEdit:
		return []key.Binding{withHelp(keys.Submit, "enter", "save"), keys.Cancel}
	}
	return []key.Binding{keys.Toggle, keys.Edit, keys.Delete, keys.Filter, keys.Add, keys.SignOut, keys.Quit}
}

func withHelp(b key.Binding, k, desc string) key.Binding {
	b.SetHelp(k, desc)
	return b
}

package cmd

import (
	"github.com/blacktop/sceneforge/internal/session"
	"github.com/charmbracelet/bubbles/key"
)

// generatedMsg carries a finished generation back to the update loop.
type generatedMsg struct {
	req session.Request
	res session.Result
}

// exportedMsg reports the end of a save-all run.
type exportedMsg struct {
	paths []string
	total int
	err   error
}

type focus int

const (
	focusPrompt focus = iota
	focusReference
	focusHistory
)

type keyMap struct {
	Generate  key.Binding
	Attach    key.Binding
	ClearRef  key.Binding
	SaveOne   key.Binding
	SaveAll   key.Binding
	Up        key.Binding
	Down      key.Binding
	NextFocus key.Binding
	Dismiss   key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Generate:  key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "generate")),
		Attach:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "attach reference")),
		ClearRef:  key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "clear reference")),
		SaveOne:   key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save selected")),
		SaveAll:   key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "save all")),
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "newer")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "older")),
		NextFocus: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		Dismiss:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "dismiss error")),
		Quit:      key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Generate, k.NextFocus, k.SaveOne, k.SaveAll, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Generate, k.NextFocus, k.Attach, k.ClearRef},
		{k.Up, k.Down, k.SaveOne, k.SaveAll},
		{k.Dismiss, k.Quit},
	}
}

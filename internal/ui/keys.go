package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap lists the bindings shown in the help line.
type keyMap struct {
	NextTab   key.Binding
	PrevTab   key.Binding
	NextField key.Binding
	PrevField key.Binding
	Toggle    key.Binding
	Run       key.Binding
	Left      key.Binding
	Right     key.Binding
	Answer    key.Binding
	ScrollUp  key.Binding
	ScrollDn  key.Binding
	Bottom    key.Binding
	Copy      key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		NextTab:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next command")),
		PrevTab:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev command")),
		NextField: key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "next field")),
		PrevField: key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "prev field")),
		Toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		Run:       key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "run")),
		Left:      key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "prev choice")),
		Right:     key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "next choice")),
		Answer:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "answer")),
		ScrollUp:  key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		ScrollDn:  key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
		Bottom:    key.NewBinding(key.WithKeys("end"), key.WithHelp("end", "follow")),
		Copy:      key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy console")),
		Quit:      key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// idleHelp is shown while no command runs.
type idleHelp keyMap

func (k idleHelp) ShortHelp() []key.Binding {
	return []key.Binding{k.NextTab, k.NextField, k.Toggle, k.Run, k.Copy, k.Quit}
}

func (k idleHelp) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

// choiceHelp is shown while a choice is pending.
type choiceHelp keyMap

func (k choiceHelp) ShortHelp() []key.Binding {
	return []key.Binding{k.Left, k.Right, k.Answer, k.ScrollUp, k.Bottom, k.Quit}
}

func (k choiceHelp) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

// runningHelp is shown while a command runs without a pending choice.
type runningHelp keyMap

func (k runningHelp) ShortHelp() []key.Binding {
	return []key.Binding{k.ScrollUp, k.ScrollDn, k.Bottom, k.Copy, k.Quit}
}

func (k runningHelp) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"musync/internal/commands"
)

// formField is one input of a command form: a text input or a toggle.
type formField struct {
	spec   commands.FieldSpec
	input  textinput.Model
	toggle bool
}

// form holds the inputs of one command kind. Values survive tab switches.
type form struct {
	kind   commands.Kind
	fields []*formField
	focus  int
}

func newForm(kind commands.Kind) *form {
	f := &form{kind: kind}
	for _, spec := range kind.Fields() {
		field := &formField{spec: spec}
		if !spec.Toggle {
			ti := textinput.New()
			ti.Placeholder = spec.Placeholder
			ti.Prompt = ""
			ti.CharLimit = 1024
			field.input = ti
		}
		f.fields = append(f.fields, field)
	}
	return f
}

// focused returns the focused field, or nil for a form without inputs.
func (f *form) focused() *formField {
	if len(f.fields) == 0 {
		return nil
	}
	return f.fields[f.focus]
}

// activate focuses the current text input so it shows a cursor.
func (f *form) activate() tea.Cmd {
	for i, field := range f.fields {
		if field.spec.Toggle {
			continue
		}
		if i == f.focus {
			field.input.Focus()
		} else {
			field.input.Blur()
		}
	}
	if field := f.focused(); field != nil && !field.spec.Toggle {
		return textinput.Blink
	}
	return nil
}

// deactivate blurs every input while the form is not editable.
func (f *form) deactivate() {
	for _, field := range f.fields {
		if !field.spec.Toggle {
			field.input.Blur()
		}
	}
}

func (f *form) move(delta int) tea.Cmd {
	if len(f.fields) == 0 {
		return nil
	}
	f.focus = (f.focus + delta + len(f.fields)) % len(f.fields)
	return f.activate()
}

// toggle flips the focused toggle and reports whether one was focused.
func (f *form) toggle() bool {
	field := f.focused()
	if field == nil || !field.spec.Toggle {
		return false
	}
	field.toggle = !field.toggle
	return true
}

// update forwards a key to the focused text input.
func (f *form) update(msg tea.Msg) tea.Cmd {
	field := f.focused()
	if field == nil || field.spec.Toggle {
		return nil
	}
	var cmd tea.Cmd
	field.input, cmd = field.input.Update(msg)
	return cmd
}

// args collects the form values.
func (f *form) args() commands.Args {
	var a commands.Args
	for _, field := range f.fields {
		switch field.spec.Field {
		case commands.FieldPath:
			a.Path = strings.TrimSpace(field.input.Value())
		case commands.FieldTarget:
			a.Target = strings.TrimSpace(field.input.Value())
		case commands.FieldIgnoreDAPContent:
			a.IgnoreDAPContent = field.toggle
		}
	}
	return a
}

func (f *form) view(s *Styles, editable bool) string {
	if len(f.fields) == 0 {
		return s.Label.Render("  No input needed.")
	}

	var b strings.Builder
	for i, field := range f.fields {
		if i > 0 {
			b.WriteString("\n")
		}
		marker := "  "
		label := s.Label
		if editable && i == f.focus {
			marker = "> "
			label = s.Focused
		}
		b.WriteString(marker)
		if field.spec.Toggle {
			box := "[ ]"
			if field.toggle {
				box = "[x]"
			}
			b.WriteString(label.Render(box + " " + field.spec.Label))
			continue
		}
		b.WriteString(label.Render(field.spec.Label + ": "))
		b.WriteString(field.input.View())
	}
	return b.String()
}

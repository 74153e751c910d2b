package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"musync/internal/bridge"
	"musync/internal/cui"
)

// defaultChoiceLabels name the choice runes the commands use.
var defaultChoiceLabels = map[rune]string{
	cui.ChoiceApplyA: "PC → DB",
	cui.ChoiceApplyB: "DB → PC",
	cui.ChoiceSkip:   "skip",
	cui.ChoiceAbort:  "abort",
	cui.ChoiceYes:    "yes",
	cui.ChoiceNo:     "no",
}

// parseChoiceLabels converts config labels keyed by single-character strings,
// layered over the defaults. Keys that are not exactly one rune are ignored.
func parseChoiceLabels(cfg map[string]string) map[rune]string {
	labels := make(map[rune]string, len(defaultChoiceLabels)+len(cfg))
	for r, l := range defaultChoiceLabels {
		labels[r] = l
	}
	for k, l := range cfg {
		if utf8.RuneCountInString(k) != 1 || l == "" {
			continue
		}
		r, _ := utf8.DecodeRuneInString(k)
		labels[r] = l
	}
	return labels
}

// choiceLabel returns the button text for r.
func choiceLabel(labels map[rune]string, r rune) string {
	if l, ok := labels[r]; ok {
		return fmt.Sprintf("%c: %s", r, l)
	}
	return fmt.Sprintf("%c: other", r)
}

// choiceForKey maps a key press to an answer while a choice is pending.
// A rune key answers directly when offered; enter answers the selected button.
func choiceForKey(msg tea.KeyMsg, allowed []rune, selected int) (rune, bool) {
	switch msg.Type {
	case tea.KeyRunes:
		if len(msg.Runes) == 1 && cui.Allows(allowed, msg.Runes[0]) {
			return msg.Runes[0], true
		}
	case tea.KeyEnter:
		if selected >= 0 && selected < len(allowed) {
			return allowed[selected], true
		}
	}
	return 0, false
}

// renderChoice draws the prompt and one button per allowed rune.
func renderChoice(s *Styles, labels map[rune]string, snap bridge.Snapshot, selected int) string {
	buttons := make([]string, len(snap.Allowed))
	for i, r := range snap.Allowed {
		style := s.Button
		if i == selected {
			style = s.ButtonSelected
		}
		buttons[i] = style.Render(choiceLabel(labels, r))
	}

	var b strings.Builder
	b.WriteString(s.Prompt.Render("? " + snap.Prompt))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, buttons...))
	return b.String()
}

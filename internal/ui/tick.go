package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// TickMsg drives the per-frame poll of the shared command state and console.
type TickMsg time.Time

// TickCmd returns a command that sends TickMsg after interval.
func TickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"musync/internal/console"
)

// OutputModel renders the console in a scrollable viewport that sticks to the
// latest line until the operator scrolls up, and follows again once they
// scroll back to the bottom.
type OutputModel struct {
	viewport viewport.Model
	styles   *Styles

	revision uint64
	synced   bool
	follow   bool
	lines    int
}

// NewOutputModel creates a new output model.
func NewOutputModel(styles *Styles) OutputModel {
	vp := viewport.New(0, 0)
	vp.MouseWheelEnabled = true
	return OutputModel{
		viewport: vp,
		styles:   styles,
		follow:   true,
	}
}

// SetSize resizes the viewport.
func (m *OutputModel) SetSize(width, height int) {
	if height < 1 {
		height = 1
	}
	m.viewport.Width = width
	m.viewport.Height = height
	if m.follow {
		m.viewport.GotoBottom()
	}
}

// Sync re-renders from c when it changed since the last call.
func (m *OutputModel) Sync(c *console.Console) {
	rev := c.Revision()
	if m.synced && rev == m.revision {
		return
	}
	m.revision = rev
	m.synced = true

	entries := c.Entries()
	m.lines = len(entries)

	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		if e.Severity == console.SeverityError {
			b.WriteString(m.styles.ErrorLine.Render(e.Text))
		} else {
			b.WriteString(m.styles.LogLine.Render(e.Text))
		}
	}
	m.viewport.SetContent(b.String())

	if m.follow {
		m.viewport.GotoBottom()
	}
}

// Following reports whether the view sticks to the latest line.
func (m OutputModel) Following() bool {
	return m.follow
}

// GotoBottom jumps to the latest line and resumes following.
func (m *OutputModel) GotoBottom() {
	m.viewport.GotoBottom()
	m.follow = true
}

// Update handles scroll keys and the mouse wheel.
func (m OutputModel) Update(msg tea.Msg) (OutputModel, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	m.follow = m.viewport.AtBottom()
	return m, cmd
}

// View renders the output component.
func (m OutputModel) View() string {
	view := m.viewport.View()
	if !m.follow && m.lines > 0 {
		view += "\n" + m.styles.FollowHint.Render("  scrolled up, press end to follow")
	}
	return m.styles.Console.Render(view)
}

// Package ui is the musync terminal interface. It never blocks on a running
// command: every frame it reads a snapshot of the shared command state and
// the console, and it answers pending choices through the state.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"musync/internal/bridge"
	"musync/internal/commands"
	"musync/internal/console"
	"musync/internal/logging"
)

// DefaultFrameInterval is used when Options.FrameInterval is zero.
const DefaultFrameInterval = 50 * time.Millisecond

// Options configure the model.
type Options struct {
	State   *bridge.State
	Console *console.Console

	// Run starts a command. Rejections are reported on the console by the
	// dispatcher, so the returned error only feeds the status line.
	Run func(kind commands.Kind, args commands.Args) error

	FrameInterval time.Duration
	ChoiceLabels  map[string]string

	// Clipboard defaults to the system clipboard.
	Clipboard func(text string) error
}

// Model represents the main TUI model.
type Model struct {
	state   *bridge.State
	console *console.Console
	run     func(commands.Kind, commands.Args) error

	styles *Styles
	keys   keyMap
	help   help.Model
	output OutputModel

	forms  map[commands.Kind]*form
	active int // index into commands.Kinds

	snap     bridge.Snapshot
	selected int // highlighted choice button
	note     string

	labels    map[rune]string
	interval  time.Duration
	clipboard func(string) error

	width  int
	height int
}

// NewModel creates the TUI model.
func NewModel(opts Options) Model {
	styles := DefaultStyles()

	interval := opts.FrameInterval
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	clip := opts.Clipboard
	if clip == nil {
		clip = clipboard.WriteAll
	}

	forms := make(map[commands.Kind]*form, len(commands.Kinds))
	for _, k := range commands.Kinds {
		forms[k] = newForm(k)
	}

	m := Model{
		state:     opts.State,
		console:   opts.Console,
		run:       opts.Run,
		styles:    styles,
		keys:      defaultKeyMap(),
		help:      help.New(),
		output:    NewOutputModel(styles),
		forms:     forms,
		labels:    parseChoiceLabels(opts.ChoiceLabels),
		interval:  interval,
		clipboard: clip,
	}
	m.snap = m.state.Snapshot()
	return m
}

// Init starts the frame tick.
func (m Model) Init() tea.Cmd {
	return tea.Batch(TickCmd(m.interval), m.currentForm().activate())
}

func (m Model) currentKind() commands.Kind {
	return commands.Kinds[m.active]
}

func (m Model) currentForm() *form {
	return m.forms[m.currentKind()]
}

// Update handles TUI events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.layout()
		return m, nil

	case TickMsg:
		cmd := m.poll()
		return m, tea.Batch(TickCmd(m.interval), cmd)

	case tea.KeyMsg:
		return m, m.handleKeyMsg(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.output, cmd = m.output.Update(msg)
		return m, cmd
	}
	return m, nil
}

// poll refreshes the snapshot and the console for this frame.
func (m *Model) poll() tea.Cmd {
	prev := m.snap
	m.snap = m.state.Snapshot()

	if m.snap.Pending() && (!prev.Pending() || prev.Prompt != m.snap.Prompt) {
		m.selected = 0
	}

	var cmd tea.Cmd
	switch {
	case prev.Kind == bridge.Idle && m.snap.Kind != bridge.Idle:
		m.currentForm().deactivate()
	case prev.Kind != bridge.Idle && m.snap.Kind == bridge.Idle:
		cmd = m.currentForm().activate()
	}

	m.output.Sync(m.console)
	m.layout()
	return cmd
}

// handleKeyMsg handles keyboard input.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Copy):
		m.copyConsole()
		return nil
	}

	if m.snap.Pending() {
		return m.handleChoiceKeys(msg)
	}
	if m.snap.Kind != bridge.Idle {
		return m.handleScrollKeys(msg)
	}
	return m.handleFormKeys(msg)
}

// handleChoiceKeys answers or moves the button selection.
func (m *Model) handleChoiceKeys(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Left):
		if m.selected > 0 {
			m.selected--
		}
		return nil
	case key.Matches(msg, m.keys.Right):
		if m.selected < len(m.snap.Allowed)-1 {
			m.selected++
		}
		return nil
	}

	if r, ok := choiceForKey(msg, m.snap.Allowed, m.selected); ok {
		m.answer(r)
		return nil
	}
	return m.handleScrollKeys(msg)
}

func (m *Model) answer(r rune) {
	if err := m.state.Answer(r); err != nil {
		// The choice can disappear between frames, e.g. on shutdown.
		logging.Debug("answer rejected", "choice", string(r), "error", err)
		m.note = err.Error()
		return
	}
	// Hide the buttons now instead of on the next frame.
	m.snap.Answered = true
	m.note = ""
}

func (m *Model) handleScrollKeys(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.Bottom) {
		m.output.GotoBottom()
		return nil
	}
	var cmd tea.Cmd
	m.output, cmd = m.output.Update(msg)
	return cmd
}

func (m *Model) handleFormKeys(msg tea.KeyMsg) tea.Cmd {
	f := m.currentForm()

	switch {
	case key.Matches(msg, m.keys.NextTab):
		return m.switchTab(1)
	case key.Matches(msg, m.keys.PrevTab):
		return m.switchTab(-1)
	case key.Matches(msg, m.keys.NextField):
		return f.move(1)
	case key.Matches(msg, m.keys.PrevField):
		return f.move(-1)
	case key.Matches(msg, m.keys.Run):
		m.start()
		return nil
	case key.Matches(msg, m.keys.ScrollUp, m.keys.ScrollDn, m.keys.Bottom):
		return m.handleScrollKeys(msg)
	case key.Matches(msg, m.keys.Toggle):
		if f.toggle() {
			return nil
		}
	}
	return f.update(msg)
}

func (m *Model) switchTab(delta int) tea.Cmd {
	m.currentForm().deactivate()
	n := len(commands.Kinds)
	m.active = (m.active + delta + n) % n
	m.note = ""
	return m.currentForm().activate()
}

// start hands the current form to the dispatcher. The state flips to Running
// synchronously, so the form locks on this frame.
func (m *Model) start() {
	if m.run == nil {
		return
	}
	kind := m.currentKind()
	if err := m.run(kind, m.currentForm().args()); err != nil {
		m.note = err.Error()
		return
	}
	m.note = ""
	m.currentForm().deactivate()
	m.snap = m.state.Snapshot()
}

func (m *Model) copyConsole() {
	n := m.console.Len()
	if err := m.clipboard(m.console.Lines()); err != nil {
		m.note = fmt.Sprintf("copy failed: %v", err)
		return
	}
	m.note = fmt.Sprintf("copied %d console lines", n)
}

// layout gives the console whatever height the top section leaves.
func (m *Model) layout() {
	if m.height == 0 {
		return
	}
	top := lipgloss.Height(m.renderTop())
	// console border, follow hint and help line
	m.output.SetSize(m.width, m.height-top-3)
}

func (m Model) renderTabs() string {
	running := m.snap.Kind != bridge.Idle
	tabs := make([]string, len(commands.Kinds))
	for i, k := range commands.Kinds {
		style := m.styles.Tab
		switch {
		case i == m.active:
			style = m.styles.ActiveTab
		case running:
			style = m.styles.DisabledTab
		}
		tabs[i] = style.Render(k.String())
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		append([]string{m.styles.Title.Render("musync")}, tabs...)...)
}

func (m Model) renderStatus() string {
	var status string
	switch {
	case m.snap.Pending():
		status = m.styles.StatusWaiting.Render("waiting for your choice: " + m.snap.Label)
	case m.snap.Kind != bridge.Idle:
		status = m.styles.StatusRunning.Render("running: " + m.snap.Label)
	default:
		status = m.styles.StatusIdle.Render("idle")
	}
	if m.note != "" {
		status += m.styles.StatusNote.Render("  " + m.note)
	}
	return " " + status
}

func (m Model) renderTop() string {
	kind := m.currentKind()
	sections := []string{
		m.renderTabs(),
		m.styles.Description.Render("  " + kind.Description()),
		m.currentForm().view(m.styles, m.snap.Kind == bridge.Idle),
		m.renderStatus(),
	}
	if m.snap.Pending() {
		sections = append(sections, renderChoice(m.styles, m.labels, m.snap, m.selected))
	}
	return strings.Join(sections, "\n")
}

func (m Model) renderHelp() string {
	switch {
	case m.snap.Pending():
		return m.help.View(choiceHelp(m.keys))
	case m.snap.Kind != bridge.Idle:
		return m.help.View(runningHelp(m.keys))
	default:
		return m.help.View(idleHelp(m.keys))
	}
}

// View renders the TUI.
func (m Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderTop(),
		m.output.View(),
		m.renderHelp(),
	)
}

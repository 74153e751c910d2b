package ui

import "github.com/charmbracelet/lipgloss"

// Colors for the UI theme
var (
	ColorPrimary   = lipgloss.Color("#A78BFA") // Soft Purple (Lavender 400)
	ColorSecondary = lipgloss.Color("#22D3EE") // Bright Cyan (Cyan 400)
	ColorSuccess   = lipgloss.Color("#059669") // Emerald 600
	ColorWarning   = lipgloss.Color("#D97706") // Amber 600
	ColorError     = lipgloss.Color("#DC2626") // Red 600
	ColorMuted     = lipgloss.Color("#9CA3AF") // Gray 400
	ColorText      = lipgloss.Color("#F1F5F9") // Slate 100
	ColorBorder    = lipgloss.Color("#334155") // Slate 700
	ColorDim       = lipgloss.Color("#6B7280") // Gray 500
	ColorRunning   = lipgloss.Color("#60A5FA") // Blue 400
	ColorQuestion  = ColorSecondary
)

// Styles holds all the styles for the UI.
type Styles struct {
	Title       lipgloss.Style
	Tab         lipgloss.Style
	ActiveTab   lipgloss.Style
	DisabledTab lipgloss.Style

	Description lipgloss.Style
	Label       lipgloss.Style
	Focused     lipgloss.Style

	StatusIdle    lipgloss.Style
	StatusRunning lipgloss.Style
	StatusWaiting lipgloss.Style
	StatusNote    lipgloss.Style

	// Choice prompt
	Prompt         lipgloss.Style
	Button         lipgloss.Style
	ButtonSelected lipgloss.Style

	// Console
	Console    lipgloss.Style
	LogLine    lipgloss.Style
	ErrorLine  lipgloss.Style
	FollowHint lipgloss.Style
}

// DefaultStyles returns the default styles.
func DefaultStyles() *Styles {
	tab := lipgloss.NewStyle().Padding(0, 1).Foreground(ColorMuted)

	button := lipgloss.NewStyle().
		Padding(0, 1).
		MarginRight(1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Foreground(ColorText)

	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			Padding(0, 1),

		Tab:         tab,
		DisabledTab: tab.Foreground(ColorDim),

		ActiveTab: tab.
			Bold(true).
			Foreground(ColorText).
			Background(ColorPrimary),

		Description: lipgloss.NewStyle().Foreground(ColorMuted).Italic(true),
		Label:       lipgloss.NewStyle().Foreground(ColorMuted),
		Focused:     lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true),

		StatusIdle:    lipgloss.NewStyle().Foreground(ColorSuccess),
		StatusRunning: lipgloss.NewStyle().Foreground(ColorRunning).Bold(true),
		StatusWaiting: lipgloss.NewStyle().Foreground(ColorWarning).Bold(true),
		StatusNote:    lipgloss.NewStyle().Foreground(ColorDim),

		Prompt: lipgloss.NewStyle().Foreground(ColorQuestion).Bold(true),
		Button: button,

		ButtonSelected: button.
			Bold(true).
			BorderForeground(ColorSecondary).
			Foreground(ColorSecondary),

		Console: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(ColorBorder),

		LogLine:    lipgloss.NewStyle().Foreground(ColorText),
		ErrorLine:  lipgloss.NewStyle().Foreground(ColorError).Bold(true),
		FollowHint: lipgloss.NewStyle().Foreground(ColorDim).Italic(true),
	}
}

package output

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles holds the lipgloss styles used in text mode.
type Styles struct {
	Banner  lipgloss.Style
	Info    lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	Bold    lipgloss.Style
	Header1 lipgloss.Style
	Header2 lipgloss.Style

	StatusSuccess lipgloss.Style
	StatusWarning lipgloss.Style
	StatusFailed  lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) Styles {
	cyan := lipgloss.Color("6")
	blue := lipgloss.Color("4")
	green := lipgloss.Color("2")
	yellow := lipgloss.Color("3")
	red := lipgloss.Color("1")
	gray := lipgloss.Color("8")

	return Styles{
		Banner:  r.NewStyle().Foreground(cyan),
		Info:    r.NewStyle().Foreground(blue),
		Success: r.NewStyle().Foreground(green),
		Warning: r.NewStyle().Foreground(yellow),
		Error:   r.NewStyle().Foreground(red),
		Muted:   r.NewStyle().Foreground(gray),
		Bold:    r.NewStyle().Bold(true),
		Header1: r.NewStyle().Bold(true).Foreground(cyan),
		Header2: r.NewStyle().Bold(true),

		StatusSuccess: r.NewStyle().Foreground(green).SetString("✓"),
		StatusWarning: r.NewStyle().Foreground(yellow).SetString("!"),
		StatusFailed:  r.NewStyle().Foreground(red).SetString("✗"),
	}
}

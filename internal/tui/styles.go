// Package tui: Lipgloss style constants for pluggit's monitor theme.
package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds the Lipgloss styles used by the monitor view.
type Styles struct {
	Header lipgloss.Style
	Title  lipgloss.Style
	Row    lipgloss.Style
	Footer lipgloss.Style
	Error  lipgloss.Style
}

// newStyles returns pluggit's monitor theme.
func newStyles() Styles {
	primary := lipgloss.Color("#7B8CDE")
	accent := lipgloss.Color("#56E0C8")
	muted := lipgloss.Color("#4A5568")
	text := lipgloss.Color("#E2E8F0")
	danger := lipgloss.Color("#F56565")

	return Styles{
		Header: lipgloss.NewStyle().Bold(true).Foreground(primary),
		Title:  lipgloss.NewStyle().Bold(true).Foreground(accent),
		Row:    lipgloss.NewStyle().Foreground(text),
		Footer: lipgloss.NewStyle().Foreground(muted),
		Error:  lipgloss.NewStyle().Foreground(danger),
	}
}

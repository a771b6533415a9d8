// Package ui provides terminal styling and output for the interactive
// session: markdown rendering for assistant replies, styled tool banners,
// and the confirmation prompt line.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	accent      = lipgloss.Color("#8BC34A")
	destructive = lipgloss.Color("#e53935")
	warning     = lipgloss.Color("#FFC107")
	info        = lipgloss.Color("#2196F3")
	muted       = lipgloss.Color("#7a8599")
)

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)

	cwdStyle = lipgloss.NewStyle().
			Foreground(info)

	toolStyle = lipgloss.NewStyle().
			Foreground(warning).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(destructive).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(muted)

	bannerStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 2)

	confirmStyle = lipgloss.NewStyle().
			Foreground(warning).
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(warning).
			PaddingLeft(1)
)

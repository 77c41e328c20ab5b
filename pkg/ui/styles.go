package ui

import "github.com/charmbracelet/lipgloss"

// Palette. Whirlpool blues for chrome, green and red for outcomes.
var (
	ColorPrimary   = lipgloss.Color("#0EA5E9")
	ColorSecondary = lipgloss.Color("#22C55E")
	ColorDanger    = lipgloss.Color("#F43F5E")
	ColorWarning   = lipgloss.Color("#FBBF24")
	ColorMuted     = lipgloss.Color("#64748B")
	ColorBorder    = lipgloss.Color("#1E3A5F")
	ColorAccent    = lipgloss.Color("#A78BFA")
)

var (
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F8FAFC")).
			Background(ColorBorder).
			Padding(0, 2)

	MutedValue = lipgloss.NewStyle().Foreground(ColorMuted)

	// activity feed
	FeedConfirmed = lipgloss.NewStyle().Foreground(ColorSecondary)
	FeedFailed    = lipgloss.NewStyle().Foreground(ColorDanger)
	FeedBundle    = lipgloss.NewStyle().Foreground(ColorAccent)

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Padding(0, 1)
)

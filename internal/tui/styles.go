package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorWhite = lipgloss.Color("#FFFFFF")
	ColorGray  = lipgloss.Color("#888888")
	ColorDim   = lipgloss.Color("#555555")
	ColorBlue  = lipgloss.Color("#4A9EFF")
	ColorGreen = lipgloss.Color("#44CC66")
	ColorAmber = lipgloss.Color("#FFAA00")
	ColorRed   = lipgloss.Color("#FF6666")
	ColorNavy  = lipgloss.Color("#1B2B4B")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	statusStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	loadingStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Italic(true)

	refreshStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Background(ColorBlue).
			Padding(0, 1)

	refreshBusyStyle = lipgloss.NewStyle().
				Foreground(ColorWhite).
				Background(ColorDim).
				Padding(0, 1)

	cooldownStyle = lipgloss.NewStyle().
			Foreground(ColorNavy).
			Background(ColorAmber).
			Padding(0, 1)

	sectionTitleStyle = lipgloss.NewStyle().
				Foreground(ColorBlue).
				Bold(true)

	roomStyle = lipgloss.NewStyle().
			Foreground(ColorWhite)

	untilStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	errorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(ColorBlue)

	barStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Background(ColorGreen)
)

package tui

import "github.com/charmbracelet/lipgloss"

// Palette: teal accents on a neutral slate, amber for attention.
var (
	colorAccent  = lipgloss.Color("#0EA5E9") // Sky
	colorAccent2 = lipgloss.Color("#14B8A6") // Teal
	colorOK      = lipgloss.Color("#22C55E") // Green
	colorFail    = lipgloss.Color("#F43F5E") // Rose
	colorWarn    = lipgloss.Color("#F59E0B") // Amber
	colorMuted   = lipgloss.Color("#64748B") // Slate 500
	colorText    = lipgloss.Color("#F8FAFC") // Slate 50
	colorTextDim = lipgloss.Color("#94A3B8") // Slate 400
	colorBorder  = lipgloss.Color("#334155") // Slate 700

	// colorSecondary tints the spinner
	colorSecondary = colorAccent2

	// progress bar gradient ends
	gradientFrom = "#0EA5E9"
	gradientTo   = "#22C55E"
)

func boxStyle(border lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border)
}

func boldFg(c lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c).Bold(true)
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorText).
			Background(colorAccent).
			Padding(0, 2).
			MarginBottom(1)

	sectionHeaderStyle = boldFg(colorAccent2).MarginTop(1)

	statsBoxStyle = boxStyle(colorBorder).Padding(1, 2).MarginTop(1)
	fileBoxStyle  = boxStyle(colorBorder).Padding(0, 2).MarginTop(1)
	logBoxStyle   = boxStyle(colorBorder).Padding(0, 1).MarginTop(1)
	errBoxStyle   = boxStyle(colorFail).Padding(0, 2).Foreground(colorFail)

	statLabelStyle = lipgloss.NewStyle().Foreground(colorMuted).Width(10)
	statValueStyle = lipgloss.NewStyle().Foreground(colorText).Bold(true)
	statUnitStyle  = lipgloss.NewStyle().Foreground(colorTextDim)

	fileLabelStyle = lipgloss.NewStyle().Foreground(colorMuted).Width(8)
	filePathStyle  = lipgloss.NewStyle().Foreground(colorTextDim)

	formLabelStyle      = lipgloss.NewStyle().Foreground(colorMuted).Width(8)
	formFocusLabelStyle = boldFg(colorAccent).Width(8)
	formHintStyle       = lipgloss.NewStyle().Foreground(colorTextDim).Italic(true)

	successStyle = boldFg(colorOK)
	errorStyle   = boldFg(colorFail)
	warningStyle = boldFg(colorWarn)

	helpStyle = lipgloss.NewStyle().Foreground(colorMuted).MarginTop(1)

	// percentage colour follows progress
	percentLowStyle  = boldFg(colorWarn)
	percentMidStyle  = boldFg(colorAccent)
	percentHighStyle = boldFg(colorOK)
)

package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/zarsko3/Petg-sub003/internal/proximity"
)

// Matrix color palette
var (
	ColorMatrixGreen  = lipgloss.Color("#00FF41")
	ColorGreen        = lipgloss.Color("#00CC33")
	ColorMidGreen     = lipgloss.Color("#008F11")
	ColorDimGreen     = lipgloss.Color("#004A0A")
	ColorBorderBright = lipgloss.Color("#00FF41")
	ColorBorderNorm   = lipgloss.Color("#00AA22")
	ColorError        = lipgloss.Color("#FF3300")
	ColorWarning      = lipgloss.Color("#FFAA00")
	ColorPending      = lipgloss.Color("#FFE066")
	ColorCooldown     = lipgloss.Color("#33AAFF")
)

// Pre-built styles
var (
	StyleMenuBar = lipgloss.NewStyle().
			Background(lipgloss.Color("#002200")).
			Foreground(ColorMatrixGreen).
			Bold(true).
			Padding(0, 1)

	StyleMenuKey = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true)

	StyleMenuLabel = lipgloss.NewStyle().
			Foreground(ColorGreen)

	StyleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("#002200")).
			Foreground(ColorGreen).
			Padding(0, 1)

	StyleStatusScanning = lipgloss.NewStyle().
				Foreground(ColorMatrixGreen).
				Bold(true)

	StyleStatusPaused = lipgloss.NewStyle().
				Foreground(ColorWarning).
				Bold(true)

	StyleStatusAlert = lipgloss.NewStyle().
				Foreground(ColorError).
				Bold(true).
				Blink(true)

	StylePanelBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBorderNorm)

	StylePanelActive = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBorderBright)

	StylePanelTitle = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true).
			Padding(0, 1)

	StyleBeaconName = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true)

	StyleBeaconMAC = lipgloss.NewStyle().
			Foreground(ColorMidGreen)

	StyleBeaconValue = lipgloss.NewStyle().
				Foreground(ColorGreen)

	StyleSeparator = lipgloss.NewStyle().
			Foreground(ColorMidGreen)

	StyleHelp = lipgloss.NewStyle().
			Foreground(ColorDimGreen)

	StyleLabel = lipgloss.NewStyle().
			Foreground(ColorMidGreen)

	StyleValue = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true)

	// black text on bright green
	StyleCursorRow = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(ColorMatrixGreen).
			Bold(true)

	StyleStale = lipgloss.NewStyle().
			Foreground(ColorDimGreen)
)

// stateStyle colors a proximity state.
func stateStyle(s proximity.State) lipgloss.Style {
	switch s {
	case proximity.Pending:
		return lipgloss.NewStyle().Foreground(ColorPending).Bold(true)
	case proximity.InAlert:
		return lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	case proximity.Cooldown:
		return lipgloss.NewStyle().Foreground(ColorCooldown)
	default:
		return lipgloss.NewStyle().Foreground(ColorMidGreen)
	}
}

// confidenceColor maps a confidence score to a color.
func confidenceColor(c float64) lipgloss.Color {
	switch {
	case c >= 0.8:
		return ColorMatrixGreen
	case c >= 0.6:
		return ColorGreen
	case c >= 0.3:
		return ColorWarning
	default:
		return ColorError
	}
}

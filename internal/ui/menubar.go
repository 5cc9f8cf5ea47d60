package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zarsko3/Petg-sub003/internal/config"
)

// RenderMenuBar renders the top menu bar.
func RenderMenuBar(width int, deviceID, source string, scanning bool) string {
	title := fmt.Sprintf(" %s v%s ", config.AppName, config.AppVersion)

	keys := []struct{ key, label string }{
		{"S", "can"},
		{"P", "ause"},
		{"T", "est"},
		{"X", " stop"},
		{"Q", "uit"},
	}

	var menu strings.Builder
	for _, k := range keys {
		menu.WriteString("  " + StyleMenuKey.Render("["+k.key+"]") + StyleMenuLabel.Render(k.label))
	}

	status := StyleStatusPaused.Render("PAUSED")
	if scanning {
		status = StyleStatusScanning.Render("SCANNING")
	}

	info := StyleMenuLabel.Render(fmt.Sprintf("%s  %s", deviceID, source))

	left := StyleMenuKey.Render(title) + menu.String()
	right := status + "  " + info + " "

	gap := max(width-2-lipgloss.Width(left)-lipgloss.Width(right), 0)
	return StyleMenuBar.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

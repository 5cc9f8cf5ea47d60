package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zarsko3/Petg-sub003/internal/collar"
)

// RenderStatusBar renders the bottom status bar: scan state, active alert
// and the location summary.
func RenderStatusBar(width int, scanning bool, snap collar.Snapshot) string {
	status := StyleStatusPaused.Render("[PAUSED]")
	if scanning {
		status = StyleStatusScanning.Render("[SCANNING]")
	}

	alertInfo := " no alert"
	switch a := snap.Alert; {
	case !a.Configured:
		alertInfo = " alert hw: none"
	case a.Active:
		owner := a.BeaconID
		if owner == "" {
			owner = string(a.Reason)
		}
		alertInfo = StyleStatusAlert.Render(fmt.Sprintf(" ALERT %s %s %dms", owner, a.Mode, a.RemainingMs))
	}

	info := fmt.Sprintf("  Beacons: %d  Alerts: %d  Dropped: %d  %s",
		snap.Stats.Tracked, snap.Stats.AlertsFired, snap.Stats.Dropped, snap.Summary)

	content := status + alertInfo + StyleStatusBar.Render(info)
	gap := max(width-2-lipgloss.Width(content), 0)
	return StyleStatusBar.Width(width).Render(content + strings.Repeat(" ", gap))
}

package ui

import (
	"fmt"
	"strings"

	"github.com/zarsko3/Petg-sub003/internal/proximity"
)

// RenderProximityPanel lists every configured beacon rule with its state.
func RenderProximityPanel(views []proximity.View, width, height int) string {
	innerW := max(width-4, 20)

	lines := []string{
		StylePanelTitle.Render(fmt.Sprintf("PROXIMITY [%d]", len(views))),
		StyleSeparator.Render(strings.Repeat("-", innerW)),
	}
	if len(views) == 0 {
		lines = append(lines, "", StyleHelp.Render(" No beacon rules configured"))
	}
	for _, v := range views {
		lines = append(lines, renderProximityRow(v, innerW)...)
	}

	content := strings.Join(lines, "\n")
	rendered := StylePanelBorder.Width(width - 2).Height(max(height-2, 1)).Render(content)
	return fitHeight(rendered, height)
}

func renderProximityRow(v proximity.View, maxW int) []string {
	label := v.Name
	if label == "" {
		label = v.BeaconID
	}
	if len(label) > maxW-16 && maxW > 20 {
		label = label[:maxW-16]
	}

	state := stateStyle(v.State).Render(fmt.Sprintf("%-12s", v.State.String()))
	head := "  " + state + " " + StyleBeaconName.Render(label)

	last := "never"
	if v.SinceLastAlertMs >= 0 {
		last = fmt.Sprintf("%.1fs ago", float64(v.SinceLastAlertMs)/1000)
	}
	detail := fmt.Sprintf("    trigger %.0fcm  %s x%d  last %s", v.TriggerDistanceCm, v.AlertMode, v.Intensity, last)
	if v.CooldownLeftMs > 0 {
		detail += fmt.Sprintf("  cool %.1fs", float64(v.CooldownLeftMs)/1000)
	}
	counts := fmt.Sprintf("    fired %d  suppressed %d  refused %d", v.Fired, v.Suppressed, v.Refused)

	return []string{
		head,
		StyleLabel.Render(truncRaw(detail, maxW)),
		StyleHelp.Render(truncRaw(counts, maxW)),
	}
}

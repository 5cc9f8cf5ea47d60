package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/zarsko3/Petg-sub003/internal/beacon"
	"github.com/zarsko3/Petg-sub003/internal/proximity"
)

// RenderDetailPanel renders the selected beacon in place of the proximity
// panel. rule is nil when the beacon has no proximity config.
func RenderDetailPanel(b beacon.RecordView, rule *proximity.View, width, height int) string {
	innerW := max(width-4, 20)

	title := StylePanelTitle.Render("BEACON DETAIL")
	escHint := StyleHelp.Render("[ESC]")
	titleLine := title + strings.Repeat(" ", max(0, innerW-lipgloss.Width(title)-lipgloss.Width(escHint))) + escHint

	lines := []string{titleLine, StyleSeparator.Render(strings.Repeat("-", innerW)), ""}

	zone := b.Zone
	if zone == "" {
		zone = "-"
	}
	function := b.Function
	if function == "" {
		function = "-"
	}
	fields := []struct{ label, value string }{
		{"Name", b.Name},
		{"Address", b.Address},
		{"Location", fmt.Sprintf("%s / %s (#%s)", b.Location, zone, b.NameInfo.ID)},
		{"Function", fmt.Sprintf("%s  priority %d", function, b.Priority)},
		{"RSSI", fmt.Sprintf("%.1f dBm", b.FilteredRSSI)},
		{"Distance", fmt.Sprintf("%.1f cm", b.DistanceCm)},
		{"Confidence", fmt.Sprintf("%.0f%%", b.Confidence*100)},
		{"Samples", fmt.Sprintf("%d total, stable=%t", b.TotalObservations, b.Stable)},
		{"Last", formatAge(b.Age)},
	}
	for _, f := range fields {
		lines = append(lines, StyleLabel.Render(fmt.Sprintf("  %-11s", f.label))+StyleValue.Render(f.value))
	}
	lines = append(lines, "")

	barWidth := max(innerW-22, 10)
	lines = append(lines, StyleLabel.Render("  Signal ")+renderSignalBar(b.FilteredRSSI, b.Confidence, barWidth)+
		StyleValue.Render(fmt.Sprintf(" %.0fdBm", b.FilteredRSSI)))
	lines = append(lines, "")

	if len(b.Samples) > 0 {
		lines = append(lines, StyleLabel.Render("  RSSI window:"))
		spark := renderSparkline(b.Samples, max(innerW-4, 10))
		lines = append(lines, "  "+lipgloss.NewStyle().Foreground(ColorGreen).Render(spark))
		lines = append(lines, "")
	}

	if rule != nil {
		lines = append(lines, StyleLabel.Render("  Rule"))
		lines = append(lines, renderProximityRow(*rule, innerW)...)
	} else {
		lines = append(lines, StyleHelp.Render("  No proximity rule for this beacon"))
	}

	for len(lines) < height-2 {
		lines = append(lines, "")
	}

	rendered := StylePanelActive.Width(width - 2).Height(max(height-2, 1)).Render(strings.Join(lines, "\n"))
	return fitHeight(rendered, height)
}

func renderSignalBar(rssi, confidence float64, width int) string {
	// Map RSSI -100..-30 to 0..width filled bars
	ratio := math.Min(math.Max((rssi+100.0)/70.0, 0), 1)
	filled := int(math.Round(ratio * float64(width)))

	filledPart := lipgloss.NewStyle().Foreground(confidenceColor(confidence)).Render(strings.Repeat("|", filled))
	emptyPart := lipgloss.NewStyle().Foreground(ColorDimGreen).Render(strings.Repeat("-", width-filled))
	return StyleHelp.Render("[") + filledPart + emptyPart + StyleHelp.Render("]")
}

func renderSparkline(values []float64, width int) string {
	if len(values) == 0 {
		return ""
	}

	chars := []byte{'_', '.', '-', '~', '^'}

	minV, maxV := values[0], values[0]
	for _, v := range values {
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	rng := math.Max(maxV-minV, 1)

	start := max(len(values)-width, 0)

	var sb strings.Builder
	for _, v := range values[start:] {
		idx := int((v - minV) / rng * float64(len(chars)-1))
		idx = min(max(idx, 0), len(chars)-1)
		sb.WriteByte(chars[idx])
	}
	return sb.String()
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Second:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	default:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	}
}

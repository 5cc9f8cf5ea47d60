package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zarsko3/Petg-sub003/internal/beacon"
)

const linesPerBeacon = 4 // 3 content + 1 blank

// RenderBeaconList renders the scrollable beacon list. The title stays
// fixed at the top; only the entries scroll so the cursor stays visible.
func RenderBeaconList(beacons []beacon.RecordView, width, height, cursor int) string {
	innerW := max(width-4, 10)

	title := StylePanelTitle.Render(fmt.Sprintf("BEACONS [%d]", len(beacons)))
	separator := StyleSeparator.Render(strings.Repeat("-", innerW))
	header := []string{title, separator}

	innerH := max(height-2, len(header)+1)
	space := innerH - len(header)

	var lines []string
	if len(beacons) == 0 {
		lines = append(lines, "", StyleHelp.Render(" No PetZone beacons..."), StyleHelp.Render(" Waiting for scan"))
	} else {
		maxVisible := max(space/linesPerBeacon, 1)
		viewStart := 0
		if cursor >= maxVisible {
			viewStart = cursor - maxVisible + 1
		}
		for i := viewStart; i < len(beacons) && len(lines) < space; i++ {
			lines = append(lines, renderBeaconEntry(beacons[i], innerW, i == cursor)...)
		}
	}

	if len(lines) > space {
		lines = lines[:space]
	}
	for len(lines) < space {
		lines = append(lines, "")
	}

	content := strings.Join(append(header, lines...), "\n")
	rendered := StylePanelBorder.Width(width - 2).Height(innerH).Render(content)
	return fitHeight(rendered, height)
}

func renderBeaconEntry(b beacon.RecordView, maxW int, isCursor bool) []string {
	name := b.Name
	if nameMax := max(maxW-10, 4); len(name) > nameMax {
		name = name[:nameMax]
	}
	marker := "  "
	if isCursor {
		marker = ">>"
	}
	stable := "~"
	if b.Stable {
		stable = "="
	}

	raw1 := fmt.Sprintf("%s %s %s", marker, stable, name)
	raw2 := fmt.Sprintf("     %s  %s", b.Address, formatAge(b.Age))
	raw3 := fmt.Sprintf("     %.0fdBm  %.1fcm  %.0f%%", b.FilteredRSSI, b.DistanceCm, b.Confidence*100)

	if isCursor {
		return []string{
			StyleCursorRow.Render(truncRaw(raw1, maxW)),
			StyleCursorRow.Render(truncRaw(raw2, maxW)),
			StyleCursorRow.Render(truncRaw(raw3, maxW)),
			"",
		}
	}
	if !b.Active {
		return []string{
			StyleStale.Render(truncRaw(raw1, maxW)),
			StyleStale.Render(truncRaw(raw2, maxW)),
			StyleStale.Render(truncRaw(raw3, maxW)),
			"",
		}
	}

	conf := lipgloss.NewStyle().Foreground(confidenceColor(b.Confidence))
	line1 := fmt.Sprintf("   %s %s", StyleBeaconValue.Render(stable), StyleBeaconName.Render(name))
	line2 := "     " + StyleBeaconMAC.Render(b.Address) + "  " + StyleHelp.Render(formatAge(b.Age))
	line3 := "     " + StyleBeaconValue.Render(fmt.Sprintf("%.0fdBm  %.1fcm", b.FilteredRSSI, b.DistanceCm)) +
		"  " + conf.Render(fmt.Sprintf("%.0f%%", b.Confidence*100))
	return []string{line1, line2, line3, ""}
}

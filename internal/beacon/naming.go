package beacon

import "strings"

// NameInfo is the structure encoded in a beacon's advertised name:
// <prefix>-<Location>[-<Zone>]-<ID>, e.g. "PetZone-Home-Living-01".
type NameInfo struct {
	Location string `json:"location"`
	Zone     string `json:"zone,omitempty"`
	ID       string `json:"id"`
	Function string `json:"function,omitempty"`
	Priority int    `json:"priority"`
}

const (
	unknownLocation = "Unknown"
	defaultID       = "00"
)

// ParseName splits an advertised name. Names without the "<prefix>-" form
// fall back to location "Unknown" and ID "00".
func ParseName(prefix, name string) NameInfo {
	info := NameInfo{Location: unknownLocation, ID: defaultID}

	rest, ok := strings.CutPrefix(name, prefix+"-")
	if ok && rest != "" {
		parts := strings.Split(rest, "-")
		switch {
		case len(parts) == 1:
			info.Location = parts[0]
		case len(parts) == 2:
			info.Location = parts[0]
			info.ID = parts[1]
		default:
			info.Location = parts[0]
			info.Zone = strings.Join(parts[1:len(parts)-1], "-")
			info.ID = parts[len(parts)-1]
		}
		if info.Location == "" {
			info.Location = unknownLocation
		}
		if info.ID == "" {
			info.ID = defaultID
		}
	}

	switch info.Location {
	case "Safe", "Alert", "Track", "Feed":
		info.Function = info.Location
	}
	info.Priority = priorityOf(info)
	return info
}

// priorityOf ranks beacons, 1 being the most important.
func priorityOf(info NameInfo) int {
	switch {
	case info.Function == "Safe":
		return 1
	case info.Function == "Alert":
		return 2
	case info.Location == "Home":
		return 3
	case info.Location == "Garden":
		return 4
	default:
		return 5
	}
}

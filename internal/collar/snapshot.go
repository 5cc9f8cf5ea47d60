package collar

import (
	"time"

	"github.com/zarsko3/Petg-sub003/internal/alert"
	"github.com/zarsko3/Petg-sub003/internal/beacon"
	"github.com/zarsko3/Petg-sub003/internal/proximity"
)

// Stats aggregates pipeline counters.
type Stats struct {
	beacon.Stats
	AlertsFired      uint64 `json:"alertsFired"`
	AlertsSuppressed uint64 `json:"alertsSuppressed"`
	AlertsRefused    uint64 `json:"alertsRefused"`
}

// Snapshot is the serialisable state of the collar.
type Snapshot struct {
	DeviceID  string              `json:"deviceId"`
	Timestamp time.Time           `json:"timestamp"`
	Beacons   []beacon.RecordView `json:"beacons"`
	Proximity []proximity.View    `json:"proximity"`
	Alert     alert.Status        `json:"alert"`
	Locations []beacon.Location   `json:"locations"`
	Summary   string              `json:"summary"`
	Stats     Stats               `json:"stats"`
}

// Snapshot copies the current state at time now.
func (c *Collar) Snapshot(now time.Time) Snapshot {
	s := Snapshot{
		DeviceID:  c.deviceID,
		Timestamp: now,
		Beacons:   c.reg.Snapshot(now),
		Proximity: make([]proximity.View, 0, len(c.machines)),
		Alert:     c.act.Status(now),
		Locations: c.reg.Locations(),
		Summary:   c.reg.LocationSummary(),
		Stats: Stats{
			Stats:       c.reg.Stats(),
			AlertsFired: c.act.TotalAlerts(),
		},
	}
	for _, id := range c.machineIDs() {
		v := c.machines[id].View(now)
		s.Proximity = append(s.Proximity, v)
		s.Stats.AlertsSuppressed += v.Suppressed
		s.Stats.AlertsRefused += v.Refused
	}
	return s
}

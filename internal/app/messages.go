package app

import (
	"time"

	"github.com/zarsko3/Petg-sub003/internal/telemetry"
)

// TickMsg advances the actuator and refreshes the dashboard.
type TickMsg time.Time

// SweepMsg triggers stale beacon eviction.
type SweepMsg time.Time

// RemoteConfigMsg carries a config change received over MQTT.
type RemoteConfigMsg telemetry.ConfigPatch

// RemoteCommandMsg carries a command received over MQTT.
type RemoteCommandMsg telemetry.Command

// TelemetryReadyMsg reports the outcome of the broker connection attempt.
type TelemetryReadyMsg struct {
	Client *telemetry.Client
	Err    error
}

// PersistedMsg reports a finished config store write.
type PersistedMsg struct {
	BeaconID string
	Deleted  bool
	Err      error
}

// PublishedMsg reports a failed telemetry publish.
type PublishedMsg struct {
	Topic string
	Err   error
}

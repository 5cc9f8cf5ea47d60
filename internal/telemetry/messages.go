package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zarsko3/Petg-sub003/internal/alert"
	"github.com/zarsko3/Petg-sub003/internal/collar"
	"github.com/zarsko3/Petg-sub003/internal/config"
	"github.com/zarsko3/Petg-sub003/internal/proximity"
)

// ErrBadPayload is wrapped by every decode error.
var ErrBadPayload = errors.New("bad payload")

// Topics holds the per-device topic names.
type Topics struct {
	Status    string
	Telemetry string
	Alert     string
	Config    string
	Command   string
}

// TopicsFor builds the topic set for a device: <prefix>/<device>/<leaf>.
func TopicsFor(prefix, deviceID string) Topics {
	if prefix == "" {
		prefix = config.TopicPrefix
	}
	base := strings.TrimSuffix(prefix, "/") + "/" + deviceID + "/"
	return Topics{
		Status:    base + "status",
		Telemetry: base + "telemetry",
		Alert:     base + "alert",
		Config:    base + "config",
		Command:   base + "command",
	}
}

// ConfigPatch is a remote config change. Nil fields keep the current value.
type ConfigPatch struct {
	BeaconID          string         `json:"beaconId"`
	Delete            bool           `json:"delete,omitempty"`
	Name              *string        `json:"name,omitempty"`
	TriggerDistanceCm *float64       `json:"triggerDistanceCm,omitempty"`
	AlertMode         *alert.Mode    `json:"alertMode,omitempty"`
	Intensity         *int           `json:"intensity,omitempty"`
	AlertDurationMs   *int64         `json:"alertDurationMs,omitempty"`
	Pattern           *alert.Pattern `json:"pattern,omitempty"`
	DelayEnabled      *bool          `json:"delayEnabled,omitempty"`
	ProximityDelayMs  *int64         `json:"proximityDelayMs,omitempty"`
	CooldownMs        *int64         `json:"cooldownMs,omitempty"`
}

// DecodeConfig parses a config topic payload.
func DecodeConfig(data []byte) (ConfigPatch, error) {
	var p ConfigPatch
	if err := json.Unmarshal(data, &p); err != nil {
		return ConfigPatch{}, fmt.Errorf("%w: config: %w", ErrBadPayload, err)
	}
	if strings.TrimSpace(p.BeaconID) == "" {
		return ConfigPatch{}, fmt.Errorf("%w: config: beaconId is required", ErrBadPayload)
	}
	for _, f := range []struct {
		name string
		v    *int64
	}{
		{"alertDurationMs", p.AlertDurationMs},
		{"proximityDelayMs", p.ProximityDelayMs},
		{"cooldownMs", p.CooldownMs},
	} {
		if f.v == nil {
			continue
		}
		if err := checkMs(f.name, *f.v); err != nil {
			return ConfigPatch{}, fmt.Errorf("%w: config: %w", ErrBadPayload, err)
		}
	}
	return p, nil
}

// Apply merges the patch over base and validates the result.
func (p ConfigPatch) Apply(base proximity.Config) (proximity.Config, error) {
	cfg := base
	cfg.BeaconID = p.BeaconID
	if p.Name != nil {
		cfg.Name = *p.Name
	}
	if p.TriggerDistanceCm != nil {
		cfg.TriggerDistanceCm = *p.TriggerDistanceCm
	}
	if p.AlertMode != nil {
		cfg.AlertMode = *p.AlertMode
	}
	if p.Intensity != nil {
		cfg.Intensity = *p.Intensity
	}
	if p.AlertDurationMs != nil {
		cfg.AlertDuration = ms(*p.AlertDurationMs)
	}
	if p.Pattern != nil {
		cfg.Pattern = *p.Pattern
	}
	if p.DelayEnabled != nil {
		cfg.DelayEnabled = *p.DelayEnabled
	}
	if p.ProximityDelayMs != nil {
		cfg.ProximityDelay = ms(*p.ProximityDelayMs)
	}
	if p.CooldownMs != nil {
		cfg.Cooldown = ms(*p.CooldownMs)
	}
	if err := cfg.Validate(); err != nil {
		return proximity.Config{}, err
	}
	return cfg, nil
}

// Action is a remote command verb.
type Action string

const (
	ActionStop Action = "stop"
	ActionTest Action = "test"
)

// Command is a decoded command topic payload.
type Command struct {
	Action    Action
	Mode      alert.Mode
	Intensity int
	Duration  time.Duration
	Force     bool
}

type commandPayload struct {
	Action     string `json:"action"`
	Mode       string `json:"mode"`
	Intensity  int    `json:"intensity"`
	DurationMs int64  `json:"durationMs"`
	Force      bool   `json:"force"`
}

// DecodeCommand parses a command topic payload. A test command without a
// mode drives the buzzer; a missing intensity uses the default.
func DecodeCommand(data []byte) (Command, error) {
	var raw commandPayload
	if err := json.Unmarshal(data, &raw); err != nil {
		return Command{}, fmt.Errorf("%w: command: %w", ErrBadPayload, err)
	}

	cmd := Command{Action: Action(strings.ToLower(strings.TrimSpace(raw.Action))), Force: raw.Force}
	switch cmd.Action {
	case ActionStop:
		return cmd, nil
	case ActionTest:
	default:
		return Command{}, fmt.Errorf("%w: command: unknown action %q", ErrBadPayload, raw.Action)
	}

	cmd.Mode = alert.ModeBuzzer
	if raw.Mode != "" {
		mode, err := alert.ParseMode(raw.Mode)
		if err != nil {
			return Command{}, fmt.Errorf("%w: command: %w", ErrBadPayload, err)
		}
		cmd.Mode = mode
	}
	cmd.Intensity = raw.Intensity
	if cmd.Intensity == 0 {
		cmd.Intensity = config.DefaultIntensity
	}
	if cmd.Intensity < 1 || cmd.Intensity > 5 {
		return Command{}, fmt.Errorf("%w: command: intensity %d outside 1..5", ErrBadPayload, cmd.Intensity)
	}
	if err := checkMs("durationMs", raw.DurationMs); err != nil {
		return Command{}, fmt.Errorf("%w: command: %w", ErrBadPayload, err)
	}
	cmd.Duration = ms(raw.DurationMs)
	return cmd, nil
}

// EventPayload is the JSON published for each collar event.
type EventPayload struct {
	EventID   string          `json:"eventId"`
	DeviceID  string          `json:"deviceId"`
	Kind      string          `json:"kind"`
	At        time.Time       `json:"at"`
	BeaconID  string          `json:"beaconId,omitempty"`
	Reason    alert.Reason    `json:"reason,omitempty"`
	Cause     alert.StopCause `json:"cause,omitempty"`
	Mode      string          `json:"mode,omitempty"`
	Intensity int             `json:"intensity,omitempty"`
}

// NewEventPayload stamps ev with a fresh event id.
func NewEventPayload(deviceID string, ev collar.Event) EventPayload {
	return EventPayload{
		EventID:   uuid.NewString(),
		DeviceID:  deviceID,
		Kind:      string(ev.Kind),
		At:        ev.At,
		BeaconID:  ev.BeaconID,
		Reason:    ev.Reason,
		Cause:     ev.Cause,
		Mode:      ev.Mode,
		Intensity: ev.Intensity,
	}
}

// statusPayload is the retained presence message.
type statusPayload struct {
	DeviceID string `json:"deviceId"`
	State    string `json:"state"`
	Version  string `json:"version,omitempty"`
}

func encodeStatus(deviceID, state string) []byte {
	b, _ := json.Marshal(statusPayload{DeviceID: deviceID, State: state, Version: config.AppVersion})
	return b
}

// maxMs is the largest millisecond count a time.Duration can hold.
const maxMs = math.MaxInt64 / int64(time.Millisecond)

func checkMs(field string, v int64) error {
	if v < 0 || v > maxMs {
		return fmt.Errorf("%s %d outside 0..%d", field, v, maxMs)
	}
	return nil
}

func ms(v int64) time.Duration { return time.Duration(v) * time.Millisecond }

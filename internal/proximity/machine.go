// Package proximity decides, per beacon, when an approach becomes an alert.
package proximity

import (
	"log/slog"
	"time"

	"github.com/zarsko3/Petg-sub003/internal/alert"
	"github.com/zarsko3/Petg-sub003/internal/logger"
)

// State is the proximity state of one beacon.
type State int

const (
	OutOfRange State = iota
	Pending
	InAlert
	Cooldown
)

func (s State) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case InAlert:
		return "IN_ALERT"
	case Cooldown:
		return "COOLDOWN"
	default:
		return "OUT_OF_RANGE"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Runtime is the mutable part of a machine. A zero LastAlert means the
// beacon has never alerted.
type Runtime struct {
	State          State
	ProximityStart time.Time
	LastAlert      time.Time
	AlertActive    bool
}

// Alerter is the actuator as seen by a machine.
type Alerter interface {
	Trigger(now time.Time, cmd alert.Command) bool
	StopFor(beaconID string) bool
}

// Counters tallies machine decisions.
type Counters struct {
	Fired      uint64 `json:"fired"`
	Suppressed uint64 `json:"suppressed"` // blocked by cooldown
	Refused    uint64 `json:"refused"`    // actuator declined
}

// Machine is the state machine for one beacon. Not safe for concurrent use.
type Machine struct {
	cfg      Config
	rt       Runtime
	log      *slog.Logger
	counters Counters

	inRange    bool
	distanceCm float64
}

// NewMachine creates a machine in OUT_OF_RANGE.
func NewMachine(cfg Config, log *slog.Logger) *Machine {
	return &Machine{
		cfg: cfg,
		log: logger.Component(log, "proximity").With("beacon", cfg.BeaconID),
	}
}

func (m *Machine) Config() Config     { return m.cfg }
func (m *Machine) Runtime() Runtime   { return m.rt }
func (m *Machine) State() State       { return m.rt.State }
func (m *Machine) Counters() Counters { return m.counters }

// SetConfig replaces the rule. State and timers are kept.
func (m *Machine) SetConfig(cfg Config) {
	m.cfg = cfg
}

// Evaluate applies one distance update.
func (m *Machine) Evaluate(now time.Time, distanceCm float64, a Alerter) State {
	m.distanceCm = distanceCm
	m.inRange = distanceCm <= m.cfg.TriggerDistanceCm
	if !m.inRange {
		m.leave(a)
		return m.rt.State
	}

	switch m.rt.State {
	case OutOfRange:
		if m.cfg.delayed() {
			m.transition(Pending)
			m.rt.ProximityStart = now
			return m.rt.State
		}
		m.attempt(now, a)
	case Pending:
		if !m.cfg.delayed() || now.Sub(m.rt.ProximityStart) >= m.cfg.ProximityDelay {
			m.attempt(now, a)
		}
	case Cooldown:
		m.attempt(now, a)
	}
	return m.rt.State
}

// Lost handles a beacon that stopped advertising; it counts as out of range.
func (m *Machine) Lost(a Alerter) State {
	m.inRange = false
	m.leave(a)
	return m.rt.State
}

// AlertFinished is called when the actuator ends this beacon's alert.
func (m *Machine) AlertFinished() {
	m.rt.AlertActive = false
	if m.rt.State == InAlert {
		m.transition(Cooldown)
	}
}

func (m *Machine) leave(a Alerter) {
	if m.rt.State == OutOfRange {
		return
	}
	if m.rt.State == Pending {
		m.log.Debug("approach cancelled before delay elapsed")
	}
	m.transition(OutOfRange)
	m.rt.ProximityStart = time.Time{}
	if m.rt.AlertActive {
		m.rt.AlertActive = false
		a.StopFor(m.cfg.BeaconID)
	}
}

func (m *Machine) attempt(now time.Time, a Alerter) {
	if m.cfg.AlertMode == alert.ModeNone {
		return
	}
	if !m.rt.LastAlert.IsZero() && now.Sub(m.rt.LastAlert) < m.cfg.Cooldown {
		m.counters.Suppressed++
		return
	}

	cmd := alert.Command{
		BeaconID:  m.cfg.BeaconID,
		Mode:      m.cfg.AlertMode,
		Intensity: m.cfg.Intensity,
		Duration:  m.cfg.AlertDuration,
		Pattern:   m.cfg.Pattern,
		Reason:    alert.ReasonProximity,
	}
	if !a.Trigger(now, cmd) {
		m.counters.Refused++
		m.log.Debug("alert refused by actuator")
		return
	}

	m.counters.Fired++
	m.rt.LastAlert = now
	m.rt.AlertActive = true
	m.transition(InAlert)
}

func (m *Machine) transition(to State) {
	if m.rt.State == to {
		return
	}
	m.log.Debug("state change", "from", m.rt.State.String(), "to", to.String(), "distance_cm", m.distanceCm)
	m.rt.State = to
}

// View is a read-only copy of a machine for display and telemetry.
type View struct {
	BeaconID          string  `json:"beaconId"`
	Name              string  `json:"name,omitempty"`
	State             State   `json:"state"`
	InRange           bool    `json:"inRange"`
	TriggerDistanceCm float64 `json:"triggerDistanceCm"`
	AlertMode         string  `json:"alertMode"`
	Intensity         int     `json:"intensity"`
	AlertActive       bool    `json:"alertActive"`
	// SinceLastAlertMs is -1 when the beacon has never alerted.
	SinceLastAlertMs int64 `json:"sinceLastAlertMs"`
	CooldownLeftMs   int64 `json:"cooldownLeftMs"`
	Counters
}

// View copies the machine at time now.
func (m *Machine) View(now time.Time) View {
	v := View{
		BeaconID:          m.cfg.BeaconID,
		Name:              m.cfg.Name,
		State:             m.rt.State,
		InRange:           m.inRange,
		TriggerDistanceCm: m.cfg.TriggerDistanceCm,
		AlertMode:         m.cfg.AlertMode.String(),
		Intensity:         m.cfg.Intensity,
		AlertActive:       m.rt.AlertActive,
		SinceLastAlertMs:  -1,
		Counters:          m.counters,
	}
	if !m.rt.LastAlert.IsZero() {
		since := now.Sub(m.rt.LastAlert)
		v.SinceLastAlertMs = since.Milliseconds()
		v.CooldownLeftMs = max(m.cfg.Cooldown-since, 0).Milliseconds()
	}
	return v
}

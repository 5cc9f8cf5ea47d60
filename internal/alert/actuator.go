// Package alert drives the collar's single buzzer/vibration output.
package alert

import (
	"log/slog"
	"time"

	"github.com/zarsko3/Petg-sub003/internal/config"
	"github.com/zarsko3/Petg-sub003/internal/logger"
)

// Command is a one-shot alert request.
type Command struct {
	BeaconID  string // owner; empty for manual and remote alerts
	Mode      Mode
	Intensity int // 1..5
	Duration  time.Duration
	Pattern   Pattern
	Reason    Reason
}

// Completion is reported when an alert ends.
type Completion struct {
	BeaconID string
	Reason   Reason
	Cause    StopCause
	Started  time.Time
}

// Options configures an Actuator.
type Options struct {
	BuzzerFrequencyHz int
	MinDuty           int
	MaxDuty           int
	PulseOn           time.Duration
	PulseOff          time.Duration
	OnComplete        func(Completion)
	Logger            *slog.Logger
}

// DefaultOptions returns the built-in PWM settings.
func DefaultOptions() Options {
	return Options{
		BuzzerFrequencyHz: config.BuzzerFrequencyHz,
		MinDuty:           config.MinDuty,
		MaxDuty:           config.MaxDuty,
		PulseOn:           config.PulseOn,
		PulseOff:          config.PulseOff,
	}
}

// Status is a read-only view of the actuator.
type Status struct {
	Configured  bool   `json:"configured"`
	Active      bool   `json:"active"`
	BeaconID    string `json:"beaconId,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Pattern     string `json:"pattern,omitempty"`
	Reason      Reason `json:"reason,omitempty"`
	Intensity   int    `json:"intensity,omitempty"`
	Duty        uint8  `json:"duty,omitempty"`
	OutputsOn   bool   `json:"outputsOn"`
	ElapsedMs   int64  `json:"elapsedMs,omitempty"`
	RemainingMs int64  `json:"remainingMs,omitempty"`
	TotalAlerts uint64 `json:"totalAlerts"`
}

// Actuator owns the physical alert output. At most one alert is active at
// a time; a new Trigger replaces the current one. It never sleeps: timing
// advances only through Tick. Not safe for concurrent use.
type Actuator struct {
	drv  Driver
	opts Options
	log  *slog.Logger

	active     bool
	cmd        Command
	duty       uint8
	start      time.Time
	outputsOn  bool
	phaseStart time.Time
	total      uint64
}

// NewActuator creates an actuator. A nil driver means no hardware is
// configured and every Trigger is refused.
func NewActuator(drv Driver, opts Options) *Actuator {
	def := DefaultOptions()
	if opts.BuzzerFrequencyHz <= 0 {
		opts.BuzzerFrequencyHz = def.BuzzerFrequencyHz
	}
	if opts.MaxDuty <= 0 {
		opts.MinDuty, opts.MaxDuty = def.MinDuty, def.MaxDuty
	}
	if opts.PulseOn <= 0 {
		opts.PulseOn = def.PulseOn
	}
	if opts.PulseOff <= 0 {
		opts.PulseOff = def.PulseOff
	}
	return &Actuator{
		drv:  drv,
		opts: opts,
		log:  logger.Component(opts.Logger, "actuator"),
	}
}

// Configured reports whether a hardware driver is attached.
func (a *Actuator) Configured() bool { return a.drv != nil }

// Active reports whether an alert is running.
func (a *Actuator) Active() bool { return a.active }

// Owner returns the beacon owning the active alert.
func (a *Actuator) Owner() (string, bool) {
	return a.cmd.BeaconID, a.active
}

// TotalAlerts returns the number of alerts started.
func (a *Actuator) TotalAlerts() uint64 { return a.total }

// DutyFor maps intensity 1..5 linearly onto [MinDuty, MaxDuty].
func (a *Actuator) DutyFor(intensity int) uint8 {
	intensity = min(max(intensity, 1), 5)
	span := a.opts.MaxDuty - a.opts.MinDuty
	return uint8(a.opts.MinDuty + (intensity-1)*span/4)
}

// Trigger starts cmd. Any active alert is stopped first and its owner is
// notified. It returns false when no hardware is configured, the mode is
// none, or the hardware write failed.
func (a *Actuator) Trigger(now time.Time, cmd Command) bool {
	if a.drv == nil {
		a.log.Debug("alert refused: no hardware", "beacon", cmd.BeaconID)
		return false
	}
	if cmd.Mode == ModeNone {
		return false
	}
	if cmd.Duration <= 0 {
		cmd.Duration = config.DefaultAlertDuration
	}

	if a.active {
		a.log.Info("alert preempted", "beacon", a.cmd.BeaconID, "by", cmd.BeaconID)
		a.outputsOff()
		a.finish(CausePreempted)
	}

	a.cmd = cmd
	a.duty = a.DutyFor(cmd.Intensity)
	if err := a.drive(); err != nil {
		a.log.Warn("alert hardware write failed", "beacon", cmd.BeaconID, "error", err)
		a.outputsOff()
		a.cmd = Command{}
		return false
	}

	a.active = true
	a.start = now
	a.phaseStart = now
	a.total++
	a.log.Info("alert started",
		"beacon", cmd.BeaconID,
		"mode", cmd.Mode.String(),
		"pattern", cmd.Pattern.String(),
		"intensity", cmd.Intensity,
		"duty", a.duty,
		"duration", cmd.Duration,
		"reason", string(cmd.Reason),
	)
	return true
}

// StopAlert turns the outputs off. With nothing active it is a no-op
// returning false unless force is set, in which case the outputs are
// written off regardless and it returns true.
func (a *Actuator) StopAlert(force bool) bool {
	if !a.active && !force {
		return false
	}
	a.outputsOff()
	if a.active {
		a.finish(CauseManual)
	}
	return true
}

// StopFor stops the active alert only if beaconID owns it.
func (a *Actuator) StopFor(beaconID string) bool {
	if !a.active || a.cmd.BeaconID != beaconID {
		return false
	}
	a.outputsOff()
	a.finish(CauseOwnerLeft)
	return true
}

// Tick ends the alert once its duration has elapsed and otherwise advances
// the output pattern. It reports whether an alert completed.
func (a *Actuator) Tick(now time.Time) bool {
	if !a.active {
		return false
	}
	if now.Sub(a.start) >= a.cmd.Duration {
		a.outputsOff()
		a.finish(CauseExpired)
		return true
	}

	on, off := a.periods()
	if on == 0 {
		return false
	}
	elapsed := now.Sub(a.phaseStart)
	switch {
	case a.outputsOn && elapsed >= on:
		a.outputsOff()
		a.phaseStart = now
	case !a.outputsOn && elapsed >= off:
		if err := a.drive(); err != nil {
			a.log.Warn("alert hardware write failed", "error", err)
		}
		a.phaseStart = now
	}
	return false
}

// Status reports the current alert.
func (a *Actuator) Status(now time.Time) Status {
	s := Status{
		Configured:  a.Configured(),
		Active:      a.active,
		OutputsOn:   a.outputsOn,
		TotalAlerts: a.total,
	}
	if !a.active {
		return s
	}
	elapsed := now.Sub(a.start)
	s.BeaconID = a.cmd.BeaconID
	s.Mode = a.cmd.Mode.String()
	s.Pattern = a.cmd.Pattern.String()
	s.Reason = a.cmd.Reason
	s.Intensity = a.cmd.Intensity
	s.Duty = a.duty
	s.ElapsedMs = elapsed.Milliseconds()
	s.RemainingMs = max(a.cmd.Duration-elapsed, 0).Milliseconds()
	return s
}

func (a *Actuator) periods() (on, off time.Duration) {
	switch a.cmd.Pattern {
	case PatternPulse:
		return a.opts.PulseOn, a.opts.PulseOff
	case PatternRapid:
		return a.opts.PulseOn / 2, a.opts.PulseOff / 2
	default:
		return 0, 0
	}
}

func (a *Actuator) drive() error {
	if a.cmd.Mode.buzzer() {
		if err := a.drv.SetBuzzer(a.duty, a.opts.BuzzerFrequencyHz); err != nil {
			return err
		}
	}
	if a.cmd.Mode.vibration() {
		if err := a.drv.SetVibration(a.duty); err != nil {
			return err
		}
	}
	a.outputsOn = true
	return nil
}

func (a *Actuator) outputsOff() {
	a.outputsOn = false
	if a.drv == nil {
		return
	}
	if err := a.drv.SetBuzzer(0, a.opts.BuzzerFrequencyHz); err != nil {
		a.log.Warn("buzzer off failed", "error", err)
	}
	if err := a.drv.SetVibration(0); err != nil {
		a.log.Warn("vibration off failed", "error", err)
	}
}

func (a *Actuator) finish(cause StopCause) {
	done := Completion{
		BeaconID: a.cmd.BeaconID,
		Reason:   a.cmd.Reason,
		Cause:    cause,
		Started:  a.start,
	}
	a.active = false
	a.cmd = Command{}
	a.duty = 0
	a.log.Info("alert stopped", "beacon", done.BeaconID, "cause", string(cause))
	if a.opts.OnComplete != nil {
		a.opts.OnComplete(done)
	}
}

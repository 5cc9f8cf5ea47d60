// Package collar wires the beacon registry, the per-beacon proximity
// machines and the alert actuator into one pipeline.
package collar

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/zarsko3/Petg-sub003/internal/alert"
	"github.com/zarsko3/Petg-sub003/internal/beacon"
	"github.com/zarsko3/Petg-sub003/internal/config"
	"github.com/zarsko3/Petg-sub003/internal/logger"
	"github.com/zarsko3/Petg-sub003/internal/proximity"
)

// EventKind names a pipeline event.
type EventKind string

const (
	EventAlertStarted   EventKind = "alert_started"
	EventAlertCompleted EventKind = "alert_completed"
	EventBeaconLost     EventKind = "beacon_lost"
)

// Event is emitted to the OnEvent hook.
type Event struct {
	Kind      EventKind
	At        time.Time
	BeaconID  string
	Reason    alert.Reason
	Cause     alert.StopCause
	Mode      string
	Intensity int
}

// Options configures a Collar.
type Options struct {
	DeviceID     string
	Registry     beacon.Options
	Alert        alert.Options // OnComplete is owned by the collar
	Driver       alert.Driver  // nil: no alert hardware
	StaleTimeout time.Duration
	Logger       *slog.Logger
	OnEvent      func(Event)
}

// Collar is the observation to alert pipeline. Every method must be called
// from the single goroutine that owns it.
type Collar struct {
	deviceID     string
	reg          *beacon.Registry
	act          *alert.Actuator
	machines     map[string]*proximity.Machine
	staleTimeout time.Duration
	log          *slog.Logger
	baseLog      *slog.Logger
	onEvent      func(Event)
	now          time.Time // time of the call in progress
	startedSeen  uint64
}

// New creates a collar with no beacon configs.
func New(opts Options) *Collar {
	if opts.StaleTimeout <= 0 {
		opts.StaleTimeout = config.StaleTimeout
	}
	if opts.DeviceID == "" {
		opts.DeviceID = config.DeviceID
	}
	if opts.Registry.Logger == nil {
		opts.Registry.Logger = opts.Logger
	}
	if opts.Alert.Logger == nil {
		opts.Alert.Logger = opts.Logger
	}

	c := &Collar{
		deviceID:     opts.DeviceID,
		reg:          beacon.NewRegistry(opts.Registry),
		machines:     make(map[string]*proximity.Machine),
		staleTimeout: opts.StaleTimeout,
		log:          logger.Component(opts.Logger, "collar"),
		baseLog:      opts.Logger,
		onEvent:      opts.OnEvent,
	}
	opts.Alert.OnComplete = c.alertCompleted
	c.act = alert.NewActuator(opts.Driver, opts.Alert)
	return c
}

// DeviceID returns the collar identifier.
func (c *Collar) DeviceID() string { return c.deviceID }

// Observe folds one advertisement into the registry and evaluates the
// beacon's proximity rule. It reports whether the registry accepted it.
func (c *Collar) Observe(obs beacon.Observation) bool {
	rec, ok := c.reg.Ingest(obs)
	if !ok {
		return false
	}
	if m, found := c.machines[rec.Address]; found {
		c.now = obs.Timestamp
		m.Evaluate(obs.Timestamp, rec.DistanceCm, c.act)
		c.emitStarted()
	}
	return true
}

// Tick advances the actuator. Call it on every scheduler pass.
func (c *Collar) Tick(now time.Time) {
	c.now = now
	c.act.Tick(now)
}

// Sweep evicts stale beacons and treats each evicted configured beacon as
// having left range. It returns the evicted addresses.
func (c *Collar) Sweep(now time.Time) []string {
	c.now = now
	evicted := c.reg.EvictStale(now, c.staleTimeout)
	for _, addr := range evicted {
		if m, ok := c.machines[addr]; ok {
			m.Lost(c.act)
		}
		c.emit(Event{Kind: EventBeaconLost, At: now, BeaconID: addr})
	}
	return evicted
}

// UpsertConfig adds or replaces a beacon's proximity rule. An existing
// machine keeps its state and timers.
func (c *Collar) UpsertConfig(cfg proximity.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("upsert config: %w", err)
	}
	if m, ok := c.machines[cfg.BeaconID]; ok {
		m.SetConfig(cfg)
		c.log.Info("beacon config updated", "beacon", cfg.BeaconID)
		return nil
	}
	c.machines[cfg.BeaconID] = proximity.NewMachine(cfg, c.baseLog)
	c.log.Info("beacon config added", "beacon", cfg.BeaconID, "trigger_cm", cfg.TriggerDistanceCm, "mode", cfg.AlertMode.String())
	return nil
}

// RemoveConfig drops a beacon's rule, stopping its alert if active.
func (c *Collar) RemoveConfig(beaconID string) bool {
	if _, ok := c.machines[beaconID]; !ok {
		return false
	}
	c.act.StopFor(beaconID)
	delete(c.machines, beaconID)
	c.log.Info("beacon config removed", "beacon", beaconID)
	return true
}

// Config returns the rule for a beacon.
func (c *Collar) Config(beaconID string) (proximity.Config, bool) {
	m, ok := c.machines[beaconID]
	if !ok {
		return proximity.Config{}, false
	}
	return m.Config(), true
}

// Configs returns every rule ordered by beacon id.
func (c *Collar) Configs() []proximity.Config {
	out := make([]proximity.Config, 0, len(c.machines))
	for _, id := range c.machineIDs() {
		out = append(out, c.machines[id].Config())
	}
	return out
}

// StopAlert stops the active alert. See alert.Actuator.StopAlert.
func (c *Collar) StopAlert(force bool) bool {
	return c.act.StopAlert(force)
}

// TestAlert starts an alert not owned by any beacon.
func (c *Collar) TestAlert(now time.Time, reason alert.Reason, mode alert.Mode, intensity int, duration time.Duration) bool {
	if reason == "" {
		reason = alert.ReasonManual
	}
	c.now = now
	ok := c.act.Trigger(now, alert.Command{
		Mode:      mode,
		Intensity: intensity,
		Duration:  duration,
		Reason:    reason,
	})
	c.emitStarted()
	return ok
}

// AlertConfigured reports whether alert hardware is attached.
func (c *Collar) AlertConfigured() bool { return c.act.Configured() }

func (c *Collar) alertCompleted(done alert.Completion) {
	if m, ok := c.machines[done.BeaconID]; ok && done.BeaconID != "" {
		m.AlertFinished()
	}
	c.emit(Event{
		Kind:     EventAlertCompleted,
		At:       c.now,
		BeaconID: done.BeaconID,
		Reason:   done.Reason,
		Cause:    done.Cause,
	})
}

func (c *Collar) emitStarted() {
	total := c.act.TotalAlerts()
	if total == c.startedSeen {
		return
	}
	c.startedSeen = total
	st := c.act.Status(c.now)
	c.emit(Event{
		Kind:      EventAlertStarted,
		At:        c.now,
		BeaconID:  st.BeaconID,
		Reason:    st.Reason,
		Mode:      st.Mode,
		Intensity: st.Intensity,
	})
}

func (c *Collar) emit(ev Event) {
	if c.onEvent != nil {
		c.onEvent(ev)
	}
}

func (c *Collar) machineIDs() []string {
	ids := make([]string, 0, len(c.machines))
	for id := range c.machines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

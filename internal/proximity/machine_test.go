package proximity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zarsko3/Petg-sub003/internal/alert"
)

var t0 = time.Unix(1_700_000_000, 0)

type fakeAlerter struct {
	refuse   bool
	triggers []alert.Command
	stops    []string
}

func (f *fakeAlerter) Trigger(_ time.Time, cmd alert.Command) bool {
	if f.refuse {
		return false
	}
	f.triggers = append(f.triggers, cmd)
	return true
}

func (f *fakeAlerter) StopFor(id string) bool {
	f.stops = append(f.stops, id)
	return true
}

func testConfig() Config {
	cfg := DefaultConfig("AA:BB")
	cfg.TriggerDistanceCm = 5
	cfg.Cooldown = 3 * time.Second
	return cfg
}

// runApproach feeds one distance per second through a machine wired to a
// real actuator, ticking the actuator before every evaluation.
func runApproach(t *testing.T, cfg Config, distances []float64) int {
	t.Helper()
	m := NewMachine(cfg, nil)
	act := alert.NewActuator(&alert.MemoryDriver{}, alert.Options{
		OnComplete: func(c alert.Completion) {
			if c.BeaconID == cfg.BeaconID {
				m.AlertFinished()
			}
		},
	})
	for i, d := range distances {
		now := t0.Add(time.Duration(i) * time.Second)
		act.Tick(now)
		m.Evaluate(now, d, act)
	}
	return int(act.TotalAlerts())
}

func TestSingleAlertPerApproach(t *testing.T) {
	samples := []float64{20, 20, 3, 3, 3, 20, 3, 3}

	cfg := testConfig()
	cfg.Cooldown = 6 * time.Second
	assert.Equal(t, 1, runApproach(t, cfg, samples), "re-entry within cooldown must not re-trigger")
}

func TestCooldownIsMeasuredFromAlertStart(t *testing.T) {
	samples := []float64{20, 20, 3, 3, 3, 20, 3, 3}

	// alert at t=2s, re-entry at t=6s: 4s >= 3s cooldown
	assert.Equal(t, 2, runApproach(t, testConfig(), samples))
}

func TestImmediateAlertWithoutDelay(t *testing.T) {
	m := NewMachine(testConfig(), nil)
	a := &fakeAlerter{}

	assert.Equal(t, OutOfRange, m.Evaluate(t0, 20, a))
	assert.Equal(t, InAlert, m.Evaluate(t0.Add(time.Second), 3, a))

	require.Len(t, a.triggers, 1)
	cmd := a.triggers[0]
	assert.Equal(t, "AA:BB", cmd.BeaconID)
	assert.Equal(t, alert.ModeBuzzer, cmd.Mode)
	assert.Equal(t, 3, cmd.Intensity)
	assert.Equal(t, time.Second, cmd.Duration)
	assert.Equal(t, alert.ReasonProximity, cmd.Reason)

	rt := m.Runtime()
	assert.True(t, rt.AlertActive)
	assert.Equal(t, t0.Add(time.Second), rt.LastAlert)
}

func TestTriggerBoundaryIsInclusive(t *testing.T) {
	m := NewMachine(testConfig(), nil)
	a := &fakeAlerter{}
	assert.Equal(t, InAlert, m.Evaluate(t0, 5, a))
}

func TestDelayCancellation(t *testing.T) {
	cfg := testConfig()
	cfg.DelayEnabled = true
	cfg.ProximityDelay = 500 * time.Millisecond
	m := NewMachine(cfg, nil)
	a := &fakeAlerter{}

	step := 100 * time.Millisecond
	distances := []float64{20, 3, 3, 3, 20, 20} // in range for 300 ms
	for i, d := range distances {
		m.Evaluate(t0.Add(time.Duration(i)*step), d, a)
	}

	assert.Empty(t, a.triggers)
	assert.Equal(t, OutOfRange, m.State())
	assert.True(t, m.Runtime().ProximityStart.IsZero())
}

func TestDelayElapsedFires(t *testing.T) {
	cfg := testConfig()
	cfg.DelayEnabled = true
	cfg.ProximityDelay = 500 * time.Millisecond
	m := NewMachine(cfg, nil)
	a := &fakeAlerter{}

	assert.Equal(t, Pending, m.Evaluate(t0, 3, a))
	assert.Equal(t, t0, m.Runtime().ProximityStart)
	assert.Equal(t, Pending, m.Evaluate(t0.Add(400*time.Millisecond), 3, a))
	assert.Equal(t, InAlert, m.Evaluate(t0.Add(500*time.Millisecond), 3, a))
	assert.Len(t, a.triggers, 1)
}

func TestDelayEnabledWithZeroDelayIsImmediate(t *testing.T) {
	cfg := testConfig()
	cfg.DelayEnabled = true
	m := NewMachine(cfg, nil)
	assert.Equal(t, InAlert, m.Evaluate(t0, 3, &fakeAlerter{}))
}

func TestRefusedAlertStaysRetryable(t *testing.T) {
	m := NewMachine(testConfig(), nil)
	a := &fakeAlerter{refuse: true}

	assert.Equal(t, OutOfRange, m.Evaluate(t0, 3, a))
	assert.True(t, m.Runtime().LastAlert.IsZero())
	assert.Equal(t, uint64(1), m.Counters().Refused)

	a.refuse = false
	assert.Equal(t, InAlert, m.Evaluate(t0.Add(100*time.Millisecond), 3, a))
	assert.Len(t, a.triggers, 1)
}

func TestLeavingStopsActiveAlert(t *testing.T) {
	m := NewMachine(testConfig(), nil)
	a := &fakeAlerter{}

	m.Evaluate(t0, 3, a)
	require.Equal(t, InAlert, m.State())

	assert.Equal(t, OutOfRange, m.Evaluate(t0.Add(200*time.Millisecond), 30, a))
	assert.Equal(t, []string{"AA:BB"}, a.stops)
	assert.False(t, m.Runtime().AlertActive)
	assert.Equal(t, t0, m.Runtime().LastAlert, "last alert survives leaving")
}

func TestCooldownRetriggersWhileLingering(t *testing.T) {
	m := NewMachine(testConfig(), nil)
	a := &fakeAlerter{}

	m.Evaluate(t0, 3, a)
	m.AlertFinished()
	require.Equal(t, Cooldown, m.State())

	assert.Equal(t, Cooldown, m.Evaluate(t0.Add(2*time.Second), 3, a))
	assert.Equal(t, uint64(1), m.Counters().Suppressed)

	assert.Equal(t, InAlert, m.Evaluate(t0.Add(3*time.Second), 3, a))
	assert.Len(t, a.triggers, 2)
}

func TestCooldownLeavingDoesNotStop(t *testing.T) {
	m := NewMachine(testConfig(), nil)
	a := &fakeAlerter{}

	m.Evaluate(t0, 3, a)
	m.AlertFinished()
	m.Evaluate(t0.Add(2*time.Second), 30, a)

	assert.Equal(t, OutOfRange, m.State())
	assert.Empty(t, a.stops)
}

func TestModeNoneNeverAlerts(t *testing.T) {
	cfg := testConfig()
	cfg.AlertMode = alert.ModeNone
	m := NewMachine(cfg, nil)
	a := &fakeAlerter{}

	m.Evaluate(t0, 3, a)
	m.Evaluate(t0.Add(time.Second), 3, a)

	assert.Empty(t, a.triggers)
	assert.Equal(t, OutOfRange, m.State())
	assert.True(t, m.View(t0).InRange)
}

func TestLostBeaconCountsAsOutOfRange(t *testing.T) {
	m := NewMachine(testConfig(), nil)
	a := &fakeAlerter{}

	m.Evaluate(t0, 3, a)
	assert.Equal(t, OutOfRange, m.Lost(a))
	assert.Equal(t, []string{"AA:BB"}, a.stops)
	assert.False(t, m.View(t0).InRange)
}

func TestAlertFinishedOutsideAlertIsIgnored(t *testing.T) {
	m := NewMachine(testConfig(), nil)
	m.AlertFinished()
	assert.Equal(t, OutOfRange, m.State())
}

func TestSetConfigKeepsRuntime(t *testing.T) {
	m := NewMachine(testConfig(), nil)
	a := &fakeAlerter{}
	m.Evaluate(t0, 3, a)
	m.AlertFinished()

	cfg := testConfig()
	cfg.TriggerDistanceCm = 50
	cfg.Cooldown = 10 * time.Second
	cfg.Intensity = 5
	m.SetConfig(cfg)

	assert.Equal(t, Cooldown, m.State())
	assert.Equal(t, t0, m.Runtime().LastAlert)

	// 30 cm is now within range; new cooldown still applies to the old stamp
	assert.Equal(t, Cooldown, m.Evaluate(t0.Add(5*time.Second), 30, a))
	assert.Equal(t, InAlert, m.Evaluate(t0.Add(10*time.Second), 30, a))
	assert.Equal(t, 5, a.triggers[1].Intensity)
}

func TestView(t *testing.T) {
	m := NewMachine(testConfig(), nil)
	v := m.View(t0)
	assert.Equal(t, int64(-1), v.SinceLastAlertMs)
	assert.Equal(t, OutOfRange, v.State)

	m.Evaluate(t0, 3, &fakeAlerter{})
	v = m.View(t0.Add(time.Second))
	assert.Equal(t, int64(1000), v.SinceLastAlertMs)
	assert.Equal(t, int64(2000), v.CooldownLeftMs)
	assert.Equal(t, "buzzer", v.AlertMode)
	assert.Equal(t, uint64(1), v.Fired)
}

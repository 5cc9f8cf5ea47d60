package telemetry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zarsko3/Petg-sub003/internal/alert"
	"github.com/zarsko3/Petg-sub003/internal/collar"
	"github.com/zarsko3/Petg-sub003/internal/logger"
	"github.com/zarsko3/Petg-sub003/internal/proximity"
)

func TestTopicsFor(t *testing.T) {
	got := TopicsFor("pet-collar/", "COLLAR-7")
	assert.Equal(t, "pet-collar/COLLAR-7/status", got.Status)
	assert.Equal(t, "pet-collar/COLLAR-7/telemetry", got.Telemetry)
	assert.Equal(t, "pet-collar/COLLAR-7/alert", got.Alert)
	assert.Equal(t, "pet-collar/COLLAR-7/config", got.Config)
	assert.Equal(t, "pet-collar/COLLAR-7/command", got.Command)

	assert.Equal(t, "pet-collar/X/status", TopicsFor("", "X").Status)
}

func TestDecodeConfigPatch(t *testing.T) {
	patch, err := DecodeConfig([]byte(`{
		"beaconId": "AA:01",
		"triggerDistanceCm": 12,
		"alertMode": "vibration",
		"pattern": "pulse",
		"proximityDelayMs": 400,
		"delayEnabled": true
	}`))
	require.NoError(t, err)

	base := proximity.DefaultConfig("AA:01")
	base.Name = "PetZone-Sofa-01"
	cfg, err := patch.Apply(base)
	require.NoError(t, err)

	assert.Equal(t, "PetZone-Sofa-01", cfg.Name, "absent fields keep the base value")
	assert.Equal(t, 12.0, cfg.TriggerDistanceCm)
	assert.Equal(t, alert.ModeVibration, cfg.AlertMode)
	assert.Equal(t, alert.PatternPulse, cfg.Pattern)
	assert.True(t, cfg.DelayEnabled)
	assert.Equal(t, 400*time.Millisecond, cfg.ProximityDelay)
	assert.Equal(t, base.Cooldown, cfg.Cooldown)
}

func TestDecodeConfigDelete(t *testing.T) {
	patch, err := DecodeConfig([]byte(`{"beaconId":"AA:02","delete":true}`))
	require.NoError(t, err)
	assert.True(t, patch.Delete)
	assert.Equal(t, "AA:02", patch.BeaconID)
}

func TestDecodeConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{beaconId`},
		{"missing id", `{"intensity":3}`},
		{"bad mode", `{"beaconId":"A","alertMode":"siren"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeConfig([]byte(tt.payload))
			assert.ErrorIs(t, err, ErrBadPayload)
		})
	}
}

func TestApplyValidates(t *testing.T) {
	patch, err := DecodeConfig([]byte(`{"beaconId":"A","intensity":9}`))
	require.NoError(t, err)
	_, err = patch.Apply(proximity.DefaultConfig("A"))
	assert.ErrorIs(t, err, proximity.ErrInvalidConfig)
}

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Command
	}{
		{"stop", `{"action":"stop","force":true}`, Command{Action: ActionStop, Force: true}},
		{"test defaults", `{"action":"TEST"}`, Command{Action: ActionTest, Mode: alert.ModeBuzzer, Intensity: 3}},
		{"test full", `{"action":"test","mode":"both","intensity":5,"durationMs":2500}`,
			Command{Action: ActionTest, Mode: alert.ModeBoth, Intensity: 5, Duration: 2500 * time.Millisecond}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCommand([]byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeCommandErrors(t *testing.T) {
	for _, payload := range []string{
		`[]`,
		`{"action":"reboot"}`,
		`{"action":"test","mode":"laser"}`,
		`{"action":"test","intensity":6}`,
	} {
		_, err := DecodeCommand([]byte(payload))
		assert.ErrorIs(t, err, ErrBadPayload, payload)
	}
}

func TestEventPayload(t *testing.T) {
	at := time.Unix(1_700_000_000, 0).UTC()
	p := NewEventPayload("COLLAR-1", collar.Event{
		Kind:     collar.EventAlertCompleted,
		At:       at,
		BeaconID: "AA:01",
		Reason:   alert.ReasonProximity,
		Cause:    alert.CauseExpired,
	})
	assert.Len(t, p.EventID, 36)
	assert.NotEqual(t, p.EventID, NewEventPayload("COLLAR-1", collar.Event{}).EventID)

	data, err := json.Marshal(p)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "alert_completed", decoded["kind"])
	assert.Equal(t, "expired", decoded["cause"])
	assert.Equal(t, "COLLAR-1", decoded["deviceId"])
	assert.NotContains(t, decoded, "intensity")
}

func TestHandlersForwardDecodedMessages(t *testing.T) {
	var patches []ConfigPatch
	var cmds []Command
	c := newClient(Options{
		DeviceID:  "C",
		OnConfig:  func(p ConfigPatch) { patches = append(patches, p) },
		OnCommand: func(cmd Command) { cmds = append(cmds, cmd) },
		Logger:    logger.Nop(),
	})

	c.handleConfig([]byte(`{"beaconId":"A","delete":true}`))
	c.handleConfig([]byte(`garbage`))
	c.handleCommand([]byte(`{"action":"stop"}`))
	c.handleCommand([]byte(`{"action":"dance"}`))

	require.Len(t, patches, 1)
	assert.Equal(t, "A", patches[0].BeaconID)
	require.Len(t, cmds, 1)
	assert.Equal(t, ActionStop, cmds[0].Action)
}

func TestDueThrottles(t *testing.T) {
	c := newClient(Options{DeviceID: "C", PublishInterval: 2 * time.Second, Logger: logger.Nop()})
	t0 := time.Unix(1_700_000_000, 0)

	assert.True(t, c.Due(t0))
	assert.False(t, c.Due(t0.Add(500*time.Millisecond)))
	assert.True(t, c.Due(t0.Add(2*time.Second)))
}

func TestConnectWithoutBroker(t *testing.T) {
	_, err := Connect(t.Context(), Options{})
	assert.ErrorIs(t, err, ErrNoBroker)
}

func TestDecodeRejectsOutOfRangeDurations(t *testing.T) {
	tests := []struct {
		name    string
		decode  func([]byte) error
		payload string
	}{
		{"cooldown wraps", decodeConfigErr, `{"beaconId":"A","cooldownMs":9300000000000}`},
		{"negative delay", decodeConfigErr, `{"beaconId":"A","proximityDelayMs":-1}`},
		{"duration wraps", decodeConfigErr, `{"beaconId":"A","alertDurationMs":9223372036854775807}`},
		{"command duration wraps", decodeCommandErr, `{"action":"test","durationMs":9300000000000}`},
		{"negative command duration", decodeCommandErr, `{"action":"test","durationMs":-5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.decode([]byte(tt.payload)), ErrBadPayload)
		})
	}

	patch, err := DecodeConfig([]byte(`{"beaconId":"A","cooldownMs":9223372036854}`))
	require.NoError(t, err, "largest representable value is accepted")
	cfg, err := patch.Apply(proximity.DefaultConfig("A"))
	require.NoError(t, err)
	assert.Positive(t, cfg.Cooldown)
}

func decodeConfigErr(b []byte) error {
	_, err := DecodeConfig(b)
	return err
}

func decodeCommandErr(b []byte) error {
	_, err := DecodeCommand(b)
	return err
}

type fakeToken struct {
	err     error
	timeout bool
}

func (f fakeToken) Wait() bool                     { return !f.timeout }
func (f fakeToken) WaitTimeout(time.Duration) bool { return !f.timeout }
func (f fakeToken) Error() error                   { return f.err }
func (f fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if !f.timeout {
		close(ch)
	}
	return ch
}

type fakeSession struct {
	published  []string
	subscribed []string
	failTopic  string
	slowTopic  string
}

func (f *fakeSession) token(topic string) mqtt.Token {
	switch topic {
	case f.failTopic:
		return fakeToken{err: errors.New("not authorized")}
	case f.slowTopic:
		return fakeToken{timeout: true}
	}
	return fakeToken{}
}

func (f *fakeSession) Publish(topic string, _ byte, _ bool, _ interface{}) mqtt.Token {
	f.published = append(f.published, topic)
	return f.token(topic)
}

func (f *fakeSession) Subscribe(topic string, _ byte, _ mqtt.MessageHandler) mqtt.Token {
	f.subscribed = append(f.subscribed, topic)
	return f.token(topic)
}

func TestAnnounceSubscribesAndPublishesOnline(t *testing.T) {
	c := newClient(Options{DeviceID: "C", Logger: logger.Nop()})
	s := &fakeSession{}

	require.NoError(t, c.announce(s))
	assert.Equal(t, []string{c.topics.Status}, s.published)
	assert.Equal(t, []string{c.topics.Config, c.topics.Command}, s.subscribed)
}

func TestAnnounceReportsFailedSteps(t *testing.T) {
	c := newClient(Options{DeviceID: "C", Logger: logger.Nop()})
	s := &fakeSession{failTopic: c.topics.Config, slowTopic: c.topics.Command}

	err := c.announce(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subscribe pet-collar/C/config: not authorized")
	assert.Contains(t, err.Error(), "subscribe pet-collar/C/command: timed out")
	assert.NotContains(t, err.Error(), "status")
}

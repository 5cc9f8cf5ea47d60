// Package telemetry publishes collar state over MQTT and receives remote
// config and commands.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/time/rate"

	"github.com/zarsko3/Petg-sub003/internal/collar"
	"github.com/zarsko3/Petg-sub003/internal/config"
	"github.com/zarsko3/Petg-sub003/internal/logger"
)

// ErrNoBroker is returned by Connect when no broker is configured.
var ErrNoBroker = errors.New("no mqtt broker configured")

// Options configures a Client.
type Options struct {
	Broker          string
	ClientID        string
	Username        string
	Password        string
	TopicPrefix     string
	DeviceID        string
	PublishInterval time.Duration
	OnConfig        func(ConfigPatch)
	OnCommand       func(Command)
	Logger          *slog.Logger
}

// FromSettings builds client options from the mqtt section.
func FromSettings(s config.MQTTConfig, deviceID string) Options {
	return Options{
		Broker:          s.Broker,
		ClientID:        s.ClientID,
		Username:        s.Username,
		Password:        s.Password,
		TopicPrefix:     s.TopicPrefix,
		DeviceID:        deviceID,
		PublishInterval: s.PublishInterval,
	}
}

// Client is safe for concurrent use. Callbacks run on paho goroutines.
type Client struct {
	conn      mqtt.Client
	deviceID  string
	topics    Topics
	limiter   *rate.Limiter
	onConfig  func(ConfigPatch)
	onCommand func(Command)
	ackWait   time.Duration
	log       *slog.Logger
}

func newClient(opts Options) *Client {
	if opts.PublishInterval <= 0 {
		opts.PublishInterval = config.PublishInterval
	}
	if opts.DeviceID == "" {
		opts.DeviceID = config.DeviceID
	}
	return &Client{
		deviceID:  opts.DeviceID,
		topics:    TopicsFor(opts.TopicPrefix, opts.DeviceID),
		limiter:   rate.NewLimiter(rate.Every(opts.PublishInterval), 1),
		onConfig:  opts.OnConfig,
		onCommand: opts.OnCommand,
		ackWait:   config.MQTTConnectWait,
		log:       logger.Component(opts.Logger, "telemetry"),
	}
}

// Connect dials the broker and waits until the session is up or ctx ends.
func Connect(ctx context.Context, opts Options) (*Client, error) {
	if opts.Broker == "" {
		return nil, ErrNoBroker
	}
	c := newClient(opts)

	clientID := opts.ClientID
	if clientID == "" {
		clientID = c.deviceID
	}
	mo := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(config.MQTTConnectWait).
		SetWill(c.topics.Status, string(encodeStatus(c.deviceID, "offline")), config.MQTTQoS, true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			c.log.Warn("mqtt connection lost", "error", err)
		})
	if opts.Username != "" {
		mo.SetUsername(opts.Username)
		mo.SetPassword(opts.Password)
	}

	c.conn = mqtt.NewClient(mo)
	if err := wait(ctx, c.conn.Connect()); err != nil {
		return nil, fmt.Errorf("connect %s: %w", opts.Broker, err)
	}
	c.log.Info("mqtt connected", "broker", opts.Broker, "client_id", clientID)
	return c, nil
}

// session is the part of mqtt.Client used after a (re)connect.
type session interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

// onConnect runs after every (re)connect. paho calls it on its own
// goroutine, so waiting on tokens here does not stall the client.
func (c *Client) onConnect(cl mqtt.Client) {
	if err := c.announce(cl); err != nil {
		c.log.Error("mqtt session setup", "error", err)
	}
}

// announce publishes the online status and subscribes to the inbound
// topics, reporting every step that failed or timed out.
func (c *Client) announce(s session) error {
	var errs []error
	steps := []struct {
		what  string
		token mqtt.Token
	}{
		{"publish " + c.topics.Status, s.Publish(c.topics.Status, config.MQTTQoS, true, encodeStatus(c.deviceID, "online"))},
		{"subscribe " + c.topics.Config, s.Subscribe(c.topics.Config, config.MQTTQoS, func(_ mqtt.Client, m mqtt.Message) {
			c.handleConfig(m.Payload())
		})},
		{"subscribe " + c.topics.Command, s.Subscribe(c.topics.Command, config.MQTTQoS, func(_ mqtt.Client, m mqtt.Message) {
			c.handleCommand(m.Payload())
		})},
	}
	for _, st := range steps {
		if !st.token.WaitTimeout(c.ackWait) {
			errs = append(errs, fmt.Errorf("%s: timed out after %s", st.what, c.ackWait))
			continue
		}
		if err := st.token.Error(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", st.what, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Client) handleConfig(payload []byte) {
	patch, err := DecodeConfig(payload)
	if err != nil {
		c.log.Warn("dropping config message", "error", err)
		return
	}
	c.log.Debug("config message", "beacon", patch.BeaconID, "delete", patch.Delete)
	if c.onConfig != nil {
		c.onConfig(patch)
	}
}

func (c *Client) handleCommand(payload []byte) {
	cmd, err := DecodeCommand(payload)
	if err != nil {
		c.log.Warn("dropping command message", "error", err)
		return
	}
	c.log.Debug("command message", "action", cmd.Action)
	if c.onCommand != nil {
		c.onCommand(cmd)
	}
}

// Topics returns the topic set in use.
func (c *Client) Topics() Topics { return c.topics }

// Due reports whether a snapshot may be published at now.
func (c *Client) Due(now time.Time) bool {
	return c.limiter.AllowN(now, 1)
}

// PublishSnapshot publishes the collar state. It blocks until the broker
// acknowledges.
func (c *Client) PublishSnapshot(ctx context.Context, s collar.Snapshot) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return c.publish(ctx, c.topics.Telemetry, payload)
}

// PublishEvent publishes one alert lifecycle event.
func (c *Client) PublishEvent(ctx context.Context, ev collar.Event) error {
	payload, err := json.Marshal(NewEventPayload(c.deviceID, ev))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return c.publish(ctx, c.topics.Alert, payload)
}

func (c *Client) publish(ctx context.Context, topic string, payload []byte) error {
	if err := wait(ctx, c.conn.Publish(topic, config.MQTTQoS, false, payload)); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close marks the device offline and disconnects.
func (c *Client) Close() {
	if c.conn == nil || !c.conn.IsConnected() {
		return
	}
	t := c.conn.Publish(c.topics.Status, config.MQTTQoS, true, encodeStatus(c.deviceID, "offline"))
	t.WaitTimeout(time.Second)
	c.conn.Disconnect(250)
	c.log.Info("mqtt disconnected")
}

func wait(ctx context.Context, t mqtt.Token) error {
	select {
	case <-t.Done():
		return t.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

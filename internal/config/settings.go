package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidSettings is wrapped by every error returned from Validate.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings is the top-level collar configuration.
type Settings struct {
	Device      DeviceConfig      `yaml:"device"`
	Scan        ScanConfig        `yaml:"scan"`
	Registry    RegistryConfig    `yaml:"registry"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Alert       AlertConfig       `yaml:"alert"`
	Serial      SerialConfig      `yaml:"serial"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Store       StoreConfig       `yaml:"store"`
	Logger      LoggerConfig      `yaml:"logger"`
	Beacons     []BeaconConfig    `yaml:"beacons"`
}

// DeviceConfig identifies this collar.
type DeviceConfig struct {
	ID string `yaml:"id"`
}

// ScanConfig controls which advertisements reach the registry.
type ScanConfig struct {
	NamePrefix string `yaml:"name_prefix"`
	Adapter    string `yaml:"adapter"`
}

// RegistryConfig sizes the beacon registry.
type RegistryConfig struct {
	Capacity      int           `yaml:"capacity"`
	SampleWindow  int           `yaml:"sample_window"`
	StaleTimeout  time.Duration `yaml:"stale_timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	InRangeCm     float64       `yaml:"in_range_cm"`
}

// CalibrationConfig holds the path loss model constants.
type CalibrationConfig struct {
	TxPowerRefDbm    float64 `yaml:"tx_power_ref_dbm"`
	PathLossExponent float64 `yaml:"path_loss_exponent"`
	ClampMinMeters   float64 `yaml:"clamp_min_meters"`
	MaxDistanceCm    float64 `yaml:"max_distance_cm"`
}

// AlertConfig holds the PWM output settings.
type AlertConfig struct {
	BuzzerFrequencyHz int           `yaml:"buzzer_frequency_hz"`
	MinDuty           int           `yaml:"min_duty"`
	MaxDuty           int           `yaml:"max_duty"`
	PulseOn           time.Duration `yaml:"pulse_on"`
	PulseOff          time.Duration `yaml:"pulse_off"`
}

// SerialConfig describes the link to the PWM controller. An empty Port
// means no hardware is attached.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	StopBits int    `yaml:"stop_bits"`
	Parity   string `yaml:"parity"`
}

// MQTTConfig holds telemetry broker settings. An empty Broker disables
// telemetry.
type MQTTConfig struct {
	Broker          string        `yaml:"broker"`
	ClientID        string        `yaml:"client_id"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	TopicPrefix     string        `yaml:"topic_prefix"`
	PublishInterval time.Duration `yaml:"publish_interval"`
}

// StoreConfig locates the sqlite database holding runtime beacon configs.
// An empty Path disables persistence.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
	Output string `yaml:"output"` // stdout, stderr, or a file path
}

// BeaconConfig is the bootstrap proximity configuration for one beacon.
type BeaconConfig struct {
	ID                string        `yaml:"id"`
	Name              string        `yaml:"name"`
	TriggerDistanceCm float64       `yaml:"trigger_distance_cm"`
	AlertMode         string        `yaml:"alert_mode"`
	Intensity         int           `yaml:"intensity"`
	AlertDuration     time.Duration `yaml:"alert_duration"`
	DelayEnabled      bool          `yaml:"delay_enabled"`
	ProximityDelay    time.Duration `yaml:"proximity_delay"`
	Cooldown          time.Duration `yaml:"cooldown"`
	Pattern           string        `yaml:"pattern"`
}

// Defaults returns settings populated from the package constants.
func Defaults() *Settings {
	return &Settings{
		Device: DeviceConfig{ID: DeviceID},
		Scan:   ScanConfig{NamePrefix: NamePrefix, Adapter: "hci0"},
		Registry: RegistryConfig{
			Capacity:      MaxBeacons,
			SampleWindow:  SampleWindow,
			StaleTimeout:  StaleTimeout,
			SweepInterval: SweepInterval,
			InRangeCm:     InRangeCm,
		},
		Calibration: CalibrationConfig{
			TxPowerRefDbm:    TxPowerRefDbm,
			PathLossExponent: PathLossExponent,
			ClampMinMeters:   ClampMinMeters,
			MaxDistanceCm:    MaxDistanceCm,
		},
		Alert: AlertConfig{
			BuzzerFrequencyHz: BuzzerFrequencyHz,
			MinDuty:           MinDuty,
			MaxDuty:           MaxDuty,
			PulseOn:           PulseOn,
			PulseOff:          PulseOff,
		},
		Serial: SerialConfig{BaudRate: SerialBaudRate, DataBits: 8, StopBits: 1, Parity: "N"},
		MQTT: MQTTConfig{
			TopicPrefix:     TopicPrefix,
			PublishInterval: PublishInterval,
		},
		Store:  StoreConfig{Path: DefaultStorePath},
		Logger: LoggerConfig{Level: "info", Format: "text", Output: "stderr"},
	}
}

// Load reads settings from a YAML file on top of Defaults and applies
// PETCOLLAR_* environment overrides. A missing file yields the defaults.
func Load(path string) (*Settings, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Settings) {
	if v := os.Getenv("PETCOLLAR_DEVICE_ID"); v != "" {
		cfg.Device.ID = v
	}
	if v := os.Getenv("PETCOLLAR_NAME_PREFIX"); v != "" {
		cfg.Scan.NamePrefix = v
	}
	if v := os.Getenv("PETCOLLAR_ADAPTER"); v != "" {
		cfg.Scan.Adapter = v
	}
	if v := os.Getenv("PETCOLLAR_SERIAL_PORT"); v != "" {
		cfg.Serial.Port = v
	}
	if v := os.Getenv("PETCOLLAR_SERIAL_BAUD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Serial.BaudRate = n
		}
	}
	if v := os.Getenv("PETCOLLAR_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv("PETCOLLAR_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("PETCOLLAR_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
	if v := os.Getenv("PETCOLLAR_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("PETCOLLAR_LOG_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("PETCOLLAR_LOG_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}
}

// Validate reports every invalid setting in a single error.
func (s *Settings) Validate() error {
	var problems []string

	if s.Registry.Capacity < 1 {
		problems = append(problems, "registry.capacity must be >= 1")
	}
	if s.Registry.SampleWindow < 1 {
		problems = append(problems, "registry.sample_window must be >= 1")
	}
	if s.Registry.StaleTimeout <= 0 {
		problems = append(problems, "registry.stale_timeout must be > 0")
	}
	if s.Registry.SweepInterval <= 0 {
		problems = append(problems, "registry.sweep_interval must be > 0")
	}
	if s.Calibration.PathLossExponent <= 0 {
		problems = append(problems, "calibration.path_loss_exponent must be > 0")
	}
	if s.Calibration.MaxDistanceCm <= 0 {
		problems = append(problems, "calibration.max_distance_cm must be > 0")
	}
	if s.Calibration.ClampMinMeters < 0 {
		problems = append(problems, "calibration.clamp_min_meters must be >= 0")
	}
	if s.Alert.MinDuty < 0 || s.Alert.MaxDuty > 255 || s.Alert.MinDuty > s.Alert.MaxDuty {
		problems = append(problems, "alert duty range must satisfy 0 <= min_duty <= max_duty <= 255")
	}
	if s.Alert.BuzzerFrequencyHz < 100 || s.Alert.BuzzerFrequencyHz > 20000 {
		problems = append(problems, "alert.buzzer_frequency_hz must be within 100..20000")
	}
	if s.Alert.PulseOn <= 0 || s.Alert.PulseOff <= 0 {
		problems = append(problems, "alert pulse timings must be > 0")
	}
	switch strings.ToLower(s.Logger.Format) {
	case "", "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("logger.format %q must be text or json", s.Logger.Format))
	}
	if s.MQTT.Broker != "" && s.MQTT.PublishInterval <= 0 {
		problems = append(problems, "mqtt.publish_interval must be > 0")
	}

	seen := make(map[string]bool, len(s.Beacons))
	for i, b := range s.Beacons {
		if b.ID == "" {
			problems = append(problems, fmt.Sprintf("beacons[%d].id is required", i))
			continue
		}
		if seen[b.ID] {
			problems = append(problems, fmt.Sprintf("beacons[%d].id %q is duplicated", i, b.ID))
		}
		seen[b.ID] = true
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(problems, "; "))
	}
	return nil
}

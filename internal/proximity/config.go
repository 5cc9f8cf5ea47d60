package proximity

import (
	"errors"
	"fmt"
	"time"

	"github.com/zarsko3/Petg-sub003/internal/alert"
	"github.com/zarsko3/Petg-sub003/internal/config"
)

// ErrInvalidConfig is wrapped by every Config validation error.
var ErrInvalidConfig = errors.New("invalid proximity config")

// Config is the proximity rule for one beacon.
type Config struct {
	BeaconID          string
	Name              string
	TriggerDistanceCm float64
	AlertMode         alert.Mode
	Intensity         int // 1..5
	AlertDuration     time.Duration
	Pattern           alert.Pattern
	DelayEnabled      bool
	ProximityDelay    time.Duration
	Cooldown          time.Duration
}

// DefaultConfig returns the factory rule for a beacon.
func DefaultConfig(beaconID string) Config {
	return Config{
		BeaconID:          beaconID,
		TriggerDistanceCm: config.DefaultTriggerCm,
		AlertMode:         alert.ModeBuzzer,
		Intensity:         config.DefaultIntensity,
		AlertDuration:     config.DefaultAlertDuration,
		Cooldown:          config.DefaultCooldown,
	}
}

// FromSettings converts a bootstrap beacon entry. Unset numeric fields take
// the factory defaults.
func FromSettings(b config.BeaconConfig) (Config, error) {
	cfg := DefaultConfig(b.ID)
	cfg.Name = b.Name
	if b.TriggerDistanceCm != 0 {
		cfg.TriggerDistanceCm = b.TriggerDistanceCm
	}
	if b.AlertMode != "" {
		mode, err := alert.ParseMode(b.AlertMode)
		if err != nil {
			return Config{}, fmt.Errorf("%w: beacon %s: %w", ErrInvalidConfig, b.ID, err)
		}
		cfg.AlertMode = mode
	}
	if b.Intensity != 0 {
		cfg.Intensity = b.Intensity
	}
	if b.AlertDuration != 0 {
		cfg.AlertDuration = b.AlertDuration
	}
	pattern, err := alert.ParsePattern(b.Pattern)
	if err != nil {
		return Config{}, fmt.Errorf("%w: beacon %s: %w", ErrInvalidConfig, b.ID, err)
	}
	cfg.Pattern = pattern
	cfg.DelayEnabled = b.DelayEnabled
	cfg.ProximityDelay = b.ProximityDelay
	if b.Cooldown != 0 {
		cfg.Cooldown = b.Cooldown
	}
	return cfg, cfg.Validate()
}

// Validate checks field ranges.
func (c Config) Validate() error {
	switch {
	case c.BeaconID == "":
		return fmt.Errorf("%w: beacon id is required", ErrInvalidConfig)
	case c.TriggerDistanceCm <= 0:
		return fmt.Errorf("%w: beacon %s: trigger distance must be > 0", ErrInvalidConfig, c.BeaconID)
	case c.AlertMode < alert.ModeNone || c.AlertMode > alert.ModeBoth:
		return fmt.Errorf("%w: beacon %s: unknown alert mode %d", ErrInvalidConfig, c.BeaconID, c.AlertMode)
	case c.Intensity < 1 || c.Intensity > 5:
		return fmt.Errorf("%w: beacon %s: intensity %d outside 1..5", ErrInvalidConfig, c.BeaconID, c.Intensity)
	case c.AlertDuration <= 0:
		return fmt.Errorf("%w: beacon %s: alert duration must be > 0", ErrInvalidConfig, c.BeaconID)
	case c.ProximityDelay < 0:
		return fmt.Errorf("%w: beacon %s: proximity delay must be >= 0", ErrInvalidConfig, c.BeaconID)
	case c.Cooldown < 0:
		return fmt.Errorf("%w: beacon %s: cooldown must be >= 0", ErrInvalidConfig, c.BeaconID)
	}
	return nil
}

func (c Config) delayed() bool {
	return c.DelayEnabled && c.ProximityDelay > 0
}

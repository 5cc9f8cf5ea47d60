package alert

import (
	"fmt"
	"strings"
)

// Mode selects which outputs an alert drives.
type Mode int

const (
	ModeNone Mode = iota
	ModeBuzzer
	ModeVibration
	ModeBoth
)

func (m Mode) String() string {
	switch m {
	case ModeBuzzer:
		return "buzzer"
	case ModeVibration:
		return "vibration"
	case ModeBoth:
		return "both"
	default:
		return "none"
	}
}

func (m Mode) buzzer() bool    { return m == ModeBuzzer || m == ModeBoth }
func (m Mode) vibration() bool { return m == ModeVibration || m == ModeBoth }

// ParseMode parses a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return ModeNone, nil
	case "buzzer":
		return ModeBuzzer, nil
	case "vibration":
		return ModeVibration, nil
	case "both":
		return ModeBoth, nil
	}
	return ModeNone, fmt.Errorf("unknown alert mode %q", s)
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Pattern shapes the output over the alert duration.
type Pattern int

const (
	PatternContinuous Pattern = iota
	PatternPulse              // PulseOn / PulseOff
	PatternRapid              // half the pulse periods
)

func (p Pattern) String() string {
	switch p {
	case PatternPulse:
		return "pulse"
	case PatternRapid:
		return "rapid"
	default:
		return "continuous"
	}
}

// ParsePattern parses a pattern name; empty means continuous.
func ParsePattern(s string) (Pattern, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "continuous", "":
		return PatternContinuous, nil
	case "pulse":
		return PatternPulse, nil
	case "rapid":
		return PatternRapid, nil
	}
	return PatternContinuous, fmt.Errorf("unknown alert pattern %q", s)
}

func (p Pattern) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Pattern) UnmarshalText(b []byte) error {
	v, err := ParsePattern(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Reason records why an alert was started.
type Reason string

const (
	ReasonProximity Reason = "proximity"
	ReasonManual    Reason = "manual_test"
	ReasonRemote    Reason = "remote_command"
)

// StopCause records why an alert ended.
type StopCause string

const (
	CauseExpired   StopCause = "expired"
	CauseManual    StopCause = "manual"
	CausePreempted StopCause = "preempted"
	CauseOwnerLeft StopCause = "owner_left"
)

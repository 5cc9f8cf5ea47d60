// Package ranging converts filtered RSSI into a distance estimate and a
// confidence score using a calibrated log-distance path loss model.
package ranging

import (
	"math"

	"github.com/zarsko3/Petg-sub003/internal/config"
)

// Calibration holds the path loss model constants.
type Calibration struct {
	TxPowerRefDbm    float64 // reference power of the model (dBm)
	PathLossExponent float64 // environment decay exponent (N)
	ClampMinMeters   float64 // estimates below this read as contact
	MaxDistanceCm    float64 // ceiling of the reported distance
}

// DefaultCalibration returns the short-range PetZone calibration.
func DefaultCalibration() Calibration {
	return Calibration{
		TxPowerRefDbm:    config.TxPowerRefDbm,
		PathLossExponent: config.PathLossExponent,
		ClampMinMeters:   config.ClampMinMeters,
		MaxDistanceCm:    config.MaxDistanceCm,
	}
}

// FromSettings builds a Calibration from loaded settings.
func FromSettings(c config.CalibrationConfig) Calibration {
	return Calibration{
		TxPowerRefDbm:    c.TxPowerRefDbm,
		PathLossExponent: c.PathLossExponent,
		ClampMinMeters:   c.ClampMinMeters,
		MaxDistanceCm:    c.MaxDistanceCm,
	}
}

// RSSIToDistance estimates distance in meters from RSSI using the
// log-distance path loss model: d = 10^((txPower - rssi) / (10 * n)).
func RSSIToDistance(rssi, txPower, pathLossExp float64) float64 {
	return math.Pow(10, (txPower-rssi)/(10*pathLossExp))
}

// DistanceMeters returns the unclamped model estimate, zeroed below
// ClampMinMeters. Non-negative RSSI is physically invalid and reads as 0.
func (c Calibration) DistanceMeters(rssi float64) float64 {
	if rssi >= 0 {
		return 0
	}
	if math.IsNaN(rssi) || c.PathLossExponent <= 0 {
		return c.MaxDistanceCm / 100
	}
	d := RSSIToDistance(rssi, c.TxPowerRefDbm, c.PathLossExponent)
	if d < c.ClampMinMeters {
		return 0
	}
	return d
}

// DistanceCm returns the estimate in centimeters clamped to
// [0, MaxDistanceCm].
func (c Calibration) DistanceCm(rssi float64) float64 {
	cm := c.DistanceMeters(rssi) * 100
	switch {
	case cm < 0:
		return 0
	case cm > c.MaxDistanceCm:
		return c.MaxDistanceCm
	}
	return cm
}

// Confidence is a step function of filtered RSSI in [0.1, 1.0].
func Confidence(rssi float64) float64 {
	switch {
	case rssi >= -30:
		return 1.0
	case rssi >= -60:
		return 0.8
	case rssi >= -80:
		return 0.6
	case rssi >= -90:
		return 0.3
	default:
		return 0.1
	}
}

// Estimate is the distance and confidence derived from one filtered RSSI.
type Estimate struct {
	DistanceCm float64
	Confidence float64
}

// Estimate computes both distance and confidence.
func (c Calibration) Estimate(rssi float64) Estimate {
	return Estimate{
		DistanceCm: c.DistanceCm(rssi),
		Confidence: Confidence(rssi),
	}
}

package ranging

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkedExample(t *testing.T) {
	c := Calibration{TxPowerRefDbm: -65, PathLossExponent: 1.8, ClampMinMeters: 0.005, MaxDistanceCm: 500}

	assert.InDelta(t, 0.01, c.DistanceMeters(-29), 1e-9)
	assert.InDelta(t, 1.0, c.DistanceCm(-29), 1e-9)
	assert.InDelta(t, 0.1468, c.DistanceMeters(-50), 1e-4)
	assert.InDelta(t, 14.68, c.DistanceCm(-50), 0.01)
}

func TestNonNegativeRSSIIsContact(t *testing.T) {
	c := DefaultCalibration()
	assert.Equal(t, 0.0, c.DistanceCm(0))
	assert.Equal(t, 0.0, c.DistanceCm(12))
}

func TestClampMinZeroesTinyDistances(t *testing.T) {
	c := DefaultCalibration()
	// -5 dBm: 10^(-60/18) m, well below 5 mm
	assert.Equal(t, 0.0, c.DistanceMeters(-5))
	assert.Equal(t, 0.0, c.DistanceCm(-5))
}

func TestDistanceClampedToMax(t *testing.T) {
	c := DefaultCalibration()
	assert.Equal(t, c.MaxDistanceCm, c.DistanceCm(-120))
	assert.Equal(t, c.MaxDistanceCm, c.DistanceCm(math.Inf(-1)))
}

func TestDegenerateCalibration(t *testing.T) {
	c := DefaultCalibration()
	c.PathLossExponent = 0
	assert.Equal(t, c.MaxDistanceCm, c.DistanceCm(-50))
	assert.Equal(t, DefaultCalibration().MaxDistanceCm, DefaultCalibration().DistanceCm(math.NaN()))
}

func TestDistanceMonotonicAndInRange(t *testing.T) {
	c := DefaultCalibration()
	prev := math.Inf(1)
	for rssi := -127.0; rssi <= 10; rssi += 0.25 {
		d := c.DistanceCm(rssi)
		assert.GreaterOrEqual(t, d, 0.0, "rssi %v", rssi)
		assert.LessOrEqual(t, d, c.MaxDistanceCm, "rssi %v", rssi)
		assert.LessOrEqual(t, d, prev, "distance must not increase at rssi %v", rssi)
		prev = d
	}
}

func TestConfidenceBands(t *testing.T) {
	tests := []struct {
		rssi float64
		want float64
	}{
		{-10, 1.0},
		{-30, 1.0},
		{-30.5, 0.8},
		{-60, 0.8},
		{-61, 0.6},
		{-80, 0.6},
		{-85, 0.3},
		{-90, 0.3},
		{-95, 0.1},
		{-127, 0.1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Confidence(tt.rssi), "Confidence(%v)", tt.rssi)
	}
}

func TestEstimate(t *testing.T) {
	e := DefaultCalibration().Estimate(-29)
	assert.InDelta(t, 1.0, e.DistanceCm, 1e-9)
	assert.Equal(t, 1.0, e.Confidence)
}

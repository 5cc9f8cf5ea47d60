package config

import "time"

const (
	// RSSI to distance estimation (ultra-close PetZone calibration:
	// -29 dBm at 1 cm)
	TxPowerRefDbm    = -65.0 // reference power used by the path loss model (dBm)
	PathLossExponent = 1.8   // short-range indoor exponent (N)
	ClampMinMeters   = 0.005 // distances below 5 mm read as contact
	MaxDistanceCm    = 500.0 // upper bound reported to the state machine

	// Beacon management
	NamePrefix    = "PetZone"
	MaxBeacons    = 10               // registry capacity, new beacons dropped beyond this
	SampleWindow  = 5                // moving average window (samples)
	StaleTimeout  = 10 * time.Second // remove beacons not seen for this long
	SweepInterval = 2 * time.Second  // how often to run eviction
	InRangeCm     = 200.0            // location summary "in range" marker

	// Proximity defaults for beacons configured without explicit values
	DefaultTriggerCm     = 200.0
	DefaultIntensity     = 3
	DefaultAlertDuration = time.Second
	DefaultCooldown      = 5 * time.Second

	// Alert hardware (8-bit PWM)
	BuzzerFrequencyHz = 2000
	MinDuty           = 51
	MaxDuty           = 255
	PulseOn           = 500 * time.Millisecond
	PulseOff          = 500 * time.Millisecond

	// Scheduler
	TickInterval = 50 * time.Millisecond // actuator tick + dashboard refresh

	// Serial link to the PWM controller
	SerialBaudRate = 115200

	// Telemetry
	TopicPrefix      = "pet-collar"
	PublishInterval  = 2 * time.Second
	MQTTQoS          = 1
	MQTTConnectWait  = 10 * time.Second
	DefaultStorePath = "petcollar.db"

	// Demo mode
	DemoPetSpeed = 0.35 // walk cycle speed in radians per second

	// App
	AppName    = "PET-COLLAR"
	AppVersion = "1.0"
	DeviceID   = "PETCOLLAR001"
)

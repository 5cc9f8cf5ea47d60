package alert

// Driver writes PWM duty cycles to the alert hardware. A duty of 0 turns
// the output off.
type Driver interface {
	SetBuzzer(duty uint8, freqHz int) error
	SetVibration(duty uint8) error
}

// MemoryDriver keeps the last written outputs in memory. Used in demo mode
// and tests.
type MemoryDriver struct {
	BuzzerDuty    uint8
	BuzzerFreqHz  int
	VibrationDuty uint8
	Writes        int
	Err           error // returned from every write when set
}

func (d *MemoryDriver) SetBuzzer(duty uint8, freqHz int) error {
	if d.Err != nil {
		return d.Err
	}
	d.Writes++
	d.BuzzerDuty = duty
	d.BuzzerFreqHz = freqHz
	return nil
}

func (d *MemoryDriver) SetVibration(duty uint8) error {
	if d.Err != nil {
		return d.Err
	}
	d.Writes++
	d.VibrationDuty = duty
	return nil
}

// On reports whether any output is currently driven.
func (d *MemoryDriver) On() bool {
	return d.BuzzerDuty > 0 || d.VibrationDuty > 0
}

package alert

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestPortOptionsNormalizeDefaults(t *testing.T) {
	opts, err := PortOptions{}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, PortOptions{BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: "N"}, opts)
}

func TestPortOptionsNormalizeErrors(t *testing.T) {
	_, err := PortOptions{DataBits: 9}.Normalize()
	assert.ErrorContains(t, err, "data bits")
	_, err = PortOptions{StopBits: 3}.Normalize()
	assert.ErrorContains(t, err, "stop bits")
	_, err = PortOptions{Parity: "mark"}.Normalize()
	assert.ErrorContains(t, err, "parity")
}

func TestPortOptionsSerialMode(t *testing.T) {
	mode, err := PortOptions{BaudRate: 9600, StopBits: 2, Parity: "even"}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, 9600, mode.BaudRate)
	assert.Equal(t, 8, mode.DataBits)
	assert.Equal(t, serial.TwoStopBits, mode.StopBits)
	assert.Equal(t, serial.EvenParity, mode.Parity)

	mode, err = PortOptions{}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, serial.OneStopBit, mode.StopBits)
	assert.Equal(t, serial.NoParity, mode.Parity)
}

func TestSerialDriverLineProtocol(t *testing.T) {
	var buf bytes.Buffer
	d := NewSerialDriver(&buf)

	require.NoError(t, d.SetBuzzer(153, 2000))
	require.NoError(t, d.SetVibration(0))
	assert.Equal(t, "B 153 2000\nV 0\n", buf.String())
	assert.NoError(t, d.Close())
}

func TestActuatorOverSerial(t *testing.T) {
	var buf bytes.Buffer
	a := NewActuator(NewSerialDriver(&buf), DefaultOptions())

	require.True(t, a.Trigger(t0, Command{Mode: ModeBoth, Intensity: 5, Duration: ms(100)}))
	a.Tick(t0.Add(ms(100)))
	assert.Equal(t, "B 255 2000\nV 255\nB 0 2000\nV 0\n", buf.String())
}

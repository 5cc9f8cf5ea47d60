//go:build linux

package bluetooth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"tinygo.org/x/bluetooth"

	"github.com/zarsko3/Petg-sub003/internal/logger"
)

func TestAdapterForDefault(t *testing.T) {
	assert.Same(t, bluetooth.DefaultAdapter, adapterFor(""))
	assert.Same(t, bluetooth.DefaultAdapter, adapterFor("hci0"))
}

func TestAdapterForSecondController(t *testing.T) {
	a := adapterFor("hci1")
	assert.NotSame(t, bluetooth.DefaultAdapter, a)
	assert.NotSame(t, a, adapterFor("hci1"), "each call builds a fresh handle")
}

func TestBLEScannerUsesConfiguredAdapter(t *testing.T) {
	s := NewBLEScanner("PetZone", "hci1", logger.Nop())
	assert.Equal(t, "hci1", s.AdapterID())
	assert.NotSame(t, bluetooth.DefaultAdapter, s.adapter)

	d := NewBLEScanner("PetZone", "", logger.Nop())
	assert.Equal(t, "hci0", d.AdapterID())
	assert.Same(t, bluetooth.DefaultAdapter, d.adapter)
}

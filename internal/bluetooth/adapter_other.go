//go:build !linux

package bluetooth

import "tinygo.org/x/bluetooth"

const defaultAdapterID = ""

// adapterFor returns the system adapter; only BlueZ can select by id.
func adapterFor(string) *bluetooth.Adapter {
	return bluetooth.DefaultAdapter
}

//go:build linux

package bluetooth

import "tinygo.org/x/bluetooth"

const defaultAdapterID = "hci0"

// adapterFor returns the BlueZ adapter with the given id. The default
// adapter is shared so the program never holds two handles to hci0.
func adapterFor(id string) *bluetooth.Adapter {
	if id == "" || id == defaultAdapterID {
		return bluetooth.DefaultAdapter
	}
	return bluetooth.NewAdapter(id)
}

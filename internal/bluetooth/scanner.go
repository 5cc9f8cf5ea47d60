// Package bluetooth adapts BLE advertisements into beacon observations.
package bluetooth

import (
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"tinygo.org/x/bluetooth"

	"github.com/zarsko3/Petg-sub003/internal/beacon"
	"github.com/zarsko3/Petg-sub003/internal/logger"
)

// ObservationMsg carries one advertisement into the scheduler.
type ObservationMsg beacon.Observation

// ScanErrorMsg reports a scanner failure after Start returned.
type ScanErrorMsg struct {
	Err error
}

// Sender delivers messages to the scheduler; tea.Program.Send satisfies it.
type Sender func(tea.Msg)

// Scanner produces observations until stopped.
type Scanner interface {
	Start(send Sender) error
	Stop()
}

// filter drops unnamed advertisements and, when prefix is set, names that
// do not start with it.
type filter struct {
	prefix string
}

func (f filter) observation(address, name string, rssi int, at time.Time) (ObservationMsg, bool) {
	if name == "" {
		return ObservationMsg{}, false
	}
	if f.prefix != "" && !strings.HasPrefix(name, f.prefix) {
		return ObservationMsg{}, false
	}
	return ObservationMsg{Address: address, Name: name, RSSI: rssi, Timestamp: at}, true
}

// BLEScanner scans with a host Bluetooth adapter.
type BLEScanner struct {
	adapter   *bluetooth.Adapter
	adapterID string
	filter    filter
	log       *slog.Logger
	running   atomic.Bool
}

// NewBLEScanner creates a scanner on the adapter named id (e.g. "hci1"); an
// empty id selects the system default. An empty prefix forwards every named
// advertisement.
func NewBLEScanner(prefix, id string, log *slog.Logger) *BLEScanner {
	if id == "" {
		id = defaultAdapterID
	}
	return &BLEScanner{
		adapter:   adapterFor(id),
		adapterID: id,
		filter:    filter{prefix: prefix},
		log:       logger.Component(log, "ble"),
	}
}

// AdapterID returns the adapter the scanner was built for.
func (s *BLEScanner) AdapterID() string { return s.adapterID }

// Start enables the adapter and scans in a goroutine, sending an
// ObservationMsg per matching advertisement.
func (s *BLEScanner) Start(send Sender) error {
	if err := s.adapter.Enable(); err != nil {
		return fmt.Errorf("enable BLE adapter %s: %w (try running with sudo or setcap cap_net_admin+ep)", s.adapterID, err)
	}

	s.running.Store(true)
	go func() {
		err := s.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
			if !s.running.Load() {
				return
			}
			msg, ok := s.filter.observation(result.Address.String(), result.LocalName(), int(result.RSSI), time.Now())
			if !ok {
				return
			}
			send(msg)
		})
		if err != nil && s.running.Load() {
			s.log.Error("scan stopped", "error", err)
			send(ScanErrorMsg{Err: fmt.Errorf("BLE scan: %w", err)})
		}
	}()

	s.log.Info("BLE scan started", "adapter", s.adapterID, "prefix", s.filter.prefix)
	return nil
}

// Stop halts scanning.
func (s *BLEScanner) Stop() {
	if !s.running.Swap(false) {
		return
	}
	if err := s.adapter.StopScan(); err != nil {
		s.log.Warn("stop scan", "error", err)
	}
}

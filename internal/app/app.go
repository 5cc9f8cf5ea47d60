// Package app runs the collar pipeline inside a Bubble Tea program. The
// Update loop is the only goroutine that touches the collar.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zarsko3/Petg-sub003/internal/alert"
	"github.com/zarsko3/Petg-sub003/internal/beacon"
	"github.com/zarsko3/Petg-sub003/internal/bluetooth"
	"github.com/zarsko3/Petg-sub003/internal/collar"
	"github.com/zarsko3/Petg-sub003/internal/config"
	"github.com/zarsko3/Petg-sub003/internal/logger"
	"github.com/zarsko3/Petg-sub003/internal/proximity"
	"github.com/zarsko3/Petg-sub003/internal/store"
	"github.com/zarsko3/Petg-sub003/internal/telemetry"
	"github.com/zarsko3/Petg-sub003/internal/ui"
)

// Options configures the application model.
type Options struct {
	Collar        collar.Options // OnEvent is owned by the app
	Configs       []proximity.Config
	Scanner       bluetooth.Scanner
	Source        string // shown in the menu bar, e.g. "hci0" or "demo"
	Store         *store.ConfigStore
	Telemetry     *telemetry.Options // nil disables MQTT
	SweepInterval time.Duration
	Logger        *slog.Logger
}

// shared holds state shared between the Bubble Tea model copies and main.go.
// Because Bubble Tea uses value receivers, pointer fields ensure all copies
// see the same underlying data.
type shared struct {
	collar    *collar.Collar
	scanner   bluetooth.Scanner
	store     *store.ConfigStore
	telemetry *telemetry.Client
	telOpts   *telemetry.Options
	send      bluetooth.Sender
	events    []collar.Event
	log       *slog.Logger
}

// Model is the root Bubble Tea model.
type Model struct {
	width  int
	height int

	scanning bool
	source   string
	cursor   int
	detail   bool
	sweep    time.Duration

	shared *shared

	// Cached snapshot
	snap collar.Snapshot
}

// New builds the collar and installs the bootstrap configs.
func New(opts Options) (Model, error) {
	log := logger.Component(opts.Logger, "app")
	sh := &shared{
		scanner: opts.Scanner,
		store:   opts.Store,
		telOpts: opts.Telemetry,
		log:     log,
	}

	copts := opts.Collar
	if copts.Logger == nil {
		copts.Logger = opts.Logger
	}
	copts.OnEvent = func(ev collar.Event) { sh.events = append(sh.events, ev) }
	sh.collar = collar.New(copts)

	for _, cfg := range opts.Configs {
		if err := sh.collar.UpsertConfig(cfg); err != nil {
			return Model{}, err
		}
	}

	if opts.SweepInterval <= 0 {
		opts.SweepInterval = config.SweepInterval
	}
	m := Model{
		scanning: true,
		source:   opts.Source,
		sweep:    opts.SweepInterval,
		shared:   sh,
	}
	m.snap = sh.collar.Snapshot(time.Now())
	return m, nil
}

// Collar exposes the pipeline for shutdown and tests. Only use it while the
// program is not running.
func (m Model) Collar() *collar.Collar { return m.shared.collar }

// Start starts the scanner and records the sender used by MQTT callbacks.
// Must be called before p.Run().
func (m Model) Start(send bluetooth.Sender) error {
	m.shared.send = send
	if m.shared.scanner == nil {
		return nil
	}
	return m.shared.scanner.Start(send)
}

// Shutdown stops the scanner, silences the outputs and disconnects MQTT.
// Call it after p.Run() returns.
func (m Model) Shutdown() {
	if m.shared.scanner != nil {
		m.shared.scanner.Stop()
	}
	m.shared.collar.StopAlert(true)
	if m.shared.telemetry != nil {
		m.shared.telemetry.Close()
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(), sweepCmd(m.sweep)}
	if m.shared.telOpts != nil {
		opts := *m.shared.telOpts
		opts.OnConfig = func(p telemetry.ConfigPatch) { m.dispatch(RemoteConfigMsg(p)) }
		opts.OnCommand = func(c telemetry.Command) { m.dispatch(RemoteCommandMsg(c)) }
		cmds = append(cmds, connectCmd(opts))
	}
	return tea.Batch(cmds...)
}

func (m Model) dispatch(msg tea.Msg) {
	if m.shared.send != nil {
		m.shared.send(msg)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TickMsg:
		now := time.Time(msg)
		m.shared.collar.Tick(now)
		m.refresh(now)
		cmds := append(m.flushEvents(), tickCmd())
		if t := m.shared.telemetry; t != nil && t.Due(now) {
			cmds = append(cmds, publishSnapshotCmd(t, m.snap))
		}
		return m, tea.Batch(cmds...)

	case SweepMsg:
		now := time.Time(msg)
		if evicted := m.shared.collar.Sweep(now); len(evicted) > 0 {
			m.shared.log.Debug("evicted stale beacons", "count", len(evicted))
		}
		m.refresh(now)
		return m, tea.Batch(append(m.flushEvents(), sweepCmd(m.sweep))...)

	case bluetooth.ObservationMsg:
		if m.scanning {
			m.shared.collar.Observe(beacon.Observation(msg))
		}
		return m, tea.Batch(m.flushEvents()...)

	case bluetooth.ScanErrorMsg:
		m.shared.log.Error("scanner failed", "error", msg.Err)
		m.scanning = false
		return m, nil

	case RemoteConfigMsg:
		return m.applyRemoteConfig(telemetry.ConfigPatch(msg))

	case RemoteCommandMsg:
		return m.runRemoteCommand(telemetry.Command(msg))

	case TelemetryReadyMsg:
		if msg.Err != nil {
			m.shared.log.Warn("telemetry disabled", "error", msg.Err)
			return m, nil
		}
		m.shared.telemetry = msg.Client
		return m, nil

	case PersistedMsg:
		switch {
		case errors.Is(msg.Err, store.ErrNotFound):
		case msg.Err != nil:
			m.shared.log.Error("persist beacon config", "beacon", msg.BeaconID, "error", msg.Err)
		default:
			m.shared.log.Debug("beacon config persisted", "beacon", msg.BeaconID, "deleted", msg.Deleted)
		}
		return m, nil

	case PublishedMsg:
		m.shared.log.Warn("telemetry publish failed", "topic", msg.Topic, "error", msg.Err)
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		return m, tea.Quit

	case "s", "S":
		m.scanning = true

	case "p", "P":
		m.scanning = false

	case "t", "T":
		now := time.Now()
		if !m.shared.collar.TestAlert(now, alert.ReasonManual, alert.ModeBoth, config.DefaultIntensity, config.DefaultAlertDuration) {
			m.shared.log.Warn("test alert refused", "hardware", m.shared.collar.AlertConfigured())
		}
		m.refresh(now)
		return m, tea.Batch(m.flushEvents()...)

	case "x", "X":
		m.shared.collar.StopAlert(true)
		m.refresh(time.Now())
		return m, tea.Batch(m.flushEvents()...)

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.snap.Beacons)-1 {
			m.cursor++
		}

	case "enter":
		if len(m.snap.Beacons) > 0 {
			m.detail = true
		}

	case "esc":
		m.detail = false
	}

	return m, nil
}

func (m Model) applyRemoteConfig(p telemetry.ConfigPatch) (tea.Model, tea.Cmd) {
	c := m.shared.collar
	if p.Delete {
		if !c.RemoveConfig(p.BeaconID) {
			m.shared.log.Info("remote delete for unknown beacon", "beacon", p.BeaconID)
		}
		m.refresh(time.Now())
		if m.shared.store == nil {
			return m, tea.Batch(m.flushEvents()...)
		}
		return m, tea.Batch(append(m.flushEvents(), deleteCmd(m.shared.store, p.BeaconID))...)
	}

	base, ok := c.Config(p.BeaconID)
	if !ok {
		base = proximity.DefaultConfig(p.BeaconID)
	}
	cfg, err := p.Apply(base)
	if err == nil {
		err = c.UpsertConfig(cfg)
	}
	if err != nil {
		m.shared.log.Warn("rejected remote config", "beacon", p.BeaconID, "error", err)
		return m, nil
	}
	m.refresh(time.Now())
	if m.shared.store == nil {
		return m, nil
	}
	return m, saveCmd(m.shared.store, cfg)
}

func (m Model) runRemoteCommand(cmd telemetry.Command) (tea.Model, tea.Cmd) {
	now := time.Now()
	switch cmd.Action {
	case telemetry.ActionStop:
		stopped := m.shared.collar.StopAlert(cmd.Force)
		m.shared.log.Info("remote stop", "stopped", stopped)
	case telemetry.ActionTest:
		ok := m.shared.collar.TestAlert(now, alert.ReasonRemote, cmd.Mode, cmd.Intensity, cmd.Duration)
		m.shared.log.Info("remote test alert", "started", ok, "mode", cmd.Mode.String())
	}
	m.refresh(now)
	return m, tea.Batch(m.flushEvents()...)
}

func (m *Model) refresh(now time.Time) {
	m.snap = m.shared.collar.Snapshot(now)
	if m.cursor >= len(m.snap.Beacons) {
		m.cursor = max(len(m.snap.Beacons)-1, 0)
	}
	if len(m.snap.Beacons) == 0 {
		m.detail = false
	}
}

// flushEvents logs pending collar events and turns them into publish
// commands when telemetry is connected.
func (m Model) flushEvents() []tea.Cmd {
	events := m.shared.events
	m.shared.events = nil

	var cmds []tea.Cmd
	for _, ev := range events {
		m.shared.log.Info("collar event",
			"kind", string(ev.Kind), "beacon", ev.BeaconID, "reason", string(ev.Reason), "cause", string(ev.Cause))
		if m.shared.telemetry != nil {
			cmds = append(cmds, publishEventCmd(m.shared.telemetry, ev))
		}
	}
	return cmds
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return fmt.Sprintf("Initializing %s...", config.AppName)
	}

	menuH := 1
	statusH := 1
	bodyH := max(m.height-menuH-statusH, 5)

	listW := max(m.width*2/5, 30)
	rightW := m.width - listW
	if rightW < 30 {
		rightW = 30
		listW = max(m.width-rightW, 15)
	}

	menuBar := ui.RenderMenuBar(m.width, m.snap.DeviceID, m.source, m.scanning)
	list := ui.RenderBeaconList(m.snap.Beacons, listW, bodyH, m.cursor)

	var right string
	if m.detail && m.cursor < len(m.snap.Beacons) {
		b := m.snap.Beacons[m.cursor]
		right = ui.RenderDetailPanel(b, m.ruleFor(b.Address), rightW, bodyH)
	} else {
		right = ui.RenderProximityPanel(m.snap.Proximity, rightW, bodyH)
	}

	statusBar := ui.RenderStatusBar(m.width, m.scanning, m.snap)
	return ui.ComposeLayout(menuBar, list, right, statusBar)
}

func (m Model) ruleFor(address string) *proximity.View {
	for i := range m.snap.Proximity {
		if m.snap.Proximity[i].BeaconID == address {
			return &m.snap.Proximity[i]
		}
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zarsko3/Petg-sub003/internal/alert"
	"github.com/zarsko3/Petg-sub003/internal/app"
	"github.com/zarsko3/Petg-sub003/internal/beacon"
	"github.com/zarsko3/Petg-sub003/internal/bluetooth"
	"github.com/zarsko3/Petg-sub003/internal/collar"
	"github.com/zarsko3/Petg-sub003/internal/config"
	"github.com/zarsko3/Petg-sub003/internal/logger"
	"github.com/zarsko3/Petg-sub003/internal/proximity"
	"github.com/zarsko3/Petg-sub003/internal/ranging"
	"github.com/zarsko3/Petg-sub003/internal/store"
	"github.com/zarsko3/Petg-sub003/internal/telemetry"
)

const tuiLogFile = "petcollar.log"

var (
	flagDemo     bool
	flagHeadless bool
	flagConfig   string
	flagAdapter  string
	flagSerial   string
	flagLogLevel string
	flagSeed     int64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pet-collar",
		Short: "Pet collar - BLE proximity alerts for PetZone beacons",
		Long: `pet-collar listens for PetZone BLE beacons, estimates the pet's distance
to each one and drives the collar buzzer and vibration motor when the pet
comes closer than a beacon's trigger distance.

Requires sudo or CAP_NET_ADMIN capability for real Bluetooth scanning.
Use --demo flag for a simulated walk past four beacons without hardware.`,
		SilenceUsage: true,
		RunE:         run,
	}

	rootCmd.Flags().BoolVar(&flagDemo, "demo", false, "Simulate beacons (no Bluetooth required)")
	rootCmd.Flags().BoolVar(&flagHeadless, "headless", false, "Run without the dashboard")
	rootCmd.Flags().StringVar(&flagConfig, "config", "petcollar.yaml", "Path to the YAML config file")
	rootCmd.Flags().StringVar(&flagAdapter, "adapter", "", "Bluetooth adapter id, e.g. hci1 (overrides config; Linux only)")
	rootCmd.Flags().StringVar(&flagSerial, "serial", "", "Serial port of the PWM controller (overrides config)")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.Flags().Int64Var(&flagSeed, "seed", 0, "Demo simulation seed (0 = random)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	// a missing .env is fine
	_ = godotenv.Load()

	settings, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	applyFlags(settings)

	log, closeLog, err := logger.New(settings.Logger)
	if err != nil {
		return err
	}
	defer closeLog()

	driver, closeDriver, err := openDriver(settings.Serial, log)
	if err != nil {
		return err
	}
	defer closeDriver()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var db *store.ConfigStore
	var stored []proximity.Config
	if settings.Store.Path != "" {
		db, err = store.Open(ctx, settings.Store.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		if stored, err = db.LoadConfigs(ctx); err != nil {
			return err
		}
	}

	boot, err := bootstrapConfigs(settings.Beacons)
	if err != nil {
		return err
	}
	if flagDemo && len(boot) == 0 {
		boot = demoConfigs()
	}
	configs := mergeConfigs(boot, stored)

	cal := ranging.FromSettings(settings.Calibration)
	var scanner bluetooth.Scanner
	source := settings.Scan.Adapter
	if flagDemo {
		scanner = bluetooth.NewMockScanner(settings.Scan.NamePrefix, cal, flagSeed, log)
		source = "demo"
	} else {
		scanner = bluetooth.NewBLEScanner(settings.Scan.NamePrefix, settings.Scan.Adapter, log)
	}

	var telOpts *telemetry.Options
	if settings.MQTT.Broker != "" {
		o := telemetry.FromSettings(settings.MQTT, settings.Device.ID)
		o.Logger = log
		telOpts = &o
	}

	model, err := app.New(app.Options{
		Collar: collar.Options{
			DeviceID:     settings.Device.ID,
			Registry:     registryOptions(settings, cal),
			Alert:        alertOptions(settings.Alert),
			Driver:       driver,
			StaleTimeout: settings.Registry.StaleTimeout,
			Logger:       log,
		},
		Configs:       configs,
		Scanner:       scanner,
		Source:        source,
		Store:         db,
		Telemetry:     telOpts,
		SweepInterval: settings.Registry.SweepInterval,
		Logger:        log,
	})
	if err != nil {
		return err
	}
	log.Info("collar starting",
		"device", settings.Device.ID, "source", source, "rules", len(configs),
		"hardware", driver != nil, "telemetry", telOpts != nil)

	progOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if flagHeadless {
		progOpts = []tea.ProgramOption{tea.WithoutRenderer(), tea.WithInput(nil)}
	}
	p := tea.NewProgram(model, progOpts...)

	// Start scanners with reference to the tea program
	if err := model.Start(p.Send); err != nil {
		if !flagDemo {
			fmt.Fprintf(os.Stderr, "\nError: %v\n\n", err)
			fmt.Fprintln(os.Stderr, "Bluetooth scanning requires elevated permissions.")
			fmt.Fprintln(os.Stderr, "Try one of:")
			fmt.Fprintln(os.Stderr, "  sudo ./pet-collar")
			fmt.Fprintln(os.Stderr, "  sudo setcap cap_net_admin+ep ./pet-collar")
			fmt.Fprintln(os.Stderr, "  ./pet-collar --demo    (demo mode, no hardware needed)")
		}
		return err
	}

	_, err = p.Run()
	model.Shutdown()
	if errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}

func applyFlags(s *config.Settings) {
	if flagAdapter != "" {
		s.Scan.Adapter = flagAdapter
	}
	if flagSerial != "" {
		s.Serial.Port = flagSerial
	}
	if flagLogLevel != "" {
		s.Logger.Level = flagLogLevel
	}
	// the dashboard owns the terminal
	if !flagHeadless && (s.Logger.Output == "" || s.Logger.Output == "stdout" || s.Logger.Output == "stderr") {
		s.Logger.Output = tuiLogFile
	}
}

// openDriver opens the serial PWM link when a port is configured. Demo mode
// without a port gets an in-memory driver; otherwise alerts are disabled.
func openDriver(s config.SerialConfig, log *slog.Logger) (alert.Driver, func(), error) {
	noop := func() {}
	if s.Port == "" {
		if flagDemo {
			return &alert.MemoryDriver{}, noop, nil
		}
		log.Warn("no serial port configured, alerts disabled")
		return nil, noop, nil
	}
	drv, err := alert.OpenSerialDriver(s.Port, alert.PortOptions{
		BaudRate: s.BaudRate,
		DataBits: s.DataBits,
		StopBits: s.StopBits,
		Parity:   s.Parity,
	})
	if err != nil {
		return nil, noop, err
	}
	log.Info("alert hardware attached", "port", s.Port, "baud", s.BaudRate)
	return drv, func() {
		if err := drv.Close(); err != nil {
			log.Warn("close serial port", "error", err)
		}
	}, nil
}

func registryOptions(s *config.Settings, cal ranging.Calibration) beacon.Options {
	return beacon.Options{
		Capacity:    s.Registry.Capacity,
		SampleSize:  s.Registry.SampleWindow,
		NamePrefix:  s.Scan.NamePrefix,
		Calibration: cal,
		InRangeCm:   s.Registry.InRangeCm,
	}
}

func alertOptions(s config.AlertConfig) alert.Options {
	return alert.Options{
		BuzzerFrequencyHz: s.BuzzerFrequencyHz,
		MinDuty:           s.MinDuty,
		MaxDuty:           s.MaxDuty,
		PulseOn:           s.PulseOn,
		PulseOff:          s.PulseOff,
	}
}

func bootstrapConfigs(beacons []config.BeaconConfig) ([]proximity.Config, error) {
	out := make([]proximity.Config, 0, len(beacons))
	for _, b := range beacons {
		cfg, err := proximity.FromSettings(b)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

// demoConfigs gives every simulated beacon a rule that fires as the pet
// walks past it.
func demoConfigs() []proximity.Config {
	modes := []alert.Mode{alert.ModeBuzzer, alert.ModeVibration, alert.ModeBoth, alert.ModeNone}
	var out []proximity.Config
	for i, b := range bluetooth.DemoBeacons() {
		cfg := proximity.DefaultConfig(b.Address)
		cfg.Name = b.Name
		cfg.TriggerDistanceCm = 30
		cfg.AlertMode = modes[i%len(modes)]
		cfg.Pattern = alert.PatternPulse
		cfg.AlertDuration = 2 * time.Second
		cfg.DelayEnabled = i%2 == 1
		cfg.ProximityDelay = 400 * time.Millisecond
		out = append(out, cfg)
	}
	return out
}

// mergeConfigs lets stored rules replace bootstrap rules with the same
// beacon id. The result is ordered by beacon id.
func mergeConfigs(boot, stored []proximity.Config) []proximity.Config {
	byID := make(map[string]proximity.Config, len(boot)+len(stored))
	for _, c := range boot {
		byID[c.BeaconID] = c
	}
	for _, c := range stored {
		byID[c.BeaconID] = c
	}
	out := make([]proximity.Config, 0, len(byID))
	for _, c := range byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BeaconID < out[j].BeaconID })
	return out
}

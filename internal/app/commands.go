package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zarsko3/Petg-sub003/internal/collar"
	"github.com/zarsko3/Petg-sub003/internal/config"
	"github.com/zarsko3/Petg-sub003/internal/proximity"
	"github.com/zarsko3/Petg-sub003/internal/store"
	"github.com/zarsko3/Petg-sub003/internal/telemetry"
)

const ioTimeout = 5 * time.Second

func tickCmd() tea.Cmd {
	return tea.Tick(config.TickInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func sweepCmd(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg {
		return SweepMsg(t)
	})
}

func connectCmd(opts telemetry.Options) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), config.MQTTConnectWait)
		defer cancel()
		c, err := telemetry.Connect(ctx, opts)
		return TelemetryReadyMsg{Client: c, Err: err}
	}
}

func saveCmd(s *store.ConfigStore, cfg proximity.Config) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		defer cancel()
		return PersistedMsg{BeaconID: cfg.BeaconID, Err: s.SaveConfig(ctx, cfg)}
	}
}

func deleteCmd(s *store.ConfigStore, beaconID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		defer cancel()
		return PersistedMsg{BeaconID: beaconID, Deleted: true, Err: s.DeleteConfig(ctx, beaconID)}
	}
}

func publishSnapshotCmd(c *telemetry.Client, snap collar.Snapshot) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		defer cancel()
		if err := c.PublishSnapshot(ctx, snap); err != nil {
			return PublishedMsg{Topic: c.Topics().Telemetry, Err: err}
		}
		return nil
	}
}

func publishEventCmd(c *telemetry.Client, ev collar.Event) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		defer cancel()
		if err := c.PublishEvent(ctx, ev); err != nil {
			return PublishedMsg{Topic: c.Topics().Alert, Err: err}
		}
		return nil
	}
}

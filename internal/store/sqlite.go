// Package store persists runtime proximity configs in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zarsko3/Petg-sub003/internal/alert"
	"github.com/zarsko3/Petg-sub003/internal/proximity"
)

// ErrNotFound is returned when a beacon has no stored config.
var ErrNotFound = errors.New("beacon config not found")

// ConfigStore keeps one proximity config row per beacon.
type ConfigStore struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and migrates the schema.
func Open(ctx context.Context, path string) (*ConfigStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open config db: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between tea.Cmd goroutines
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate config db: %w", err)
	}
	return &ConfigStore{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS beacon_configs (
			beacon_id     TEXT PRIMARY KEY,
			name          TEXT NOT NULL DEFAULT '',
			trigger_cm    REAL NOT NULL,
			alert_mode    TEXT NOT NULL,
			intensity     INTEGER NOT NULL,
			duration_ms   INTEGER NOT NULL,
			pattern       TEXT NOT NULL DEFAULT 'continuous',
			delay_enabled INTEGER NOT NULL DEFAULT 0,
			delay_ms      INTEGER NOT NULL DEFAULT 0,
			cooldown_ms   INTEGER NOT NULL,
			updated_at    TEXT NOT NULL
		)
	`)
	return err
}

// Close closes the database.
func (s *ConfigStore) Close() error {
	return s.db.Close()
}

// LoadConfigs returns every stored config ordered by beacon id.
func (s *ConfigStore) LoadConfigs(ctx context.Context) ([]proximity.Config, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT beacon_id, name, trigger_cm, alert_mode, intensity, duration_ms,
		       pattern, delay_enabled, delay_ms, cooldown_ms
		FROM beacon_configs ORDER BY beacon_id`)
	if err != nil {
		return nil, fmt.Errorf("query configs: %w", err)
	}
	defer rows.Close()

	var out []proximity.Config
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate configs: %w", err)
	}
	return out, nil
}

// SaveConfig inserts or replaces the config for cfg.BeaconID.
func (s *ConfigStore) SaveConfig(ctx context.Context, cfg proximity.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO beacon_configs (beacon_id, name, trigger_cm, alert_mode, intensity,
			duration_ms, pattern, delay_enabled, delay_ms, cooldown_ms, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(beacon_id) DO UPDATE SET
			name = excluded.name,
			trigger_cm = excluded.trigger_cm,
			alert_mode = excluded.alert_mode,
			intensity = excluded.intensity,
			duration_ms = excluded.duration_ms,
			pattern = excluded.pattern,
			delay_enabled = excluded.delay_enabled,
			delay_ms = excluded.delay_ms,
			cooldown_ms = excluded.cooldown_ms,
			updated_at = excluded.updated_at`,
		cfg.BeaconID, cfg.Name, cfg.TriggerDistanceCm, cfg.AlertMode.String(), cfg.Intensity,
		cfg.AlertDuration.Milliseconds(), cfg.Pattern.String(), cfg.DelayEnabled,
		cfg.ProximityDelay.Milliseconds(), cfg.Cooldown.Milliseconds(),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save config %s: %w", cfg.BeaconID, err)
	}
	return nil
}

// DeleteConfig removes a beacon's config.
func (s *ConfigStore) DeleteConfig(ctx context.Context, beaconID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM beacon_configs WHERE beacon_id = ?", beaconID)
	if err != nil {
		return fmt.Errorf("delete config %s: %w", beaconID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConfig(row scanner) (proximity.Config, error) {
	var (
		cfg                            proximity.Config
		mode, pattern                  string
		durationMs, delayMs, coolingMs int64
	)
	err := row.Scan(&cfg.BeaconID, &cfg.Name, &cfg.TriggerDistanceCm, &mode, &cfg.Intensity,
		&durationMs, &pattern, &cfg.DelayEnabled, &delayMs, &coolingMs)
	if err != nil {
		return proximity.Config{}, fmt.Errorf("scan config: %w", err)
	}
	if cfg.AlertMode, err = alert.ParseMode(mode); err != nil {
		return proximity.Config{}, fmt.Errorf("config %s: %w", cfg.BeaconID, err)
	}
	if cfg.Pattern, err = alert.ParsePattern(pattern); err != nil {
		return proximity.Config{}, fmt.Errorf("config %s: %w", cfg.BeaconID, err)
	}
	cfg.AlertDuration = time.Duration(durationMs) * time.Millisecond
	cfg.ProximityDelay = time.Duration(delayMs) * time.Millisecond
	cfg.Cooldown = time.Duration(coolingMs) * time.Millisecond
	return cfg, nil
}

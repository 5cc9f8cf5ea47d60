// Package beacon tracks PetZone beacons and smooths their signal.
package beacon

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/zarsko3/Petg-sub003/internal/config"
	"github.com/zarsko3/Petg-sub003/internal/logger"
	"github.com/zarsko3/Petg-sub003/internal/ranging"
)

// Options configures a Registry.
type Options struct {
	Capacity    int    // maximum tracked beacons
	SampleSize  int    // moving average window
	NamePrefix  string // names must start with this
	Calibration ranging.Calibration
	InRangeCm   float64 // distance marking a location as in range
	Logger      *slog.Logger
}

// DefaultOptions returns the built-in registry settings.
func DefaultOptions() Options {
	return Options{
		Capacity:    config.MaxBeacons,
		SampleSize:  config.SampleWindow,
		NamePrefix:  config.NamePrefix,
		Calibration: ranging.DefaultCalibration(),
		InRangeCm:   config.InRangeCm,
	}
}

// Stats counts registry activity since creation.
type Stats struct {
	Tracked      int    `json:"tracked"`
	Observations uint64 `json:"observations"`
	Rejected     uint64 `json:"rejected"` // unnamed or wrong prefix
	Dropped      uint64 `json:"dropped"`  // registry full
	Evicted      uint64 `json:"evicted"`
}

// Registry owns the set of known beacons keyed by address. It is not safe
// for concurrent use; a single scheduler goroutine owns it.
type Registry struct {
	opts      Options
	log       *slog.Logger
	records   map[string]*Record
	lastSweep time.Time
	stats     Stats
}

// NewRegistry creates an empty registry. Non-positive sizes fall back to
// the defaults.
func NewRegistry(opts Options) *Registry {
	def := DefaultOptions()
	if opts.Capacity < 1 {
		opts.Capacity = def.Capacity
	}
	if opts.SampleSize < 1 {
		opts.SampleSize = def.SampleSize
	}
	if opts.Calibration == (ranging.Calibration{}) {
		opts.Calibration = def.Calibration
	}
	return &Registry{
		opts:    opts,
		log:     logger.Component(opts.Logger, "registry"),
		records: make(map[string]*Record, opts.Capacity),
	}
}

// Accepts reports whether an advertised name passes the prefix filter.
func (r *Registry) Accepts(name string) bool {
	return name != "" && strings.HasPrefix(name, r.opts.NamePrefix)
}

// Ingest folds one observation into the registry. It returns the updated
// record and true, or nil and false when the observation was rejected by
// the name filter or dropped because the registry is full.
func (r *Registry) Ingest(obs Observation) (*Record, bool) {
	if !r.Accepts(obs.Name) {
		r.stats.Rejected++
		return nil, false
	}

	rec, ok := r.records[obs.Address]
	if !ok {
		if len(r.records) >= r.opts.Capacity {
			r.stats.Dropped++
			r.log.Debug("registry full, dropping beacon", "address", obs.Address, "name", obs.Name)
			return nil, false
		}
		rec = newRecord(obs, r.opts.NamePrefix, r.opts.SampleSize)
		r.records[obs.Address] = rec
		r.log.Info("beacon discovered", "address", obs.Address, "name", obs.Name, "location", rec.Info.Location)
	} else if obs.Name != "" && obs.Name != rec.Name {
		rec.Name = obs.Name
		rec.Info = ParseName(r.opts.NamePrefix, obs.Name)
	}

	rec.update(obs, r.opts.Calibration)
	r.stats.Observations++
	return rec, true
}

// FindByAddress returns the record for address, if tracked.
func (r *Registry) FindByAddress(address string) (*Record, bool) {
	rec, ok := r.records[address]
	return rec, ok
}

// IsStable reports whether the record has seen at least half a window of
// samples.
func (r *Registry) IsStable(rec *Record) bool {
	return rec != nil && rec.Stable()
}

// EvictStale removes every record with now - LastSeen > timeout and returns
// the evicted addresses in sorted order. Survivors not heard since the
// previous sweep are marked inactive.
func (r *Registry) EvictStale(now time.Time, timeout time.Duration) []string {
	var evicted []string
	for addr, rec := range r.records {
		if now.Sub(rec.LastSeen) > timeout {
			delete(r.records, addr)
			evicted = append(evicted, addr)
			continue
		}
		rec.Active = !rec.LastSeen.Before(r.lastSweep)
	}
	r.lastSweep = now
	r.stats.Evicted += uint64(len(evicted))

	sort.Strings(evicted)
	for _, addr := range evicted {
		r.log.Info("beacon evicted", "address", addr)
	}
	return evicted
}

// Snapshot returns views of all records, closest first.
func (r *Registry) Snapshot(now time.Time) []RecordView {
	result := make([]RecordView, 0, len(r.records))
	for _, rec := range r.records {
		result = append(result, rec.View(now))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DistanceCm != result[j].DistanceCm {
			return result[i].DistanceCm < result[j].DistanceCm
		}
		return result[i].Address < result[j].Address
	})
	return result
}

// Count returns the number of tracked beacons.
func (r *Registry) Count() int {
	return len(r.records)
}

// Stats returns a copy of the registry counters.
func (r *Registry) Stats() Stats {
	s := r.stats
	s.Tracked = len(r.records)
	return s
}

// Location groups the active beacons sharing a location name.
type Location struct {
	Name        string  `json:"name"`
	ActiveCount int     `json:"activeCount"`
	AverageRSSI float64 `json:"averageRssi"`
	ClosestCm   float64 `json:"closestCm"`
	InRange     bool    `json:"inRange"`
}

// Locations groups active beacons by location, sorted by name.
func (r *Registry) Locations() []Location {
	groups := make(map[string]*Location)
	sums := make(map[string]float64)
	for _, rec := range r.records {
		if !rec.Active {
			continue
		}
		name := rec.Info.Location
		loc, ok := groups[name]
		if !ok {
			loc = &Location{Name: name, ClosestCm: rec.DistanceCm}
			groups[name] = loc
		}
		loc.ActiveCount++
		sums[name] += rec.FilteredRSSI
		if rec.DistanceCm < loc.ClosestCm {
			loc.ClosestCm = rec.DistanceCm
		}
		if rec.DistanceCm <= r.opts.InRangeCm {
			loc.InRange = true
		}
	}

	result := make([]Location, 0, len(groups))
	for name, loc := range groups {
		loc.AverageRSSI = sums[name] / float64(loc.ActiveCount)
		result = append(result, *loc)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// LocationSummary renders e.g. "Locations: Garden(1), Home(2)*", where
// '*' marks a location with a beacon in range.
func (r *Registry) LocationSummary() string {
	var b strings.Builder
	b.WriteString("Locations: ")
	for i, loc := range r.Locations() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(loc.Name)
		b.WriteByte('(')
		b.WriteString(strconv.Itoa(loc.ActiveCount))
		b.WriteByte(')')
		if loc.InRange {
			b.WriteByte('*')
		}
	}
	return b.String()
}

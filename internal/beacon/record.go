package beacon

import (
	"time"

	"github.com/zarsko3/Petg-sub003/internal/ranging"
)

// Observation is one advertisement delivered by a scan adapter.
type Observation struct {
	Address   string
	RSSI      int // dBm
	Name      string
	Timestamp time.Time
}

// Record is the registry's state for one beacon address.
type Record struct {
	Address           string
	Name              string
	Info              NameInfo
	Samples           *SampleRing
	FilteredRSSI      float64
	DistanceCm        float64
	Confidence        float64
	FirstSeen         time.Time
	LastSeen          time.Time
	TotalObservations int
	Active            bool
}

func newRecord(obs Observation, prefix string, window int) *Record {
	return &Record{
		Address:   obs.Address,
		Name:      obs.Name,
		Info:      ParseName(prefix, obs.Name),
		Samples:   NewSampleRing(window),
		FirstSeen: obs.Timestamp,
	}
}

func (r *Record) update(obs Observation, cal ranging.Calibration) {
	r.Samples.Push(float64(obs.RSSI))
	r.FilteredRSSI = r.Samples.Mean()
	est := cal.Estimate(r.FilteredRSSI)
	r.DistanceCm = est.DistanceCm
	r.Confidence = est.Confidence
	r.TotalObservations++
	r.LastSeen = obs.Timestamp
	r.Active = true
}

// Stable reports whether enough samples have arrived for the filtered
// value to be trusted (half the window, rounded down).
func (r *Record) Stable() bool {
	return r.TotalObservations >= r.Samples.Cap()/2
}

// DisplayName returns the advertised name or "[unnamed]" if empty.
func (r *Record) DisplayName() string {
	if r.Name == "" {
		return "[unnamed]"
	}
	return r.Name
}

// Age returns how long ago the beacon was last heard.
func (r *Record) Age(now time.Time) time.Duration {
	if now.Before(r.LastSeen) {
		return 0
	}
	return now.Sub(r.LastSeen)
}

// RecordView is a read-only copy of a Record for display and telemetry.
type RecordView struct {
	Address           string        `json:"address"`
	Name              string        `json:"name"`
	NameInfo                        // location, zone, id, function, priority
	FilteredRSSI      float64       `json:"rssi"`
	DistanceCm        float64       `json:"distanceCm"`
	Confidence        float64       `json:"confidence"`
	LastSeenAgeMs     int64         `json:"lastSeenAgeMs"`
	Age               time.Duration `json:"-"`
	Active            bool          `json:"active"`
	Stable            bool          `json:"stable"`
	TotalObservations int           `json:"totalObservations"`
	Samples           []float64     `json:"samples,omitempty"`
}

// View copies the record at time now.
func (r *Record) View(now time.Time) RecordView {
	age := r.Age(now)
	return RecordView{
		Address:           r.Address,
		Name:              r.Name,
		NameInfo:          r.Info,
		FilteredRSSI:      r.FilteredRSSI,
		DistanceCm:        r.DistanceCm,
		Confidence:        r.Confidence,
		LastSeenAgeMs:     age.Milliseconds(),
		Age:               age,
		Active:            r.Active,
		Stable:            r.Stable(),
		TotalObservations: r.TotalObservations,
		Samples:           r.Samples.Values(),
	}
}

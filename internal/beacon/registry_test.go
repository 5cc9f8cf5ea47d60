package beacon

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Unix(1_700_000_000, 0)

func obs(addr, name string, rssi int, at time.Duration) Observation {
	return Observation{Address: addr, Name: name, RSSI: rssi, Timestamp: base.Add(at)}
}

func TestIngestRejectsNonMatchingNames(t *testing.T) {
	r := NewRegistry(DefaultOptions())

	_, ok := r.Ingest(obs("AA", "", -50, 0))
	assert.False(t, ok)
	_, ok = r.Ingest(obs("BB", "JBL Flip 5", -50, 0))
	assert.False(t, ok)

	assert.Equal(t, 0, r.Count())
	assert.Equal(t, uint64(2), r.Stats().Rejected)
}

func TestIngestCreatesAndUpdatesRecord(t *testing.T) {
	r := NewRegistry(DefaultOptions())

	rec, ok := r.Ingest(obs("AA", "PetZone-Home-01", -29, 0))
	require.True(t, ok)
	assert.Equal(t, -29.0, rec.FilteredRSSI)
	assert.InDelta(t, 1.0, rec.DistanceCm, 1e-9)
	assert.Equal(t, 1.0, rec.Confidence)
	assert.Equal(t, base, rec.FirstSeen)
	assert.True(t, rec.Active)
	assert.Equal(t, "Home", rec.Info.Location)
	assert.False(t, rec.Stable(), "one sample of a five-sample window")

	rec, ok = r.Ingest(obs("AA", "PetZone-Home-01", -31, time.Second))
	require.True(t, ok)
	assert.Equal(t, -30.0, rec.FilteredRSSI)
	assert.Equal(t, 2, rec.TotalObservations)
	assert.Equal(t, base.Add(time.Second), rec.LastSeen)
	assert.Equal(t, base, rec.FirstSeen)
	assert.True(t, r.IsStable(rec))
	assert.Equal(t, 1, r.Count())
}

func TestIngestFilterMeanOverWindow(t *testing.T) {
	r := NewRegistry(DefaultOptions())
	raw := []int{-40, -42, -44, -46, -48, -70, -72}
	var rec *Record
	for i, v := range raw {
		rec, _ = r.Ingest(obs("AA", "PetZone-Home-01", v, time.Duration(i)*time.Second))
	}
	assert.Equal(t, (-44.0-46-48-70-72)/5, rec.FilteredRSSI)
}

func TestIngestDropsAtCapacity(t *testing.T) {
	opts := DefaultOptions()
	opts.Capacity = 2
	r := NewRegistry(opts)

	for i := 0; i < 2; i++ {
		_, ok := r.Ingest(obs(fmt.Sprintf("A%d", i), "PetZone-Home-01", -50, 0))
		require.True(t, ok)
	}
	_, ok := r.Ingest(obs("A2", "PetZone-Home-02", -50, 0))
	assert.False(t, ok)
	assert.Equal(t, uint64(1), r.Stats().Dropped)

	// known beacons still update at capacity
	_, ok = r.Ingest(obs("A0", "PetZone-Home-01", -55, time.Second))
	assert.True(t, ok)

	// eviction frees a slot
	evicted := r.EvictStale(base.Add(20*time.Second), 10*time.Second)
	assert.Equal(t, []string{"A0", "A1"}, evicted)
	_, ok = r.Ingest(obs("A2", "PetZone-Home-02", -50, 21*time.Second))
	assert.True(t, ok)
}

func TestEvictStaleRoundTrip(t *testing.T) {
	r := NewRegistry(DefaultOptions())
	r.Ingest(obs("OLD", "PetZone-Home-01", -50, 0))
	r.Ingest(obs("NEW", "PetZone-Garden-01", -50, 9*time.Second))

	evicted := r.EvictStale(base.Add(10*time.Second+time.Millisecond), 10*time.Second)
	assert.Equal(t, []string{"OLD"}, evicted)

	_, found := r.FindByAddress("OLD")
	assert.False(t, found)
	_, found = r.FindByAddress("NEW")
	assert.True(t, found)
	assert.Equal(t, uint64(1), r.Stats().Evicted)
}

func TestEvictStaleBoundaryIsExclusive(t *testing.T) {
	r := NewRegistry(DefaultOptions())
	r.Ingest(obs("AA", "PetZone-Home-01", -50, 0))

	assert.Empty(t, r.EvictStale(base.Add(10*time.Second), 10*time.Second))
	assert.Equal(t, 1, r.Count())
}

func TestSweepMarksSilentBeaconsInactive(t *testing.T) {
	r := NewRegistry(DefaultOptions())
	r.Ingest(obs("AA", "PetZone-Home-01", -50, 0))
	r.Ingest(obs("BB", "PetZone-Home-02", -50, 0))

	r.EvictStale(base.Add(2*time.Second), 10*time.Second)
	r.Ingest(obs("AA", "PetZone-Home-01", -50, 3*time.Second))
	r.EvictStale(base.Add(4*time.Second), 10*time.Second)

	a, _ := r.FindByAddress("AA")
	b, _ := r.FindByAddress("BB")
	assert.True(t, a.Active)
	assert.False(t, b.Active)

	r.Ingest(obs("BB", "PetZone-Home-02", -50, 5*time.Second))
	assert.True(t, b.Active)
}

func TestSnapshotSortedByDistance(t *testing.T) {
	r := NewRegistry(DefaultOptions())
	r.Ingest(obs("FAR", "PetZone-Garden-01", -80, 0))
	r.Ingest(obs("NEAR", "PetZone-Home-01", -35, 0))
	r.Ingest(obs("MID", "PetZone-Home-02", -55, 0))

	snap := r.Snapshot(base.Add(1500 * time.Millisecond))
	require.Len(t, snap, 3)
	assert.Equal(t, "NEAR", snap[0].Address)
	assert.Equal(t, "MID", snap[1].Address)
	assert.Equal(t, "FAR", snap[2].Address)
	assert.Equal(t, int64(1500), snap[0].LastSeenAgeMs)
	assert.Equal(t, []float64{-35}, snap[0].Samples)
	assert.Equal(t, "Home", snap[0].Location)
}

func TestLocationSummary(t *testing.T) {
	opts := DefaultOptions()
	opts.InRangeCm = 50
	r := NewRegistry(opts)
	r.Ingest(obs("H1", "PetZone-Home-Living-01", -35, 0))
	r.Ingest(obs("H2", "PetZone-Home-Kitchen-02", -60, 0))
	r.Ingest(obs("G1", "PetZone-Garden-01", -85, 0))

	locs := r.Locations()
	require.Len(t, locs, 2)
	assert.Equal(t, "Garden", locs[0].Name)
	assert.False(t, locs[0].InRange)
	assert.Equal(t, "Home", locs[1].Name)
	assert.Equal(t, 2, locs[1].ActiveCount)
	assert.Equal(t, -47.5, locs[1].AverageRSSI)
	assert.True(t, locs[1].InRange)

	assert.Equal(t, "Locations: Garden(1), Home(2)*", r.LocationSummary())
}

func TestRenamedBeaconReparsed(t *testing.T) {
	r := NewRegistry(DefaultOptions())
	r.Ingest(obs("AA", "PetZone-Home-01", -50, 0))
	rec, _ := r.Ingest(obs("AA", "PetZone-Garden-01", -50, time.Second))
	assert.Equal(t, "Garden", rec.Info.Location)
}

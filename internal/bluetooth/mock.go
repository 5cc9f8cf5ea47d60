package bluetooth

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/zarsko3/Petg-sub003/internal/config"
	"github.com/zarsko3/Petg-sub003/internal/logger"
	"github.com/zarsko3/Petg-sub003/internal/ranging"
)

// DemoBeacon is a simulated PetZone beacon at a fixed spot in the house.
type DemoBeacon struct {
	Address string
	Name    string
	X, Y    float64 // meters
}

var demoBeacons = []DemoBeacon{
	{"C0:FF:EE:00:00:01", "PetZone-Kitchen-Counter-01", 2.0, 0},
	{"C0:FF:EE:00:00:02", "PetZone-Home-Sofa-02", 0, 2.0},
	{"C0:FF:EE:00:00:03", "PetZone-Garden-01", -2.0, 0},
	{"C0:FF:EE:00:00:04", "PetZone-Safe-01", 0, -2.0},
}

// Devices that never pass the name filter.
var bystanders = []string{"iPhone 15 Pro", "JBL Flip 6", "Apple Watch", ""}

// DemoBeacons returns the simulated beacons.
func DemoBeacons() []DemoBeacon {
	out := make([]DemoBeacon, len(demoBeacons))
	copy(out, demoBeacons)
	return out
}

type bystander struct {
	mac      string
	name     string
	baseRSSI float64
	phase    float64
}

// MockScanner simulates a pet walking a loop past the demo beacons.
type MockScanner struct {
	filter     filter
	cal        ranging.Calibration
	rng        *rand.Rand
	speed      float64 // radians per second
	radius     float64 // meters
	bystanders []bystander
	log        *slog.Logger
	cancel     context.CancelFunc
}

// NewMockScanner creates a demo scanner. Seed 0 picks a random seed.
func NewMockScanner(prefix string, cal ranging.Calibration, seed int64, log *slog.Logger) *MockScanner {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	bs := make([]bystander, len(bystanders))
	for i, name := range bystanders {
		bs[i] = bystander{
			mac:      randomMAC(rng),
			name:     name,
			baseRSSI: -55 - rng.Float64()*35,
			phase:    rng.Float64() * 2 * math.Pi,
		}
	}

	return &MockScanner{
		filter:     filter{prefix: prefix},
		cal:        cal,
		rng:        rng,
		speed:      config.DemoPetSpeed,
		radius:     2.0,
		bystanders: bs,
		log:        logger.Component(log, "mock-scanner"),
	}
}

// Start emits simulated advertisements every 200 ms until Stop.
func (s *MockScanner) Start(send Sender) error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.loop(ctx, send)
	s.log.Info("demo scan started", "beacons", len(demoBeacons))
	return nil
}

func (s *MockScanner) loop(ctx context.Context, send Sender) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, msg := range s.emit(now.Sub(start).Seconds(), now) {
				send(msg)
			}
		}
	}
}

// PetPosition returns where the simulated pet is t seconds into the walk.
func (s *MockScanner) PetPosition(t float64) (x, y float64) {
	angle := s.speed * t
	return s.radius * math.Cos(angle), s.radius * math.Sin(angle)
}

// emit produces one round of advertisements t seconds into the walk.
func (s *MockScanner) emit(t float64, now time.Time) []ObservationMsg {
	px, py := s.PetPosition(t)
	msgs := make([]ObservationMsg, 0, len(demoBeacons)+len(s.bystanders))

	for _, b := range demoBeacons {
		// advertisements are occasionally missed
		if s.rng.Float64() < 0.1 {
			continue
		}
		d := max(math.Hypot(b.X-px, b.Y-py), 0.01)
		rssi := s.rssiAt(d) + s.rng.NormFloat64()*1.5
		if msg, ok := s.filter.observation(b.Address, b.Name, int(math.Round(rssi)), now); ok {
			msgs = append(msgs, msg)
		}
	}

	for _, b := range s.bystanders {
		rssi := b.baseRSSI + 6*math.Sin(t*0.5+b.phase)
		if msg, ok := s.filter.observation(b.mac, b.name, int(rssi), now); ok {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

// rssiAt inverts the path loss model.
func (s *MockScanner) rssiAt(meters float64) float64 {
	rssi := s.cal.TxPowerRefDbm - 10*s.cal.PathLossExponent*math.Log10(meters)
	return min(rssi, -1)
}

// Stop halts the simulation.
func (s *MockScanner) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func randomMAC(rng *rand.Rand) string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = byte(rng.Intn(256))
	}
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", b[0], b[1], b[2], b[3], b[4], b[5])
}

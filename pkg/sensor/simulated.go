package sensor

import (
	"math"
	"math/rand"
	"sync"
)

// Simulated produces a slow random walk around indoor conditions, for
// development boards without a sensor attached
type Simulated struct {
	mu          sync.Mutex
	rng         *rand.Rand
	temperature float64
	humidity    float64
}

// NewSimulated creates a simulated sensor seeded with seed
func NewSimulated(seed int64) *Simulated {
	return &Simulated{
		rng:         rand.New(rand.NewSource(seed)),
		temperature: 21.5,
		humidity:    45.0,
	}
}

func (s *Simulated) Name() string { return "simulated" }

func (s *Simulated) Configure() error { return nil }

// Read moves each value by at most 0.1 and rounds to two decimals
func (s *Simulated) Read() (temperature, humidity float64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.temperature = clamp(s.temperature+(s.rng.Float64()-0.5)*0.2, 15, 30)
	s.humidity = clamp(s.humidity+(s.rng.Float64()-0.5)*0.2, 30, 70)
	return round2(s.temperature), round2(s.humidity), nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

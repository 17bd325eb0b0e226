// Package simulator produces plausible vessel motion when no live feed is
// configured: a bounded random walk on position plus freshly drawn motion
// fields.
package simulator

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/NaguruReddySameera/LiveTracking-project/internal/vessel"
)

const DefaultMaxSpeed = 25.0

type Options struct {
	// Jitter bounds the per-sample position change in degrees.
	Jitter float64
	// MaxSpeed is the upper bound of the drawn speed over ground, in knots.
	MaxSpeed float64
	// KeepMotion copies speed, heading, course and status from the input
	// instead of drawing new values.
	KeepMotion bool
	Now        func() time.Time
}

// Simulator is safe for concurrent use.
type Simulator struct {
	opts Options

	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a simulator drawing from src. A nil src seeds from the clock.
func New(opts Options, src rand.Source) *Simulator {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	if opts.MaxSpeed <= 0 {
		opts.MaxSpeed = DefaultMaxSpeed
	}
	if opts.Jitter < 0 {
		opts.Jitter = -opts.Jitter
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Simulator{opts: opts, rng: rand.New(src)}
}

func (s *Simulator) Jitter() float64 { return s.opts.Jitter }

// Simulate returns the next sample for st. It never mutates st and never
// produces coordinates outside the valid range.
func (s *Simulator) Simulate(st vessel.State) vessel.PositionUpdate {
	s.mu.Lock()
	dLat := s.uniform(-s.opts.Jitter, s.opts.Jitter)
	dLon := s.uniform(-s.opts.Jitter, s.opts.Jitter)
	u := vessel.PositionUpdate{
		SpeedOverGround:  st.SpeedOverGround,
		Heading:          st.Heading,
		CourseOverGround: st.CourseOverGround,
		NavStatus:        st.NavStatus,
	}
	if !s.opts.KeepMotion {
		u.SpeedOverGround = math.Round(s.uniform(0, s.opts.MaxSpeed)*10) / 10
		u.Heading = s.rng.Intn(360)
		u.CourseOverGround = float64(s.rng.Intn(360))
		u.NavStatus = vessel.NavStatuses[s.rng.Intn(len(vessel.NavStatuses))]
	}
	s.mu.Unlock()

	u.Latitude = vessel.Clamp(finite(st.Latitude)+dLat, -90, 90)
	u.Longitude = vessel.Clamp(finite(st.Longitude)+dLon, -180, 180)
	u.Source = vessel.SourceSimulated
	u.Timestamp = s.opts.Now()
	return u
}

// uniform draws from [lo, hi). Callers hold mu.
func (s *Simulator) uniform(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + s.rng.Float64()*(hi-lo)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

package simulator

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/NaguruReddySameera/LiveTracking-project/internal/store"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/vessel"
)

func TestSimulateStaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	edges := []float64{-90, 90, -180, 180, 0}

	for i := 0; i < 5000; i++ {
		jitter := rng.Float64() * 5
		sim := New(Options{Jitter: jitter}, rand.NewSource(int64(i)))

		st := vessel.State{
			Latitude:  rng.Float64()*180 - 90,
			Longitude: rng.Float64()*360 - 180,
		}
		// Exercise the edges of the range every few draws.
		if i%7 == 0 {
			st.Latitude = edges[i%2]
			st.Longitude = edges[2+i%2]
		}

		u := sim.Simulate(st)
		if !vessel.ValidCoordinates(u.Latitude, u.Longitude) {
			t.Fatalf("draw %d: (%v,%v) jitter %v -> (%v,%v) out of range",
				i, st.Latitude, st.Longitude, jitter, u.Latitude, u.Longitude)
		}
		if math.Abs(u.Latitude-st.Latitude) > jitter+1e-9 {
			t.Fatalf("draw %d: latitude moved %v, bound %v", i, u.Latitude-st.Latitude, jitter)
		}
		if u.SpeedOverGround < 0 || u.SpeedOverGround > DefaultMaxSpeed {
			t.Fatalf("speed %v outside [0,%v]", u.SpeedOverGround, DefaultMaxSpeed)
		}
		if u.Heading < 0 || u.Heading > 359 || u.CourseOverGround < 0 || u.CourseOverGround > 359 {
			t.Fatalf("heading/course %d/%v out of range", u.Heading, u.CourseOverGround)
		}
		if u.Source != vessel.SourceSimulated {
			t.Fatalf("source = %q", u.Source)
		}
	}
}

func TestSimulateNonFiniteInput(t *testing.T) {
	sim := New(Options{Jitter: 0.01}, rand.NewSource(1))
	u := sim.Simulate(vessel.State{Latitude: math.NaN(), Longitude: math.Inf(1)})
	if !vessel.ValidCoordinates(u.Latitude, u.Longitude) {
		t.Errorf("non-finite input produced (%v,%v)", u.Latitude, u.Longitude)
	}
}

func TestSimulateZeroJitterKeepsPosition(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	sim := New(Options{Jitter: 0, KeepMotion: true, Now: func() time.Time { return now }}, rand.NewSource(7))

	st := vessel.State{Latitude: 58.5, Longitude: 18.0, SpeedOverGround: 12.5, Heading: 45, CourseOverGround: 44, NavStatus: vessel.AtAnchor}
	u := sim.Simulate(st)

	if u.Latitude != 58.5 || u.Longitude != 18.0 {
		t.Errorf("position moved with zero jitter: (%v,%v)", u.Latitude, u.Longitude)
	}
	if u.SpeedOverGround != 12.5 || u.Heading != 45 || u.NavStatus != vessel.AtAnchor {
		t.Errorf("motion not kept: %+v", u)
	}
	if !u.Timestamp.Equal(now) {
		t.Errorf("timestamp = %v, want %v", u.Timestamp, now)
	}
}

func TestSimulateDoesNotMutateInput(t *testing.T) {
	sim := New(Options{Jitter: 1}, rand.NewSource(3))
	st := vessel.State{ID: 1, Latitude: 10, Longitude: 10}
	orig := st
	_ = sim.Simulate(st)
	if st != orig {
		t.Error("Simulate mutated its input")
	}
}

func TestSimulateDrawsEveryStatus(t *testing.T) {
	sim := New(Options{}, rand.NewSource(99))
	seen := make(map[vessel.NavStatus]bool)
	for i := 0; i < 1000; i++ {
		seen[sim.Simulate(vessel.State{}).NavStatus] = true
	}
	if len(seen) != len(vessel.NavStatuses) {
		t.Errorf("drew %d distinct statuses, want %d", len(seen), len(vessel.NavStatuses))
	}
}

type failingStore struct {
	*store.Memory
	failID int64
}

func (f *failingStore) ApplyUpdate(ctx context.Context, id int64, u vessel.PositionUpdate) error {
	if id == f.failID {
		return vessel.ErrUnavailable
	}
	return f.Memory.ApplyUpdate(ctx, id, u)
}

func TestRefreshSkipsFailedVessel(t *testing.T) {
	mem := store.NewMemory()
	a := mem.Put(vessel.State{Latitude: 58.5, Longitude: 18, IsTracked: true})
	b := mem.Put(vessel.State{Latitude: 51.5, Longitude: 5, IsTracked: true})
	mem.Put(vessel.State{Latitude: 1, Longitude: 1, IsTracked: false})

	fs := &failingStore{Memory: mem, failID: a}
	r := NewRefresher(fs, New(Options{Jitter: 0.05}, rand.NewSource(5)), time.Minute)

	if n := r.Refresh(context.Background()); n != 1 {
		t.Fatalf("Refresh wrote %d vessels, want 1", n)
	}

	got, _ := mem.Get(context.Background(), b)
	if got.LastUpdate.IsZero() {
		t.Error("vessel b was not refreshed")
	}
	untouched, _ := mem.Get(context.Background(), a)
	if !untouched.LastUpdate.IsZero() {
		t.Error("failed vessel a was modified")
	}
}

type downStore struct{ *store.Memory }

func (downStore) ListTracked(context.Context) ([]vessel.State, error) {
	return nil, vessel.ErrUnavailable
}

func TestRefreshStoreUnavailable(t *testing.T) {
	r := NewRefresher(downStore{store.NewMemory()}, New(Options{}, nil), time.Minute)
	if n := r.Refresh(context.Background()); n != 0 {
		t.Errorf("Refresh = %d, want 0", n)
	}
}

func TestRefresherServeStopsOnCancel(t *testing.T) {
	r := NewRefresher(store.NewMemory(), New(Options{}, nil), time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

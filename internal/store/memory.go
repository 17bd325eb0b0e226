// Package store provides vessel.Store implementations: an in-memory store
// used by tests and demo mode, and a SQLite-backed store for persistent
// deployments.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/NaguruReddySameera/LiveTracking-project/internal/vessel"
)

// Memory is a mutex-guarded in-memory vessel.Store. All reads return copies.
type Memory struct {
	mu          sync.RWMutex
	vessels     map[int64]vessel.State
	assignments map[string][]vessel.Assignment
	nextID      int64
	now         func() time.Time
}

var _ vessel.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		vessels:     make(map[int64]vessel.State),
		assignments: make(map[string][]vessel.Assignment),
		nextID:      1,
		now:         time.Now,
	}
}

// Put inserts or replaces a vessel. A zero ID is assigned the next free id,
// which is returned.
func (m *Memory) Put(s vessel.State) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == 0 {
		s.ID = m.nextID
	}
	if s.ID >= m.nextID {
		m.nextID = s.ID + 1
	}
	m.vessels[s.ID] = s
	return s.ID
}

// Assign records an assignment, replacing an existing one for the same
// user and vessel.
func (m *Memory) Assign(a vessel.Assignment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.assignments[a.UserID]
	for i := range list {
		if list[i].VesselID == a.VesselID {
			list[i] = a
			return
		}
	}
	m.assignments[a.UserID] = append(list, a)
}

func (m *Memory) ListTracked(_ context.Context) ([]vessel.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]vessel.State, 0, len(m.vessels))
	for _, s := range m.vessels {
		if s.IsTracked {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) Get(_ context.Context, id int64) (vessel.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.vessels[id]
	if !ok {
		return vessel.State{}, fmt.Errorf("vessel %d: %w", id, vessel.ErrNotFound)
	}
	return s, nil
}

func (m *Memory) ApplyUpdate(_ context.Context, id int64, u vessel.PositionUpdate) error {
	if !vessel.ValidCoordinates(u.Latitude, u.Longitude) {
		return fmt.Errorf("vessel %d: %w", id, vessel.ErrCoordinateOutOfRange)
	}
	if u.Timestamp.IsZero() {
		u.Timestamp = m.now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.vessels[id]
	if !ok {
		return fmt.Errorf("vessel %d: %w", id, vessel.ErrNotFound)
	}
	m.vessels[id] = s.Apply(u)
	return nil
}

func (m *Memory) ListAssignments(_ context.Context, userID string) ([]vessel.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.assignments[userID]
	out := make([]vessel.Assignment, len(list))
	copy(out, list)
	return out, nil
}

func (m *Memory) ResolveMMSI(_ context.Context, mmsis []string) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := make(map[string]bool, len(mmsis))
	for _, mmsi := range mmsis {
		want[mmsi] = true
	}
	out := make(map[string]int64)
	for _, s := range m.vessels {
		if s.MMSI != "" && want[s.MMSI] {
			out[s.MMSI] = s.ID
		}
	}
	return out, nil
}

// Count returns the number of stored vessels, tracked or not.
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vessels)
}

// Package demo seeds a small North Sea and Mediterranean fleet with an
// operator assignment set, for local runs started with -demo.
package demo

import (
	"context"
	"fmt"
	"time"

	"github.com/NaguruReddySameera/LiveTracking-project/internal/logging"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/store"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/vessel"
)

const (
	OperatorUserID = "operator@test.com"
	// MaxAssignments caps how many seeded vessels the operator tracks.
	MaxAssignments = 15
)

// Fleet is the demo vessel set.
var Fleet = []vessel.State{
	{MMSI: "211378120", Name: "NORDIC VOYAGER", Type: "Cargo", FlagCountry: "SE", Latitude: 58.5, Longitude: 18.0,
		SpeedOverGround: 12.5, CourseOverGround: 180, Heading: 182, Destination: "Rotterdam", NavStatus: vessel.Underway},
	{MMSI: "244660050", Name: "DEEP OCEAN", Type: "Tanker", FlagCountry: "NL", Latitude: 51.5, Longitude: 5.0,
		SpeedOverGround: 8.3, CourseOverGround: 270, Heading: 272, Destination: "Hamburg", NavStatus: vessel.Underway},
	{MMSI: "235067890", Name: "ARCTIC STAR", Type: "Fishing", FlagCountry: "NO", Latitude: 60.5, Longitude: 20.0,
		SpeedOverGround: 6.5, CourseOverGround: 45, Heading: 47, Destination: "Bergen", NavStatus: vessel.Fishing},
	{MMSI: "636067890", Name: "ATLANTIC DREAM", Type: "Passenger", FlagCountry: "IT", Latitude: 45.0, Longitude: 15.0,
		SpeedOverGround: 16.0, CourseOverGround: 90, Heading: 92, Destination: "Venice", NavStatus: vessel.Underway},
	{MMSI: "538008960", Name: "NORTH TUG", Type: "Tug", FlagCountry: "DK", Latitude: 56.0, Longitude: 12.0,
		SpeedOverGround: 4.5, CourseOverGround: 0, Heading: 2, Destination: "Copenhagen", NavStatus: vessel.AtAnchor},
}

// Target is a store that can be seeded.
type Target interface {
	Upsert(ctx context.Context, v vessel.State) (int64, error)
	Assign(ctx context.Context, a vessel.Assignment) error
}

// Result summarizes a seeding run.
type Result struct {
	VesselIDs   []int64
	Assignments int
}

// Seed upserts the demo fleet by MMSI, marked tracked and last heard at
// now, then assigns the first MaxAssignments vessels to the demo operator.
// Running it twice leaves the store unchanged apart from timestamps.
func Seed(ctx context.Context, t Target, now time.Time) (Result, error) {
	var res Result
	for _, v := range Fleet {
		v.IsTracked = true
		v.LastUpdate = now
		id, err := t.Upsert(ctx, v)
		if err != nil {
			return res, fmt.Errorf("seed %s: %w", v.Name, err)
		}
		res.VesselIDs = append(res.VesselIDs, id)
	}

	for i, id := range res.VesselIDs {
		if i == MaxAssignments {
			break
		}
		if err := t.Assign(ctx, vessel.Assignment{UserID: OperatorUserID, VesselID: id, IsActive: true}); err != nil {
			return res, fmt.Errorf("assign vessel %d: %w", id, err)
		}
		res.Assignments++
	}

	logging.Info().Int("vessels", len(res.VesselIDs)).Int("assignments", res.Assignments).
		Str("operator", OperatorUserID).Msg("demo fleet seeded")
	return res, nil
}

// Memory adapts an in-memory store to Target.
func Memory(m *store.Memory) Target { return memoryTarget{m} }

type memoryTarget struct{ m *store.Memory }

func (t memoryTarget) Upsert(ctx context.Context, v vessel.State) (int64, error) {
	ids, err := t.m.ResolveMMSI(ctx, []string{v.MMSI})
	if err != nil {
		return 0, err
	}
	v.ID = ids[v.MMSI]
	return t.m.Put(v), nil
}

func (t memoryTarget) Assign(_ context.Context, a vessel.Assignment) error {
	t.m.Assign(a)
	return nil
}

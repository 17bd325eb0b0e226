package broadcast

import (
	"math"
	"sort"
	"time"

	"github.com/NaguruReddySameera/LiveTracking-project/internal/ais"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/subscription"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/vessel"
)

const (
	// staleAfter marks a vessel as stale in the health summary.
	staleAfter = time.Hour
	// activeWithin is the window in which a vessel counts as communicating.
	activeWithin = 30 * time.Minute
)

// Snapshot is one role-filtered view of a channel at one tick.
type Snapshot struct {
	Channel   subscription.Channel
	Role      vessel.RoleContext
	Vessels   []vessel.State
	Contacts  []ais.Record
	Generated time.Time

	// Health channel only.
	Feed          *ais.HealthSnapshot
	Host          *HostStats
	Subscriptions map[string]int
}

// Project turns a snapshot into the channel's payload.
func Project(snap Snapshot) any {
	switch snap.Channel {
	case subscription.Vessels:
		return projectVessels(snap)
	case subscription.Ships:
		return projectShips(snap)
	case subscription.Analyst:
		return projectAnalyst(snap)
	case subscription.Health:
		return projectHealth(snap)
	}
	return nil
}

type Position struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Speed   float64 `json:"speed"`
	Heading int     `json:"heading"`
	Course  float64 `json:"course"`
}

type VesselView struct {
	ID          int64     `json:"id"`
	MMSI        string    `json:"mmsi"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	Position    Position  `json:"position"`
	Destination string    `json:"destination"`
	Timestamp   time.Time `json:"timestamp"`
}

type VesselsPayload struct {
	Success   bool         `json:"success"`
	Count     int          `json:"count"`
	Data      []VesselView `json:"data"`
	Contacts  []ais.Record `json:"contacts,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

func projectVessels(snap Snapshot) VesselsPayload {
	views := make([]VesselView, 0, len(snap.Vessels))
	for _, v := range snap.Vessels {
		views = append(views, VesselView{
			ID:     v.ID,
			MMSI:   v.MMSI,
			Name:   v.Name,
			Type:   v.Type,
			Status: v.NavStatus.String(),
			Position: Position{
				Lat:     v.Latitude,
				Lng:     v.Longitude,
				Speed:   v.SpeedOverGround,
				Heading: v.Heading,
				Course:  v.CourseOverGround,
			},
			Destination: v.Destination,
			Timestamp:   snap.Generated,
		})
	}
	return VesselsPayload{
		Success:   true,
		Count:     len(views),
		Data:      views,
		Contacts:  snap.Contacts,
		Timestamp: snap.Generated,
	}
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Motion struct {
	Speed   float64 `json:"speed"`
	Heading int     `json:"heading"`
	Course  float64 `json:"course"`
}

type ShipView struct {
	ID         int64      `json:"id"`
	MMSI       string     `json:"mmsi"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Country    string     `json:"country"`
	Status     string     `json:"status"`
	Position   LatLng     `json:"position"`
	Motion     Motion     `json:"motion"`
	LastUpdate *time.Time `json:"lastUpdate"`
}

type ShipsPayload struct {
	Success   bool       `json:"success"`
	Total     int        `json:"total"`
	Data      []ShipView `json:"data"`
	Timestamp time.Time  `json:"timestamp"`
}

// projectShips lists vessels most recently updated first.
func projectShips(snap Snapshot) ShipsPayload {
	ordered := make([]vessel.State, len(snap.Vessels))
	copy(ordered, snap.Vessels)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].LastUpdate.After(ordered[j].LastUpdate)
	})

	views := make([]ShipView, 0, len(ordered))
	for _, v := range ordered {
		var last *time.Time
		if !v.LastUpdate.IsZero() {
			t := v.LastUpdate
			last = &t
		}
		views = append(views, ShipView{
			ID:       v.ID,
			MMSI:     v.MMSI,
			Name:     v.Name,
			Type:     v.Type,
			Country:  v.FlagCountry,
			Status:   v.NavStatus.String(),
			Position: LatLng{Lat: v.Latitude, Lng: v.Longitude},
			Motion: Motion{
				Speed:   v.SpeedOverGround,
				Heading: v.Heading,
				Course:  v.CourseOverGround,
			},
			LastUpdate: last,
		})
	}
	return ShipsPayload{Success: true, Total: len(views), Data: views, Timestamp: snap.Generated}
}

type Bucket struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type FleetSummary struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

type SpeedSummary struct {
	Average float64 `json:"average"`
	Max     float64 `json:"max"`
	Min     float64 `json:"min"`
}

type AnalystData struct {
	Summary FleetSummary `json:"summary"`
	Status  []Bucket     `json:"status"`
	Types   []Bucket     `json:"types"`
	Speed   SpeedSummary `json:"speed"`
}

type AnalystPayload struct {
	Success   bool        `json:"success"`
	Data      AnalystData `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// projectAnalyst summarizes the visible fleet in memory.
func projectAnalyst(snap Snapshot) AnalystPayload {
	var data AnalystData
	status := make(map[string]int)
	types := make(map[string]int)
	var sum float64
	data.Speed.Min = math.Inf(1)

	for _, v := range snap.Vessels {
		data.Summary.Total++
		if communicating(v, snap.Generated) {
			data.Summary.Active++
		}
		status[v.NavStatus.String()]++
		types[v.Type]++
		sum += v.SpeedOverGround
		data.Speed.Max = math.Max(data.Speed.Max, v.SpeedOverGround)
		data.Speed.Min = math.Min(data.Speed.Min, v.SpeedOverGround)
	}
	data.Summary.Inactive = data.Summary.Total - data.Summary.Active
	if data.Summary.Total > 0 {
		data.Speed.Average = math.Round(sum/float64(data.Summary.Total)*100) / 100
	} else {
		data.Speed.Min = 0
	}
	data.Status = buckets(status)
	data.Types = buckets(types)

	return AnalystPayload{Success: true, Data: data, Timestamp: snap.Generated}
}

// buckets orders counts by count descending, then name.
func buckets(counts map[string]int) []Bucket {
	out := make([]Bucket, 0, len(counts))
	for name, n := range counts {
		out = append(out, Bucket{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

type FleetStatus struct {
	Healthy  int `json:"healthy"`
	Warning  int `json:"warning"`
	Critical int `json:"critical"`
	Stale    int `json:"stale"`
}

type Communication struct {
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

type HealthData struct {
	FleetStatus   FleetStatus         `json:"fleet_status"`
	Communication Communication       `json:"communication"`
	Total         int                 `json:"total"`
	Feed          *ais.HealthSnapshot `json:"ais_feed,omitempty"`
	Host          *HostStats          `json:"host,omitempty"`
	Subscriptions map[string]int      `json:"subscriptions,omitempty"`
}

type HealthPayload struct {
	Success   bool       `json:"success"`
	Data      HealthData `json:"data"`
	Timestamp time.Time  `json:"timestamp"`
}

// projectHealth buckets vessels by status: underway is healthy, at anchor
// a warning, aground critical. Vessels not heard from within staleAfter
// are stale.
func projectHealth(snap Snapshot) HealthPayload {
	data := HealthData{
		Feed:          snap.Feed,
		Host:          snap.Host,
		Subscriptions: snap.Subscriptions,
	}
	for _, v := range snap.Vessels {
		data.Total++
		switch v.NavStatus {
		case vessel.Underway:
			data.FleetStatus.Healthy++
		case vessel.AtAnchor:
			data.FleetStatus.Warning++
		case vessel.Aground:
			data.FleetStatus.Critical++
		}
		if !v.LastUpdate.IsZero() && snap.Generated.Sub(v.LastUpdate) > staleAfter {
			data.FleetStatus.Stale++
		}
		if communicating(v, snap.Generated) {
			data.Communication.Active++
		}
	}
	data.Communication.Inactive = data.Total - data.Communication.Active
	return HealthPayload{Success: true, Data: data, Timestamp: snap.Generated}
}

func communicating(v vessel.State, now time.Time) bool {
	return !v.LastUpdate.IsZero() && now.Sub(v.LastUpdate) <= activeWithin
}

type VesselPositionPayload struct {
	Success   bool      `json:"success"`
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Position  Position  `json:"position"`
	Timestamp time.Time `json:"timestamp"`
}

func projectPosition(v vessel.State, now time.Time) VesselPositionPayload {
	return VesselPositionPayload{
		Success: true,
		ID:      v.ID,
		Name:    v.Name,
		Position: Position{
			Lat:     v.Latitude,
			Lng:     v.Longitude,
			Speed:   v.SpeedOverGround,
			Heading: v.Heading,
			Course:  v.CourseOverGround,
		},
		Timestamp: now,
	}
}

package vessel

import (
	"math"
	"time"

	"github.com/goccy/go-json"
)

// NavStatus is the AIS navigational status of a vessel.
type NavStatus int

const (
	Underway NavStatus = iota
	AtAnchor
	NotUnderCommand
	RestrictedManeuverability
	Moored
	Aground
	Fishing
)

// NavStatuses lists every status in declaration order.
var NavStatuses = []NavStatus{
	Underway,
	AtAnchor,
	NotUnderCommand,
	RestrictedManeuverability,
	Moored,
	Aground,
	Fishing,
}

var navStatusNames = map[NavStatus]string{
	Underway:                  "underway",
	AtAnchor:                  "at_anchor",
	NotUnderCommand:           "not_under_command",
	RestrictedManeuverability: "restricted_maneuverability",
	Moored:                    "moored",
	Aground:                   "aground",
	Fishing:                   "fishing",
}

var navStatusFromName = map[string]NavStatus{
	"underway":                   Underway,
	"at_anchor":                  AtAnchor,
	"not_under_command":          NotUnderCommand,
	"restricted_maneuverability": RestrictedManeuverability,
	"moored":                     Moored,
	"aground":                    Aground,
	"fishing":                    Fishing,
}

func (n NavStatus) String() string {
	if s, ok := navStatusNames[n]; ok {
		return s
	}
	return "unknown"
}

// ParseNavStatus maps a status name to its value.
func ParseNavStatus(s string) (NavStatus, bool) {
	v, ok := navStatusFromName[s]
	return v, ok
}

func (n NavStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.String())
}

func (n *NavStatus) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if v, ok := navStatusFromName[s]; ok {
		*n = v
	}
	return nil
}

// Source tags where a PositionUpdate came from.
type Source string

const (
	SourceSimulated Source = "simulated"
	SourceAIS       Source = "ais"
	SourceManual    Source = "manual"
)

// State is a read-derived copy of a vessel record. The store owns the
// authoritative record; everything else works on values.
type State struct {
	ID               int64     `json:"id"`
	MMSI             string    `json:"mmsi"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	FlagCountry      string    `json:"flagCountry"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	SpeedOverGround  float64   `json:"speedOverGround"`
	Heading          int       `json:"heading"`
	CourseOverGround float64   `json:"courseOverGround"`
	NavStatus        NavStatus `json:"navigationalStatus"`
	Destination      string    `json:"destination"`
	LastUpdate       time.Time `json:"lastUpdate"`
	IsTracked        bool      `json:"isTracked"`
}

// PositionUpdate is a candidate position/motion sample. It is handed to the
// store, which is the only writer of vessel records.
type PositionUpdate struct {
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	SpeedOverGround  float64   `json:"speedOverGround"`
	Heading          int       `json:"heading"`
	CourseOverGround float64   `json:"courseOverGround"`
	NavStatus        NavStatus `json:"navigationalStatus"`
	Source           Source    `json:"source"`
	Timestamp        time.Time `json:"timestamp"`
}

// Apply returns a copy of s with the update's position and motion fields.
func (s State) Apply(u PositionUpdate) State {
	s.Latitude = u.Latitude
	s.Longitude = u.Longitude
	s.SpeedOverGround = u.SpeedOverGround
	s.Heading = u.Heading
	s.CourseOverGround = u.CourseOverGround
	s.NavStatus = u.NavStatus
	if !u.Timestamp.IsZero() {
		s.LastUpdate = u.Timestamp
	}
	return s
}

// ValidCoordinates reports whether lat/lon lie within [-90,90] and [-180,180].
func ValidCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

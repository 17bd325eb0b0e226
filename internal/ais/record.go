// Package ais queries an external AIS position feed, joins the returned
// records to registered vessels by MMSI and reconciles them with stored
// state.
package ais

import (
	"time"

	"github.com/NaguruReddySameera/LiveTracking-project/internal/vessel"
)

// Record is one vessel report from the external feed. VesselID is nil when
// the MMSI matches no registered vessel.
type Record struct {
	VesselID         *int64           `json:"id"`
	MMSI             string           `json:"mmsi"`
	Name             string           `json:"name"`
	Type             string           `json:"type"`
	Latitude         float64          `json:"latitude"`
	Longitude        float64          `json:"longitude"`
	SpeedOverGround  float64          `json:"speed"`
	CourseOverGround float64          `json:"course"`
	Heading          int              `json:"heading"`
	NavStatus        vessel.NavStatus `json:"status"`
	Destination      string           `json:"destination"`
	ReportedAt       time.Time        `json:"timestamp"`
}

// Registered reports whether the record was joined to a known vessel.
func (r Record) Registered() bool { return r.VesselID != nil }

// Update converts the record into a position update tagged as AIS.
func (r Record) Update() vessel.PositionUpdate {
	return vessel.PositionUpdate{
		Latitude:         r.Latitude,
		Longitude:        r.Longitude,
		SpeedOverGround:  r.SpeedOverGround,
		Heading:          r.Heading,
		CourseOverGround: r.CourseOverGround,
		NavStatus:        r.NavStatus,
		Source:           vessel.SourceAIS,
		Timestamp:        r.ReportedAt,
	}
}

// FromState builds a record from a stored vessel, used by the offline feed.
func FromState(s vessel.State) Record {
	id := s.ID
	return Record{
		VesselID:         &id,
		MMSI:             s.MMSI,
		Name:             s.Name,
		Type:             s.Type,
		Latitude:         s.Latitude,
		Longitude:        s.Longitude,
		SpeedOverGround:  s.SpeedOverGround,
		CourseOverGround: s.CourseOverGround,
		Heading:          s.Heading,
		NavStatus:        s.NavStatus,
		Destination:      s.Destination,
		ReportedAt:       s.LastUpdate,
	}
}

// navStatusFromCode maps ITU-R M.1371 navigational status codes onto the
// tracked status set. Codes outside the set report as underway.
func navStatusFromCode(code int) vessel.NavStatus {
	switch code {
	case 1:
		return vessel.AtAnchor
	case 2:
		return vessel.NotUnderCommand
	case 3, 4:
		return vessel.RestrictedManeuverability
	case 5:
		return vessel.Moored
	case 6:
		return vessel.Aground
	case 7:
		return vessel.Fishing
	default:
		return vessel.Underway
	}
}

// shipTypeName maps the AIS ship type code to a coarse category.
func shipTypeName(code int) string {
	switch {
	case code == 30:
		return "Fishing"
	case code == 31 || code == 32 || code == 52:
		return "Tug"
	case code >= 60 && code <= 69:
		return "Passenger"
	case code >= 70 && code <= 79:
		return "Cargo"
	case code >= 80 && code <= 89:
		return "Tanker"
	case code == 0:
		return ""
	default:
		return "Other"
	}
}

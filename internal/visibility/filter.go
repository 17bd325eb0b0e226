// Package visibility restricts vessel collections to what a caller's role
// may see.
package visibility

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/NaguruReddySameera/LiveTracking-project/internal/ais"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/logging"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/vessel"
)

// Policy holds the role visibility rules.
//
//	operator  vessels with an active assignment for the user
//	analyst   everything
//	admin     everything
//
// An operator with no active assignment sees everything when
// FallbackToFullVisibility is set and nothing otherwise. Unknown roles see
// nothing.
type Policy struct {
	FallbackToFullVisibility bool

	log zerolog.Logger
}

func NewPolicy(fallbackToFull bool) *Policy {
	return &Policy{
		FallbackToFullVisibility: fallbackToFull,
		log: logging.With().Str("component", "visibility").Logger().
			Sample(&zerolog.BurstSampler{Burst: 1, Period: time.Minute}),
	}
}

// Scope is the visibility predicate for one caller.
type Scope struct {
	all bool
	ids map[int64]struct{}
}

// All reports whether the scope admits every vessel, including AIS
// contacts that match no registered vessel.
func (s Scope) All() bool { return s.all }

func (s Scope) Allows(id int64) bool {
	if s.all {
		return true
	}
	_, ok := s.ids[id]
	return ok
}

// Scope builds the predicate for a caller. Assignments belonging to other
// users or marked inactive are ignored.
func (p *Policy) Scope(role vessel.Role, userID string, assignments []vessel.Assignment) Scope {
	switch role {
	case vessel.RoleAnalyst, vessel.RoleAdmin:
		return Scope{all: true}
	case vessel.RoleOperator:
	default:
		return Scope{}
	}

	ids := make(map[int64]struct{})
	for _, a := range assignments {
		if a.IsActive && a.UserID == userID {
			ids[a.VesselID] = struct{}{}
		}
	}
	if len(ids) == 0 && p.FallbackToFullVisibility {
		p.log.Warn().Str("user_id", userID).Msg("operator has no active assignments; granting full visibility")
		return Scope{all: true}
	}
	return Scope{ids: ids}
}

// Filter returns the visible subsequence of vessels in input order. The
// input is never modified and the result is always a fresh slice.
func (p *Policy) Filter(vessels []vessel.State, role vessel.Role, userID string, assignments []vessel.Assignment) []vessel.State {
	return p.Scope(role, userID, assignments).Filter(vessels)
}

// FilterRecords applies the same rules to AIS records. Records with no
// internal id are visible only to a scope that admits everything.
func (p *Policy) FilterRecords(recs []ais.Record, role vessel.Role, userID string, assignments []vessel.Assignment) []ais.Record {
	return p.Scope(role, userID, assignments).FilterRecords(recs)
}

func (s Scope) Filter(vessels []vessel.State) []vessel.State {
	out := make([]vessel.State, 0, len(vessels))
	for _, v := range vessels {
		if s.Allows(v.ID) {
			out = append(out, v)
		}
	}
	return out
}

func (s Scope) FilterRecords(recs []ais.Record) []ais.Record {
	out := make([]ais.Record, 0, len(recs))
	for _, r := range recs {
		if r.VesselID == nil {
			if s.all {
				out = append(out, r)
			}
			continue
		}
		if s.Allows(*r.VesselID) {
			out = append(out, r)
		}
	}
	return out
}

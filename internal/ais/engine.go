package ais

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/NaguruReddySameera/LiveTracking-project/internal/logging"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/metrics"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/vessel"
)

var (
	// ErrNoMMSI is returned when a vessel without an MMSI is refreshed from
	// the feed.
	ErrNoMMSI = errors.New("vessel has no MMSI")

	// ErrNoData is returned when the feed has no report for a vessel or
	// could not be reached.
	ErrNoData = errors.New("no AIS data available")
)

// Engine wraps a Feed with validation, identity join and write-back.
// The feed is treated as unreliable: query failures degrade to empty
// results and are recorded in Health instead of being returned.
type Engine struct {
	feed   Feed
	store  vessel.Store
	health *Health
	log    zerolog.Logger
}

func NewEngine(feed Feed, store vessel.Store, health *Health) *Engine {
	if health == nil {
		health = NewHealth(0)
	}
	return &Engine{
		feed:   feed,
		store:  store,
		health: health,
		log:    logging.With().Str("component", "ais").Logger(),
	}
}

// FetchArea returns the feed's records inside the box. An invalid box fails
// with vessel.ErrInvalidBoundingBox before the feed is contacted; any feed
// failure yields an empty result and a nil error.
func (e *Engine) FetchArea(ctx context.Context, minLat, maxLat, minLon, maxLon float64) ([]Record, error) {
	return e.FetchBox(ctx, vessel.BoundingBox{MinLat: minLat, MaxLat: maxLat, MinLon: minLon, MaxLon: maxLon})
}

func (e *Engine) FetchBox(ctx context.Context, box vessel.BoundingBox) ([]Record, error) {
	if err := box.Validate(); err != nil {
		metrics.RecordAISRequest("area", "rejected")
		return nil, err
	}

	raw, err := e.feed.Area(ctx, box)
	if err != nil {
		e.feedFailed(ctx, "area", err)
		return []Record{}, nil
	}
	e.feedOK("area")

	recs := make([]Record, 0, len(raw))
	for _, rec := range raw {
		if !vessel.ValidCoordinates(rec.Latitude, rec.Longitude) {
			metrics.AISRecordsDropped.WithLabelValues("out_of_range").Inc()
			continue
		}
		if !box.Contains(rec.Latitude, rec.Longitude) {
			metrics.AISRecordsDropped.WithLabelValues("outside_bbox").Inc()
			continue
		}
		rec.VesselID = nil
		recs = append(recs, rec)
	}
	e.join(ctx, recs)
	return recs, nil
}

// FetchByIdentity returns the latest record for mmsi, joined to its vessel.
// ok is false when the feed has no record or failed.
func (e *Engine) FetchByIdentity(ctx context.Context, mmsi string) (rec *Record, ok bool) {
	if mmsi == "" {
		return nil, false
	}
	got, err := e.feed.ByMMSI(ctx, mmsi)
	if err != nil {
		e.feedFailed(ctx, "identity", err)
		return nil, false
	}
	e.feedOK("identity")
	if got == nil {
		return nil, false
	}

	out := *got
	out.VesselID = nil
	recs := []Record{out}
	e.join(ctx, recs)
	return &recs[0], true
}

// WriteBack persists a record's position to its vessel. Records with
// invalid coordinates are rejected with vessel.ErrCoordinateOutOfRange and
// nothing is written.
func (e *Engine) WriteBack(ctx context.Context, rec Record) error {
	if !vessel.ValidCoordinates(rec.Latitude, rec.Longitude) {
		metrics.AISRecordsDropped.WithLabelValues("out_of_range").Inc()
		return fmt.Errorf("mmsi %s (%g,%g): %w", rec.MMSI, rec.Latitude, rec.Longitude, vessel.ErrCoordinateOutOfRange)
	}
	if rec.VesselID == nil {
		return fmt.Errorf("mmsi %s: %w", rec.MMSI, vessel.ErrNotFound)
	}
	if err := e.store.ApplyUpdate(ctx, *rec.VesselID, rec.Update()); err != nil {
		metrics.RecordStoreError("apply_update")
		return err
	}
	return nil
}

// UpdateFromAIS refreshes one registered vessel from the feed and returns
// its new state.
func (e *Engine) UpdateFromAIS(ctx context.Context, vesselID int64) (vessel.State, error) {
	st, err := e.store.Get(ctx, vesselID)
	if err != nil {
		return vessel.State{}, err
	}
	if st.MMSI == "" {
		return vessel.State{}, fmt.Errorf("vessel %d: %w", vesselID, ErrNoMMSI)
	}

	rec, ok := e.FetchByIdentity(ctx, st.MMSI)
	if !ok {
		return vessel.State{}, fmt.Errorf("mmsi %s: %w", st.MMSI, ErrNoData)
	}
	rec.VesselID = &vesselID
	if err := e.WriteBack(ctx, *rec); err != nil {
		return vessel.State{}, err
	}

	e.log.Info().Int64("vessel_id", vesselID).Str("mmsi", st.MMSI).Msg("vessel updated from ais")
	return e.store.Get(ctx, vesselID)
}

// Health returns the feed health, including the breaker state when the
// feed has one.
func (e *Engine) Health() HealthSnapshot {
	snap := e.health.Snapshot()
	if b, ok := e.feed.(interface{ BreakerState() string }); ok {
		snap.Breaker = b.BreakerState()
	}
	return snap
}

// join attaches internal vessel ids in place. A failed lookup leaves every
// id nil; the records are still returned.
func (e *Engine) join(ctx context.Context, recs []Record) {
	if len(recs) == 0 {
		return
	}
	mmsis := make([]string, 0, len(recs))
	for _, rec := range recs {
		mmsis = append(mmsis, rec.MMSI)
	}
	ids, err := e.store.ResolveMMSI(ctx, mmsis)
	if err != nil {
		metrics.RecordStoreError("resolve_mmsi")
		e.log.Warn().Err(err).Int("records", len(recs)).Msg("mmsi join failed")
		return
	}
	for i := range recs {
		if id, ok := ids[recs[i].MMSI]; ok {
			recs[i].VesselID = &id
		}
	}
}

func (e *Engine) feedOK(kind string) {
	metrics.RecordAISRequest(kind, "ok")
	e.health.RecordSuccess()
}

func (e *Engine) feedFailed(ctx context.Context, kind string, err error) {
	if ctx.Err() != nil {
		return
	}
	metrics.RecordAISRequest(kind, "error")
	e.health.RecordFailure(err)
	e.log.Warn().Err(err).Str("kind", kind).Msg("ais feed query failed")
}

// Reconcile overlays AIS positions onto stored vessel states. A record
// wins when it is newer than the stored state or carries no report time;
// identity fields stay with the store, except an empty destination which
// is filled from the record. The input is not modified.
func Reconcile(states []vessel.State, recs []Record) []vessel.State {
	byID := make(map[int64]Record, len(recs))
	for _, rec := range recs {
		if rec.VesselID != nil && vessel.ValidCoordinates(rec.Latitude, rec.Longitude) {
			byID[*rec.VesselID] = rec
		}
	}

	out := make([]vessel.State, len(states))
	for i, st := range states {
		rec, ok := byID[st.ID]
		if ok && (rec.ReportedAt.IsZero() || rec.ReportedAt.After(st.LastUpdate)) {
			st = st.Apply(rec.Update())
			if st.Destination == "" {
				st.Destination = rec.Destination
			}
		}
		out[i] = st
	}
	return out
}

// Unregistered returns the records that matched no known vessel.
func Unregistered(recs []Record) []Record {
	var out []Record
	for _, rec := range recs {
		if !rec.Registered() {
			out = append(out, rec)
		}
	}
	return out
}

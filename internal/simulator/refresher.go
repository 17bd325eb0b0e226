package simulator

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/NaguruReddySameera/LiveTracking-project/internal/logging"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/metrics"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/vessel"
)

// Refresher is the slow background data refresh: on every interval it
// simulates each tracked vessel and persists the sample through the store.
// It implements suture.Service.
type Refresher struct {
	store    vessel.Store
	sim      *Simulator
	interval time.Duration
	log      zerolog.Logger
}

func NewRefresher(store vessel.Store, sim *Simulator, interval time.Duration) *Refresher {
	return &Refresher{
		store:    store,
		sim:      sim,
		interval: interval,
		log:      logging.With().Str("component", "refresher").Logger(),
	}
}

func (r *Refresher) String() string { return "position-refresher" }

// Serve runs until ctx is cancelled.
func (r *Refresher) Serve(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Refresh(ctx)
		}
	}
}

// Refresh runs one pass and returns the number of vessels written.
// Per-vessel failures are logged and skipped.
func (r *Refresher) Refresh(ctx context.Context) int {
	states, err := r.store.ListTracked(ctx)
	if err != nil {
		metrics.RecordStoreError("list_tracked")
		r.log.Warn().Err(err).Msg("refresh skipped")
		return 0
	}

	written := 0
	for _, st := range states {
		if ctx.Err() != nil {
			break
		}
		u := r.sim.Simulate(st)
		if err := r.store.ApplyUpdate(ctx, st.ID, u); err != nil {
			metrics.RecordStoreError("apply_update")
			r.log.Warn().Err(err).Int64("vessel_id", st.ID).Msg("refresh write failed")
			continue
		}
		written++
	}
	metrics.SimulatedUpdates.WithLabelValues("refresh").Add(float64(written))
	r.log.Debug().Int("vessels", written).Msg("positions refreshed")
	return written
}

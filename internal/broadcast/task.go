package broadcast

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/NaguruReddySameera/LiveTracking-project/internal/ais"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/metrics"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/subscription"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/vessel"
)

const unavailableText = "vessel data temporarily unavailable, retrying next tick"

// State is the position of a channel task in its tick cycle.
type State int32

const (
	Idle State = iota
	Computing
	Delivering
)

func (s State) String() string {
	switch s {
	case Computing:
		return "computing"
	case Delivering:
		return "delivering"
	default:
		return "idle"
	}
}

// Task ticks one timer-driven channel. It implements suture.Service.
type Task struct {
	s       *Scheduler
	channel subscription.Channel
	cfg     ChannelConfig
	log     zerolog.Logger

	state atomic.Int32
	ticks atomic.Uint64
	// tickMu serializes ticks of this channel.
	tickMu sync.Mutex
}

// Report describes one tick.
type Report struct {
	Channel subscription.Channel
	Members int
	Groups  int
	Results []Result
	Skipped bool
	Err     error
}

// Delivered counts successful deliveries.
func (r Report) Delivered() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == Delivered {
			n++
		}
	}
	return n
}

func (t *Task) String() string { return "broadcast-" + string(t.channel) }

func (t *Task) Channel() subscription.Channel { return t.channel }

func (t *Task) State() State { return State(t.state.Load()) }

// Ticks returns the number of completed ticks.
func (t *Task) Ticks() uint64 { return t.ticks.Load() }

func (t *Task) setState(s State) { t.state.Store(int32(s)) }

// Serve ticks on the channel interval until ctx is cancelled.
func (t *Task) Serve(ctx context.Context) error {
	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()

	t.log.Info().Dur("interval", t.cfg.Interval).Str("source", string(t.cfg.Source)).Msg("channel task started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.Tick(ctx)
		}
	}
}

// Tick runs Idle -> Computing -> Delivering -> Idle once. Per-vessel and
// per-connection failures never abort the tick.
func (t *Task) Tick(ctx context.Context) Report {
	t.tickMu.Lock()
	defer t.tickMu.Unlock()
	defer t.ticks.Add(1)

	start := time.Now()
	ch := string(t.channel)
	members := t.s.registry.MembersOf(t.channel)
	rep := Report{Channel: t.channel, Members: len(members)}

	if len(members) == 0 && !t.cfg.WriteThrough {
		rep.Skipped = true
		metrics.RecordTick(ch, "skipped", time.Since(start))
		return rep
	}

	t.setState(Computing)
	defer t.setState(Idle)

	data, err := t.gather(ctx, t.cfg.WriteThrough)
	if err != nil {
		rep.Err = err
		t.log.Warn().Err(err).Msg("tick skipped, store unavailable")
		frame, encErr := Encode(ErrorMessage(t.channel, unavailableText, t.s.now()))
		if encErr == nil {
			t.setState(Delivering)
			rep.Results = t.s.deliver(t.channel, frame, connIDs(members))
		}
		metrics.RecordTick(ch, "store_unavailable", time.Since(start))
		return rep
	}

	groups := subscription.GroupByRole(members)
	rep.Groups = len(groups)
	frames := make([][]byte, len(groups))
	for i, g := range groups {
		frame, err := Encode(t.snapshotFor(ctx, data, g.Role))
		if err != nil {
			t.log.Error().Err(err).Str("role", string(g.Role.Role)).Msg("snapshot encode failed")
			continue
		}
		frames[i] = frame
	}

	t.setState(Delivering)
	for i, g := range groups {
		if frames[i] == nil {
			continue
		}
		rep.Results = append(rep.Results, t.s.deliver(t.channel, frames[i], g.ConnIDs)...)
	}

	metrics.RecordTick(ch, "ok", time.Since(start))
	t.log.Debug().Int("members", rep.Members).Int("groups", rep.Groups).Int("delivered", rep.Delivered()).Msg("tick complete")
	return rep
}

// tickData is the role-independent part of a tick.
type tickData struct {
	states   []vessel.State
	contacts []ais.Record
	now      time.Time
	feed     *ais.HealthSnapshot
	host     *HostStats
	subs     map[string]int
}

// gather reads the store and applies the channel's source. Only a failed
// store read is returned as an error.
func (t *Task) gather(ctx context.Context, persist bool) (tickData, error) {
	states, err := t.s.store.ListTracked(ctx)
	if err != nil {
		metrics.RecordStoreError("list_tracked")
		return tickData{}, err
	}

	var contacts []ais.Record
	switch t.cfg.Source {
	case SourceSimulated:
		states = t.simulate(ctx, states, persist)
	case SourceAIS:
		states, contacts = t.merge(ctx, states, persist)
	}

	data := tickData{now: t.s.now()}
	box := t.cfg.box()
	data.states = make([]vessel.State, 0, len(states))
	for _, st := range states {
		if vessel.ValidCoordinates(st.Latitude, st.Longitude) && box.Contains(st.Latitude, st.Longitude) {
			data.states = append(data.states, st)
		}
	}
	for _, rec := range contacts {
		if box.Contains(rec.Latitude, rec.Longitude) {
			data.contacts = append(data.contacts, rec)
		}
	}

	if t.channel == subscription.Health {
		host := t.s.hostStats(ctx)
		data.host = &host
		data.subs = t.s.registry.Counts()
		if t.s.ais != nil {
			feed := t.s.ais.Health()
			data.feed = &feed
		}
	}
	return data, nil
}

func (t *Task) simulate(ctx context.Context, states []vessel.State, persist bool) []vessel.State {
	out := make([]vessel.State, 0, len(states))
	written := 0
	for _, st := range states {
		u := t.s.sim.Simulate(st)
		if persist {
			if err := t.s.store.ApplyUpdate(ctx, st.ID, u); err != nil {
				metrics.RecordStoreError("apply_update")
				t.log.Warn().Err(err).Int64("vessel_id", st.ID).Msg("write-through failed")
				out = append(out, st)
				continue
			}
			written++
		}
		out = append(out, st.Apply(u))
	}
	if written > 0 {
		metrics.SimulatedUpdates.WithLabelValues("broadcast").Add(float64(written))
	}
	return out
}

func (t *Task) merge(ctx context.Context, states []vessel.State, persist bool) ([]vessel.State, []ais.Record) {
	recs, err := t.s.ais.FetchBox(ctx, t.cfg.box())
	if err != nil {
		t.log.Error().Err(err).Msg("ais area query rejected")
		return states, nil
	}
	if persist {
		for _, rec := range recs {
			if !rec.Registered() {
				continue
			}
			if err := t.s.ais.WriteBack(ctx, rec); err != nil {
				t.log.Warn().Err(err).Str("mmsi", rec.MMSI).Msg("ais write-back failed")
			}
		}
	}
	return ais.Reconcile(states, recs), ais.Unregistered(recs)
}

// snapshotFor filters the tick data for one role context and projects it.
func (t *Task) snapshotFor(ctx context.Context, data tickData, rc vessel.RoleContext) Message {
	assignments, err := t.s.assignmentsFor(ctx, rc)
	if err != nil {
		return ErrorMessage(t.channel, unavailableText, data.now)
	}
	scope := t.s.policy.Scope(rc.Role, rc.UserID, assignments)

	snap := Snapshot{
		Channel:       t.channel,
		Role:          rc,
		Vessels:       scope.Filter(data.states),
		Generated:     data.now,
		Feed:          data.feed,
		Host:          data.host,
		Subscriptions: data.subs,
	}
	if len(data.contacts) > 0 {
		snap.Contacts = scope.FilterRecords(data.contacts)
	}
	return Message{Type: UpdateType(t.channel), Payload: Project(snap)}
}

func connIDs(members []subscription.Member) []string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ConnID
	}
	return ids
}

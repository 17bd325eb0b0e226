// Package broadcast recomputes channel snapshots on a schedule and fans
// them out to exactly the subscribers of each channel.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/NaguruReddySameera/LiveTracking-project/internal/ais"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/logging"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/metrics"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/simulator"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/subscription"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/visibility"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/vessel"
)

// Sink delivers encoded frames to connections. Send must not block; a
// connection that cannot take the frame right away reports an error.
type Sink interface {
	Send(connID string, frame []byte) error
	Close(connID string)
}

type Outcome int

const (
	Delivered Outcome = iota
	Failed
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Failed:
		return "failed"
	default:
		return "skipped"
	}
}

// Result is the delivery outcome for one connection. Failed connections
// are removed from the registry, never retried.
type Result struct {
	ConnID  string
	Outcome Outcome
	Reason  error
}

// Source selects where a channel's vessel data comes from.
type Source string

const (
	SourceSimulated Source = "simulated"
	SourceAIS       Source = "ais"
	SourceStore     Source = "store"
)

type ChannelConfig struct {
	Interval time.Duration
	Source   Source
	// WriteThrough persists computed updates to the store.
	WriteThrough bool
	// BBox scopes the channel to an area; nil means the globe.
	BBox *vessel.BoundingBox
}

func (c ChannelConfig) box() vessel.BoundingBox {
	if c.BBox == nil {
		return vessel.Globe
	}
	return *c.BBox
}

type Options struct {
	Store     vessel.Store
	Registry  *subscription.Registry
	Policy    *visibility.Policy
	Sink      Sink
	Simulator *simulator.Simulator
	AIS       *ais.Engine
	HostStats func(context.Context) HostStats
	Now       func() time.Time
}

type Scheduler struct {
	store     vessel.Store
	registry  *subscription.Registry
	policy    *visibility.Policy
	sink      Sink
	sim       *simulator.Simulator
	ais       *ais.Engine
	hostStats func(context.Context) HostStats
	now       func() time.Time
	log       zerolog.Logger

	mu    sync.RWMutex
	tasks map[subscription.Channel]*Task
}

func NewScheduler(o Options) *Scheduler {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.HostStats == nil {
		o.HostStats = CollectHostStats
	}
	if o.Policy == nil {
		o.Policy = visibility.NewPolicy(true)
	}
	return &Scheduler{
		store:     o.Store,
		registry:  o.Registry,
		policy:    o.Policy,
		sink:      o.Sink,
		sim:       o.Simulator,
		ais:       o.AIS,
		hostStats: o.HostStats,
		now:       o.Now,
		log:       logging.With().Str("component", "broadcast").Logger(),
		tasks:     make(map[subscription.Channel]*Task),
	}
}

// AddChannel creates the periodic task of a timer-driven channel.
func (s *Scheduler) AddChannel(ch subscription.Channel, cfg ChannelConfig) (*Task, error) {
	if !ch.TimerDriven() {
		return nil, fmt.Errorf("broadcast: channel %s is event-driven", ch)
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("broadcast: channel %s: interval must be positive", ch)
	}
	if cfg.BBox != nil {
		if err := cfg.BBox.Validate(); err != nil {
			return nil, fmt.Errorf("broadcast: channel %s: %w", ch, err)
		}
	}
	switch cfg.Source {
	case SourceSimulated:
		if s.sim == nil {
			return nil, fmt.Errorf("broadcast: channel %s: simulated source without simulator", ch)
		}
	case SourceAIS:
		if s.ais == nil {
			return nil, fmt.Errorf("broadcast: channel %s: ais source without merge engine", ch)
		}
	case SourceStore:
	default:
		return nil, fmt.Errorf("broadcast: channel %s: unknown source %q", ch, cfg.Source)
	}

	t := &Task{
		s:       s,
		channel: ch,
		cfg:     cfg,
		log:     s.log.With().Str("channel", string(ch)).Logger(),
	}
	s.mu.Lock()
	s.tasks[ch] = t
	s.mu.Unlock()
	return t, nil
}

func (s *Scheduler) Task(ch subscription.Channel) (*Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[ch]
	return t, ok
}

// Tasks returns every channel task ordered by channel name.
func (s *Scheduler) Tasks() []*Task {
	s.mu.RLock()
	out := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].channel < out[j].channel })
	return out
}

// PushNow computes and sends one snapshot to a single member outside the
// tick cadence, so a new subscriber does not wait a full interval. It
// never writes through.
func (s *Scheduler) PushNow(ctx context.Context, ch subscription.Channel, m subscription.Member) Result {
	t, ok := s.Task(ch)
	if !ok {
		return Result{ConnID: m.ConnID, Outcome: Skipped}
	}

	var msg Message
	data, err := t.gather(ctx, false)
	if err != nil {
		msg = ErrorMessage(ch, unavailableText, s.now())
	} else {
		msg = t.snapshotFor(ctx, data, m.Role)
	}
	frame, err := Encode(msg)
	if err != nil {
		return Result{ConnID: m.ConnID, Outcome: Skipped, Reason: err}
	}
	return s.deliver(ch, frame, []string{m.ConnID})[0]
}

// Publish sends an already built payload to the members of an event-driven
// channel. An empty userID addresses every member.
func (s *Scheduler) Publish(ch subscription.Channel, userID string, payload any) []Result {
	var ids []string
	for _, m := range s.registry.MembersOf(ch) {
		if userID == "" || m.Role.UserID == userID {
			ids = append(ids, m.ConnID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	frame, err := Encode(Message{Type: UpdateType(ch), Payload: payload})
	if err != nil {
		s.log.Error().Err(err).Str("channel", string(ch)).Msg("publish encode failed")
		return nil
	}
	return s.deliver(ch, frame, ids)
}

// VesselPosition answers a single-vessel request. Vessels outside the
// caller's visibility are reported as not found.
func (s *Scheduler) VesselPosition(ctx context.Context, rc vessel.RoleContext, id int64) Message {
	now := s.now()
	notFound := ErrorMessage("", fmt.Sprintf("Vessel %d not found", id), now)

	st, err := s.store.Get(ctx, id)
	if errors.Is(err, vessel.ErrNotFound) {
		return notFound
	}
	if err != nil {
		metrics.RecordStoreError("get")
		return ErrorMessage("", unavailableText, now)
	}

	assignments, err := s.assignmentsFor(ctx, rc)
	if err != nil {
		return ErrorMessage("", unavailableText, now)
	}
	if !s.policy.Scope(rc.Role, rc.UserID, assignments).Allows(st.ID) {
		return notFound
	}
	return Message{Type: MsgVesselPosition, Payload: projectPosition(st, now)}
}

func (s *Scheduler) assignmentsFor(ctx context.Context, rc vessel.RoleContext) ([]vessel.Assignment, error) {
	if rc.Role != vessel.RoleOperator {
		return nil, nil
	}
	a, err := s.store.ListAssignments(ctx, rc.UserID)
	if err != nil {
		metrics.RecordStoreError("list_assignments")
		return nil, err
	}
	return a, nil
}

// deliver sends frame to each connection still subscribed to ch. A failed
// send removes the connection from every channel and closes it.
func (s *Scheduler) deliver(ch subscription.Channel, frame []byte, connIDs []string) []Result {
	results := make([]Result, 0, len(connIDs))
	for _, id := range connIDs {
		if _, ok := s.registry.Lookup(id, ch); !ok {
			results = append(results, Result{ConnID: id, Outcome: Skipped})
			continue
		}
		if err := s.sink.Send(id, frame); err != nil {
			results = append(results, Result{ConnID: id, Outcome: Failed, Reason: err})
			metrics.RecordDelivery(string(ch), false)
			s.registry.Disconnect(id)
			s.sink.Close(id)
			s.log.Info().Err(err).Str("conn_id", id).Str("channel", string(ch)).Msg("delivery failed, connection dropped")
			continue
		}
		results = append(results, Result{ConnID: id, Outcome: Delivered})
		metrics.RecordDelivery(string(ch), true)
	}
	return results
}

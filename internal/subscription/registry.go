// Package subscription tracks which connections are subscribed to which
// broadcast channel.
package subscription

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/NaguruReddySameera/LiveTracking-project/internal/metrics"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/vessel"
)

// Channel is a named broadcast topic.
type Channel string

const (
	Vessels       Channel = "vessels"
	Ships         Channel = "ships"
	Analyst       Channel = "analyst"
	Notifications Channel = "notifications"
	Health        Channel = "health"
)

// Channels lists every channel.
var Channels = []Channel{Vessels, Ships, Analyst, Notifications, Health}

var ErrUnknownChannel = errors.New("unknown channel")

// ParseChannel validates a channel name.
func ParseChannel(s string) (Channel, error) {
	c := Channel(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Channels {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChannel, s)
}

// TimerDriven reports whether the channel is recomputed on a schedule.
// Notifications are pushed as events instead.
func (c Channel) TimerDriven() bool {
	return c != Notifications
}

// Member is one subscription of a channel.
type Member struct {
	ConnID string
	Role   vessel.RoleContext
}

// Registry is the set of subscriptions. All methods are safe for concurrent
// use; every read returns a point-in-time copy.
type Registry struct {
	mu       sync.RWMutex
	channels map[Channel]map[string]vessel.RoleContext
	conns    map[string]map[Channel]struct{}
}

func NewRegistry() *Registry {
	r := &Registry{
		channels: make(map[Channel]map[string]vessel.RoleContext, len(Channels)),
		conns:    make(map[string]map[Channel]struct{}),
	}
	for _, c := range Channels {
		r.channels[c] = make(map[string]vessel.RoleContext)
	}
	return r
}

// Subscribe adds or refreshes the (connID, channel) subscription. It
// reports whether the subscription is new.
func (r *Registry) Subscribe(connID string, ch Channel, rc vessel.RoleContext) (bool, error) {
	r.mu.Lock()
	members, ok := r.channels[ch]
	if !ok {
		r.mu.Unlock()
		return false, fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
	}
	_, existed := members[connID]
	members[connID] = rc
	if r.conns[connID] == nil {
		r.conns[connID] = make(map[Channel]struct{})
	}
	r.conns[connID][ch] = struct{}{}
	metrics.SetSubscriptionCounts(r.countsLocked())
	r.mu.Unlock()
	return !existed, nil
}

// Unsubscribe removes one subscription. Unknown pairs are a no-op.
func (r *Registry) Unsubscribe(connID string, ch Channel) {
	r.mu.Lock()
	members, ok := r.channels[ch]
	if !ok {
		r.mu.Unlock()
		return
	}
	if _, ok := members[connID]; !ok {
		r.mu.Unlock()
		return
	}
	delete(members, connID)
	if subs := r.conns[connID]; subs != nil {
		delete(subs, ch)
		if len(subs) == 0 {
			delete(r.conns, connID)
		}
	}
	metrics.SetSubscriptionCounts(r.countsLocked())
	r.mu.Unlock()
}

// Disconnect removes connID from every channel and returns the channels it
// was subscribed to. Unknown connections are a no-op.
func (r *Registry) Disconnect(connID string) []Channel {
	r.mu.Lock()
	subs, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	removed := make([]Channel, 0, len(subs))
	for ch := range subs {
		delete(r.channels[ch], connID)
		removed = append(removed, ch)
	}
	delete(r.conns, connID)
	metrics.SetSubscriptionCounts(r.countsLocked())
	r.mu.Unlock()
	sortChannels(removed)
	return removed
}

// MembersOf returns the channel's subscriptions ordered by connection id.
func (r *Registry) MembersOf(ch Channel) []Member {
	r.mu.RLock()
	members := r.channels[ch]
	out := make([]Member, 0, len(members))
	for id, rc := range members {
		out = append(out, Member{ConnID: id, Role: rc})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ConnID < out[j].ConnID })
	return out
}

// Lookup returns the role a connection subscribed to ch with.
func (r *Registry) Lookup(connID string, ch Channel) (vessel.RoleContext, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rc, ok := r.channels[ch][connID]
	return rc, ok
}

// ChannelsOf returns the channels connID is subscribed to.
func (r *Registry) ChannelsOf(connID string) []Channel {
	r.mu.RLock()
	subs := r.conns[connID]
	out := make([]Channel, 0, len(subs))
	for ch := range subs {
		out = append(out, ch)
	}
	r.mu.RUnlock()

	sortChannels(out)
	return out
}

// Counts returns the number of subscriptions per channel.
func (r *Registry) Counts() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countsLocked()
}

// countsLocked must be called with mu held.
func (r *Registry) countsLocked() map[string]int {
	counts := make(map[string]int, len(r.channels))
	for ch, members := range r.channels {
		counts[string(ch)] = len(members)
	}
	return counts
}

// Group is the set of connections sharing one role context.
type Group struct {
	Role    vessel.RoleContext
	ConnIDs []string
}

// GroupByRole partitions members by role context, preserving the order in
// which each context first appears.
func GroupByRole(members []Member) []Group {
	index := make(map[vessel.RoleContext]int)
	var groups []Group
	for _, m := range members {
		i, ok := index[m.Role]
		if !ok {
			i = len(groups)
			index[m.Role] = i
			groups = append(groups, Group{Role: m.Role})
		}
		groups[i].ConnIDs = append(groups[i].ConnIDs, m.ConnID)
	}
	return groups
}

func sortChannels(chs []Channel) {
	sort.Slice(chs, func(i, j int) bool { return chs[i] < chs[j] })
}

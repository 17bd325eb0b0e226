package subscription

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/NaguruReddySameera/LiveTracking-project/internal/metrics"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/vessel"
)

var (
	analyst  = vessel.RoleContext{Role: vessel.RoleAnalyst, UserID: "an-1"}
	operator = vessel.RoleContext{Role: vessel.RoleOperator, UserID: "op-1"}
)

func TestParseChannel(t *testing.T) {
	for _, name := range []string{"vessels", "Ships", " health "} {
		if _, err := ParseChannel(name); err != nil {
			t.Errorf("ParseChannel(%q): %v", name, err)
		}
	}
	if _, err := ParseChannel("weather"); !errors.Is(err, ErrUnknownChannel) {
		t.Errorf("ParseChannel(weather) = %v, want ErrUnknownChannel", err)
	}
	if Notifications.TimerDriven() || !Vessels.TimerDriven() {
		t.Error("TimerDriven wrong")
	}
}

func TestSubscribeIdempotent(t *testing.T) {
	r := NewRegistry()

	created, err := r.Subscribe("c1", Vessels, operator)
	if err != nil || !created {
		t.Fatalf("first Subscribe = %v, %v", created, err)
	}
	created, err = r.Subscribe("c1", Vessels, analyst)
	if err != nil || created {
		t.Fatalf("second Subscribe = %v, %v, want existing", created, err)
	}

	members := r.MembersOf(Vessels)
	if len(members) != 1 {
		t.Fatalf("MembersOf = %+v, want one entry", members)
	}
	if members[0].Role != analyst {
		t.Errorf("role = %+v, want refreshed %+v", members[0].Role, analyst)
	}
}

func TestSubscribeUnknownChannel(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Subscribe("c1", Channel("weather"), analyst); !errors.Is(err, ErrUnknownChannel) {
		t.Errorf("Subscribe(weather) = %v, want ErrUnknownChannel", err)
	}
	if len(r.ChannelsOf("c1")) != 0 {
		t.Error("failed subscribe left state behind")
	}
}

func TestDisconnectRemovesFromEveryChannel(t *testing.T) {
	r := NewRegistry()
	for _, ch := range Channels {
		if _, err := r.Subscribe("c1", ch, analyst); err != nil {
			t.Fatal(err)
		}
	}
	r.Subscribe("c2", Vessels, operator)

	removed := r.Disconnect("c1")
	if len(removed) != len(Channels) {
		t.Errorf("Disconnect removed %v, want all channels", removed)
	}
	for _, ch := range Channels {
		for _, m := range r.MembersOf(ch) {
			if m.ConnID == "c1" {
				t.Errorf("c1 still in %s", ch)
			}
		}
	}
	if got := r.MembersOf(Vessels); len(got) != 1 || got[0].ConnID != "c2" {
		t.Errorf("c2 affected by c1 disconnect: %+v", got)
	}
	if len(r.ChannelsOf("c1")) != 0 {
		t.Error("ChannelsOf(c1) not empty")
	}
}

func TestUnknownConnectionIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Unsubscribe("ghost", Vessels)
	r.Unsubscribe("ghost", Channel("weather"))
	if removed := r.Disconnect("ghost"); removed != nil {
		t.Errorf("Disconnect(ghost) = %v", removed)
	}
}

func TestUnsubscribe(t *testing.T) {
	r := NewRegistry()
	r.Subscribe("c1", Vessels, analyst)
	r.Subscribe("c1", Health, analyst)

	r.Unsubscribe("c1", Vessels)

	if len(r.MembersOf(Vessels)) != 0 {
		t.Error("still subscribed to vessels")
	}
	if got := r.ChannelsOf("c1"); !reflect.DeepEqual(got, []Channel{Health}) {
		t.Errorf("ChannelsOf = %v, want [health]", got)
	}
	if _, ok := r.Lookup("c1", Health); !ok {
		t.Error("Lookup(health) missing")
	}
}

func TestMembersOfIsSnapshot(t *testing.T) {
	r := NewRegistry()
	r.Subscribe("b", Ships, analyst)
	r.Subscribe("a", Ships, operator)

	snap := r.MembersOf(Ships)
	r.Disconnect("a")

	if len(snap) != 2 || snap[0].ConnID != "a" || snap[1].ConnID != "b" {
		t.Errorf("snapshot = %+v, want sorted [a b] unaffected by later removal", snap)
	}
}

func TestCounts(t *testing.T) {
	r := NewRegistry()
	r.Subscribe("c1", Vessels, analyst)
	r.Subscribe("c2", Vessels, operator)
	r.Subscribe("c2", Analyst, operator)

	counts := r.Counts()
	if counts["vessels"] != 2 || counts["analyst"] != 1 || counts["health"] != 0 {
		t.Errorf("Counts = %v", counts)
	}
}

func TestGroupByRole(t *testing.T) {
	op2 := vessel.RoleContext{Role: vessel.RoleOperator, UserID: "op-2"}
	members := []Member{
		{ConnID: "a", Role: operator},
		{ConnID: "b", Role: analyst},
		{ConnID: "c", Role: operator},
		{ConnID: "d", Role: op2},
	}

	groups := GroupByRole(members)
	want := []Group{
		{Role: operator, ConnIDs: []string{"a", "c"}},
		{Role: analyst, ConnIDs: []string{"b"}},
		{Role: op2, ConnIDs: []string{"d"}},
	}
	if !reflect.DeepEqual(groups, want) {
		t.Errorf("GroupByRole = %+v, want %+v", groups, want)
	}
}

func TestConcurrentLifecycles(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		id := fmt.Sprintf("conn-%02d", i)
		go func() {
			defer wg.Done()
			r.Subscribe(id, Vessels, analyst)
			r.Subscribe(id, Ships, analyst)
			r.Subscribe(id, Vessels, operator)
			if i%2 == 0 {
				r.Disconnect(id)
			}
		}()
		go func() {
			defer wg.Done()
			_ = r.MembersOf(Vessels)
			_ = r.Counts()
		}()
	}
	wg.Wait()

	if got := len(r.MembersOf(Vessels)); got != 25 {
		t.Errorf("vessels has %d members, want 25", got)
	}
	for _, m := range r.MembersOf(Ships) {
		if m.Role != analyst {
			t.Errorf("%s role %+v", m.ConnID, m.Role)
		}
	}
}

func TestSubscriptionGaugeMatchesCountsUnderChurn(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		id := fmt.Sprintf("conn-%03d", i)
		go func() {
			defer wg.Done()
			r.Subscribe(id, Vessels, analyst)
			r.Subscribe(id, Health, analyst)
			switch i % 3 {
			case 0:
				r.Disconnect(id)
			case 1:
				r.Unsubscribe(id, Health)
			}
		}()
	}
	wg.Wait()

	counts := r.Counts()
	for _, ch := range Channels {
		want := float64(counts[string(ch)])
		if got := testutil.ToFloat64(metrics.Subscriptions.WithLabelValues(string(ch))); got != want {
			t.Errorf("%s gauge = %v, want %v", ch, got, want)
		}
	}
	if counts[string(Vessels)] != 66 || counts[string(Health)] != 33 {
		t.Errorf("counts = %v", counts)
	}
}

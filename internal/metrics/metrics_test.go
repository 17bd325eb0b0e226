package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordTick(t *testing.T) {
	before := testutil.ToFloat64(TicksTotal.WithLabelValues("vessels", "ok"))
	RecordTick("vessels", "ok", 20*time.Millisecond)
	if got := testutil.ToFloat64(TicksTotal.WithLabelValues("vessels", "ok")); got != before+1 {
		t.Errorf("ticks = %v, want %v", got, before+1)
	}
}

func TestRecordDelivery(t *testing.T) {
	failed := testutil.ToFloat64(Deliveries.WithLabelValues("ships", "failed"))
	delivered := testutil.ToFloat64(Deliveries.WithLabelValues("ships", "delivered"))

	RecordDelivery("ships", true)
	RecordDelivery("ships", false)
	RecordDelivery("ships", false)

	if got := testutil.ToFloat64(Deliveries.WithLabelValues("ships", "delivered")); got != delivered+1 {
		t.Errorf("delivered = %v, want %v", got, delivered+1)
	}
	if got := testutil.ToFloat64(Deliveries.WithLabelValues("ships", "failed")); got != failed+2 {
		t.Errorf("failed = %v, want %v", got, failed+2)
	}
}

func TestSetSubscriptionCounts(t *testing.T) {
	SetSubscriptionCounts(map[string]int{"vessels": 3, "health": 0})
	if got := testutil.ToFloat64(Subscriptions.WithLabelValues("vessels")); got != 3 {
		t.Errorf("vessels = %v, want 3", got)
	}
	SetSubscriptionCounts(map[string]int{"vessels": 1})
	if got := testutil.ToFloat64(Subscriptions.WithLabelValues("vessels")); got != 1 {
		t.Errorf("vessels = %v, want 1", got)
	}
}

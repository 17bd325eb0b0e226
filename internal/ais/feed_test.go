package ais

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NaguruReddySameera/LiveTracking-project/internal/config"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/vessel"
)

const sampleResponse = `[
  {"ERROR":false,"USERNAME":"AH_TEST","FORMAT":"HUMAN","RECORDS":2},
  [
    {"MMSI":211378120,"TIME":"2026-05-01 08:00:00 GMT","LONGITUDE":18.05,"LATITUDE":58.52,"COG":92.3,"SOG":13.1,"HEADING":91,"NAVSTAT":0,"IMO":0,"NAME":"NORDIC VOYAGER  ","CALLSIGN":"SABC","TYPE":70,"DEST":"STOCKHOLM"},
    {"MMSI":"999999999","TIME":"2026-05-01 08:01:00 GMT","LONGITUDE":10.0,"LATITUDE":55.0,"COG":180,"SOG":0,"HEADING":511,"NAVSTAT":1,"NAME":"GHOST","TYPE":52,"DEST":""}
  ]
]`

func testFeedConfig(baseURL string) config.AISConfig {
	return config.AISConfig{
		Enabled:  true,
		BaseURL:  baseURL,
		Username: "AH_TEST",
		Timeout:  time.Second,
		Breaker: config.BreakerConfig{
			MaxRequests:  1,
			Interval:     time.Minute,
			Timeout:      time.Minute,
			MinRequests:  2,
			FailureRatio: 0.5,
		},
	}
}

func TestHTTPFeedArea(t *testing.T) {
	var gotQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Query())
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	feed := NewHTTPFeed(testFeedConfig(srv.URL), srv.Client())
	recs, err := feed.Area(context.Background(), vessel.BoundingBox{MinLat: 50, MaxLat: 60, MinLon: 0, MaxLon: 20})
	if err != nil {
		t.Fatalf("Area: %v", err)
	}

	q := gotQuery.Load().(url.Values)
	for key, want := range map[string]string{
		"latmin": "50", "latmax": "60", "lonmin": "0", "lonmax": "20",
		"username": "AH_TEST", "output": "json", "format": "1",
	} {
		if got := q[key]; len(got) != 1 || got[0] != want {
			t.Errorf("query %s = %v, want %s", key, got, want)
		}
	}

	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	first := recs[0]
	if first.MMSI != "211378120" || first.Name != "NORDIC VOYAGER" || first.Type != "Cargo" {
		t.Errorf("first record = %+v", first)
	}
	if first.Latitude != 58.52 || first.Heading != 91 || first.NavStatus != vessel.Underway {
		t.Errorf("first record motion = %+v", first)
	}
	if want := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC); !first.ReportedAt.Equal(want) {
		t.Errorf("ReportedAt = %v, want %v", first.ReportedAt, want)
	}

	second := recs[1]
	if second.MMSI != "999999999" || second.NavStatus != vessel.AtAnchor || second.Type != "Tug" {
		t.Errorf("second record = %+v", second)
	}
	if second.Heading != 180 {
		t.Errorf("unavailable heading = %d, want course 180", second.Heading)
	}
}

func TestHTTPFeedByMMSI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("mmsi") != "211378120" {
			w.Write([]byte(`[{"ERROR":true,"ERROR_MESSAGE":"No data"}]`))
			return
		}
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	feed := NewHTTPFeed(testFeedConfig(srv.URL), srv.Client())
	rec, err := feed.ByMMSI(context.Background(), "211378120")
	if err != nil || rec == nil || rec.Name != "NORDIC VOYAGER" {
		t.Fatalf("ByMMSI = %+v, %v", rec, err)
	}

	rec, err = feed.ByMMSI(context.Background(), "123456789")
	if err != nil || rec != nil {
		t.Errorf("ByMMSI(no data) = %+v, %v, want nil, nil", rec, err)
	}
}

func TestHTTPFeedFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}},
		{"malformed payload", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"not":"an array"}`))
		}},
		{"feed error", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[{"ERROR":true,"ERROR_MESSAGE":"Too frequent requests!"}]`))
		}},
		{"timeout", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			cfg := testFeedConfig(srv.URL)
			cfg.Timeout = 50 * time.Millisecond
			feed := NewHTTPFeed(cfg, srv.Client())

			_, err := feed.Area(context.Background(), vessel.Globe)
			if !errors.Is(err, vessel.ErrFeedUnavailable) {
				t.Errorf("Area error = %v, want ErrFeedUnavailable", err)
			}
		})
	}
}

func TestHTTPFeedCircuitOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	feed := NewHTTPFeed(testFeedConfig(srv.URL), srv.Client())
	for i := 0; i < 5; i++ {
		_, _ = feed.Area(context.Background(), vessel.Globe)
	}

	if got := hits.Load(); got != 2 {
		t.Errorf("server hit %d times, want 2 before the circuit opened", got)
	}
	if feed.BreakerState() != "open" {
		t.Errorf("breaker = %s, want open", feed.BreakerState())
	}
}

func TestEngineHealthReportsBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	e := NewEngine(NewHTTPFeed(testFeedConfig(srv.URL), srv.Client()), nil, nil)
	if got := e.Health().Breaker; got != "closed" {
		t.Errorf("breaker = %q, want closed", got)
	}
}

func TestParseAISHubUnavailableValues(t *testing.T) {
	body := `[
  {"ERROR":false,"RECORDS":2},
  [
    {"MMSI":211378120,"LONGITUDE":18.05,"LATITUDE":58.52,"COG":360,"SOG":102.3,"HEADING":511,"NAVSTAT":15},
    {"MMSI":244660050,"LONGITUDE":5.0,"LATITUDE":51.5,"COG":359.9,"SOG":102.2,"HEADING":511,"NAVSTAT":0}
  ]
]`
	recs, err := parseAISHub([]byte(body))
	if err != nil {
		t.Fatalf("parseAISHub: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}

	unknown := recs[0]
	if unknown.CourseOverGround != 0 || unknown.SpeedOverGround != 0 || unknown.Heading != 0 {
		t.Errorf("unavailable motion = course %v speed %v heading %d, want zeros",
			unknown.CourseOverGround, unknown.SpeedOverGround, unknown.Heading)
	}

	edge := recs[1]
	if edge.CourseOverGround != 359.9 || edge.SpeedOverGround != 102.2 || edge.Heading != 359 {
		t.Errorf("valid edge motion = course %v speed %v heading %d",
			edge.CourseOverGround, edge.SpeedOverGround, edge.Heading)
	}
}

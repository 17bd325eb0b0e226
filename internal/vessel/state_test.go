package vessel

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestNavStatusJSON(t *testing.T) {
	data, err := json.Marshal(RestrictedManeuverability)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"restricted_maneuverability"` {
		t.Errorf("Marshal = %s, want \"restricted_maneuverability\"", data)
	}

	var n NavStatus
	if err := json.Unmarshal([]byte(`"aground"`), &n); err != nil {
		t.Fatal(err)
	}
	if n != Aground {
		t.Errorf("Unmarshal = %v, want aground", n)
	}

	// Unknown names leave the value untouched.
	n = Moored
	if err := json.Unmarshal([]byte(`"drifting"`), &n); err != nil {
		t.Fatal(err)
	}
	if n != Moored {
		t.Errorf("unknown status overwrote value: %v", n)
	}
}

func TestNavStatusesCoverNames(t *testing.T) {
	if len(NavStatuses) != len(navStatusNames) {
		t.Fatalf("NavStatuses has %d entries, names has %d", len(NavStatuses), len(navStatusNames))
	}
	for _, s := range NavStatuses {
		if s.String() == "unknown" {
			t.Errorf("status %d has no name", s)
		}
		back, ok := ParseNavStatus(s.String())
		if !ok || back != s {
			t.Errorf("ParseNavStatus(%q) = %v, %v", s.String(), back, ok)
		}
	}
}

func TestApplyDoesNotTouchIdentity(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := State{ID: 7, MMSI: "211378120", Name: "NORDIC VOYAGER", Latitude: 1, Longitude: 2}
	got := s.Apply(PositionUpdate{Latitude: 3, Longitude: 4, SpeedOverGround: 5, Heading: 6, NavStatus: Moored, Timestamp: ts})

	if got.ID != 7 || got.MMSI != "211378120" || got.Name != "NORDIC VOYAGER" {
		t.Errorf("identity changed: %+v", got)
	}
	if got.Latitude != 3 || got.Longitude != 4 || got.Heading != 6 || got.NavStatus != Moored {
		t.Errorf("position not applied: %+v", got)
	}
	if !got.LastUpdate.Equal(ts) {
		t.Errorf("LastUpdate = %v, want %v", got.LastUpdate, ts)
	}
	if s.Latitude != 1 {
		t.Error("Apply mutated the receiver")
	}
}

func TestValidCoordinates(t *testing.T) {
	tests := []struct {
		lat, lon float64
		want     bool
	}{
		{0, 0, true},
		{90, 180, true},
		{-90, -180, true},
		{90.0001, 0, false},
		{0, -180.5, false},
		{math.NaN(), 0, false},
	}
	for _, tt := range tests {
		if got := ValidCoordinates(tt.lat, tt.lon); got != tt.want {
			t.Errorf("ValidCoordinates(%g, %g) = %v, want %v", tt.lat, tt.lon, got, tt.want)
		}
	}
}

func TestBoundingBoxValidate(t *testing.T) {
	tests := []struct {
		name    string
		box     BoundingBox
		wantErr bool
	}{
		{"globe", Globe, false},
		{"baltic", BoundingBox{MinLat: 53, MaxLat: 66, MinLon: 9, MaxLon: 31}, false},
		{"point", BoundingBox{MinLat: 10, MaxLat: 10, MinLon: 20, MaxLon: 20}, false},
		{"inverted lat", BoundingBox{MinLat: 60, MaxLat: 50, MinLon: 0, MaxLon: 10}, true},
		{"inverted lon", BoundingBox{MinLat: 50, MaxLat: 60, MinLon: 10, MaxLon: 0}, true},
		{"lat out of range", BoundingBox{MinLat: -91, MaxLat: 0, MinLon: 0, MaxLon: 10}, true},
		{"lon out of range", BoundingBox{MinLat: 0, MaxLat: 1, MinLon: 0, MaxLon: 181}, true},
		{"nan", BoundingBox{MinLat: math.NaN(), MaxLat: 1, MinLon: 0, MaxLon: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.box.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidBoundingBox) {
					t.Fatalf("Validate() = %v, want ErrInvalidBoundingBox", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestBoundingBoxContains(t *testing.T) {
	b := BoundingBox{MinLat: 1, MaxLat: 2, MinLon: 3, MaxLon: 4}
	if !b.Contains(1.5, 3) || b.Contains(0, 3.5) {
		t.Error("Contains gave wrong answer")
	}
	// An explicit zero box is a point, not the globe.
	zero := BoundingBox{}
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero box Validate() = %v", err)
	}
	if !zero.Contains(0, 0) || zero.Contains(55, 10) {
		t.Error("zero box must contain only the origin")
	}
	if !Globe.Contains(-90, 180) {
		t.Error("Globe must contain its corners")
	}
}

func TestParseRole(t *testing.T) {
	if r, ok := ParseRole(" Operator "); !ok || r != RoleOperator {
		t.Errorf("ParseRole(Operator) = %q, %v", r, ok)
	}
	if _, ok := ParseRole("captain"); ok {
		t.Error("ParseRole accepted an unknown role")
	}
}

package ais

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/NaguruReddySameera/LiveTracking-project/internal/config"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/logging"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/metrics"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/vessel"
)

// Feed is the transport to an AIS data source. Implementations return
// records without VesselID; the Engine performs the identity join.
type Feed interface {
	// Area returns every record inside box.
	Area(ctx context.Context, box vessel.BoundingBox) ([]Record, error)

	// ByMMSI returns the latest record for one vessel, or nil when the
	// feed has none.
	ByMMSI(ctx context.Context, mmsi string) (*Record, error)
}

// maxResponseBytes bounds a single feed response.
const maxResponseBytes = 8 << 20

// HTTPFeed queries an AISHub-style JSON web service. Every call is bounded
// by the configured timeout and guarded by a circuit breaker.
type HTTPFeed struct {
	client   *http.Client
	baseURL  string
	username string
	timeout  time.Duration
	cb       *gobreaker.CircuitBreaker[[]Record]
}

func NewHTTPFeed(cfg config.AISConfig, client *http.Client) *HTTPFeed {
	if client == nil {
		client = &http.Client{}
	}
	bc := cfg.Breaker
	metrics.AISBreakerState.Set(0)

	cb := gobreaker.NewCircuitBreaker[[]Record](gobreaker.Settings{
		Name:        "ais-feed",
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bc.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= bc.FailureRatio {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_ratio", ratio).Msg("ais circuit opening")
				return true
			}
			return false
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			logging.Info().Str("from", from.String()).Str("to", to.String()).Msg("ais circuit state change")
			metrics.AISBreakerState.Set(stateToFloat(to))
		},
		// A cancelled caller says nothing about the feed.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &HTTPFeed{
		client:   client,
		baseURL:  cfg.BaseURL,
		username: cfg.Username,
		timeout:  cfg.Timeout,
		cb:       cb,
	}
}

func (f *HTTPFeed) Area(ctx context.Context, box vessel.BoundingBox) ([]Record, error) {
	q := f.query()
	q.Set("latmin", formatCoord(box.MinLat))
	q.Set("latmax", formatCoord(box.MaxLat))
	q.Set("lonmin", formatCoord(box.MinLon))
	q.Set("lonmax", formatCoord(box.MaxLon))
	return f.execute(ctx, q)
}

func (f *HTTPFeed) ByMMSI(ctx context.Context, mmsi string) (*Record, error) {
	q := f.query()
	q.Set("mmsi", mmsi)
	recs, err := f.execute(ctx, q)
	if err != nil {
		return nil, err
	}
	for i := range recs {
		if recs[i].MMSI == mmsi {
			return &recs[i], nil
		}
	}
	return nil, nil
}

// BreakerState reports the circuit breaker state for health output.
func (f *HTTPFeed) BreakerState() string {
	return f.cb.State().String()
}

func (f *HTTPFeed) query() url.Values {
	q := url.Values{}
	q.Set("username", f.username)
	q.Set("format", "1")
	q.Set("output", "json")
	q.Set("compress", "0")
	return q
}

func (f *HTTPFeed) execute(ctx context.Context, q url.Values) ([]Record, error) {
	recs, err := f.cb.Execute(func() ([]Record, error) {
		return f.fetch(ctx, q)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit %v", vessel.ErrFeedUnavailable, err)
		}
		return nil, err
	}
	return recs, nil
}

func (f *HTTPFeed) fetch(ctx context.Context, q url.Values) ([]Record, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", vessel.ErrFeedUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", vessel.ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", vessel.ErrFeedUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", vessel.ErrFeedUnavailable, err)
	}
	recs, err := parseAISHub(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vessel.ErrFeedUnavailable, err)
	}
	return recs, nil
}

// aishubHeader is the first element of an AISHub response array.
type aishubHeader struct {
	Error        bool   `json:"ERROR"`
	ErrorMessage string `json:"ERROR_MESSAGE"`
	Records      int    `json:"RECORDS"`
}

type aishubVessel struct {
	MMSI     flexString `json:"MMSI"`
	Time     string     `json:"TIME"`
	Lon      float64    `json:"LONGITUDE"`
	Lat      float64    `json:"LATITUDE"`
	COG      float64    `json:"COG"`
	SOG      float64    `json:"SOG"`
	Heading  int        `json:"HEADING"`
	NavStat  int        `json:"NAVSTAT"`
	Name     string     `json:"NAME"`
	Type     int        `json:"TYPE"`
	Dest     string     `json:"DEST"`
	Callsign string     `json:"CALLSIGN"`
}

// AIS "not available" values for course and speed over ground.
const (
	cogNotAvailable = 360.0
	sogNotAvailable = 102.3
)

// parseAISHub decodes `[header, [vessel...]]`.
func parseAISHub(body []byte) ([]Record, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(body, &parts); err != nil {
		return nil, fmt.Errorf("malformed payload: %w", err)
	}
	if len(parts) == 0 {
		return nil, errors.New("malformed payload: empty array")
	}

	var hdr aishubHeader
	if err := json.Unmarshal(parts[0], &hdr); err != nil {
		return nil, fmt.Errorf("malformed header: %w", err)
	}
	if hdr.Error {
		// AISHub reports an empty area as an error.
		if strings.Contains(strings.ToLower(hdr.ErrorMessage), "no data") {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("feed error: %s", hdr.ErrorMessage)
	}
	if len(parts) < 2 {
		return []Record{}, nil
	}

	var raw []aishubVessel
	if err := json.Unmarshal(parts[1], &raw); err != nil {
		return nil, fmt.Errorf("malformed vessel list: %w", err)
	}

	recs := make([]Record, 0, len(raw))
	for _, v := range raw {
		if v.MMSI == "" {
			continue
		}
		course := v.COG
		if course < 0 || course >= cogNotAvailable {
			course = 0
		}
		speed := v.SOG
		if speed < 0 || speed >= sogNotAvailable {
			speed = 0
		}
		heading := v.Heading
		if heading < 0 || heading > 359 {
			// 511 means not available.
			heading = int(course)
		}
		recs = append(recs, Record{
			MMSI:             string(v.MMSI),
			Name:             strings.TrimSpace(v.Name),
			Type:             shipTypeName(v.Type),
			Latitude:         v.Lat,
			Longitude:        v.Lon,
			SpeedOverGround:  speed,
			CourseOverGround: course,
			Heading:          heading,
			NavStatus:        navStatusFromCode(v.NavStat),
			Destination:      strings.TrimSpace(v.Dest),
			ReportedAt:       parseReportTime(v.Time),
		})
	}
	return recs, nil
}

// flexString accepts a JSON string or number.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = flexString(str)
		return nil
	}
	if string(data) == "null" {
		*s = ""
		return nil
	}
	*s = flexString(data)
	return nil
}

func parseReportTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{"2006-01-02 15:04:05 MST", "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC()
	}
	return time.Time{}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// StoreFeed serves area and identity queries from the vessel store. It
// backs the realtime endpoints when no external feed is configured.
type StoreFeed struct {
	Store vessel.Store
}

func (f StoreFeed) Area(ctx context.Context, box vessel.BoundingBox) ([]Record, error) {
	states, err := f.Store.ListTracked(ctx)
	if err != nil {
		return nil, err
	}
	recs := make([]Record, 0, len(states))
	for _, s := range states {
		if box.Contains(s.Latitude, s.Longitude) {
			rec := FromState(s)
			rec.VesselID = nil
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

func (f StoreFeed) ByMMSI(ctx context.Context, mmsi string) (*Record, error) {
	ids, err := f.Store.ResolveMMSI(ctx, []string{mmsi})
	if err != nil {
		return nil, err
	}
	id, ok := ids[mmsi]
	if !ok {
		return nil, nil
	}
	s, err := f.Store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, vessel.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	rec := FromState(s)
	rec.VesselID = nil
	return &rec, nil
}

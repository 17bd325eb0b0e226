package ws

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/NaguruReddySameera/LiveTracking-project/internal/ais"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/logging"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/metrics"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/subscription"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/vessel"
)

type apiError struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type errorResponse struct {
	Success bool     `json:"success"`
	Error   apiError `json:"error"`
}

type dataResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("write response failed")
	}
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, errorResponse{Error: apiError{Message: message, Details: details}})
}

// RealtimeData is the area query response body.
type RealtimeData struct {
	Vessels   []ais.Record `json:"vessels"`
	Count     int          `json:"count"`
	Source    string       `json:"source"`
	Timestamp time.Time    `json:"timestamp"`
	UserRole  vessel.Role  `json:"user_role"`
	Filtered  bool         `json:"filtered"`
}

// handleRealtime serves GET /api/vessels/realtime. Each bound defaults to
// the globe edge when omitted.
func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	rc := roleFrom(r.Context())

	box, err := parseBox(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid bounding box coordinates", err.Error())
		return
	}
	recs, err := s.ais.FetchBox(r.Context(), box)
	if errors.Is(err, vessel.ErrInvalidBoundingBox) {
		writeError(w, http.StatusBadRequest, "Invalid bounding box", err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch real-time vessel positions", "")
		return
	}

	assignments, err := s.assignmentsFor(r, rc)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Vessel store unavailable", "")
		return
	}
	scope := s.policy.Scope(rc.Role, rc.UserID, assignments)
	visible := scope.FilterRecords(recs)

	writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: RealtimeData{
		Vessels:   visible,
		Count:     len(visible),
		Source:    s.feedSource,
		Timestamp: s.now(),
		UserRole:  rc.Role,
		Filtered:  !scope.All(),
	}})
}

func parseBox(r *http.Request) (vessel.BoundingBox, error) {
	box := vessel.Globe
	q := r.URL.Query()
	fields := []struct {
		key string
		dst *float64
	}{
		{"min_lat", &box.MinLat},
		{"max_lat", &box.MaxLat},
		{"min_lon", &box.MinLon},
		{"max_lon", &box.MaxLon},
	}
	for _, f := range fields {
		raw := q.Get(f.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return vessel.BoundingBox{}, fmt.Errorf("%s: %q is not a number", f.key, raw)
		}
		*f.dst = v
	}
	return box, nil
}

// RefreshData is the update_from_ais response body.
type RefreshData struct {
	Vessel    vessel.State `json:"vessel"`
	Message   string       `json:"message"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// handleUpdateFromAIS serves POST /api/vessels/{id}/update_from_ais.
func (s *Server) handleUpdateFromAIS(w http.ResponseWriter, r *http.Request) {
	rc := roleFrom(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid vessel id", "")
		return
	}
	if err := s.authz.CanRefresh(rc.Role, id); err != nil {
		writeError(w, http.StatusForbidden, "Only operators and admins can update vessels from AIS", "")
		return
	}

	assignments, err := s.assignmentsFor(r, rc)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Vessel store unavailable", "")
		return
	}
	if !s.policy.Scope(rc.Role, rc.UserID, assignments).Allows(id) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Vessel %d not found", id), "")
		return
	}

	st, err := s.ais.UpdateFromAIS(r.Context(), id)
	switch {
	case err == nil:
	case errors.Is(err, vessel.ErrNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("Vessel %d not found", id), "")
		return
	case errors.Is(err, ais.ErrNoMMSI):
		writeError(w, http.StatusBadRequest, "Vessel must have an MMSI number to fetch AIS data", "")
		return
	case errors.Is(err, ais.ErrNoData):
		writeError(w, http.StatusNotFound, "No AIS data available for this vessel", "Could not fetch data from any AIS source")
		return
	case errors.Is(err, vessel.ErrCoordinateOutOfRange):
		writeError(w, http.StatusBadRequest, "Invalid coordinates received from AIS source", "")
		return
	case errors.Is(err, vessel.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Vessel store unavailable", "")
		return
	default:
		logging.Error().Err(err).Int64("vessel_id", id).Msg("update from ais failed")
		writeError(w, http.StatusInternalServerError, "Failed to update vessel position from AIS", "")
		return
	}

	logging.Info().Int64("vessel_id", id).Str("user_id", rc.UserID).Msg("vessel position updated from ais")
	writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: RefreshData{
		Vessel:    st,
		Message:   "Vessel position updated from " + s.feedSource,
		UpdatedAt: st.LastUpdate,
	}})
}

// ChannelHealth reports one channel task.
type ChannelHealth struct {
	Channel string `json:"channel"`
	State   string `json:"state"`
	Ticks   uint64 `json:"ticks"`
}

type HealthData struct {
	Status        string             `json:"status"`
	Connections   int                `json:"connections"`
	Subscriptions map[string]int     `json:"subscriptions"`
	Channels      []ChannelHealth    `json:"channels"`
	Feed          ais.HealthSnapshot `json:"ais_feed"`
	Timestamp     time.Time          `json:"timestamp"`
}

// handleHealth serves GET /api/health. A failed feed degrades the status
// but never fails the endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	data := HealthData{
		Status:        "ok",
		Connections:   s.hub.ClientCount(),
		Subscriptions: s.registry.Counts(),
		Feed:          s.ais.Health(),
		Timestamp:     s.now(),
	}
	if data.Feed.Status == ais.StatusFailed {
		data.Status = "degraded"
	}
	for _, t := range s.scheduler.Tasks() {
		data.Channels = append(data.Channels, ChannelHealth{
			Channel: string(t.Channel()),
			State:   t.State().String(),
			Ticks:   t.Ticks(),
		})
	}
	writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: data})
}

// RoleData describes the authenticated caller.
type RoleData struct {
	vessel.RoleContext
	Channels []string `json:"channels"`
}

// handleMe serves GET /api/me: the caller's role and the channels it may
// subscribe to.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	rc := roleFrom(r.Context())
	data := RoleData{RoleContext: rc, Channels: []string{}}
	for _, ch := range subscription.Channels {
		if err := s.authz.CanSubscribe(rc.Role, ch); err == nil {
			data.Channels = append(data.Channels, string(ch))
		}
	}
	writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: data})
}

func (s *Server) assignmentsFor(r *http.Request, rc vessel.RoleContext) ([]vessel.Assignment, error) {
	if rc.Role != vessel.RoleOperator {
		return nil, nil
	}
	a, err := s.store.ListAssignments(r.Context(), rc.UserID)
	if err != nil {
		metrics.RecordStoreError("list_assignments")
		return nil, err
	}
	return a, nil
}

package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/stopload/internal/core"
	"github.com/go-chi/chi/v5"
)

const healthTimeout = 2 * time.Second

// StopList is the body of list endpoints.
type StopList struct {
	Stops []core.Stop `json:"stops"`
	Count int         `json:"count"`
	Limit int         `json:"limit"`
}

// PredictionResponse is the body of GET /api/predictions.
type PredictionResponse struct {
	Stop        core.NearestStop  `json:"stop"`
	RouteTag    string            `json:"route_tag"`
	Predictions []core.Prediction `json:"predictions"`
	Message     string            `json:"message"`
}

// handleHealth reports 200 when the database answers a ping.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		respondError(w, r, err, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleGetStop returns one stop by stop_id.
func (s *Server) handleGetStop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "stopID")

	stop, err := s.stops.GetStop(r.Context(), id)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, stop)
}

// handleListStops serves ?code= (exact stop_code) or ?name= (name prefix).
func (s *Server) handleListStops(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		respondBadRequest(w, r, http.StatusBadRequest, err.Error())
		return
	}

	code := strings.TrimSpace(q.Get("code"))
	name := strings.TrimSpace(q.Get("name"))

	var stops []core.Stop
	switch {
	case code != "" && name != "":
		respondBadRequest(w, r, http.StatusBadRequest, "use either code or name, not both")
		return
	case code != "":
		stops, err = s.stops.FindByCode(r.Context(), code, limit)
	case name != "":
		stops, err = s.stops.FindByName(r.Context(), name, limit)
	default:
		respondBadRequest(w, r, http.StatusBadRequest, "code or name query parameter is required")
		return
	}
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, StopList{Stops: stops, Count: len(stops), Limit: limit})
}

// handleNearestStop returns the closest stop to ?lat=&lon=.
func (s *Server) handleNearestStop(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, lon, err := parseQueryPoint(q.Get("lat"), q.Get("lon"))
	if err != nil {
		respondBadRequest(w, r, http.StatusBadRequest, err.Error())
		return
	}

	nearest, err := s.stops.Nearest(r.Context(), lat, lon)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, nearest)
}

// handlePredictions finds the stop closest to ?lat=&lon= and returns the
// next arrivals of ?route_tag= there.
func (s *Server) handlePredictions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, lon, err := parseQueryPoint(q.Get("lat"), q.Get("lon"))
	if err != nil {
		respondBadRequest(w, r, http.StatusBadRequest, err.Error())
		return
	}
	routeTag := strings.TrimSpace(q.Get("route_tag"))
	if routeTag == "" {
		respondBadRequest(w, r, http.StatusBadRequest, "route_tag query parameter is required")
		return
	}

	nearest, err := s.stops.Nearest(r.Context(), lat, lon)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	preds, err := s.predictions.Predictions(r.Context(), routeTag, nearest.ID)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if preds == nil {
		preds = []core.Prediction{}
	}

	writeJSON(w, http.StatusOK, PredictionResponse{
		Stop:        nearest,
		RouteTag:    routeTag,
		Predictions: preds,
		Message:     core.FormatPredictionMessage(routeTag, preds),
	})
}

// handleCountStops returns the number of imported stops.
func (s *Server) handleCountStops(w http.ResponseWriter, r *http.Request) {
	n, err := s.stops.Count(r.Context())
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": n})
}

// statusFor picks the HTTP status for a store error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrStopNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrPredictionFeed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// parseLimit reads ?limit=. Empty means the default; values above the
// maximum are clamped.
func parseLimit(val string) (int, error) {
	if val == "" {
		return core.DefaultLimit, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	return core.ClampLimit(n), nil
}

// parseQueryPoint reads a required, in-range lat/lon pair.
func parseQueryPoint(latVal, lonVal string) (float64, float64, error) {
	lat, err := parseQueryCoordinate(latVal, "lat")
	if err != nil {
		return 0, 0, err
	}
	lon, err := parseQueryCoordinate(lonVal, "lon")
	if err != nil {
		return 0, 0, err
	}
	if err := core.CheckCoordinates(lat, lon); err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

func parseQueryCoordinate(val, name string) (float64, error) {
	if strings.TrimSpace(val) == "" {
		return 0, fmt.Errorf("%s query parameter is required", name)
	}
	f, err := core.ParseCoordinate(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %v", name, err)
	}
	return f, nil
}

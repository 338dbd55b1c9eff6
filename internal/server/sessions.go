package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/geodeza/mapmeasure/internal/geo"
	"github.com/geodeza/mapmeasure/internal/measure"
)

// sessionView is the JSON shape of a measurement session.
type sessionView struct {
	ID           string         `json:"id"`
	State        string         `json:"state"`
	Points       int            `json:"points"`
	Kind         string         `json:"kind"`
	Km           *float64       `json:"km,omitempty"`
	SquareMeters *float64       `json:"square_meters,omitempty"`
	Display      string         `json:"display,omitempty"`
	Anchor       *measure.Point `json:"anchor,omitempty"`
}

func viewOf(id string, sess *measure.Session) sessionView {
	res := sess.Result()

	v := sessionView{
		ID:      id,
		State:   sess.State().String(),
		Points:  len(sess.Points()),
		Kind:    res.Kind.String(),
		Display: res.Display(),
	}

	switch res.Kind {
	case measure.Distance:
		km := res.Km
		v.Km = &km
	case measure.Area:
		m2 := res.SquareMeters
		v.SquareMeters = &m2
	}

	if res.Kind != measure.None {
		anchor := res.Anchor
		v.Anchor = &anchor
	}

	return v
}

// HandleSessions routes the measurement session API:
//
//	POST   /api/sessions                start a session
//	GET    /api/sessions/{id}           current measurement
//	DELETE /api/sessions/{id}           drop the session
//	POST   /api/sessions/{id}/start     resume collecting after a clear
//	POST   /api/sessions/{id}/points    append a point {lat, lng}
//	DELETE /api/sessions/{id}/points    clear the sequence
//	GET    /api/sessions/{id}/geojson   drawn geometry as a GeoJSON feature
func (s *ServerContext) HandleSessions(w http.ResponseWriter, r *http.Request) {
	// Path: /api/sessions[/{id}[/points|geojson|start]]
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 || len(parts) > 4 {
		http.NotFound(w, r)
		return
	}

	// collection: POST /api/sessions
	if len(parts) == 2 {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		id, sess := s.Sessions.Create()
		writeJSON(w, http.StatusCreated, viewOf(id, sess))
		return
	}

	id := parts[2]
	sess, ok := s.Sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	if len(parts) == 3 {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, viewOf(id, sess))
		case http.MethodDelete:
			s.Sessions.Delete(id)
			w.WriteHeader(http.StatusNoContent)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	switch parts[3] {
	case "start":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		sess.Start()
		writeJSON(w, http.StatusOK, viewOf(id, sess))

	case "points":
		s.handleSessionPoints(w, r, id, sess)

	case "geojson":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		f := geo.MeasurementFeature(sess.Points(), sess.Result())
		if f == nil {
			writeError(w, http.StatusNotFound, "session has no geometry")
			return
		}

		w.Header().Set("Content-Type", "application/geo+json")
		_ = json.NewEncoder(w).Encode(f)

	default:
		http.NotFound(w, r)
	}
}

func (s *ServerContext) handleSessionPoints(w http.ResponseWriter, r *http.Request, id string, sess *measure.Session) {
	switch r.Method {
	case http.MethodPost:
		var body struct {
			Lat *float64 `json:"lat"`
			Lng *float64 `json:"lng"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "malformed JSON body")
			return
		}
		if body.Lat == nil || body.Lng == nil {
			writeError(w, http.StatusBadRequest, "lat and lng are required")
			return
		}

		if _, err := sess.Append(*body.Lat, *body.Lng); err != nil {
			switch {
			case errors.Is(err, measure.ErrInvalidCoordinate):
				writeError(w, http.StatusBadRequest, err.Error())
			case errors.Is(err, measure.ErrNotCollecting):
				writeError(w, http.StatusConflict, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}

		writeJSON(w, http.StatusOK, viewOf(id, sess))

	case http.MethodDelete:
		sess.Clear()
		writeJSON(w, http.StatusOK, viewOf(id, sess))

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

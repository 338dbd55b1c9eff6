package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geodeza/mapmeasure/internal/config"
	"github.com/geodeza/mapmeasure/internal/geo"
	"github.com/geodeza/mapmeasure/internal/measure"
	"github.com/geodeza/mapmeasure/internal/server"
)

type sessionView struct {
	ID           string   `json:"id"`
	State        string   `json:"state"`
	Points       int      `json:"points"`
	Kind         string   `json:"kind"`
	Km           *float64 `json:"km"`
	SquareMeters *float64 `json:"square_meters"`
	Display      string   `json:"display"`
	Anchor       *struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"anchor"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	sessions := measure.NewManager(measure.NewEngine(geo.Spherical{}))
	ctx := server.NewServerContext(&config.Config{ZoomLimit: 6}, sessions)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/maps", ctx.HandleMapsList)
	mux.HandleFunc("/api/sessions", ctx.HandleSessions)
	mux.HandleFunc("/api/sessions/", ctx.HandleSessions)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}

	return resp, data
}

func decodeView(t *testing.T, data []byte) sessionView {
	t.Helper()

	var v sessionView
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("failed to decode session view %q: %v", data, err)
	}
	return v
}

func createSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	resp, data := doJSON(t, http.MethodPost, srv.URL+"/api/sessions", "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}

	v := decodeView(t, data)
	if v.ID == "" || v.State != "collecting" || v.Kind != "none" {
		t.Fatalf("unexpected new session: %+v", v)
	}
	return v.ID
}

func appendPoint(t *testing.T, srv *httptest.Server, id string, lat, lng float64) sessionView {
	t.Helper()

	body, _ := json.Marshal(map[string]float64{"lat": lat, "lng": lng})
	resp, data := doJSON(t, http.MethodPost, srv.URL+"/api/sessions/"+id+"/points", string(body))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("append (%v, %v): expected 200, got %d: %s", lat, lng, resp.StatusCode, data)
	}
	return decodeView(t, data)
}

func TestSessionAPI_MeasureFlow(t *testing.T) {
	srv := newTestServer(t)
	id := createSession(t, srv)

	v := appendPoint(t, srv, id, 0, 0)
	if v.Kind != "none" || v.Points != 1 || v.Display != "" {
		t.Errorf("one point: unexpected view %+v", v)
	}

	v = appendPoint(t, srv, id, 0, 1)
	if v.Kind != "distance" || v.Points != 2 {
		t.Fatalf("two points: unexpected view %+v", v)
	}
	if v.Km == nil || *v.Km < 110 || *v.Km > 112 {
		t.Errorf("expected ~111 km, got %v", v.Km)
	}
	if !strings.HasSuffix(v.Display, " km") {
		t.Errorf("unexpected display %q", v.Display)
	}
	if v.Anchor == nil || v.Anchor.Lat != 0 || v.Anchor.Lng != 1 {
		t.Errorf("anchor must be the second point, got %+v", v.Anchor)
	}

	appendPoint(t, srv, id, 1, 1)
	v = appendPoint(t, srv, id, 1, 0)
	if v.Kind != "area" || v.Points != 4 {
		t.Fatalf("four points: unexpected view %+v", v)
	}
	if v.SquareMeters == nil || *v.SquareMeters <= 0 {
		t.Errorf("expected positive area, got %v", v.SquareMeters)
	}
	if !strings.HasSuffix(v.Display, " km²") {
		t.Errorf("unexpected display %q", v.Display)
	}
	if v.Anchor == nil || v.Anchor.Lat < 0.4 || v.Anchor.Lat > 0.6 {
		t.Errorf("anchor should be near the centroid, got %+v", v.Anchor)
	}

	// GET reflects the same state
	resp, data := doJSON(t, http.MethodGet, srv.URL+"/api/sessions/"+id, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	if got := decodeView(t, data); got.Kind != "area" || got.Points != 4 {
		t.Errorf("get diverged from append: %+v", got)
	}
}

func TestSessionAPI_GeoJSONExport(t *testing.T) {
	srv := newTestServer(t)
	id := createSession(t, srv)

	// empty session has nothing to export
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/sessions/"+id+"/geojson", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("empty export: expected 404, got %d", resp.StatusCode)
	}

	appendPoint(t, srv, id, 0, 0)
	appendPoint(t, srv, id, 0, 1)
	appendPoint(t, srv, id, 1, 1)

	resp, data := doJSON(t, http.MethodGet, srv.URL+"/api/sessions/"+id+"/geojson", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export: expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("unexpected content type %q", ct)
	}

	var feature struct {
		Type     string `json:"type"`
		Geometry struct {
			Type        string `json:"type"`
			Coordinates []any  `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]any `json:"properties"`
	}
	if err := json.Unmarshal(data, &feature); err != nil {
		t.Fatalf("failed to decode feature: %v", err)
	}
	if feature.Type != "Feature" || feature.Geometry.Type != "Polygon" {
		t.Errorf("expected a Polygon feature, got %s/%s", feature.Type, feature.Geometry.Type)
	}
	if feature.Properties["kind"] != "area" {
		t.Errorf("expected kind area, got %v", feature.Properties["kind"])
	}
}

func TestSessionAPI_ClearAndRestart(t *testing.T) {
	srv := newTestServer(t)
	id := createSession(t, srv)

	appendPoint(t, srv, id, 0, 0)
	appendPoint(t, srv, id, 0, 1)

	resp, data := doJSON(t, http.MethodDelete, srv.URL+"/api/sessions/"+id+"/points", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("clear: expected 200, got %d", resp.StatusCode)
	}
	v := decodeView(t, data)
	if v.State != "idle" || v.Points != 0 || v.Kind != "none" {
		t.Errorf("clear: unexpected view %+v", v)
	}

	// clicks while idle are a conflict
	body := `{"lat": 1, "lng": 1}`
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/sessions/"+id+"/points", body)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("idle append: expected 409, got %d", resp.StatusCode)
	}

	// resume collecting
	resp, data = doJSON(t, http.MethodPost, srv.URL+"/api/sessions/"+id+"/start", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start: expected 200, got %d", resp.StatusCode)
	}
	if v := decodeView(t, data); v.State != "collecting" {
		t.Errorf("start: unexpected view %+v", v)
	}

	if v := appendPoint(t, srv, id, 1, 1); v.Points != 1 {
		t.Errorf("append after restart: unexpected view %+v", v)
	}
}

func TestSessionAPI_BadInput(t *testing.T) {
	srv := newTestServer(t)
	id := createSession(t, srv)

	cases := []struct {
		name string
		body string
	}{
		{"lat out of range", `{"lat": 95, "lng": 0}`},
		{"lng out of range", `{"lat": 0, "lng": 200}`},
		{"missing lng", `{"lat": 1}`},
		{"malformed json", `{"lat": `},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/sessions/"+id+"/points", tc.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
		})
	}

	// rejected input must not grow the sequence
	resp, data := doJSON(t, http.MethodGet, srv.URL+"/api/sessions/"+id, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	if v := decodeView(t, data); v.Points != 0 {
		t.Errorf("rejected points leaked into the sequence: %+v", v)
	}
}

func TestSessionAPI_LifecycleAndErrors(t *testing.T) {
	srv := newTestServer(t)

	// collection endpoint only creates
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/sessions", "")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}

	// unknown session
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/sessions/does-not-exist", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}

	// delete drops the session
	id := createSession(t, srv)
	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/sessions/"+id, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/sessions/"+id, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("deleted session still resolvable: %d", resp.StatusCode)
	}
}

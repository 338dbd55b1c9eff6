package geo_test

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"

	"github.com/geodeza/mapmeasure/internal/geo"
	"github.com/geodeza/mapmeasure/internal/measure"
)

func TestLocationsCollection(t *testing.T) {
	fc := geo.LocationsCollection([]geo.Location{
		{Name: "Old Town", Lat: 43.263, Lng: -2.935, Type: "District"},
		{Name: "Harbor", Lat: 43.27, Lng: -2.94},
	})

	if len(fc.Features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(fc.Features))
	}

	f := fc.Features[0]
	pt, ok := f.Geometry.(orb.Point)
	if !ok {
		t.Fatalf("expected point geometry, got %T", f.Geometry)
	}
	if pt.Lon() != -2.935 || pt.Lat() != 43.263 {
		t.Errorf("wrong coordinates: %v", pt)
	}
	if f.Properties["name"] != "Old Town" {
		t.Errorf("wrong name: %v", f.Properties["name"])
	}
	if f.Properties["type"] != "district" {
		t.Errorf("type must be lowercased: %v", f.Properties["type"])
	}

	// round-trips as valid GeoJSON
	data, err := json.Marshal(fc)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if raw["type"] != "FeatureCollection" {
		t.Errorf("expected FeatureCollection, got %v", raw["type"])
	}
}

func TestMeasurementFeature_Shapes(t *testing.T) {
	a := measure.Point{Lat: 0, Lng: 0}
	b := measure.Point{Lat: 0, Lng: 1}
	c := measure.Point{Lat: 1, Lng: 1}

	if f := geo.MeasurementFeature(nil, measure.Result{}); f != nil {
		t.Error("empty sequence must produce no feature")
	}

	f := geo.MeasurementFeature([]measure.Point{a}, measure.Result{})
	if _, ok := f.Geometry.(orb.Point); !ok {
		t.Errorf("one point must export a Point, got %T", f.Geometry)
	}
	if f.Properties["kind"] != "none" {
		t.Errorf("expected kind none, got %v", f.Properties["kind"])
	}

	res := measure.Result{Kind: measure.Distance, Km: 111.19, Anchor: b}
	f = geo.MeasurementFeature([]measure.Point{a, b}, res)
	if _, ok := f.Geometry.(orb.LineString); !ok {
		t.Errorf("two points must export a LineString, got %T", f.Geometry)
	}
	if f.Properties["kind"] != "distance" {
		t.Errorf("expected kind distance, got %v", f.Properties["kind"])
	}
	if f.Properties["display"] != "111.19 km" {
		t.Errorf("wrong display: %v", f.Properties["display"])
	}
	if f.Properties["km"] != 111.19 {
		t.Errorf("wrong km: %v", f.Properties["km"])
	}

	res = measure.Result{Kind: measure.Area, SquareMeters: 100, Anchor: measure.Point{Lat: 0.5, Lng: 0.5}}
	f = geo.MeasurementFeature([]measure.Point{a, b, c}, res)
	poly, ok := f.Geometry.(orb.Polygon)
	if !ok {
		t.Fatalf("three points must export a Polygon, got %T", f.Geometry)
	}
	ring := poly[0]
	if len(ring) != 4 {
		t.Fatalf("ring must be closed, got %d points", len(ring))
	}
	if ring[0] != ring[len(ring)-1] {
		t.Error("ring first and last points must coincide")
	}
	if f.Properties["square_meters"] != 100.0 {
		t.Errorf("wrong square_meters: %v", f.Properties["square_meters"])
	}
	anchor, ok := f.Properties["anchor"].([]float64)
	if !ok || anchor[0] != 0.5 || anchor[1] != 0.5 {
		t.Errorf("wrong anchor: %v", f.Properties["anchor"])
	}
}

package geo

import (
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/geodeza/mapmeasure/internal/measure"
)

// Location is a named point of interest as it appears in config files and
// plain location feeds, before conversion to GeoJSON.
type Location struct {
	Name string  `yaml:"name" json:"name"`
	Lat  float64 `yaml:"lat" json:"lat"`
	Lng  float64 `yaml:"lng" json:"lng"`
	Type string  `yaml:"type,omitempty" json:"type,omitempty"`
}

// LocationsCollection converts plain locations into the FeatureCollection
// the viewer consumes for label overlays. Type names are lowercased so the
// frontend can key icons off them.
func LocationsCollection(locs []Location) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, l := range locs {
		f := geojson.NewFeature(orb.Point{l.Lng, l.Lat})
		f.Properties = geojson.Properties{
			"name": l.Name,
			"type": strings.ToLower(l.Type),
		}
		fc.Append(f)
	}

	return fc
}

// MeasurementFeature renders a measurement session as a single GeoJSON
// feature: a Point, LineString, or Polygon depending on how many points
// were collected, with the measurement attached as properties. Returns nil
// for an empty sequence.
func MeasurementFeature(points []measure.Point, res measure.Result) *geojson.Feature {
	if len(points) == 0 {
		return nil
	}

	var f *geojson.Feature

	switch len(points) {
	case 1:
		f = geojson.NewFeature(orbPoint(points[0]))
	case 2:
		f = geojson.NewFeature(orb.LineString{orbPoint(points[0]), orbPoint(points[1])})
	default:
		ring := make(orb.Ring, 0, len(points)+1)
		for _, p := range points {
			ring = append(ring, orbPoint(p))
		}
		ring = append(ring, ring[0])
		f = geojson.NewFeature(orb.Polygon{ring})
	}

	f.Properties = geojson.Properties{
		"kind":    res.Kind.String(),
		"display": res.Display(),
	}

	switch res.Kind {
	case measure.Distance:
		f.Properties["km"] = res.Km
	case measure.Area:
		f.Properties["square_meters"] = res.SquareMeters
	}

	if res.Kind != measure.None {
		f.Properties["anchor"] = []float64{res.Anchor.Lng, res.Anchor.Lat}
	}

	return f
}

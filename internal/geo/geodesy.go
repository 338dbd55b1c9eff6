// Package geo adapts the paulmach/orb geospatial library into the
// capabilities the measurement engine and the location pipeline consume.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"

	"github.com/geodeza/mapmeasure/internal/measure"
)

// Spherical implements measure.Geodesy with orb's spherical math:
// haversine great-circle distances and spherical ring areas. Centroids are
// planar, which matches how the viewer places labels on a Mercator map.
type Spherical struct{}

// Distance returns the great-circle distance between a and b in meters.
func (Spherical) Distance(a, b measure.Point) float64 {
	return orbgeo.Distance(orbPoint(a), orbPoint(b))
}

// RingArea returns the spherical area of the closed ring in square meters.
func (Spherical) RingArea(ring []measure.Point) float64 {
	return orbgeo.Area(orbRing(ring))
}

// Centroid returns the geometric center of the closed ring. Degenerate
// rings with no usable planar centroid fall back to the vertex mean.
func (Spherical) Centroid(ring []measure.Point) measure.Point {
	c, area := planar.CentroidArea(orbRing(ring))
	if area == 0 || math.IsNaN(c.Lon()) || math.IsNaN(c.Lat()) {
		return vertexMean(ring)
	}

	return measure.Point{Lat: c.Lat(), Lng: c.Lon()}
}

// vertexMean averages the ring's vertices, skipping the closing duplicate.
func vertexMean(ring []measure.Point) measure.Point {
	n := len(ring)
	if n > 1 && ring[0] == ring[n-1] {
		n--
	}
	if n == 0 {
		return measure.Point{}
	}

	var lat, lng float64
	for _, p := range ring[:n] {
		lat += p.Lat
		lng += p.Lng
	}

	return measure.Point{Lat: lat / float64(n), Lng: lng / float64(n)}
}

func orbPoint(p measure.Point) orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

func orbRing(ring []measure.Point) orb.Ring {
	r := make(orb.Ring, len(ring))
	for i, p := range ring {
		r[i] = orbPoint(p)
	}

	return r
}

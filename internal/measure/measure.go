// Package measure turns an ordered sequence of user-picked geographic
// points into a classified measurement: nothing, a great-circle distance,
// or a polygon area, together with an anchor point for label placement.
package measure

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
)

// ErrInvalidCoordinate is returned when a latitude/longitude pair is NaN,
// infinite, or outside the WGS84 value range. Invalid points are rejected
// before they ever enter a sequence, so computation never sees them.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Point is a geographic coordinate in degrees (WGS84).
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NewPoint validates the pair and returns it as a Point.
func NewPoint(lat, lng float64) (Point, error) {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return Point{}, fmt.Errorf("%w: lat %v", ErrInvalidCoordinate, lat)
	}
	if math.IsNaN(lng) || math.IsInf(lng, 0) || lng < -180 || lng > 180 {
		return Point{}, fmt.Errorf("%w: lng %v", ErrInvalidCoordinate, lng)
	}

	return Point{Lat: lat, Lng: lng}, nil
}

// Kind tags the result of a computation.
type Kind int

const (
	// None means the sequence is too short to measure (0 or 1 point).
	None Kind = iota
	// Distance is a two-point great-circle measurement.
	Distance
	// Area is a closed-ring measurement over three or more points.
	Area
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case Distance:
		return "distance"
	case Area:
		return "area"
	default:
		return "none"
	}
}

// Result is the outcome of measuring a point sequence. Exactly one of Km
// and SquareMeters is meaningful, selected by Kind; Anchor is where the
// UI should place the measurement label (the second point for a distance,
// the ring centroid for an area) and is zero for None.
type Result struct {
	Kind         Kind
	Km           float64
	SquareMeters float64
	Anchor       Point
}

// Geodesy is the injected spherical-math capability. Distances are meters,
// areas square meters. Rings passed to RingArea and Centroid are closed
// (first point repeated last).
type Geodesy interface {
	Distance(a, b Point) float64
	RingArea(ring []Point) float64
	Centroid(ring []Point) Point
}

// Engine computes measurements over point sequences. It is stateless and
// safe for concurrent use.
type Engine struct {
	geo Geodesy
}

// NewEngine returns an engine backed by the given geodesy provider.
func NewEngine(geo Geodesy) *Engine {
	return &Engine{geo: geo}
}

// Compute classifies the sequence and measures it:
//
//   - 0 or 1 points: None
//   - 2 points: Distance between them, anchored at the second
//   - 3+ points: Area of the implicitly closed ring, anchored at its centroid
//
// Compute is total: degenerate geometry yields a zero-valued result, and a
// fault in the geodesy provider is swallowed and reported as None so the
// caller's render path never crashes on a measurement error.
func (e *Engine) Compute(points []Point) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Debug().
				Interface("panic", r).
				Int("points", len(points)).
				Msg("Geodesy fault swallowed, returning empty result")
			res = Result{}
		}
	}()

	switch {
	case len(points) < 2:
		return Result{}

	case len(points) == 2:
		meters := e.geo.Distance(points[0], points[1])
		return Result{
			Kind:   Distance,
			Km:     meters / 1000,
			Anchor: points[1],
		}

	default:
		ring := make([]Point, 0, len(points)+1)
		ring = append(ring, points...)
		ring = append(ring, points[0])

		return Result{
			Kind:         Area,
			SquareMeters: math.Abs(e.geo.RingArea(ring)),
			Anchor:       e.geo.Centroid(ring),
		}
	}
}

package measure

import (
	"errors"
	"sync"
	"time"
)

// ErrNotCollecting is returned when a point arrives for a session that is
// not actively measuring. The embedded viewer never sends such clicks;
// surfacing the error keeps misbehaving API clients visible.
var ErrNotCollecting = errors.New("session is not collecting")

// State is the session lifecycle position.
type State int

const (
	// Idle means no measurement is in progress; clicks are ignored.
	Idle State = iota
	// Collecting means points are being appended to the sequence.
	Collecting
)

// String returns the wire name of the state.
func (s State) String() string {
	if s == Collecting {
		return "collecting"
	}
	return "idle"
}

// Session owns one measurement's point sequence and its lifecycle:
// Idle -> Collecting (start) -> Idle (clear). The sequence is append-only
// while collecting and the result is recomputed on every mutation, never
// cached across them. Safe for concurrent use.
type Session struct {
	mu      sync.Mutex
	engine  *Engine
	state   State
	points  []Point
	result  Result
	touched time.Time
}

// NewSession returns an idle session bound to the engine.
func NewSession(engine *Engine) *Session {
	return &Session{engine: engine, touched: time.Now()}
}

// Start moves the session to Collecting. Starting an already collecting
// session is a no-op.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Collecting
	s.touched = time.Now()
}

// Append validates the coordinate, records it, and returns the recomputed
// result. Invalid coordinates are refused at this boundary and the
// sequence is left untouched.
func (s *Session) Append(lat, lng float64) (Result, error) {
	p, err := NewPoint(lat, lng)
	if err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Collecting {
		return Result{}, ErrNotCollecting
	}

	s.points = append(s.points, p)
	s.result = s.engine.Compute(s.points)
	s.touched = time.Now()

	return s.result, nil
}

// Clear drops all points and returns the session to Idle.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Idle
	s.points = nil
	s.result = Result{}
	s.touched = time.Now()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Result returns the measurement for the current sequence.
func (s *Session) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.result
}

// Points returns a copy of the current sequence.
func (s *Session) Points() []Point {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Point, len(s.points))
	copy(out, s.points)

	return out
}

// LastActive reports when the session was last mutated.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.touched
}

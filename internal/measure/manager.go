package measure

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Manager owns the server's live measurement sessions.
type Manager struct {
	mu       sync.RWMutex
	engine   *Engine
	sessions map[string]*Session
}

// NewManager returns an empty manager creating sessions on the engine.
func NewManager(engine *Engine) *Manager {
	return &Manager{
		engine:   engine,
		sessions: make(map[string]*Session),
	}
}

// Create registers a new session, already collecting, and returns its id.
func (m *Manager) Create() (string, *Session) {
	id := uuid.NewString()

	s := NewSession(m.engine)
	s.Start()

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	log.Debug().Str("session", id).Msg("Measurement session created")

	return id, s
}

// Get looks up a session by id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	return s, ok
}

// Delete drops the session if present.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions)
}

// EvictIdle removes sessions untouched for longer than ttl and returns how
// many were dropped.
func (m *Manager) EvictIdle(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			delete(m.sessions, id)
			evicted++
		}
	}

	if evicted > 0 {
		log.Info().
			Int("evicted", evicted).
			Int("remaining", len(m.sessions)).
			Msg("Evicted idle measurement sessions")
	}

	return evicted
}

// Janitor evicts idle sessions every interval until stop is closed.
func (m *Manager) Janitor(interval, ttl time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.EvictIdle(ttl)
		case <-stop:
			return
		}
	}
}

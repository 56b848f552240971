package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when a session id is unknown, typically because
// the session was dropped.
var ErrNotFound = errors.New("session not found")

// Manager is the process-wide session registry.
type Manager struct {
	maxEntries int

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a registry whose sessions get trees with the given
// fan-out.
func NewManager(maxEntries int) *Manager {
	return &Manager{
		maxEntries: maxEntries,
		sessions:   map[string]*Session{},
	}
}

// Create registers a new session with an empty tree and a fresh id.
func (m *Manager) Create() *Session {
	s := newSession(uuid.NewString(), m.maxEntries)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s

	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "session %s", id)
	}
	return s, nil
}

// Drop removes the session and closes its observers. The tree is released
// with it.
func (m *Manager) Drop(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return errors.Wrapf(ErrNotFound, "session %s", id)
	}

	s.close()
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

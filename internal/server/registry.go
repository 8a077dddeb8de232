package server

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/jcutting/facturarator/internal/config"
	"github.com/jcutting/facturarator/internal/session"
)

// ErrSessionNotFound is returned for unknown or expired session IDs.
var ErrSessionNotFound = errors.New("session not found")

// Registry holds the live review sessions. Sessions exist only in memory
// and vanish with the process; there is deliberately no persistence.
type Registry struct {
	mu       sync.Mutex
	cfg      *config.Config
	sessions map[uuid.UUID]*session.Session
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg *config.Config) *Registry {
	return &Registry{
		cfg:      cfg,
		sessions: make(map[uuid.UUID]*session.Session),
	}
}

// Create starts a new session.
func (r *Registry) Create() *session.Session {
	s := session.New(r.cfg, nil)

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	return s
}

// Get looks up a session by ID.
func (r *Registry) Get(id uuid.UUID) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete removes a session.
func (r *Registry) Delete(id uuid.UUID) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

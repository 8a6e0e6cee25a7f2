package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for an unknown session id.
var ErrSessionNotFound = errors.New("session not found")

// Factory builds a new Session starting in the given language.
type Factory func(language string) (*Session, error)

// Registry holds independent sessions for remote transports. Each session is
// guarded by its own lock, so different sessions progress concurrently while
// turns within one session stay strictly sequential.
type Registry struct {
	factory Factory

	mu       sync.RWMutex
	sessions map[string]*entry
}

type entry struct {
	mu sync.Mutex
	s  *Session
}

// NewRegistry creates an empty registry.
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		factory:  factory,
		sessions: make(map[string]*entry),
	}
}

// Open creates a session and returns its id.
func (r *Registry) Open(language string) (string, error) {
	s, err := r.factory(language)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()

	r.mu.Lock()
	r.sessions[id] = &entry{s: s}
	r.mu.Unlock()
	return id, nil
}

// With runs fn with exclusive access to the session.
func (r *Registry) With(id string, fn func(*Session) error) error {
	r.mu.RLock()
	e, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.s)
}

// Close drops a session.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(r.sessions, id)
	return nil
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

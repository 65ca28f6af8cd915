// Package session keeps one product store per viewer session.
package session

import (
	"log/slog"
	"sync"
	"time"

	catalogerrors "github.com/abgdnv/catalogviewer/internal/errors"
	"github.com/abgdnv/catalogviewer/internal/store"
	"github.com/google/uuid"
)

// StoreFactory builds the store of a new session. token becomes the store's
// default token.
type StoreFactory func(token string) *store.Store

// Session is one viewer with its own store.
type Session struct {
	ID        uuid.UUID
	Store     *store.Store
	CreatedAt time.Time
}

// Registry holds live sessions in memory.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[uuid.UUID]*Session
	newStore    StoreFactory
	maxSessions int
	logger      *slog.Logger
}

// NewRegistry creates an empty registry. maxSessions <= 0 means no limit.
func NewRegistry(newStore StoreFactory, maxSessions int, logger *slog.Logger) *Registry {
	return &Registry{
		sessions:    make(map[uuid.UUID]*Session),
		newStore:    newStore,
		maxSessions: maxSessions,
		logger:      logger.With("component", "session_registry"),
	}
}

// Create starts a new session.
// Returns ErrSessionLimit when the registry is full.
func (r *Registry) Create(token string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxSessions > 0 && len(r.sessions) >= r.maxSessions {
		return nil, catalogerrors.ErrSessionLimit
	}
	s := &Session{
		ID:        uuid.New(),
		Store:     r.newStore(token),
		CreatedAt: time.Now().UTC(),
	}
	r.sessions[s.ID] = s
	r.logger.Info("session created", "session_id", s.ID, "sessions", len(r.sessions))
	return s, nil
}

// Get returns a live session.
// Returns ErrSessionNotFound if no session exists with the given ID.
func (r *Registry) Get(id uuid.UUID) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, catalogerrors.ErrSessionNotFound
	}
	return s, nil
}

// Dispose removes a session and disposes its store.
// Returns ErrSessionNotFound if no session exists with the given ID.
func (r *Registry) Dispose(id uuid.UUID) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok {
		return catalogerrors.ErrSessionNotFound
	}
	s.Store.Dispose()
	r.logger.Info("session disposed", "session_id", id)
	return nil
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close disposes every session.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[uuid.UUID]*Session)
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Store.Dispose()
		}()
	}
	wg.Wait()
	r.logger.Info("session registry closed", "disposed", len(sessions))
}

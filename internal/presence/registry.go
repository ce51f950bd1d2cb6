// Package presence tracks which users currently hold a live connection.
// The registry is a liveness hint, not a durability guarantee: it is
// in-memory only and starts empty after a restart.
package presence

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oggyb/matcha-engine/internal/event"
)

// Handle is the live connection a session points at. Implemented by the
// gateway's client; Push must be safe for concurrent use and must not
// block on a slow consumer.
type Handle interface {
	// Push delivers an event to the connection. Returns ErrPresenceStale
	// from internal/errors when the connection is closed or its buffer is
	// exhausted.
	Push(ev event.Event) error
	// Close tears the connection down.
	Close()
}

// Session is one user's live connection.
type Session struct {
	UserID      uint64
	Token       uuid.UUID
	Handle      Handle
	ConnectedAt time.Time
}

// Registry holds at most one session per user. A new register supersedes
// and returns the previous session; unregister is token-checked so a
// stale disconnect racing a reconnect cannot clear the newer session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uint64]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uint64]*Session)}
}

// Register installs a session for the user and returns its token plus the
// superseded session, if any. The caller owns notifying and closing the
// old connection.
func (r *Registry) Register(userID uint64, h Handle) (uuid.UUID, *Session) {
	token := uuid.New()
	session := &Session{
		UserID:      userID,
		Token:       token,
		Handle:      h,
		ConnectedAt: time.Now(),
	}

	r.mu.Lock()
	prev := r.sessions[userID]
	r.sessions[userID] = session
	r.mu.Unlock()

	return token, prev
}

// Unregister removes the user's session only if the token still matches
// the current one. Returns false for a stale token.
func (r *Registry) Unregister(userID uint64, token uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[userID]
	if !ok || current.Token != token {
		return false
	}
	delete(r.sessions, userID)
	return true
}

// Lookup returns the user's live connection handle, if any. Non-blocking.
func (r *Registry) Lookup(userID uint64) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[userID]
	if !ok {
		return nil, false
	}
	return session.Handle, true
}

// ActiveCount reports how many users are currently connected.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

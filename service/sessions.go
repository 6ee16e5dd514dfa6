package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KMA-JAVA-CARD/cardpoint/core"
)

// SessionRegistry owns every live CardSession on this terminal. Sessions are
// held only in process memory; the registry wipes the retained PIN the moment
// a session is cancelled or expires. An abandoned session is immediately
// invalid for further operations.
type SessionRegistry struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]*sessionEntry
}

type sessionEntry struct {
	session   *core.CardSession
	expiresAt time.Time
}

// NewSessionRegistry creates a registry whose sessions expire after ttl of
// existence regardless of activity.
func NewSessionRegistry(ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{
		ttl:     ttl,
		entries: make(map[string]*sessionEntry),
	}
}

// Create registers a fresh session for an authenticated card.
func (r *SessionRegistry) Create(cardSerial, pin string) *core.CardSession {
	session := &core.CardSession{
		ID:         uuid.New().String(),
		CardSerial: cardSerial,
		PIN:        pin,
		StartedAt:  time.Now(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[session.ID] = &sessionEntry{
		session:   session,
		expiresAt: session.StartedAt.Add(r.ttl),
	}
	return session
}

// Resolve returns the live session with the given ID, or ErrSessionExpired
// when it never existed, was cancelled, or aged out.
func (r *SessionRegistry) Resolve(id string) (*core.CardSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, core.ErrSessionExpired
	}
	if time.Now().After(entry.expiresAt) {
		r.destroy(id)
		return nil, core.ErrSessionExpired
	}
	return entry.session, nil
}

// Cancel destroys a session. Safe to call for unknown IDs.
func (r *SessionRegistry) Cancel(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroy(id)
}

// CancelForCard destroys every session bound to a card serial. Used when the
// card is observed to have been removed or replaced.
func (r *SessionRegistry) CancelForCard(cardSerial string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, entry := range r.entries {
		if entry.session.CardSerial == cardSerial {
			r.destroy(id)
		}
	}
}

// destroy wipes and drops an entry. Caller holds the lock.
func (r *SessionRegistry) destroy(id string) {
	if entry, ok := r.entries[id]; ok {
		entry.session.Wipe()
		delete(r.entries, id)
	}
}

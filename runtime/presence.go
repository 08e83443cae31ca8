// Package runtime holds the in-memory presence and channel-routing core:
// who is connected, which channel each connection sits in, and where a
// message must go. It mutates state and computes recipient sets; it never
// talks to the network itself.
package runtime

import (
	"fmt"
	"sync"

	"chat-hub/domain"
	"chat-hub/errors"
)

// PresenceRegistry is the source of truth for "who is online". Entries are
// keyed by connection id; a secondary index per user id supports
// multi-device lookups. Insertion order is preserved for snapshots.
type PresenceRegistry struct {
	mu      sync.RWMutex
	entries []domain.PresenceEntry
	byConn  map[domain.ConnectionID]domain.User
	byUser  map[domain.UserID][]domain.ConnectionID
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		byConn: make(map[domain.ConnectionID]domain.User),
		byUser: make(map[domain.UserID][]domain.ConnectionID),
	}
}

// Add registers a new live connection for a user. A user may already hold
// other connections; only a repeated connection id is an error.
func (r *PresenceRegistry) Add(user domain.User, conn domain.ConnectionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byConn[conn]; ok {
		return fmt.Errorf("presence add %s: %w", conn, errors.ErrDuplicateConnection)
	}

	r.byConn[conn] = user
	r.byUser[user.ID] = append(r.byUser[user.ID], conn)
	r.entries = append(r.entries, domain.PresenceEntry{User: user, Connection: conn})
	return nil
}

// Remove drops the entry for a connection id. Removing an absent
// connection is a no-op, so duplicate disconnect notifications are safe.
// The return value reports whether anything changed.
func (r *PresenceRegistry) Remove(conn domain.ConnectionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byConn[conn]
	if !ok {
		return false
	}
	delete(r.byConn, conn)

	conns := r.byUser[user.ID]
	for i, c := range conns {
		if c == conn {
			conns = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(conns) == 0 {
		delete(r.byUser, user.ID)
	} else {
		r.byUser[user.ID] = conns
	}

	for i, e := range r.entries {
		if e.Connection == conn {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			break
		}
	}
	return true
}

// Snapshot returns a point-in-time copy of all live entries in insertion
// order, for presence broadcasts.
func (r *PresenceRegistry) Snapshot() []domain.PresenceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.PresenceEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Connections returns every live connection id in insertion order.
func (r *PresenceRegistry) Connections() []domain.ConnectionID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ConnectionID, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Connection)
	}
	return out
}

// ConnectionsOf returns the live connections of one user, covering every
// device the user is signed in from.
func (r *PresenceRegistry) ConnectionsOf(user domain.UserID) []domain.ConnectionID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.byUser[user]
	out := make([]domain.ConnectionID, len(conns))
	copy(out, conns)
	return out
}

package runtime

import (
	"fmt"
	"sync"

	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/errors"
)

type memberSet map[domain.ConnectionID]struct{}

// MembershipTable maps each connection to its current channel. A
// connection belongs to at most one channel; joining a new one replaces
// the old membership in a single locked step, so readers never see the
// connection in both channels or in neither.
type MembershipTable struct {
	catalog contract.Catalog

	mu      sync.RWMutex
	byConn  map[domain.ConnectionID]domain.ChannelID
	members map[domain.ChannelID]memberSet
}

func NewMembershipTable(catalog contract.Catalog) *MembershipTable {
	return &MembershipTable{
		catalog: catalog,
		byConn:  make(map[domain.ConnectionID]domain.ChannelID),
		members: make(map[domain.ChannelID]memberSet),
	}
}

// Join moves the connection into channel, returning the previous channel
// id when one existed so the caller can notify its remaining members.
// The catalog is consulted before the table lock is taken; the lookup
// hits disk and must not stall concurrent membership reads.
func (t *MembershipTable) Join(conn domain.ConnectionID, channel domain.ChannelID) (*domain.ChannelID, error) {
	if _, err := t.catalog.Get(channel); err != nil {
		return nil, fmt.Errorf("join channel %d: %w", channel, errors.ErrUnknownChannel)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var previous *domain.ChannelID
	if old, ok := t.byConn[conn]; ok {
		t.removeLocked(conn, old)
		previous = &old
	}

	set, ok := t.members[channel]
	if !ok {
		set = make(memberSet)
		t.members[channel] = set
	}
	set[conn] = struct{}{}
	t.byConn[conn] = channel
	return previous, nil
}

// Leave removes the connection's membership, returning the channel it
// left, or nil when it was in none.
func (t *MembershipTable) Leave(conn domain.ConnectionID) *domain.ChannelID {
	t.mu.Lock()
	defer t.mu.Unlock()

	old, ok := t.byConn[conn]
	if !ok {
		return nil
	}
	t.removeLocked(conn, old)
	return &old
}

// MembersOf returns the current member connections of a channel. The
// slice is a copy, never a view into the table.
func (t *MembershipTable) MembersOf(channel domain.ChannelID) []domain.ConnectionID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	set, ok := t.members[channel]
	if !ok {
		return nil
	}
	out := make([]domain.ConnectionID, 0, len(set))
	for conn := range set {
		out = append(out, conn)
	}
	return out
}

// Purge evicts every member of a deleted channel and returns the evicted
// connection ids so the caller can notify them.
func (t *MembershipTable) Purge(channel domain.ChannelID) []domain.ConnectionID {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.members[channel]
	if !ok {
		return nil
	}
	evicted := make([]domain.ConnectionID, 0, len(set))
	for conn := range set {
		evicted = append(evicted, conn)
		delete(t.byConn, conn)
	}
	delete(t.members, channel)
	return evicted
}

func (t *MembershipTable) removeLocked(conn domain.ConnectionID, channel domain.ChannelID) {
	delete(t.byConn, conn)
	if set, ok := t.members[channel]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(t.members, channel)
		}
	}
}

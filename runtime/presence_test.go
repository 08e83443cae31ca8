package runtime

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chat-hub/domain"
	"chat-hub/errors"
)

func newUser(email string) domain.User {
	return domain.User{ID: domain.UserID(uuid.NewString()), Email: email}
}

func TestPresence_Add_And_Snapshot_Ordered(t *testing.T) {
	req := require.New(t)
	registry := NewPresenceRegistry()
	alice := newUser("alice@example.com")
	bob := newUser("bob@example.com")

	// When connections register in a known order
	req.NoError(registry.Add(alice, "conn-1"))
	req.NoError(registry.Add(bob, "conn-2"))
	req.NoError(registry.Add(alice, "conn-3"))

	// Then the snapshot preserves insertion order
	snapshot := registry.Snapshot()
	req.Len(snapshot, 3)
	req.Equal(domain.ConnectionID("conn-1"), snapshot[0].Connection)
	req.Equal(domain.ConnectionID("conn-2"), snapshot[1].Connection)
	req.Equal(domain.ConnectionID("conn-3"), snapshot[2].Connection)
	req.Equal(alice, snapshot[2].User)
}

func TestPresence_MultiDevice_Same_User(t *testing.T) {
	req := require.New(t)
	registry := NewPresenceRegistry()
	alice := newUser("alice@example.com")

	// Given a user signed in from two devices
	req.NoError(registry.Add(alice, "phone"))
	req.NoError(registry.Add(alice, "laptop"))

	// Then both connections are indexed under the same user
	req.ElementsMatch(
		[]domain.ConnectionID{"phone", "laptop"},
		registry.ConnectionsOf(alice.ID))

	// And removing one device keeps the other
	req.True(registry.Remove("phone"))
	req.Equal([]domain.ConnectionID{"laptop"}, registry.ConnectionsOf(alice.ID))
	req.Len(registry.Snapshot(), 1)
}

func TestPresence_Duplicate_Connection_Fails(t *testing.T) {
	req := require.New(t)
	registry := NewPresenceRegistry()
	alice := newUser("alice@example.com")

	req.NoError(registry.Add(alice, "conn-1"))

	// Registering the same connection id again violates the invariant
	err := registry.Add(alice, "conn-1")
	req.ErrorIs(err, errors.ErrDuplicateConnection)
	req.Len(registry.Snapshot(), 1)
}

func TestPresence_Remove_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewPresenceRegistry()
	alice := newUser("alice@example.com")
	req.NoError(registry.Add(alice, "conn-1"))

	// When the same disconnect arrives twice
	req.True(registry.Remove("conn-1"))
	req.False(registry.Remove("conn-1"))

	// Then the second call changed nothing
	req.Empty(registry.Snapshot())
	req.Empty(registry.Connections())
	req.Empty(registry.ConnectionsOf(alice.ID))
}

func TestPresence_Snapshot_Matches_Adds_Minus_Removes(t *testing.T) {
	req := require.New(t)
	registry := NewPresenceRegistry()
	alice := newUser("alice@example.com")
	bob := newUser("bob@example.com")

	req.NoError(registry.Add(alice, "a1"))
	req.NoError(registry.Add(alice, "a2"))
	req.NoError(registry.Add(bob, "b1"))
	registry.Remove("a1")

	snapshot := registry.Snapshot()
	req.Len(snapshot, 2)
	req.Equal([]domain.ConnectionID{"a2", "b1"}, registry.Connections())
}

func TestPresence_Snapshot_Is_A_Copy(t *testing.T) {
	req := require.New(t)
	registry := NewPresenceRegistry()
	req.NoError(registry.Add(newUser("alice@example.com"), "conn-1"))

	snapshot := registry.Snapshot()
	snapshot[0].Connection = "tampered"

	req.Equal(domain.ConnectionID("conn-1"), registry.Snapshot()[0].Connection)
}

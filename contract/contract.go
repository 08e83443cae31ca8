//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"context"
)

// Transport delivers encoded events to live connections. Implementations
// must be safe for concurrent use. Set and broadcast variants are
// best-effort: a failed recipient is logged by the implementation and
// never interrupts delivery to the others.
type Transport interface {
	SendTo(ctx context.Context, conn domain.ConnectionID, evt event.Envelope) error
	SendToSet(ctx context.Context, conns []domain.ConnectionID, evt event.Envelope)
	SendToAll(ctx context.Context, evt event.Envelope)
}

// Catalog is the durable store of channel records.
type Catalog interface {
	List() ([]domain.Channel, error)
	Create(title string) (domain.Channel, error)
	Delete(id domain.ChannelID) error
	Get(id domain.ChannelID) (domain.Channel, error)
}

// IdentityResolver turns a connection credential into a stable user.
// Fails with errors.ErrAuthenticationRequired when no user resolves.
type IdentityResolver interface {
	ResolveUser(ctx context.Context, credential string) (domain.User, error)
}

type IPresence interface {
	Add(user domain.User, conn domain.ConnectionID) error
	Remove(conn domain.ConnectionID) bool
	Snapshot() []domain.PresenceEntry
	Connections() []domain.ConnectionID
	ConnectionsOf(user domain.UserID) []domain.ConnectionID
}

type IMembership interface {
	Join(conn domain.ConnectionID, channel domain.ChannelID) (*domain.ChannelID, error)
	Leave(conn domain.ConnectionID) *domain.ChannelID
	MembersOf(channel domain.ChannelID) []domain.ConnectionID
	Purge(channel domain.ChannelID) []domain.ConnectionID
}

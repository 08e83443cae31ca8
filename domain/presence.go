// Package domain contains the core concepts of the chat system.
// No runtime, network, or storage logic should be added here.
package domain

// UserID is the stable identity supplied by the auth collaborator.
type UserID string

// ConnectionID identifies one live transport session. A user may hold
// several connections at once (multi-device), each with its own id.
type ConnectionID string

type User struct {
	ID    UserID
	Email string
}

// PresenceEntry is a live (user, connection) pair. Uniqueness is per
// connection, never per user.
type PresenceEntry struct {
	User       User
	Connection ConnectionID
}

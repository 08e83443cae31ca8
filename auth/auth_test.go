package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-hub/domain"
	"chat-hub/errors"
)

var testSecret = []byte("test-secret")

func TestToken_Round_Trip(t *testing.T) {
	req := require.New(t)
	user := domain.User{ID: "u-alice", Email: "alice@example.com"}

	token, err := GenerateToken(user, time.Hour, testSecret)
	req.NoError(err)

	claims, err := ValidateToken(token, testSecret)
	req.NoError(err)
	req.Equal("u-alice", claims.UserID)
	req.Equal("alice@example.com", claims.Email)
	req.Equal("chat-hub", claims.Issuer)
}

func TestToken_Wrong_Secret_Rejected(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken(domain.User{ID: "u", Email: "u@example.com"}, time.Hour, testSecret)
	req.NoError(err)

	_, err = ValidateToken(token, []byte("other-secret"))
	req.Error(err)
}

func TestToken_Expired_Rejected(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken(domain.User{ID: "u", Email: "u@example.com"}, -time.Minute, testSecret)
	req.NoError(err)

	_, err = ValidateToken(token, testSecret)
	req.Error(err)
}

func TestResolver_ResolveUser(t *testing.T) {
	req := require.New(t)
	resolver := NewResolver(testSecret)
	alice := domain.User{ID: "u-alice", Email: "alice@example.com"}

	token, err := GenerateToken(alice, time.Hour, testSecret)
	req.NoError(err)

	resolved, err := resolver.ResolveUser(context.Background(), token)
	req.NoError(err)
	req.Equal(alice, resolved)
}

func TestResolver_Empty_Credential_Fails(t *testing.T) {
	req := require.New(t)
	resolver := NewResolver(testSecret)

	_, err := resolver.ResolveUser(context.Background(), "")

	req.ErrorIs(err, errors.ErrAuthenticationRequired)
}

func TestResolver_Garbage_Credential_Fails(t *testing.T) {
	req := require.New(t)
	resolver := NewResolver(testSecret)

	_, err := resolver.ResolveUser(context.Background(), "not-a-token")

	req.ErrorIs(err, errors.ErrAuthenticationRequired)
}

func TestPassword_Hash_And_Compare(t *testing.T) {
	req := require.New(t)

	hash, err := HashPassword("s3cret")
	req.NoError(err)

	match, err := ComparePassword("s3cret", hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("wrong", hash)
	req.NoError(err)
	req.False(match)
}

func TestPassword_Invalid_Hash_Format(t *testing.T) {
	req := require.New(t)

	_, err := ComparePassword("s3cret", "not-an-encoded-hash")

	req.Error(err)
}

func TestUserStore_Register_And_Authenticate(t *testing.T) {
	req := require.New(t)
	store := NewUserStore()

	registered, err := store.Register("alice@example.com", "s3cret")
	req.NoError(err)
	req.NotEmpty(registered.ID)

	authenticated, err := store.Authenticate("alice@example.com", "s3cret")
	req.NoError(err)
	req.Equal(registered, authenticated)

	_, err = store.Authenticate("alice@example.com", "wrong")
	req.ErrorIs(err, errors.ErrAuthenticationRequired)

	_, err = store.Authenticate("nobody@example.com", "s3cret")
	req.ErrorIs(err, errors.ErrAuthenticationRequired)
}

func TestUserStore_ReRegister_Keeps_User_Id(t *testing.T) {
	req := require.New(t)
	store := NewUserStore()

	first, err := store.Register("alice@example.com", "old")
	req.NoError(err)
	second, err := store.Register("alice@example.com", "new")
	req.NoError(err)

	req.Equal(first.ID, second.ID)

	_, err = store.Authenticate("alice@example.com", "old")
	req.ErrorIs(err, errors.ErrAuthenticationRequired)
	user, err := store.Authenticate("alice@example.com", "new")
	req.NoError(err)
	req.Equal(first.ID, user.ID)
}

func TestUserStore_Seed(t *testing.T) {
	req := require.New(t)
	store := NewUserStore()

	req.NoError(store.Seed("alice@example.com:s3cret, bob@example.com:hunter2"))

	_, err := store.Authenticate("alice@example.com", "s3cret")
	req.NoError(err)
	_, err = store.Authenticate("bob@example.com", "hunter2")
	req.NoError(err)

	req.Error(store.Seed("missing-password"))
	req.NoError(store.Seed(""))
}

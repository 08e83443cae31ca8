package auth

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"chat-hub/domain"
	"chat-hub/errors"
)

type account struct {
	user domain.User
	hash string
}

// UserStore holds the accounts the login endpoint authenticates against.
// Identity stays an external concern for the core; this store backs the
// bundled resolver only.
type UserStore struct {
	mu       sync.RWMutex
	accounts map[string]account // keyed by email
}

func NewUserStore() *UserStore {
	return &UserStore{accounts: make(map[string]account)}
}

// Register creates an account with a fresh user id. Registering an email
// twice replaces the password.
func (s *UserStore) Register(email, password string) (domain.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}
	user := domain.User{ID: domain.UserID(uuid.NewString()), Email: email}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.accounts[email]; ok {
		user = existing.user
	}
	s.accounts[email] = account{user: user, hash: hash}
	return user, nil
}

// Authenticate checks the password for an email and returns the user.
func (s *UserStore) Authenticate(email, password string) (domain.User, error) {
	s.mu.RLock()
	acc, ok := s.accounts[email]
	s.mu.RUnlock()
	if !ok {
		return domain.User{}, errors.ErrAuthenticationRequired
	}

	match, err := ComparePassword(password, acc.hash)
	if err != nil {
		return domain.User{}, err
	}
	if !match {
		return domain.User{}, errors.ErrAuthenticationRequired
	}
	return acc.user, nil
}

// Seed registers accounts from a "email:password,email:password" list,
// the shape used by the SEED_USERS environment variable.
func (s *UserStore) Seed(list string) error {
	if list == "" {
		return nil
	}
	for _, pair := range strings.Split(list, ",") {
		email, password, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || email == "" || password == "" {
			return fmt.Errorf("invalid seed user entry %q", pair)
		}
		if _, err := s.Register(email, password); err != nil {
			return err
		}
	}
	return nil
}

package auth

import (
	"context"
	"fmt"

	"chat-hub/domain"
	"chat-hub/errors"
)

// Resolver turns the token presented at connect time into a user. It is
// the default implementation of the identity-resolver contract.
type Resolver struct {
	secret []byte
}

func NewResolver(secret []byte) *Resolver {
	return &Resolver{secret: secret}
}

func (r *Resolver) ResolveUser(_ context.Context, credential string) (domain.User, error) {
	if credential == "" {
		return domain.User{}, errors.ErrAuthenticationRequired
	}
	claims, err := ValidateToken(credential, r.secret)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", errors.ErrAuthenticationRequired, err)
	}
	return domain.User{ID: domain.UserID(claims.UserID), Email: claims.Email}, nil
}

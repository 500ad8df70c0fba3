package gateway

import (
	"context"
	"errors"
)

// Identity is a resolved stable player identity.
type Identity struct {
	OdID string
	Name string
}

// Authenticator verifies join tokens issued by the account service. Token
// issuance itself lives outside this process.
type Authenticator interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// ErrInvalidToken rejects a token the authenticator does not recognize.
var ErrInvalidToken = errors.New("invalid token")

// StaticAuthenticator maps tokens to identities. Used in development and
// tests.
type StaticAuthenticator map[string]Identity

func (a StaticAuthenticator) Verify(_ context.Context, token string) (Identity, error) {
	id, ok := a[token]
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	return id, nil
}

// Package auth resolves verified tokens into request principals.
package auth

import (
	"context"
	"errors"

	"marketplace-auth/internal/security"
	"marketplace-auth/internal/user/domain"
)

// ErrPrincipalNotFound is returned when a token verifies but its subject no
// longer resolves to a user. At the HTTP boundary it is indistinguishable
// from an invalid token, so a deleted account cannot be probed for.
var ErrPrincipalNotFound = errors.New("auth: principal not found")

// Principal is the resolved caller identity attached to a request after
// token verification and user lookup. Constructed fresh per request, never
// persisted.
type Principal struct {
	ID    string
	Name  string
	Phone string
	Email string
	Role  domain.Role
}

// UserDirectory is the user-lookup collaborator. GetByID returns nil (not an
// error) when no user matches.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Authenticator verifies a raw token of either kind and resolves it to a
// Principal. One parameterized verifier covers both the access path (bearer
// header) and the refresh path (request body); only the TokenKind differs.
// Stateless per request; verification results are never cached.
type Authenticator struct {
	tokens *security.TokenProvider
	users  UserDirectory
}

// NewAuthenticator returns an Authenticator using the given token provider
// and user directory.
func NewAuthenticator(tokens *security.TokenProvider, users UserDirectory) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Authenticate verifies rawToken as the given kind and resolves the subject
// through the user directory. Token failures pass through from the provider;
// a subject that no longer resolves, or resolves to a disabled account,
// fails with ErrPrincipalNotFound.
func (a *Authenticator) Authenticate(ctx context.Context, rawToken string, kind security.TokenKind) (*Principal, error) {
	claims, err := a.tokens.Verify(rawToken, kind)
	if err != nil {
		return nil, err
	}
	u, err := a.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if u == nil || u.Status != domain.UserStatusActive {
		return nil, ErrPrincipalNotFound
	}
	return &Principal{
		ID:    u.ID,
		Name:  u.Name,
		Phone: u.Phone,
		Email: u.Email,
		Role:  u.Role,
	}, nil
}

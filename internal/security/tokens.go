package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingSecret is returned when the provider is asked to sign or verify
	// without a secret for the requested token kind. Misconfiguration, not a
	// client error.
	ErrMissingSecret = errors.New("signing secret not configured")
	// ErrMalformedToken is returned when a token cannot be parsed at all.
	ErrMalformedToken = errors.New("malformed token")
	// ErrInvalidToken is returned when the signature, issuer, or audience does not match.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token is past its expiry claim.
	ErrExpiredToken = errors.New("token expired")
	// ErrWrongTokenType is returned when a structurally valid token carries a
	// type claim that does not match the verification path (e.g. a refresh
	// token presented where an access token is expected).
	ErrWrongTokenType = errors.New("wrong token type")
)

// TokenKind selects which secret, TTL, and expected type claim apply.
type TokenKind int

const (
	KindAccess TokenKind = iota
	KindRefresh
)

// String returns the type claim value for the kind ("access" or "refresh").
func (k TokenKind) String() string {
	if k == KindRefresh {
		return "refresh"
	}
	return "access"
}

// Claims is the signed token payload: registered claims plus a type tag.
// The type tag defends against secret reuse misconfiguration; which secret
// validated the token is never the only signal of its kind.
type Claims struct {
	jwt.RegisteredClaims
	TokenType string `json:"type"`
}

// TokenPair holds a freshly minted access/refresh pair for one subject.
// ExpiresAt is the access token expiry.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// TokenProvider is the single authority for minting and validating
// access/refresh token pairs. Access and refresh tokens are signed HS256
// with distinct secrets so a leaked access secret cannot forge long-lived
// refresh tokens, and vice versa.
type TokenProvider struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	audience      string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	nowF          func() time.Time
}

// NewTokenProvider returns a TokenProvider using the two given secrets.
// issuer and audience are set on claims and enforced on verification.
func NewTokenProvider(accessSecret, refreshSecret []byte, issuer, audience string, accessTTL, refreshTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		issuer:        issuer,
		audience:      audience,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		nowF:          func() time.Time { return time.Now().UTC() },
	}
}

func (p *TokenProvider) secretFor(kind TokenKind) []byte {
	if kind == KindRefresh {
		return p.refreshSecret
	}
	return p.accessSecret
}

func (p *TokenProvider) ttlFor(kind TokenKind) time.Duration {
	if kind == KindRefresh {
		return p.refreshTTL
	}
	return p.accessTTL
}

// Issue mints a single token of the given kind for userID.
// Returns the signed token and its expiry.
func (p *TokenProvider) Issue(userID string, kind TokenKind) (token string, expiresAt time.Time, err error) {
	secret := p.secretFor(kind)
	if len(secret) == 0 {
		return "", time.Time{}, ErrMissingSecret
	}
	now := p.nowF()
	expiresAt = now.Add(p.ttlFor(kind))
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TokenType: kind.String(),
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// GeneratePair mints an access token (short TTL) and a refresh token (long
// TTL) for the same subject, each signed with its own secret.
func (p *TokenProvider) GeneratePair(userID string) (*TokenPair, error) {
	access, accessExp, err := p.Issue(userID, KindAccess)
	if err != nil {
		return nil, err
	}
	refresh, _, err := p.Issue(userID, KindRefresh)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    accessExp,
	}, nil
}

// Verify parses and validates tokenString against the secret for kind
// (signature, exp, iss, aud) and enforces that the embedded type claim
// matches the kind. The type check is an authorization-intent check distinct
// from the cryptographic ones, so it gets its own error.
func (p *TokenProvider) Verify(tokenString string, kind TokenKind) (*Claims, error) {
	secret := p.secretFor(kind)
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return secret, nil
		},
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformedToken
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		default:
			return nil, ErrInvalidToken
		}
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != kind.String() {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

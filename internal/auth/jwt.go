package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// Issuer is stamped into, and required from, every token.
	Issuer = "private-leagues-api"
	// TokenTTL is how long an issued token stays valid.
	TokenTTL = 21 * 24 * time.Hour
)

// ErrTokenIssue is returned when a token cannot be signed.
var ErrTokenIssue = errors.New("token could not be issued")

// Identity is the public snapshot of a user carried inside a token.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Claims defines the JWT claims structure.
type Claims struct {
	Identity
	jwt.RegisteredClaims
}

// TokenService signs and verifies bearer tokens with a shared secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService signing with secret.
func NewTokenService(secret string) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    TokenTTL,
		now:    time.Now,
	}
}

// Issue creates a signed token for id.
//
// TODO: tokens cannot be revoked before expiry; a deny list keyed by the
// token's jti would have to be consulted by Verify.
func (s *TokenService) Issue(id Identity) (string, error) {
	now := s.now()
	claims := &Claims{
		Identity: id,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenIssue, err)
	}
	return signed, nil
}

// Verify parses and validates a token string. Forged, expired and malformed
// tokens all report ok == false; callers must not tell them apart.
func (s *TokenService) Verify(tokenStr string) (Identity, bool) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return Identity{}, false
	}
	if claims.Identity.ID == "" {
		return Identity{}, false
	}
	return claims.Identity, true
}

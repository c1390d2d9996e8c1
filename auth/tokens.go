package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token revoked")
	ErrNoSecret     = errors.New("token secret is required")
)

// DefaultTokenTTL is the lifetime of issued tokens
const DefaultTokenTTL = time.Hour

// Claims carried by player tokens. The subject is the player id.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// TokenService issues and validates HS256 player tokens and keeps a
// blacklist of logged-out tokens until they would have expired anyway.
type TokenService struct {
	secret    []byte
	ttl       time.Duration
	blacklist map[string]time.Time
	mu        sync.RWMutex
}

// NewTokenService creates a token service signing with secret
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		secret:    []byte(secret),
		ttl:       ttl,
		blacklist: make(map[string]time.Time),
	}, nil
}

// Issue creates a signed token for player
func (ts *TokenService) Issue(player uuid.UUID, name string) (string, error) {
	if player == uuid.Nil {
		return "", fmt.Errorf("%w: player id is required", ErrInvalidToken)
	}

	now := time.Now()
	claims := Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   player.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ts.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and expiry of token and returns its claims.
// Blacklisted tokens fail with ErrTokenRevoked.
func (ts *TokenService) Parse(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	if ts.isBlacklisted(token) {
		return nil, ErrTokenRevoked
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return ts.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// IsValid reports whether token is well signed, unexpired and not blacklisted
func (ts *TokenService) IsValid(token string) bool {
	_, err := ts.Parse(token)
	return err == nil
}

// UserIDOf returns the player id carried by a valid token
func (ts *TokenService) UserIDOf(token string) (uuid.UUID, bool) {
	claims, err := ts.Parse(token)
	if err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// DisplayNameOf returns the name claim of a valid token
func (ts *TokenService) DisplayNameOf(token string) string {
	claims, err := ts.Parse(token)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(claims.Name)
}

// Blacklist revokes token. Tokens that do not verify are rejected.
func (ts *TokenService) Blacklist(token string) error {
	claims, err := ts.Parse(token)
	if err != nil {
		return err
	}

	expires := time.Now().Add(ts.ttl)
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}

	ts.mu.Lock()
	ts.blacklist[token] = expires
	ts.mu.Unlock()
	return nil
}

// PruneBlacklist forgets revoked tokens that have expired
func (ts *TokenService) PruneBlacklist() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := time.Now()
	removed := 0
	for token, expires := range ts.blacklist {
		if now.After(expires) {
			delete(ts.blacklist, token)
			removed++
		}
	}
	return removed
}

func (ts *TokenService) isBlacklisted(token string) bool {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	_, ok := ts.blacklist[token]
	return ok
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrInvalidToken covers bad signatures, malformed payloads and expiry alike.
// The wrapped cause is for logs only.
var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	TokenType string `json:"token_type"`
	Role      string `json:"role"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// UserID returns the sub claim.
func (c *Claims) UserID() string { return c.Subject }

// Expiry returns the exp claim, or the zero time when absent.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

type JWTManager struct {
	issuer        string
	audience      string
	accessSecret  []byte
	refreshSecret []byte
	now           func() time.Time
}

func NewJWTManager(issuer, audience, accessSecret, refreshSecret string) *JWTManager {
	return &JWTManager{
		issuer:        issuer,
		audience:      audience,
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		now:           time.Now,
	}
}

// WithClock swaps the time source used for issuing and validating tokens.
func (m *JWTManager) WithClock(now func() time.Time) *JWTManager {
	cp := *m
	cp.now = now
	return &cp
}

func (m *JWTManager) SignAccessToken(userID, role, sessionID string, ttl time.Duration) (string, *Claims, error) {
	return m.sign(TokenTypeAccess, m.accessSecret, userID, role, sessionID, ttl)
}

func (m *JWTManager) SignRefreshToken(userID, role, sessionID string, ttl time.Duration) (string, *Claims, error) {
	return m.sign(TokenTypeRefresh, m.refreshSecret, userID, role, sessionID, ttl)
}

func (m *JWTManager) ParseAccessToken(raw string) (*Claims, error) {
	return m.parse(raw, m.accessSecret, TokenTypeAccess)
}

func (m *JWTManager) ParseRefreshToken(raw string) (*Claims, error) {
	return m.parse(raw, m.refreshSecret, TokenTypeRefresh)
}

func (m *JWTManager) sign(tokenType string, secret []byte, userID, role, sessionID string, ttl time.Duration) (string, *Claims, error) {
	now := m.now()
	claims := &Claims{
		TokenType: tokenType,
		Role:      role,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			Audience:  []string{m.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, claims, nil
}

func (m *JWTManager) parse(raw string, secret []byte, tokenType string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing algorithm")
		}
		return secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != tokenType {
		return nil, fmt.Errorf("%w: unexpected token type %q", ErrInvalidToken, claims.TokenType)
	}
	if claims.Subject == "" || claims.SessionID == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing sub, sid or jti", ErrInvalidToken)
	}
	return claims, nil
}

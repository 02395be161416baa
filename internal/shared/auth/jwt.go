package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"onboarding-backend/internal/identity"
)

// Claims represents the identity contained in a JWT.
type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

var (
	errMissingSecret = errors.New("jwt secret not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

// Tokens signs and verifies HS256 bearer tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens builds a Tokens with the given secret.
func NewTokens(secret string) (*Tokens, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errMissingSecret
	}
	return &Tokens{secret: []byte(secret), ttl: 24 * time.Hour, now: time.Now}, nil
}

// Sign issues a token for the identity.
func (t *Tokens) Sign(id identity.Identity, email string) (string, error) {
	if !id.Valid() {
		return "", fmt.Errorf("sign token: %w", ErrInvalidToken)
	}
	now := t.now().UTC()
	claims := Claims{
		Role:  string(id.Role),
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.EmployeeID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify checks the signature and expiry and returns the caller identity.
func (t *Tokens) Verify(token string) (identity.Identity, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil || !parsed.Valid {
		return identity.Identity{}, ErrInvalidToken
	}

	role, ok := identity.ParseRole(claims.Role)
	if !ok || strings.TrimSpace(claims.Subject) == "" {
		return identity.Identity{}, ErrInvalidToken
	}
	return identity.Identity{EmployeeID: claims.Subject, Role: role}, nil
}

// Package auth issues and validates dashboard JWTs and enforces role permissions.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// IssuerName is the iss claim of every token this service signs.
const IssuerName = "jenkins-monitor"

// TokenTTL is how long an issued token stays valid.
const TokenTTL = 24 * time.Hour

var (
	ErrMissingSecret = errors.New("JWT secret is empty")
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrUnknownRole   = errors.New("unknown role")
)

// Claims identify a dashboard user. Pipelines restricts the visible jobs; an
// empty list leaves every job visible.
type Claims struct {
	Username  string   `json:"username"`
	Role      string   `json:"role"`
	Pipelines []string `json:"pipelines,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and validates HS256 tokens with a shared secret.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// NewIssuer creates an issuer for secret.
func NewIssuer(secret string) (*Issuer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Issuer{secret: []byte(secret), now: time.Now}, nil
}

// Token signs a token for username with role, optionally scoped to pipelines.
func (i *Issuer) Token(username, role string, pipelines []string) (string, error) {
	if _, ok := RolePermissions[role]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}

	now := i.now()
	claims := Claims{
		Username:  username,
		Role:      role,
		Pipelines: pipelines,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    IssuerName,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses tokenString and returns its claims. Any parse, signature,
// issuer or expiry failure wraps ErrInvalidToken.
func (i *Issuer) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(IssuerName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

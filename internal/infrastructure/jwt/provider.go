package jwtinfra

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-identity-nosql/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the JWT payload fields. The account id travels as the
// registered subject claim.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 JWTs with a process-wide secret.
type Provider struct {
	secret []byte
	expiry time.Duration
}

// NewProvider builds the token issuer. In production an empty JWT_SECRET is
// a startup failure; in development an ephemeral key is generated so local
// runs work out of the box (tokens die with the process).
func NewProvider(cfg *config.Config) (*Provider, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		if cfg.Production() {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("generate ephemeral signing key: %w", err)
		}
		secret = hex.EncodeToString(b)
		slog.Warn("JWT_SECRET not set; using an ephemeral signing key")
	}
	return &Provider{secret: []byte(secret), expiry: cfg.JWTExpiry}, nil
}

// Sign issues a token bound to the account id and email.
func (p *Provider) Sign(accountID, email, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.secret)
}

// Verify parses the token and rejects bad signatures, wrong signing
// methods, and expired tokens.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

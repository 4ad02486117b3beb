package jwtinfra

import (
	"testing"
	"time"

	"github.com/go-identity-nosql/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := NewProvider(&config.Config{
		JWTSecret: "test-secret",
		JWTExpiry: 24 * time.Hour,
	})
	require.NoError(t, err)
	return p
}

func TestSignVerify_RoundTrip(t *testing.T) {
	p := newTestProvider(t)

	signed, err := p.Sign("acc1", "alice@example.com", "user")
	require.NoError(t, err)

	claims, err := p.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "acc1", claims.Subject)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "user", claims.Role)
}

func TestVerify_Garbage(t *testing.T) {
	p := newTestProvider(t)
	_, err := p.Verify("not-a-real-token")
	assert.Error(t, err)
}

func TestVerify_WrongSecret(t *testing.T) {
	p := newTestProvider(t)
	signed, err := p.Sign("acc1", "alice@example.com", "user")
	require.NoError(t, err)

	other, err := NewProvider(&config.Config{JWTSecret: "other-secret", JWTExpiry: time.Hour})
	require.NoError(t, err)
	_, err = other.Verify(signed)
	assert.Error(t, err)
}

func TestVerify_ExpiredToken(t *testing.T) {
	p, err := NewProvider(&config.Config{JWTSecret: "test-secret", JWTExpiry: -time.Hour})
	require.NoError(t, err)

	signed, err := p.Sign("acc1", "alice@example.com", "user")
	require.NoError(t, err)

	_, err = p.Verify(signed)
	assert.Error(t, err)
}

func TestVerify_RejectsNonHMACMethod(t *testing.T) {
	// alg=none tokens must never verify, whatever their payload says.
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "acc1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	p := newTestProvider(t)
	_, err = p.Verify(signed)
	assert.Error(t, err)
}

func TestNewProvider_ProductionRequiresSecret(t *testing.T) {
	_, err := NewProvider(&config.Config{AppEnv: "production", JWTExpiry: time.Hour})
	assert.Error(t, err)
}

func TestNewProvider_DevelopmentGeneratesEphemeralKey(t *testing.T) {
	p, err := NewProvider(&config.Config{AppEnv: "development", JWTExpiry: time.Hour})
	require.NoError(t, err)

	signed, err := p.Sign("acc1", "alice@example.com", "user")
	require.NoError(t, err)
	claims, err := p.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "acc1", claims.Subject)
}

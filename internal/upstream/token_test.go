package upstream

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "7",
		"exp": exp.Unix(),
	})
	s, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return s
}

func TestTokenExpiryReadsExpClaim(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	got, ok := TokenExpiry(signedToken(t, exp))
	require.True(t, ok)
	assert.WithinDuration(t, exp, got, time.Second)
}

func TestTokenExpiryOpaqueToken(t *testing.T) {
	_, ok := TokenExpiry("AT1-not-a-jwt")
	assert.False(t, ok)
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()

	assert.True(t, TokenExpired(signedToken(t, now.Add(-time.Minute)), now))
	// Within the refresh skew counts as expired.
	assert.True(t, TokenExpired(signedToken(t, now.Add(10*time.Second)), now))
	assert.False(t, TokenExpired(signedToken(t, now.Add(time.Hour)), now))
	// Opaque tokens are never proactively expired.
	assert.False(t, TokenExpired("AT1-not-a-jwt", now))
}

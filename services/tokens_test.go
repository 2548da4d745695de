package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	ti := NewTokenIssuer("secret", 30*24*time.Hour)
	token, err := ti.Issue(42)
	require.NoError(t, err)

	userID, err := ti.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestTokenRejected(t *testing.T) {
	now := time.Now()
	ti := NewTokenIssuer("secret", time.Hour)
	ti.now = func() time.Time { return now }
	token, err := ti.Issue(42)
	require.NoError(t, err)

	ti.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = ti.Verify(token)
	assert.True(t, IsUnauthorized(err), "expired token")

	other := NewTokenIssuer("other-secret", time.Hour)
	_, err = other.Verify(token)
	assert.True(t, IsUnauthorized(err), "foreign signature")

	_, err = ti.Verify("not-a-token")
	assert.True(t, IsUnauthorized(err))

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, TokenClaims{UserID: 42}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = NewTokenIssuer("secret", time.Hour).Verify(none)
	assert.True(t, IsUnauthorized(err), "alg none")
}

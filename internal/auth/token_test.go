package auth

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AurLemon/course-android-mockapi/internal/model"
)

func TestSignerRoundTrip(t *testing.T) {
	s := NewSigner("secret")
	tok, err := s.MintAccess(alice, t0, t0.Add(day))
	require.NoError(t, err)

	claims, err := s.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, alice.UserID, claims.UserID())
	assert.Equal(t, alice.Role, claims.Role)
	assert.Equal(t, "7", claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.ExpiresAt.Time.Equal(t0.Add(day)))
}

func TestSignerMintsDistinctTokens(t *testing.T) {
	s := NewSigner("secret")
	a, err := s.MintAccess(alice, t0, t0.Add(day))
	require.NoError(t, err)
	b, err := s.MintAccess(alice, t0, t0.Add(day))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	r1, err := s.MintRefresh()
	require.NoError(t, err)
	r2, err := s.MintRefresh()
	require.NoError(t, err)
	assert.Len(t, r1, 96)
	assert.NotEqual(t, r1, r2)
}

func TestVerifyIgnoresExpiry(t *testing.T) {
	s := NewSigner("secret")
	past := time.Now().Add(-48 * time.Hour)
	tok, err := s.MintAccess(alice, past, past.Add(time.Hour))
	require.NoError(t, err)

	_, err = s.Verify(tok)
	assert.NoError(t, err)
}

func TestVerifyRejects(t *testing.T) {
	s := NewSigner("secret")

	_, err := s.Verify("garbage")
	assert.Error(t, err)

	other, err := NewSigner("other").MintAccess(alice, t0, t0.Add(day))
	require.NoError(t, err)
	_, err = s.Verify(other)
	assert.Error(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, AccessClaims{Role: alice.Role}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.Verify(none)
	assert.Error(t, err)
}

func TestAccessTokenFitsColumn(t *testing.T) {
	s := NewSigner("secret")
	for _, name := range []string{
		strings.Repeat("a", 64),
		strings.Repeat("张", 64),
		strings.Repeat("\U00020000", 64), // 4-byte utf8mb4
	} {
		p := model.Principal{UserID: math.MaxUint64, Username: name, Role: model.RoleAdmin}
		tok, err := s.MintAccess(p, t0, t0.Add(14*day))
		require.NoError(t, err)
		assert.LessOrEqual(t, len(tok), MaxAccessTokenLen, "username %q", name)

		claims, err := s.Verify(tok)
		require.NoError(t, err)
		assert.Equal(t, p.UserID, claims.UserID())
	}
}

func TestClaimsUserIDMalformedSubject(t *testing.T) {
	assert.Zero(t, (&AccessClaims{}).UserID())
	c := &AccessClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "x7"}}
	assert.Zero(t, c.UserID())
}

func TestNewSignerPanicsOnEmptySecret(t *testing.T) {
	assert.Panics(t, func() { NewSigner("") })
}

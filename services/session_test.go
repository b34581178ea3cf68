package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, claims jwt.Claims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	return token
}

func TestParseSession(t *testing.T) {
	expires := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	token := signToken(t, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(expires)},
		UserID:           "u1",
		Username:         "ada",
		DisplayName:      "Ada L.",
	})

	session, err := ParseSession(token)
	require.NoError(t, err)

	assert.Equal(t, token, session.Token)
	assert.Equal(t, "u1", session.Author.UserID)
	assert.Equal(t, "ada", session.Author.Username)
	assert.Equal(t, "Ada L.", session.Author.DisplayName)
	assert.True(t, session.ExpiresAt.Equal(expires))
	assert.False(t, session.Expired(expires.Add(-time.Second)))
	assert.True(t, session.Expired(expires))
}

func TestParseSessionFallsBackToSubject(t *testing.T) {
	token := signToken(t, jwt.RegisteredClaims{Subject: "u42"})

	session, err := ParseSession(token)
	require.NoError(t, err)
	assert.Equal(t, "u42", session.Author.UserID)
	assert.False(t, session.Expired(time.Now()))
}

func TestParseSessionRejects(t *testing.T) {
	_, err := ParseSession("not-a-token")
	assert.Error(t, err)

	_, err = ParseSession(signToken(t, jwt.RegisteredClaims{Issuer: "alumni"}))
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

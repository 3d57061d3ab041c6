package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/faultline/pkg/auth"
)

func TestIssueAndParse(t *testing.T) {
	iss := auth.NewIssuer("secret", time.Hour)

	token, exp, err := iss.Issue(1, "admin", "sess-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := iss.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, 1, claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "sess-1", claims.SessionID)
}

func TestParseRejects(t *testing.T) {
	iss := auth.NewIssuer("secret", time.Hour)
	token, _, err := iss.Issue(1, "user", "s")
	require.NoError(t, err)

	_, err = auth.NewIssuer("other", time.Hour).Parse(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken, "wrong secret")

	_, err = iss.Parse("not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	later := auth.NewIssuer("secret", time.Hour).WithClock(func() time.Time { return time.Now().Add(2 * time.Hour) })
	claims, err := later.Parse(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken, "expired")
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
	require.NotNil(t, claims)
	assert.Equal(t, "s", claims.SessionID)
}

func TestPasswordHash(t *testing.T) {
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(hash, "password123"))
	assert.False(t, auth.CheckPassword(hash, "password124"))
}

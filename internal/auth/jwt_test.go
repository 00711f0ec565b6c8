package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifier_RoundTrip(t *testing.T) {
	v := NewVerifier("test-secret")
	id := uuid.New()

	token, err := v.Issue(Caller{UserID: id, Role: "authenticated", Email: "guest@example.com"}, time.Minute)
	require.NoError(t, err)

	caller, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, id, caller.UserID)
	assert.Equal(t, "guest@example.com", caller.Email)
	assert.False(t, caller.IsAdmin())
}

func TestVerifier_Rejects(t *testing.T) {
	v := NewVerifier("test-secret")
	id := uuid.New()

	expired, err := v.Issue(Caller{UserID: id}, -time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(expired)
	assert.ErrorIs(t, err, ErrExpiredToken)

	other, err := NewVerifier("other-secret").Issue(Caller{UserID: id}, time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "anon", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = v.Verify(badSubject)
	assert.ErrorIs(t, err, ErrInvalidUser)
}

func TestVerifier_LeewayAcceptsRecentlyExpired(t *testing.T) {
	v := NewVerifier("test-secret")
	token, err := v.Issue(Caller{UserID: uuid.New()}, -10*time.Second)
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.NoError(t, err)
}

func TestCaller_IsAdmin(t *testing.T) {
	assert.True(t, (&Caller{Role: RoleAdmin}).IsAdmin())
	assert.True(t, (&Caller{Role: RoleService}).IsAdmin())
	assert.False(t, (&Caller{Role: "authenticated"}).IsAdmin())
	var nobody *Caller
	assert.False(t, nobody.IsAdmin())
}

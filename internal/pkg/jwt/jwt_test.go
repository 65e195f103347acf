package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignParseRoundTrip(t *testing.T) {
	SetSecret("test-secret")

	token, err := Sign("u1", RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.True(t, claims.IsAdmin())
}

func TestParseRejectsExpired(t *testing.T) {
	SetSecret("test-secret")

	token, err := Sign("u1", "", -time.Minute)
	require.NoError(t, err)

	_, err = Parse(token)
	assert.Error(t, err)
}

func TestParseRejectsForeignSecret(t *testing.T) {
	SetSecret("one")
	token, err := Sign("u1", RoleAdmin, time.Hour)
	require.NoError(t, err)

	SetSecret("two")
	_, err = Parse(token)
	assert.Error(t, err)
}

func TestIsAdmin(t *testing.T) {
	var nilClaims *Claims
	assert.False(t, nilClaims.IsAdmin())
	assert.False(t, (&Claims{Role: "reader"}).IsAdmin())
}

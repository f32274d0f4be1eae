package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAccessToken(t *testing.T) {
	svc := NewJWTService("test-secret", "1h")
	org := "ACME"

	token, expiresAt, err := svc.GenerateAccessToken("u-1", RoleManager, &org)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotZero(t, expiresAt)

	decoded, err := svc.JWTAuth().Decode(token)
	require.NoError(t, err)
	role, _ := decoded.Get("role")
	assert.Equal(t, "manager", role)
	organization, _ := decoded.Get("organization")
	assert.Equal(t, "ACME", organization)
}

func TestGenerateAccessToken_BadExpiration(t *testing.T) {
	svc := NewJWTService("test-secret", "soon")
	_, _, err := svc.GenerateAccessToken("u-1", RoleViewer, nil)
	assert.Error(t, err)
}

func TestSSEToken(t *testing.T) {
	svc := NewJWTService("test-secret", "1h")

	token, expiresIn, err := svc.GenerateSSEToken("u-1")
	require.NoError(t, err)
	assert.Equal(t, 300, expiresIn)

	subject, err := svc.ValidateSSEToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", subject)

	access, _, err := svc.GenerateAccessToken("u-1", RoleViewer, nil)
	require.NoError(t, err)
	_, err = svc.ValidateSSEToken(access)
	assert.Error(t, err, "access tokens are not accepted for SSE")
}

func TestRole(t *testing.T) {
	assert.True(t, RoleOwner.CanRecompute())
	assert.True(t, RoleManager.CanRecompute())
	assert.False(t, RoleViewer.CanRecompute())
	assert.False(t, Role("pending").Valid())
}

package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	gate := NewGate("admin-secret")

	require.NoError(t, gate.Verify("owner-token", "owner-token"))
	require.NoError(t, gate.Verify("admin-secret", "owner-token"))

	err := gate.Verify("wrong", "owner-token")
	require.Error(t, err)
	require.True(t, ErrUnauthorized.Has(err))

	err = gate.Verify("", "owner-token")
	require.Error(t, err)
}

func TestVerifyNoAdminToken(t *testing.T) {
	gate := NewGate("")

	require.NoError(t, gate.Verify("owner-token", "owner-token"))

	// an unset admin token must never match, not even against itself
	require.Error(t, gate.Verify("", "owner-token"))
	require.False(t, gate.VerifyAdmin(""))
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/x", nil)
	require.Equal(t, "", BearerToken(r))

	r.Header.Set("Authorization", "Bearer abc123")
	require.Equal(t, "abc123", BearerToken(r))

	r.Header.Set("Authorization", "abc123")
	require.Equal(t, "abc123", BearerToken(r))
}

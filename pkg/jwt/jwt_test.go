package jwt

import (
	"testing"

	"github.com/mbeoliero/inbox/pkg/errcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClaims(t *testing.T) {
	token, err := GenerateToken("alice", 6, "secret", 1)
	require.NoError(t, err)

	claims, err := ParseClaims(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserId)
	assert.Equal(t, 6, claims.PlatformId)

	_, err = ParseClaims(token, "other")
	assert.ErrorIs(t, err, errcode.ErrTokenInvalid)

	_, err = ParseClaims("", "secret")
	assert.ErrorIs(t, err, errcode.ErrTokenMissing)
}

func TestParseClaims_Expired(t *testing.T) {
	token, err := GenerateToken("alice", 6, "secret", -1)
	require.NoError(t, err)

	_, err = ParseClaims(token, "secret")
	assert.ErrorIs(t, err, errcode.ErrTokenExpired)
}

func TestValidateToken(t *testing.T) {
	token, err := GenerateToken("alice", 6, "secret", 1)
	require.NoError(t, err)

	_, err = ValidateToken(token, "secret", "bob", 6)
	assert.ErrorIs(t, err, errcode.ErrTokenMismatch)
	_, err = ValidateToken(token, "secret", "alice", 6)
	assert.NoError(t, err)
}

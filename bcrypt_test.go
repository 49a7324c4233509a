package identity_test

import (
	"testing"

	"github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	t.Run("hashes and verifies", func(t *testing.T) {
		hash, err := identity.HashPassword("super-secret-pass")
		require.NoError(t, err)
		require.NotEmpty(t, hash)
		assert.NotEqual(t, "super-secret-pass", hash)

		assert.NoError(t, identity.ComparePasswordAndHash("super-secret-pass", hash))
	})

	t.Run("empty password is rejected", func(t *testing.T) {
		_, err := identity.HashPassword("")
		assert.ErrorIs(t, err, identity.ErrNoEmptyString)
	})
}

func TestComparePasswordAndHash(t *testing.T) {
	hash, err := identity.HashPassword("super-secret-pass")
	require.NoError(t, err)

	t.Run("mismatch reports invalid credentials", func(t *testing.T) {
		err := identity.ComparePasswordAndHash("other-pass", hash)
		assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
	})

	t.Run("garbage hash reports an error", func(t *testing.T) {
		err := identity.ComparePasswordAndHash("super-secret-pass", "not-a-hash")
		assert.Error(t, err)
	})
}

func TestPasswordAuthenticator(t *testing.T) {
	hasher := identity.NewPasswordAuthenticator()

	hash, err := hasher.HashPassword("super-secret-pass")
	require.NoError(t, err)
	assert.NoError(t, hasher.ComparePasswordAndHash("super-secret-pass", hash))
	assert.ErrorIs(t, hasher.ComparePasswordAndHash("nope", hash), identity.ErrInvalidCredentials)
}

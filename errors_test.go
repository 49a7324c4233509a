package identity_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
)

func TestHasTextCode(t *testing.T) {
	t.Run("sentinel carries its code", func(t *testing.T) {
		assert.True(t, identity.HasTextCode(identity.ErrPinExpired, identity.TextCodePinExpired))
		assert.False(t, identity.HasTextCode(identity.ErrPinExpired, identity.TextCodePinMismatch))
	})

	t.Run("wrapped errors keep the code", func(t *testing.T) {
		wrapped := fmt.Errorf("registration failed: %w", identity.ErrUsernameTaken)
		assert.True(t, identity.HasTextCode(wrapped, identity.TextCodeUsernameTaken))
	})

	t.Run("plain errors have no code", func(t *testing.T) {
		assert.False(t, identity.HasTextCode(errors.New("boom"), identity.TextCodePinExpired))
		assert.False(t, identity.HasTextCode(nil, identity.TextCodePinExpired))
	})
}

func TestIsTokenExpiredError(t *testing.T) {
	assert.True(t, identity.IsTokenExpiredError(identity.ErrTokenExpired))
	assert.True(t, identity.IsTokenExpiredError(fmt.Errorf("validate: %w", errors.New("token is expired"))))
	assert.False(t, identity.IsTokenExpiredError(identity.ErrTokenMalformed))
	assert.False(t, identity.IsTokenExpiredError(nil))
}

func TestIsMalformedError(t *testing.T) {
	assert.True(t, identity.IsMalformedError(identity.ErrTokenMalformed))
	assert.True(t, identity.IsMalformedError(errors.New("missing or malformed JWT")))
	assert.False(t, identity.IsMalformedError(identity.ErrTokenExpired))
	assert.False(t, identity.IsMalformedError(nil))
}

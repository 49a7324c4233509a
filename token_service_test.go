package identity_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenService(t *testing.T) {
	t.Run("creates token service", func(t *testing.T) {
		service, err := identity.NewTokenService(newTestConfig())
		require.NoError(t, err)
		assert.NotNil(t, service)
	})

	t.Run("missing signing key fails construction", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.signingKey = ""

		service, err := identity.NewTokenService(cfg)
		assert.ErrorIs(t, err, identity.ErrMissingSigningKey)
		assert.Nil(t, service)
	})

	t.Run("nil config fails construction", func(t *testing.T) {
		service, err := identity.NewTokenService(nil)
		assert.ErrorIs(t, err, identity.ErrMissingSigningKey)
		assert.Nil(t, service)
	})

	t.Run("non HMAC method is rejected", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.signingMethod = "RS256"

		_, err := identity.NewTokenService(cfg)
		assert.Error(t, err)
	})
}

func TestTokenServiceGenerate(t *testing.T) {
	cfg := newTestConfig()
	service, err := identity.NewTokenService(cfg)
	require.NoError(t, err)

	ident := TestIdentity{
		id:       "user-123",
		username: "tuser",
		email:    "tuser@example.com",
		roles: []identity.RoleRef{
			{ID: "role-1", Name: "User"},
			{ID: "role-2", Name: "Admin"},
		},
	}

	t.Run("generates valid JWT with identity claims", func(t *testing.T) {
		tokenString, expiresAt, err := service.Generate(ident)
		require.NoError(t, err)
		require.NotEmpty(t, tokenString)

		token, err := jwt.ParseWithClaims(tokenString, &identity.JWTClaims{}, func(token *jwt.Token) (any, error) {
			return []byte(cfg.signingKey), nil
		})
		require.NoError(t, err)
		assert.True(t, token.Valid)

		claims, ok := token.Claims.(*identity.JWTClaims)
		require.True(t, ok)

		assert.Equal(t, "user-123", claims.Subject)
		assert.Equal(t, "user-123", claims.UserID())
		assert.Equal(t, "tuser", claims.Username())
		assert.Equal(t, "tuser@example.com", claims.Email())
		assert.Equal(t, ident.roles, claims.Roles())
		assert.Equal(t, cfg.issuer, claims.Issuer)
		assert.NotEmpty(t, claims.RegisteredClaims.ID)
		assert.NotNil(t, claims.IssuedAt)
		require.NotNil(t, claims.ExpiresAt)
		assert.Equal(t, expiresAt.Unix(), claims.ExpiresAt.Unix())
	})

	t.Run("expiration is one day out", func(t *testing.T) {
		before := time.Now()
		_, expiresAt, err := service.Generate(ident)
		require.NoError(t, err)

		expected := before.Add(24 * time.Hour)
		assert.WithinDuration(t, expected, expiresAt, 2*time.Second)
	})

	t.Run("each token gets a unique jti", func(t *testing.T) {
		first, _, err := service.Generate(ident)
		require.NoError(t, err)
		second, _, err := service.Generate(ident)
		require.NoError(t, err)

		a, err := service.Validate(first)
		require.NoError(t, err)
		b, err := service.Validate(second)
		require.NoError(t, err)

		assert.NotEqual(t, a.RegisteredClaims.ID, b.RegisteredClaims.ID)
	})
}

func TestTokenServiceValidate(t *testing.T) {
	cfg := newTestConfig()
	service, err := identity.NewTokenService(cfg)
	require.NoError(t, err)

	ident := TestIdentity{
		id:       "user-123",
		username: "tuser",
		email:    "tuser@example.com",
		roles:    []identity.RoleRef{{ID: "role-1", Name: "User"}},
	}

	t.Run("round trips generated tokens", func(t *testing.T) {
		tokenString, _, err := service.Generate(ident)
		require.NoError(t, err)

		claims, err := service.Validate(tokenString)
		require.NoError(t, err)

		assert.Equal(t, "user-123", claims.UserID())
		assert.True(t, claims.HasRole("User"))
		assert.False(t, claims.HasRole("Admin"))
	})

	t.Run("expired token reports ErrTokenExpired", func(t *testing.T) {
		past := func() time.Time { return time.Now().Add(-48 * time.Hour) }
		expiredService, err := identity.NewTokenService(cfg, identity.WithTokenClock(past))
		require.NoError(t, err)

		tokenString, _, err := expiredService.Generate(ident)
		require.NoError(t, err)

		_, err = service.Validate(tokenString)
		assert.ErrorIs(t, err, identity.ErrTokenExpired)
		assert.True(t, identity.IsTokenExpiredError(err))
	})

	t.Run("garbage reports ErrTokenMalformed", func(t *testing.T) {
		_, err := service.Validate("not-a-token")
		assert.ErrorIs(t, err, identity.ErrTokenMalformed)
	})

	t.Run("wrong key is rejected", func(t *testing.T) {
		other := newTestConfig()
		other.signingKey = "a-different-key"
		otherService, err := identity.NewTokenService(other)
		require.NoError(t, err)

		tokenString, _, err := otherService.Generate(ident)
		require.NoError(t, err)

		_, err = service.Validate(tokenString)
		assert.Error(t, err)
	})

	t.Run("wrong issuer is rejected", func(t *testing.T) {
		other := newTestConfig()
		other.issuer = "someone-else"
		otherService, err := identity.NewTokenService(other)
		require.NoError(t, err)

		tokenString, _, err := otherService.Generate(ident)
		require.NoError(t, err)

		_, err = service.Validate(tokenString)
		assert.Error(t, err)
	})
}

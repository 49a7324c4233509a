package identity_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
)

func TestJWTClaims(t *testing.T) {
	t.Run("ID prefers the uid claim", func(t *testing.T) {
		claims := &identity.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "subject-id"},
			UID:              "uid-claim",
		}
		assert.Equal(t, "uid-claim", claims.ID())
		assert.Equal(t, "uid-claim", claims.UserID())
	})

	t.Run("ID falls back to the subject", func(t *testing.T) {
		claims := &identity.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "subject-id"},
		}
		assert.Equal(t, "subject-id", claims.ID())
	})

	t.Run("role lookup", func(t *testing.T) {
		claims := &identity.JWTClaims{
			RoleRefs: []identity.RoleRef{
				{ID: "1", Name: identity.RoleAdmin},
				{ID: "2", Name: identity.RoleUser},
			},
		}
		assert.True(t, claims.HasRole(identity.RoleAdmin))
		assert.False(t, claims.HasRole(identity.RoleSuperUser))
		assert.Len(t, claims.Roles(), 2)
	})

	t.Run("expiry reads the registered claim", func(t *testing.T) {
		exp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		claims := &identity.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
		}
		assert.True(t, claims.Expires().Equal(exp))

		bare := &identity.JWTClaims{}
		assert.True(t, bare.Expires().IsZero())
	})
}

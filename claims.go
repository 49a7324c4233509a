package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTClaims is the claim set minted for authenticated users. It embeds
// the registered claims and carries the identity fields the HTTP layer
// and middleware read back out.
type JWTClaims struct {
	jwt.RegisteredClaims

	UID               string    `json:"uid,omitempty"`
	PreferredUsername string    `json:"username,omitempty"`
	EmailAddress      string    `json:"email,omitempty"`
	RoleRefs          []RoleRef `json:"roles,omitempty"`
}

// ID returns the user identifier, falling back to the subject
func (c *JWTClaims) ID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject
}

// UserID is an alias for ID kept for middleware consumers
func (c *JWTClaims) UserID() string {
	return c.ID()
}

// Username returns the preferred username claim
func (c *JWTClaims) Username() string {
	return c.PreferredUsername
}

// Email returns the email claim
func (c *JWTClaims) Email() string {
	return c.EmailAddress
}

// Roles returns the role claim pairs
func (c *JWTClaims) Roles() []RoleRef {
	return c.RoleRefs
}

// HasRole reports whether the claim set carries the named role
func (c *JWTClaims) HasRole(name string) bool {
	for _, ref := range c.RoleRefs {
		if ref.Name == name {
			return true
		}
	}
	return false
}

// Expires returns the expiration instant, zero when absent
func (c *JWTClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// ensureTokenID guarantees a jti is present before signing
func (c *JWTClaims) ensureTokenID() {
	if c.RegisteredClaims.ID == "" {
		c.RegisteredClaims.ID = uuid.NewString()
	}
}

var _ Identity = (*JWTClaims)(nil)

// AuthClaims is what middleware and handlers read back from a
// validated token
type AuthClaims interface {
	UserID() string
	Username() string
	Email() string
	Roles() []RoleRef
	HasRole(name string) bool
	Expires() time.Time
}

var _ AuthClaims = (*JWTClaims)(nil)

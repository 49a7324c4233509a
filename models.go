package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DefaultPhotoURL is the placeholder assigned to accounts without a photo
const DefaultPhotoURL = "https://upload.wikimedia.org/wikipedia/commons/8/89/Portrait_Placeholder.png"

// Default role names, ensured before any request is served
const (
	RoleAdmin     = "Admin"
	RoleSuperUser = "SuperUser"
	RoleUser      = "User"
)

// DefaultRoleNames returns the roles bootstrapped at startup
func DefaultRoleNames() []string {
	return []string{RoleAdmin, RoleSuperUser, RoleUser}
}

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username      string    `bun:"username,notnull,unique" json:"username,omitempty"`
	Email         string    `bun:"email,notnull,unique" json:"email,omitempty"`
	FirstName     string    `bun:"first_name" json:"first_name,omitempty"`
	LastName      string    `bun:"last_name" json:"last_name,omitempty"`
	Photo         string    `bun:"photo" json:"photo,omitempty"`
	Phone         string    `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash  string    `bun:"password_hash" json:"-"`
	EmailVerified bool      `bun:"is_email_verified" json:"is_email_verified"`

	// Outstanding verification PINs, one slot per kind. Cleared on
	// consumption or expiry, overwritten on reissue.
	EmailVerificationPin          *string    `bun:"email_verification_pin,nullzero" json:"-"`
	EmailVerificationPinExpiresAt *time.Time `bun:"email_verification_pin_expires_at,nullzero" json:"-"`
	PasswordResetCode             *string    `bun:"password_reset_code,nullzero" json:"-"`
	PasswordResetCodeExpiresAt    *time.Time `bun:"password_reset_code_expires_at,nullzero" json:"-"`

	Roles []*Role `bun:"m2m:user_roles,join:User=Role" json:"roles,omitempty"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// HasDefaultPhoto reports whether the user still carries the placeholder
func (u *User) HasDefaultPhoto() bool {
	return u.Photo == DefaultPhotoURL
}

// RoleRefs maps the loaded roles into claim pairs
func (u *User) RoleRefs() []RoleRef {
	if len(u.Roles) == 0 {
		return nil
	}
	refs := make([]RoleRef, 0, len(u.Roles))
	for _, role := range u.Roles {
		if role == nil {
			continue
		}
		refs = append(refs, RoleRef{ID: role.ID.String(), Name: role.Name})
	}
	return refs
}

// HasRole reports whether the user holds the named role
func (u *User) HasRole(name string) bool {
	for _, role := range u.Roles {
		if role != nil && role.Name == name {
			return true
		}
	}
	return false
}

// Role is the role model
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:rol"`

	ID   uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name string    `bun:"name,notnull,unique" json:"name,omitempty"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// UserRole is the m2m join between users and roles
type UserRole struct {
	bun.BaseModel `bun:"table:user_roles,alias:ur"`

	UserID uuid.UUID `bun:"user_id,pk,type:uuid" json:"user_id,omitempty"`
	User   *User     `bun:"rel:belongs-to,join:user_id=id" json:"-"`
	RoleID uuid.UUID `bun:"role_id,pk,type:uuid" json:"role_id,omitempty"`
	Role   *Role     `bun:"rel:belongs-to,join:role_id=id" json:"-"`
}

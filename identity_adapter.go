package identity

// UserIdentity adapts a stored User to the Identity interface
type UserIdentity struct {
	user *User
}

// NewUserIdentity wraps a user record
func NewUserIdentity(user *User) *UserIdentity {
	return &UserIdentity{user: user}
}

func (u *UserIdentity) ID() string {
	return u.user.ID.String()
}

func (u *UserIdentity) Username() string {
	return u.user.Username
}

func (u *UserIdentity) Email() string {
	return u.user.Email
}

func (u *UserIdentity) Roles() []RoleRef {
	return u.user.RoleRefs()
}

// User returns the underlying record
func (u *UserIdentity) User() *User {
	return u.user
}

var _ Identity = (*UserIdentity)(nil)

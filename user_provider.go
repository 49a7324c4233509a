package identity

import (
	"context"

	"github.com/goliatone/go-repository-bun"
)

// UserProvider implements IdentityProvider over the users store
type UserProvider struct {
	repo   Users
	hasher PasswordAuthenticator
	logger Logger
}

// UserProviderOption configures a UserProvider
type UserProviderOption func(*UserProvider)

// WithProviderLogger sets the logger
func WithProviderLogger(logger Logger) UserProviderOption {
	return func(p *UserProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithProviderHasher overrides the password hasher
func WithProviderHasher(hasher PasswordAuthenticator) UserProviderOption {
	return func(p *UserProvider) {
		if hasher != nil {
			p.hasher = hasher
		}
	}
}

// NewUserProvider creates an IdentityProvider backed by the users
// repository
func NewUserProvider(repo Users, opts ...UserProviderOption) *UserProvider {
	p := &UserProvider{
		repo:   repo,
		hasher: NewPasswordAuthenticator(),
		logger: &defLogger{},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// VerifyIdentity authenticates an identifier and password pair. An
// unknown identifier reports ErrIdentityNotFound, a wrong password
// reports ErrInvalidCredentials, the two are deliberately distinct.
func (p *UserProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	user, err := p.repo.GetByIdentifier(ctx, identifier, WithRoles())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	if err := p.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		p.logger.Debug("password mismatch for user %s", user.ID)
		return nil, ErrInvalidCredentials
	}

	return NewUserIdentity(user), nil
}

// FindIdentityByIdentifier resolves an identifier without checking
// credentials
func (p *UserProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	user, err := p.repo.GetByIdentifier(ctx, identifier, WithRoles())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	return NewUserIdentity(user), nil
}

var _ IdentityProvider = (*UserProvider)(nil)

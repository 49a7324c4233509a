package identity

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// EnsureDefaultRoles creates any of the given roles that do not exist
// yet. Runs at startup, safe to call repeatedly. With no names it
// ensures the default set.
func EnsureDefaultRoles(ctx context.Context, repo RepositoryManager, names ...string) error {
	if len(names) == 0 {
		names = DefaultRoleNames()
	}

	return repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, name := range names {
			if _, err := repo.Roles().GetOrCreateByNameTx(ctx, tx, name); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to ensure role").
					WithMetadata(map[string]any{
						"role": name,
					})
			}
		}
		return nil
	})
}

// GrantRole assigns the named role to the user, creating the role if
// needed. Granting an already held role is a no op.
func GrantRole(ctx context.Context, repo RepositoryManager, tx bun.IDB, user *User, name string) (*Role, error) {
	role, err := repo.Roles().GetOrCreateByNameTx(ctx, tx, name)
	if err != nil {
		return nil, err
	}

	if err := repo.Users().AssignRoleTx(ctx, tx, user.ID, role.ID); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to assign role").
			WithMetadata(map[string]any{
				"user_id": user.ID.String(),
				"role":    name,
			})
	}

	return role, nil
}

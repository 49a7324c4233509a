package identity

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Roles interface {
	repository.Repository[*Role]

	GetByName(ctx context.Context, name string, criteria ...repository.SelectCriteria) (*Role, error)
	GetByNameTx(ctx context.Context, tx bun.IDB, name string, criteria ...repository.SelectCriteria) (*Role, error)
	GetOrCreateByName(ctx context.Context, name string) (*Role, error)
	GetOrCreateByNameTx(ctx context.Context, tx bun.IDB, name string) (*Role, error)
	ListAll(ctx context.Context) ([]*Role, error)
	DeleteRoleTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type roles struct {
	repository.Repository[*Role]
	db *bun.DB
}

var (
	_ Roles                        = (*roles)(nil)
	_ repository.Repository[*Role] = (*roles)(nil)
)

func NewRolesRepository(db *bun.DB) Roles {
	repo := repository.NewRepository[*Role](db, repository.ModelHandlers[*Role]{
		NewRecord: func() *Role { return &Role{} },
		GetID: func(r *Role) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *Role, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	})

	return &roles{
		Repository: repo,
		db:         db,
	}
}

func (a *roles) GetByName(ctx context.Context, name string, criteria ...repository.SelectCriteria) (*Role, error) {
	return a.GetByNameTx(ctx, a.db, name, criteria...)
}

func (a *roles) GetByNameTx(ctx context.Context, tx bun.IDB, name string, criteria ...repository.SelectCriteria) (*Role, error) {
	record := &Role{}
	q := tx.NewSelect().Model(record)

	for _, c := range criteria {
		q.Apply(c)
	}

	err := q.
		Where("?TableAlias.name = ?", name).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"name": name,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *roles) GetOrCreateByName(ctx context.Context, name string) (*Role, error) {
	return a.GetOrCreateByNameTx(ctx, a.db, name)
}

func (a *roles) GetOrCreateByNameTx(ctx context.Context, tx bun.IDB, name string) (*Role, error) {
	record, err := a.GetByNameTx(ctx, tx, name)
	if err == nil {
		return record, nil
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	record = &Role{ID: uuid.New(), Name: name}
	return a.Repository.CreateTx(ctx, tx, record)
}

// DeleteRoleTx removes the role and every assignment of it
func (a *roles) DeleteRoleTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	if _, err := tx.NewDelete().
		Model((*UserRole)(nil)).
		Where("role_id = ?", id).
		Exec(ctx); err != nil {
		return err
	}

	_, err := tx.NewDelete().
		Model((*Role)(nil)).
		Where("id = ?", id).
		Exec(ctx)

	return err
}

// ListAll returns every role ordered by name
func (a *roles) ListAll(ctx context.Context) ([]*Role, error) {
	var records []*Role
	err := a.db.NewSelect().
		Model(&records).
		Order("rol.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}

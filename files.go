package identity

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"

	goerrors "github.com/goliatone/go-errors"
	"github.com/pressly/goose/v3"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// RunMigrations applies the embedded schema migrations using goose
func RunMigrations(ctx context.Context, db *sql.DB, dialect string) error {
	sub, err := fs.Sub(migrationsFS, "data/sql/migrations")
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open embedded migrations")
	}

	goose.SetBaseFS(sub)

	if err := goose.SetDialect(dialect); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to set migration dialect")
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to run migrations")
	}

	return nil
}

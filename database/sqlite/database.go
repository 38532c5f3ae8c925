package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sagarc03/filedock"
)

type database struct {
	db     *sql.DB
	tables filedock.Tables
}

// Connect opens the SQLite database at dsn.
// Tables should be validated before calling Connect.
func Connect(ctx context.Context, dsn string, tables filedock.Tables) (*database, error) {
	db, err := Open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	return &database{
		db:     db,
		tables: tables,
	}, nil
}

// Ping verifies the database connection is alive.
func (d *database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate runs database migrations to create required tables.
func (d *database) Migrate(ctx context.Context) error {
	return Migrate(ctx, d.db, d.tables)
}

// Validate checks that the database schema matches expected structure.
func (d *database) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.db, d.tables)
}

func (d *database) FolderRepo() filedock.FolderRepo {
	return &FolderRepo{
		db:          d.db,
		quotedTable: quoteIdentifier(d.tables.Folders),
		quotedFiles: quoteIdentifier(d.tables.Files),
		now:         time.Now,
	}
}

func (d *database) FileRepo() filedock.FileRepo {
	return &FileRepo{db: d.db, quotedTable: quoteIdentifier(d.tables.Files)}
}

// Close closes the database connection.
func (d *database) Close() error {
	return d.db.Close()
}

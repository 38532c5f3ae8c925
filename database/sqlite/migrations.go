package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sagarc03/filedock"
)

// quoteIdentifier quotes a validated SQLite identifier.
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

type tableMigration struct {
	tableName string
	up        func(ctx context.Context, db *sql.DB) error
	down      func(ctx context.Context, db *sql.DB) error
}

func getTableMigrations(tables filedock.Tables) []tableMigration {
	return []tableMigration{
		{
			tableName: tables.Folders,
			up:        createFoldersTable(tables.Folders),
			down:      dropTable(tables.Folders),
		},
		{
			tableName: tables.Files,
			up:        createFilesTable(tables.Files, tables.Folders),
			down:      dropTable(tables.Files),
		},
	}
}

// Migrate creates the folders and files tables and their indexes if they do not exist.
func Migrate(ctx context.Context, db *sql.DB, tables filedock.Tables) error {
	if err := tables.Validate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	for _, m := range getTableMigrations(tables) {
		if err := m.up(ctx, db); err != nil {
			return fmt.Errorf("migrate up %s: %w", m.tableName, err)
		}
	}

	return nil
}

func DropTables(ctx context.Context, db *sql.DB, tables filedock.Tables) error {
	migrations := getTableMigrations(tables)

	for i := len(migrations) - 1; i >= 0; i-- {
		if err := migrations[i].down(ctx, db); err != nil {
			return fmt.Errorf("migrate down %s: %w", migrations[i].tableName, err)
		}
	}

	return nil
}

func execAll(ctx context.Context, db *sql.DB, statements ...string) error {
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func createFoldersTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		quotedTable := quoteIdentifier(tableName)
		uniqueSibling := quoteIdentifier(fmt.Sprintf("uq_%s_parent_name", tableName))
		indexParent := quoteIdentifier(fmt.Sprintf("idx_%s_parent_id", tableName))

		// NULL parents compare equal through COALESCE so root siblings are unique too.
		err := execAll(ctx, db,
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					id TEXT NOT NULL PRIMARY KEY,
					name TEXT NOT NULL,
					description TEXT,
					parent_id TEXT REFERENCES %s (id) ON DELETE CASCADE,
					created_at TEXT NOT NULL,
					updated_at TEXT NOT NULL
				)`, quotedTable, quotedTable),
			fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (COALESCE(parent_id, ''), name)`,
				uniqueSibling, quotedTable),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (parent_id)`, indexParent, quotedTable),
		)
		if err != nil {
			return fmt.Errorf("create folders table: %w", err)
		}
		return nil
	}
}

func createFilesTable(tableName, foldersTable string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		quotedTable := quoteIdentifier(tableName)
		quotedFolders := quoteIdentifier(foldersTable)
		indexFolder := quoteIdentifier(fmt.Sprintf("idx_%s_folder_id", tableName))
		indexCreated := quoteIdentifier(fmt.Sprintf("idx_%s_created_at", tableName))
		indexPending := quoteIdentifier(fmt.Sprintf("idx_%s_pending", tableName))

		err := execAll(ctx, db,
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					id TEXT NOT NULL PRIMARY KEY,
					name TEXT NOT NULL,
					storage_path TEXT NOT NULL UNIQUE,
					mime_type TEXT NOT NULL,
					size INTEGER NOT NULL DEFAULT 0,
					checksum TEXT,
					folder_id TEXT REFERENCES %s (id) ON DELETE SET NULL,
					description TEXT,
					tags TEXT NOT NULL DEFAULT '[]',
					status TEXT NOT NULL DEFAULT 'pending',
					created_at TEXT NOT NULL,
					updated_at TEXT NOT NULL
				)`, quotedTable, quotedFolders),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (folder_id)`, indexFolder, quotedTable),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (created_at, id)`, indexCreated, quotedTable),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (created_at) WHERE status = 'pending'`,
				indexPending, quotedTable),
		)
		if err != nil {
			return fmt.Errorf("create files table: %w", err)
		}
		return nil
	}
}

func dropTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdentifier(tableName)))
		return err
	}
}

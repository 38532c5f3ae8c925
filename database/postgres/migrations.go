package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/filedock"
)

type tableMigration struct {
	tableName string
	up        func(ctx context.Context, pool *pgxpool.Pool) error
	down      func(ctx context.Context, pool *pgxpool.Pool) error
}

// getTableMigrations returns migrations in dependency order: folders before files.
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
func Migrate(ctx context.Context, pool *pgxpool.Pool, tables filedock.Tables) error {
	if err := tables.Validate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	for _, m := range getTableMigrations(tables) {
		if err := m.up(ctx, pool); err != nil {
			return fmt.Errorf("migrate up %s: %w", m.tableName, err)
		}
	}

	return nil
}

// DropTables drops the tables in reverse dependency order.
func DropTables(ctx context.Context, pool *pgxpool.Pool, tables filedock.Tables) error {
	migrations := getTableMigrations(tables)

	for i := len(migrations) - 1; i >= 0; i-- {
		if err := migrations[i].down(ctx, pool); err != nil {
			return fmt.Errorf("migrate down %s: %w", migrations[i].tableName, err)
		}
	}

	return nil
}

func createFoldersTable(tableName string) func(context.Context, *pgxpool.Pool) error {
	return func(ctx context.Context, pool *pgxpool.Pool) error {
		quotedTable := pgx.Identifier{tableName}.Sanitize()
		uniqueSibling := pgx.Identifier{fmt.Sprintf("uq_%s_parent_name", tableName)}.Sanitize()
		indexParent := pgx.Identifier{fmt.Sprintf("idx_%s_parent_id", tableName)}.Sanitize()

		sql := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT,
				parent_id UUID REFERENCES %s (id) ON DELETE CASCADE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				CONSTRAINT %s UNIQUE NULLS NOT DISTINCT (parent_id, name)
			);

			CREATE INDEX IF NOT EXISTS %s ON %s (parent_id);
		`,
			quotedTable, quotedTable, uniqueSibling,
			indexParent, quotedTable,
		)

		if _, err := pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("create folders table: %w", err)
		}
		return nil
	}
}

func createFilesTable(tableName, foldersTable string) func(context.Context, *pgxpool.Pool) error {
	return func(ctx context.Context, pool *pgxpool.Pool) error {
		quotedTable := pgx.Identifier{tableName}.Sanitize()
		quotedFolders := pgx.Identifier{foldersTable}.Sanitize()
		indexFolder := pgx.Identifier{fmt.Sprintf("idx_%s_folder_id", tableName)}.Sanitize()
		indexCreated := pgx.Identifier{fmt.Sprintf("idx_%s_created_at", tableName)}.Sanitize()
		indexPending := pgx.Identifier{fmt.Sprintf("idx_%s_pending", tableName)}.Sanitize()
		indexTags := pgx.Identifier{fmt.Sprintf("idx_%s_tags", tableName)}.Sanitize()

		sql := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY,
				name TEXT NOT NULL,
				storage_path TEXT NOT NULL UNIQUE,
				mime_type TEXT NOT NULL,
				size BIGINT NOT NULL DEFAULT 0,
				checksum TEXT,
				folder_id UUID REFERENCES %s (id) ON DELETE SET NULL,
				description TEXT,
				tags TEXT[] NOT NULL DEFAULT '{}',
				status TEXT NOT NULL DEFAULT 'pending',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS %s ON %s (folder_id);

			CREATE INDEX IF NOT EXISTS %s ON %s (created_at, id);

			CREATE INDEX IF NOT EXISTS %s
			ON %s (created_at)
			WHERE (status = 'pending');

			CREATE INDEX IF NOT EXISTS %s ON %s USING GIN (tags);
		`,
			quotedTable, quotedFolders,
			indexFolder, quotedTable,
			indexCreated, quotedTable,
			indexPending, quotedTable,
			indexTags, quotedTable,
		)

		if _, err := pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("create files table: %w", err)
		}
		return nil
	}
}

func dropTable(tableName string) func(context.Context, *pgxpool.Pool) error {
	return func(ctx context.Context, pool *pgxpool.Pool) error {
		sql := fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", pgx.Identifier{tableName}.Sanitize())
		_, err := pool.Exec(ctx, sql)
		return err
	}
}

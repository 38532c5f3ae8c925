package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/filedock"
	"github.com/sagarc03/filedock/database/internal"
)

const timestamptz = "timestamp with time zone"

var foldersSchema = internal.Schema{
	"id":          {Type: "uuid"},
	"name":        {Type: "text"},
	"description": {Type: "text", Nullable: true},
	"parent_id":   {Type: "uuid", Nullable: true},
	"created_at":  {Type: timestamptz},
	"updated_at":  {Type: timestamptz},
}

var filesSchema = internal.Schema{
	"id":           {Type: "uuid"},
	"name":         {Type: "text"},
	"storage_path": {Type: "text"},
	"mime_type":    {Type: "text"},
	"size":         {Type: "bigint"},
	"checksum":     {Type: "text", Nullable: true},
	"folder_id":    {Type: "uuid", Nullable: true},
	"description":  {Type: "text", Nullable: true},
	"tags":         {Type: "array"},
	"status":       {Type: "text"},
	"created_at":   {Type: timestamptz},
	"updated_at":   {Type: timestamptz},
}

// ValidateSchema checks that both tables exist in the public schema with the
// columns the repositories read and write.
func ValidateSchema(ctx context.Context, pool *pgxpool.Pool, tables filedock.Tables) error {
	checks := internal.TableSchemas{
		{Table: tables.Folders, Schema: foldersSchema},
		{Table: tables.Files, Schema: filesSchema},
	}

	for _, c := range checks {
		if !filedock.IsValidTableName(c.Table) {
			return fmt.Errorf("validate schema: invalid table name: %s", c.Table)
		}

		got, err := tableColumns(ctx, pool, c.Table)
		if err != nil {
			return fmt.Errorf("validate schema %s: %w", c.Table, err)
		}
		if len(got) == 0 {
			return fmt.Errorf("validate schema %s: table does not exist", c.Table)
		}

		if err := internal.CompareSchema(c.Table, c.Schema, got); err != nil {
			return fmt.Errorf("validate schema %s: %w", c.Table, err)
		}
	}

	return nil
}

// tableColumns reads the columns of a public table; an absent table has none.
func tableColumns(ctx context.Context, pool *pgxpool.Pool, table string) (internal.Schema, error) {
	rows, err := pool.Query(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1`, table)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	columns := internal.Schema{}
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns[name] = internal.Column{Type: dataType, Nullable: nullable == "YES"}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	return columns, nil
}

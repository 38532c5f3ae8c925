package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sagarc03/filedock"
	"github.com/sagarc03/filedock/database/internal"
)

var foldersSchema = internal.Schema{
	"id":          {Type: "text"},
	"name":        {Type: "text"},
	"description": {Type: "text", Nullable: true},
	"parent_id":   {Type: "text", Nullable: true},
	"created_at":  {Type: "text"},
	"updated_at":  {Type: "text"},
}

var filesSchema = internal.Schema{
	"id":           {Type: "text"},
	"name":         {Type: "text"},
	"storage_path": {Type: "text"},
	"mime_type":    {Type: "text"},
	"size":         {Type: "integer"},
	"checksum":     {Type: "text", Nullable: true},
	"folder_id":    {Type: "text", Nullable: true},
	"description":  {Type: "text", Nullable: true},
	"tags":         {Type: "text"},
	"status":       {Type: "text"},
	"created_at":   {Type: "text"},
	"updated_at":   {Type: "text"},
}

// ValidateSchema checks that both tables exist with the columns the
// repositories read and write.
func ValidateSchema(ctx context.Context, db *sql.DB, tables filedock.Tables) error {
	checks := internal.TableSchemas{
		{Table: tables.Folders, Schema: foldersSchema},
		{Table: tables.Files, Schema: filesSchema},
	}

	for _, c := range checks {
		if !filedock.IsValidTableName(c.Table) {
			return fmt.Errorf("validate schema: invalid table name: %s", c.Table)
		}

		got, err := tableColumns(ctx, db, c.Table)
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

// tableColumns reads PRAGMA table_info; an absent table has no rows.
// The primary key is declared NOT NULL explicitly, so notnull is reliable.
func tableColumns(ctx context.Context, db *sql.DB, table string) (internal.Schema, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdentifier(table)))
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns := internal.Schema{}
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, colType    string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns[name] = internal.Column{Type: colType, Nullable: notNull == 0}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	return columns, nil
}

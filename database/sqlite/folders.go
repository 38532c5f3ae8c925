package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/filedock"
	"github.com/sagarc03/filedock/database/internal"
)

const folderColumns = "id, name, description, parent_id, created_at, updated_at"

type FolderRepo struct {
	db          *sql.DB
	quotedTable string
	quotedFiles string
	now         func() time.Time
}

var _ filedock.FolderRepo = (*FolderRepo)(nil)

func NewFolderRepo(db *sql.DB, tables filedock.Tables) (*FolderRepo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new folder repo: %w", err)
	}

	return &FolderRepo{
		db:          db,
		quotedTable: quoteIdentifier(tables.Folders),
		quotedFiles: quoteIdentifier(tables.Files),
		now:         time.Now,
	}, nil
}

func scanFolder(row scanner) (filedock.Folder, error) {
	var (
		f                    filedock.Folder
		id                   string
		description, parent  sql.NullString
		createdAt, updatedAt string
	)

	if err := row.Scan(&id, &f.Name, &description, &parent, &createdAt, &updatedAt); err != nil {
		return filedock.Folder{}, err
	}

	var err error
	if f.ID, err = uuid.Parse(id); err != nil {
		return filedock.Folder{}, fmt.Errorf("parse id: %w", err)
	}
	if f.ParentID, err = parseNullableUUID(parent); err != nil {
		return filedock.Folder{}, fmt.Errorf("parse parent_id: %w", err)
	}
	if f.CreatedAt, err = parseTime(createdAt); err != nil {
		return filedock.Folder{}, fmt.Errorf("parse created_at: %w", err)
	}
	if f.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return filedock.Folder{}, fmt.Errorf("parse updated_at: %w", err)
	}
	f.Description = stringPtr(description)

	return f, nil
}

func collectFolders(rows *sql.Rows) ([]filedock.Folder, error) {
	defer func() { _ = rows.Close() }()

	folders := []filedock.Folder{}
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		folders = append(folders, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return folders, nil
}

func (r *FolderRepo) Create(ctx context.Context, f filedock.Folder) (filedock.Folder, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, name, description, parent_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`, r.quotedTable)

	_, err := r.db.ExecContext(ctx, query,
		f.ID.String(), f.Name, nullableString(f.Description), nullableUUID(f.ParentID),
		formatTime(f.CreatedAt), formatTime(f.UpdatedAt),
	)
	if err != nil {
		return filedock.Folder{}, mapError("create folder", err)
	}

	return r.Get(ctx, f.ID)
}

func (r *FolderRepo) Get(ctx context.Context, id uuid.UUID) (filedock.Folder, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, folderColumns, r.quotedTable) //nolint:gosec // G201: table name is validated

	f, err := scanFolder(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		return filedock.Folder{}, mapError("get folder", err)
	}

	return f, nil
}

func (r *FolderRepo) ListByParent(ctx context.Context, parentID *uuid.UUID) ([]filedock.Folder, error) {
	where := internal.NewWhere(internal.Question)
	if parentID == nil {
		where.Add("parent_id IS NULL")
	} else {
		where.Add("parent_id = {}", parentID.String())
	}

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT %s FROM %s %s ORDER BY name ASC, id ASC`, folderColumns, r.quotedTable, where.SQL())

	rows, err := r.db.QueryContext(ctx, query, where.Args()...)
	if err != nil {
		return nil, mapError("list folders by parent", err)
	}

	folders, err := collectFolders(rows)
	if err != nil {
		return nil, fmt.Errorf("list folders by parent: %w", err)
	}

	return folders, nil
}

func (r *FolderRepo) Update(ctx context.Context, f filedock.Folder) (filedock.Folder, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s
		SET name = ?, description = ?, parent_id = ?, updated_at = ?
		WHERE id = ?`, r.quotedTable)

	result, err := r.db.ExecContext(ctx, query,
		f.Name, nullableString(f.Description), nullableUUID(f.ParentID), formatTime(f.UpdatedAt), f.ID.String(),
	)
	if err != nil {
		return filedock.Folder{}, mapError("update folder", err)
	}

	if err := requireRow(result, "update folder"); err != nil {
		return filedock.Folder{}, err
	}

	return r.Get(ctx, f.ID)
}

func (r *FolderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, r.quotedTable) //nolint:gosec // G201: table name is validated

	result, err := r.db.ExecContext(ctx, query, id.String())
	if err != nil {
		return mapError("delete folder", err)
	}

	return requireRow(result, "delete folder")
}

// DeleteTree removes id and every descendant folder in one transaction.
// Files in the removed folders are moved to root level, never deleted.
func (r *FolderRepo) DeleteTree(ctx context.Context, id uuid.UUID) (int, int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("delete folder tree: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	subtreeQuery := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`WITH RECURSIVE subtree(id) AS (
			SELECT id FROM %s WHERE id = ?
			UNION ALL
			SELECT child.id FROM %s child JOIN subtree ON child.parent_id = subtree.id
		)
		SELECT id FROM subtree`, r.quotedTable, r.quotedTable)

	rows, err := tx.QueryContext(ctx, subtreeQuery, id.String())
	if err != nil {
		return 0, 0, mapError("delete folder tree: collect subtree", err)
	}

	var ids []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			_ = rows.Close()
			return 0, 0, fmt.Errorf("delete folder tree: scan: %w", err)
		}
		folderID, err := uuid.Parse(raw)
		if err != nil {
			_ = rows.Close()
			return 0, 0, fmt.Errorf("delete folder tree: parse id: %w", err)
		}
		ids = append(ids, folderID)
	}
	if err := rows.Close(); err != nil {
		return 0, 0, fmt.Errorf("delete folder tree: close rows: %w", err)
	}
	if err := rows.Err(); err != nil {
		return 0, 0, fmt.Errorf("delete folder tree: rows: %w", err)
	}

	if len(ids) == 0 {
		return 0, 0, fmt.Errorf("delete folder tree: %w", filedock.ErrNotFound)
	}

	in := placeholders(len(ids))

	moveQuery := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s SET folder_id = NULL, updated_at = ? WHERE folder_id IN (%s)`, r.quotedFiles, in)

	moved, err := tx.ExecContext(ctx, moveQuery, append([]any{formatTime(r.now())}, uuidArgs(ids)...)...)
	if err != nil {
		return 0, 0, mapError("delete folder tree: move files to root", err)
	}

	movedCount, err := moved.RowsAffected()
	if err != nil {
		return 0, 0, fmt.Errorf("delete folder tree: rows affected: %w", err)
	}

	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE id IN (%s)`, r.quotedTable, in) //nolint:gosec // G201: table name is validated

	if _, err := tx.ExecContext(ctx, deleteQuery, uuidArgs(ids)...); err != nil {
		return 0, 0, mapError("delete folder tree: delete folders", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("delete folder tree: commit: %w", err)
	}

	return len(ids), int(movedCount), nil
}

func (r *FolderRepo) Search(ctx context.Context, filter filedock.FolderFilter, page filedock.PageRequest) ([]filedock.Folder, int, error) {
	where := internal.NewWhere(internal.Question)
	if filter.Name != "" {
		where.Add(`unicode_lower(name) LIKE {} ESCAPE '\'`, internal.ContainsPattern(filter.Name))
	}
	switch {
	case filter.RootOnly:
		where.Add("parent_id IS NULL")
	case filter.ParentID != nil:
		where.Add("parent_id = {}", filter.ParentID.String())
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s %s`, r.quotedTable, where.SQL()) //nolint:gosec // G201: table name is validated

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, where.Args()...).Scan(&total); err != nil {
		return nil, 0, mapError("search folders: count", err)
	}

	limit := where.Bind(page.Limit)
	offset := where.Bind(page.Offset())

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT %s FROM %s %s ORDER BY name ASC, id ASC LIMIT %s OFFSET %s`,
		folderColumns, r.quotedTable, where.SQL(), limit, offset)

	rows, err := r.db.QueryContext(ctx, query, where.Args()...)
	if err != nil {
		return nil, 0, mapError("search folders", err)
	}

	folders, err := collectFolders(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("search folders: %w", err)
	}

	return folders, total, nil
}

func requireRow(result sql.Result, op string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, filedock.ErrNotFound)
	}
	return nil
}

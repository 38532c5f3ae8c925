package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/filedock"
	"github.com/sagarc03/filedock/database/internal"
)

const folderColumns = "id, name, description, parent_id, created_at, updated_at"

type FolderRepo struct {
	pool        *pgxpool.Pool
	quotedTable string
	quotedFiles string
}

var _ filedock.FolderRepo = (*FolderRepo)(nil)

func NewFolderRepo(pool *pgxpool.Pool, tables Tables) (*FolderRepo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new folder repo: %w", err)
	}

	return &FolderRepo{
		pool:        pool,
		quotedTable: quote(tables.Folders),
		quotedFiles: quote(tables.Files),
	}, nil
}

func scanFolder(row pgx.Row) (filedock.Folder, error) {
	var f filedock.Folder
	err := row.Scan(&f.ID, &f.Name, &f.Description, &f.ParentID, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

func collectFolders(rows pgx.Rows) ([]filedock.Folder, error) {
	defer rows.Close()

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
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s`, r.quotedTable, folderColumns)

	created, err := scanFolder(r.pool.QueryRow(ctx, query,
		f.ID, f.Name, f.Description, f.ParentID, f.CreatedAt, f.UpdatedAt))
	if err != nil {
		return filedock.Folder{}, mapError("create folder", err)
	}

	return created, nil
}

func (r *FolderRepo) Get(ctx context.Context, id uuid.UUID) (filedock.Folder, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT %s FROM %s WHERE id = $1`, folderColumns, r.quotedTable)

	f, err := scanFolder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return filedock.Folder{}, mapError("get folder", err)
	}

	return f, nil
}

func (r *FolderRepo) ListByParent(ctx context.Context, parentID *uuid.UUID) ([]filedock.Folder, error) {
	where := internal.NewWhere(internal.Dollar)
	if parentID == nil {
		where.Add("parent_id IS NULL")
	} else {
		where.Add("parent_id = {}", *parentID)
	}

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT %s FROM %s %s ORDER BY name ASC, id ASC`, folderColumns, r.quotedTable, where.SQL())

	rows, err := r.pool.Query(ctx, query, where.Args()...)
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
		SET name = $2, description = $3, parent_id = $4, updated_at = $5
		WHERE id = $1
		RETURNING %s`, r.quotedTable, folderColumns)

	updated, err := scanFolder(r.pool.QueryRow(ctx, query,
		f.ID, f.Name, f.Description, f.ParentID, f.UpdatedAt))
	if err != nil {
		return filedock.Folder{}, mapError("update folder", err)
	}

	return updated, nil
}

func (r *FolderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.quotedTable) //nolint:gosec // G201: table name is validated

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return mapError("delete folder", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete folder: %w", filedock.ErrNotFound)
	}

	return nil
}

// DeleteTree removes id and every descendant folder in one transaction.
// Files in the removed folders are moved to root level, never deleted.
func (r *FolderRepo) DeleteTree(ctx context.Context, id uuid.UUID) (int, int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("delete folder tree: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	subtreeQuery := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`WITH RECURSIVE subtree AS (
			SELECT id FROM %s WHERE id = $1
			UNION ALL
			SELECT child.id FROM %s child JOIN subtree ON child.parent_id = subtree.id
		)
		SELECT id FROM subtree`, r.quotedTable, r.quotedTable)

	rows, err := tx.Query(ctx, subtreeQuery, id)
	if err != nil {
		return 0, 0, mapError("delete folder tree: collect subtree", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return 0, 0, mapError("delete folder tree: collect subtree", err)
	}

	if len(ids) == 0 {
		return 0, 0, fmt.Errorf("delete folder tree: %w", filedock.ErrNotFound)
	}

	subtree := uuidStrings(ids)

	moveQuery := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s SET folder_id = NULL, updated_at = NOW()
		WHERE folder_id = ANY($1::uuid[])`, r.quotedFiles)

	moved, err := tx.Exec(ctx, moveQuery, subtree)
	if err != nil {
		return 0, 0, mapError("delete folder tree: move files to root", err)
	}

	deleteQuery := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`DELETE FROM %s WHERE id = ANY($1::uuid[])`, r.quotedTable)

	deleted, err := tx.Exec(ctx, deleteQuery, subtree)
	if err != nil {
		return 0, 0, mapError("delete folder tree: delete folders", err)
	}

	if deleted.RowsAffected() == 0 {
		return 0, 0, fmt.Errorf("delete folder tree: %w", filedock.ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("delete folder tree: commit: %w", err)
	}

	return len(ids), int(moved.RowsAffected()), nil
}

func (r *FolderRepo) Search(ctx context.Context, filter filedock.FolderFilter, page filedock.PageRequest) ([]filedock.Folder, int, error) {
	where := internal.NewWhere(internal.Dollar)
	if filter.Name != "" {
		where.Add(`LOWER(name) LIKE {} ESCAPE '\'`, internal.ContainsPattern(filter.Name))
	}
	switch {
	case filter.RootOnly:
		where.Add("parent_id IS NULL")
	case filter.ParentID != nil:
		where.Add("parent_id = {}", *filter.ParentID)
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s %s`, r.quotedTable, where.SQL()) //nolint:gosec // G201: table name is validated

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, where.Args()...).Scan(&total); err != nil {
		return nil, 0, mapError("search folders: count", err)
	}

	limit := where.Bind(page.Limit)
	offset := where.Bind(page.Offset())

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT %s FROM %s %s ORDER BY name ASC, id ASC LIMIT %s OFFSET %s`,
		folderColumns, r.quotedTable, where.SQL(), limit, offset)

	rows, err := r.pool.Query(ctx, query, where.Args()...)
	if err != nil {
		return nil, 0, mapError("search folders", err)
	}

	folders, err := collectFolders(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("search folders: %w", err)
	}

	return folders, total, nil
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/filedock"
	"github.com/sagarc03/filedock/database/internal"
)

const fileColumns = "id, name, storage_path, mime_type, size, checksum, folder_id, description, tags, status, created_at, updated_at"

type FileRepo struct {
	pool        *pgxpool.Pool
	quotedTable string
}

var _ filedock.FileRepo = (*FileRepo)(nil)

func NewFileRepo(pool *pgxpool.Pool, tables Tables) (*FileRepo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new file repo: %w", err)
	}

	return &FileRepo{pool: pool, quotedTable: quote(tables.Files)}, nil
}

func scanFile(row pgx.Row) (filedock.File, error) {
	var f filedock.File
	var status string
	err := row.Scan(
		&f.ID, &f.Name, &f.StoragePath, &f.MimeType, &f.Size, &f.Checksum,
		&f.FolderID, &f.Description, &f.Tags, &status, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return filedock.File{}, err
	}

	f.Status = filedock.FileStatus(status)
	if f.Tags == nil {
		f.Tags = []string{}
	}

	return f, nil
}

func collectFiles(rows pgx.Rows) ([]filedock.File, error) {
	defer rows.Close()

	files := []filedock.File{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		files = append(files, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return files, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func (r *FileRepo) Create(ctx context.Context, f filedock.File) (filedock.File, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, name, storage_path, mime_type, size, checksum, folder_id,
			description, tags, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING %s`, r.quotedTable, fileColumns)

	created, err := scanFile(r.pool.QueryRow(ctx, query,
		f.ID, f.Name, f.StoragePath, f.MimeType, f.Size, f.Checksum, f.FolderID,
		f.Description, tagsOrEmpty(f.Tags), string(f.Status), f.CreatedAt, f.UpdatedAt,
	))
	if err != nil {
		return filedock.File{}, mapError("create file", err)
	}

	return created, nil
}

func (r *FileRepo) Get(ctx context.Context, id uuid.UUID) (filedock.File, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, fileColumns, r.quotedTable) //nolint:gosec // G201: table name is validated

	f, err := scanFile(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return filedock.File{}, mapError("get file", err)
	}

	return f, nil
}

func (r *FileRepo) GetByStoragePath(ctx context.Context, storagePath string) (filedock.File, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE storage_path = $1`, fileColumns, r.quotedTable) //nolint:gosec // G201: table name is validated

	f, err := scanFile(r.pool.QueryRow(ctx, query, storagePath))
	if err != nil {
		return filedock.File{}, mapError("get file by storage path", err)
	}

	return f, nil
}

func (r *FileRepo) ListByFolder(ctx context.Context, folderID *uuid.UUID) ([]filedock.File, error) {
	where := internal.NewWhere(internal.Dollar)
	if folderID == nil {
		where.Add("folder_id IS NULL")
	} else {
		where.Add("folder_id = {}", *folderID)
	}

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT %s FROM %s %s ORDER BY name ASC, id ASC`, fileColumns, r.quotedTable, where.SQL())

	rows, err := r.pool.Query(ctx, query, where.Args()...)
	if err != nil {
		return nil, mapError("list files by folder", err)
	}

	files, err := collectFiles(rows)
	if err != nil {
		return nil, fmt.Errorf("list files by folder: %w", err)
	}

	return files, nil
}

func (r *FileRepo) Update(ctx context.Context, f filedock.File) (filedock.File, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s
		SET name = $2, folder_id = $3, description = $4, tags = $5,
			size = $6, checksum = $7, status = $8, updated_at = $9
		WHERE id = $1
		RETURNING %s`, r.quotedTable, fileColumns)

	updated, err := scanFile(r.pool.QueryRow(ctx, query,
		f.ID, f.Name, f.FolderID, f.Description, tagsOrEmpty(f.Tags),
		f.Size, f.Checksum, string(f.Status), f.UpdatedAt,
	))
	if err != nil {
		return filedock.File{}, mapError("update file", err)
	}

	return updated, nil
}

func (r *FileRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.quotedTable) //nolint:gosec // G201: table name is validated

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return mapError("delete file", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete file: %w", filedock.ErrNotFound)
	}

	return nil
}

func fileWhere(filter filedock.FileFilter) *internal.Where {
	where := internal.NewWhere(internal.Dollar)

	if filter.Name != "" {
		where.Add(`LOWER(name) LIKE {} ESCAPE '\'`, internal.ContainsPattern(filter.Name))
	}
	if filter.MimeType != "" {
		where.Add(`LOWER(mime_type) LIKE {} ESCAPE '\'`, internal.ContainsPattern(filter.MimeType))
	}
	switch {
	case filter.RootOnly:
		where.Add("folder_id IS NULL")
	case filter.FolderID != nil:
		where.Add("folder_id = {}", *filter.FolderID)
	}
	if len(filter.Tags) > 0 {
		where.Add("tags && {}::text[]", filter.Tags)
	}
	if filter.MinSize != nil {
		where.Add("size >= {}", *filter.MinSize)
	}
	if filter.MaxSize != nil {
		where.Add("size <= {}", *filter.MaxSize)
	}
	if filter.CreatedAfter != nil {
		where.Add("created_at >= {}", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		where.Add("created_at <= {}", *filter.CreatedBefore)
	}
	if filter.Status != "" {
		where.Add("status = {}", string(filter.Status))
	}

	return where
}

func (r *FileRepo) Search(ctx context.Context, filter filedock.FileFilter, page filedock.PageRequest) ([]filedock.File, int, error) {
	orderBy, err := internal.FileOrderBy(page.SortBy, page.SortOrder)
	if err != nil {
		return nil, 0, fmt.Errorf("search files: %w: %w", filedock.ErrValidation, err)
	}

	where := fileWhere(filter)

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s %s`, r.quotedTable, where.SQL()) //nolint:gosec // G201: table name is validated

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, where.Args()...).Scan(&total); err != nil {
		return nil, 0, mapError("search files: count", err)
	}

	limit := where.Bind(page.Limit)
	offset := where.Bind(page.Offset())

	query := fmt.Sprintf( //nolint:gosec // G201: table name and sort column are validated
		`SELECT %s FROM %s %s %s LIMIT %s OFFSET %s`,
		fileColumns, r.quotedTable, where.SQL(), orderBy, limit, offset)

	rows, err := r.pool.Query(ctx, query, where.Args()...)
	if err != nil {
		return nil, 0, mapError("search files", err)
	}

	files, err := collectFiles(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("search files: %w", err)
	}

	return files, total, nil
}

func (r *FileRepo) Stats(ctx context.Context, filter filedock.StatsFilter) (filedock.FileStats, error) {
	where := fileWhere(filedock.FileFilter{FolderID: filter.FolderID, RootOnly: filter.RootOnly})

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT mime_type, COUNT(*), COALESCE(SUM(size), 0)::BIGINT
		FROM %s %s
		GROUP BY mime_type
		ORDER BY COUNT(*) DESC, mime_type ASC`, r.quotedTable, where.SQL())

	rows, err := r.pool.Query(ctx, query, where.Args()...)
	if err != nil {
		return filedock.FileStats{}, mapError("file stats", err)
	}
	defer rows.Close()

	stats := filedock.FileStats{MimeTypeDistribution: []filedock.MimeTypeStat{}}
	for rows.Next() {
		var s filedock.MimeTypeStat
		if err := rows.Scan(&s.MimeType, &s.Count, &s.Size); err != nil {
			return filedock.FileStats{}, fmt.Errorf("file stats: scan: %w", err)
		}
		stats.TotalFiles += s.Count
		stats.TotalSize += s.Size
		stats.MimeTypeDistribution = append(stats.MimeTypeDistribution, s)
	}

	if err := rows.Err(); err != nil {
		return filedock.FileStats{}, fmt.Errorf("file stats: rows: %w", err)
	}

	return stats, nil
}

func (r *FileRepo) ListPending(ctx context.Context, cutoff time.Time, limit int) ([]filedock.File, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT %s FROM %s
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC, id ASC
		LIMIT $3`, fileColumns, r.quotedTable)

	rows, err := r.pool.Query(ctx, query, string(filedock.StatusPending), cutoff, limit)
	if err != nil {
		return nil, mapError("list pending files", err)
	}

	files, err := collectFiles(rows)
	if err != nil {
		return nil, fmt.Errorf("list pending files: %w", err)
	}

	return files, nil
}

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

const fileColumns = "id, name, storage_path, mime_type, size, checksum, folder_id, description, tags, status, created_at, updated_at"

type FileRepo struct {
	db          *sql.DB
	quotedTable string
}

var _ filedock.FileRepo = (*FileRepo)(nil)

func NewFileRepo(db *sql.DB, tables filedock.Tables) (*FileRepo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new file repo: %w", err)
	}

	return &FileRepo{db: db, quotedTable: quoteIdentifier(tables.Files)}, nil
}

func scanFile(row scanner) (filedock.File, error) {
	var (
		f                              filedock.File
		id, tags, status               string
		checksum, folderID, description sql.NullString
		createdAt, updatedAt           string
	)

	err := row.Scan(
		&id, &f.Name, &f.StoragePath, &f.MimeType, &f.Size, &checksum,
		&folderID, &description, &tags, &status, &createdAt, &updatedAt,
	)
	if err != nil {
		return filedock.File{}, err
	}

	if f.ID, err = uuid.Parse(id); err != nil {
		return filedock.File{}, fmt.Errorf("parse id: %w", err)
	}
	if f.FolderID, err = parseNullableUUID(folderID); err != nil {
		return filedock.File{}, fmt.Errorf("parse folder_id: %w", err)
	}
	if f.Tags, err = decodeTags(tags); err != nil {
		return filedock.File{}, fmt.Errorf("parse tags: %w", err)
	}
	if f.CreatedAt, err = parseTime(createdAt); err != nil {
		return filedock.File{}, fmt.Errorf("parse created_at: %w", err)
	}
	if f.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return filedock.File{}, fmt.Errorf("parse updated_at: %w", err)
	}
	f.Checksum = stringPtr(checksum)
	f.Description = stringPtr(description)
	f.Status = filedock.FileStatus(status)

	return f, nil
}

func collectFiles(rows *sql.Rows) ([]filedock.File, error) {
	defer func() { _ = rows.Close() }()

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

func (r *FileRepo) Create(ctx context.Context, f filedock.File) (filedock.File, error) {
	tags, err := encodeTags(f.Tags)
	if err != nil {
		return filedock.File{}, fmt.Errorf("create file: encode tags: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, name, storage_path, mime_type, size, checksum, folder_id,
			description, tags, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, r.quotedTable)

	_, err = r.db.ExecContext(ctx, query,
		f.ID.String(), f.Name, f.StoragePath, f.MimeType, f.Size, nullableString(f.Checksum),
		nullableUUID(f.FolderID), nullableString(f.Description), tags, string(f.Status),
		formatTime(f.CreatedAt), formatTime(f.UpdatedAt),
	)
	if err != nil {
		return filedock.File{}, mapError("create file", err)
	}

	return r.Get(ctx, f.ID)
}

func (r *FileRepo) Get(ctx context.Context, id uuid.UUID) (filedock.File, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, fileColumns, r.quotedTable) //nolint:gosec // G201: table name is validated

	f, err := scanFile(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		return filedock.File{}, mapError("get file", err)
	}

	return f, nil
}

func (r *FileRepo) GetByStoragePath(ctx context.Context, storagePath string) (filedock.File, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE storage_path = ?`, fileColumns, r.quotedTable) //nolint:gosec // G201: table name is validated

	f, err := scanFile(r.db.QueryRowContext(ctx, query, storagePath))
	if err != nil {
		return filedock.File{}, mapError("get file by storage path", err)
	}

	return f, nil
}

func (r *FileRepo) ListByFolder(ctx context.Context, folderID *uuid.UUID) ([]filedock.File, error) {
	where := internal.NewWhere(internal.Question)
	if folderID == nil {
		where.Add("folder_id IS NULL")
	} else {
		where.Add("folder_id = {}", folderID.String())
	}

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT %s FROM %s %s ORDER BY name ASC, id ASC`, fileColumns, r.quotedTable, where.SQL())

	rows, err := r.db.QueryContext(ctx, query, where.Args()...)
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
	tags, err := encodeTags(f.Tags)
	if err != nil {
		return filedock.File{}, fmt.Errorf("update file: encode tags: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s
		SET name = ?, folder_id = ?, description = ?, tags = ?,
			size = ?, checksum = ?, status = ?, updated_at = ?
		WHERE id = ?`, r.quotedTable)

	result, err := r.db.ExecContext(ctx, query,
		f.Name, nullableUUID(f.FolderID), nullableString(f.Description), tags,
		f.Size, nullableString(f.Checksum), string(f.Status), formatTime(f.UpdatedAt), f.ID.String(),
	)
	if err != nil {
		return filedock.File{}, mapError("update file", err)
	}

	if err := requireRow(result, "update file"); err != nil {
		return filedock.File{}, err
	}

	return r.Get(ctx, f.ID)
}

func (r *FileRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, r.quotedTable) //nolint:gosec // G201: table name is validated

	result, err := r.db.ExecContext(ctx, query, id.String())
	if err != nil {
		return mapError("delete file", err)
	}

	return requireRow(result, "delete file")
}

func fileWhere(filter filedock.FileFilter) *internal.Where {
	where := internal.NewWhere(internal.Question)

	if filter.Name != "" {
		where.Add(`unicode_lower(name) LIKE {} ESCAPE '\'`, internal.ContainsPattern(filter.Name))
	}
	if filter.MimeType != "" {
		where.Add(`unicode_lower(mime_type) LIKE {} ESCAPE '\'`, internal.ContainsPattern(filter.MimeType))
	}
	switch {
	case filter.RootOnly:
		where.Add("folder_id IS NULL")
	case filter.FolderID != nil:
		where.Add("folder_id = {}", filter.FolderID.String())
	}
	if len(filter.Tags) > 0 {
		args := make([]any, len(filter.Tags))
		markers := make([]byte, 0, len(filter.Tags)*4)
		for i, tag := range filter.Tags {
			args[i] = tag
			if i > 0 {
				markers = append(markers, ", "...)
			}
			markers = append(markers, "{}"...)
		}
		where.Add(fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(tags) WHERE json_each.value IN (%s))", markers), args...)
	}
	if filter.MinSize != nil {
		where.Add("size >= {}", *filter.MinSize)
	}
	if filter.MaxSize != nil {
		where.Add("size <= {}", *filter.MaxSize)
	}
	if filter.CreatedAfter != nil {
		where.Add("created_at >= {}", formatTime(*filter.CreatedAfter))
	}
	if filter.CreatedBefore != nil {
		where.Add("created_at <= {}", formatTime(*filter.CreatedBefore))
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
	if err := r.db.QueryRowContext(ctx, countQuery, where.Args()...).Scan(&total); err != nil {
		return nil, 0, mapError("search files: count", err)
	}

	limit := where.Bind(page.Limit)
	offset := where.Bind(page.Offset())

	query := fmt.Sprintf( //nolint:gosec // G201: table name and sort column are validated
		`SELECT %s FROM %s %s %s LIMIT %s OFFSET %s`,
		fileColumns, r.quotedTable, where.SQL(), orderBy, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, where.Args()...)
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
		`SELECT mime_type, COUNT(*), COALESCE(SUM(size), 0)
		FROM %s %s
		GROUP BY mime_type
		ORDER BY COUNT(*) DESC, mime_type ASC`, r.quotedTable, where.SQL())

	rows, err := r.db.QueryContext(ctx, query, where.Args()...)
	if err != nil {
		return filedock.FileStats{}, mapError("file stats", err)
	}
	defer func() { _ = rows.Close() }()

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
		WHERE status = ? AND created_at < ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?`, fileColumns, r.quotedTable)

	rows, err := r.db.QueryContext(ctx, query, string(filedock.StatusPending), formatTime(cutoff), limit)
	if err != nil {
		return nil, mapError("list pending files", err)
	}

	files, err := collectFiles(rows)
	if err != nil {
		return nil, fmt.Errorf("list pending files: %w", err)
	}

	return files, nil
}

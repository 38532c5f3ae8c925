package filedock

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileService manages file metadata records. It never touches the object store.
type FileService struct {
	files   FileRepo
	folders FolderRepo
	now     func() time.Time
}

func NewFileService(files FileRepo, folders FolderRepo) *FileService {
	return &FileService{
		files:   files,
		folders: folders,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create persists a new record. The folder must exist and the storage path
// must be unused; tags default to an empty set and status to pending.
func (s *FileService) Create(ctx context.Context, in CreateFileInput) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, fmt.Errorf("create file: %w", err)
	}

	if strings.TrimSpace(in.Name) == "" {
		return File{}, ValidationErrorf("file name is required")
	}
	if in.StoragePath == "" {
		return File{}, ValidationErrorf("storage path is required")
	}
	if in.Size < 0 {
		return File{}, ValidationErrorf("file size cannot be negative")
	}

	if err := s.ensureFolder(ctx, in.FolderID); err != nil {
		return File{}, err
	}

	if _, err := s.files.GetByStoragePath(ctx, in.StoragePath); err == nil {
		return File{}, ConflictError(fmt.Sprintf("a file already exists at storage path %q", in.StoragePath), nil)
	} else if !errors.Is(err, ErrNotFound) {
		return File{}, classify(err, "", "")
	}

	status := in.Status
	if status == "" {
		status = StatusPending
	}

	now := s.now()
	file, err := s.files.Create(ctx, File{
		ID:          uuid.New(),
		Name:        in.Name,
		StoragePath: in.StoragePath,
		MimeType:    in.MimeType,
		Size:        in.Size,
		Checksum:    in.Checksum,
		FolderID:    in.FolderID,
		Description: in.Description,
		Tags:        normalizeTags(in.Tags),
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return File{}, classify(err, "folder not found",
			fmt.Sprintf("a file already exists at storage path %q", in.StoragePath))
	}

	return file, nil
}

func (s *FileService) ensureFolder(ctx context.Context, folderID *uuid.UUID) error {
	if folderID == nil {
		return nil
	}
	if _, err := s.folders.Get(ctx, *folderID); err != nil {
		return classify(err, "folder not found", "")
	}
	return nil
}

func (s *FileService) Get(ctx context.Context, id uuid.UUID, includeFolder bool) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, fmt.Errorf("get file: %w", err)
	}

	file, err := s.files.Get(ctx, id)
	if err != nil {
		return File{}, classify(err, "file not found", "")
	}

	return s.withFolder(ctx, file, includeFolder)
}

func (s *FileService) GetByStoragePath(ctx context.Context, storagePath string, includeFolder bool) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, fmt.Errorf("get file by storage path: %w", err)
	}

	file, err := s.files.GetByStoragePath(ctx, storagePath)
	if err != nil {
		return File{}, classify(err, "file not found", "")
	}

	return s.withFolder(ctx, file, includeFolder)
}

func (s *FileService) withFolder(ctx context.Context, file File, include bool) (File, error) {
	if !include || file.FolderID == nil {
		return file, nil
	}

	folder, err := s.folders.Get(ctx, *file.FolderID)
	if err != nil {
		return File{}, classify(err, "folder not found", "")
	}
	file.Folder = &folder

	return file, nil
}

// ListByFolder returns files in folderID ordered by name; nil selects root-level files.
func (s *FileService) ListByFolder(ctx context.Context, folderID *uuid.UUID) ([]File, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list files by folder: %w", err)
	}

	if err := s.ensureFolder(ctx, folderID); err != nil {
		return nil, err
	}

	files, err := s.files.ListByFolder(ctx, folderID)
	if err != nil {
		return nil, classify(err, "", "")
	}

	return files, nil
}

// Update applies a partial metadata patch.
func (s *FileService) Update(ctx context.Context, id uuid.UUID, in UpdateFileInput) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, fmt.Errorf("update file: %w", err)
	}

	file, err := s.files.Get(ctx, id)
	if err != nil {
		return File{}, classify(err, "file not found", "")
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return File{}, ValidationErrorf("file name cannot be empty")
		}
		file.Name = *in.Name
	}

	switch {
	case in.MoveToRoot:
		file.FolderID = nil
	case in.FolderID != nil:
		if err := s.ensureFolder(ctx, in.FolderID); err != nil {
			return File{}, err
		}
		file.FolderID = in.FolderID
	}

	if in.Description != nil {
		file.Description = in.Description
	}

	if in.Tags != nil {
		file.Tags = normalizeTags(in.Tags)
	}

	file.UpdatedAt = s.now()

	updated, err := s.files.Update(ctx, file)
	if err != nil {
		return File{}, classify(err, "file not found", "")
	}

	return updated, nil
}

// Confirm stores the size and checksum reported by the object store and marks
// the record confirmed.
func (s *FileService) Confirm(ctx context.Context, id uuid.UUID, size int64, checksum *string) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, fmt.Errorf("confirm file: %w", err)
	}

	file, err := s.files.Get(ctx, id)
	if err != nil {
		return File{}, classify(err, "file not found", "")
	}

	file.Size = size
	file.Checksum = checksum
	file.Status = StatusConfirmed
	file.UpdatedAt = s.now()

	updated, err := s.files.Update(ctx, file)
	if err != nil {
		return File{}, classify(err, "file not found", "")
	}

	return updated, nil
}

// Delete removes the metadata record only.
func (s *FileService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}

	if err := s.files.Delete(ctx, id); err != nil {
		return classify(err, "file not found", "")
	}

	return nil
}

// Search returns a page of files matching filter. Unset sort fields default
// to createdAt descending.
func (s *FileService) Search(ctx context.Context, filter FileFilter, req PageRequest) (Page[File], error) {
	if err := ctx.Err(); err != nil {
		return Page[File]{}, fmt.Errorf("search files: %w", err)
	}

	req = req.Normalize()
	if req.SortBy == "" {
		req.SortBy = SortByCreatedAt
	}
	if !req.SortBy.IsValid() {
		return Page[File]{}, ValidationErrorf("invalid sort field %q", req.SortBy)
	}
	if req.SortOrder == "" {
		req.SortOrder = SortDesc
	}
	if req.SortOrder != SortAsc && req.SortOrder != SortDesc {
		return Page[File]{}, ValidationErrorf("invalid sort order %q", req.SortOrder)
	}

	if filter.MinSize != nil && filter.MaxSize != nil && *filter.MinSize > *filter.MaxSize {
		return Page[File]{}, ValidationErrorf("minimum size exceeds maximum size")
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return Page[File]{}, ValidationErrorf("invalid status %q", filter.Status)
	}
	filter.Tags = normalizeTags(filter.Tags)

	files, total, err := s.files.Search(ctx, filter, req)
	if err != nil {
		return Page[File]{}, classify(err, "", "")
	}

	return newPage(files, req, total), nil
}

// ListPending returns up to limit pending records created before cutoff, oldest first.
func (s *FileService) ListPending(ctx context.Context, cutoff time.Time, limit int) ([]File, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list pending files: %w", err)
	}

	files, err := s.files.ListPending(ctx, cutoff, limit)
	if err != nil {
		return nil, classify(err, "", "")
	}

	return files, nil
}

// Stats aggregates file count and bytes, overall and per MIME type.
func (s *FileService) Stats(ctx context.Context, filter StatsFilter) (FileStats, error) {
	if err := ctx.Err(); err != nil {
		return FileStats{}, fmt.Errorf("file stats: %w", err)
	}

	stats, err := s.files.Stats(ctx, filter)
	if err != nil {
		return FileStats{}, classify(err, "", "")
	}
	if stats.MimeTypeDistribution == nil {
		stats.MimeTypeDistribution = []MimeTypeStat{}
	}

	return stats, nil
}

// normalizeTags trims, drops empties and de-duplicates, preserving first-seen order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

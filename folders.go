package filedock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxFolderDepth bounds the ancestor walk during reparenting so a corrupted
// chain cannot loop forever.
const maxFolderDepth = 1024

// FolderService manages the folder hierarchy.
type FolderService struct {
	folders FolderRepo
	files   FileRepo
	now     func() time.Time
}

func NewFolderService(folders FolderRepo, files FileRepo) *FolderService {
	return &FolderService{
		folders: folders,
		files:   files,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create adds a folder under in.ParentID, or at root level when it is nil.
func (s *FolderService) Create(ctx context.Context, in CreateFolderInput) (Folder, error) {
	if err := ctx.Err(); err != nil {
		return Folder{}, fmt.Errorf("create folder: %w", err)
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Folder{}, ValidationErrorf("folder name is required")
	}

	if in.ParentID != nil {
		if _, err := s.folders.Get(ctx, *in.ParentID); err != nil {
			return Folder{}, classify(err, "parent folder not found", "")
		}
	}

	now := s.now()
	folder, err := s.folders.Create(ctx, Folder{
		ID:          uuid.New(),
		Name:        name,
		Description: in.Description,
		ParentID:    in.ParentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Folder{}, classify(err, "parent folder not found",
			fmt.Sprintf("a folder named %q already exists in this location", name))
	}

	return folder, nil
}

// Get returns a folder with the relations requested in opts.
func (s *FolderService) Get(ctx context.Context, id uuid.UUID, opts FolderOptions) (Folder, error) {
	if err := ctx.Err(); err != nil {
		return Folder{}, fmt.Errorf("get folder: %w", err)
	}

	folder, err := s.folders.Get(ctx, id)
	if err != nil {
		return Folder{}, classify(err, "folder not found", "")
	}

	if err := s.loadRelations(ctx, &folder, opts); err != nil {
		return Folder{}, err
	}

	if opts.IncludeParent && folder.ParentID != nil {
		parent, err := s.folders.Get(ctx, *folder.ParentID)
		if err != nil {
			return Folder{}, classify(err, "parent folder not found", "")
		}
		folder.Parent = &parent
	}

	return folder, nil
}

// ListRoots returns all root-level folders ordered by name.
func (s *FolderService) ListRoots(ctx context.Context, opts FolderOptions) ([]Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list root folders: %w", err)
	}

	roots, err := s.folders.ListByParent(ctx, nil)
	if err != nil {
		return nil, classify(err, "", "")
	}

	for i := range roots {
		if err := s.loadRelations(ctx, &roots[i], opts); err != nil {
			return nil, err
		}
	}

	return roots, nil
}

func (s *FolderService) loadRelations(ctx context.Context, folder *Folder, opts FolderOptions) error {
	if opts.IncludeChildren {
		children, err := s.folders.ListByParent(ctx, &folder.ID)
		if err != nil {
			return classify(err, "folder not found", "")
		}
		folder.Children = children
	}

	if opts.IncludeFiles {
		files, err := s.files.ListByFolder(ctx, &folder.ID)
		if err != nil {
			return classify(err, "folder not found", "")
		}
		folder.Files = files
	}

	return nil
}

// Update applies a partial patch. Reparenting under the folder itself or any
// of its descendants is rejected.
func (s *FolderService) Update(ctx context.Context, id uuid.UUID, in UpdateFolderInput) (Folder, error) {
	if err := ctx.Err(); err != nil {
		return Folder{}, fmt.Errorf("update folder: %w", err)
	}

	folder, err := s.folders.Get(ctx, id)
	if err != nil {
		return Folder{}, classify(err, "folder not found", "")
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return Folder{}, ValidationErrorf("folder name cannot be empty")
		}
		folder.Name = name
	}

	if in.Description != nil {
		folder.Description = in.Description
	}

	switch {
	case in.ClearParent:
		folder.ParentID = nil
	case in.ParentID != nil:
		if err := s.checkReparent(ctx, id, *in.ParentID); err != nil {
			return Folder{}, err
		}
		folder.ParentID = in.ParentID
	}

	folder.UpdatedAt = s.now()

	updated, err := s.folders.Update(ctx, folder)
	if err != nil {
		return Folder{}, classify(err, "folder not found",
			fmt.Sprintf("a folder named %q already exists in this location", folder.Name))
	}

	return updated, nil
}

// checkReparent walks the ancestor chain of newParent and fails if it reaches id.
func (s *FolderService) checkReparent(ctx context.Context, id, newParent uuid.UUID) error {
	current := &newParent
	for depth := 0; current != nil; depth++ {
		if *current == id {
			return ValidationErrorf("a folder cannot be moved into itself or one of its descendants")
		}
		if depth >= maxFolderDepth {
			return newError(KindInternal, nil, "folder hierarchy exceeds %d levels", maxFolderDepth)
		}

		ancestor, err := s.folders.Get(ctx, *current)
		if err != nil {
			return classify(err, "parent folder not found", "")
		}
		current = ancestor.ParentID
	}

	return nil
}

// Delete removes a folder. An empty folder is removed directly. A folder with
// children or files requires recursive; the whole subtree of folders is then
// removed and every file inside it is moved to root level.
func (s *FolderService) Delete(ctx context.Context, id uuid.UUID, recursive bool) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}

	if _, err := s.folders.Get(ctx, id); err != nil {
		return classify(err, "folder not found", "")
	}

	if recursive {
		if _, _, err := s.folders.DeleteTree(ctx, id); err != nil {
			return classify(err, "folder not found", "")
		}
		return nil
	}

	children, err := s.folders.ListByParent(ctx, &id)
	if err != nil {
		return classify(err, "folder not found", "")
	}

	files, err := s.files.ListByFolder(ctx, &id)
	if err != nil {
		return classify(err, "folder not found", "")
	}

	if len(children) > 0 || len(files) > 0 {
		return ConflictError("folder is not empty", nil)
	}

	if err := s.folders.Delete(ctx, id); err != nil {
		return classify(err, "folder not found", "")
	}

	return nil
}

// Search returns a page of folders whose name contains filter.Name, ignoring case.
func (s *FolderService) Search(ctx context.Context, filter FolderFilter, req PageRequest) (Page[Folder], error) {
	if err := ctx.Err(); err != nil {
		return Page[Folder]{}, fmt.Errorf("search folders: %w", err)
	}

	req = req.Normalize()
	req.SortBy = SortByName
	req.SortOrder = SortAsc

	folders, total, err := s.folders.Search(ctx, filter, req)
	if err != nil {
		return Page[Folder]{}, classify(err, "", "")
	}

	return newPage(folders, req, total), nil
}

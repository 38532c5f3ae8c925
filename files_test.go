package filedock_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/filedock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newFileService(t *testing.T) (*filedock.FileService, *SpyFileRepo, *SpyFolderRepo) {
	t.Helper()
	files := new(SpyFileRepo)
	folders := new(SpyFolderRepo)
	return filedock.NewFileService(files, folders), files, folders
}

func TestFileService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults tags and status", func(t *testing.T) {
		service, files, _ := newFileService(t)

		files.On("GetByStoragePath", ctx, "root/1-a.txt").Return(filedock.File{}, filedock.ErrNotFound)
		files.On("Create", ctx, mock.MatchedBy(func(f filedock.File) bool {
			return f.Tags != nil && len(f.Tags) == 0 && f.Status == filedock.StatusPending
		})).Return(func(_ context.Context, f filedock.File) filedock.File { return f }, nil)

		file, err := service.Create(ctx, filedock.CreateFileInput{
			Name: "a.txt", StoragePath: "root/1-a.txt", MimeType: "text/plain",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{}, file.Tags)
		assert.NotEqual(t, uuid.Nil, file.ID)
	})

	t.Run("tags are trimmed and de-duplicated", func(t *testing.T) {
		service, files, _ := newFileService(t)

		files.On("GetByStoragePath", ctx, mock.Anything).Return(filedock.File{}, filedock.ErrNotFound)
		files.On("Create", ctx, mock.Anything).Return(func(_ context.Context, f filedock.File) filedock.File { return f }, nil)

		file, err := service.Create(ctx, filedock.CreateFileInput{
			Name: "a.txt", StoragePath: "p", Tags: []string{" a ", "b", "a", ""},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, file.Tags)
	})

	t.Run("unknown folder", func(t *testing.T) {
		service, files, folders := newFileService(t)
		folderID := uuid.New()

		folders.On("Get", ctx, folderID).Return(filedock.Folder{}, filedock.ErrNotFound)

		_, err := service.Create(ctx, filedock.CreateFileInput{Name: "a", StoragePath: "p", FolderID: &folderID})
		assert.ErrorIs(t, err, filedock.ErrNotFound)
		files.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("existing storage path is a conflict", func(t *testing.T) {
		service, files, _ := newFileService(t)

		files.On("GetByStoragePath", ctx, "p").Return(filedock.File{ID: uuid.New()}, nil)

		_, err := service.Create(ctx, filedock.CreateFileInput{Name: "a", StoragePath: "p"})
		assert.ErrorIs(t, err, filedock.ErrConflict)
		files.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("unique constraint backstop is a conflict", func(t *testing.T) {
		service, files, _ := newFileService(t)

		files.On("GetByStoragePath", ctx, "p").Return(filedock.File{}, filedock.ErrNotFound)
		files.On("Create", ctx, mock.Anything).Return(filedock.File{}, filedock.ErrConflict)

		_, err := service.Create(ctx, filedock.CreateFileInput{Name: "a", StoragePath: "p"})
		assert.ErrorIs(t, err, filedock.ErrConflict)
	})

	t.Run("invalid input", func(t *testing.T) {
		service, _, _ := newFileService(t)

		for _, in := range []filedock.CreateFileInput{
			{StoragePath: "p"},
			{Name: "a"},
			{Name: "a", StoragePath: "p", Size: -1},
		} {
			_, err := service.Create(ctx, in)
			assert.ErrorIs(t, err, filedock.ErrValidation)
		}
	})
}

func TestFileService_Get(t *testing.T) {
	ctx := context.Background()
	folderID := uuid.New()
	file := filedock.File{ID: uuid.New(), Name: "a", StoragePath: "p", FolderID: &folderID}

	t.Run("by id with folder", func(t *testing.T) {
		service, files, folders := newFileService(t)
		files.On("Get", ctx, file.ID).Return(file, nil)
		folders.On("Get", ctx, folderID).Return(filedock.Folder{ID: folderID, Name: "Docs"}, nil)

		got, err := service.Get(ctx, file.ID, true)
		require.NoError(t, err)
		require.NotNil(t, got.Folder)
		assert.Equal(t, "Docs", got.Folder.Name)
	})

	t.Run("by storage path without folder", func(t *testing.T) {
		service, files, folders := newFileService(t)
		files.On("GetByStoragePath", ctx, "p").Return(file, nil)

		got, err := service.GetByStoragePath(ctx, "p", false)
		require.NoError(t, err)
		assert.Nil(t, got.Folder)
		folders.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("not found", func(t *testing.T) {
		service, files, _ := newFileService(t)
		files.On("Get", ctx, file.ID).Return(filedock.File{}, filedock.ErrNotFound)

		_, err := service.Get(ctx, file.ID, false)
		assert.ErrorIs(t, err, filedock.ErrNotFound)
		assert.Equal(t, "file not found", filedock.MessageOf(err, ""))
	})
}

func TestFileService_ListByFolder(t *testing.T) {
	ctx := context.Background()

	t.Run("root level", func(t *testing.T) {
		service, files, folders := newFileService(t)
		files.On("ListByFolder", ctx, (*uuid.UUID)(nil)).Return([]filedock.File{{Name: "a"}, {Name: "b"}}, nil)

		got, err := service.ListByFolder(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, got, 2)
		folders.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("unknown folder", func(t *testing.T) {
		service, _, folders := newFileService(t)
		id := uuid.New()
		folders.On("Get", ctx, id).Return(filedock.Folder{}, filedock.ErrNotFound)

		_, err := service.ListByFolder(ctx, &id)
		assert.ErrorIs(t, err, filedock.ErrNotFound)
	})
}

func TestFileService_Update(t *testing.T) {
	ctx := context.Background()
	oldFolder := uuid.New()
	base := filedock.File{ID: uuid.New(), Name: "a.txt", FolderID: &oldFolder, Tags: []string{"x"}}

	t.Run("patch fields", func(t *testing.T) {
		service, files, folders := newFileService(t)
		newFolder := uuid.New()

		files.On("Get", ctx, base.ID).Return(base, nil)
		folders.On("Get", ctx, newFolder).Return(filedock.Folder{ID: newFolder}, nil)
		files.On("Update", ctx, mock.Anything).Return(func(_ context.Context, f filedock.File) filedock.File { return f }, nil)

		got, err := service.Update(ctx, base.ID, filedock.UpdateFileInput{
			Name:        strPtr("b.txt"),
			FolderID:    &newFolder,
			Description: strPtr("desc"),
			Tags:        []string{"y", "z"},
		})
		require.NoError(t, err)
		assert.Equal(t, "b.txt", got.Name)
		assert.Equal(t, newFolder, *got.FolderID)
		assert.Equal(t, "desc", *got.Description)
		assert.Equal(t, []string{"y", "z"}, got.Tags)
	})

	t.Run("nil tags leave tags alone", func(t *testing.T) {
		service, files, _ := newFileService(t)

		files.On("Get", ctx, base.ID).Return(base, nil)
		files.On("Update", ctx, mock.Anything).Return(func(_ context.Context, f filedock.File) filedock.File { return f }, nil)

		got, err := service.Update(ctx, base.ID, filedock.UpdateFileInput{MoveToRoot: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, got.Tags)
		assert.Nil(t, got.FolderID)
	})

	t.Run("unknown folder", func(t *testing.T) {
		service, files, folders := newFileService(t)
		missing := uuid.New()

		files.On("Get", ctx, base.ID).Return(base, nil)
		folders.On("Get", ctx, missing).Return(filedock.Folder{}, filedock.ErrNotFound)

		_, err := service.Update(ctx, base.ID, filedock.UpdateFileInput{FolderID: &missing})
		assert.ErrorIs(t, err, filedock.ErrNotFound)
		files.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("unknown file", func(t *testing.T) {
		service, files, _ := newFileService(t)
		files.On("Get", ctx, base.ID).Return(filedock.File{}, filedock.ErrNotFound)

		_, err := service.Update(ctx, base.ID, filedock.UpdateFileInput{Name: strPtr("x")})
		assert.ErrorIs(t, err, filedock.ErrNotFound)
	})
}

func TestFileService_Delete(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("success", func(t *testing.T) {
		service, files, _ := newFileService(t)
		files.On("Delete", ctx, id).Return(nil)
		assert.NoError(t, service.Delete(ctx, id))
	})

	t.Run("absent record", func(t *testing.T) {
		service, files, _ := newFileService(t)
		files.On("Delete", ctx, id).Return(filedock.ErrNotFound)
		assert.ErrorIs(t, service.Delete(ctx, id), filedock.ErrNotFound)
	})
}

func TestFileService_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("passes filters and defaults sort", func(t *testing.T) {
		service, files, _ := newFileService(t)
		after := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		minSize := int64(10)

		filter := filedock.FileFilter{
			MimeType:     "image",
			Tags:         []string{"a", "b"},
			MinSize:      &minSize,
			CreatedAfter: &after,
			Status:       filedock.StatusConfirmed,
		}
		files.On("Search", ctx, filter, filedock.PageRequest{
			Page: 1, Limit: 20, SortBy: filedock.SortByCreatedAt, SortOrder: filedock.SortDesc,
		}).Return([]filedock.File{{MimeType: "image/png"}}, 1, nil)

		page, err := service.Search(ctx, filter, filedock.PageRequest{})
		require.NoError(t, err)
		assert.Len(t, page.Data, 1)
		assert.False(t, page.Pagination.HasNext)
		assert.False(t, page.Pagination.HasPrev)
	})

	t.Run("page past the end is empty", func(t *testing.T) {
		service, files, _ := newFileService(t)
		files.On("Search", ctx, mock.Anything, mock.Anything).Return([]filedock.File(nil), 3, nil)

		page, err := service.Search(ctx, filedock.FileFilter{}, filedock.PageRequest{Page: 5, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []filedock.File{}, page.Data)
		assert.False(t, page.Pagination.HasNext)
		assert.True(t, page.Pagination.HasPrev)
		assert.Equal(t, 2, page.Pagination.TotalPages)
	})

	t.Run("invalid requests", func(t *testing.T) {
		service, files, _ := newFileService(t)
		minSize, maxSize := int64(10), int64(5)

		cases := []struct {
			filter filedock.FileFilter
			req    filedock.PageRequest
		}{
			{req: filedock.PageRequest{SortBy: "storagePath"}},
			{req: filedock.PageRequest{SortOrder: "up"}},
			{filter: filedock.FileFilter{MinSize: &minSize, MaxSize: &maxSize}},
			{filter: filedock.FileFilter{Status: "archived"}},
		}
		for _, c := range cases {
			_, err := service.Search(ctx, c.filter, c.req)
			assert.ErrorIs(t, err, filedock.ErrValidation)
		}
		files.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("repository error", func(t *testing.T) {
		service, files, _ := newFileService(t)
		files.On("Search", ctx, mock.Anything, mock.Anything).Return([]filedock.File(nil), 0, errors.New("boom"))

		_, err := service.Search(ctx, filedock.FileFilter{}, filedock.PageRequest{})
		assert.Equal(t, filedock.KindInternal, filedock.KindOf(err))
	})
}

func TestFileService_Confirm(t *testing.T) {
	ctx := context.Background()
	service, files, _ := newFileService(t)
	id := uuid.New()
	sum := "d41d8cd98f00b204e9800998ecf8427e"

	files.On("Get", ctx, id).Return(filedock.File{ID: id, Status: filedock.StatusPending}, nil)
	files.On("Update", ctx, mock.Anything).Return(func(_ context.Context, f filedock.File) filedock.File { return f }, nil)

	got, err := service.Confirm(ctx, id, 0, &sum)
	require.NoError(t, err)
	assert.Equal(t, filedock.StatusConfirmed, got.Status)
	assert.Equal(t, sum, *got.Checksum)
}

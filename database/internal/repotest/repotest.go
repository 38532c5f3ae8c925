// Package repotest is a behavioural test suite shared by the FolderRepo and
// FileRepo implementations.
package repotest

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/filedock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns empty, migrated repositories sharing one database.
type Factory func(t *testing.T) (filedock.FolderRepo, filedock.FileRepo)

// base is truncated to microseconds so every backend round-trips it exactly.
var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func folder(name string, parent *uuid.UUID) filedock.Folder {
	return filedock.Folder{
		ID:        uuid.New(),
		Name:      name,
		ParentID:  parent,
		CreatedAt: base,
		UpdatedAt: base,
	}
}

func file(name, mimeType string, size int64, folderID *uuid.UUID) filedock.File {
	return filedock.File{
		ID:          uuid.New(),
		Name:        name,
		StoragePath: "root/" + uuid.NewString(),
		MimeType:    mimeType,
		Size:        size,
		FolderID:    folderID,
		Tags:        []string{},
		Status:      filedock.StatusConfirmed,
		CreatedAt:   base,
		UpdatedAt:   base,
	}
}

func names[T any](items []T, name func(T) string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = name(it)
	}
	return out
}

func folderName(f filedock.Folder) string { return f.Name }
func fileName(f filedock.File) string     { return f.Name }

func mustCreateFolder(t *testing.T, repo filedock.FolderRepo, f filedock.Folder) filedock.Folder {
	t.Helper()
	created, err := repo.Create(context.Background(), f)
	require.NoError(t, err)
	return created
}

func mustCreateFile(t *testing.T, repo filedock.FileRepo, f filedock.File) filedock.File {
	t.Helper()
	created, err := repo.Create(context.Background(), f)
	require.NoError(t, err)
	return created
}

func page(p, limit int, sortBy filedock.SortField, order filedock.SortOrder) filedock.PageRequest {
	return filedock.PageRequest{Page: p, Limit: limit, SortBy: sortBy, SortOrder: order}
}

// Run executes the suite. Every subtest gets fresh repositories from newRepos.
func Run(t *testing.T, newRepos Factory) {
	t.Run("folders", func(t *testing.T) { runFolderTests(t, newRepos) })
	t.Run("files", func(t *testing.T) { runFileTests(t, newRepos) })
}

func runFolderTests(t *testing.T, newRepos Factory) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		folders, _ := newRepos(t)
		desc := "quarterly"
		in := folder("Reports", nil)
		in.Description = &desc

		created := mustCreateFolder(t, folders, in)
		assert.Equal(t, in.ID, created.ID)

		got, err := folders.Get(ctx, in.ID)
		require.NoError(t, err)
		assert.Equal(t, "Reports", got.Name)
		require.NotNil(t, got.Description)
		assert.Equal(t, "quarterly", *got.Description)
		assert.Nil(t, got.ParentID)
		assert.True(t, base.Equal(got.CreatedAt), "created_at %v", got.CreatedAt)
	})

	t.Run("get missing", func(t *testing.T) {
		folders, _ := newRepos(t)
		_, err := folders.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, filedock.ErrNotFound)
	})

	t.Run("sibling names are unique including root", func(t *testing.T) {
		folders, _ := newRepos(t)

		root := mustCreateFolder(t, folders, folder("Docs", nil))
		_, err := folders.Create(ctx, folder("Docs", nil))
		assert.ErrorIs(t, err, filedock.ErrConflict)

		mustCreateFolder(t, folders, folder("Docs", &root.ID))
		_, err = folders.Create(ctx, folder("Docs", &root.ID))
		assert.ErrorIs(t, err, filedock.ErrConflict)

		other := mustCreateFolder(t, folders, folder("Other", nil))
		mustCreateFolder(t, folders, folder("Docs", &other.ID))
	})

	t.Run("unknown parent", func(t *testing.T) {
		folders, _ := newRepos(t)
		missing := uuid.New()
		_, err := folders.Create(ctx, folder("Orphan", &missing))
		assert.ErrorIs(t, err, filedock.ErrNotFound)
	})

	t.Run("list by parent ordered by name", func(t *testing.T) {
		folders, _ := newRepos(t)
		parent := mustCreateFolder(t, folders, folder("b-root", nil))
		mustCreateFolder(t, folders, folder("a-root", nil))
		mustCreateFolder(t, folders, folder("zeta", &parent.ID))
		mustCreateFolder(t, folders, folder("alpha", &parent.ID))

		roots, err := folders.ListByParent(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"a-root", "b-root"}, names(roots, folderName))

		children, err := folders.ListByParent(ctx, &parent.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "zeta"}, names(children, folderName))

		empty, err := folders.ListByParent(ctx, &children[0].ID)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("update", func(t *testing.T) {
		folders, _ := newRepos(t)
		a := mustCreateFolder(t, folders, folder("a", nil))
		b := mustCreateFolder(t, folders, folder("b", nil))

		b.Name = "b2"
		b.ParentID = &a.ID
		b.UpdatedAt = base.Add(time.Hour)
		updated, err := folders.Update(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, "b2", updated.Name)
		require.NotNil(t, updated.ParentID)
		assert.Equal(t, a.ID, *updated.ParentID)
		assert.True(t, base.Add(time.Hour).Equal(updated.UpdatedAt))

		c := mustCreateFolder(t, folders, folder("c", &a.ID))
		c.Name = "b2"
		_, err = folders.Update(ctx, c)
		assert.ErrorIs(t, err, filedock.ErrConflict)

		_, err = folders.Update(ctx, folder("ghost", nil))
		assert.ErrorIs(t, err, filedock.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		folders, _ := newRepos(t)
		f := mustCreateFolder(t, folders, folder("tmp", nil))

		require.NoError(t, folders.Delete(ctx, f.ID))
		_, err := folders.Get(ctx, f.ID)
		assert.ErrorIs(t, err, filedock.ErrNotFound)

		assert.ErrorIs(t, folders.Delete(ctx, f.ID), filedock.ErrNotFound)
	})

	t.Run("delete tree moves files to root", func(t *testing.T) {
		folders, files := newRepos(t)
		a := mustCreateFolder(t, folders, folder("a", nil))
		b := mustCreateFolder(t, folders, folder("b", &a.ID))
		c := mustCreateFolder(t, folders, folder("c", &b.ID))
		keep := mustCreateFolder(t, folders, folder("keep", nil))

		inA := mustCreateFile(t, files, file("in-a.txt", "text/plain", 1, &a.ID))
		inC := mustCreateFile(t, files, file("in-c.txt", "text/plain", 1, &c.ID))
		inKeep := mustCreateFile(t, files, file("in-keep.txt", "text/plain", 1, &keep.ID))
		atRoot := mustCreateFile(t, files, file("root.txt", "text/plain", 1, nil))

		foldersDeleted, filesMoved, err := folders.DeleteTree(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, foldersDeleted)
		assert.Equal(t, 2, filesMoved)

		for _, id := range []uuid.UUID{a.ID, b.ID, c.ID} {
			_, err := folders.Get(ctx, id)
			assert.ErrorIs(t, err, filedock.ErrNotFound)
		}
		_, err = folders.Get(ctx, keep.ID)
		assert.NoError(t, err)

		for _, id := range []uuid.UUID{inA.ID, inC.ID, atRoot.ID} {
			got, err := files.Get(ctx, id)
			require.NoError(t, err)
			assert.Nil(t, got.FolderID)
		}
		got, err := files.Get(ctx, inKeep.ID)
		require.NoError(t, err)
		require.NotNil(t, got.FolderID)
		assert.Equal(t, keep.ID, *got.FolderID)

		_, _, err = folders.DeleteTree(ctx, a.ID)
		assert.ErrorIs(t, err, filedock.ErrNotFound)
	})

	t.Run("search", func(t *testing.T) {
		folders, _ := newRepos(t)
		parent := mustCreateFolder(t, folders, folder("Projects", nil))
		mustCreateFolder(t, folders, folder("project-alpha", &parent.ID))
		mustCreateFolder(t, folders, folder("project-beta", &parent.ID))
		mustCreateFolder(t, folders, folder("50% done", nil))
		mustCreateFolder(t, folders, folder("500 items", nil))

		got, total, err := folders.Search(ctx, filedock.FolderFilter{Name: "PROJECT"}, page(1, 20, "", ""))
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.ElementsMatch(t, []string{"project-alpha", "project-beta", "Projects"}, names(got, folderName))

		got, total, err = folders.Search(ctx, filedock.FolderFilter{Name: "project", ParentID: &parent.ID}, page(2, 1, "", ""))
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Equal(t, []string{"project-beta"}, names(got, folderName))

		got, total, err = folders.Search(ctx, filedock.FolderFilter{RootOnly: true}, page(1, 20, "", ""))
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Len(t, got, 3)

		got, total, err = folders.Search(ctx, filedock.FolderFilter{Name: "50%"}, page(1, 20, "", ""))
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, []string{"50% done"}, names(got, folderName))

		got, total, err = folders.Search(ctx, filedock.FolderFilter{}, page(9, 20, "", ""))
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		assert.Empty(t, got)

		got, total, err = folders.Search(ctx, filedock.FolderFilter{}, page(math.MaxInt, 20, "", "").Normalize())
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		assert.Empty(t, got)
	})

	t.Run("search folds non-ASCII case", func(t *testing.T) {
		folders, _ := newRepos(t)
		mustCreateFolder(t, folders, folder("Élan", nil))
		mustCreateFolder(t, folders, folder("Straße", nil))
		mustCreateFolder(t, folders, folder("elan", nil))

		for _, name := range []string{"Élan", "élan", "ÉLAN", "lan"} {
			got, _, err := folders.Search(ctx, filedock.FolderFilter{Name: name}, page(1, 20, "", ""))
			require.NoError(t, err)
			assert.Contains(t, names(got, folderName), "Élan", name)
		}

		got, total, err := folders.Search(ctx, filedock.FolderFilter{Name: "ÉL"}, page(1, 20, "", ""))
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, []string{"Élan"}, names(got, folderName))

		got, _, err = folders.Search(ctx, filedock.FolderFilter{Name: "STRAßE"}, page(1, 20, "", ""))
		require.NoError(t, err)
		assert.Equal(t, []string{"Straße"}, names(got, folderName))
	})
}

func runFileTests(t *testing.T, newRepos Factory) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		folders, files := newRepos(t)
		dir := mustCreateFolder(t, folders, folder("docs", nil))
		sum := "9e107d9d372bb6826bd81d3542a419d6"
		desc := "signed copy"

		in := file("contract.pdf", "application/pdf", 2048, &dir.ID)
		in.Checksum = &sum
		in.Description = &desc
		in.Tags = []string{"legal", "2026"}
		in.Status = filedock.StatusPending

		mustCreateFile(t, files, in)

		got, err := files.Get(ctx, in.ID)
		require.NoError(t, err)
		assert.Equal(t, "contract.pdf", got.Name)
		assert.Equal(t, in.StoragePath, got.StoragePath)
		assert.Equal(t, "application/pdf", got.MimeType)
		assert.Equal(t, int64(2048), got.Size)
		require.NotNil(t, got.Checksum)
		assert.Equal(t, sum, *got.Checksum)
		require.NotNil(t, got.FolderID)
		assert.Equal(t, dir.ID, *got.FolderID)
		assert.Equal(t, []string{"legal", "2026"}, got.Tags)
		assert.Equal(t, filedock.StatusPending, got.Status)

		byPath, err := files.GetByStoragePath(ctx, in.StoragePath)
		require.NoError(t, err)
		assert.Equal(t, in.ID, byPath.ID)
	})

	t.Run("nil tags read back empty", func(t *testing.T) {
		_, files := newRepos(t)
		in := file("a.txt", "text/plain", 1, nil)
		in.Tags = nil
		mustCreateFile(t, files, in)

		got, err := files.Get(ctx, in.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{}, got.Tags)
		assert.Nil(t, got.Checksum)
		assert.Nil(t, got.Description)
	})

	t.Run("missing", func(t *testing.T) {
		_, files := newRepos(t)
		_, err := files.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, filedock.ErrNotFound)
		_, err = files.GetByStoragePath(ctx, "root/none")
		assert.ErrorIs(t, err, filedock.ErrNotFound)
	})

	t.Run("storage path is unique", func(t *testing.T) {
		_, files := newRepos(t)
		first := mustCreateFile(t, files, file("a.txt", "text/plain", 1, nil))

		dup := file("b.txt", "text/plain", 1, nil)
		dup.StoragePath = first.StoragePath
		_, err := files.Create(ctx, dup)
		assert.ErrorIs(t, err, filedock.ErrConflict)
	})

	t.Run("unknown folder", func(t *testing.T) {
		_, files := newRepos(t)
		missing := uuid.New()
		_, err := files.Create(ctx, file("a.txt", "text/plain", 1, &missing))
		assert.ErrorIs(t, err, filedock.ErrNotFound)
	})

	t.Run("list by folder", func(t *testing.T) {
		folders, files := newRepos(t)
		dir := mustCreateFolder(t, folders, folder("docs", nil))
		mustCreateFile(t, files, file("b.txt", "text/plain", 1, &dir.ID))
		mustCreateFile(t, files, file("a.txt", "text/plain", 1, &dir.ID))
		mustCreateFile(t, files, file("root.txt", "text/plain", 1, nil))

		inDir, err := files.ListByFolder(ctx, &dir.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"a.txt", "b.txt"}, names(inDir, fileName))

		atRoot, err := files.ListByFolder(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"root.txt"}, names(atRoot, fileName))
	})

	t.Run("update", func(t *testing.T) {
		folders, files := newRepos(t)
		dir := mustCreateFolder(t, folders, folder("docs", nil))
		f := mustCreateFile(t, files, file("a.txt", "text/plain", 0, nil))

		sum := "d41d8cd98f00b204e9800998ecf8427e"
		f.Name = "renamed.txt"
		f.FolderID = &dir.ID
		f.Tags = []string{"x"}
		f.Size = 42
		f.Checksum = &sum
		f.Status = filedock.StatusConfirmed
		f.UpdatedAt = base.Add(time.Minute)

		updated, err := files.Update(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, "renamed.txt", updated.Name)
		assert.Equal(t, dir.ID, *updated.FolderID)
		assert.Equal(t, []string{"x"}, updated.Tags)
		assert.Equal(t, int64(42), updated.Size)
		assert.Equal(t, sum, *updated.Checksum)
		assert.Equal(t, filedock.StatusConfirmed, updated.Status)
		assert.True(t, base.Equal(updated.CreatedAt))

		_, err = files.Update(ctx, file("ghost", "text/plain", 0, nil))
		assert.ErrorIs(t, err, filedock.ErrNotFound)

		missing := uuid.New()
		f.FolderID = &missing
		_, err = files.Update(ctx, f)
		assert.ErrorIs(t, err, filedock.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		_, files := newRepos(t)
		f := mustCreateFile(t, files, file("a.txt", "text/plain", 1, nil))

		require.NoError(t, files.Delete(ctx, f.ID))
		_, err := files.Get(ctx, f.ID)
		assert.ErrorIs(t, err, filedock.ErrNotFound)
		assert.ErrorIs(t, files.Delete(ctx, f.ID), filedock.ErrNotFound)
	})

	t.Run("search", func(t *testing.T) {
		folders, files := newRepos(t)
		dir := mustCreateFolder(t, folders, folder("photos", nil))

		seed := []filedock.File{
			file("Holiday.png", "image/png", 3000, &dir.ID),
			file("scan.jpeg", "image/jpeg", 1000, &dir.ID),
			file("notes.txt", "text/plain", 10, nil),
			file("report_final.pdf", "application/pdf", 5000, nil),
			file("report-draft.pdf", "application/pdf", 4000, nil),
		}
		seed[0].Tags = []string{"travel", "2025"}
		seed[1].Tags = []string{"work"}
		seed[3].Tags = []string{"work", "final"}
		seed[4].Status = filedock.StatusPending
		for i := range seed {
			seed[i].CreatedAt = base.Add(time.Duration(i) * time.Hour)
			seed[i].UpdatedAt = seed[i].CreatedAt
			mustCreateFile(t, files, seed[i])
		}

		search := func(filter filedock.FileFilter, req filedock.PageRequest) ([]string, int) {
			t.Helper()
			got, total, err := files.Search(ctx, filter, req)
			require.NoError(t, err)
			return names(got, fileName), total
		}

		got, total := search(filedock.FileFilter{}, page(1, 20, filedock.SortByCreatedAt, filedock.SortDesc))
		assert.Equal(t, 5, total)
		assert.Equal(t, []string{"report-draft.pdf", "report_final.pdf", "notes.txt", "scan.jpeg", "Holiday.png"}, got)

		got, _ = search(filedock.FileFilter{Name: "HOLIDAY"}, page(1, 20, filedock.SortByName, filedock.SortAsc))
		assert.Equal(t, []string{"Holiday.png"}, got)

		got, _ = search(filedock.FileFilter{Name: "report_"}, page(1, 20, filedock.SortByName, filedock.SortAsc))
		assert.Equal(t, []string{"report_final.pdf"}, got)

		got, _ = search(filedock.FileFilter{MimeType: "IMAGE"}, page(1, 20, filedock.SortBySize, filedock.SortAsc))
		assert.Equal(t, []string{"scan.jpeg", "Holiday.png"}, got)

		got, _ = search(filedock.FileFilter{FolderID: &dir.ID}, page(1, 20, filedock.SortByName, filedock.SortAsc))
		assert.Equal(t, []string{"Holiday.png", "scan.jpeg"}, got)

		_, total = search(filedock.FileFilter{RootOnly: true}, page(1, 20, filedock.SortByName, filedock.SortAsc))
		assert.Equal(t, 3, total)

		got, _ = search(filedock.FileFilter{Tags: []string{"work", "travel"}}, page(1, 20, filedock.SortByName, filedock.SortAsc))
		assert.Equal(t, []string{"Holiday.png", "report_final.pdf", "scan.jpeg"}, got)

		minSize, maxSize := int64(1000), int64(4000)
		got, _ = search(filedock.FileFilter{MinSize: &minSize, MaxSize: &maxSize}, page(1, 20, filedock.SortBySize, filedock.SortDesc))
		assert.Equal(t, []string{"report-draft.pdf", "Holiday.png", "scan.jpeg"}, got)

		after, before := base.Add(time.Hour), base.Add(3*time.Hour)
		got, _ = search(filedock.FileFilter{CreatedAfter: &after, CreatedBefore: &before}, page(1, 20, filedock.SortByCreatedAt, filedock.SortAsc))
		assert.Equal(t, []string{"scan.jpeg", "notes.txt", "report_final.pdf"}, got)

		got, _ = search(filedock.FileFilter{Status: filedock.StatusPending}, page(1, 20, filedock.SortByName, filedock.SortAsc))
		assert.Equal(t, []string{"report-draft.pdf"}, got)

		got, _ = search(filedock.FileFilter{}, page(1, 20, filedock.SortByMimeType, filedock.SortAsc))
		assert.Equal(t, "application/pdf", seedMime(seed, got[0]))
		assert.Equal(t, "text/plain", seedMime(seed, got[4]))

		got, total = search(filedock.FileFilter{}, page(2, 2, filedock.SortByName, filedock.SortAsc))
		assert.Equal(t, 5, total)
		assert.Len(t, got, 2)

		got, total = search(filedock.FileFilter{}, page(4, 2, filedock.SortByName, filedock.SortAsc))
		assert.Equal(t, 5, total)
		assert.Empty(t, got)

		got, total = search(filedock.FileFilter{}, page(math.MaxInt, 20, filedock.SortByName, filedock.SortAsc).Normalize())
		assert.Equal(t, 5, total)
		assert.Empty(t, got)
	})

	t.Run("search folds non-ASCII case", func(t *testing.T) {
		_, files := newRepos(t)
		mustCreateFile(t, files, file("Résumé.pdf", "application/pdf", 10, nil))
		mustCreateFile(t, files, file("resume.txt", "text/plain", 10, nil))

		for _, name := range []string{"Résumé", "résumé", "RÉSUMÉ"} {
			got, total, err := files.Search(ctx, filedock.FileFilter{Name: name}, page(1, 20, filedock.SortByName, filedock.SortAsc))
			require.NoError(t, err)
			assert.Equal(t, 1, total, name)
			assert.Equal(t, []string{"Résumé.pdf"}, names(got, fileName), name)
		}
	})

	t.Run("stats", func(t *testing.T) {
		folders, files := newRepos(t)
		dir := mustCreateFolder(t, folders, folder("docs", nil))
		mustCreateFile(t, files, file("a.pdf", "application/pdf", 100, &dir.ID))
		mustCreateFile(t, files, file("b.pdf", "application/pdf", 200, nil))
		mustCreateFile(t, files, file("c.png", "image/png", 50, nil))

		stats, err := files.Stats(ctx, filedock.StatsFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), stats.TotalFiles)
		assert.Equal(t, int64(350), stats.TotalSize)
		assert.Equal(t, []filedock.MimeTypeStat{
			{MimeType: "application/pdf", Count: 2, Size: 300},
			{MimeType: "image/png", Count: 1, Size: 50},
		}, stats.MimeTypeDistribution)

		stats, err = files.Stats(ctx, filedock.StatsFilter{FolderID: &dir.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.TotalFiles)
		assert.Equal(t, int64(100), stats.TotalSize)

		stats, err = files.Stats(ctx, filedock.StatsFilter{RootOnly: true})
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.TotalFiles)

		empty := uuid.New()
		stats, err = files.Stats(ctx, filedock.StatsFilter{FolderID: &empty})
		require.NoError(t, err)
		assert.Equal(t, int64(0), stats.TotalFiles)
		assert.Empty(t, stats.MimeTypeDistribution)
	})

	t.Run("list pending", func(t *testing.T) {
		_, files := newRepos(t)
		for i := range 4 {
			f := file(fmt.Sprintf("p%d.txt", i), "text/plain", 0, nil)
			f.Status = filedock.StatusPending
			f.CreatedAt = base.Add(time.Duration(i) * time.Hour)
			mustCreateFile(t, files, f)
		}
		mustCreateFile(t, files, file("done.txt", "text/plain", 1, nil))

		got, err := files.ListPending(ctx, base.Add(150*time.Minute), 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"p0.txt", "p1.txt", "p2.txt"}, names(got, fileName))

		got, err = files.ListPending(ctx, base.Add(150*time.Minute), 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"p0.txt", "p1.txt"}, names(got, fileName))
	})
}

func seedMime(seed []filedock.File, name string) string {
	for _, f := range seed {
		if f.Name == name {
			return f.MimeType
		}
	}
	return ""
}

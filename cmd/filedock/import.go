package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sagarc03/filedock"
)

var importCmd = &cobra.Command{
	Use:   "import [flags] <file1> [file2] ...",
	Short: "Import local files into filedock",
	Long: `Import files from local paths through the normal upload flow.

Each file is registered as a pending upload, written to the object store
and confirmed, so size and checksum come from the store as for clients.

Examples:
  # Import a single file at root level
  filedock import /path/to/report.pdf

  # Import into a folder
  filedock import --folder 0b7a4c1e-... /path/to/photo.jpg

  # Import a directory, mirroring sub-directories as folders
  filedock import -r /path/to/assets

  # Skip files whose name already exists in the target folder
  filedock import --no-clobber /path/to/report.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

var (
	importFolder    string
	importTags      []string
	importRecursive bool
	importNoClobber bool
	importQuiet     bool
)

func init() {
	importCmd.Flags().StringVarP(&importFolder, "folder", "f", "", "target folder ID (default: root level)")
	importCmd.Flags().StringSliceVarP(&importTags, "tag", "t", nil, "tag to attach to every imported file (repeatable)")
	importCmd.Flags().BoolVarP(&importRecursive, "recursive", "r", false, "recursively import directories")
	importCmd.Flags().BoolVarP(&importNoClobber, "no-clobber", "n", false, "skip files whose name already exists in the folder")
	importCmd.Flags().BoolVarP(&importQuiet, "quiet", "q", false, "suppress per-file output")
	rootCmd.AddCommand(importCmd)
}

// fileEntry is a local file and the folder path it lands in, relative to
// the import target.
type fileEntry struct {
	sourcePath string
	dir        []string
}

type importer struct {
	app     *app
	target  *uuid.UUID
	folders map[string]*uuid.UUID
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	_, a, err := appFromCommand(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	imp := &importer{app: a, folders: map[string]*uuid.UUID{}}
	if importFolder != "" {
		id, err := uuid.Parse(importFolder)
		if err != nil {
			return fmt.Errorf("invalid --folder: %w", err)
		}
		if _, err := a.folders.Get(ctx, id, filedock.FolderOptions{}); err != nil {
			return fmt.Errorf("target folder: %w", err)
		}
		imp.target = &id
	}
	imp.folders[""] = imp.target

	var files []fileEntry
	for _, arg := range args {
		entries, collectErr := collectFiles(arg, importRecursive)
		if collectErr != nil {
			return fmt.Errorf("collect files from %s: %w", arg, collectErr)
		}
		files = append(files, entries...)
	}

	if len(files) == 0 {
		slog.Info("no files to import")
		return nil
	}

	imported, skipped := 0, 0
	for _, entry := range files {
		folderID, err := imp.folderFor(ctx, entry.dir)
		if err != nil {
			return err
		}

		name := filepath.Base(entry.sourcePath)
		if importNoClobber {
			exists, err := imp.nameTaken(ctx, folderID, name)
			if err != nil {
				return err
			}
			if exists {
				skipped++
				if !importQuiet {
					slog.Info("skipped (exists)", "path", entry.sourcePath)
				}
				continue
			}
		}

		file, err := imp.importFile(ctx, entry.sourcePath, folderID)
		if err != nil {
			return fmt.Errorf("import %s: %w", entry.sourcePath, err)
		}

		imported++
		if !importQuiet {
			slog.Info("imported", "path", entry.sourcePath, "id", file.ID, "size", file.Size, "mime_type", file.MimeType)
		}
	}

	slog.Info("import complete", "imported", imported, "skipped", skipped)
	return nil
}

func (imp *importer) importFile(ctx context.Context, path string, folderID *uuid.UUID) (filedock.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return filedock.File{}, err
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return filedock.File{}, err
	}
	size := st.Size()
	mimeType := detectContentType(path)

	ticket, err := imp.app.coordinator.RequestUpload(ctx, filedock.UploadRequest{
		FileName: filepath.Base(path),
		MimeType: mimeType,
		SizeHint: &size,
		FolderID: folderID,
		Tags:     importTags,
	})
	if err != nil {
		return filedock.File{}, err
	}

	if err := imp.app.store.Put(ctx, ticket.Key, f, size, mimeType); err != nil {
		if _, delErr := imp.app.coordinator.DeleteFile(ctx, ticket.FileID); delErr != nil {
			slog.Warn("failed to remove pending record", "id", ticket.FileID, "err", delErr)
		}
		return filedock.File{}, fmt.Errorf("write object: %w", err)
	}

	return imp.app.coordinator.ConfirmUpload(ctx, ticket.FileID)
}

// folderFor resolves dir below the import target, creating missing folders.
func (imp *importer) folderFor(ctx context.Context, dir []string) (*uuid.UUID, error) {
	parent := imp.target
	for i := range dir {
		key := strings.Join(dir[:i+1], "/")
		if id, ok := imp.folders[key]; ok {
			parent = id
			continue
		}

		id, err := imp.childFolder(ctx, parent, dir[i])
		if err != nil {
			return nil, fmt.Errorf("folder %s: %w", key, err)
		}
		imp.folders[key] = id
		parent = id
	}
	return parent, nil
}

func (imp *importer) childFolder(ctx context.Context, parent *uuid.UUID, name string) (*uuid.UUID, error) {
	var siblings []filedock.Folder
	if parent == nil {
		roots, err := imp.app.folders.ListRoots(ctx, filedock.FolderOptions{})
		if err != nil {
			return nil, err
		}
		siblings = roots
	} else {
		folder, err := imp.app.folders.Get(ctx, *parent, filedock.FolderOptions{IncludeChildren: true})
		if err != nil {
			return nil, err
		}
		siblings = folder.Children
	}

	for _, s := range siblings {
		if s.Name == name {
			return &s.ID, nil
		}
	}

	created, err := imp.app.folders.Create(ctx, filedock.CreateFolderInput{Name: name, ParentID: parent})
	if err != nil {
		return nil, err
	}
	if !importQuiet {
		slog.Info("created folder", "name", name, "id", created.ID)
	}
	return &created.ID, nil
}

func (imp *importer) nameTaken(ctx context.Context, folderID *uuid.UUID, name string) (bool, error) {
	existing, err := imp.app.files.ListByFolder(ctx, folderID)
	if err != nil {
		return false, err
	}
	for _, f := range existing {
		if f.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// collectFiles gathers files from a path, optionally recursively.
func collectFiles(path string, recursive bool) ([]fileEntry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return []fileEntry{{sourcePath: path}}, nil
	}

	if !recursive {
		return nil, fmt.Errorf("%s is a directory (use -r to import recursively)", path)
	}

	var entries []fileEntry
	walkErr := filepath.WalkDir(path, func(walkPath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}

		relPath, relErr := filepath.Rel(path, walkPath)
		if relErr != nil {
			return relErr
		}

		var dir []string
		if relDir := filepath.Dir(relPath); relDir != "." {
			dir = strings.Split(filepath.ToSlash(relDir), "/")
		}

		entries = append(entries, fileEntry{sourcePath: walkPath, dir: dir})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return entries, nil
}

// detectContentType determines the MIME type from a file's extension.
func detectContentType(path string) string {
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		return "application/octet-stream"
	}

	// Drop parameters such as "; charset=utf-8" so allow-list checks match.
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		return mediaType
	}
	return contentType
}

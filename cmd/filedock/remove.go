package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sagarc03/filedock"
)

var removeCmd = &cobra.Command{
	Use:   "remove [flags] <file-id> [file-id] ...",
	Short: "Remove files and their objects",
	Long: `Delete files by ID. The object is removed from the store first and
the metadata record second, exactly as DELETE /api/s3/delete/{fileId} does.

Examples:
  # Remove a single file
  filedock remove 6f1c...

  # Remove every file directly inside a folder
  filedock remove --folder 0b7a...

  # Remove every root-level file
  filedock remove --folder root`,
	RunE: runRemove,
}

var (
	removeFolder string
	removeQuiet  bool
)

func init() {
	removeCmd.Flags().StringVar(&removeFolder, "folder", "", `remove all files in a folder ID, or "root"`)
	removeCmd.Flags().BoolVarP(&removeQuiet, "quiet", "q", false, "suppress per-file output")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && removeFolder == "" {
		return errors.New("pass at least one file ID or --folder")
	}

	ctx := cmd.Context()

	_, a, err := appFromCommand(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ids := make([]uuid.UUID, 0, len(args))
	for _, arg := range args {
		id, err := uuid.Parse(arg)
		if err != nil {
			return fmt.Errorf("invalid file ID %q: %w", arg, err)
		}
		ids = append(ids, id)
	}

	if removeFolder != "" {
		folderIDs, err := folderFileIDs(ctx, a, removeFolder)
		if err != nil {
			return err
		}
		ids = append(ids, folderIDs...)
	}

	removed, notFound := 0, 0
	for _, id := range ids {
		file, err := a.coordinator.DeleteFile(ctx, id)
		if errors.Is(err, filedock.ErrNotFound) {
			notFound++
			if !removeQuiet {
				slog.Warn("not found", "id", id)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("remove %s: %w", id, err)
		}

		removed++
		if !removeQuiet {
			slog.Info("removed", "id", id, "name", file.Name)
		}
	}

	slog.Info("remove complete", "removed", removed, "not_found", notFound)
	return nil
}

func folderFileIDs(ctx context.Context, a *app, scope string) ([]uuid.UUID, error) {
	folderID, rootOnly, err := filedock.ParseFolderScope(scope)
	if err != nil {
		return nil, err
	}
	if !rootOnly && folderID == nil {
		return nil, fmt.Errorf("invalid --folder %q", scope)
	}

	files, err := a.files.ListByFolder(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("list folder %s: %w", scope, err)
	}

	ids := make([]uuid.UUID, len(files))
	for i, f := range files {
		ids[i] = f.ID
	}
	return ids, nil
}

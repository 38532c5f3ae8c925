package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/filedock/clientcli"
)

var (
	uploadFolder      string
	uploadContentType string
	uploadDescription string
	uploadTags        []string
	uploadRecursive   bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload <local-path>",
	Short: "Upload files to the server",
	Long: `Upload a file, or a directory with -r.

Each file is sent straight to object storage through a presigned URL and
then confirmed. With -r, sub-directories become folders below --folder;
folders that already exist are reused.

Examples:
  filedock-cli upload report.pdf
  filedock-cli upload --folder 4f1c... --tag q3 --tag finance report.pdf
  filedock-cli upload -r ./photos
  filedock-cli upload --content-type text/csv data.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadFolder, "folder", "", "target folder ID (default: root level)")
	uploadCmd.Flags().StringVar(&uploadContentType, "content-type", "", "override content type detection")
	uploadCmd.Flags().StringVar(&uploadDescription, "description", "", "file description")
	uploadCmd.Flags().StringSliceVarP(&uploadTags, "tag", "t", nil, "tag to attach (repeatable)")
	uploadCmd.Flags().BoolVarP(&uploadRecursive, "recursive", "r", false, "upload a directory recursively")
}

func runUpload(cmd *cobra.Command, args []string) error {
	folderID := uploadFolder
	if folderID != "" {
		id, err := clientcli.ParseID(folderID)
		if err != nil {
			return err
		}
		folderID = id
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	results, err := client.Upload(cmd.Context(), clientcli.UploadOptions{
		LocalPath:   args[0],
		FolderID:    folderID,
		ContentType: uploadContentType,
		Description: uploadDescription,
		Tags:        uploadTags,
		Recursive:   uploadRecursive,
	})
	if err != nil {
		return err
	}

	if err := getFormatter().FormatUpload(os.Stdout, results); err != nil {
		return err
	}

	if clientcli.HasUploadErrors(results) {
		return &exitError{code: 1}
	}

	return nil
}

package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/filedock/clientcli"
)

var (
	downloadOutput string
	downloadStdout bool
	downloadInline bool
)

var downloadCmd = &cobra.Command{
	Use:   "download <file-id> [local-path]",
	Short: "Download a file from the server",
	Long: `Download a file through a presigned URL.

Without a local path the stored file name is used in the current directory.

Examples:
  filedock-cli download 4f1c...
  filedock-cli download 4f1c... ./copy.pdf
  filedock-cli download --stdout 4f1c... | jq .
  filedock-cli download -o ./out.csv 4f1c...`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "output file path")
	downloadCmd.Flags().BoolVar(&downloadStdout, "stdout", false, "write to stdout")
	downloadCmd.Flags().BoolVar(&downloadInline, "inline", false, "request an inline content disposition")
}

func runDownload(cmd *cobra.Command, args []string) error {
	fileID, err := clientcli.ParseID(args[0])
	if err != nil {
		return err
	}

	localPath := ""
	if len(args) > 1 {
		localPath = args[1]
	}
	if downloadOutput != "" {
		localPath = downloadOutput
	}
	if downloadStdout {
		localPath = "-"
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	result, reader, err := client.Download(cmd.Context(), clientcli.DownloadOptions{
		FileID:    fileID,
		LocalPath: localPath,
		Inline:    downloadInline,
	})
	if err != nil {
		return err
	}

	if reader != nil {
		defer func() { _ = reader.Close() }()
		if _, err := io.Copy(os.Stdout, reader); err != nil {
			return err
		}
		// stdout carries the content, so metadata only goes to stderr in JSON mode
		if jsonOutput {
			return getFormatter().FormatDownload(os.Stderr, result)
		}
		return nil
	}

	return getFormatter().FormatDownload(os.Stdout, result)
}

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/filedock/clientcli"
)

var infoIncludeFolder bool

var infoCmd = &cobra.Command{
	Use:   "info <file-id>",
	Short: "Show a file record and its storage state",
	Long: `Show a file record together with what object storage reports for it.

Examples:
  filedock-cli info 4f1c...
  filedock-cli info --include-folder --json 4f1c...`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	infoCmd.Flags().BoolVar(&infoIncludeFolder, "include-folder", false, "include the containing folder")
}

func runInfo(cmd *cobra.Command, args []string) error {
	fileID, err := clientcli.ParseID(args[0])
	if err != nil {
		return err
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	info, err := client.Info(cmd.Context(), fileID, infoIncludeFolder)
	if err != nil {
		return err
	}

	return getFormatter().FormatInfo(os.Stdout, info)
}

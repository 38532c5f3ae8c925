package main

import (
	"os"

	"github.com/spf13/cobra"
)

var statsFolder string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show file counts and sizes by MIME type",
	Long: `Show aggregate file statistics.

Examples:
  filedock-cli stats
  filedock-cli stats --folder root
  filedock-cli stats --folder 4f1c... --json`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsFolder, "folder", "", `folder ID or "root"`)
}

func runStats(cmd *cobra.Command, _ []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	stats, err := client.Stats(cmd.Context(), statsFolder)
	if err != nil {
		return err
	}

	return getFormatter().FormatStats(os.Stdout, stats)
}

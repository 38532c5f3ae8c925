package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/filedock/clientcli"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <file-id> [file-id...]",
	Short: "Delete files from the server",
	Long: `Delete one or more files. The stored object and the record are both removed.

Examples:
  filedock-cli delete 4f1c...
  filedock-cli delete -q 4f1c... 9ab0...`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	results, err := client.Delete(cmd.Context(), clientcli.DeleteOptions{IDs: ids})
	if err != nil {
		return err
	}

	if err := getFormatter().FormatDelete(os.Stdout, results); err != nil {
		return err
	}

	if clientcli.HasDeleteErrors(results) {
		return &exitError{code: 1}
	}

	return nil
}

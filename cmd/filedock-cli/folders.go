package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/filedock/clientcli"
)

var (
	folderParent      string
	folderDescription string
	folderName        string
	folderChildren    bool
	folderRecursive   bool
)

var foldersCmd = &cobra.Command{
	Use:     "folders",
	Aliases: []string{"folder"},
	Short:   "Manage folders",
	Long: `Create, inspect, list and delete folders.

Examples:
  filedock-cli folders create reports
  filedock-cli folders create --parent 4f1c... 2024
  filedock-cli folders list
  filedock-cli folders list --parent root --name rep
  filedock-cli folders get --children 4f1c...
  filedock-cli folders delete --recursive 4f1c...`,
}

var folderCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runFolderCreate,
}

var folderListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List root folders, or search by name and parent",
	Args:    cobra.NoArgs,
	RunE:    runFolderList,
}

var folderGetCmd = &cobra.Command{
	Use:   "get <folder-id>",
	Short: "Show a folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runFolderGet,
}

var folderDeleteCmd = &cobra.Command{
	Use:     "delete <folder-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a folder",
	Long: `Delete a folder. A folder with sub-folders or files is refused unless
--recursive is given; files inside are then moved to the root level.`,
	Args: cobra.ExactArgs(1),
	RunE: runFolderDelete,
}

func init() {
	folderCreateCmd.Flags().StringVar(&folderParent, "parent", "", "parent folder ID (default: root level)")
	folderCreateCmd.Flags().StringVar(&folderDescription, "description", "", "folder description")

	folderListCmd.Flags().StringVar(&folderParent, "parent", "", `parent folder ID or "root"`)
	folderListCmd.Flags().StringVar(&folderName, "name", "", "filter by name substring")

	folderGetCmd.Flags().BoolVar(&folderChildren, "children", false, "include sub-folders")

	folderDeleteCmd.Flags().BoolVarP(&folderRecursive, "recursive", "r", false, "delete sub-folders too")

	foldersCmd.AddCommand(folderCreateCmd)
	foldersCmd.AddCommand(folderListCmd)
	foldersCmd.AddCommand(folderGetCmd)
	foldersCmd.AddCommand(folderDeleteCmd)
}

func runFolderCreate(cmd *cobra.Command, args []string) error {
	parentID := folderParent
	if parentID != "" {
		id, err := clientcli.ParseID(parentID)
		if err != nil {
			return err
		}
		parentID = id
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	folder, err := client.CreateFolder(cmd.Context(), clientcli.CreateFolderOptions{
		Name:        args[0],
		Description: folderDescription,
		ParentID:    parentID,
	})
	if err != nil {
		return err
	}

	return getFormatter().FormatFolder(os.Stdout, folder)
}

func runFolderList(cmd *cobra.Command, _ []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	folders, err := client.ListFolders(cmd.Context(), clientcli.FolderListOptions{
		Name:     folderName,
		ParentID: folderParent,
	})
	if err != nil {
		return err
	}

	return getFormatter().FormatFolders(os.Stdout, folders)
}

func runFolderGet(cmd *cobra.Command, args []string) error {
	id, err := clientcli.ParseID(args[0])
	if err != nil {
		return err
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	folder, err := client.GetFolder(cmd.Context(), id, folderChildren)
	if err != nil {
		return err
	}

	return getFormatter().FormatFolder(os.Stdout, folder)
}

func runFolderDelete(cmd *cobra.Command, args []string) error {
	id, err := clientcli.ParseID(args[0])
	if err != nil {
		return err
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	if err := client.DeleteFolder(cmd.Context(), id, folderRecursive); err != nil {
		return err
	}

	switch {
	case jsonOutput:
		_, err = fmt.Fprintf(os.Stdout, "{\"id\":%q,\"deleted\":true}\n", id)
	case !quiet:
		_, err = fmt.Fprintf(os.Stdout, "deleted folder %s\n", id)
	}
	return err
}

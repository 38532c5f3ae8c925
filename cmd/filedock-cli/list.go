package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/filedock/clientcli"
)

var (
	listPage      int
	listLimit     int
	listFolder    string
	listMimeType  string
	listSearch    string
	listSortBy    string
	listSortOrder string
	listAll       bool
)

var listCmd = &cobra.Command{
	Use:   "list [search]",
	Short: "List files on the server",
	Long: `List file records with filters, sorting and pagination.

--folder takes a folder ID, or "root" for files outside any folder.
Sorting accepts createdAt, updatedAt, name, size and mimeType.

Examples:
  filedock-cli list
  filedock-cli list invoice
  filedock-cli list --folder root --mime-type image/
  filedock-cli list --sort-by size --sort-order asc --limit 50
  filedock-cli list --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().IntVar(&listPage, "page", 1, "page number")
	listCmd.Flags().IntVarP(&listLimit, "limit", "l", 20, "results per page (max: 100)")
	listCmd.Flags().StringVar(&listFolder, "folder", "", `folder ID or "root"`)
	listCmd.Flags().StringVar(&listMimeType, "mime-type", "", "filter by MIME type substring")
	listCmd.Flags().StringVar(&listSearch, "search", "", "filter by file name substring")
	listCmd.Flags().StringVar(&listSortBy, "sort-by", "", "sort field (default: createdAt)")
	listCmd.Flags().StringVar(&listSortOrder, "sort-order", "", "asc or desc (default: desc)")
	listCmd.Flags().BoolVar(&listAll, "all", false, "fetch all pages")
}

func runList(cmd *cobra.Command, args []string) error {
	search := listSearch
	if len(args) > 0 {
		search = args[0]
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	result, err := client.List(cmd.Context(), clientcli.ListOptions{
		Page:      listPage,
		Limit:     listLimit,
		FolderID:  listFolder,
		MimeType:  listMimeType,
		Search:    search,
		SortBy:    listSortBy,
		SortOrder: listSortOrder,
		All:       listAll,
	})
	if err != nil {
		return err
	}

	return getFormatter().FormatList(os.Stdout, result)
}

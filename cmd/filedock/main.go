package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/filedock/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "filedock",
	Short:   "File metadata service with presigned object storage",
	Long: `Filedock keeps folder and file metadata in SQL and hands out
presigned URLs so that clients move bytes directly to and from the
configured object store (S3, GCS, a Stowry server or a local directory).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFiles, _ := cmd.Flags().GetStringSlice("config")

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringSlice("config", nil, "config file paths, later files override earlier ones (default: ./config.yaml)")
	flags.String("env", "", "environment: development, production, test (env: FILEDOCK_ENV)")
	flags.String("db-type", "", "database type: sqlite, postgres (env: FILEDOCK_DATABASE_TYPE)")
	flags.String("db-dsn", "", "database connection string (env: FILEDOCK_DATABASE_DSN)")
	flags.String("backend", "", "object store backend: s3, gcs, stowry, filesystem (env: FILEDOCK_OBJECTSTORE_BACKEND)")
	flags.String("storage-path", "", "filesystem backend directory (env: FILEDOCK_OBJECTSTORE_FILESYSTEM_PATH)")
	flags.String("log-level", "", "log level: debug, info, warn, error (env: FILEDOCK_LOG_LEVEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

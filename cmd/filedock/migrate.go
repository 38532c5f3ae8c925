package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/filedock/config"
	"github.com/sagarc03/filedock/database"
	"github.com/sagarc03/filedock/s3store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the metadata tables and prepare the object store",
	Long: `Create the folders and files tables and their indexes if they do not
exist, then validate the schema. With --ensure-bucket and the s3 backend the
bucket is created when missing.`,
	RunE: runMigrate,
}

var migrateEnsureBucket bool

func init() {
	migrateCmd.Flags().BoolVar(&migrateEnsureBucket, "ensure-bucket", false, "create the S3 bucket when it does not exist")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	dbCfg := cfg.Database
	dbCfg.SkipMigrate = false

	_, closeDB, err := database.Connect(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	defer closeDB()

	slog.Info("database migration complete",
		"type", dbCfg.Type,
		"folders_table", dbCfg.Tables.Folders,
		"files_table", dbCfg.Tables.Files,
	)

	if !migrateEnsureBucket {
		return nil
	}
	if cfg.ObjectStore.Backend != config.BackendS3 {
		return fmt.Errorf("--ensure-bucket requires the s3 backend, got %q", cfg.ObjectStore.Backend)
	}

	store, err := s3store.New(ctx, cfg.ObjectStore.S3)
	if err != nil {
		return fmt.Errorf("open s3 store: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return err
	}

	slog.Info("bucket ready", "bucket", cfg.ObjectStore.S3.Bucket)
	return nil
}

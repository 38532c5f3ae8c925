package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

var reapCmd = &cobra.Command{
	Use:   "reap",
	Short: "Settle uploads that were never confirmed",
	Long: `Scan pending file records older than --older-than.

For each record the object store is probed: when the object exists the
upload is confirmed with its real size, otherwise the record is removed.
Run this periodically; the server itself never reaps.`,
	RunE: runReap,
}

var (
	reapOlderThan time.Duration
	reapBatch     int
)

func init() {
	reapCmd.Flags().DurationVar(&reapOlderThan, "older-than", 0, "minimum age of pending records (default: uploads.pending_ttl)")
	reapCmd.Flags().IntVar(&reapBatch, "batch", 0, "maximum records to process (default: uploads.reap_batch)")
	rootCmd.AddCommand(reapCmd)
}

func runReap(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, a, err := appFromCommand(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	olderThan := cfg.Uploads.PendingTTL
	if reapOlderThan > 0 {
		olderThan = reapOlderThan
	}
	batch := cfg.Uploads.ReapBatch
	if reapBatch > 0 {
		batch = reapBatch
	}

	slog.Info("starting reap", "older_than", olderThan, "batch", batch)

	result, err := a.coordinator.ReapPending(ctx, olderThan, batch)
	if err != nil {
		return fmt.Errorf("reap: %w", err)
	}

	slog.Info("reap complete",
		"scanned", result.Scanned,
		"confirmed", result.Confirmed,
		"removed", result.Removed,
	)
	return nil
}

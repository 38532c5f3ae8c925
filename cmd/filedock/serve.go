package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	filedockhttp "github.com/sagarc03/filedock/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the filedock HTTP API.

With the filesystem backend the server also answers the presigned
/objects/ URLs it hands out, so it must be reachable at server.public_url.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 5708, "HTTP server port (env: FILEDOCK_SERVER_PORT)")
	serveCmd.Flags().String("public-url", "", "externally reachable base URL (env: FILEDOCK_SERVER_PUBLIC_URL)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, a, err := appFromCommand(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	handlerConfig := filedockhttp.HandlerConfig{
		Production:    cfg.Production(),
		CORS:          cfg.CORS,
		Logger:        slog.Default(),
		MaxObjectSize: cfg.Uploads.MaxSize,
		Health:        a.repos.Ping,
	}
	if a.metrics != nil {
		handlerConfig.Metrics = a.metrics
	}
	if a.objects != nil {
		handlerConfig.Objects = a.objects
		handlerConfig.ObjectVerifier = a.verifier
	}

	handler := filedockhttp.NewHandler(&handlerConfig, a.coordinator, a.folders)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server",
		"addr", addr,
		"env", cfg.Env,
		"backend", cfg.ObjectStore.Backend,
		"database", cfg.Database.Type,
		"metrics", cfg.Metrics.Enabled,
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/sagarc03/filedock"
	"github.com/sagarc03/filedock/config"
	"github.com/sagarc03/filedock/database"
	"github.com/sagarc03/filedock/filesystem"
	"github.com/sagarc03/filedock/gcsstore"
	"github.com/sagarc03/filedock/keybackend"
	"github.com/sagarc03/filedock/metrics"
	"github.com/sagarc03/filedock/s3store"
	"github.com/sagarc03/filedock/stowrystore"
)

// app holds the wired services for one command invocation.
type app struct {
	repos       database.Repos
	store       filedock.ObjectStore
	folders     *filedock.FolderService
	files       *filedock.FileService
	coordinator *filedock.Coordinator
	metrics     *metrics.Metrics

	// objects and verifier are set only for the filesystem backend, whose
	// presigned URLs point back at this server.
	objects  *filesystem.Store
	verifier *filedock.SignatureVerifier

	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	repos, closeDB, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a.repos = repos
	a.closers = append(a.closers, closeDB)
	slog.Debug("connected to database", "type", cfg.Database.Type)

	if err := a.openObjectStore(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}

	a.folders = filedock.NewFolderService(repos.Folders, repos.Files)
	a.files = filedock.NewFileService(repos.Files, repos.Folders)

	opts := []filedock.CoordinatorOption{filedock.WithLogger(slog.Default())}
	if cfg.Metrics.Enabled {
		a.metrics = metrics.New()
		opts = append(opts, filedock.WithEventRecorder(a.metrics))
	}

	a.coordinator, err = filedock.NewCoordinator(a.folders, a.files, a.store, cfg.Coordinator(), opts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create coordinator: %w", err)
	}

	return a, nil
}

func (a *app) openObjectStore(ctx context.Context, cfg *config.Config) error {
	backend := cfg.ObjectStore.Backend

	switch backend {
	case config.BackendS3:
		s, err := s3store.New(ctx, cfg.ObjectStore.S3)
		if err != nil {
			return fmt.Errorf("open s3 store: %w", err)
		}
		a.store = s

	case config.BackendGCS:
		s, err := gcsstore.New(ctx, cfg.ObjectStore.GCS)
		if err != nil {
			return fmt.Errorf("open gcs store: %w", err)
		}
		a.store = s
		a.closers = append(a.closers, func() { _ = s.Close() })

	case config.BackendStowry:
		a.store = stowrystore.New(cfg.ObjectStore.Stowry)

	case config.BackendFilesystem:
		if err := a.openFilesystem(cfg); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unknown object store backend %q", backend)
	}

	slog.Debug("opened object store", "backend", backend)
	return nil
}

func (a *app) openFilesystem(cfg *config.Config) error {
	path := cfg.ObjectStore.Filesystem.Path
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("create storage directory: %w", err)
	}

	root, err := os.OpenRoot(path)
	if err != nil {
		return fmt.Errorf("open storage root: %w", err)
	}
	a.closers = append(a.closers, func() { _ = root.Close() })

	secrets, err := keybackend.NewSecretStore(cfg.Auth.Keys)
	if err != nil {
		return fmt.Errorf("load access keys: %w", err)
	}
	pair, err := secrets.SigningPair(cfg.Auth.Keys.Signing)
	if err != nil {
		return fmt.Errorf("filesystem backend needs an access key: %w", err)
	}

	signer := filedock.NewSigner(cfg.Auth.Region, cfg.Auth.Service, pair.AccessKey, pair.SecretKey)
	a.objects = filesystem.NewStore(root, cfg.Server.PublicURL, signer)
	a.verifier = filedock.NewSignatureVerifier(cfg.Auth.Region, cfg.Auth.Service, secrets)
	a.store = a.objects

	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func appFromCommand(ctx context.Context) (*config.Config, *app, error) {
	cfg, err := config.FromContext(ctx)
	if err != nil {
		return nil, nil, err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	return cfg, a, nil
}

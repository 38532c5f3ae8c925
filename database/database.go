package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/filedock"
	"github.com/sagarc03/filedock/database/postgres"
	"github.com/sagarc03/filedock/database/sqlite"
)

// Config holds the configuration for connecting to a metadata backend.
type Config struct {
	// Type specifies the database type: "sqlite" or "postgres"
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=sqlite postgres"`
	// DSN is the data source name (connection string)
	DSN string `mapstructure:"dsn" yaml:"dsn" validate:"required"`
	// Tables names the folders and files tables.
	Tables filedock.Tables `mapstructure:"tables" yaml:"tables"`
	// SkipMigrate connects without creating tables. The schema is still validated.
	SkipMigrate bool `mapstructure:"skip_migrate" yaml:"skip_migrate"`
}

// Repos bundles the repositories served by one connection.
type Repos struct {
	Folders filedock.FolderRepo
	Files   filedock.FileRepo
	// Ping reports whether the backend is reachable.
	Ping func(ctx context.Context) error
}

// Connect establishes a connection to the configured database backend,
// runs migrations, validates the schema, and returns the repositories.
// The returned cleanup function should be called to close the connection.
func Connect(ctx context.Context, cfg Config) (Repos, func(), error) {
	if err := cfg.Tables.Validate(); err != nil {
		return Repos{}, nil, fmt.Errorf("connect: %w", err)
	}

	switch cfg.Type {
	case "sqlite":
		return connectSQLite(ctx, cfg)
	case "postgres":
		return connectPostgres(ctx, cfg)
	default:
		return Repos{}, nil, fmt.Errorf("unsupported database type: %q", cfg.Type)
	}
}

func connectSQLite(ctx context.Context, cfg Config) (Repos, func(), error) {
	db, err := sqlite.Open(ctx, cfg.DSN)
	if err != nil {
		return Repos{}, nil, err
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return Repos{}, nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if !cfg.SkipMigrate {
		if err = sqlite.Migrate(ctx, db, cfg.Tables); err != nil {
			_ = db.Close()
			return Repos{}, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
	}

	if err = sqlite.ValidateSchema(ctx, db, cfg.Tables); err != nil {
		_ = db.Close()
		return Repos{}, nil, fmt.Errorf("validate sqlite schema: %w", err)
	}

	folders, err := sqlite.NewFolderRepo(db, cfg.Tables)
	if err != nil {
		_ = db.Close()
		return Repos{}, nil, fmt.Errorf("create sqlite folder repo: %w", err)
	}

	files, err := sqlite.NewFileRepo(db, cfg.Tables)
	if err != nil {
		_ = db.Close()
		return Repos{}, nil, fmt.Errorf("create sqlite file repo: %w", err)
	}

	cleanup := func() {
		_ = db.Close()
	}

	return Repos{Folders: folders, Files: files, Ping: db.PingContext}, cleanup, nil
}

func connectPostgres(ctx context.Context, cfg Config) (Repos, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return Repos{}, nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return Repos{}, nil, fmt.Errorf("ping postgres: %w", err)
	}

	if !cfg.SkipMigrate {
		if err = postgres.Migrate(ctx, pool, cfg.Tables); err != nil {
			pool.Close()
			return Repos{}, nil, fmt.Errorf("migrate postgres: %w", err)
		}
	}

	if err = postgres.ValidateSchema(ctx, pool, cfg.Tables); err != nil {
		pool.Close()
		return Repos{}, nil, fmt.Errorf("validate postgres schema: %w", err)
	}

	folders, err := postgres.NewFolderRepo(pool, cfg.Tables)
	if err != nil {
		pool.Close()
		return Repos{}, nil, fmt.Errorf("create postgres folder repo: %w", err)
	}

	files, err := postgres.NewFileRepo(pool, cfg.Tables)
	if err != nil {
		pool.Close()
		return Repos{}, nil, fmt.Errorf("create postgres file repo: %w", err)
	}

	return Repos{Folders: folders, Files: files, Ping: pool.Ping}, pool.Close, nil
}

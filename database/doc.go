// Package database connects the folder and file repositories to a metadata backend.
//
// # Supported Backends
//
//   - PostgreSQL: pgx connection pool, for shared deployments
//   - SQLite: modernc.org/sqlite, for development and single-node deployments
//
// # Usage
//
//	repos, cleanup, err := database.Connect(ctx, database.Config{
//	    Type:   "sqlite",
//	    DSN:    "filedock.db",
//	    Tables: filedock.DefaultTables(),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cleanup()
//
// Connect opens the connection, runs migrations unless SkipMigrate is set,
// and validates the schema before returning the repositories.
package database

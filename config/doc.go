// Package config provides configuration loading and validation for filedock.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (FILEDOCK_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with FILEDOCK_ prefix:
//   - server.port → FILEDOCK_SERVER_PORT
//   - database.dsn → FILEDOCK_DATABASE_DSN
//   - objectstore.s3.bucket → FILEDOCK_OBJECTSTORE_S3_BUCKET
//
// # Configuration Structure
//
// The Config struct contains:
//   - Env: development, production or test; production hides error details
//   - Server: port, public_url and timeouts
//   - Database: type (sqlite/postgres), DSN and table names
//   - ObjectStore: backend (s3/gcs/stowry/filesystem) and one section per backend
//   - Uploads: size limit, URL lifetimes, checksum threshold, allowed MIME types
//   - Auth: SigV4 region, service and keys for the filesystem backend
//   - CORS: cross-origin resource sharing settings
//   - Log: logging level
//   - Metrics: Prometheus endpoint toggle
//
// Only the section of the selected object store backend is validated.
package config

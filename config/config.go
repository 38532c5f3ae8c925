package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/filedock"
	"github.com/sagarc03/filedock/database"
	"github.com/sagarc03/filedock/gcsstore"
	filedockhttp "github.com/sagarc03/filedock/http"
	"github.com/sagarc03/filedock/keybackend"
	"github.com/sagarc03/filedock/s3store"
	"github.com/sagarc03/filedock/stowrystore"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Object store backends.
const (
	BackendS3         = "s3"
	BackendGCS        = "gcs"
	BackendStowry     = "stowry"
	BackendFilesystem = "filesystem"
)

// Config is the root configuration struct for filedock.
type Config struct {
	Env         string                  `mapstructure:"env" yaml:"env" validate:"required,oneof=development production test"`
	Server      ServerConfig            `mapstructure:"server" yaml:"server"`
	Database    database.Config         `mapstructure:"database" yaml:"database"`
	ObjectStore ObjectStoreConfig       `mapstructure:"objectstore" yaml:"objectstore"`
	Uploads     UploadsConfig           `mapstructure:"uploads" yaml:"uploads"`
	Auth        AuthConfig              `mapstructure:"auth" yaml:"auth"`
	CORS        filedockhttp.CORSConfig `mapstructure:"cors" yaml:"cors"`
	Log         LogConfig               `mapstructure:"log" yaml:"log"`
	Metrics     MetricsConfig           `mapstructure:"metrics" yaml:"metrics"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int `mapstructure:"port" yaml:"port" validate:"required,min=1,max=65535"`
	// PublicURL is the externally reachable base URL, used to build
	// presigned URLs for the filesystem backend.
	PublicURL       string        `mapstructure:"public_url" yaml:"public_url" validate:"required,url"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"min=0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"min=0"`
}

// ObjectStoreConfig selects a backend. Only the selected backend's section is validated.
type ObjectStoreConfig struct {
	Backend    string             `mapstructure:"backend" yaml:"backend" validate:"required,oneof=s3 gcs stowry filesystem"`
	S3         s3store.Config     `mapstructure:"s3" yaml:"s3" validate:"-"`
	GCS        gcsstore.Config    `mapstructure:"gcs" yaml:"gcs" validate:"-"`
	Stowry     stowrystore.Config `mapstructure:"stowry" yaml:"stowry" validate:"-"`
	Filesystem FilesystemConfig   `mapstructure:"filesystem" yaml:"filesystem" validate:"-"`
}

// FilesystemConfig holds the local object store settings.
type FilesystemConfig struct {
	Path string `mapstructure:"path" yaml:"path" validate:"required"`
}

// UploadsConfig holds coordinator limits.
type UploadsConfig struct {
	MaxSize           int64         `mapstructure:"max_size" yaml:"max_size" validate:"min=1"`
	UploadURLTTL      time.Duration `mapstructure:"upload_url_ttl" yaml:"upload_url_ttl" validate:"min=1s"`
	DownloadURLTTL    time.Duration `mapstructure:"download_url_ttl" yaml:"download_url_ttl" validate:"min=1s"`
	ChecksumThreshold int64         `mapstructure:"checksum_threshold" yaml:"checksum_threshold" validate:"min=0"`
	AllowedTypes      []string      `mapstructure:"allowed_types" yaml:"allowed_types" validate:"dive,required"`
	CleanupTimeout    time.Duration `mapstructure:"cleanup_timeout" yaml:"cleanup_timeout" validate:"min=1s"`
	// PendingTTL is how long an upload may stay pending before reap settles it.
	PendingTTL time.Duration `mapstructure:"pending_ttl" yaml:"pending_ttl" validate:"min=1m"`
	ReapBatch  int           `mapstructure:"reap_batch" yaml:"reap_batch" validate:"min=1,max=1000"`
}

// AuthConfig holds the SigV4 settings used to sign and verify presigned
// URLs for the filesystem backend.
type AuthConfig struct {
	Region  string                `mapstructure:"region" yaml:"region" validate:"required"`
	Service string                `mapstructure:"service" yaml:"service" validate:"required"`
	Keys    keybackend.KeysConfig `mapstructure:"keys" yaml:"keys"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=debug info warn error"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Production reports whether error details must be hidden from clients.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// Coordinator returns the coordinator limits.
func (c *Config) Coordinator() filedock.CoordinatorConfig {
	return filedock.CoordinatorConfig{
		AllowedMimeTypes:  c.Uploads.AllowedTypes,
		MaxFileSize:       c.Uploads.MaxSize,
		UploadURLTTL:      c.Uploads.UploadURLTTL,
		DownloadURLTTL:    c.Uploads.DownloadURLTTL,
		ChecksumThreshold: c.Uploads.ChecksumThreshold,
		CleanupTimeout:    c.Uploads.CleanupTimeout,
	}
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"env":          "env",
	"db-type":      "database.type",
	"db-dsn":       "database.dsn",
	"backend":      "objectstore.backend",
	"storage-path": "objectstore.filesystem.path",
	"port":         "server.port",
	"public-url":   "server.public_url",
	"log-level":    "log.level",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance. Keys without
// a meaningful default are registered empty so that AutomaticEnv sees them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")

	v.SetDefault("server.port", 5708)
	v.SetDefault("server.public_url", "http://localhost:5708")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "filedock.db")
	v.SetDefault("database.tables.folders", filedock.DefaultTables().Folders)
	v.SetDefault("database.tables.files", filedock.DefaultTables().Files)
	v.SetDefault("database.skip_migrate", false)

	v.SetDefault("objectstore.backend", BackendFilesystem)
	v.SetDefault("objectstore.filesystem.path", "./data")
	v.SetDefault("objectstore.s3.bucket", "")
	v.SetDefault("objectstore.s3.region", "us-east-1")
	v.SetDefault("objectstore.s3.endpoint", "")
	v.SetDefault("objectstore.s3.access_key", "")
	v.SetDefault("objectstore.s3.secret_key", "")
	v.SetDefault("objectstore.s3.use_path_style", false)
	v.SetDefault("objectstore.gcs.bucket", "")
	v.SetDefault("objectstore.gcs.endpoint", "")
	v.SetDefault("objectstore.gcs.credentials_file", "")
	v.SetDefault("objectstore.gcs.service_account_email", "")
	v.SetDefault("objectstore.gcs.private_key", "")
	v.SetDefault("objectstore.stowry.endpoint", "")
	v.SetDefault("objectstore.stowry.access_key", "")
	v.SetDefault("objectstore.stowry.secret_key", "")

	v.SetDefault("uploads.max_size", filedock.MaxUploadSize)
	v.SetDefault("uploads.upload_url_ttl", filedock.UploadURLTTL)
	v.SetDefault("uploads.download_url_ttl", filedock.DownloadURLTTL)
	v.SetDefault("uploads.checksum_threshold", filedock.ChecksumThreshold)
	v.SetDefault("uploads.allowed_types", filedock.DefaultAllowedMimeTypes)
	v.SetDefault("uploads.cleanup_timeout", 30*time.Second)
	v.SetDefault("uploads.pending_ttl", 24*time.Hour)
	v.SetDefault("uploads.reap_batch", 100)

	v.SetDefault("auth.region", "us-east-1")
	v.SetDefault("auth.service", "s3")
	v.SetDefault("auth.keys.file", "")
	v.SetDefault("auth.keys.signing", "")

	v.SetDefault("cors.enabled", false)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "HEAD", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type", "Authorization", "X-Requested-With"})
	v.SetDefault("cors.exposed_headers", []string{"ETag"})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.enabled", true)
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("FILEDOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the struct tags, the selected backend section and the
// table names.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}

	var backend any
	switch c.ObjectStore.Backend {
	case BackendS3:
		backend = c.ObjectStore.S3
	case BackendGCS:
		backend = c.ObjectStore.GCS
	case BackendStowry:
		backend = c.ObjectStore.Stowry
	case BackendFilesystem:
		backend = c.ObjectStore.Filesystem
	}
	if err := validate.Struct(backend); err != nil {
		return fmt.Errorf("objectstore.%s: %w", c.ObjectStore.Backend, err)
	}

	if err := c.Database.Tables.Validate(); err != nil {
		return fmt.Errorf("database.tables: %w", err)
	}

	return nil
}

const redacted = "********"

func mask(s string) string {
	if s == "" {
		return ""
	}
	return redacted
}

// Redacted returns a copy with secrets masked, safe to print.
func (c *Config) Redacted() Config {
	out := *c
	out.Database.DSN = redactDSN(c.Database.DSN)
	out.ObjectStore.S3.SecretKey = mask(c.ObjectStore.S3.SecretKey)
	out.ObjectStore.GCS.PrivateKey = mask(c.ObjectStore.GCS.PrivateKey)
	out.ObjectStore.Stowry.SecretKey = mask(c.ObjectStore.Stowry.SecretKey)

	out.Auth.Keys.Inline = make([]keybackend.KeyPair, len(c.Auth.Keys.Inline))
	for i, p := range c.Auth.Keys.Inline {
		out.Auth.Keys.Inline[i] = keybackend.KeyPair{AccessKey: p.AccessKey, SecretKey: mask(p.SecretKey)}
	}
	return out
}

// redactDSN masks the password of a URL-style DSN.
func redactDSN(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	userinfo, host, ok := strings.Cut(rest, "@")
	if !ok {
		return dsn
	}
	user, _, hasPassword := strings.Cut(userinfo, ":")
	if !hasPassword {
		return dsn
	}
	return scheme + "://" + user + ":" + redacted + "@" + host
}

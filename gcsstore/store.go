// Package gcsstore implements filedock.ObjectStore on Google Cloud Storage.
// Presigned URLs are V4 signed with a service account key.
package gcsstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/sagarc03/filedock"
	"google.golang.org/api/option"
)

type Config struct {
	Bucket string `mapstructure:"bucket" yaml:"bucket" validate:"required"`
	// Endpoint overrides the JSON API endpoint, e.g. for an emulator. Requests
	// to an overridden endpoint are sent unauthenticated.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	// CredentialsFile is a service account JSON key; empty uses application default credentials.
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
	// ServiceAccountEmail and PrivateKey sign URLs. PrivateKey may contain
	// literal "\n" sequences as found in environment variables.
	ServiceAccountEmail string `mapstructure:"service_account_email" yaml:"service_account_email" validate:"required"`
	PrivateKey          string `mapstructure:"private_key" yaml:"private_key" validate:"required"`
}

type Store struct {
	client     *storage.Client
	bucket     string
	accessID   string
	privateKey []byte
	now        func() time.Time
}

var _ filedock.ObjectStore = (*Store)(nil)

func New(ctx context.Context, cfg Config) (*Store, error) {
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	} else if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcsstore: new client: %w", err)
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient wraps an existing client. cfg supplies the bucket and signing identity.
func NewWithClient(client *storage.Client, cfg Config) *Store {
	return &Store{
		client:     client,
		bucket:     cfg.Bucket,
		accessID:   cfg.ServiceAccountEmail,
		privateKey: []byte(strings.ReplaceAll(cfg.PrivateKey, `\n`, "\n")),
		now:        time.Now,
	}
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) object(key string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(key)
}

func mapError(op, key string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("gcsstore: %s %s: %w", op, key, filedock.ErrNotFound)
	}
	return fmt.Errorf("gcsstore: %s %s: %w", op, key, err)
}

func (s *Store) Put(ctx context.Context, key string, body io.Reader, _ int64, contentType string) error {
	w := s.object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return mapError("put", key, err)
	}
	if err := w.Close(); err != nil {
		return mapError("put", key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.object(key).NewReader(ctx)
	if err != nil {
		return nil, mapError("get", key, err)
	}
	return r, nil
}

func (s *Store) Head(ctx context.Context, key string) (filedock.ObjectInfo, error) {
	attrs, err := s.object(key).Attrs(ctx)
	if err != nil {
		return filedock.ObjectInfo{}, mapError("head", key, err)
	}

	return filedock.ObjectInfo{
		Key:          key,
		Size:         attrs.Size,
		ETag:         attrs.Etag,
		ContentType:  attrs.ContentType,
		LastModified: attrs.Updated.UTC(),
		Metadata:     attrs.Metadata,
	}, nil
}

// Delete removes key. An absent object yields an error wrapping ErrNotFound.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.object(key).Delete(ctx); err != nil {
		return mapError("delete", key, err)
	}
	return nil
}

func (s *Store) sign(key, method string, expires time.Duration, contentType string, headers []string, query map[string][]string) (string, error) {
	return storage.SignedURL(s.bucket, key, &storage.SignedURLOptions{
		Scheme:          storage.SigningSchemeV4,
		Method:          method,
		Expires:         s.now().Add(expires),
		GoogleAccessID:  s.accessID,
		PrivateKey:      s.privateKey,
		ContentType:     contentType,
		Headers:         headers,
		QueryParameters: query,
	})
}

// PresignPut signs the content type and every metadata entry as x-goog-meta-* headers.
func (s *Store) PresignPut(_ context.Context, key string, opts filedock.PresignPutOptions) (filedock.PresignedRequest, error) {
	headers := map[string]string{}
	var signed []string
	if opts.ContentType != "" {
		headers["Content-Type"] = opts.ContentType
	}
	for k, v := range opts.Metadata {
		name := "x-goog-meta-" + strings.ToLower(k)
		headers[http.CanonicalHeaderKey(name)] = v
		signed = append(signed, name+":"+v)
	}

	u, err := s.sign(key, http.MethodPut, opts.Expires, opts.ContentType, signed, nil)
	if err != nil {
		return filedock.PresignedRequest{}, fmt.Errorf("gcsstore: presign put %s: %w", key, err)
	}

	return filedock.PresignedRequest{
		URL:       u,
		Method:    http.MethodPut,
		Headers:   headers,
		ExpiresAt: s.now().Add(opts.Expires),
	}, nil
}

func (s *Store) PresignGet(_ context.Context, key string, opts filedock.PresignGetOptions) (filedock.PresignedRequest, error) {
	var query map[string][]string
	if opts.ContentDisposition != "" {
		query = map[string][]string{"response-content-disposition": {opts.ContentDisposition}}
	}

	u, err := s.sign(key, http.MethodGet, opts.Expires, "", nil, query)
	if err != nil {
		return filedock.PresignedRequest{}, fmt.Errorf("gcsstore: presign get %s: %w", key, err)
	}

	return filedock.PresignedRequest{
		URL:       u,
		Method:    http.MethodGet,
		Headers:   map[string]string{},
		ExpiresAt: s.now().Add(opts.Expires),
	}, nil
}

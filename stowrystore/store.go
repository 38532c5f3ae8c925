// Package stowrystore implements filedock.ObjectStore against a Stowry server
// using its native presigned URL scheme.
package stowrystore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sagarc03/filedock"
	stowry "github.com/sagarc03/stowry-go"
)

const (
	paramCredential = "X-Stowry-Credential"
	paramDate       = "X-Stowry-Date"
	paramExpires    = "X-Stowry-Expires"
	paramSignature  = "X-Stowry-Signature"

	// operationTTL bounds URLs the store signs for its own requests.
	operationTTL = 5 * time.Minute
)

type Config struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint" validate:"required,url"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key" validate:"required"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key" validate:"required"`
}

type Store struct {
	endpoint   string
	accessKey  string
	secretKey  string
	httpClient *http.Client
	now        func() time.Time
}

var _ filedock.ObjectStore = (*Store)(nil)

type Option func(*Store)

// WithHTTPClient sets the client used for server-side requests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Store) {
		s.httpClient = c
	}
}

func New(cfg Config, opts ...Option) *Store {
	s := &Store{
		endpoint:   strings.TrimSuffix(cfg.Endpoint, "/"),
		accessKey:  cfg.AccessKey,
		secretKey:  cfg.SecretKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// presign returns a signed URL for method on key. Stowry paths carry a leading slash.
func (s *Store) presign(method, key string, ttl time.Duration) (string, time.Time, error) {
	seconds := int64(ttl / time.Second)
	if seconds <= 0 {
		return "", time.Time{}, fmt.Errorf("stowrystore: presign %s: expires must be positive", key)
	}

	path := "/" + strings.TrimPrefix(key, "/")
	now := s.now()
	timestamp := now.Unix()

	q := url.Values{}
	q.Set(paramCredential, s.accessKey)
	q.Set(paramDate, strconv.FormatInt(timestamp, 10))
	q.Set(paramExpires, strconv.FormatInt(seconds, 10))
	q.Set(paramSignature, stowry.Sign(s.secretKey, method, path, timestamp, seconds))

	u := s.endpoint + (&url.URL{Path: path}).EscapedPath() + "?" + q.Encode()
	return u, now.Add(time.Duration(seconds) * time.Second), nil
}

func (s *Store) do(ctx context.Context, method, key string, body io.Reader, size int64, header http.Header) (*http.Response, error) {
	signMethod := method
	if method == http.MethodHead {
		// Stowry serves metadata through GET.
		signMethod = http.MethodGet
	}

	u, _, err := s.presign(signMethod, key, operationTTL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, signMethod, u, body)
	if err != nil {
		return nil, fmt.Errorf("stowrystore: %s %s: build request: %w", method, key, err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if body != nil && size >= 0 {
		req.ContentLength = size
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stowrystore: %s %s: %w", method, key, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("stowrystore: %s %s: %w", method, key, filedock.ErrNotFound)
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("stowrystore: %s %s: unexpected status %s: %s", method, key, resp.Status, strings.TrimSpace(string(msg)))
	}

	return resp, nil
}

func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	header := http.Header{}
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}

	resp, err := s.do(ctx, http.MethodPut, key, body, size, header)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.do(ctx, http.MethodGet, key, nil, -1, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Head reads the response headers of a GET and discards the body.
func (s *Store) Head(ctx context.Context, key string) (filedock.ObjectInfo, error) {
	resp, err := s.do(ctx, http.MethodHead, key, nil, -1, nil)
	if err != nil {
		return filedock.ObjectInfo{}, err
	}
	_ = resp.Body.Close()

	info := filedock.ObjectInfo{
		Key:         key,
		Size:        resp.ContentLength,
		ETag:        resp.Header.Get("ETag"),
		ContentType: resp.Header.Get("Content-Type"),
	}
	if lm, err := http.ParseTime(resp.Header.Get("Last-Modified")); err == nil {
		info.LastModified = lm.UTC()
	}
	return info, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	resp, err := s.do(ctx, http.MethodDelete, key, nil, -1, nil)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// PresignPut ignores metadata; Stowry stores only the content type.
func (s *Store) PresignPut(_ context.Context, key string, opts filedock.PresignPutOptions) (filedock.PresignedRequest, error) {
	u, expiresAt, err := s.presign(http.MethodPut, key, opts.Expires)
	if err != nil {
		return filedock.PresignedRequest{}, err
	}

	headers := map[string]string{}
	if opts.ContentType != "" {
		headers["Content-Type"] = opts.ContentType
	}

	return filedock.PresignedRequest{URL: u, Method: http.MethodPut, Headers: headers, ExpiresAt: expiresAt}, nil
}

// PresignGet ignores ContentDisposition; Stowry has no response override.
func (s *Store) PresignGet(_ context.Context, key string, opts filedock.PresignGetOptions) (filedock.PresignedRequest, error) {
	u, expiresAt, err := s.presign(http.MethodGet, key, opts.Expires)
	if err != nil {
		return filedock.PresignedRequest{}, err
	}

	return filedock.PresignedRequest{URL: u, Method: http.MethodGet, Headers: map[string]string{}, ExpiresAt: expiresAt}, nil
}

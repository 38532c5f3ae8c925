// Package filesystem provides a local directory object store for filedock.
// Objects are written atomically through temp files and served back through
// SigV4 presigned URLs that point at the API server's /objects/ routes.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sagarc03/filedock"
)

// ObjectsPrefix is the URL path under which presigned object requests are served.
const ObjectsPrefix = "/objects/"

// DispositionParam carries the signed Content-Disposition for presigned GETs.
const DispositionParam = "response-content-disposition"

const tmpDir = ".tmp"

// Store keeps objects as plain files under an os.Root.
type Store struct {
	root      *os.Root
	publicURL string
	signer    *filedock.Signer
}

var _ filedock.ObjectStore = (*Store)(nil)

// NewStore creates a Store rooted at root. publicURL is the externally
// reachable base URL of the API server; signer issues the presigned URLs.
func NewStore(root *os.Root, publicURL string, signer *filedock.Signer) *Store {
	return &Store{
		root:      root,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		signer:    signer,
	}
}

func checkKey(key string) error {
	if !filedock.IsValidKey(key) || strings.HasPrefix(key, tmpDir+"/") {
		return filedock.ValidationErrorf("invalid object key: %q", key)
	}
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Put atomically writes body to key using a temp file and rename.
// size is advisory; a non-negative size that does not match the bytes read fails the write.
func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkKey(key); err != nil {
		return err
	}

	if err := s.root.MkdirAll(tmpDir, 0o755); err != nil {
		return fmt.Errorf("put %s: create temp dir: %w", key, err)
	}

	tmpFile := filepath.Join(tmpDir, uuid.New().String())
	t, err := s.root.Create(tmpFile)
	if err != nil {
		return fmt.Errorf("put %s: open temp file: %w", key, err)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(tmpFile); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	written, err := io.Copy(t, &ctxReader{ctx: ctx, r: body})
	if err != nil {
		return fmt.Errorf("put %s: copy contents: %w", key, err)
	}
	if size >= 0 && written != size {
		return filedock.ValidationErrorf("put %s: expected %d bytes, got %d", key, size, written)
	}

	if err := t.Sync(); err != nil {
		return fmt.Errorf("put %s: sync: %w", key, err)
	}
	if err := t.Close(); err != nil {
		return fmt.Errorf("put %s: close: %w", key, err)
	}

	if dir := filepath.Dir(key); dir != "." {
		if err := s.root.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("put %s: create directories: %w", key, err)
		}
	}

	if err := s.root.Rename(tmpFile, key); err != nil {
		return fmt.Errorf("put %s: rename: %w", key, err)
	}

	success = true
	return nil
}

// Get opens the object for reading.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkKey(key); err != nil {
		return nil, err
	}

	f, err := s.root.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("get %s: %w", key, filedock.ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	return f, nil
}

// Open returns the object as a seekable reader for ranged HTTP responses.
func (s *Store) Open(ctx context.Context, key string) (io.ReadSeekCloser, filedock.ObjectInfo, error) {
	rc, err := s.Get(ctx, key)
	if err != nil {
		return nil, filedock.ObjectInfo{}, err
	}
	f := rc.(*os.File)

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, filedock.ObjectInfo{}, fmt.Errorf("open %s: stat: %w", key, err)
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, filedock.ObjectInfo{}, fmt.Errorf("open %s: %w", key, filedock.ErrNotFound)
	}

	return f, objectInfo(key, st), nil
}

// Head stats the object. The ETag is derived from modification time and size.
func (s *Store) Head(ctx context.Context, key string) (filedock.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return filedock.ObjectInfo{}, err
	}
	if err := checkKey(key); err != nil {
		return filedock.ObjectInfo{}, err
	}

	st, err := s.root.Stat(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return filedock.ObjectInfo{}, fmt.Errorf("head %s: %w", key, filedock.ErrNotFound)
		}
		return filedock.ObjectInfo{}, fmt.Errorf("head %s: %w", key, err)
	}
	if st.IsDir() {
		return filedock.ObjectInfo{}, fmt.Errorf("head %s: %w", key, filedock.ErrNotFound)
	}

	return objectInfo(key, st), nil
}

func objectInfo(key string, st os.FileInfo) filedock.ObjectInfo {
	return filedock.ObjectInfo{
		Key:          key,
		Size:         st.Size(),
		ETag:         fmt.Sprintf(`"%x-%x"`, st.ModTime().UnixNano(), st.Size()),
		ContentType:  detectContentType(key),
		LastModified: st.ModTime().UTC(),
	}
}

// Delete removes the object.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkKey(key); err != nil {
		return err
	}

	if err := s.root.Remove(key); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("delete %s: %w", key, filedock.ErrNotFound)
		}
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) objectURL(key string) string {
	return s.publicURL + ObjectsPrefix + (&url.URL{Path: key}).EscapedPath()
}

// PresignPut returns a signed PUT URL for key on the API server.
func (s *Store) PresignPut(ctx context.Context, key string, opts filedock.PresignPutOptions) (filedock.PresignedRequest, error) {
	if err := ctx.Err(); err != nil {
		return filedock.PresignedRequest{}, err
	}
	if err := checkKey(key); err != nil {
		return filedock.PresignedRequest{}, err
	}

	signed, expiresAt, err := s.signer.Presign(http.MethodPut, s.objectURL(key), opts.Expires)
	if err != nil {
		return filedock.PresignedRequest{}, fmt.Errorf("presign put %s: %w", key, err)
	}

	headers := map[string]string{}
	if opts.ContentType != "" {
		headers["Content-Type"] = opts.ContentType
	}

	return filedock.PresignedRequest{
		URL:       signed,
		Method:    http.MethodPut,
		Headers:   headers,
		ExpiresAt: expiresAt,
	}, nil
}

// PresignGet returns a signed GET URL. The requested Content-Disposition
// travels as a signed query parameter and is applied when the object is served.
func (s *Store) PresignGet(ctx context.Context, key string, opts filedock.PresignGetOptions) (filedock.PresignedRequest, error) {
	if err := ctx.Err(); err != nil {
		return filedock.PresignedRequest{}, err
	}
	if err := checkKey(key); err != nil {
		return filedock.PresignedRequest{}, err
	}

	raw := s.objectURL(key)
	if opts.ContentDisposition != "" {
		raw += "?" + url.Values{DispositionParam: {opts.ContentDisposition}}.Encode()
	}

	signed, expiresAt, err := s.signer.Presign(http.MethodGet, raw, opts.Expires)
	if err != nil {
		return filedock.PresignedRequest{}, fmt.Errorf("presign get %s: %w", key, err)
	}

	return filedock.PresignedRequest{
		URL:       signed,
		Method:    http.MethodGet,
		Headers:   map[string]string{},
		ExpiresAt: expiresAt,
	}, nil
}

func detectContentType(path string) string {
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		return "application/octet-stream"
	}
	return contentType
}

package filesystem_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sagarc03/filedock"
	"github.com/sagarc03/filedock/filesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAccessKey = "AKIAFILEDOCKTEST"
	testSecretKey = "filedock-test-secret"
)

type staticSecrets map[string]string

func (s staticSecrets) Lookup(accessKey string) (string, error) {
	secret, ok := s[accessKey]
	if !ok {
		return "", filedock.ErrUnauthorized
	}
	return secret, nil
}

func newStore(t *testing.T) (*filesystem.Store, string) {
	t.Helper()
	dir := t.TempDir()
	root, err := os.OpenRoot(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = root.Close() })

	signer := filedock.NewSigner("us-east-1", "s3", testAccessKey, testSecretKey)
	return filesystem.NewStore(root, "http://files.example.com/", signer), dir
}

func TestStore_PutGetHeadDelete(t *testing.T) {
	ctx := context.Background()
	store, dir := newStore(t)
	key := "folders/abc/1700000000000-x.pdf"
	content := []byte("hello filedock")

	require.NoError(t, store.Put(ctx, key, bytes.NewReader(content), int64(len(content)), "text/plain"))

	onDisk, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(key)))
	require.NoError(t, err)
	assert.Equal(t, content, onDisk)

	rc, err := store.Get(ctx, key)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, content, got)

	info, err := store.Head(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, key, info.Key)
	assert.Equal(t, int64(len(content)), info.Size)
	assert.Equal(t, "application/pdf", info.ContentType)
	assert.NotEmpty(t, info.ETag)
	assert.False(t, info.LastModified.IsZero())

	require.NoError(t, store.Delete(ctx, key))

	_, err = store.Head(ctx, key)
	assert.ErrorIs(t, err, filedock.ErrNotFound)
	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, filedock.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, key), filedock.ErrNotFound)
}

func TestStore_Put(t *testing.T) {
	ctx := context.Background()

	t.Run("overwrite replaces content", func(t *testing.T) {
		store, _ := newStore(t)
		require.NoError(t, store.Put(ctx, "root/a.txt", strings.NewReader("one"), -1, ""))
		require.NoError(t, store.Put(ctx, "root/a.txt", strings.NewReader("second"), -1, ""))

		info, err := store.Head(ctx, "root/a.txt")
		require.NoError(t, err)
		assert.Equal(t, int64(6), info.Size)
	})

	t.Run("size mismatch leaves nothing behind", func(t *testing.T) {
		store, dir := newStore(t)
		err := store.Put(ctx, "root/short.txt", strings.NewReader("abc"), 10, "")
		assert.ErrorIs(t, err, filedock.ErrValidation)

		_, err = store.Head(ctx, "root/short.txt")
		assert.ErrorIs(t, err, filedock.ErrNotFound)

		entries, err := os.ReadDir(filepath.Join(dir, ".tmp"))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("context canceled", func(t *testing.T) {
		store, _ := newStore(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := store.Put(cctx, "root/a.txt", strings.NewReader("x"), 1, "")
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("invalid keys", func(t *testing.T) {
		store, _ := newStore(t)
		for _, key := range []string{"", "/abs.txt", "../escape.txt", "a/../../b", ".tmp/x"} {
			err := store.Put(ctx, key, strings.NewReader("x"), 1, "")
			assert.ErrorIs(t, err, filedock.ErrValidation, key)
		}
	})
}

func TestStore_Head_Directory(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)
	require.NoError(t, store.Put(ctx, "folders/a/b.txt", strings.NewReader("x"), 1, ""))

	_, err := store.Head(ctx, "folders/a")
	assert.ErrorIs(t, err, filedock.ErrNotFound)
}

func TestStore_PresignPut(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)
	verifier := filedock.NewSignatureVerifier("us-east-1", "s3", staticSecrets{testAccessKey: testSecretKey})

	req, err := store.PresignPut(ctx, "root/1-a.pdf", filedock.PresignPutOptions{
		ContentType: "application/pdf",
		Expires:     15 * time.Minute,
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "application/pdf", req.Headers["Content-Type"])
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), req.ExpiresAt, 5*time.Second)

	u, err := url.Parse(req.URL)
	require.NoError(t, err)
	assert.Equal(t, "files.example.com", u.Host)
	assert.Equal(t, "/objects/root/1-a.pdf", u.Path)

	headers := http.Header{}
	headers.Set("host", u.Host)
	assert.NoError(t, verifier.Verify(http.MethodPut, u.Path, u.Query(), headers))
	assert.ErrorIs(t, verifier.Verify(http.MethodGet, u.Path, u.Query(), headers), filedock.ErrUnauthorized)
}

func TestStore_PresignGet(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)
	verifier := filedock.NewSignatureVerifier("us-east-1", "s3", staticSecrets{testAccessKey: testSecretKey})

	disposition := `attachment; filename="report.pdf"`
	req, err := store.PresignGet(ctx, "root/1-a.pdf", filedock.PresignGetOptions{
		ContentDisposition: disposition,
		Expires:            time.Hour,
	})
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, req.Method)

	u, err := url.Parse(req.URL)
	require.NoError(t, err)
	assert.Equal(t, disposition, u.Query().Get(filesystem.DispositionParam))

	headers := http.Header{}
	headers.Set("host", u.Host)
	require.NoError(t, verifier.Verify(http.MethodGet, u.Path, u.Query(), headers))

	tampered := u.Query()
	tampered.Set(filesystem.DispositionParam, "inline")
	assert.ErrorIs(t, verifier.Verify(http.MethodGet, u.Path, tampered, headers), filedock.ErrUnauthorized)
}

func TestStore_PresignInvalidExpiry(t *testing.T) {
	store, _ := newStore(t)
	_, err := store.PresignGet(context.Background(), "root/a.txt", filedock.PresignGetOptions{})
	assert.Error(t, err)
}

func TestStore_Open(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)
	require.NoError(t, store.Put(ctx, "root/data.json", strings.NewReader(`{"a":1}`), -1, ""))

	f, info, err := store.Open(ctx, "root/data.json")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, int64(7), info.Size)
	assert.Equal(t, "application/json", info.ContentType)

	_, _, err = store.Open(ctx, "root/missing.json")
	assert.ErrorIs(t, err, filedock.ErrNotFound)
}

package s3store_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sagarc03/filedock"
	"github.com/sagarc03/filedock/s3store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
)

var (
	testEndpoint string
	endpointOnce sync.Once
	testCleanup  func()
)

func TestMain(m *testing.M) {
	code := m.Run()
	if testCleanup != nil {
		testCleanup()
	}
	os.Exit(code)
}

func getEndpoint(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping localstack container test in short mode")
	}

	endpointOnce.Do(func() {
		ctx := context.Background()

		container, err := localstack.Run(ctx, "localstack/localstack:4.0")
		if err != nil {
			t.Fatalf("failed to start localstack container: %v", err)
		}

		testCleanup = func() {
			if err := testcontainers.TerminateContainer(container); err != nil {
				fmt.Fprintf(os.Stderr, "failed to terminate container: %s\n", err)
			}
		}

		endpoint, err := container.PortEndpoint(ctx, "4566/tcp", "http")
		if err != nil {
			t.Fatalf("failed to get endpoint: %v", err)
		}
		testEndpoint = endpoint
	})

	if testEndpoint == "" {
		t.Fatal("localstack endpoint is not available")
	}

	return testEndpoint
}

func newStore(t *testing.T) *s3store.Store {
	t.Helper()
	ctx := context.Background()

	store, err := s3store.New(ctx, s3store.Config{
		Bucket:       fmt.Sprintf("filedock-%d", time.Now().UnixNano()),
		Region:       "us-east-1",
		Endpoint:     getEndpoint(t),
		AccessKey:    "test",
		SecretKey:    "test",
		UsePathStyle: true,
	})
	require.NoError(t, err)
	require.NoError(t, store.EnsureBucket(ctx))
	require.NoError(t, store.EnsureBucket(ctx), "second call is a no-op")

	return store
}

func TestStore_Objects(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	key := "root/1700000000000-a.txt"

	require.NoError(t, store.Put(ctx, key, strings.NewReader("hello s3"), 8, "text/plain"))

	info, err := store.Head(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(8), info.Size)
	assert.Equal(t, "text/plain", info.ContentType)
	assert.NotEmpty(t, info.ETag)

	rc, err := store.Get(ctx, key)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello s3", string(body))

	require.NoError(t, store.Delete(ctx, key))

	_, err = store.Head(ctx, key)
	assert.ErrorIs(t, err, filedock.ErrNotFound)
	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, filedock.ErrNotFound)
	assert.NoError(t, store.Delete(ctx, key), "absent keys delete cleanly")
}

func TestStore_PresignedRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	key := "folders/x/1700000000000-b.csv"

	put, err := store.PresignPut(ctx, key, filedock.PresignPutOptions{
		ContentType: "text/csv",
		Metadata:    map[string]string{"original-filename": "b.csv"},
		Expires:     15 * time.Minute,
	})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, put.Method)
	assert.Equal(t, "text/csv", put.Headers["Content-Type"])
	assert.Equal(t, "b.csv", put.Headers["X-Amz-Meta-Original-Filename"])

	req, err := http.NewRequestWithContext(ctx, put.Method, put.URL, strings.NewReader("a,b\n1,2\n"))
	require.NoError(t, err)
	for k, v := range put.Headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	info, err := store.Head(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "b.csv", info.Metadata["original-filename"])

	get, err := store.PresignGet(ctx, key, filedock.PresignGetOptions{
		ContentDisposition: filedock.ContentDisposition(filedock.DownloadAttachment, "b.csv"),
		Expires:            time.Hour,
	})
	require.NoError(t, err)

	resp, err = http.Get(get.URL) //nolint:noctx // test request
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "a,b\n1,2\n", string(body))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
}

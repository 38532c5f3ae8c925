package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sagarc03/filedock"
	"github.com/sagarc03/filedock/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord(t *testing.T) {
	m := metrics.New()

	m.Record(filedock.EventUploadRequested, 0)
	m.Record(filedock.EventUploadRequested, 0)
	m.Record(filedock.EventUploadConfirmed, 2048)
	m.Record(filedock.EventUploadConfirmed, 0)
	m.Record(filedock.EventFileDeleted, 99)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Events.WithLabelValues("upload_requested")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Events.WithLabelValues("upload_confirmed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("file_deleted")))
	assert.Equal(t, 2048.0, testutil.ToFloat64(m.ConfirmedBytes), "only confirmations add bytes")
}

func TestMiddleware(t *testing.T) {
	m := metrics.New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/s3/info/{fileId}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/api/s3/info/a", "/api/s3/info/b", "/healthz", "/nope"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/s3/info/{fileId}", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/healthz", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 3, testutil.CollectAndCount(m.RequestDuration))
}

func TestHandler(t *testing.T) {
	m := metrics.New()
	m.Record(filedock.EventPendingReaped, 0)

	srv := httptest.NewServer(m.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL) //nolint:noctx // test request
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `filedock_coordinator_events_total{event="pending_reaped"} 1`))
	assert.Contains(t, string(body), "go_goroutines")
}

package clientcli_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/filedock"
	"github.com/sagarc03/filedock/clientcli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer implements just enough of the filedock API for the client:
// presigned URLs point back at /store/ on the same server.
type fakeServer struct {
	t   *testing.T
	srv *httptest.Server

	mu      sync.Mutex
	objects map[string][]byte
	files   map[uuid.UUID]filedock.File
	folders []filedock.Folder
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{
		t:       t,
		objects: map[string][]byte{},
		files:   map[uuid.UUID]filedock.File{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/s3/upload-url", fs.uploadURL)
	mux.HandleFunc("POST /api/s3/confirm-upload", fs.confirm)
	mux.HandleFunc("GET /api/s3/download-url/{id}", fs.downloadURL)
	mux.HandleFunc("GET /api/s3/info/{id}", fs.info)
	mux.HandleFunc("DELETE /api/s3/delete/{id}", fs.deleteFile)
	mux.HandleFunc("GET /api/storage/folders", fs.listRoots)
	mux.HandleFunc("POST /api/storage/folders", fs.createFolder)
	mux.HandleFunc("GET /api/storage/folders/{id}", fs.getFolder)
	mux.HandleFunc("PUT /store/{key...}", fs.putObject)
	mux.HandleFunc("GET /store/{key...}", fs.getObject)

	fs.srv = httptest.NewServer(mux)
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeServer) client(t *testing.T) *clientcli.Client {
	t.Helper()
	c, err := clientcli.New(&clientcli.Config{Endpoint: fs.srv.URL + "/"})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, kind, msg string) {
	writeJSON(w, code, map[string]string{"error": kind, "message": msg})
}

func (fs *fakeServer) uploadURL(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FileName    string     `json:"fileName"`
		FileType    string     `json:"fileType"`
		FileSize    *int64     `json:"fileSize"`
		FolderID    *uuid.UUID `json:"folderId"`
		Description *string    `json:"description"`
		Tags        []string   `json:"tags"`
	}
	require.NoError(fs.t, json.NewDecoder(r.Body).Decode(&body))

	if body.FileType == "application/x-msdownload" {
		writeError(w, http.StatusBadRequest, "validation_error", "File type application/x-msdownload is not allowed")
		return
	}

	id := uuid.New()
	key := "root/" + body.FileName
	if body.FolderID != nil {
		key = "folders/" + body.FolderID.String() + "/" + body.FileName
	}

	fs.mu.Lock()
	fs.files[id] = filedock.File{
		ID: id, Name: body.FileName, StoragePath: key, MimeType: body.FileType,
		FolderID: body.FolderID, Description: body.Description, Tags: body.Tags,
		Status: filedock.StatusPending, CreatedAt: time.Now().UTC(),
	}
	fs.mu.Unlock()

	writeJSON(w, http.StatusOK, filedock.UploadTicket{
		UploadURL: fs.srv.URL + "/store/" + key,
		FileID:    id,
		Key:       key,
		Instructions: filedock.UploadInstructions{
			Method:  http.MethodPut,
			Headers: map[string]string{"Content-Type": body.FileType},
		},
	})
}

func (fs *fakeServer) putObject(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	require.NoError(fs.t, err)

	fs.mu.Lock()
	fs.objects[r.PathValue("key")] = data
	fs.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (fs *fakeServer) getObject(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	data, ok := fs.objects[r.PathValue("key")]
	fs.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write(data)
}

func (fs *fakeServer) file(w http.ResponseWriter, r *http.Request) (filedock.File, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid file ID")
		return filedock.File{}, false
	}
	fs.mu.Lock()
	f, ok := fs.files[id]
	fs.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "File not found")
		return filedock.File{}, false
	}
	return f, true
}

func (fs *fakeServer) confirm(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FileID uuid.UUID `json:"fileId"`
	}
	require.NoError(fs.t, json.NewDecoder(r.Body).Decode(&body))

	fs.mu.Lock()
	defer fs.mu.Unlock()
	f, ok := fs.files[body.FileID]
	data, stored := fs.objects[f.StoragePath]
	if !ok || !stored {
		writeError(w, http.StatusNotFound, "not_found", "File not found in storage")
		return
	}
	f.Size = int64(len(data))
	f.Status = filedock.StatusConfirmed
	fs.files[f.ID] = f
	writeJSON(w, http.StatusOK, f)
}

func (fs *fakeServer) downloadURL(w http.ResponseWriter, r *http.Request) {
	f, ok := fs.file(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, filedock.DownloadTicket{
		DownloadURL: fs.srv.URL + "/store/" + f.StoragePath,
		File:        filedock.FileSnapshot{ID: f.ID, Name: f.Name, Size: f.Size, MimeType: f.MimeType},
	})
}

func (fs *fakeServer) info(w http.ResponseWriter, r *http.Request) {
	f, ok := fs.file(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, filedock.FileInfo{File: f, S3Verification: filedock.ObjectVerification{Exists: true}})
}

func (fs *fakeServer) deleteFile(w http.ResponseWriter, r *http.Request) {
	f, ok := fs.file(w, r)
	if !ok {
		return
	}
	fs.mu.Lock()
	delete(fs.files, f.ID)
	delete(fs.objects, f.StoragePath)
	fs.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"message": "File deleted successfully", "file": f})
}

func (fs *fakeServer) listRoots(w http.ResponseWriter, _ *http.Request) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	roots := []filedock.Folder{}
	for _, f := range fs.folders {
		if f.ParentID == nil {
			roots = append(roots, f)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"folders": roots})
}

func (fs *fakeServer) createFolder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string     `json:"name"`
		ParentID *uuid.UUID `json:"parentId"`
	}
	require.NoError(fs.t, json.NewDecoder(r.Body).Decode(&body))

	folder := filedock.Folder{ID: uuid.New(), Name: body.Name, ParentID: body.ParentID}
	fs.mu.Lock()
	fs.folders = append(fs.folders, folder)
	fs.mu.Unlock()
	writeJSON(w, http.StatusCreated, folder)
}

func (fs *fakeServer) getFolder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	require.NoError(fs.t, err)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, f := range fs.folders {
		if f.ID != id {
			continue
		}
		for _, c := range fs.folders {
			if c.ParentID != nil && *c.ParentID == id {
				f.Children = append(f.Children, c)
			}
		}
		writeJSON(w, http.StatusOK, f)
		return
	}
	writeError(w, http.StatusNotFound, "not_found", "Folder not found")
}

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNew(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := clientcli.New(nil)
		assert.ErrorIs(t, err, clientcli.ErrConfigRequired)
	})

	t.Run("empty endpoint uses default", func(t *testing.T) {
		client, err := clientcli.New(&clientcli.Config{})
		require.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("invalid endpoint", func(t *testing.T) {
		_, err := clientcli.New(&clientcli.Config{Endpoint: "not a url"})
		assert.Error(t, err)
	})
}

func TestClient_UploadDownload(t *testing.T) {
	fs := newFakeServer(t)
	client := fs.client(t)
	ctx := context.Background()

	localPath := writeTempFile(t, t.TempDir(), "report.pdf", "pdf bytes")

	results, err := client.Upload(ctx, clientcli.UploadOptions{
		LocalPath: localPath,
		Tags:      []string{"finance"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)

	file := results[0].File
	assert.Equal(t, "report.pdf", file.Name)
	assert.Equal(t, "application/pdf", file.MimeType)
	assert.Equal(t, int64(9), file.Size)
	assert.Equal(t, filedock.StatusConfirmed, file.Status)
	assert.Equal(t, []string{"finance"}, file.Tags)

	t.Run("download to file", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "sub", "copy.pdf")
		result, body, err := client.Download(ctx, clientcli.DownloadOptions{FileID: file.ID.String(), LocalPath: out})
		require.NoError(t, err)
		assert.Nil(t, body)
		assert.Equal(t, int64(9), result.Size)
		assert.Equal(t, "report.pdf", result.Name)

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, "pdf bytes", string(data))
	})

	t.Run("download to stdout", func(t *testing.T) {
		result, body, err := client.Download(ctx, clientcli.DownloadOptions{FileID: file.ID.String(), LocalPath: "-"})
		require.NoError(t, err)
		require.NotNil(t, body)
		defer func() { _ = body.Close() }()

		data, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Equal(t, "pdf bytes", string(data))
		assert.Equal(t, "-", result.LocalPath)
	})

	t.Run("download unknown file", func(t *testing.T) {
		_, _, err := client.Download(ctx, clientcli.DownloadOptions{FileID: uuid.NewString()})
		assert.ErrorIs(t, err, clientcli.ErrNotFound)

		var apiErr *clientcli.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "not_found", apiErr.Code)
		assert.Equal(t, "File not found", apiErr.Message)
	})

	t.Run("info", func(t *testing.T) {
		info, err := client.Info(ctx, file.ID.String(), false)
		require.NoError(t, err)
		assert.Equal(t, file.ID, info.File.ID)
		assert.True(t, info.S3Verification.Exists)
	})

	t.Run("delete", func(t *testing.T) {
		missing := uuid.NewString()
		results, err := client.Delete(ctx, clientcli.DeleteOptions{IDs: []string{file.ID.String(), missing}})
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.True(t, results[0].Deleted)
		assert.Equal(t, "report.pdf", results[0].Name)
		assert.False(t, results[1].Deleted)
		assert.ErrorIs(t, results[1].Err, clientcli.ErrNotFound)
		assert.True(t, clientcli.HasDeleteErrors(results))
	})
}

func TestClient_Upload_Errors(t *testing.T) {
	fs := newFakeServer(t)
	client := fs.client(t)
	ctx := context.Background()
	dir := t.TempDir()

	t.Run("empty path", func(t *testing.T) {
		_, err := client.Upload(ctx, clientcli.UploadOptions{})
		assert.ErrorIs(t, err, clientcli.ErrEmptyPath)
	})

	t.Run("rejected type", func(t *testing.T) {
		path := writeTempFile(t, dir, "setup.exe", "MZ")
		_, err := client.Upload(ctx, clientcli.UploadOptions{LocalPath: path, ContentType: "application/x-msdownload"})
		assert.ErrorIs(t, err, clientcli.ErrBadRequest)
	})

	t.Run("directory without recursive", func(t *testing.T) {
		_, err := client.Upload(ctx, clientcli.UploadOptions{LocalPath: dir})
		assert.Error(t, err)
	})
}

func TestClient_Upload_Recursive(t *testing.T) {
	fs := newFakeServer(t)
	client := fs.client(t)
	ctx := context.Background()

	dir := t.TempDir()
	writeTempFile(t, dir, "a.txt", "a")
	writeTempFile(t, dir, filepath.Join("docs", "b.pdf"), "bb")
	writeTempFile(t, dir, filepath.Join("docs", "img", "c.png"), "ccc")

	results, err := client.Upload(ctx, clientcli.UploadOptions{LocalPath: dir, Recursive: true})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.False(t, clientcli.HasUploadErrors(results))

	byName := map[string]filedock.File{}
	for _, r := range results {
		byName[r.File.Name] = r.File
	}

	assert.Nil(t, byName["a.txt"].FolderID)
	require.NotNil(t, byName["b.pdf"].FolderID)
	require.NotNil(t, byName["c.png"].FolderID)

	docs, err := client.GetFolder(ctx, byName["b.pdf"].FolderID.String(), true)
	require.NoError(t, err)
	assert.Equal(t, "docs", docs.Name)
	require.Len(t, docs.Children, 1)
	assert.Equal(t, "img", docs.Children[0].Name)
	assert.Equal(t, docs.Children[0].ID, *byName["c.png"].FolderID)

	t.Run("second run reuses folders", func(t *testing.T) {
		_, err := client.Upload(ctx, clientcli.UploadOptions{LocalPath: dir, Recursive: true})
		require.NoError(t, err)

		roots, err := client.ListFolders(ctx, clientcli.FolderListOptions{})
		require.NoError(t, err)
		assert.Len(t, roots, 1)
	})
}

func TestClient_List(t *testing.T) {
	var pages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/s3/files", r.URL.Path)
		assert.Equal(t, "root", r.URL.Query().Get("folderId"))
		assert.Equal(t, "name", r.URL.Query().Get("sortBy"))
		page := r.URL.Query().Get("page")
		pages = append(pages, page)

		listing := filedock.FileListing{
			Files:      []filedock.File{{ID: uuid.New(), Name: "p" + page, Size: 10}},
			Pagination: filedock.NewPagination(1, 1, 2),
		}
		if page == "2" {
			listing.Pagination = filedock.NewPagination(2, 1, 2)
		}
		writeJSON(w, http.StatusOK, listing)
	}))
	defer srv.Close()

	client, err := clientcli.New(&clientcli.Config{Endpoint: srv.URL})
	require.NoError(t, err)

	t.Run("single page", func(t *testing.T) {
		pages = nil
		result, err := client.List(context.Background(), clientcli.ListOptions{FolderID: "root", SortBy: "name"})
		require.NoError(t, err)
		assert.Len(t, result.Files, 1)
		assert.True(t, result.Pagination.HasNext)
		assert.Equal(t, []string{""}, pages)
	})

	t.Run("all pages", func(t *testing.T) {
		pages = nil
		result, err := client.List(context.Background(), clientcli.ListOptions{FolderID: "root", SortBy: "name", All: true})
		require.NoError(t, err)
		require.Len(t, result.Files, 2)
		assert.Equal(t, "p1", result.Files[0].Name)
		assert.Equal(t, "p2", result.Files[1].Name)
		assert.Equal(t, int64(20), result.TotalSize())
		assert.False(t, result.Pagination.HasNext)
		assert.Equal(t, []string{"1", "2"}, pages)
	})
}

func TestClient_DeleteFolder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		if r.URL.Query().Get("recursive") != "true" {
			writeError(w, http.StatusConflict, "conflict", "Folder is not empty")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "Folder deleted successfully"})
	}))
	defer srv.Close()

	client, err := clientcli.New(&clientcli.Config{Endpoint: srv.URL})
	require.NoError(t, err)

	id := uuid.NewString()
	assert.ErrorIs(t, client.DeleteFolder(context.Background(), id, false), clientcli.ErrConflict)
	assert.NoError(t, client.DeleteFolder(context.Background(), id, true))
	assert.ErrorIs(t, client.DeleteFolder(context.Background(), "", true), clientcli.ErrEmptyID)
}

func TestAPIError(t *testing.T) {
	withBody := &clientcli.APIError{StatusCode: 400, Code: "validation_error", Message: "bad", Details: "field"}
	assert.Equal(t, "server error: 400 validation_error - bad (field)", withBody.Error())

	raw := &clientcli.APIError{StatusCode: 502, Body: "bad gateway"}
	assert.Equal(t, "server error: 502 - bad gateway", raw.Error())

	assert.ErrorIs(t, withBody, clientcli.ErrBadRequest)
	assert.NotErrorIs(t, withBody, clientcli.ErrNotFound)
}

func TestParseID(t *testing.T) {
	id := uuid.New()
	got, err := clientcli.ParseID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id.String(), got)

	_, err = clientcli.ParseID("nope")
	assert.Error(t, err)
}

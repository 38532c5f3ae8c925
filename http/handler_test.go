package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/filedock"
	filedockhttp "github.com/sagarc03/filedock/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCoordinator is a mock implementation of http.Coordinator
type MockCoordinator struct {
	mock.Mock
}

func (m *MockCoordinator) RequestUpload(ctx context.Context, req filedock.UploadRequest) (filedock.UploadTicket, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(filedock.UploadTicket), args.Error(1)
}

func (m *MockCoordinator) ConfirmUpload(ctx context.Context, fileID uuid.UUID) (filedock.File, error) {
	args := m.Called(ctx, fileID)
	return args.Get(0).(filedock.File), args.Error(1)
}

func (m *MockCoordinator) GetDownloadURL(ctx context.Context, fileID uuid.UUID, asAttachment bool) (filedock.DownloadTicket, error) {
	args := m.Called(ctx, fileID, asAttachment)
	return args.Get(0).(filedock.DownloadTicket), args.Error(1)
}

func (m *MockCoordinator) GetFileInfo(ctx context.Context, fileID uuid.UUID, includeFolder bool) (filedock.FileInfo, error) {
	args := m.Called(ctx, fileID, includeFolder)
	return args.Get(0).(filedock.FileInfo), args.Error(1)
}

func (m *MockCoordinator) ListFiles(ctx context.Context, params filedock.ListFilesParams) (filedock.FileListing, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(filedock.FileListing), args.Error(1)
}

func (m *MockCoordinator) DeleteFile(ctx context.Context, fileID uuid.UUID) (filedock.File, error) {
	args := m.Called(ctx, fileID)
	return args.Get(0).(filedock.File), args.Error(1)
}

func (m *MockCoordinator) GetStats(ctx context.Context, folderID string) (filedock.FileStats, error) {
	args := m.Called(ctx, folderID)
	return args.Get(0).(filedock.FileStats), args.Error(1)
}

// MockFolderService is a mock implementation of http.FolderService
type MockFolderService struct {
	mock.Mock
}

func (m *MockFolderService) Create(ctx context.Context, in filedock.CreateFolderInput) (filedock.Folder, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(filedock.Folder), args.Error(1)
}

func (m *MockFolderService) Get(ctx context.Context, id uuid.UUID, opts filedock.FolderOptions) (filedock.Folder, error) {
	args := m.Called(ctx, id, opts)
	return args.Get(0).(filedock.Folder), args.Error(1)
}

func (m *MockFolderService) ListRoots(ctx context.Context, opts filedock.FolderOptions) ([]filedock.Folder, error) {
	args := m.Called(ctx, opts)
	return args.Get(0).([]filedock.Folder), args.Error(1)
}

func (m *MockFolderService) Update(ctx context.Context, id uuid.UUID, in filedock.UpdateFolderInput) (filedock.Folder, error) {
	args := m.Called(ctx, id, in)
	return args.Get(0).(filedock.Folder), args.Error(1)
}

func (m *MockFolderService) Delete(ctx context.Context, id uuid.UUID, recursive bool) error {
	args := m.Called(ctx, id, recursive)
	return args.Error(0)
}

func (m *MockFolderService) Search(ctx context.Context, filter filedock.FolderFilter, req filedock.PageRequest) (filedock.Page[filedock.Folder], error) {
	args := m.Called(ctx, filter, req)
	return args.Get(0).(filedock.Page[filedock.Folder]), args.Error(1)
}

type testServer struct {
	coordinator *MockCoordinator
	folders     *MockFolderService
	router      http.Handler
}

func newTestServer(t *testing.T, config filedockhttp.HandlerConfig) *testServer {
	t.Helper()
	s := &testServer{
		coordinator: new(MockCoordinator),
		folders:     new(MockFolderService),
	}
	s.router = filedockhttp.NewHandler(&config, s.coordinator, s.folders).Router()
	t.Cleanup(func() {
		s.coordinator.AssertExpectations(t)
		s.folders.AssertExpectations(t)
	})
	return s
}

func (s *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) filedockhttp.ErrorResponse {
	t.Helper()
	var resp filedockhttp.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHandler_UploadURL(t *testing.T) {
	folderID := uuid.New()
	fileID := uuid.New()

	t.Run("success", func(t *testing.T) {
		s := newTestServer(t, filedockhttp.HandlerConfig{})

		size := int64(2048)
		s.coordinator.On("RequestUpload", mock.Anything, filedock.UploadRequest{
			FileName: "report.pdf",
			MimeType: "application/pdf",
			SizeHint: &size,
			FolderID: &folderID,
			Tags:     []string{"q1"},
		}).Return(filedock.UploadTicket{
			UploadURL:        "https://bucket.example.com/folders/x/1-a.pdf?sig",
			FileID:           fileID,
			Key:              "folders/x/1-a.pdf",
			OriginalFileName: "report.pdf",
			ExpiresIn:        900,
			MaxFileSize:      filedock.MaxUploadSize,
			Instructions:     filedock.UploadInstructions{Method: http.MethodPut},
		}, nil)

		rec := s.do(http.MethodPost, "/api/s3/upload-url",
			`{"fileName":"report.pdf","fileType":"application/pdf","fileSize":2048,"folderId":"`+folderID.String()+`","tags":["q1"]}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var ticket filedock.UploadTicket
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&ticket))
		assert.Equal(t, fileID, ticket.FileID)
		assert.Equal(t, 900, ticket.ExpiresIn)
		assert.Equal(t, http.MethodPut, ticket.Instructions.Method)
	})

	t.Run("missing fields never reach the coordinator", func(t *testing.T) {
		s := newTestServer(t, filedockhttp.HandlerConfig{})

		rec := s.do(http.MethodPost, "/api/s3/upload-url", `{"fileType":"application/pdf"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeError(t, rec)
		assert.Equal(t, "validation_error", resp.Error)
		assert.Contains(t, resp.Message, "fileName is required")
	})

	t.Run("invalid folder id", func(t *testing.T) {
		s := newTestServer(t, filedockhttp.HandlerConfig{})

		rec := s.do(http.MethodPost, "/api/s3/upload-url",
			`{"fileName":"a.pdf","fileType":"application/pdf","folderId":"nope"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeError(t, rec).Message, "folderId must be a valid UUID")
	})

	t.Run("negative size", func(t *testing.T) {
		s := newTestServer(t, filedockhttp.HandlerConfig{})

		rec := s.do(http.MethodPost, "/api/s3/upload-url",
			`{"fileName":"a.pdf","fileType":"application/pdf","fileSize":-1}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		s := newTestServer(t, filedockhttp.HandlerConfig{})

		rec := s.do(http.MethodPost, "/api/s3/upload-url", `{"fileName":`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeError(t, rec).Message, "invalid JSON body")
	})

	t.Run("disallowed type from coordinator", func(t *testing.T) {
		s := newTestServer(t, filedockhttp.HandlerConfig{})
		s.coordinator.On("RequestUpload", mock.Anything, mock.Anything).
			Return(filedock.UploadTicket{}, filedock.ValidationErrorf("file type %q is not allowed", "application/x-sh"))

		rec := s.do(http.MethodPost, "/api/s3/upload-url", `{"fileName":"a.sh","fileType":"application/x-sh"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, `file type "application/x-sh" is not allowed`, decodeError(t, rec).Message)
	})

	t.Run("unknown folder", func(t *testing.T) {
		s := newTestServer(t, filedockhttp.HandlerConfig{})
		s.coordinator.On("RequestUpload", mock.Anything, mock.Anything).
			Return(filedock.UploadTicket{}, filedock.NotFoundError("folder not found", nil))

		rec := s.do(http.MethodPost, "/api/s3/upload-url",
			`{"fileName":"a.pdf","fileType":"application/pdf","folderId":"`+uuid.NewString()+`"}`)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "folder not found", decodeError(t, rec).Message)
	})
}

func TestHandler_ConfirmUpload(t *testing.T) {
	fileID := uuid.New()

	t.Run("success", func(t *testing.T) {
		s := newTestServer(t, filedockhttp.HandlerConfig{})
		s.coordinator.On("ConfirmUpload", mock.Anything, fileID).Return(filedock.File{
			ID:     fileID,
			Name:   "a.pdf",
			Size:   42,
			Status: filedock.StatusConfirmed,
		}, nil)

		rec := s.do(http.MethodPost, "/api/s3/confirm-upload", `{"fileId":"`+fileID.String()+`"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		var file filedock.File
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&file))
		assert.Equal(t, filedock.StatusConfirmed, file.Status)
		assert.Equal(t, int64(42), file.Size)
	})

	t.Run("not uploaded yet", func(t *testing.T) {
		s := newTestServer(t, filedockhttp.HandlerConfig{})
		s.coordinator.On("ConfirmUpload", mock.Anything, fileID).
			Return(filedock.File{}, filedock.NotFoundError("file has not been uploaded yet", filedock.ErrNotFound))

		rec := s.do(http.MethodPost, "/api/s3/confirm-upload", `{"fileId":"`+fileID.String()+`"}`)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "file has not been uploaded yet", decodeError(t, rec).Message)
	})

	t.Run("missing file id", func(t *testing.T) {
		s := newTestServer(t, filedockhttp.HandlerConfig{})

		rec := s.do(http.MethodPost, "/api/s3/confirm-upload", `{}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeError(t, rec).Message, "fileId is required")
	})

	t.Run("malformed file id", func(t *testing.T) {
		s := newTestServer(t, filedockhttp.HandlerConfig{})

		for _, raw := range []string{"not-a-uuid", "{" + fileID.String() + "}", fileID.String() + "x"} {
			rec := s.do(http.MethodPost, "/api/s3/confirm-upload", `{"fileId":"`+raw+`"}`)
			assert.Equal(t, http.StatusBadRequest, rec.Code, raw)
		}
		s.coordinator.AssertNotCalled(t, "ConfirmUpload", mock.Anything, mock.Anything)
	})
}

func TestHandler_DownloadURL(t *testing.T) {
	fileID := uuid.New()

	tests := []struct {
		name       string
		query      string
		attachment bool
	}{
		{name: "inline by default", query: "", attachment: false},
		{name: "attachment", query: "?download=true", attachment: true},
		{name: "explicit inline", query: "?download=false", attachment: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, filedockhttp.HandlerConfig{})

			downloadType := filedock.DownloadInline
			if tt.attachment {
				downloadType = filedock.DownloadAttachment
			}
			s.coordinator.On("GetDownloadURL", mock.Anything, fileID, tt.attachment).Return(filedock.DownloadTicket{
				DownloadURL:  "https://example.com/obj?sig",
				File:         filedock.FileSnapshot{ID: fileID, Name: "a.pdf"},
				ExpiresIn:    3600,
				DownloadType: downloadType,
			}, nil)

			rec := s.do(http.MethodGet, "/api/s3/download-url/"+fileID.String()+tt.query, "")

			assert.Equal(t, http.StatusOK, rec.Code)
			var ticket filedock.DownloadTicket
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&ticket))
			assert.Equal(t, downloadType, ticket.DownloadType)
			assert.Equal(t, 3600, ticket.ExpiresIn)
		})
	}

	t.Run("invalid download flag", func(t *testing.T) {
		s := newTestServer(t, filedockhttp.HandlerConfig{})

		rec := s.do(http.MethodGet, "/api/s3/download-url/"+fileID.String()+"?download=maybe", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid file id", func(t *testing.T) {
		s := newTestServer(t, filedockhttp.HandlerConfig{})

		rec := s.do(http.MethodGet, "/api/s3/download-url/not-a-uuid", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeError(t, rec).Message, "invalid fileId")
	})

	t.Run("unknown file", func(t *testing.T) {
		s := newTestServer(t, filedockhttp.HandlerConfig{})
		s.coordinator.On("GetDownloadURL", mock.Anything, fileID, false).
			Return(filedock.DownloadTicket{}, filedock.NotFoundError("file not found", nil))

		rec := s.do(http.MethodGet, "/api/s3/download-url/"+fileID.String(), "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandler_FileInfo(t *testing.T) {
	fileID := uuid.New()
	s := newTestServer(t, filedockhttp.HandlerConfig{})

	size := int64(10)
	s.coordinator.On("GetFileInfo", mock.Anything, fileID, true).Return(filedock.FileInfo{
		File:           filedock.File{ID: fileID, Name: "a.txt"},
		S3Verification: filedock.ObjectVerification{Exists: true, Size: &size, ETag: `"abc"`},
	}, nil)

	rec := s.do(http.MethodGet, "/api/s3/info/"+fileID.String()+"?includeFolder=true", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var info filedock.FileInfo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
	assert.True(t, info.S3Verification.Exists)
	assert.Equal(t, `"abc"`, info.S3Verification.ETag)
}

func TestHandler_ListFiles(t *testing.T) {
	t.Run("passes raw parameters", func(t *testing.T) {
		s := newTestServer(t, filedockhttp.HandlerConfig{})
		s.coordinator.On("ListFiles", mock.Anything, filedock.ListFilesParams{
			Page:      2,
			Limit:     5,
			FolderID:  "root",
			MimeType:  "image",
			Search:    "cat",
			SortBy:    "name",
			SortOrder: "asc",
		}).Return(filedock.FileListing{
			Files:      []filedock.File{{Name: "cat.png"}},
			Pagination: filedock.NewPagination(2, 5, 6),
			Sort:       filedock.SortSpec{SortBy: filedock.SortByName, SortOrder: filedock.SortAsc},
		}, nil)

		rec := s.do(http.MethodGet, "/api/s3/files?page=2&limit=5&folderId=root&mimeType=image&search=cat&sortBy=name&sortOrder=asc", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		var listing filedock.FileListing
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&listing))
		assert.Len(t, listing.Files, 1)
		assert.Equal(t, 2, listing.Pagination.TotalPages)
		assert.False(t, listing.Pagination.HasNext)
		assert.True(t, listing.Pagination.HasPrev)
	})

	t.Run("non-numeric page", func(t *testing.T) {
		s := newTestServer(t, filedockhttp.HandlerConfig{})

		rec := s.do(http.MethodGet, "/api/s3/files?page=two", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid sort from coordinator", func(t *testing.T) {
		s := newTestServer(t, filedockhttp.HandlerConfig{})
		s.coordinator.On("ListFiles", mock.Anything, mock.Anything).
			Return(filedock.FileListing{}, filedock.ValidationErrorf("invalid sortBy"))

		rec := s.do(http.MethodGet, "/api/s3/files?sortBy=owner", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_DeleteFile(t *testing.T) {
	fileID := uuid.New()

	t.Run("success", func(t *testing.T) {
		s := newTestServer(t, filedockhttp.HandlerConfig{})
		s.coordinator.On("DeleteFile", mock.Anything, fileID).Return(filedock.File{ID: fileID, Name: "a.pdf"}, nil)

		rec := s.do(http.MethodDelete, "/api/s3/delete/"+fileID.String(), "")

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Message   string        `json:"message"`
			File      filedock.File `json:"file"`
			DeletedAt time.Time     `json:"deletedAt"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, fileID, resp.File.ID)
		assert.NotEmpty(t, resp.Message)
		assert.WithinDuration(t, time.Now(), resp.DeletedAt, 5*time.Second)
	})

	t.Run("already deleted", func(t *testing.T) {
		s := newTestServer(t, filedockhttp.HandlerConfig{})
		s.coordinator.On("DeleteFile", mock.Anything, fileID).
			Return(filedock.File{}, filedock.NotFoundError("file not found", filedock.ErrNotFound))

		rec := s.do(http.MethodDelete, "/api/s3/delete/"+fileID.String(), "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("store failure is internal", func(t *testing.T) {
		s := newTestServer(t, filedockhttp.HandlerConfig{Production: true})
		s.coordinator.On("DeleteFile", mock.Anything, fileID).
			Return(filedock.File{}, errors.New("s3: connection reset"))

		rec := s.do(http.MethodDelete, "/api/s3/delete/"+fileID.String(), "")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		resp := decodeError(t, rec)
		assert.Equal(t, "internal_error", resp.Error)
		assert.Equal(t, "Internal server error", resp.Message)
		assert.Empty(t, resp.Details)
	})
}

func TestHandler_Stats(t *testing.T) {
	s := newTestServer(t, filedockhttp.HandlerConfig{})
	s.coordinator.On("GetStats", mock.Anything, "root").Return(filedock.FileStats{
		TotalFiles: 3,
		TotalSize:  300,
		MimeTypeDistribution: []filedock.MimeTypeStat{
			{MimeType: "image/png", Count: 2, Size: 200},
			{MimeType: "text/plain", Count: 1, Size: 100},
		},
	}, nil)

	rec := s.do(http.MethodGet, "/api/s3/stats?folderId=root", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Statistics filedock.FileStats `json:"statistics"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(3), resp.Statistics.TotalFiles)
	assert.Len(t, resp.Statistics.MimeTypeDistribution, 2)
}

func TestHandler_ErrorDetails(t *testing.T) {
	fileID := uuid.New()
	cause := errors.New("dial tcp 10.0.0.1:5432: connection refused")

	t.Run("exposed outside production", func(t *testing.T) {
		s := newTestServer(t, filedockhttp.HandlerConfig{})
		s.coordinator.On("GetFileInfo", mock.Anything, fileID, false).Return(filedock.FileInfo{}, cause)

		rec := s.do(http.MethodGet, "/api/s3/info/"+fileID.String(), "")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, decodeError(t, rec).Details, "connection refused")
	})

	t.Run("hidden in production", func(t *testing.T) {
		s := newTestServer(t, filedockhttp.HandlerConfig{Production: true})
		s.coordinator.On("GetFileInfo", mock.Anything, fileID, false).Return(filedock.FileInfo{}, cause)

		rec := s.do(http.MethodGet, "/api/s3/info/"+fileID.String(), "")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "connection refused")
	})
}

func TestHandler_Health(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		s := newTestServer(t, filedockhttp.HandlerConfig{
			Health: func(context.Context) error { return nil },
		})

		rec := s.do(http.MethodGet, "/healthz", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"ok"`)
	})

	t.Run("database down", func(t *testing.T) {
		s := newTestServer(t, filedockhttp.HandlerConfig{
			Health: func(context.Context) error { return errors.New("ping failed") },
		})

		rec := s.do(http.MethodGet, "/healthz", "")

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestHandler_UnknownRoute(t *testing.T) {
	s := newTestServer(t, filedockhttp.HandlerConfig{})

	rec := s.do(http.MethodGet, "/api/unknown", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Error)

	rec = s.do(http.MethodPatch, "/api/s3/files", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_ObjectRoutesDisabled(t *testing.T) {
	s := newTestServer(t, filedockhttp.HandlerConfig{})

	rec := s.do(http.MethodGet, "/objects/root/a.txt", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_CORS(t *testing.T) {
	s := newTestServer(t, filedockhttp.HandlerConfig{
		CORS: filedockhttp.CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"https://app.example.com"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		},
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/s3/files", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

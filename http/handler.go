package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/sagarc03/filedock"
)

// Coordinator is the upload/download flow behind /api/s3.
type Coordinator interface {
	RequestUpload(ctx context.Context, req filedock.UploadRequest) (filedock.UploadTicket, error)
	ConfirmUpload(ctx context.Context, fileID uuid.UUID) (filedock.File, error)
	GetDownloadURL(ctx context.Context, fileID uuid.UUID, asAttachment bool) (filedock.DownloadTicket, error)
	GetFileInfo(ctx context.Context, fileID uuid.UUID, includeFolder bool) (filedock.FileInfo, error)
	ListFiles(ctx context.Context, params filedock.ListFilesParams) (filedock.FileListing, error)
	DeleteFile(ctx context.Context, fileID uuid.UUID) (filedock.File, error)
	GetStats(ctx context.Context, folderID string) (filedock.FileStats, error)
}

// FolderService is the folder hierarchy behind /api/storage/folders.
type FolderService interface {
	Create(ctx context.Context, in filedock.CreateFolderInput) (filedock.Folder, error)
	Get(ctx context.Context, id uuid.UUID, opts filedock.FolderOptions) (filedock.Folder, error)
	ListRoots(ctx context.Context, opts filedock.FolderOptions) ([]filedock.Folder, error)
	Update(ctx context.Context, id uuid.UUID, in filedock.UpdateFolderInput) (filedock.Folder, error)
	Delete(ctx context.Context, id uuid.UUID, recursive bool) error
	Search(ctx context.Context, filter filedock.FolderFilter, req filedock.PageRequest) (filedock.Page[filedock.Folder], error)
}

// ObjectServer serves presigned object transfers for stores that have no
// endpoint of their own.
type ObjectServer interface {
	Open(ctx context.Context, key string) (io.ReadSeekCloser, filedock.ObjectInfo, error)
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Head(ctx context.Context, key string) (filedock.ObjectInfo, error)
}

// Metrics exposes request instrumentation and the scrape endpoint.
type Metrics interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled" yaml:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" yaml:"max_age" validate:"min=0"`
}

type HandlerConfig struct {
	// Production hides error details from responses.
	Production bool
	CORS       CORSConfig
	Logger     *slog.Logger
	Metrics    Metrics

	// Objects enables the /objects routes; ObjectVerifier guards them.
	Objects        ObjectServer
	ObjectVerifier RequestVerifier
	MaxObjectSize  int64

	// Health reports readiness of the metadata store.
	Health func(ctx context.Context) error
}

// Handler provides the REST API for folders, files and transfers.
type Handler struct {
	config      HandlerConfig
	coordinator Coordinator
	folders     FolderService
}

// NewHandler creates a new Handler with the given configuration and services.
func NewHandler(config *HandlerConfig, coordinator Coordinator, folders FolderService) *Handler {
	cfg := *config
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxObjectSize <= 0 {
		cfg.MaxObjectSize = filedock.MaxUploadSize
	}

	return &Handler{
		config:      cfg,
		coordinator: coordinator,
		folders:     folders,
	}
}

// Router returns an http.Handler with all routes mounted.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.config.Logger))
	r.Use(middleware.Recoverer)
	if h.config.Metrics != nil {
		r.Use(h.config.Metrics.Middleware)
	}

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Get("/healthz", h.handleHealth)
	if h.config.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.config.Metrics.Handler())
	}

	r.Route("/api/s3", func(r chi.Router) {
		r.Post("/upload-url", h.handleUploadURL)
		r.Post("/confirm-upload", h.handleConfirmUpload)
		r.Get("/download-url/{fileId}", h.handleDownloadURL)
		r.Get("/info/{fileId}", h.handleFileInfo)
		r.Get("/files", h.handleListFiles)
		r.Delete("/delete/{fileId}", h.handleDeleteFile)
		r.Get("/stats", h.handleStats)
	})

	r.Route("/api/storage/folders", func(r chi.Router) {
		r.Post("/", h.handleCreateFolder)
		r.Get("/", h.handleListRootFolders)
		r.Get("/search", h.handleSearchFolders)
		r.Get("/{folderId}", h.handleGetFolder)
		r.Put("/{folderId}", h.handleUpdateFolder)
		r.Delete("/{folderId}", h.handleDeleteFolder)
		r.Get("/{folderId}/files", h.handleFolderFiles)
	})

	if h.config.Objects != nil {
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.config.ObjectVerifier))
			r.Get("/objects/*", h.handleGetObject)
			r.Head("/objects/*", h.handleGetObject)
			r.Put("/objects/*", h.handlePutObject)
		})
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusNotFound, "not_found", "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	return r
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	HandleError(w, err, !h.config.Production)
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, data any) {
	if err := WriteJSON(w, code, data); err != nil {
		h.config.Logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.config.Health != nil {
		if err := h.config.Health(r.Context()); err != nil {
			h.config.Logger.Warn("health check failed", "error", err)
			h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

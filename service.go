package filedock

import (
	"context"
	"crypto/md5" //nolint:gosec // content checksum, not a security primitive
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CoordinatorConfig holds limits for the upload/download coordinator.
// Zero values fall back to the package defaults.
type CoordinatorConfig struct {
	AllowedMimeTypes  []string
	MaxFileSize       int64
	UploadURLTTL      time.Duration
	DownloadURLTTL    time.Duration
	ChecksumThreshold int64
	CleanupTimeout    time.Duration // Timeout for compensating actions (default: 30s)
}

func (c CoordinatorConfig) withDefaults() CoordinatorConfig {
	if len(c.AllowedMimeTypes) == 0 {
		c.AllowedMimeTypes = DefaultAllowedMimeTypes
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = MaxUploadSize
	}
	if c.UploadURLTTL <= 0 {
		c.UploadURLTTL = UploadURLTTL
	}
	if c.DownloadURLTTL <= 0 {
		c.DownloadURLTTL = DownloadURLTTL
	}
	if c.ChecksumThreshold <= 0 {
		c.ChecksumThreshold = ChecksumThreshold
	}
	if c.CleanupTimeout <= 0 {
		c.CleanupTimeout = 30 * time.Second
	}
	return c
}

// Coordinator drives the two-store flows: metadata lives in the folder and
// file services, bytes live in the object store. There is no cross-store
// transaction; each multi-step flow orders its steps so that a failure leaves
// a metadata record rather than an untracked object.
type Coordinator struct {
	folders  *FolderService
	files    *FileService
	store    ObjectStore
	cfg      CoordinatorConfig
	recorder EventRecorder
	logger   *slog.Logger
	now      func() time.Time
}

type CoordinatorOption func(*Coordinator)

func WithEventRecorder(r EventRecorder) CoordinatorOption {
	return func(c *Coordinator) {
		if r != nil {
			c.recorder = r
		}
	}
}

func WithLogger(l *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewCoordinator(folders *FolderService, files *FileService, store ObjectStore, cfg CoordinatorConfig, opts ...CoordinatorOption) (*Coordinator, error) {
	if folders == nil || files == nil || store == nil {
		return nil, errors.New("new coordinator: folder service, file service and object store are required")
	}
	if len(cfg.AllowedMimeTypes) > 0 {
		allowed := make([]string, len(cfg.AllowedMimeTypes))
		for i, t := range cfg.AllowedMimeTypes {
			mediaType, err := CanonicalMimeType(t)
			if err != nil {
				return nil, fmt.Errorf("new coordinator: invalid allowed mime type: %w", err)
			}
			allowed[i] = mediaType
		}
		cfg.AllowedMimeTypes = allowed
	}

	c := &Coordinator{
		folders:  folders,
		files:    files,
		store:    store,
		cfg:      cfg.withDefaults(),
		recorder: nopRecorder{},
		logger:   slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RequestUpload validates the request, creates a pending file record and
// returns a presigned PUT URL for it. Validation failures never create a
// record. If presigning fails the pending record is removed again.
func (c *Coordinator) RequestUpload(ctx context.Context, req UploadRequest) (UploadTicket, error) {
	if err := ctx.Err(); err != nil {
		return UploadTicket{}, fmt.Errorf("request upload: %w", err)
	}

	if err := c.validateUpload(req); err != nil {
		c.recorder.Record(EventUploadRejected, 0)
		return UploadTicket{}, err
	}
	// stored and presigned as the bare lowercase type
	req.MimeType, _ = CanonicalMimeType(req.MimeType)

	if req.FolderID != nil {
		if _, err := c.folders.Get(ctx, *req.FolderID, FolderOptions{}); err != nil {
			c.recorder.Record(EventUploadRejected, 0)
			return UploadTicket{}, err
		}
	}

	now := c.now()
	key := NewStoragePath(req.FolderID, req.FileName, now)

	var size int64
	if req.SizeHint != nil {
		size = *req.SizeHint
	}

	file, err := c.files.Create(ctx, CreateFileInput{
		Name:        req.FileName,
		StoragePath: key,
		MimeType:    req.MimeType,
		Size:        size,
		FolderID:    req.FolderID,
		Description: req.Description,
		Tags:        req.Tags,
		Status:      StatusPending,
	})
	if err != nil {
		return UploadTicket{}, err
	}

	presigned, err := c.store.PresignPut(ctx, key, PresignPutOptions{
		ContentType: req.MimeType,
		Metadata: map[string]string{
			"original-filename": req.FileName,
			"uploaded-at":       now.Format(time.RFC3339),
		},
		Expires: c.cfg.UploadURLTTL,
	})
	if err != nil {
		return UploadTicket{}, c.compensateUpload(file, err)
	}

	c.recorder.Record(EventUploadRequested, size)
	c.logger.Info("upload requested", "file_id", file.ID, "key", key, "mime_type", req.MimeType)

	headers := presigned.Headers
	if headers == nil {
		headers = map[string]string{"Content-Type": req.MimeType}
	}
	method := presigned.Method
	if method == "" {
		method = http.MethodPut
	}

	return UploadTicket{
		UploadURL:        presigned.URL,
		FileID:           file.ID,
		Key:              key,
		OriginalFileName: req.FileName,
		ExpiresIn:        int(c.cfg.UploadURLTTL.Seconds()),
		MaxFileSize:      c.cfg.MaxFileSize,
		Instructions: UploadInstructions{
			Method:  method,
			Headers: headers,
			Note:    "Send the file bytes with the given method and headers, then confirm the upload with the returned fileId.",
		},
	}, nil
}

func (c *Coordinator) validateUpload(req UploadRequest) error {
	if strings.TrimSpace(req.FileName) == "" {
		return ValidationErrorf("fileName is required")
	}
	if strings.TrimSpace(req.MimeType) == "" {
		return ValidationErrorf("fileType is required")
	}
	if !IsAllowedMimeType(c.cfg.AllowedMimeTypes, req.MimeType) {
		return ValidationErrorf("file type %q is not allowed", req.MimeType)
	}
	if req.SizeHint != nil {
		if *req.SizeHint < 0 {
			return ValidationErrorf("fileSize cannot be negative")
		}
		if *req.SizeHint > c.cfg.MaxFileSize {
			return ValidationErrorf("file size %d exceeds the maximum of %d bytes", *req.SizeHint, c.cfg.MaxFileSize)
		}
	}
	return nil
}

// compensateUpload removes the pending record after a failed presign. It uses a
// fresh context so cleanup still runs when the request context is cancelled.
func (c *Coordinator) compensateUpload(file File, cause error) error {
	cleanupCtx, cancel := context.WithTimeout(context.Background(), c.cfg.CleanupTimeout)
	defer cancel()

	c.recorder.Record(EventUploadCompensated, 0)

	if delErr := c.files.Delete(cleanupCtx, file.ID); delErr != nil {
		c.logger.Error("upload compensation failed", "file_id", file.ID, "error", delErr)
		return newError(KindInternal, fmt.Errorf("presign failed (%w) and cleanup failed: %w", cause, delErr), "could not generate upload URL")
	}

	return newError(KindInternal, cause, "could not generate upload URL")
}

// ConfirmUpload reconciles a record with the object store: it records the
// store-reported size and, below the checksum threshold, an MD5 checksum.
// The record is untouched when the object has not been uploaded.
func (c *Coordinator) ConfirmUpload(ctx context.Context, fileID uuid.UUID) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, fmt.Errorf("confirm upload: %w", err)
	}

	file, err := c.files.Get(ctx, fileID, false)
	if err != nil {
		return File{}, err
	}

	return c.confirm(ctx, file)
}

func (c *Coordinator) confirm(ctx context.Context, file File) (File, error) {
	info, err := c.store.Head(ctx, file.StoragePath)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return File{}, NotFoundError("file has not been uploaded yet", err)
		}
		return File{}, newError(KindInternal, err, "could not verify uploaded file")
	}

	var checksum *string
	if info.Size < c.cfg.ChecksumThreshold {
		sum, err := c.checksum(ctx, file.StoragePath)
		if err != nil {
			return File{}, err
		}
		checksum = &sum
	}

	confirmed, err := c.files.Confirm(ctx, file.ID, info.Size, checksum)
	if err != nil {
		return File{}, err
	}

	c.recorder.Record(EventUploadConfirmed, info.Size)
	c.logger.Info("upload confirmed", "file_id", file.ID, "size", info.Size, "checksum", checksum != nil)

	return confirmed, nil
}

func (c *Coordinator) checksum(ctx context.Context, key string) (string, error) {
	body, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", NotFoundError("file has not been uploaded yet", err)
		}
		return "", newError(KindInternal, err, "could not read uploaded file")
	}
	defer func() { _ = body.Close() }()

	h := md5.New() //nolint:gosec // content checksum
	if _, err := io.Copy(h, &contextReader{ctx: ctx, r: body}); err != nil {
		return "", newError(KindInternal, err, "could not checksum uploaded file")
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// contextReader stops a long copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}

// GetDownloadURL presigns a GET for the record's object. It does not check
// that the object exists.
func (c *Coordinator) GetDownloadURL(ctx context.Context, fileID uuid.UUID, asAttachment bool) (DownloadTicket, error) {
	if err := ctx.Err(); err != nil {
		return DownloadTicket{}, fmt.Errorf("get download url: %w", err)
	}

	file, err := c.files.Get(ctx, fileID, false)
	if err != nil {
		return DownloadTicket{}, err
	}

	downloadType := DownloadInline
	if asAttachment {
		downloadType = DownloadAttachment
	}

	presigned, err := c.store.PresignGet(ctx, file.StoragePath, PresignGetOptions{
		ContentDisposition: ContentDisposition(downloadType, file.Name),
		Expires:            c.cfg.DownloadURLTTL,
	})
	if err != nil {
		return DownloadTicket{}, newError(KindInternal, err, "could not generate download URL")
	}

	c.recorder.Record(EventDownloadIssued, 0)

	return DownloadTicket{
		DownloadURL: presigned.URL,
		File: FileSnapshot{
			ID:          file.ID,
			Name:        file.Name,
			Size:        file.Size,
			MimeType:    file.MimeType,
			Description: file.Description,
			Tags:        file.Tags,
		},
		ExpiresIn:    int(c.cfg.DownloadURLTTL.Seconds()),
		DownloadType: downloadType,
	}, nil
}

// ContentDisposition formats a Content-Disposition value; attachments carry
// the original file name.
func ContentDisposition(t DownloadType, fileName string) string {
	if t != DownloadAttachment {
		return string(DownloadInline)
	}
	if v := mime.FormatMediaType(string(DownloadAttachment), map[string]string{"filename": fileName}); v != "" {
		return v
	}
	return string(DownloadAttachment)
}

// DeleteFile removes the object first and the record second. An absent object
// is not an error; any other store failure aborts with the record retained.
func (c *Coordinator) DeleteFile(ctx context.Context, fileID uuid.UUID) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, fmt.Errorf("delete file: %w", err)
	}

	file, err := c.files.Get(ctx, fileID, false)
	if err != nil {
		return File{}, err
	}

	if err := c.store.Delete(ctx, file.StoragePath); err != nil && !errors.Is(err, ErrNotFound) {
		return File{}, newError(KindInternal, err, "could not delete file from object store")
	}

	if err := c.files.Delete(ctx, file.ID); err != nil {
		return File{}, err
	}

	c.recorder.Record(EventFileDeleted, file.Size)
	c.logger.Info("file deleted", "file_id", file.ID, "key", file.StoragePath)

	return file, nil
}

// GetFileInfo returns metadata plus an advisory existence probe. Probe
// failures are reported in the result, never returned as errors.
func (c *Coordinator) GetFileInfo(ctx context.Context, fileID uuid.UUID, includeFolder bool) (FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return FileInfo{}, fmt.Errorf("get file info: %w", err)
	}

	file, err := c.files.Get(ctx, fileID, includeFolder)
	if err != nil {
		return FileInfo{}, err
	}

	info, err := c.store.Head(ctx, file.StoragePath)
	if err != nil {
		verification := ObjectVerification{Exists: false, Error: "object not found in store"}
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("object probe failed", "file_id", file.ID, "error", err)
			verification.Error = err.Error()
		}
		return FileInfo{File: file, S3Verification: verification}, nil
	}

	lastModified := info.LastModified
	return FileInfo{
		File: file,
		S3Verification: ObjectVerification{
			Exists:       true,
			Size:         &info.Size,
			ETag:         info.ETag,
			LastModified: &lastModified,
		},
	}, nil
}

// ParseFolderScope interprets a folderId parameter: "" means no folder filter,
// "root" selects root level, anything else must be a UUID.
func ParseFolderScope(raw string) (id *uuid.UUID, rootOnly bool, err error) {
	switch raw {
	case "":
		return nil, false, nil
	case "root":
		return nil, true, nil
	}

	parsed, err := uuid.Parse(raw)
	if err != nil {
		return nil, false, ValidationErrorf("invalid folderId %q", raw)
	}
	return &parsed, false, nil
}

// ListFiles parses and clamps listing parameters and searches file records.
func (c *Coordinator) ListFiles(ctx context.Context, p ListFilesParams) (FileListing, error) {
	if err := ctx.Err(); err != nil {
		return FileListing{}, fmt.Errorf("list files: %w", err)
	}

	folderID, rootOnly, err := ParseFolderScope(p.FolderID)
	if err != nil {
		return FileListing{}, err
	}

	sortBy, err := ParseSortField(p.SortBy, SortByCreatedAt)
	if err != nil {
		return FileListing{}, newError(KindValidation, err, "invalid sortBy")
	}
	sortOrder, err := ParseSortOrder(strings.ToLower(p.SortOrder), SortDesc)
	if err != nil {
		return FileListing{}, newError(KindValidation, err, "invalid sortOrder")
	}

	page, limit := NormalizePage(p.Page, p.Limit)
	result, err := c.files.Search(ctx, FileFilter{
		Name:     p.Search,
		MimeType: p.MimeType,
		FolderID: folderID,
		RootOnly: rootOnly,
	}, PageRequest{Page: page, Limit: limit, SortBy: sortBy, SortOrder: sortOrder})
	if err != nil {
		return FileListing{}, err
	}

	return FileListing{
		Files:      result.Data,
		Pagination: result.Pagination,
		Filters:    Filters{FolderID: p.FolderID, MimeType: p.MimeType, Search: p.Search},
		Sort:       SortSpec{SortBy: sortBy, SortOrder: sortOrder},
	}, nil
}

// GetStats aggregates statistics for a folderId parameter parsed like ListFiles.
func (c *Coordinator) GetStats(ctx context.Context, folderID string) (FileStats, error) {
	if err := ctx.Err(); err != nil {
		return FileStats{}, fmt.Errorf("get stats: %w", err)
	}

	id, rootOnly, err := ParseFolderScope(folderID)
	if err != nil {
		return FileStats{}, err
	}

	return c.files.Stats(ctx, StatsFilter{FolderID: id, RootOnly: rootOnly})
}

// ReapPending settles pending records older than olderThan, batch at a time,
// until none remain. A record whose object exists is confirmed; a record with
// no object is removed.
func (c *Coordinator) ReapPending(ctx context.Context, olderThan time.Duration, batch int) (ReapResult, error) {
	if err := ctx.Err(); err != nil {
		return ReapResult{}, fmt.Errorf("reap pending: %w", err)
	}
	if batch <= 0 {
		batch = 100
	}

	cutoff := c.now().Add(-olderThan)
	var result ReapResult
	seen := make(map[uuid.UUID]struct{})

	for {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("reap pending: %w", err)
		}

		pending, err := c.files.ListPending(ctx, cutoff, batch)
		if err != nil {
			return result, fmt.Errorf("reap pending: %w", err)
		}

		progressed := false
		for _, file := range pending {
			if _, ok := seen[file.ID]; ok {
				continue
			}
			seen[file.ID] = struct{}{}
			progressed = true
			result.Scanned++

			_, err := c.confirm(ctx, file)
			switch {
			case err == nil:
				result.Confirmed++
			case errors.Is(err, ErrNotFound):
				if delErr := c.files.Delete(ctx, file.ID); delErr != nil && !errors.Is(delErr, ErrNotFound) {
					return result, fmt.Errorf("reap pending '%s': %w", file.StoragePath, delErr)
				}
				result.Removed++
				c.recorder.Record(EventPendingReaped, 0)
			default:
				return result, fmt.Errorf("reap pending '%s': %w", file.StoragePath, err)
			}
		}

		if !progressed || len(pending) < batch {
			break
		}
	}

	c.logger.Info("pending uploads reaped", "scanned", result.Scanned, "confirmed", result.Confirmed, "removed", result.Removed)

	return result, nil
}

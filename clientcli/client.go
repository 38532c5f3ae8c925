package clientcli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sagarc03/filedock"
)

// DefaultTimeout is the default timeout for API calls. Object transfers are
// bounded only by the caller's context.
const DefaultTimeout = 30 * time.Second

// Client performs operations against a filedock server.
type Client struct {
	endpoint   string
	apiClient  *http.Client
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the client used for API calls and object transfers.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.apiClient = client
		c.httpClient = client
	}
}

// WithTimeout sets the API call timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.apiClient.Timeout = timeout
	}
}

// New creates a new Client with the given config and options.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg = cfg.WithDefaults()

	c := &Client{
		endpoint:   strings.TrimSuffix(cfg.Endpoint, "/"),
		apiClient:  &http.Client{Timeout: cfg.Timeout},
		httpClient: &http.Client{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// do sends a JSON API request and decodes a 2xx response into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.endpoint + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.apiClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseServerError(resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// Upload uploads a file, or with opts.Recursive a directory tree.
func (c *Client) Upload(ctx context.Context, opts UploadOptions) ([]UploadResult, error) {
	if opts.LocalPath == "" {
		return nil, fmt.Errorf("upload: %w", ErrEmptyPath)
	}

	info, err := os.Stat(opts.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("stat local path: %w", err)
	}

	if !info.IsDir() {
		file, err := c.uploadSingle(ctx, opts.LocalPath, opts.FolderID, opts)
		if err != nil {
			return nil, err
		}
		return []UploadResult{{LocalPath: opts.LocalPath, File: file}}, nil
	}

	if !opts.Recursive {
		return nil, fmt.Errorf("%s is a directory (use recursive upload)", opts.LocalPath)
	}
	return c.uploadRecursive(ctx, opts)
}

// uploadRecursive walks a directory, creating one folder per sub-directory.
// Per-file failures are collected in the results.
func (c *Client) uploadRecursive(ctx context.Context, opts UploadOptions) ([]UploadResult, error) {
	baseDir := opts.LocalPath
	folders := map[string]string{".": opts.FolderID}

	var results []UploadResult
	walkErr := filepath.WalkDir(baseDir, func(path string, d fs.DirEntry, fileErr error) error {
		if fileErr != nil {
			return fileErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		relPath, relErr := filepath.Rel(baseDir, path)
		if relErr != nil {
			return fmt.Errorf("calculate relative path: %w", relErr)
		}

		if d.IsDir() {
			if relPath == "." {
				return nil
			}
			parent := folders[filepath.Dir(relPath)]
			id, folderErr := c.ensureFolder(ctx, parent, d.Name())
			if folderErr != nil {
				return fmt.Errorf("folder %s: %w", filepath.ToSlash(relPath), folderErr)
			}
			folders[relPath] = id
			return nil
		}

		folderID := folders[filepath.Dir(relPath)]
		fileOpts := opts
		fileOpts.ContentType = ""

		file, uploadErr := c.uploadSingle(ctx, path, folderID, fileOpts)
		results = append(results, UploadResult{LocalPath: path, File: file, Err: uploadErr})
		return nil
	})
	if walkErr != nil {
		return results, fmt.Errorf("walk directory: %w", walkErr)
	}

	return results, nil
}

// ensureFolder returns the ID of the child folder called name below parent,
// creating it when missing.
func (c *Client) ensureFolder(ctx context.Context, parent, name string) (string, error) {
	var siblings []filedock.Folder
	if parent == "" {
		roots, err := c.ListFolders(ctx, FolderListOptions{})
		if err != nil {
			return "", err
		}
		siblings = roots
	} else {
		folder, err := c.GetFolder(ctx, parent, true)
		if err != nil {
			return "", err
		}
		siblings = folder.Children
	}

	for _, s := range siblings {
		if s.Name == name {
			return s.ID.String(), nil
		}
	}

	created, err := c.CreateFolder(ctx, CreateFolderOptions{Name: name, ParentID: parent})
	if err != nil {
		return "", err
	}
	return created.ID.String(), nil
}

// uploadSingle runs the three-step upload: request a URL, PUT the bytes to
// the object store, confirm.
func (c *Client) uploadSingle(ctx context.Context, localPath, folderID string, opts UploadOptions) (filedock.File, error) {
	file, err := os.Open(localPath) //#nosec G304 -- localPath is user-provided input
	if err != nil {
		return filedock.File{}, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return filedock.File{}, fmt.Errorf("stat file: %w", err)
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = detectContentType(localPath)
	}

	size := info.Size()
	ticket, err := c.requestUpload(ctx, uploadURLRequest{
		FileName:    filepath.Base(localPath),
		FileType:    contentType,
		FileSize:    &size,
		FolderID:    optional(folderID),
		Description: optional(opts.Description),
		Tags:        opts.Tags,
	})
	if err != nil {
		return filedock.File{}, fmt.Errorf("request upload: %w", err)
	}

	if err := c.putObject(ctx, ticket, file, size); err != nil {
		return filedock.File{}, fmt.Errorf("upload object: %w", err)
	}

	confirmed, err := c.ConfirmUpload(ctx, ticket.FileID.String())
	if err != nil {
		return filedock.File{}, fmt.Errorf("confirm upload: %w", err)
	}
	return confirmed, nil
}

// requestUpload asks the server for a presigned upload URL.
func (c *Client) requestUpload(ctx context.Context, req uploadURLRequest) (filedock.UploadTicket, error) {
	var ticket filedock.UploadTicket
	if err := c.do(ctx, http.MethodPost, "/api/s3/upload-url", nil, req, &ticket); err != nil {
		return filedock.UploadTicket{}, err
	}
	return ticket, nil
}

// ConfirmUpload marks a pending upload as complete.
func (c *Client) ConfirmUpload(ctx context.Context, fileID string) (filedock.File, error) {
	var file filedock.File
	err := c.do(ctx, http.MethodPost, "/api/s3/confirm-upload", nil, confirmUploadRequest{FileID: fileID}, &file)
	if err != nil {
		return filedock.File{}, err
	}
	return file, nil
}

func (c *Client) putObject(ctx context.Context, ticket filedock.UploadTicket, body io.Reader, size int64) error {
	method := ticket.Instructions.Method
	if method == "" {
		method = http.MethodPut
	}

	req, err := http.NewRequestWithContext(ctx, method, ticket.UploadURL, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range ticket.Instructions.Headers {
		req.Header.Set(k, v)
	}
	req.ContentLength = size
	if size == 0 {
		req.Body = http.NoBody
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return parseServerError(resp.StatusCode, respBody)
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Download fetches a file through a presigned download URL.
// If opts.LocalPath is "-", the content is returned via the io.ReadCloser and must be closed by the caller.
// Otherwise, the content is written to the file and the io.ReadCloser is nil.
func (c *Client) Download(ctx context.Context, opts DownloadOptions) (*DownloadResult, io.ReadCloser, error) {
	if opts.FileID == "" {
		return nil, nil, fmt.Errorf("download: %w", ErrEmptyID)
	}

	ticket, err := c.DownloadURL(ctx, opts.FileID, !opts.Inline)
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ticket.DownloadURL, http.NoBody)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, nil, parseServerError(resp.StatusCode, body)
	}

	result := &DownloadResult{
		FileID:   ticket.File.ID.String(),
		Name:     ticket.File.Name,
		MimeType: ticket.File.MimeType,
		Size:     resp.ContentLength,
	}

	if opts.LocalPath == "-" {
		result.LocalPath = "-"
		return result, resp.Body, nil
	}

	localPath := opts.LocalPath
	if localPath == "" {
		localPath = filepath.Base(ticket.File.Name)
	}
	result.LocalPath = localPath

	dir := filepath.Dir(localPath)
	if dir != "" && dir != "." {
		if mkdirErr := os.MkdirAll(dir, 0o750); mkdirErr != nil {
			_ = resp.Body.Close()
			return nil, nil, fmt.Errorf("create directory: %w", mkdirErr)
		}
	}

	file, createErr := os.Create(localPath) //#nosec G304 -- localPath is user-provided input
	if createErr != nil {
		_ = resp.Body.Close()
		return nil, nil, fmt.Errorf("create file: %w", createErr)
	}

	written, copyErr := io.Copy(file, resp.Body)
	_ = resp.Body.Close()
	if copyErr != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("write file: %w", copyErr)
	}

	if closeErr := file.Close(); closeErr != nil {
		return nil, nil, fmt.Errorf("close file: %w", closeErr)
	}

	result.Size = written
	return result, nil, nil
}

// DownloadURL asks the server for a presigned download URL.
func (c *Client) DownloadURL(ctx context.Context, fileID string, attachment bool) (filedock.DownloadTicket, error) {
	query := url.Values{"download": {strconv.FormatBool(attachment)}}

	var ticket filedock.DownloadTicket
	if err := c.do(ctx, http.MethodGet, "/api/s3/download-url/"+url.PathEscape(fileID), query, nil, &ticket); err != nil {
		return filedock.DownloadTicket{}, err
	}
	return ticket, nil
}

// Info returns file metadata together with the server's object store probe.
func (c *Client) Info(ctx context.Context, fileID string, includeFolder bool) (filedock.FileInfo, error) {
	if fileID == "" {
		return filedock.FileInfo{}, fmt.Errorf("info: %w", ErrEmptyID)
	}
	query := url.Values{"includeFolder": {strconv.FormatBool(includeFolder)}}

	var info filedock.FileInfo
	if err := c.do(ctx, http.MethodGet, "/api/s3/info/"+url.PathEscape(fileID), query, nil, &info); err != nil {
		return filedock.FileInfo{}, err
	}
	return info, nil
}

// Delete deletes one or more files. It continues on error, collecting
// results for all IDs.
func (c *Client) Delete(ctx context.Context, opts DeleteOptions) ([]DeleteResult, error) {
	if len(opts.IDs) == 0 {
		return nil, ErrNoIDs
	}

	results := make([]DeleteResult, 0, len(opts.IDs))
	for _, id := range opts.IDs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		var resp deleteFileResponse
		err := c.do(ctx, http.MethodDelete, "/api/s3/delete/"+url.PathEscape(id), nil, nil, &resp)
		if err != nil {
			results = append(results, DeleteResult{ID: id, Err: err})
			continue
		}
		results = append(results, DeleteResult{ID: id, Name: resp.File.Name, Deleted: true})
	}

	return results, nil
}

// HasDeleteErrors returns true if any delete operation failed.
func HasDeleteErrors(results []DeleteResult) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// HasUploadErrors returns true if any upload failed.
func HasUploadErrors(results []UploadResult) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// List lists files. If opts.All is true, it pages through all results.
func (c *Client) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	if !opts.All {
		return c.listPage(ctx, opts)
	}

	all := &ListResult{Files: []filedock.File{}}
	pageOpts := opts
	pageOpts.Page = max(opts.Page, 1)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := c.listPage(ctx, pageOpts)
		if err != nil {
			return nil, err
		}

		all.Files = append(all.Files, page.Files...)
		all.Pagination = page.Pagination

		if !page.Pagination.HasNext {
			break
		}
		pageOpts.Page++
	}

	all.Pagination.HasNext = false
	all.Pagination.HasPrev = false
	return all, nil
}

func (c *Client) listPage(ctx context.Context, opts ListOptions) (*ListResult, error) {
	query := url.Values{}
	setInt(query, "page", opts.Page)
	setInt(query, "limit", opts.Limit)
	setString(query, "folderId", opts.FolderID)
	setString(query, "mimeType", opts.MimeType)
	setString(query, "search", opts.Search)
	setString(query, "sortBy", opts.SortBy)
	setString(query, "sortOrder", opts.SortOrder)

	var listing filedock.FileListing
	if err := c.do(ctx, http.MethodGet, "/api/s3/files", query, nil, &listing); err != nil {
		return nil, err
	}

	files := listing.Files
	if files == nil {
		files = []filedock.File{}
	}
	return &ListResult{Files: files, Pagination: listing.Pagination}, nil
}

// Stats returns storage statistics, optionally scoped to a folder ID or "root".
func (c *Client) Stats(ctx context.Context, folderID string) (filedock.FileStats, error) {
	query := url.Values{}
	setString(query, "folderId", folderID)

	var resp statsResponse
	if err := c.do(ctx, http.MethodGet, "/api/s3/stats", query, nil, &resp); err != nil {
		return filedock.FileStats{}, err
	}
	return resp.Statistics, nil
}

// CreateFolder creates a folder.
func (c *Client) CreateFolder(ctx context.Context, opts CreateFolderOptions) (filedock.Folder, error) {
	var folder filedock.Folder
	err := c.do(ctx, http.MethodPost, "/api/storage/folders", nil, createFolderRequest{
		Name:        opts.Name,
		Description: optional(opts.Description),
		ParentID:    optional(opts.ParentID),
	}, &folder)
	if err != nil {
		return filedock.Folder{}, err
	}
	return folder, nil
}

// GetFolder returns a folder, optionally with its direct children.
func (c *Client) GetFolder(ctx context.Context, id string, includeChildren bool) (filedock.Folder, error) {
	if id == "" {
		return filedock.Folder{}, fmt.Errorf("get folder: %w", ErrEmptyID)
	}
	query := url.Values{"includeChildren": {strconv.FormatBool(includeChildren)}}

	var folder filedock.Folder
	if err := c.do(ctx, http.MethodGet, "/api/storage/folders/"+url.PathEscape(id), query, nil, &folder); err != nil {
		return filedock.Folder{}, err
	}
	return folder, nil
}

// ListFolders returns the root folders, or every folder matching a name and
// parent search.
func (c *Client) ListFolders(ctx context.Context, opts FolderListOptions) ([]filedock.Folder, error) {
	if opts.Name == "" && opts.ParentID == "" {
		var resp folderListResponse
		if err := c.do(ctx, http.MethodGet, "/api/storage/folders", nil, nil, &resp); err != nil {
			return nil, err
		}
		if resp.Folders == nil {
			resp.Folders = []filedock.Folder{}
		}
		return resp.Folders, nil
	}

	folders := []filedock.Folder{}
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		query := url.Values{}
		setString(query, "name", opts.Name)
		setString(query, "parentId", opts.ParentID)
		setInt(query, "page", page)
		setInt(query, "limit", filedock.MaxPageLimit)

		var result filedock.Page[filedock.Folder]
		if err := c.do(ctx, http.MethodGet, "/api/storage/folders/search", query, nil, &result); err != nil {
			return nil, err
		}
		folders = append(folders, result.Data...)

		if !result.Pagination.HasNext {
			return folders, nil
		}
	}
}

// DeleteFolder deletes a folder. Without recursive the folder must be empty.
func (c *Client) DeleteFolder(ctx context.Context, id string, recursive bool) error {
	if id == "" {
		return fmt.Errorf("delete folder: %w", ErrEmptyID)
	}
	query := url.Values{"recursive": {strconv.FormatBool(recursive)}}
	return c.do(ctx, http.MethodDelete, "/api/storage/folders/"+url.PathEscape(id), query, nil, nil)
}

// ParseID checks that s is a UUID, returning it in canonical form.
func ParseID(s string) (string, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid ID %q: %w", s, err)
	}
	return id.String(), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func setString(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func setInt(q url.Values, key string, value int) {
	if value > 0 {
		q.Set(key, strconv.Itoa(value))
	}
}

// detectContentType returns MIME type based on file extension, without parameters.
func detectContentType(path string) string {
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		return "application/octet-stream"
	}
	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		return mediaType
	}
	return mimeType
}

// parseServerError builds an APIError, decoding the JSON error body when present.
func parseServerError(statusCode int, body []byte) error {
	apiErr := &APIError{StatusCode: statusCode, Body: string(body)}

	var payload errorResponse
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Code = payload.Error
		apiErr.Message = payload.Message
		apiErr.Details = payload.Details
	}
	return apiErr
}

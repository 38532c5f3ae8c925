package clientcli

import (
	"github.com/sagarc03/filedock"
)

// UploadOptions configures an upload operation.
type UploadOptions struct {
	LocalPath   string
	FolderID    string // empty = root level
	ContentType string // optional, auto-detect if empty
	Description string
	Tags        []string
	// Recursive uploads a directory, mirroring sub-directories as folders
	// below FolderID.
	Recursive bool
}

// UploadResult represents the result of uploading a single file.
type UploadResult struct {
	LocalPath string        `json:"localPath"`
	File      filedock.File `json:"file"`
	Err       error         `json:"-"` // nil on success
}

// DownloadOptions configures a download operation.
type DownloadOptions struct {
	FileID    string
	LocalPath string // empty = use the stored file name, "-" = stdout
	Inline    bool   // request an inline rather than attachment disposition
}

// DownloadResult represents the result of downloading a file.
type DownloadResult struct {
	FileID    string `json:"fileId"`
	Name      string `json:"name"`
	LocalPath string `json:"localPath"`
	MimeType  string `json:"mimeType"`
	Size      int64  `json:"size"`
}

// DeleteOptions configures a delete operation.
type DeleteOptions struct {
	IDs []string
}

// DeleteResult represents the result of deleting a single file.
type DeleteResult struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Deleted bool   `json:"deleted"`
	Err     error  `json:"-"` // nil on success
}

// ListOptions configures a list operation. Zero values use server defaults.
type ListOptions struct {
	Page      int
	Limit     int
	FolderID  string // a folder ID, "root", or empty for all files
	MimeType  string
	Search    string
	SortBy    string
	SortOrder string
	All       bool // auto-paginate through all results
}

// ListResult contains paginated list results.
type ListResult struct {
	Files      []filedock.File     `json:"files"`
	Pagination filedock.Pagination `json:"pagination"`
}

// TotalSize calculates the total size of all files in bytes.
func (r *ListResult) TotalSize() int64 {
	var total int64
	for _, f := range r.Files {
		total += f.Size
	}
	return total
}

// CreateFolderOptions configures a folder creation.
type CreateFolderOptions struct {
	Name        string
	Description string
	ParentID    string // empty = root level
}

// FolderListOptions selects folders. With both fields empty the root folders
// are returned; otherwise a name and parent search is run.
type FolderListOptions struct {
	Name     string
	ParentID string // a folder ID, "root", or empty
}

// uploadURLRequest mirrors the body of POST /api/s3/upload-url.
type uploadURLRequest struct {
	FileName    string   `json:"fileName"`
	FileType    string   `json:"fileType"`
	FileSize    *int64   `json:"fileSize,omitempty"`
	FolderID    *string  `json:"folderId,omitempty"`
	Description *string  `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type confirmUploadRequest struct {
	FileID string `json:"fileId"`
}

type createFolderRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	ParentID    *string `json:"parentId,omitempty"`
}

type deleteFileResponse struct {
	File filedock.File `json:"file"`
}

type folderListResponse struct {
	Folders []filedock.Folder `json:"folders"`
}

type statsResponse struct {
	Statistics filedock.FileStats `json:"statistics"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details"`
}

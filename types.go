package filedock

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FileStatus tracks a file record through the two-step upload.
type FileStatus string

const (
	// StatusPending marks a record whose upload URL was issued but not yet confirmed.
	StatusPending FileStatus = "pending"
	// StatusConfirmed marks a record whose size and checksum came from the object store.
	StatusConfirmed FileStatus = "confirmed"
)

func (s FileStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed:
		return true
	default:
		return false
	}
}

func ParseFileStatus(s string) (FileStatus, error) {
	status := FileStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid file status: %s (valid: pending, confirmed)", s)
	}
	return status, nil
}

type Folder struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	ParentID    *uuid.UUID `json:"parentId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	Parent   *Folder  `json:"parent,omitempty"`
	Children []Folder `json:"children,omitempty"`
	Files    []File   `json:"files,omitempty"`
}

type File struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	StoragePath string     `json:"storagePath"`
	MimeType    string     `json:"mimeType"`
	Size        int64      `json:"size"`
	Checksum    *string    `json:"checksum"`
	FolderID    *uuid.UUID `json:"folderId"`
	Description *string    `json:"description"`
	Tags        []string   `json:"tags"`
	Status      FileStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	Folder *Folder `json:"folder,omitempty"`
}

type CreateFolderInput struct {
	Name        string
	Description *string
	ParentID    *uuid.UUID
}

// UpdateFolderInput is a partial patch. Nil fields are left unchanged;
// ClearParent moves the folder to root level.
type UpdateFolderInput struct {
	Name        *string
	Description *string
	ParentID    *uuid.UUID
	ClearParent bool
}

type FolderOptions struct {
	IncludeChildren bool
	IncludeFiles    bool
	IncludeParent   bool
}

type FolderFilter struct {
	Name     string
	ParentID *uuid.UUID
	RootOnly bool
}

type CreateFileInput struct {
	Name        string
	StoragePath string
	MimeType    string
	Size        int64
	Checksum    *string
	FolderID    *uuid.UUID
	Description *string
	Tags        []string
	Status      FileStatus
}

// UpdateFileInput is a partial patch. Nil fields are left unchanged;
// MoveToRoot clears the folder reference.
type UpdateFileInput struct {
	Name        *string
	FolderID    *uuid.UUID
	MoveToRoot  bool
	Description *string
	Tags        []string
}

type FileFilter struct {
	Name          string
	MimeType      string
	FolderID      *uuid.UUID
	RootOnly      bool
	Tags          []string
	MinSize       *int64
	MaxSize       *int64
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Status        FileStatus
}

type StatsFilter struct {
	FolderID *uuid.UUID
	RootOnly bool
}

type MimeTypeStat struct {
	MimeType string `json:"mimeType"`
	Count    int64  `json:"count"`
	Size     int64  `json:"size"`
}

type FileStats struct {
	TotalFiles           int64          `json:"totalFiles"`
	TotalSize            int64          `json:"totalSize"`
	MimeTypeDistribution []MimeTypeStat `json:"mimeTypeDistribution"`
}

// ObjectInfo is what an object store reports for a stored key.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

type PresignPutOptions struct {
	ContentType string
	Metadata    map[string]string
	Expires     time.Duration
}

type PresignGetOptions struct {
	ContentDisposition string
	Expires            time.Duration
}

// PresignedRequest describes a request a client can send straight to the object store.
type PresignedRequest struct {
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

type UploadRequest struct {
	FileName    string
	MimeType    string
	SizeHint    *int64
	FolderID    *uuid.UUID
	Description *string
	Tags        []string
}

type UploadInstructions struct {
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Note    string            `json:"note"`
}

type UploadTicket struct {
	UploadURL        string             `json:"uploadUrl"`
	FileID           uuid.UUID          `json:"fileId"`
	Key              string             `json:"key"`
	OriginalFileName string             `json:"originalFileName"`
	ExpiresIn        int                `json:"expiresIn"`
	MaxFileSize      int64              `json:"maxFileSize"`
	Instructions     UploadInstructions `json:"instructions"`
}

type DownloadType string

const (
	DownloadAttachment DownloadType = "attachment"
	DownloadInline     DownloadType = "inline"
)

type DownloadTicket struct {
	DownloadURL  string       `json:"downloadUrl"`
	File         FileSnapshot `json:"file"`
	ExpiresIn    int          `json:"expiresIn"`
	DownloadType DownloadType `json:"downloadType"`
}

type FileSnapshot struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	MimeType    string    `json:"mimeType"`
	Description *string   `json:"description"`
	Tags        []string  `json:"tags"`
}

// ObjectVerification is the advisory result of probing the object store.
type ObjectVerification struct {
	Exists       bool       `json:"exists"`
	Size         *int64     `json:"size,omitempty"`
	ETag         string     `json:"etag,omitempty"`
	LastModified *time.Time `json:"lastModified,omitempty"`
	Error        string     `json:"error,omitempty"`
}

type FileInfo struct {
	File           File               `json:"file"`
	S3Verification ObjectVerification `json:"s3Verification"`
}

// ListFilesParams carries the raw listing parameters as received from a client.
type ListFilesParams struct {
	Page      int
	Limit     int
	FolderID  string
	MimeType  string
	Search    string
	SortBy    string
	SortOrder string
}

type FileListing struct {
	Files      []File     `json:"files"`
	Pagination Pagination `json:"pagination"`
	Filters    Filters    `json:"filters"`
	Sort       SortSpec   `json:"sort"`
}

type Filters struct {
	FolderID string `json:"folderId,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Search   string `json:"search,omitempty"`
}

type SortSpec struct {
	SortBy    SortField `json:"sortBy"`
	SortOrder SortOrder `json:"sortOrder"`
}

// ReapResult summarizes one ReapPending pass.
type ReapResult struct {
	Scanned   int `json:"scanned"`
	Confirmed int `json:"confirmed"`
	Removed   int `json:"removed"`
}

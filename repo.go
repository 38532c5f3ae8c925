package filedock

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// FolderRepo persists folders. Implementations classify store failures into
// the package sentinels: ErrNotFound for missing rows or unresolved parents,
// ErrConflict for a duplicate (parent, name) pair.
type FolderRepo interface {
	// Create inserts f. ID and timestamps are assigned by the caller.
	Create(ctx context.Context, f Folder) (Folder, error)

	// Get returns the folder with the given id, or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (Folder, error)

	// ListByParent returns the direct children of parentID ordered by name.
	// A nil parentID selects root-level folders.
	ListByParent(ctx context.Context, parentID *uuid.UUID) ([]Folder, error)

	// Update overwrites name, description and parent of the folder with f.ID.
	Update(ctx context.Context, f Folder) (Folder, error)

	// Delete removes a single folder, or returns ErrNotFound.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteTree removes the folder and every descendant folder in one
	// transaction. Files inside the subtree are moved to root level.
	// Returns the number of folders removed and files moved.
	DeleteTree(ctx context.Context, id uuid.UUID) (folders int, files int, err error)

	// Search matches name case-insensitively as a substring, ordered by name.
	// The request must be normalized. Returns the page rows and the total match count.
	Search(ctx context.Context, filter FolderFilter, page PageRequest) ([]Folder, int, error)
}

// FileRepo persists file records. Implementations classify store failures:
// ErrNotFound for missing rows or unresolved folders, ErrConflict for a
// duplicate storage path.
type FileRepo interface {
	Create(ctx context.Context, f File) (File, error)

	Get(ctx context.Context, id uuid.UUID) (File, error)

	GetByStoragePath(ctx context.Context, storagePath string) (File, error)

	// ListByFolder returns files in folderID ordered by name; nil selects root level.
	ListByFolder(ctx context.Context, folderID *uuid.UUID) ([]File, error)

	// Update overwrites the mutable columns of the record with f.ID:
	// name, folder, description, tags, size, checksum and status.
	Update(ctx context.Context, f File) (File, error)

	Delete(ctx context.Context, id uuid.UUID) error

	// Search applies every non-zero filter field. The request must be normalized
	// and carry a valid sort field and order.
	Search(ctx context.Context, filter FileFilter, page PageRequest) ([]File, int, error)

	Stats(ctx context.Context, filter StatsFilter) (FileStats, error)

	// ListPending returns up to limit pending records created before cutoff, oldest first.
	ListPending(ctx context.Context, cutoff time.Time, limit int) ([]File, error)
}

// ObjectStore holds file bytes and issues presigned URLs for direct client transfer.
//
// Get, Head and Delete return an error wrapping ErrNotFound when the key is absent;
// Delete may also return nil for an absent key depending on the backend.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Head(ctx context.Context, key string) (ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	PresignPut(ctx context.Context, key string, opts PresignPutOptions) (PresignedRequest, error)
	PresignGet(ctx context.Context, key string, opts PresignGetOptions) (PresignedRequest, error)
}

// Event names a coordinator state transition reported to an EventRecorder.
type Event string

const (
	EventUploadRequested   Event = "upload_requested"
	EventUploadRejected    Event = "upload_rejected"
	EventUploadCompensated Event = "upload_compensated"
	EventUploadConfirmed   Event = "upload_confirmed"
	EventDownloadIssued    Event = "download_issued"
	EventFileDeleted       Event = "file_deleted"
	EventPendingReaped     Event = "pending_reaped"
)

// EventRecorder receives coordinator events. bytes is zero when not meaningful.
type EventRecorder interface {
	Record(event Event, bytes int64)
}

type nopRecorder struct{}

func (nopRecorder) Record(Event, int64) {}

// Package filedock provides a file-storage metadata service: a folder
// hierarchy and file records kept in a relational database, with file bytes
// kept in an object store and transferred by clients through presigned URLs.
//
// # Key Components
//
//   - FolderService: folder CRUD, sibling-name uniqueness, cycle-free reparenting
//   - FileService: file record CRUD, search with pagination, statistics
//   - Coordinator: the two-step upload (request URL, confirm), downloads and deletes
//   - FolderRepo, FileRepo: metadata persistence (PostgreSQL, SQLite)
//   - ObjectStore: byte storage and presigning (S3, GCS, Stowry, local filesystem)
//   - Signer, SignatureVerifier: AWS Signature V4 presigned URLs for the local store
//
// # Upload Lifecycle
//
// RequestUpload creates a pending record and returns a presigned PUT URL. The
// client uploads bytes directly to the object store and then calls
// ConfirmUpload, which records the store-reported size and, for objects below
// ChecksumThreshold, an MD5 checksum. Records that are never confirmed stay
// pending until ReapPending settles them.
//
// # Errors
//
// Services return *Error values tagged with a Kind. Use errors.Is with
// ErrValidation, ErrNotFound or ErrConflict, or KindOf, to classify them.
//
// # Example Usage
//
//	folders := filedock.NewFolderService(folderRepo, fileRepo)
//	files := filedock.NewFileService(fileRepo, folderRepo)
//	coord, err := filedock.NewCoordinator(folders, files, store, filedock.CoordinatorConfig{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ticket, err := coord.RequestUpload(ctx, filedock.UploadRequest{
//	    FileName: "report.pdf",
//	    MimeType: "application/pdf",
//	})
//
// See the http package for the REST API and the database package for
// metadata backends.
package filedock

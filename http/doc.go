// Package http provides the filedock REST API.
//
// # Routes
//
//	POST   /api/s3/upload-url             request a presigned upload URL
//	POST   /api/s3/confirm-upload         reconcile a finished upload
//	GET    /api/s3/download-url/{fileId}  presigned download URL (?download=true for attachment)
//	GET    /api/s3/info/{fileId}          metadata plus object store probe (?includeFolder=true)
//	GET    /api/s3/files                  paginated listing
//	DELETE /api/s3/delete/{fileId}        delete object then record
//	GET    /api/s3/stats                  totals and MIME type distribution
//
//	POST   /api/storage/folders                     create
//	GET    /api/storage/folders                     root folders
//	GET    /api/storage/folders/search              name search
//	GET    /api/storage/folders/{folderId}          one folder
//	PUT    /api/storage/folders/{folderId}          partial update
//	DELETE /api/storage/folders/{folderId}          delete (?recursive=true)
//	GET    /api/storage/folders/{folderId}/files    files in a folder
//
//	GET    /healthz
//	GET    /metrics                       when HandlerConfig.Metrics is set
//	GET|HEAD|PUT /objects/*               when HandlerConfig.Objects is set
//
// # Errors
//
// Every error is a JSON body {"error", "message", "details"}. Validation
// errors map to 400, missing resources to 404, conflicts to 409 and
// everything else to 500 with a generic message. Details are omitted when
// HandlerConfig.Production is set.
//
// # Object routes
//
// The /objects routes back the local filesystem store. Requests must carry
// a SigV4 query signature produced by filedock.Signer; AuthMiddleware
// verifies it with the configured RequestVerifier.
package http

package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/filedock"
)

type uploadURLRequest struct {
	FileName    string   `json:"fileName" validate:"required,max=255"`
	FileType    string   `json:"fileType" validate:"required"`
	FileSize    *int64   `json:"fileSize" validate:"omitempty,gte=0"`
	FolderID    *string  `json:"folderId" validate:"omitempty,uuid"`
	Description *string  `json:"description"`
	Tags        []string `json:"tags" validate:"omitempty,dive,required,max=64"`
}

type confirmUploadRequest struct {
	FileID string `json:"fileId" validate:"required,uuid"`
}

type deleteFileResponse struct {
	Message   string        `json:"message"`
	File      filedock.File `json:"file"`
	DeletedAt time.Time     `json:"deletedAt"`
}

type statsResponse struct {
	Statistics filedock.FileStats `json:"statistics"`
}

func (h *Handler) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	var body uploadURLRequest
	if err := decodeJSON(w, r, &body); err != nil {
		h.handleError(w, err)
		return
	}

	folderID, err := optionalID(body.FolderID, "folderId")
	if err != nil {
		h.handleError(w, err)
		return
	}

	ticket, err := h.coordinator.RequestUpload(r.Context(), filedock.UploadRequest{
		FileName:    body.FileName,
		MimeType:    body.FileType,
		SizeHint:    body.FileSize,
		FolderID:    folderID,
		Description: body.Description,
		Tags:        body.Tags,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleConfirmUpload(w http.ResponseWriter, r *http.Request) {
	var body confirmUploadRequest
	if err := decodeJSON(w, r, &body); err != nil {
		h.handleError(w, err)
		return
	}

	fileID, err := uuid.Parse(body.FileID)
	if err != nil {
		h.handleError(w, filedock.ValidationErrorf("invalid fileId %q", body.FileID))
		return
	}

	file, err := h.coordinator.ConfirmUpload(r.Context(), fileID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, file)
}

func (h *Handler) handleDownloadURL(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "fileId")
	if err != nil {
		h.handleError(w, err)
		return
	}

	download, err := boolParam(r, "download")
	if err != nil {
		h.handleError(w, err)
		return
	}

	ticket, err := h.coordinator.GetDownloadURL(r.Context(), id, download)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleFileInfo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "fileId")
	if err != nil {
		h.handleError(w, err)
		return
	}

	includeFolder, err := boolParam(r, "includeFolder")
	if err != nil {
		h.handleError(w, err)
		return
	}

	info, err := h.coordinator.GetFileInfo(r.Context(), id, includeFolder)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, info)
}

func (h *Handler) handleListFiles(w http.ResponseWriter, r *http.Request) {
	page, err := intParam(r, "page")
	if err != nil {
		h.handleError(w, err)
		return
	}
	limit, err := intParam(r, "limit")
	if err != nil {
		h.handleError(w, err)
		return
	}

	q := r.URL.Query()
	listing, err := h.coordinator.ListFiles(r.Context(), filedock.ListFilesParams{
		Page:      page,
		Limit:     limit,
		FolderID:  q.Get("folderId"),
		MimeType:  q.Get("mimeType"),
		Search:    q.Get("search"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, listing)
}

func (h *Handler) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "fileId")
	if err != nil {
		h.handleError(w, err)
		return
	}

	file, err := h.coordinator.DeleteFile(r.Context(), id)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, deleteFileResponse{
		Message:   "File deleted successfully",
		File:      file,
		DeletedAt: time.Now().UTC(),
	})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.coordinator.GetStats(r.Context(), r.URL.Query().Get("folderId"))
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, statsResponse{Statistics: stats})
}

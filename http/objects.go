package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sagarc03/filedock"
	"github.com/sagarc03/filedock/filesystem"
)

func objectKey(r *http.Request) (string, error) {
	key := strings.TrimPrefix(r.URL.Path, filesystem.ObjectsPrefix)
	if !filedock.IsValidKey(key) {
		return "", filedock.ValidationErrorf("invalid object key %q", key)
	}
	return key, nil
}

// handleGetObject serves GET and HEAD with range and conditional support.
// A signed response-content-disposition parameter is applied verbatim.
func (h *Handler) handleGetObject(w http.ResponseWriter, r *http.Request) {
	key, err := objectKey(r)
	if err != nil {
		h.handleError(w, err)
		return
	}

	content, info, err := h.config.Objects.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, filedock.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "Object not found")
		} else {
			h.handleError(w, err)
		}
		return
	}
	defer func() { _ = content.Close() }()

	w.Header().Set("ETag", info.ETag)
	w.Header().Set("Content-Type", info.ContentType)
	if disposition := r.URL.Query().Get(filesystem.DispositionParam); disposition != "" {
		w.Header().Set("Content-Disposition", disposition)
	}

	http.ServeContent(w, r, key, info.LastModified, content)
}

func (h *Handler) handlePutObject(w http.ResponseWriter, r *http.Request) {
	key, err := objectKey(r)
	if err != nil {
		h.handleError(w, err)
		return
	}

	if r.ContentLength > h.config.MaxObjectSize {
		WriteError(w, http.StatusRequestEntityTooLarge, "too_large", "Object exceeds the maximum upload size")
		return
	}

	body := http.MaxBytesReader(w, r.Body, h.config.MaxObjectSize)
	if err := h.config.Objects.Put(r.Context(), key, body, r.ContentLength, r.Header.Get("Content-Type")); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "too_large", "Object exceeds the maximum upload size")
			return
		}
		h.handleError(w, err)
		return
	}

	info, err := h.config.Objects.Head(r.Context(), key)
	if err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("ETag", info.ETag)
	w.WriteHeader(http.StatusOK)
}

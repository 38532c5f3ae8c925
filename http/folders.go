package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/sagarc03/filedock"
)

type createFolderRequest struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description *string `json:"description"`
	ParentID    *string `json:"parentId" validate:"omitempty,uuid"`
}

// updateFolderRequest is a partial patch. A null parentId, or "root",
// moves the folder to root level.
type updateFolderRequest struct {
	Name        *string        `json:"name" validate:"omitempty,max=255"`
	Description *string        `json:"description"`
	ParentID    nullableString `json:"parentId"`
}

type folderListResponse struct {
	Folders []filedock.Folder `json:"folders"`
}

type folderFilesResponse struct {
	FolderID uuid.UUID       `json:"folderId"`
	Files    []filedock.File `json:"files"`
}

type deleteFolderResponse struct {
	Message   string    `json:"message"`
	ID        uuid.UUID `json:"id"`
	Recursive bool      `json:"recursive"`
}

func (h *Handler) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var body createFolderRequest
	if err := decodeJSON(w, r, &body); err != nil {
		h.handleError(w, err)
		return
	}

	parentID, err := optionalID(body.ParentID, "parentId")
	if err != nil {
		h.handleError(w, err)
		return
	}

	folder, err := h.folders.Create(r.Context(), filedock.CreateFolderInput{
		Name:        body.Name,
		Description: body.Description,
		ParentID:    parentID,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, folder)
}

func (h *Handler) handleListRootFolders(w http.ResponseWriter, r *http.Request) {
	opts, err := folderOptions(r)
	if err != nil {
		h.handleError(w, err)
		return
	}

	folders, err := h.folders.ListRoots(r.Context(), opts)
	if err != nil {
		h.handleError(w, err)
		return
	}
	if folders == nil {
		folders = []filedock.Folder{}
	}

	h.writeJSON(w, http.StatusOK, folderListResponse{Folders: folders})
}

func (h *Handler) handleSearchFolders(w http.ResponseWriter, r *http.Request) {
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

	parentID, rootOnly, err := filedock.ParseFolderScope(r.URL.Query().Get("parentId"))
	if err != nil {
		h.handleError(w, err)
		return
	}

	result, err := h.folders.Search(r.Context(), filedock.FolderFilter{
		Name:     r.URL.Query().Get("name"),
		ParentID: parentID,
		RootOnly: rootOnly,
	}, filedock.PageRequest{Page: page, Limit: limit})
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleGetFolder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "folderId")
	if err != nil {
		h.handleError(w, err)
		return
	}

	opts, err := folderOptions(r)
	if err != nil {
		h.handleError(w, err)
		return
	}

	folder, err := h.folders.Get(r.Context(), id, opts)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, folder)
}

func (h *Handler) handleUpdateFolder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "folderId")
	if err != nil {
		h.handleError(w, err)
		return
	}

	var body updateFolderRequest
	if err := decodeJSON(w, r, &body); err != nil {
		h.handleError(w, err)
		return
	}

	in := filedock.UpdateFolderInput{
		Name:        body.Name,
		Description: body.Description,
	}
	if body.ParentID.Set {
		if v := body.ParentID.Value; v == nil || *v == "" || *v == "root" {
			in.ClearParent = true
		} else if in.ParentID, err = optionalID(body.ParentID.Value, "parentId"); err != nil {
			h.handleError(w, err)
			return
		}
	}

	folder, err := h.folders.Update(r.Context(), id, in)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, folder)
}

func (h *Handler) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "folderId")
	if err != nil {
		h.handleError(w, err)
		return
	}

	recursive, err := boolParam(r, "recursive")
	if err != nil {
		h.handleError(w, err)
		return
	}

	if err := h.folders.Delete(r.Context(), id, recursive); err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, deleteFolderResponse{
		Message:   "Folder deleted successfully",
		ID:        id,
		Recursive: recursive,
	})
}

func (h *Handler) handleFolderFiles(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "folderId")
	if err != nil {
		h.handleError(w, err)
		return
	}

	folder, err := h.folders.Get(r.Context(), id, filedock.FolderOptions{IncludeFiles: true})
	if err != nil {
		h.handleError(w, err)
		return
	}

	files := folder.Files
	if files == nil {
		files = []filedock.File{}
	}

	h.writeJSON(w, http.StatusOK, folderFilesResponse{FolderID: folder.ID, Files: files})
}

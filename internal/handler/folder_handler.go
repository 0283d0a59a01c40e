package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"tierdrive/internal/auth"
	"tierdrive/internal/domain"
)

type FolderService interface {
	ListFolders(ctx context.Context, ownerID string, parentID *uuid.UUID) ([]domain.Folder, error)
	CreateFolder(ctx context.Context, ownerID string, parentID *uuid.UUID, name string) (*domain.Folder, error)
	RenameFolder(ctx context.Context, ownerID string, id uuid.UUID, name string) (*domain.Folder, error)
	DeleteFolder(ctx context.Context, ownerID string, id uuid.UUID) error
}

type FolderHandler struct {
	folderService FolderService
	writeError    auth.ErrorWriter
}

type createFolderRequest struct {
	Name     string     `json:"name"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
}

type renameRequest struct {
	Name string `json:"name"`
}

func NewFolderHandler(folderService FolderService, writeError auth.ErrorWriter) *FolderHandler {
	return &FolderHandler{
		folderService: folderService,
		writeError:    writeError,
	}
}

func (h *FolderHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	parentID, err := optionalID(r.URL.Query().Get("parent_id"), "parent folder")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	folders, err := h.folderService.ListFolders(r.Context(), userID, parentID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if folders == nil {
		folders = []domain.Folder{}
	}
	writeJSON(w, http.StatusOK, "Folders fetched", folders)
}

func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req createFolderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	folder, err := h.folderService.CreateFolder(r.Context(), userID, req.ParentID, req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, "Folder created", folder)
}

// RenameFolder переименовывает папку, пути вложенных папок пересчитываются сервисом
func (h *FolderHandler) RenameFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	folderID, err := idParam(r, "folder")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	folder, err := h.folderService.RenameFolder(r.Context(), userID, folderID, req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "Folder renamed", folder)
}

func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	folderID, err := idParam(r, "folder")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.folderService.DeleteFolder(r.Context(), userID, folderID); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "Folder deleted", nil)
}

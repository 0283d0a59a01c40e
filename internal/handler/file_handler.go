package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"tierdrive/internal/auth"
	"tierdrive/internal/domain"
)

// в памяти держим не больше этого, остальное multipart сбрасывает на диск
const multipartMemory = 8 << 20

type FileService interface {
	UploadFile(ctx context.Context, upload *domain.FileUpload) (*domain.File, error)
	ListFiles(ctx context.Context, ownerID string, folderID *uuid.UUID) ([]domain.File, error)
	RenameFile(ctx context.Context, ownerID string, id uuid.UUID, filename string) (*domain.File, error)
	ListVersions(ctx context.Context, ownerID string, id uuid.UUID) ([]domain.FileVersion, error)
}

type FileDeleter interface {
	DeleteFile(ctx context.Context, ownerID string, id uuid.UUID) error
}

type renameFileRequest struct {
	Filename string `json:"filename"`
}

type FileHandler struct {
	fileService    FileService
	reclaimService FileDeleter
	maxUploadBytes int64
	writeError     auth.ErrorWriter
}

func NewFileHandler(
	fileService FileService,
	reclaimService FileDeleter,
	maxUploadBytes int64,
	writeError auth.ErrorWriter,
) *FileHandler {
	return &FileHandler{
		fileService:    fileService,
		reclaimService: reclaimService,
		maxUploadBytes: maxUploadBytes,
		writeError:     writeError,
	}
}

// UploadFile принимает multipart-форму с полями file и folder_id
func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	// запас на заголовки и остальные поля формы
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, h.tooLarge())
			return
		}
		h.writeError(w, r, domain.InvalidInput("failed to parse form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	folderID, err := optionalID(r.FormValue("folder_id"), "folder")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, domain.InvalidInput("file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("failed to read uploaded file: %w", err))
		return
	}
	if int64(len(data)) > h.maxUploadBytes {
		h.writeError(w, r, h.tooLarge())
		return
	}

	uploaded, err := h.fileService.UploadFile(r.Context(), &domain.FileUpload{
		OwnerID:      userID,
		FolderID:     folderID,
		OriginalName: header.Filename,
		MIMEType:     header.Header.Get("Content-Type"),
		Data:         data,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, "File uploaded", uploaded)
}

func (h *FileHandler) tooLarge() error {
	return domain.InvalidInput(fmt.Sprintf("file too large, maximum upload size is %d MB", h.maxUploadBytes>>20))
}

func (h *FileHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	folderID, err := optionalID(r.URL.Query().Get("folder_id"), "folder")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	files, err := h.fileService.ListFiles(r.Context(), userID, folderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if files == nil {
		files = []domain.File{}
	}
	writeJSON(w, http.StatusOK, "Files fetched", files)
}

func (h *FileHandler) RenameFile(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	fileID, err := idParam(r, "file")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req renameFileRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	renamed, err := h.fileService.RenameFile(r.Context(), userID, fileID, req.Filename)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "File renamed", renamed)
}

func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	fileID, err := idParam(r, "file")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.reclaimService.DeleteFile(r.Context(), userID, fileID); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "File deleted", nil)
}

func (h *FileHandler) GetFileVersions(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	fileID, err := idParam(r, "file")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	versions, err := h.fileService.ListVersions(r.Context(), userID, fileID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if versions == nil {
		versions = []domain.FileVersion{}
	}
	writeJSON(w, http.StatusOK, "File versions fetched", versions)
}

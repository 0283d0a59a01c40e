package domain

import (
	"github.com/google/uuid"
	"time"
)

type File struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	OwnerID      string     `json:"owner_id" db:"owner_id"`
	FolderID     *uuid.UUID `json:"folder_id,omitempty" db:"folder_id"`
	Filename     string     `json:"filename" db:"filename"`
	OriginalName string     `json:"original_name" db:"original_name"`
	SizeBytes    int64      `json:"size_bytes" db:"size_bytes"`
	MIMEType     string     `json:"mime_type" db:"mime_type"`
	StorageKey   string     `json:"storage_key" db:"storage_key"`
	IsDeleted    bool       `json:"is_deleted" db:"is_deleted"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// FileUpload: входные данные загрузки, содержимое уже прочитано хендлером
type FileUpload struct {
	OwnerID      string
	FolderID     *uuid.UUID
	OriginalName string
	MIMEType     string
	Data         []byte
}

// Size возвращает реальный размер загружаемого содержимого
func (u *FileUpload) Size() int64 {
	return int64(len(u.Data))
}

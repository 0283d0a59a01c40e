// domain/file_version.go
package domain

import (
	"github.com/google/uuid"
	"time"
)

type FileVersion struct {
	ID            int64     `json:"id" db:"id"`
	FileID        uuid.UUID `json:"file_id" db:"file_id"`
	VersionNumber int       `json:"version_number" db:"version_number"`
	StorageKey    string    `json:"storage_key" db:"storage_key"`
	SizeBytes     int64     `json:"size_bytes" db:"size_bytes"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

package domain

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"time"
)

const bytesPerMB = 1024 * 1024

type SubscriptionPackage struct {
	ID                  uuid.UUID      `json:"id" db:"id"`
	Name                string         `json:"name" db:"name"`
	Slug                string         `json:"slug" db:"slug"`
	Description         *string        `json:"description,omitempty" db:"description"`
	MaxFolders          int            `json:"max_folders" db:"max_folders"`
	MaxNestingLevel     int            `json:"max_nesting_level" db:"max_nesting_level"`
	MaxFileSizeMB       int            `json:"max_file_size_mb" db:"max_file_size_mb"`
	TotalFileLimit      int            `json:"total_file_limit" db:"total_file_limit"`
	FilesPerFolderLimit int            `json:"files_per_folder_limit" db:"files_per_folder_limit"`
	AllowedMIMETypes    pq.StringArray `json:"allowed_mime_types" db:"allowed_mime_types"`
	CreatedAt           time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at" db:"updated_at"`
}

type UserSubscription struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	UserID      string     `json:"user_id" db:"user_id"`
	PackageID   uuid.UUID  `json:"package_id" db:"package_id"`
	PackageName string     `json:"package_name" db:"package_name"`
	PackageSlug string     `json:"package_slug" db:"package_slug"`
	IsActive    bool       `json:"is_active" db:"is_active"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty" db:"ended_at"`
}

// Policy содержит лимиты активного пакета пользователя
type Policy struct {
	PackageID           uuid.UUID      `json:"package_id" db:"package_id"`
	PackageSlug         string         `json:"package_slug" db:"package_slug"`
	MaxFolders          int            `json:"max_folders" db:"max_folders"`
	MaxNestingLevel     int            `json:"max_nesting_level" db:"max_nesting_level"`
	MaxFileSizeMB       int            `json:"max_file_size_mb" db:"max_file_size_mb"`
	TotalFileLimit      int            `json:"total_file_limit" db:"total_file_limit"`
	FilesPerFolderLimit int            `json:"files_per_folder_limit" db:"files_per_folder_limit"`
	AllowedMIMETypes    pq.StringArray `json:"allowed_mime_types" db:"allowed_mime_types"`
}

func (p *Policy) MaxFileSizeBytes() int64 {
	return int64(p.MaxFileSizeMB) * bytesPerMB
}

func (p *Policy) AllowsMIMEType(mimeType string) bool {
	for _, allowed := range p.AllowedMIMETypes {
		if allowed == mimeType {
			return true
		}
	}
	return false
}

package domain

import "time"

// UserQuota хранит счётчики пользователя; строка создаётся лениво при первой резервации
type UserQuota struct {
	UserID           string    `json:"user_id" db:"user_id"`
	FolderCount      int       `json:"folder_count" db:"folder_count"`
	FileCount        int       `json:"file_count" db:"file_count"`
	UsedStorageBytes int64     `json:"used_storage_bytes" db:"used_storage_bytes"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// Usage: дельта для освобождения счётчиков пользователя
type Usage struct {
	Folders int
	Files   int
	Bytes   int64
}

type QuotaInfo struct {
	FolderCount      int      `json:"folder_count"`
	FileCount        int      `json:"file_count"`
	UsedStorageBytes int64    `json:"used_storage_bytes"`
	Policy           *Policy  `json:"policy,omitempty"`
	FilesRemaining   *int     `json:"files_remaining,omitempty"`
	FoldersRemaining *int     `json:"folders_remaining,omitempty"`
	UsagePercent     *float64 `json:"usage_percent,omitempty"`
}

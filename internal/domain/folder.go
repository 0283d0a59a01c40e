package domain

import (
	"github.com/google/uuid"
	"strings"
	"time"
)

type Folder struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	OwnerID   string     `json:"owner_id" db:"owner_id"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty" db:"parent_id"`
	Name      string     `json:"name" db:"name"`
	Path      string     `json:"path" db:"path"`
	Depth     int        `json:"depth" db:"depth"`
	IsDeleted bool       `json:"is_deleted" db:"is_deleted"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// FolderStats хранит агрегаты по файлам, лежащим непосредственно в папке (без вложенных)
type FolderStats struct {
	FolderID  uuid.UUID `json:"folder_id" db:"folder_id"`
	FileCount int       `json:"file_count" db:"file_count"`
	SizeBytes int64     `json:"size_bytes" db:"size_bytes"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// FolderRemoval описывает результат каскадного мягкого удаления поддерева папок
type FolderRemoval struct {
	FolderIDs []uuid.UUID
	Files     int
	Bytes     int64
}

// SanitizeSegment превращает имя папки в сегмент пути:
// обрезает пробелы по краям и схлопывает внутренние пробелы в один дефис.
func SanitizeSegment(name string) string {
	return strings.Join(strings.Fields(name), "-")
}

// BuildPath строит путь папки от пути родителя ("" для корневой)
func BuildPath(parentPath string, name string) string {
	return parentPath + "/" + SanitizeSegment(name)
}

// ChildDepth возвращает глубину дочерней папки; корневые папки имеют глубину 1
func ChildDepth(parent *Folder) int {
	if parent == nil {
		return 1
	}
	return parent.Depth + 1
}

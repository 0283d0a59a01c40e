package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"tierdrive/internal/domain"
)

const fileColumns = `
            id, owner_id, folder_id, filename, original_name, size_bytes,
            mime_type, storage_key, is_deleted, created_at, updated_at, deleted_at`

type FileRepository struct{}

func NewFileRepository() *FileRepository {
	return &FileRepository{}
}

func (r *FileRepository) Create(ctx context.Context, q Querier, file *domain.File) error {
	query := `
        INSERT INTO files (id, owner_id, folder_id, filename, original_name, size_bytes, mime_type, storage_key)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING created_at, updated_at`

	if file.ID == uuid.Nil {
		file.ID = uuid.New()
	}

	err := q.QueryRowxContext(
		ctx,
		query,
		file.ID,
		file.OwnerID,
		file.FolderID,
		file.Filename,
		file.OriginalName,
		file.SizeBytes,
		file.MIMEType,
		file.StorageKey,
	).Scan(&file.CreatedAt, &file.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	return nil
}

func (r *FileRepository) CreateVersion(ctx context.Context, q Querier, version *domain.FileVersion) error {
	query := `
        INSERT INTO file_versions (file_id, version_number, storage_key, size_bytes)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at`

	err := q.QueryRowxContext(ctx, query,
		version.FileID,
		version.VersionNumber,
		version.StorageKey,
		version.SizeBytes,
	).Scan(&version.ID, &version.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create file version: %w", err)
	}

	return nil
}

func (r *FileRepository) GetOwned(ctx context.Context, q Querier, ownerID string, id uuid.UUID) (*domain.File, error) {
	var file domain.File
	query := `
        SELECT` + fileColumns + `
        FROM files
        WHERE id = $1 AND owner_id = $2 AND is_deleted = FALSE`

	err := sqlx.GetContext(ctx, q, &file, query, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	return &file, nil
}

// ListByFolder возвращает неудалённые файлы папки; folderID == nil означает корневой уровень
func (r *FileRepository) ListByFolder(ctx context.Context, q Querier, ownerID string, folderID *uuid.UUID) ([]domain.File, error) {
	query := `
        SELECT` + fileColumns + `
        FROM files
        WHERE owner_id = $1
        AND folder_id IS NOT DISTINCT FROM $2
        AND is_deleted = FALSE
        ORDER BY created_at DESC, id`

	files := make([]domain.File, 0)
	if err := sqlx.SelectContext(ctx, q, &files, query, ownerID, folderID); err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return files, nil
}

// Rename обновляет имя файла; нулевой результат значит, что файл не найден
func (r *FileRepository) Rename(ctx context.Context, q Querier, ownerID string, id uuid.UUID, filename string) (*domain.File, error) {
	query := `
        UPDATE files
        SET filename = $1,
            updated_at = CURRENT_TIMESTAMP
        WHERE id = $2 AND owner_id = $3 AND is_deleted = FALSE
        RETURNING` + fileColumns

	var file domain.File
	err := sqlx.GetContext(ctx, q, &file, query, filename, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to update file name: %w", err)
	}

	return &file, nil
}

// SoftDelete переключает is_deleted только если файл ещё не удалён.
// Из двух параллельных удалений строку получит ровно одно.
func (r *FileRepository) SoftDelete(ctx context.Context, q Querier, ownerID string, id uuid.UUID) (*domain.File, error) {
	query := `
        UPDATE files
        SET is_deleted = TRUE,
            deleted_at = CURRENT_TIMESTAMP,
            updated_at = CURRENT_TIMESTAMP
        WHERE id = $1 AND owner_id = $2 AND is_deleted = FALSE
        RETURNING` + fileColumns

	var file domain.File
	err := sqlx.GetContext(ctx, q, &file, query, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to delete file: %w", err)
	}

	return &file, nil
}

// SoftDeleteByFolders удаляет все живые файлы в перечисленных папках и
// возвращает, сколько файлов и байт было снято
func (r *FileRepository) SoftDeleteByFolders(ctx context.Context, q Querier, ownerID string, folderIDs []uuid.UUID) (int, int64, error) {
	if len(folderIDs) == 0 {
		return 0, 0, nil
	}

	query := `
        WITH removed AS (
            UPDATE files
            SET is_deleted = TRUE,
                deleted_at = CURRENT_TIMESTAMP,
                updated_at = CURRENT_TIMESTAMP
            WHERE owner_id = $1
            AND folder_id = ANY($2::uuid[])
            AND is_deleted = FALSE
            RETURNING size_bytes
        )
        SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM removed`

	var (
		count int
		bytes int64
	)
	err := q.QueryRowxContext(ctx, query, ownerID, pq.Array(uuidStrings(folderIDs))).Scan(&count, &bytes)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to delete folder files: %w", err)
	}

	return count, bytes, nil
}

// ListVersions получает все версии файла, новые первыми
func (r *FileRepository) ListVersions(ctx context.Context, q Querier, fileID uuid.UUID) ([]domain.FileVersion, error) {
	versions := make([]domain.FileVersion, 0)
	query := `
        SELECT id, file_id, version_number, storage_key, size_bytes, created_at
        FROM file_versions
        WHERE file_id = $1
        ORDER BY version_number DESC`

	if err := sqlx.SelectContext(ctx, q, &versions, query, fileID); err != nil {
		return nil, fmt.Errorf("failed to get file versions: %w", err)
	}

	return versions, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"tierdrive/internal/domain"
)

const folderColumns = `
            id, owner_id, parent_id, name, path, depth,
            is_deleted, created_at, updated_at, deleted_at`

type FolderRepository struct{}

func NewFolderRepository() *FolderRepository {
	return &FolderRepository{}
}

func (r *FolderRepository) Create(ctx context.Context, q Querier, folder *domain.Folder) error {
	query := `
        INSERT INTO folders (id, owner_id, parent_id, name, path, depth)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING created_at, updated_at`

	if folder.ID == uuid.Nil {
		folder.ID = uuid.New()
	}

	err := q.QueryRowxContext(
		ctx,
		query,
		folder.ID,
		folder.OwnerID,
		folder.ParentID,
		folder.Name,
		folder.Path,
		folder.Depth,
	).Scan(&folder.CreatedAt, &folder.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}

	return nil
}

// GetOwned ищет неудалённую папку владельца. При lock = true строка блокируется
// FOR SHARE до конца транзакции: параллельное удаление дождётся нас.
func (r *FolderRepository) GetOwned(ctx context.Context, q Querier, ownerID string, id uuid.UUID, lock bool) (*domain.Folder, error) {
	query := `
        SELECT` + folderColumns + `
        FROM folders
        WHERE id = $1 AND owner_id = $2 AND is_deleted = FALSE`
	if lock {
		query += `
        FOR SHARE`
	}

	var folder domain.Folder
	err := sqlx.GetContext(ctx, q, &folder, query, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrFolderNotFound
		}
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}

	return &folder, nil
}

// ListByParent возвращает неудалённые папки владельца; parentID == nil означает корневой уровень
func (r *FolderRepository) ListByParent(ctx context.Context, q Querier, ownerID string, parentID *uuid.UUID) ([]domain.Folder, error) {
	query := `
        SELECT` + folderColumns + `
        FROM folders
        WHERE owner_id = $1
        AND parent_id IS NOT DISTINCT FROM $2
        AND is_deleted = FALSE
        ORDER BY created_at ASC, id ASC`

	folders := make([]domain.Folder, 0)
	if err := sqlx.SelectContext(ctx, q, &folders, query, ownerID, parentID); err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	return folders, nil
}

// Rename меняет имя и путь одним условным UPDATE: существование, владелец и
// флаг удаления проверяются тем же выражением. Пути живых потомков переписываются следом.
func (r *FolderRepository) Rename(ctx context.Context, q Querier, ownerID string, id uuid.UUID, name string) (*domain.Folder, error) {
	query := `
        WITH old AS (
            SELECT path FROM folders WHERE id = $3
        )
        UPDATE folders f
        SET name = $1,
            path = COALESCE((SELECT p.path FROM folders p WHERE p.id = f.parent_id), '') || '/' || $2,
            updated_at = CURRENT_TIMESTAMP
        WHERE f.id = $3 AND f.owner_id = $4 AND f.is_deleted = FALSE
        RETURNING (SELECT path FROM old) AS old_path,` + folderColumns

	var row struct {
		OldPath string `db:"old_path"`
		domain.Folder
	}
	err := sqlx.GetContext(ctx, q, &row, query, name, domain.SanitizeSegment(name), id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrFolderNotFound
		}
		return nil, fmt.Errorf("failed to rename folder: %w", err)
	}

	if row.OldPath != row.Path {
		// Переписываем пути только настоящих потомков: обход идёт по parent_id,
		// путь уникальным не является
		updateSubfoldersQuery := `
            WITH RECURSIVE subfolder AS (
                SELECT id
                FROM folders
                WHERE parent_id = $1 AND is_deleted = FALSE

                UNION ALL

                SELECT f.id
                FROM folders f
                INNER JOIN subfolder s ON f.parent_id = s.id
                WHERE f.is_deleted = FALSE
            )
            UPDATE folders
            SET path = $3::text || substr(path, length($2::text) + 1),
                updated_at = CURRENT_TIMESTAMP
            WHERE id IN (SELECT id FROM subfolder)`

		if _, err := q.ExecContext(ctx, updateSubfoldersQuery, row.ID, row.OldPath, row.Path); err != nil {
			return nil, fmt.Errorf("failed to update subfolders paths: %w", err)
		}
	}

	return &row.Folder, nil
}

// SoftDeleteTree помечает папку и всех её неудалённых потомков как удалённые.
// Корень поддерева проверяется условием is_deleted = FALSE и владельцем;
// если он не найден, ничего не меняется.
func (r *FolderRepository) SoftDeleteTree(ctx context.Context, q Querier, ownerID string, id uuid.UUID) ([]uuid.UUID, error) {
	query := `
        WITH RECURSIVE subfolder AS (
            SELECT id
            FROM folders
            WHERE id = $1 AND owner_id = $2 AND is_deleted = FALSE

            UNION ALL

            SELECT f.id
            FROM folders f
            INNER JOIN subfolder s ON f.parent_id = s.id
            WHERE f.is_deleted = FALSE
        )
        UPDATE folders
        SET is_deleted = TRUE,
            deleted_at = CURRENT_TIMESTAMP,
            updated_at = CURRENT_TIMESTAMP
        WHERE id IN (SELECT id FROM subfolder)
        AND is_deleted = FALSE
        RETURNING id`

	var ids []uuid.UUID
	if err := sqlx.SelectContext(ctx, q, &ids, query, id, ownerID); err != nil {
		return nil, fmt.Errorf("failed to delete folder: %w", err)
	}

	// Строки корня нет в результате: его не существовало или он уже удалён
	found := false
	for _, deleted := range ids {
		if deleted == id {
			found = true
			break
		}
	}
	if !found {
		return nil, domain.ErrFolderNotFound
	}

	return ids, nil
}

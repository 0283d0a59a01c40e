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

type StorageQuotaRepository struct{}

func NewStorageQuotaRepository() *StorageQuotaRepository {
	return &StorageQuotaRepository{}
}

// GetQuota возвращает счётчики пользователя; отсутствие строки означает нули
func (r *StorageQuotaRepository) GetQuota(ctx context.Context, q Querier, userID string) (*domain.UserQuota, error) {
	var quota domain.UserQuota

	err := sqlx.GetContext(ctx, q, &quota, `
        SELECT user_id, folder_count, file_count, used_storage_bytes, created_at, updated_at
        FROM user_quotas
        WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.UserQuota{UserID: userID}, nil
		}
		return nil, fmt.Errorf("failed to get quota: %w", err)
	}

	return &quota, nil
}

// GetFolderStats возвращает агрегаты папки; отсутствие строки означает нули
func (r *StorageQuotaRepository) GetFolderStats(ctx context.Context, q Querier, folderID uuid.UUID) (*domain.FolderStats, error) {
	var stats domain.FolderStats

	err := sqlx.GetContext(ctx, q, &stats, `
        SELECT folder_id, file_count, size_bytes, updated_at
        FROM folder_stats
        WHERE folder_id = $1`, folderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.FolderStats{FolderID: folderID}, nil
		}
		return nil, fmt.Errorf("failed to get folder stats: %w", err)
	}

	return &stats, nil
}

// ReserveFile одним выражением проверяет лимит и увеличивает счётчики пользователя.
// Строка создаётся при первой резервации. ON CONFLICT DO UPDATE берёт блокировку строки
// и перепроверяет условие на последней версии, поэтому параллельные резервации не
// проскакивают за лимит.
func (r *StorageQuotaRepository) ReserveFile(ctx context.Context, q Querier, userID string, sizeBytes int64, limit int) error {
	query := `
        INSERT INTO user_quotas (user_id, folder_count, file_count, used_storage_bytes)
        SELECT $1::varchar, 0, 1, $2::bigint
        WHERE $3::int > 0
        ON CONFLICT (user_id) DO UPDATE
        SET file_count = user_quotas.file_count + 1,
            used_storage_bytes = user_quotas.used_storage_bytes + EXCLUDED.used_storage_bytes,
            updated_at = CURRENT_TIMESTAMP
        WHERE user_quotas.file_count < $3::int
        RETURNING file_count`

	var fileCount int
	err := q.QueryRowxContext(ctx, query, userID, sizeBytes, limit).Scan(&fileCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrTotalFileLimitReached
		}
		return fmt.Errorf("failed to reserve user quota: %w", err)
	}

	return nil
}

// ReserveFolderFile делает то же для папки: file_count < files_per_folder_limit
func (r *StorageQuotaRepository) ReserveFolderFile(ctx context.Context, q Querier, folderID uuid.UUID, sizeBytes int64, limit int) error {
	query := `
        INSERT INTO folder_stats (folder_id, file_count, size_bytes)
        SELECT $1::uuid, 1, $2::bigint
        WHERE $3::int > 0
        ON CONFLICT (folder_id) DO UPDATE
        SET file_count = folder_stats.file_count + 1,
            size_bytes = folder_stats.size_bytes + EXCLUDED.size_bytes,
            updated_at = CURRENT_TIMESTAMP
        WHERE folder_stats.file_count < $3::int
        RETURNING file_count`

	var fileCount int
	err := q.QueryRowxContext(ctx, query, folderID, sizeBytes, limit).Scan(&fileCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrFolderFileLimitReached
		}
		return fmt.Errorf("failed to reserve folder stats: %w", err)
	}

	return nil
}

// ReserveFolderSlot резервирует место под новую папку: folder_count < max_folders
func (r *StorageQuotaRepository) ReserveFolderSlot(ctx context.Context, q Querier, userID string, limit int) error {
	query := `
        INSERT INTO user_quotas (user_id, folder_count, file_count, used_storage_bytes)
        SELECT $1::varchar, 1, 0, 0
        WHERE $2::int > 0
        ON CONFLICT (user_id) DO UPDATE
        SET folder_count = user_quotas.folder_count + 1,
            updated_at = CURRENT_TIMESTAMP
        WHERE user_quotas.folder_count < $2::int
        RETURNING folder_count`

	var folderCount int
	err := q.QueryRowxContext(ctx, query, userID, limit).Scan(&folderCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrFolderLimitReached
		}
		return fmt.Errorf("failed to reserve folder slot: %w", err)
	}

	return nil
}

// ReleaseUser уменьшает счётчики пользователя с полом в ноль
func (r *StorageQuotaRepository) ReleaseUser(ctx context.Context, q Querier, userID string, delta domain.Usage) error {
	query := `
        UPDATE user_quotas
        SET folder_count = GREATEST(0, folder_count - $2),
            file_count = GREATEST(0, file_count - $3),
            used_storage_bytes = GREATEST(0, used_storage_bytes - $4),
            updated_at = CURRENT_TIMESTAMP
        WHERE user_id = $1`

	// Нет строки, значит счётчики нулевые и уменьшать нечего
	if _, err := q.ExecContext(ctx, query, userID, delta.Folders, delta.Files, delta.Bytes); err != nil {
		return fmt.Errorf("failed to release user quota: %w", err)
	}

	return nil
}

// ReleaseFolder уменьшает агрегаты папки с полом в ноль
func (r *StorageQuotaRepository) ReleaseFolder(ctx context.Context, q Querier, folderID uuid.UUID, files int, sizeBytes int64) error {
	query := `
        UPDATE folder_stats
        SET file_count = GREATEST(0, file_count - $2),
            size_bytes = GREATEST(0, size_bytes - $3),
            updated_at = CURRENT_TIMESTAMP
        WHERE folder_id = $1`

	if _, err := q.ExecContext(ctx, query, folderID, files, sizeBytes); err != nil {
		return fmt.Errorf("failed to release folder stats: %w", err)
	}

	return nil
}

// ClearFolderStats обнуляет агрегаты удалённых папок
func (r *StorageQuotaRepository) ClearFolderStats(ctx context.Context, q Querier, folderIDs []uuid.UUID) error {
	if len(folderIDs) == 0 {
		return nil
	}

	query := `
        UPDATE folder_stats
        SET file_count = 0,
            size_bytes = 0,
            updated_at = CURRENT_TIMESTAMP
        WHERE folder_id = ANY($1::uuid[])`

	if _, err := q.ExecContext(ctx, query, pq.Array(uuidStrings(folderIDs))); err != nil {
		return fmt.Errorf("failed to clear folder stats: %w", err)
	}

	return nil
}

// ListUserIDs возвращает пользователей, у которых есть строка квоты
func (r *StorageQuotaRepository) ListUserIDs(ctx context.Context, q Querier) ([]string, error) {
	var ids []string
	if err := sqlx.SelectContext(ctx, q, &ids, `SELECT user_id FROM user_quotas ORDER BY user_id`); err != nil {
		return nil, fmt.Errorf("failed to list quota owners: %w", err)
	}
	return ids, nil
}

// Recalculate пересчитывает счётчики пользователя и его папок по живым строкам.
// Исправляет дрейф, накопленный, например, после сбоя между шагами. Вызывать в транзакции.
// Блокировки берутся в порядке пользователь, затем папки, как при резервации. Подсчёт идёт
// отдельными выражениями после блокировок и видит загрузки, зафиксированные до них.
func (r *StorageQuotaRepository) Recalculate(ctx context.Context, q Querier, userID string) (*domain.UserQuota, error) {
	ensureQuery := `
        INSERT INTO user_quotas (user_id)
        VALUES ($1)
        ON CONFLICT (user_id) DO NOTHING`

	if _, err := q.ExecContext(ctx, ensureQuery, userID); err != nil {
		return nil, fmt.Errorf("failed to ensure user quota: %w", err)
	}

	var locked string
	lockQuotaQuery := `
        SELECT user_id
        FROM user_quotas
        WHERE user_id = $1
        FOR UPDATE`

	if err := q.QueryRowxContext(ctx, lockQuotaQuery, userID).Scan(&locked); err != nil {
		return nil, fmt.Errorf("failed to lock user quota: %w", err)
	}

	var lockedFolders []uuid.UUID
	lockStatsQuery := `
        SELECT fs.folder_id
        FROM folder_stats fs
        INNER JOIN folders f ON f.id = fs.folder_id
        WHERE f.owner_id = $1
        ORDER BY fs.folder_id
        FOR UPDATE OF fs`

	if err := sqlx.SelectContext(ctx, q, &lockedFolders, lockStatsQuery, userID); err != nil {
		return nil, fmt.Errorf("failed to lock folder stats: %w", err)
	}

	quotaQuery := `
        UPDATE user_quotas
        SET folder_count = (SELECT COUNT(*) FROM folders WHERE owner_id = $1 AND is_deleted = FALSE),
            file_count = (SELECT COUNT(*) FROM files WHERE owner_id = $1 AND is_deleted = FALSE),
            used_storage_bytes = (SELECT COALESCE(SUM(size_bytes), 0) FROM files WHERE owner_id = $1 AND is_deleted = FALSE),
            updated_at = CURRENT_TIMESTAMP
        WHERE user_id = $1
        RETURNING user_id, folder_count, file_count, used_storage_bytes, created_at, updated_at`

	var quota domain.UserQuota
	if err := sqlx.GetContext(ctx, q, &quota, quotaQuery, userID); err != nil {
		return nil, fmt.Errorf("failed to recalculate user quota: %w", err)
	}

	statsQuery := `
        INSERT INTO folder_stats (folder_id, file_count, size_bytes)
        SELECT
            d.id,
            COUNT(f.id),
            COALESCE(SUM(f.size_bytes), 0)
        FROM folders d
        LEFT JOIN files f ON f.folder_id = d.id AND f.is_deleted = FALSE
        WHERE d.owner_id = $1
        GROUP BY d.id
        ON CONFLICT (folder_id) DO UPDATE
        SET file_count = EXCLUDED.file_count,
            size_bytes = EXCLUDED.size_bytes,
            updated_at = CURRENT_TIMESTAMP`

	if _, err := q.ExecContext(ctx, statsQuery, userID); err != nil {
		return nil, fmt.Errorf("failed to recalculate folder stats: %w", err)
	}

	return &quota, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

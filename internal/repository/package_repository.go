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

const packageColumns = `
            id, name, slug, description, max_folders, max_nesting_level,
            max_file_size_mb, total_file_limit, files_per_folder_limit,
            allowed_mime_types, created_at, updated_at`

type PackageRepository struct{}

func NewPackageRepository() *PackageRepository {
	return &PackageRepository{}
}

func (r *PackageRepository) List(ctx context.Context, q Querier) ([]domain.SubscriptionPackage, error) {
	query := `
        SELECT` + packageColumns + `
        FROM subscription_packages
        ORDER BY total_file_limit ASC, name ASC`

	packages := make([]domain.SubscriptionPackage, 0)
	if err := sqlx.SelectContext(ctx, q, &packages, query); err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}

	return packages, nil
}

func (r *PackageRepository) GetByID(ctx context.Context, q Querier, id uuid.UUID) (*domain.SubscriptionPackage, error) {
	query := `
        SELECT` + packageColumns + `
        FROM subscription_packages
        WHERE id = $1`

	var pkg domain.SubscriptionPackage
	err := sqlx.GetContext(ctx, q, &pkg, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPackageNotFound
		}
		return nil, fmt.Errorf("failed to get package: %w", err)
	}

	return &pkg, nil
}

func (r *PackageRepository) Create(ctx context.Context, q Querier, pkg *domain.SubscriptionPackage) error {
	query := `
        INSERT INTO subscription_packages (
            id, name, slug, description, max_folders, max_nesting_level,
            max_file_size_mb, total_file_limit, files_per_folder_limit, allowed_mime_types
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING created_at, updated_at`

	if pkg.ID == uuid.Nil {
		pkg.ID = uuid.New()
	}

	err := q.QueryRowxContext(ctx, query,
		pkg.ID,
		pkg.Name,
		pkg.Slug,
		pkg.Description,
		pkg.MaxFolders,
		pkg.MaxNestingLevel,
		pkg.MaxFileSizeMB,
		pkg.TotalFileLimit,
		pkg.FilesPerFolderLimit,
		pkg.AllowedMIMETypes,
	).Scan(&pkg.CreatedAt, &pkg.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrPackageConflict
		}
		return fmt.Errorf("failed to create package: %w", err)
	}

	return nil
}

package service

import (
	"context"

	"github.com/google/uuid"
	"tierdrive/internal/domain"
	"tierdrive/internal/repository"
)

// TxRunner выдаёт атомарную единицу работы; реализуется repository.TxManager
type TxRunner interface {
	Querier() repository.Querier
	WithTx(ctx context.Context, fn func(q repository.Querier) error) error
}

type FolderStore interface {
	Create(ctx context.Context, q repository.Querier, folder *domain.Folder) error
	GetOwned(ctx context.Context, q repository.Querier, ownerID string, id uuid.UUID, lock bool) (*domain.Folder, error)
	ListByParent(ctx context.Context, q repository.Querier, ownerID string, parentID *uuid.UUID) ([]domain.Folder, error)
	Rename(ctx context.Context, q repository.Querier, ownerID string, id uuid.UUID, name string) (*domain.Folder, error)
	SoftDeleteTree(ctx context.Context, q repository.Querier, ownerID string, id uuid.UUID) ([]uuid.UUID, error)
}

type FileStore interface {
	Create(ctx context.Context, q repository.Querier, file *domain.File) error
	CreateVersion(ctx context.Context, q repository.Querier, version *domain.FileVersion) error
	GetOwned(ctx context.Context, q repository.Querier, ownerID string, id uuid.UUID) (*domain.File, error)
	ListByFolder(ctx context.Context, q repository.Querier, ownerID string, folderID *uuid.UUID) ([]domain.File, error)
	Rename(ctx context.Context, q repository.Querier, ownerID string, id uuid.UUID, filename string) (*domain.File, error)
	SoftDelete(ctx context.Context, q repository.Querier, ownerID string, id uuid.UUID) (*domain.File, error)
	SoftDeleteByFolders(ctx context.Context, q repository.Querier, ownerID string, folderIDs []uuid.UUID) (int, int64, error)
	ListVersions(ctx context.Context, q repository.Querier, fileID uuid.UUID) ([]domain.FileVersion, error)
}

type QuotaStore interface {
	GetQuota(ctx context.Context, q repository.Querier, userID string) (*domain.UserQuota, error)
	GetFolderStats(ctx context.Context, q repository.Querier, folderID uuid.UUID) (*domain.FolderStats, error)
	ReserveFile(ctx context.Context, q repository.Querier, userID string, sizeBytes int64, limit int) error
	ReserveFolderFile(ctx context.Context, q repository.Querier, folderID uuid.UUID, sizeBytes int64, limit int) error
	ReserveFolderSlot(ctx context.Context, q repository.Querier, userID string, limit int) error
	ReleaseUser(ctx context.Context, q repository.Querier, userID string, delta domain.Usage) error
	ReleaseFolder(ctx context.Context, q repository.Querier, folderID uuid.UUID, files int, sizeBytes int64) error
	ClearFolderStats(ctx context.Context, q repository.Querier, folderIDs []uuid.UUID) error
	ListUserIDs(ctx context.Context, q repository.Querier) ([]string, error)
	Recalculate(ctx context.Context, q repository.Querier, userID string) (*domain.UserQuota, error)
}

type SubscriptionStore interface {
	FindActivePolicy(ctx context.Context, q repository.Querier, userID string) (*domain.Policy, error)
	Activate(ctx context.Context, q repository.Querier, userID string, packageID uuid.UUID) (*domain.UserSubscription, error)
	ListByUser(ctx context.Context, q repository.Querier, userID string) ([]domain.UserSubscription, error)
}

type PackageStore interface {
	List(ctx context.Context, q repository.Querier) ([]domain.SubscriptionPackage, error)
	GetByID(ctx context.Context, q repository.Querier, id uuid.UUID) (*domain.SubscriptionPackage, error)
	Create(ctx context.Context, q repository.Querier, pkg *domain.SubscriptionPackage) error
}

// BlobStore хранит содержимое файлов (S3 или локальный диск)
type BlobStore interface {
	// Put сохраняет содержимое и возвращает непрозрачный ключ объекта
	Put(ctx context.Context, data []byte, contentType, logicalName string) (string, error)
	Delete(ctx context.Context, key string) error
}

var (
	_ TxRunner          = (*repository.TxManager)(nil)
	_ FolderStore       = (*repository.FolderRepository)(nil)
	_ FileStore         = (*repository.FileRepository)(nil)
	_ QuotaStore        = (*repository.StorageQuotaRepository)(nil)
	_ SubscriptionStore = (*repository.SubscriptionRepository)(nil)
	_ PackageStore      = (*repository.PackageRepository)(nil)
)

package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"tierdrive/internal/domain"
	"tierdrive/internal/repository"
)

const maxFolderNameLength = 128

type FolderService struct {
	tx       TxRunner
	folders  FolderStore
	files    FileStore
	ledger   *QuotaLedger
	policies *PolicyResolver
	logger   *zap.Logger
}

func NewFolderService(
	tx TxRunner,
	folders FolderStore,
	files FileStore,
	ledger *QuotaLedger,
	policies *PolicyResolver,
	logger *zap.Logger,
) *FolderService {
	return &FolderService{
		tx:       tx,
		folders:  folders,
		files:    files,
		ledger:   ledger,
		policies: policies,
		logger:   logger.Named("folders"),
	}
}

func validateFolderName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.InvalidInput("folder name is required")
	}
	if utf8.RuneCountInString(name) > maxFolderNameLength {
		return "", domain.InvalidInput("folder name must be at most 128 characters")
	}
	if strings.Contains(name, "/") {
		return "", domain.InvalidInput("folder name must not contain '/'")
	}
	return name, nil
}

// ListFolders возвращает папки владельца на одном уровне; parentID == nil означает корень
func (s *FolderService) ListFolders(ctx context.Context, ownerID string, parentID *uuid.UUID) ([]domain.Folder, error) {
	return s.folders.ListByParent(ctx, s.tx.Querier(), ownerID, parentID)
}

// CreateFolder создаёт папку с вычисленными путём и глубиной. Лимиты пакета
// (число папок и вложенность) проверяются в той же транзакции, что и вставка.
func (s *FolderService) CreateFolder(ctx context.Context, ownerID string, parentID *uuid.UUID, name string) (*domain.Folder, error) {
	name, err := validateFolderName(name)
	if err != nil {
		return nil, err
	}

	var folder *domain.Folder
	err = s.tx.WithTx(ctx, func(q repository.Querier) error {
		policy, err := s.policies.resolveIn(ctx, q, ownerID)
		if err != nil {
			return err
		}

		var parent *domain.Folder
		if parentID != nil {
			// FOR SHARE: родителя не удалят, пока мы не закоммитим ребёнка
			parent, err = s.folders.GetOwned(ctx, q, ownerID, *parentID, true)
			if err != nil {
				if errors.Is(err, domain.ErrFolderNotFound) {
					return domain.ErrParentNotFound
				}
				return err
			}
		}

		depth := domain.ChildDepth(parent)
		if depth > policy.MaxNestingLevel {
			return domain.ErrNestingLimitExceeded
		}

		if err := s.ledger.ReserveFolderSlot(ctx, q, ownerID, policy); err != nil {
			return err
		}

		parentPath := ""
		if parent != nil {
			parentPath = parent.Path
		}

		folder = &domain.Folder{
			OwnerID:  ownerID,
			ParentID: parentID,
			Name:     name,
			Path:     domain.BuildPath(parentPath, name),
			Depth:    depth,
		}
		return s.folders.Create(ctx, q, folder)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("folder created",
		zap.String("owner_id", ownerID),
		zap.Stringer("folder_id", folder.ID),
		zap.String("path", folder.Path))

	return folder, nil
}

// RenameFolder меняет имя; путь папки и её потомков пересчитывается в той же транзакции
func (s *FolderService) RenameFolder(ctx context.Context, ownerID string, id uuid.UUID, name string) (*domain.Folder, error) {
	name, err := validateFolderName(name)
	if err != nil {
		return nil, err
	}

	var folder *domain.Folder
	err = s.tx.WithTx(ctx, func(q repository.Querier) error {
		renamed, err := s.folders.Rename(ctx, q, ownerID, id, name)
		if err != nil {
			return err
		}
		folder = renamed
		return nil
	})
	if err != nil {
		return nil, err
	}

	return folder, nil
}

// DeleteFolder мягко удаляет папку, её потомков и файлы внутри них,
// освобождая квоту пользователя на всё снятое
func (s *FolderService) DeleteFolder(ctx context.Context, ownerID string, id uuid.UUID) error {
	var removal domain.FolderRemoval

	err := s.tx.WithTx(ctx, func(q repository.Querier) error {
		ids, err := s.folders.SoftDeleteTree(ctx, q, ownerID, id)
		if err != nil {
			return err
		}

		files, bytes, err := s.files.SoftDeleteByFolders(ctx, q, ownerID, ids)
		if err != nil {
			return err
		}

		removal = domain.FolderRemoval{FolderIDs: ids, Files: files, Bytes: bytes}
		return s.ledger.ReleaseFolders(ctx, q, ownerID, removal)
	})
	if err != nil {
		return err
	}

	s.logger.Info("folder deleted",
		zap.String("owner_id", ownerID),
		zap.Stringer("folder_id", id),
		zap.Int("folders", len(removal.FolderIDs)),
		zap.Int("files", removal.Files),
		zap.Int64("bytes", removal.Bytes))

	return nil
}

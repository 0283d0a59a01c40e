package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"tierdrive/internal/domain"
	"tierdrive/internal/metrics"
	"tierdrive/internal/repository"
)

// QuotaLedger ведёт счётчики пользователя (user_quotas) и папок (folder_stats).
// Резервация и освобождение выполняются в транзакции вызывающего, вместе со
// строкой файла или папки, которую они учитывают.
type QuotaLedger struct {
	tx       TxRunner
	quotas   QuotaStore
	policies *PolicyResolver
	logger   *zap.Logger
}

func NewQuotaLedger(tx TxRunner, quotas QuotaStore, policies *PolicyResolver, logger *zap.Logger) *QuotaLedger {
	return &QuotaLedger{
		tx:       tx,
		quotas:   quotas,
		policies: policies,
		logger:   logger.Named("quota"),
	}
}

// CheckAndReserve резервирует место под один файл: сначала на уровне пользователя,
// потом на уровне папки. Каждая проверка с инкрементом выполняется одним условным выражением.
func (l *QuotaLedger) CheckAndReserve(ctx context.Context, q repository.Querier, userID string, folderID *uuid.UUID, sizeBytes int64, policy *domain.Policy) error {
	if err := l.quotas.ReserveFile(ctx, q, userID, sizeBytes, policy.TotalFileLimit); err != nil {
		return err
	}

	if folderID != nil {
		if err := l.quotas.ReserveFolderFile(ctx, q, *folderID, sizeBytes, policy.FilesPerFolderLimit); err != nil {
			return err
		}
	}

	return nil
}

// Release снимает вклад одного файла; счётчики не уходят ниже нуля
func (l *QuotaLedger) Release(ctx context.Context, q repository.Querier, userID string, folderID *uuid.UUID, sizeBytes int64) error {
	if err := l.quotas.ReleaseUser(ctx, q, userID, domain.Usage{Files: 1, Bytes: sizeBytes}); err != nil {
		return err
	}

	if folderID != nil {
		if err := l.quotas.ReleaseFolder(ctx, q, *folderID, 1, sizeBytes); err != nil {
			return err
		}
	}

	return nil
}

func (l *QuotaLedger) ReserveFolderSlot(ctx context.Context, q repository.Querier, userID string, policy *domain.Policy) error {
	return l.quotas.ReserveFolderSlot(ctx, q, userID, policy.MaxFolders)
}

// ReleaseFolders снимает вклад удалённого поддерева: папки, их файлы и байты
func (l *QuotaLedger) ReleaseFolders(ctx context.Context, q repository.Querier, userID string, removal domain.FolderRemoval) error {
	delta := domain.Usage{
		Folders: len(removal.FolderIDs),
		Files:   removal.Files,
		Bytes:   removal.Bytes,
	}
	if err := l.quotas.ReleaseUser(ctx, q, userID, delta); err != nil {
		return err
	}
	return l.quotas.ClearFolderStats(ctx, q, removal.FolderIDs)
}

// precheck проверяет лимиты по зафиксированному состоянию, ничего не резервируя. Отсекает
// заведомо отклонённые загрузки до обращения к хранилищу; решающей остаётся CheckAndReserve.
func (l *QuotaLedger) precheck(ctx context.Context, userID string, folderID *uuid.UUID, policy *domain.Policy) error {
	q := l.tx.Querier()

	quota, err := l.quotas.GetQuota(ctx, q, userID)
	if err != nil {
		return err
	}
	if quota.FileCount+1 > policy.TotalFileLimit {
		return domain.ErrTotalFileLimitReached
	}

	if folderID != nil {
		stats, err := l.quotas.GetFolderStats(ctx, q, *folderID)
		if err != nil {
			return err
		}
		if stats.FileCount+1 > policy.FilesPerFolderLimit {
			return domain.ErrFolderFileLimitReached
		}
	}

	return nil
}

// Usage возвращает счётчики пользователя и, если есть активная подписка, её лимиты
func (l *QuotaLedger) Usage(ctx context.Context, userID string) (*domain.QuotaInfo, error) {
	quota, err := l.quotas.GetQuota(ctx, l.tx.Querier(), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quota: %w", err)
	}

	info := &domain.QuotaInfo{
		FolderCount:      quota.FolderCount,
		FileCount:        quota.FileCount,
		UsedStorageBytes: quota.UsedStorageBytes,
	}

	policy, err := l.policies.ResolveActive(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrSubscriptionRequired) {
			return info, nil
		}
		return nil, err
	}

	filesRemaining := max(0, policy.TotalFileLimit-quota.FileCount)
	foldersRemaining := max(0, policy.MaxFolders-quota.FolderCount)

	info.Policy = policy
	info.FilesRemaining = &filesRemaining
	info.FoldersRemaining = &foldersRemaining
	// при нулевом лимите процент не определён и в ответ не попадает
	if policy.TotalFileLimit > 0 {
		usagePercent := float64(quota.FileCount) / float64(policy.TotalFileLimit) * 100
		info.UsagePercent = &usagePercent
	}

	return info, nil
}

// Reconcile пересчитывает счётчики пользователя по живым строкам
func (l *QuotaLedger) Reconcile(ctx context.Context, userID string) (*domain.UserQuota, error) {
	var quota *domain.UserQuota
	err := l.tx.WithTx(ctx, func(q repository.Querier) error {
		var err error
		quota, err = l.quotas.Recalculate(ctx, q, userID)
		return err
	})
	metrics.ReconcileRuns.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}
	return quota, nil
}

// ReconcileAll проходит по всем пользователям с квотой. Ошибка одного
// пользователя не останавливает остальных; все ошибки возвращаются вместе.
func (l *QuotaLedger) ReconcileAll(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		metrics.ReconcileRuntime.Observe(time.Since(start).Seconds())
	}()

	userIDs, err := l.quotas.ListUserIDs(ctx, l.tx.Querier())
	if err != nil {
		return 0, err
	}

	var (
		errs error
		done int
	)
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		if _, err := l.Reconcile(ctx, userID); err != nil {
			l.logger.Warn("reconcile failed", zap.String("user_id", userID), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("user %s: %w", userID, err))
			continue
		}
		done++
	}

	l.logger.Info("reconcile pass finished",
		zap.Int("users", len(userIDs)),
		zap.Int("reconciled", done),
		zap.Duration("elapsed", time.Since(start)))

	return done, errs
}

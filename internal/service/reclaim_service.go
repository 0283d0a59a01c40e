package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"tierdrive/internal/domain"
	"tierdrive/internal/metrics"
	"tierdrive/internal/repository"
)

// ReclaimService мягко удаляет файлы и возвращает их вклад в квоту.
// Объекты в хранилище не трогаются: они остаются историей версий.
type ReclaimService struct {
	tx     TxRunner
	files  FileStore
	ledger *QuotaLedger
	logger *zap.Logger
}

func NewReclaimService(tx TxRunner, files FileStore, ledger *QuotaLedger, logger *zap.Logger) *ReclaimService {
	return &ReclaimService{
		tx:     tx,
		files:  files,
		ledger: ledger,
		logger: logger.Named("reclaim"),
	}
}

// DeleteFile удаляет файл владельца. Повторное удаление того же файла
// возвращает ErrFileNotFound, счётчики при этом не меняются.
func (s *ReclaimService) DeleteFile(ctx context.Context, ownerID string, id uuid.UUID) error {
	if _, err := s.files.GetOwned(ctx, s.tx.Querier(), ownerID, id); err != nil {
		metrics.FileDeletes.WithLabelValues(metrics.ResultError).Inc()
		return err
	}

	var deleted *domain.File
	err := s.tx.WithTx(ctx, func(q repository.Querier) error {
		// Условие is_deleted = FALSE проверяется ещё раз: между поиском и
		// транзакцией файл мог удалить параллельный запрос
		file, err := s.files.SoftDelete(ctx, q, ownerID, id)
		if err != nil {
			return err
		}

		if err := s.ledger.Release(ctx, q, ownerID, file.FolderID, file.SizeBytes); err != nil {
			return err
		}

		deleted = file
		return nil
	})
	metrics.FileDeletes.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return err
	}

	s.logger.Info("file deleted",
		zap.String("owner_id", ownerID),
		zap.Stringer("file_id", deleted.ID),
		zap.Int64("size_bytes", deleted.SizeBytes))

	return nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"tierdrive/internal/domain"
	"tierdrive/internal/metrics"
	"tierdrive/internal/repository"
)

const (
	maxFilenameLength  = 255
	defaultContentType = "application/octet-stream"
)

// UploadState описывает шаги загрузки; Aborted достижим из любого незавершённого состояния
type UploadState int

const (
	UploadReceived UploadState = iota
	UploadPolicyResolved
	UploadFolderValidated
	UploadSizeChecked
	UploadTypeChecked
	UploadCapacityReserved
	UploadPersisted
	UploadCommitted
	UploadAborted
)

var uploadStateNames = [...]string{
	UploadReceived:         "received",
	UploadPolicyResolved:   "policy_resolved",
	UploadFolderValidated:  "folder_validated",
	UploadSizeChecked:      "size_checked",
	UploadTypeChecked:      "type_checked",
	UploadCapacityReserved: "capacity_reserved",
	UploadPersisted:        "persisted",
	UploadCommitted:        "committed",
	UploadAborted:          "aborted",
}

func (s UploadState) String() string {
	if s < 0 || int(s) >= len(uploadStateNames) {
		return "unknown"
	}
	return uploadStateNames[s]
}

// Terminal сообщает, что из состояния больше нет переходов
func (s UploadState) Terminal() bool {
	return s == UploadCommitted || s == UploadAborted
}

// uploadRun отслеживает одну загрузку: текущее состояние и последнее
// достигнутое до отката
type uploadRun struct {
	state   UploadState
	reached UploadState
}

func (r *uploadRun) advance(next UploadState) {
	if r.state.Terminal() {
		return
	}
	r.state = next
	r.reached = next
}

func (r *uploadRun) abort() {
	if r.state.Terminal() {
		return
	}
	r.state = UploadAborted
}

type FileService struct {
	tx       TxRunner
	files    FileStore
	folders  FolderStore
	ledger   *QuotaLedger
	policies *PolicyResolver
	blobs    BlobStore
	logger   *zap.Logger
}

func NewFileService(
	tx TxRunner,
	files FileStore,
	folders FolderStore,
	ledger *QuotaLedger,
	policies *PolicyResolver,
	blobs BlobStore,
	logger *zap.Logger,
) *FileService {
	return &FileService{
		tx:       tx,
		files:    files,
		folders:  folders,
		ledger:   ledger,
		policies: policies,
		blobs:    blobs,
		logger:   logger.Named("files"),
	}
}

// normalizeUpload проверяет вход до ядра: пустое содержимое и пустое имя
// отклоняются, тип содержимого приводится к виду "type/subtype"
func normalizeUpload(upload *domain.FileUpload) error {
	if upload == nil {
		return domain.InvalidInput("file is required")
	}
	if strings.TrimSpace(upload.OwnerID) == "" {
		return domain.ErrAuthRequired
	}
	if len(upload.Data) == 0 {
		return domain.InvalidInput("file is empty")
	}

	upload.OriginalName = strings.TrimSpace(upload.OriginalName)
	if upload.OriginalName == "" {
		return domain.InvalidInput("file name is required")
	}
	if utf8.RuneCountInString(upload.OriginalName) > maxFilenameLength {
		return domain.InvalidInput("file name must be at most 255 characters")
	}

	contentType := strings.TrimSpace(upload.MIMEType)
	if contentType == "" {
		upload.MIMEType = defaultContentType
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return domain.InvalidInput("invalid content type")
	}
	upload.MIMEType = mediaType

	return nil
}

// validateUpload проходит шаги политика → папка → размер → тип.
// lock = true берёт папку FOR SHARE, это нужно только внутри транзакции.
func (s *FileService) validateUpload(ctx context.Context, q repository.Querier, upload *domain.FileUpload, run *uploadRun, lock bool) (*domain.Policy, error) {
	policy, err := s.policies.resolveIn(ctx, q, upload.OwnerID)
	if err != nil {
		return nil, err
	}
	run.advance(UploadPolicyResolved)

	if upload.FolderID != nil {
		if _, err := s.folders.GetOwned(ctx, q, upload.OwnerID, *upload.FolderID, lock); err != nil {
			return nil, err
		}
	}
	run.advance(UploadFolderValidated)

	if upload.Size() > policy.MaxFileSizeBytes() {
		return nil, domain.ErrFileTooLargeForPackage
	}
	run.advance(UploadSizeChecked)

	if !policy.AllowsMIMEType(upload.MIMEType) {
		return nil, domain.ErrMimeTypeNotAllowed
	}
	run.advance(UploadTypeChecked)

	return policy, nil
}

// UploadFile сохраняет содержимое в хранилище и фиксирует файл, первую версию
// и счётчики квоты одной транзакцией. Проверки сначала прогоняются по
// зафиксированному состоянию, чтобы заведомо отклонённая загрузка не дошла до
// хранилища; в транзакции они повторяются и решают окончательно. Если
// транзакция откатилась, сохранённый объект удаляется.
func (s *FileService) UploadFile(ctx context.Context, upload *domain.FileUpload) (*domain.File, error) {
	run := &uploadRun{state: UploadReceived}

	file, err := s.upload(ctx, upload, run)
	if err != nil {
		run.abort()
		s.recordUpload(run, err)
		s.logger.Info("upload aborted",
			zap.String("owner_id", ownerOf(upload)),
			zap.Stringer("reached", run.reached),
			zap.Error(err))
		return nil, err
	}

	run.advance(UploadCommitted)
	s.recordUpload(run, nil)
	metrics.UploadedBytes.Add(float64(file.SizeBytes))

	s.logger.Info("upload committed",
		zap.String("owner_id", file.OwnerID),
		zap.Stringer("file_id", file.ID),
		zap.Int64("size_bytes", file.SizeBytes),
		zap.String("mime_type", file.MIMEType))

	return file, nil
}

func (s *FileService) upload(ctx context.Context, upload *domain.FileUpload, run *uploadRun) (*domain.File, error) {
	if err := normalizeUpload(upload); err != nil {
		return nil, err
	}

	policy, err := s.validateUpload(ctx, s.tx.Querier(), upload, run, false)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.precheck(ctx, upload.OwnerID, upload.FolderID, policy); err != nil {
		return nil, err
	}

	storageKey, err := s.blobs.Put(ctx, upload.Data, upload.MIMEType, upload.OriginalName)
	if err != nil {
		return nil, fmt.Errorf("failed to store file content: %w", err)
	}

	var file *domain.File
	err = s.tx.WithTx(ctx, func(q repository.Querier) error {
		run.advance(UploadReceived)

		policy, err := s.validateUpload(ctx, q, upload, run, true)
		if err != nil {
			return err
		}

		if err := s.ledger.CheckAndReserve(ctx, q, upload.OwnerID, upload.FolderID, upload.Size(), policy); err != nil {
			return err
		}
		run.advance(UploadCapacityReserved)

		created := &domain.File{
			ID:           uuid.New(),
			OwnerID:      upload.OwnerID,
			FolderID:     upload.FolderID,
			Filename:     upload.OriginalName,
			OriginalName: upload.OriginalName,
			SizeBytes:    upload.Size(),
			MIMEType:     upload.MIMEType,
			StorageKey:   storageKey,
		}
		if err := s.files.Create(ctx, q, created); err != nil {
			return err
		}

		version := &domain.FileVersion{
			FileID:        created.ID,
			VersionNumber: 1,
			StorageKey:    storageKey,
			SizeBytes:     created.SizeBytes,
		}
		if err := s.files.CreateVersion(ctx, q, version); err != nil {
			return err
		}
		run.advance(UploadPersisted)

		file = created
		return nil
	})
	if err != nil {
		s.compensate(ctx, storageKey)
		return nil, err
	}

	return file, nil
}

// compensate удаляет объект, оставшийся без строки файла. Ошибка удаления
// только логируется: наружу уходит исходная причина отката.
func (s *FileService) compensate(ctx context.Context, storageKey string) {
	err := s.blobs.Delete(context.WithoutCancel(ctx), storageKey)
	metrics.BlobCompensations.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		s.logger.Error("failed to delete orphaned blob",
			zap.String("storage_key", storageKey),
			zap.Error(err))
	}
}

func (s *FileService) recordUpload(run *uploadRun, err error) {
	metrics.UploadOutcomes.WithLabelValues(run.reached.String(), errorCode(err)).Inc()
}

// ListFiles возвращает файлы владельца в папке; folderID == nil означает корневой уровень
func (s *FileService) ListFiles(ctx context.Context, ownerID string, folderID *uuid.UUID) ([]domain.File, error) {
	return s.files.ListByFolder(ctx, s.tx.Querier(), ownerID, folderID)
}

func (s *FileService) RenameFile(ctx context.Context, ownerID string, id uuid.UUID, filename string) (*domain.File, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, domain.InvalidInput("file name is required")
	}
	if utf8.RuneCountInString(filename) > maxFilenameLength {
		return nil, domain.InvalidInput("file name must be at most 255 characters")
	}

	return s.files.Rename(ctx, s.tx.Querier(), ownerID, id, filename)
}

// ListVersions возвращает историю версий файла, принадлежащего владельцу
func (s *FileService) ListVersions(ctx context.Context, ownerID string, id uuid.UUID) ([]domain.FileVersion, error) {
	q := s.tx.Querier()

	file, err := s.files.GetOwned(ctx, q, ownerID, id)
	if err != nil {
		return nil, err
	}

	return s.files.ListVersions(ctx, q, file.ID)
}

func errorCode(err error) string {
	if err == nil {
		return ""
	}
	if domainErr, ok := domain.AsError(err); ok {
		return domainErr.Code
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "CANCELED"
	}
	return "INTERNAL"
}

func ownerOf(upload *domain.FileUpload) string {
	if upload == nil {
		return ""
	}
	return upload.OwnerID
}

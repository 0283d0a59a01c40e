package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"tierdrive/internal/domain"
)

type PackageService struct {
	tx       TxRunner
	packages PackageStore
}

func NewPackageService(tx TxRunner, packages PackageStore) *PackageService {
	return &PackageService{tx: tx, packages: packages}
}

// PackageInput содержит поля нового пакета подписки
type PackageInput struct {
	Name                string   `json:"name"`
	Slug                string   `json:"slug"`
	Description         *string  `json:"description,omitempty"`
	MaxFolders          int      `json:"max_folders"`
	MaxNestingLevel     int      `json:"max_nesting_level"`
	MaxFileSizeMB       int      `json:"max_file_size_mb"`
	TotalFileLimit      int      `json:"total_file_limit"`
	FilesPerFolderLimit int      `json:"files_per_folder_limit"`
	AllowedMIMETypes    []string `json:"allowed_mime_types"`
}

func (in PackageInput) validate() error {
	if n := len(strings.TrimSpace(in.Name)); n < 2 || n > 64 {
		return domain.InvalidInput("name must be between 2 and 64 characters")
	}
	if n := len(strings.TrimSpace(in.Slug)); n < 2 || n > 64 {
		return domain.InvalidInput("slug must be between 2 and 64 characters")
	}
	limits := []struct {
		name  string
		value int
	}{
		{"max_folders", in.MaxFolders},
		{"max_nesting_level", in.MaxNestingLevel},
		{"max_file_size_mb", in.MaxFileSizeMB},
		{"total_file_limit", in.TotalFileLimit},
		{"files_per_folder_limit", in.FilesPerFolderLimit},
	}
	for _, limit := range limits {
		if limit.value <= 0 {
			return domain.InvalidInput(limit.name + " must be positive")
		}
	}
	if len(in.AllowedMIMETypes) == 0 {
		return domain.InvalidInput("at least one mime type is required")
	}
	return nil
}

func (s *PackageService) List(ctx context.Context) ([]domain.SubscriptionPackage, error) {
	return s.packages.List(ctx, s.tx.Querier())
}

func (s *PackageService) Get(ctx context.Context, id uuid.UUID) (*domain.SubscriptionPackage, error) {
	return s.packages.GetByID(ctx, s.tx.Querier(), id)
}

func (s *PackageService) Create(ctx context.Context, in PackageInput) (*domain.SubscriptionPackage, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	mimeTypes := make(pq.StringArray, 0, len(in.AllowedMIMETypes))
	for _, mimeType := range in.AllowedMIMETypes {
		mimeType = strings.ToLower(strings.TrimSpace(mimeType))
		if mimeType != "" {
			mimeTypes = append(mimeTypes, mimeType)
		}
	}
	if len(mimeTypes) == 0 {
		return nil, domain.InvalidInput("at least one mime type is required")
	}

	pkg := &domain.SubscriptionPackage{
		Name:                strings.TrimSpace(in.Name),
		Slug:                strings.ToLower(strings.TrimSpace(in.Slug)),
		Description:         in.Description,
		MaxFolders:          in.MaxFolders,
		MaxNestingLevel:     in.MaxNestingLevel,
		MaxFileSizeMB:       in.MaxFileSizeMB,
		TotalFileLimit:      in.TotalFileLimit,
		FilesPerFolderLimit: in.FilesPerFolderLimit,
		AllowedMIMETypes:    mimeTypes,
	}
	if err := s.packages.Create(ctx, s.tx.Querier(), pkg); err != nil {
		return nil, err
	}

	return pkg, nil
}

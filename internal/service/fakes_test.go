package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"tierdrive/internal/domain"
	"tierdrive/internal/repository"
)

// memQuerier: хендл фейкового хранилища. Внутри транзакции копит обратные
// операции; вне транзакции изменения применяются сразу.
type memQuerier struct {
	sqlx.ExtContext
	inTx bool
	undo []func()
}

func record(q repository.Querier, fn func()) {
	if mq, ok := q.(*memQuerier); ok && mq.inTx {
		mq.undo = append(mq.undo, fn)
	}
}

// memDB хранит строки всех таблиц. Каждая операция атомарна под мьютексом,
// транзакции друг друга не сериализуют, как и в Postgres при READ COMMITTED.
type memDB struct {
	mu       sync.Mutex
	clock    time.Time
	folders  map[uuid.UUID]*domain.Folder
	files    map[uuid.UUID]*domain.File
	versions []domain.FileVersion
	quotas   map[string]*domain.UserQuota
	stats    map[uuid.UUID]*domain.FolderStats
	packages map[uuid.UUID]*domain.SubscriptionPackage
	subs     []*domain.UserSubscription

	fileCreateErr error
	commits       int
	rollbacks     int
}

func newMemDB() *memDB {
	return &memDB{
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		folders:  map[uuid.UUID]*domain.Folder{},
		files:    map[uuid.UUID]*domain.File{},
		quotas:   map[string]*domain.UserQuota{},
		stats:    map[uuid.UUID]*domain.FolderStats{},
		packages: map[uuid.UUID]*domain.SubscriptionPackage{},
	}
}

func (db *memDB) tick() time.Time {
	db.clock = db.clock.Add(time.Second)
	return db.clock
}

func (db *memDB) quota(userID string) domain.UserQuota {
	db.mu.Lock()
	defer db.mu.Unlock()
	if q, ok := db.quotas[userID]; ok {
		return *q
	}
	return domain.UserQuota{UserID: userID}
}

func (db *memDB) folderStats(id uuid.UUID) domain.FolderStats {
	db.mu.Lock()
	defer db.mu.Unlock()
	if s, ok := db.stats[id]; ok {
		return *s
	}
	return domain.FolderStats{FolderID: id}
}

func (db *memDB) folder(id uuid.UUID) domain.Folder {
	db.mu.Lock()
	defer db.mu.Unlock()
	return *db.folders[id]
}

func (db *memDB) setQuota(userID string, folders, files int, bytes int64) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.quotas[userID] = &domain.UserQuota{UserID: userID, FolderCount: folders, FileCount: files, UsedStorageBytes: bytes}
}

func (db *memDB) setFolderStats(id uuid.UUID, files int, bytes int64) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.stats[id] = &domain.FolderStats{FolderID: id, FileCount: files, SizeBytes: bytes}
}

func (db *memDB) liveFiles(ownerID string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for _, f := range db.files {
		if f.OwnerID == ownerID && !f.IsDeleted {
			n++
		}
	}
	return n
}

// --- TxRunner ---

type memTxRunner struct{ db *memDB }

func (r *memTxRunner) Querier() repository.Querier {
	return &memQuerier{}
}

func (r *memTxRunner) WithTx(ctx context.Context, fn func(q repository.Querier) error) error {
	q := &memQuerier{inTx: true}
	err := fn(q)
	if err == nil {
		err = ctx.Err()
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err != nil {
		for i := len(q.undo) - 1; i >= 0; i-- {
			q.undo[i]()
		}
		r.db.rollbacks++
		return err
	}
	r.db.commits++
	return nil
}

// --- FolderStore ---

type memFolders struct{ db *memDB }

func (s *memFolders) Create(_ context.Context, q repository.Querier, folder *domain.Folder) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if folder.ID == uuid.Nil {
		folder.ID = uuid.New()
	}
	now := s.db.tick()
	folder.CreatedAt, folder.UpdatedAt = now, now
	copied := *folder
	s.db.folders[folder.ID] = &copied
	id := folder.ID
	record(q, func() { delete(s.db.folders, id) })
	return nil
}

func (s *memFolders) GetOwned(_ context.Context, _ repository.Querier, ownerID string, id uuid.UUID, _ bool) (*domain.Folder, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	f, ok := s.db.folders[id]
	if !ok || f.OwnerID != ownerID || f.IsDeleted {
		return nil, domain.ErrFolderNotFound
	}
	copied := *f
	return &copied, nil
}

func (s *memFolders) ListByParent(_ context.Context, _ repository.Querier, ownerID string, parentID *uuid.UUID) ([]domain.Folder, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]domain.Folder, 0)
	for _, f := range s.db.folders {
		if f.OwnerID != ownerID || f.IsDeleted || !sameParent(f.ParentID, parentID) {
			continue
		}
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// descendants возвращает живых потомков папки; вызывать под s.db.mu
func (s *memFolders) descendants(id uuid.UUID) []*domain.Folder {
	var out []*domain.Folder
	queue := []uuid.UUID{id}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		for _, d := range s.db.folders {
			if d.IsDeleted || d.ParentID == nil || *d.ParentID != parent {
				continue
			}
			out = append(out, d)
			queue = append(queue, d.ID)
		}
	}
	return out
}

func (s *memFolders) Rename(_ context.Context, q repository.Querier, ownerID string, id uuid.UUID, name string) (*domain.Folder, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	f, ok := s.db.folders[id]
	if !ok || f.OwnerID != ownerID || f.IsDeleted {
		return nil, domain.ErrFolderNotFound
	}

	parentPath := ""
	if f.ParentID != nil {
		parentPath = s.db.folders[*f.ParentID].Path
	}
	oldName, oldPath := f.Name, f.Path
	newPath := domain.BuildPath(parentPath, name)

	f.Name, f.Path = name, newPath
	// потомки ищутся по parent_id, как в рекурсивном CTE репозитория
	saved := make(map[uuid.UUID]string)
	for _, d := range s.descendants(id) {
		saved[d.ID] = d.Path
		d.Path = newPath + strings.TrimPrefix(d.Path, oldPath)
	}
	record(q, func() {
		f.Name, f.Path = oldName, oldPath
		for did, path := range saved {
			s.db.folders[did].Path = path
		}
	})

	copied := *f
	return &copied, nil
}

func (s *memFolders) SoftDeleteTree(_ context.Context, q repository.Querier, ownerID string, id uuid.UUID) ([]uuid.UUID, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	root, ok := s.db.folders[id]
	if !ok || root.OwnerID != ownerID || root.IsDeleted {
		return nil, domain.ErrFolderNotFound
	}

	ids := []uuid.UUID{id}
	for i := 0; i < len(ids); i++ {
		for _, f := range s.db.folders {
			if f.ParentID != nil && *f.ParentID == ids[i] && !f.IsDeleted {
				ids = append(ids, f.ID)
			}
		}
	}
	for _, removed := range ids {
		f := s.db.folders[removed]
		f.IsDeleted = true
		record(q, func() { f.IsDeleted = false })
	}
	return ids, nil
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// --- FileStore ---

type memFiles struct{ db *memDB }

func (s *memFiles) Create(_ context.Context, q repository.Querier, file *domain.File) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.fileCreateErr != nil {
		return s.db.fileCreateErr
	}
	now := s.db.tick()
	file.CreatedAt, file.UpdatedAt = now, now
	copied := *file
	s.db.files[file.ID] = &copied
	id := file.ID
	record(q, func() { delete(s.db.files, id) })
	return nil
}

func (s *memFiles) CreateVersion(_ context.Context, q repository.Querier, version *domain.FileVersion) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	version.ID = int64(len(s.db.versions) + 1)
	version.CreatedAt = s.db.tick()
	s.db.versions = append(s.db.versions, *version)
	id := version.ID
	record(q, func() {
		kept := s.db.versions[:0]
		for _, v := range s.db.versions {
			if v.ID != id {
				kept = append(kept, v)
			}
		}
		s.db.versions = kept
	})
	return nil
}

func (s *memFiles) GetOwned(_ context.Context, _ repository.Querier, ownerID string, id uuid.UUID) (*domain.File, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	f, ok := s.db.files[id]
	if !ok || f.OwnerID != ownerID || f.IsDeleted {
		return nil, domain.ErrFileNotFound
	}
	copied := *f
	return &copied, nil
}

func (s *memFiles) ListByFolder(_ context.Context, _ repository.Querier, ownerID string, folderID *uuid.UUID) ([]domain.File, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]domain.File, 0)
	for _, f := range s.db.files {
		if f.OwnerID == ownerID && !f.IsDeleted && sameParent(f.FolderID, folderID) {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memFiles) Rename(_ context.Context, q repository.Querier, ownerID string, id uuid.UUID, filename string) (*domain.File, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	f, ok := s.db.files[id]
	if !ok || f.OwnerID != ownerID || f.IsDeleted {
		return nil, domain.ErrFileNotFound
	}
	old := f.Filename
	f.Filename = filename
	record(q, func() { f.Filename = old })
	copied := *f
	return &copied, nil
}

func (s *memFiles) SoftDelete(_ context.Context, q repository.Querier, ownerID string, id uuid.UUID) (*domain.File, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	f, ok := s.db.files[id]
	if !ok || f.OwnerID != ownerID || f.IsDeleted {
		return nil, domain.ErrFileNotFound
	}
	f.IsDeleted = true
	record(q, func() { f.IsDeleted = false })
	copied := *f
	return &copied, nil
}

func (s *memFiles) SoftDeleteByFolders(_ context.Context, q repository.Querier, ownerID string, folderIDs []uuid.UUID) (int, int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	in := map[uuid.UUID]bool{}
	for _, id := range folderIDs {
		in[id] = true
	}
	var (
		count int
		bytes int64
	)
	for _, f := range s.db.files {
		if f.OwnerID != ownerID || f.IsDeleted || f.FolderID == nil || !in[*f.FolderID] {
			continue
		}
		f := f
		f.IsDeleted = true
		record(q, func() { f.IsDeleted = false })
		count++
		bytes += f.SizeBytes
	}
	return count, bytes, nil
}

func (s *memFiles) ListVersions(_ context.Context, _ repository.Querier, fileID uuid.UUID) ([]domain.FileVersion, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]domain.FileVersion, 0)
	for _, v := range s.db.versions {
		if v.FileID == fileID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber > out[j].VersionNumber })
	return out, nil
}

// --- QuotaStore ---

type memQuotas struct{ db *memDB }

func (s *memQuotas) GetQuota(_ context.Context, _ repository.Querier, userID string) (*domain.UserQuota, error) {
	q := s.db.quota(userID)
	return &q, nil
}

func (s *memQuotas) GetFolderStats(_ context.Context, _ repository.Querier, folderID uuid.UUID) (*domain.FolderStats, error) {
	st := s.db.folderStats(folderID)
	return &st, nil
}

func (s *memQuotas) userRow(userID string) *domain.UserQuota {
	row, ok := s.db.quotas[userID]
	if !ok {
		row = &domain.UserQuota{UserID: userID}
		s.db.quotas[userID] = row
	}
	return row
}

func (s *memQuotas) statsRow(folderID uuid.UUID) *domain.FolderStats {
	row, ok := s.db.stats[folderID]
	if !ok {
		row = &domain.FolderStats{FolderID: folderID}
		s.db.stats[folderID] = row
	}
	return row
}

func (s *memQuotas) ReserveFile(_ context.Context, q repository.Querier, userID string, sizeBytes int64, limit int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	row := s.userRow(userID)
	if row.FileCount >= limit {
		return domain.ErrTotalFileLimitReached
	}
	row.FileCount++
	row.UsedStorageBytes += sizeBytes
	record(q, func() {
		row.FileCount--
		row.UsedStorageBytes -= sizeBytes
	})
	return nil
}

func (s *memQuotas) ReserveFolderFile(_ context.Context, q repository.Querier, folderID uuid.UUID, sizeBytes int64, limit int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	row := s.statsRow(folderID)
	if row.FileCount >= limit {
		return domain.ErrFolderFileLimitReached
	}
	row.FileCount++
	row.SizeBytes += sizeBytes
	record(q, func() {
		row.FileCount--
		row.SizeBytes -= sizeBytes
	})
	return nil
}

func (s *memQuotas) ReserveFolderSlot(_ context.Context, q repository.Querier, userID string, limit int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	row := s.userRow(userID)
	if row.FolderCount >= limit {
		return domain.ErrFolderLimitReached
	}
	row.FolderCount++
	record(q, func() { row.FolderCount-- })
	return nil
}

func floorSub[T int | int64](current, delta T) (T, T) {
	if delta > current {
		return 0, current
	}
	return current - delta, delta
}

func (s *memQuotas) ReleaseUser(_ context.Context, q repository.Querier, userID string, delta domain.Usage) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	row, ok := s.db.quotas[userID]
	if !ok {
		return nil
	}
	var folders, files int
	var bytes int64
	row.FolderCount, folders = floorSub(row.FolderCount, delta.Folders)
	row.FileCount, files = floorSub(row.FileCount, delta.Files)
	row.UsedStorageBytes, bytes = floorSub(row.UsedStorageBytes, delta.Bytes)
	record(q, func() {
		row.FolderCount += folders
		row.FileCount += files
		row.UsedStorageBytes += bytes
	})
	return nil
}

func (s *memQuotas) ReleaseFolder(_ context.Context, q repository.Querier, folderID uuid.UUID, files int, sizeBytes int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	row, ok := s.db.stats[folderID]
	if !ok {
		return nil
	}
	var removedFiles int
	var removedBytes int64
	row.FileCount, removedFiles = floorSub(row.FileCount, files)
	row.SizeBytes, removedBytes = floorSub(row.SizeBytes, sizeBytes)
	record(q, func() {
		row.FileCount += removedFiles
		row.SizeBytes += removedBytes
	})
	return nil
}

func (s *memQuotas) ClearFolderStats(_ context.Context, q repository.Querier, folderIDs []uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, id := range folderIDs {
		row, ok := s.db.stats[id]
		if !ok {
			continue
		}
		files, bytes := row.FileCount, row.SizeBytes
		row.FileCount, row.SizeBytes = 0, 0
		record(q, func() {
			row.FileCount += files
			row.SizeBytes += bytes
		})
	}
	return nil
}

func (s *memQuotas) ListUserIDs(_ context.Context, _ repository.Querier) ([]string, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	ids := make([]string, 0, len(s.db.quotas))
	for id := range s.db.quotas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *memQuotas) Recalculate(_ context.Context, _ repository.Querier, userID string) (*domain.UserQuota, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	row := s.userRow(userID)
	row.FolderCount, row.FileCount, row.UsedStorageBytes = 0, 0, 0
	for _, f := range s.db.folders {
		if f.OwnerID == userID && !f.IsDeleted {
			row.FolderCount++
			s.db.stats[f.ID] = &domain.FolderStats{FolderID: f.ID}
		}
	}
	for _, f := range s.db.files {
		if f.OwnerID != userID || f.IsDeleted {
			continue
		}
		row.FileCount++
		row.UsedStorageBytes += f.SizeBytes
		if f.FolderID != nil {
			st := s.statsRow(*f.FolderID)
			st.FileCount++
			st.SizeBytes += f.SizeBytes
		}
	}
	copied := *row
	return &copied, nil
}

// --- SubscriptionStore / PackageStore ---

type memSubs struct{ db *memDB }

func (s *memSubs) FindActivePolicy(_ context.Context, _ repository.Querier, userID string) (*domain.Policy, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, sub := range s.db.subs {
		if sub.UserID != userID || !sub.IsActive {
			continue
		}
		pkg := s.db.packages[sub.PackageID]
		return &domain.Policy{
			PackageID:           pkg.ID,
			PackageSlug:         pkg.Slug,
			MaxFolders:          pkg.MaxFolders,
			MaxNestingLevel:     pkg.MaxNestingLevel,
			MaxFileSizeMB:       pkg.MaxFileSizeMB,
			TotalFileLimit:      pkg.TotalFileLimit,
			FilesPerFolderLimit: pkg.FilesPerFolderLimit,
			AllowedMIMETypes:    pkg.AllowedMIMETypes,
		}, nil
	}
	return nil, domain.ErrSubscriptionRequired
}

func (s *memSubs) Activate(_ context.Context, q repository.Querier, userID string, packageID uuid.UUID) (*domain.UserSubscription, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	now := s.db.tick()
	for _, sub := range s.db.subs {
		if sub.UserID == userID && sub.IsActive {
			sub := sub
			sub.IsActive = false
			ended := now
			sub.EndedAt = &ended
			record(q, func() {
				sub.IsActive = true
				sub.EndedAt = nil
			})
		}
	}
	pkg := s.db.packages[packageID]
	sub := &domain.UserSubscription{
		ID:          uuid.New(),
		UserID:      userID,
		PackageID:   packageID,
		PackageName: pkg.Name,
		PackageSlug: pkg.Slug,
		IsActive:    true,
		StartedAt:   now,
	}
	s.db.subs = append(s.db.subs, sub)
	record(q, func() {
		kept := s.db.subs[:0]
		for _, existing := range s.db.subs {
			if existing != sub {
				kept = append(kept, existing)
			}
		}
		s.db.subs = kept
	})
	copied := *sub
	return &copied, nil
}

func (s *memSubs) ListByUser(_ context.Context, _ repository.Querier, userID string) ([]domain.UserSubscription, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]domain.UserSubscription, 0)
	for _, sub := range s.db.subs {
		if sub.UserID == userID {
			out = append(out, *sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

type memPackages struct{ db *memDB }

func (s *memPackages) List(_ context.Context, _ repository.Querier) ([]domain.SubscriptionPackage, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]domain.SubscriptionPackage, 0, len(s.db.packages))
	for _, p := range s.db.packages {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalFileLimit < out[j].TotalFileLimit })
	return out, nil
}

func (s *memPackages) GetByID(_ context.Context, _ repository.Querier, id uuid.UUID) (*domain.SubscriptionPackage, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.packages[id]
	if !ok {
		return nil, domain.ErrPackageNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *memPackages) Create(_ context.Context, _ repository.Querier, pkg *domain.SubscriptionPackage) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, p := range s.db.packages {
		if p.Name == pkg.Name || p.Slug == pkg.Slug {
			return domain.ErrPackageConflict
		}
	}
	if pkg.ID == uuid.Nil {
		pkg.ID = uuid.New()
	}
	now := s.db.tick()
	pkg.CreatedAt, pkg.UpdatedAt = now, now
	copied := *pkg
	s.db.packages[pkg.ID] = &copied
	return nil
}

// --- BlobStore ---

type mockBlobStore struct {
	mock.Mock
}

func (m *mockBlobStore) Put(ctx context.Context, data []byte, contentType, logicalName string) (string, error) {
	args := m.Called(ctx, data, contentType, logicalName)
	return args.String(0), args.Error(1)
}

func (m *mockBlobStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// --- test environment ---

const (
	mb      = 1024 * 1024
	alice   = "user-alice"
	bob     = "user-bob"
	pdfType = "application/pdf"
)

var errStoreDown = errors.New("store unavailable")

type testEnv struct {
	db            *memDB
	blobs         *mockBlobStore
	policies      *PolicyResolver
	ledger        *QuotaLedger
	folders       *FolderService
	files         *FileService
	reclaim       *ReclaimService
	subscriptions *SubscriptionService
	packages      *PackageService
	free          *domain.SubscriptionPackage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newMemDB()
	tx := &memTxRunner{db: db}
	folderStore := &memFolders{db: db}
	fileStore := &memFiles{db: db}
	quotaStore := &memQuotas{db: db}
	subStore := &memSubs{db: db}
	packageStore := &memPackages{db: db}
	blobs := &mockBlobStore{}
	logger := zap.NewNop()

	policies := NewPolicyResolver(tx, subStore)
	ledger := NewQuotaLedger(tx, quotaStore, policies, logger)

	env := &testEnv{
		db:            db,
		blobs:         blobs,
		policies:      policies,
		ledger:        ledger,
		folders:       NewFolderService(tx, folderStore, fileStore, ledger, policies, logger),
		files:         NewFileService(tx, fileStore, folderStore, ledger, policies, blobs, logger),
		reclaim:       NewReclaimService(tx, fileStore, ledger, logger),
		subscriptions: NewSubscriptionService(tx, subStore, packageStore, logger),
		packages:      NewPackageService(tx, packageStore),
	}

	env.free = env.addPackage(t, "Free", func(p *domain.SubscriptionPackage) {})
	return env
}

// addPackage заводит пакет с лимитами Free, которые можно поправить в mutate
func (e *testEnv) addPackage(t *testing.T, name string, mutate func(p *domain.SubscriptionPackage)) *domain.SubscriptionPackage {
	t.Helper()
	pkg := &domain.SubscriptionPackage{
		Name:                name,
		Slug:                strings.ToLower(name),
		MaxFolders:          10,
		MaxNestingLevel:     2,
		MaxFileSizeMB:       10,
		TotalFileLimit:      100,
		FilesPerFolderLimit: 25,
		AllowedMIMETypes:    pq.StringArray{"image/jpeg", "image/png", pdfType},
	}
	mutate(pkg)
	require.NoError(t, (&memPackages{db: e.db}).Create(context.Background(), nil, pkg))
	return pkg
}

func (e *testEnv) subscribe(t *testing.T, userID string, pkg *domain.SubscriptionPackage) {
	t.Helper()
	_, err := e.subscriptions.Activate(context.Background(), userID, pkg.ID)
	require.NoError(t, err)
}

// expectPut разрешает любое число сохранений и возвращает фиксированный ключ
func (e *testEnv) expectPut(key string) {
	e.blobs.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(key, nil).Maybe()
}

func pdf(ownerID string, folderID *uuid.UUID, size int) *domain.FileUpload {
	return &domain.FileUpload{
		OwnerID:      ownerID,
		FolderID:     folderID,
		OriginalName: "report.pdf",
		MIMEType:     pdfType,
		Data:         make([]byte, size),
	}
}

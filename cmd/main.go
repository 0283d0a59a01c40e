package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/jpillora/backoff"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"tierdrive/internal/auth"
	"tierdrive/internal/config"
	"tierdrive/internal/handler"
	"tierdrive/internal/repository"
	"tierdrive/internal/service"
	"tierdrive/internal/service/localfs"
	"tierdrive/internal/service/s3"
	"tierdrive/migrations"
)

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if cfg.Development {
		zapConfig = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zapConfig.Level = level

	return zapConfig.Build()
}

func connectWithRetry(ctx context.Context, dsn string, maxAttempts int, logger *zap.Logger) (*sqlx.DB, error) {
	jitter := &backoff.Backoff{
		Min:    time.Second,
		Max:    15 * time.Second,
		Jitter: true,
	}

	var err error
	for i := 0; i < maxAttempts; i++ {
		var db *sqlx.DB
		db, err = sqlx.ConnectContext(ctx, "postgres", dsn)
		if err == nil {
			return db, nil
		}

		delay := jitter.Duration()
		logger.Warn("failed to connect to database",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxAttempts),
			zap.Duration("retry_in", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxAttempts, err)
}

func runMigrations(cfg *config.Config, logger *zap.Logger) error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, cfg.Database.MigrationURL())
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		logger.Warn("found dirty database state, forcing version", zap.Uint("version", version))
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// optionalFile возвращает путь, только если файл существует
func optionalFile(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func newBlobStore(ctx context.Context, cfg config.StorageConfig) (service.BlobStore, error) {
	if cfg.Backend == config.StorageLocal {
		return localfs.NewStorage(cfg.LocalDir)
	}

	s3Config, err := s3.NewConfig(optionalFile(".s3.env"))
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}
	return s3.NewClient(ctx, s3Config)
}

// runReconciler периодически пересчитывает счётчики квот по живым строкам
func runReconciler(ctx context.Context, ledger *service.QuotaLedger, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := ledger.ReconcileAll(ctx); err != nil && ctx.Err() == nil {
				logger.Error("quota reconcile pass failed", zap.Error(err))
			}
		}
	}
}

func main() {
	appConfig, err := config.NewConfig(".app.env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(appConfig.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := connectWithRetry(ctx, appConfig.Database.GetDSN(), 5, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := runMigrations(appConfig, logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	blobs, err := newBlobStore(ctx, appConfig.Storage)
	if err != nil {
		logger.Fatal("failed to create blob store", zap.Error(err))
	}

	authConfig, err := auth.NewConfig(optionalFile(".auth.env"))
	if err != nil {
		logger.Fatal("failed to load auth config", zap.Error(err))
	}
	verifier := auth.NewVerifier(authConfig)

	// Репозитории
	txManager := repository.NewTxManager(db)
	folderRepo := repository.NewFolderRepository()
	fileRepo := repository.NewFileRepository()
	quotaRepo := repository.NewStorageQuotaRepository()
	subscriptionRepo := repository.NewSubscriptionRepository()
	packageRepo := repository.NewPackageRepository()

	// Сервисы
	policies := service.NewPolicyResolver(txManager, subscriptionRepo)
	ledger := service.NewQuotaLedger(txManager, quotaRepo, policies, logger)
	folderService := service.NewFolderService(txManager, folderRepo, fileRepo, ledger, policies, logger)
	fileService := service.NewFileService(txManager, fileRepo, folderRepo, ledger, policies, blobs, logger)
	reclaimService := service.NewReclaimService(txManager, fileRepo, ledger, logger)
	subscriptionService := service.NewSubscriptionService(txManager, subscriptionRepo, packageRepo, logger)
	packageService := service.NewPackageService(txManager, packageRepo)

	router := handler.NewRouter(handler.RouterConfig{
		Verifier:       verifier,
		Logger:         logger.Named("http"),
		MaxUploadBytes: appConfig.Server.MaxUploadBytes(),
		RequestTimeout: appConfig.Server.RequestTimeout,
		Folders:        folderService,
		Files:          fileService,
		Reclaim:        reclaimService,
		Ledger:         ledger,
		Subscriptions:  subscriptionService,
		Packages:       packageService,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", appConfig.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC сервер отдаёт стандартный health-check
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("failed to ping database", zap.Error(err))
	}
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", appConfig.Server.GRPCPort))
	if err != nil {
		logger.Fatal("failed to listen for gRPC", zap.Error(err))
	}

	go func() {
		logger.Info("starting gRPC server", zap.String("port", appConfig.Server.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server stopped", zap.Error(err))
			stop()
		}
	}()

	go func() {
		logger.Info("starting HTTP server", zap.String("port", appConfig.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server stopped", zap.Error(err))
			stop()
		}
	}()

	if interval := appConfig.Quota.ReconcileInterval; interval > 0 {
		go runReconciler(ctx, ledger, interval, logger.Named("reconciler"))
	}

	<-ctx.Done()
	logger.Info("shutting down servers")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	grpcServer.GracefulStop()

	logger.Info("server exited properly")
}

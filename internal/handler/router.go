package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"tierdrive/internal/auth"
	"tierdrive/internal/domain"
)

type RouterConfig struct {
	Verifier       *auth.Verifier
	Logger         *zap.Logger
	MaxUploadBytes int64
	RequestTimeout time.Duration

	Folders       FolderService
	Files         FileService
	Reclaim       FileDeleter
	Ledger        QuotaLedger
	Subscriptions SubscriptionService
	Packages      PackageService
}

// NewRouter собирает HTTP-маршруты сервиса
func NewRouter(cfg RouterConfig) http.Handler {
	writeError := ErrorWriter(cfg.Logger)

	folderHandler := NewFolderHandler(cfg.Folders, writeError)
	fileHandler := NewFileHandler(cfg.Files, cfg.Reclaim, cfg.MaxUploadBytes, writeError)
	quotaHandler := NewStorageQuotaHandler(cfg.Ledger, writeError)
	subscriptionHandler := NewSubscriptionHandler(cfg.Subscriptions, cfg.Packages, writeError)

	requireAuth := auth.Middleware(cfg.Verifier, writeError)
	requireAdmin := auth.RequireRole(domain.RoleAdmin, writeError)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		// каталог пакетов открыт без токена
		r.Get("/packages", subscriptionHandler.ListPackages)
		r.Get("/packages/{id}", subscriptionHandler.GetPackage)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/folders", folderHandler.ListFolders)
			r.Post("/folders", folderHandler.CreateFolder)
			r.Put("/folders/{id}", folderHandler.RenameFolder)
			r.Delete("/folders/{id}", folderHandler.DeleteFolder)

			r.Get("/files", fileHandler.ListFiles)
			r.Post("/files", fileHandler.UploadFile)
			r.Put("/files/{id}", fileHandler.RenameFile)
			r.Delete("/files/{id}", fileHandler.DeleteFile)
			r.Get("/files/{id}/versions", fileHandler.GetFileVersions)

			r.Get("/quota", quotaHandler.GetQuotaInfo)

			r.Post("/subscriptions", subscriptionHandler.Activate)
			r.Get("/subscriptions", subscriptionHandler.History)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Post("/packages", subscriptionHandler.CreatePackage)
				r.Post("/quota/{userID}/reconcile", quotaHandler.Reconcile)
			})
		})
	})

	return r
}

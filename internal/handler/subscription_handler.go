package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"tierdrive/internal/auth"
	"tierdrive/internal/domain"
	"tierdrive/internal/service"
)

type SubscriptionService interface {
	Activate(ctx context.Context, userID string, packageID uuid.UUID) (*domain.UserSubscription, error)
	History(ctx context.Context, userID string) ([]domain.UserSubscription, error)
}

type PackageService interface {
	List(ctx context.Context) ([]domain.SubscriptionPackage, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.SubscriptionPackage, error)
	Create(ctx context.Context, in service.PackageInput) (*domain.SubscriptionPackage, error)
}

type SubscriptionHandler struct {
	subscriptions SubscriptionService
	packages      PackageService
	writeError    auth.ErrorWriter
}

type activateRequest struct {
	PackageID uuid.UUID `json:"package_id"`
}

func NewSubscriptionHandler(subscriptions SubscriptionService, packages PackageService, writeError auth.ErrorWriter) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptions: subscriptions,
		packages:      packages,
		writeError:    writeError,
	}
}

// Activate переключает пользователя на выбранный пакет, предыдущая подписка закрывается
func (h *SubscriptionHandler) Activate(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req activateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.PackageID == uuid.Nil {
		h.writeError(w, r, domain.InvalidInput("package_id is required"))
		return
	}

	subscription, err := h.subscriptions.Activate(r.Context(), userID, req.PackageID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, "Subscription activated", subscription)
}

func (h *SubscriptionHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	history, err := h.subscriptions.History(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if history == nil {
		history = []domain.UserSubscription{}
	}
	writeJSON(w, http.StatusOK, "Subscription history fetched", history)
}

func (h *SubscriptionHandler) ListPackages(w http.ResponseWriter, r *http.Request) {
	packages, err := h.packages.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if packages == nil {
		packages = []domain.SubscriptionPackage{}
	}
	writeJSON(w, http.StatusOK, "Packages fetched", packages)
}

func (h *SubscriptionHandler) GetPackage(w http.ResponseWriter, r *http.Request) {
	packageID, err := idParam(r, "package")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	pkg, err := h.packages.Get(r.Context(), packageID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "Package fetched", pkg)
}

func (h *SubscriptionHandler) CreatePackage(w http.ResponseWriter, r *http.Request) {
	var req service.PackageInput
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	pkg, err := h.packages.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, "Package created", pkg)
}

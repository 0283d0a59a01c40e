package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"tierdrive/internal/auth"
	"tierdrive/internal/domain"
)

type QuotaLedger interface {
	Usage(ctx context.Context, userID string) (*domain.QuotaInfo, error)
	Reconcile(ctx context.Context, userID string) (*domain.UserQuota, error)
}

type StorageQuotaHandler struct {
	ledger     QuotaLedger
	writeError auth.ErrorWriter
}

func NewStorageQuotaHandler(ledger QuotaLedger, writeError auth.ErrorWriter) *StorageQuotaHandler {
	return &StorageQuotaHandler{
		ledger:     ledger,
		writeError: writeError,
	}
}

func (h *StorageQuotaHandler) GetQuotaInfo(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	quotaInfo, err := h.ledger.Usage(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "Quota fetched", quotaInfo)
}

// Reconcile пересчитывает счётчики пользователя по живым строкам; только для админа
func (h *StorageQuotaHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		h.writeError(w, r, domain.InvalidInput("user id is required"))
		return
	}

	quota, err := h.ledger.Reconcile(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "Quota reconciled", quota)
}

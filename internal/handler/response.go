package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"tierdrive/internal/auth"
	"tierdrive/internal/domain"
)

const internalCode = "INTERNAL_SERVER_ERROR"

type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: true, Message: message, Data: data})
}

// statusFor переводит доменную ошибку в HTTP-статус
func statusFor(err *domain.Error) int {
	switch {
	case errors.Is(err, domain.ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrFileTooLargeForPackage):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrMimeTypeNotAllowed):
		return http.StatusUnsupportedMediaType
	}

	switch err.Kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindCapacity, domain.KindAuthorization:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// ErrorWriter пишет ошибку в едином формате; неожиданные ошибки только логируются
func ErrorWriter(logger *zap.Logger) auth.ErrorWriter {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		body := envelope{Code: internalCode, Message: "internal server error"}
		status := http.StatusInternalServerError

		if domainErr, ok := domain.AsError(err); ok {
			body.Code = domainErr.Code
			body.Message = domainErr.Message
			status = statusFor(domainErr)
		}

		if status == http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Error(err),
			)
		} else {
			logger.Debug("request rejected",
				zap.String("path", r.URL.Path),
				zap.String("code", body.Code),
				zap.Error(err),
			)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.InvalidInput("invalid request body")
	}
	return nil
}

func ownerFrom(r *http.Request) (string, error) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok || identity.UserID == "" {
		return "", domain.ErrAuthRequired
	}
	return identity.UserID, nil
}

func idParam(r *http.Request, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, domain.InvalidInput("invalid " + what + " id")
	}
	return id, nil
}

// optionalID разбирает необязательный идентификатор; пустое значение означает корень
func optionalID(raw, what string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, domain.InvalidInput("invalid " + what + " id")
	}
	return &id, nil
}

package handlers

import (
	"errors"
	"net/http"

	"taskPlanner/internal/logger"
	"taskPlanner/internal/service"

	"go.uber.org/zap"
)

func handleBusinessError(w http.ResponseWriter, err error, defaultMessage string) {
	var businessErr *service.BusinessError
	if errors.As(err, &businessErr) {
		statusCode := mapBusinessErrorToHTTP(businessErr.Code)

		logger.Warn("HTTP: Бизнес-ошибка",
			zap.String("error_code", businessErr.Code),
			zap.Int("http_status", statusCode))

		responseWithJSON(w, statusCode,
			toPayload("error", businessErr.Code),
			toPayload("message", businessErr.Message),
			toPayload("details", businessErr.Details),
		)
		return
	}

	logger.Error("HTTP: Ошибка Service", err)
	responseWithError(w, http.StatusInternalServerError, defaultMessage)
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case "NOT_FOUND":
		return http.StatusNotFound
	case "VALIDATION_ERROR", "IMPORT_ERROR":
		return http.StatusBadRequest
	case "DEFAULT_CATEGORY":
		return http.StatusConflict
	case "STORAGE_ERROR", "AI_ERROR":
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

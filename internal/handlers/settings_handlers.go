package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"taskPlanner/internal/logger"

	"go.uber.org/zap"
)

type SettingsHandler struct {
	SettingsService SettingsService
}

func NewSettingsHandler(settingsService SettingsService) SettingsHandler {
	return SettingsHandler{
		SettingsService: settingsService,
	}
}

func (s *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")
	responseWithBody(w, http.StatusOK, s.SettingsService.Get(r.Context()))
}

func (s *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	if !checkContentType(r, "application/json") {
		responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type должен быть application/json")
		return
	}

	// частичное тело накладывается на текущие настройки, а не на дефолтные
	request := s.SettingsService.Get(r.Context())
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return
	}

	updated, err := s.SettingsService.Update(r.Context(), request)
	if err != nil {
		handleBusinessError(w, err, "не удалось сохранить настройки")
		return
	}

	logger.Info("HTTP_OUT: Настройки сохранены",
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, updated)
}

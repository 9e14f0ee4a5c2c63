package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"taskPlanner/internal/handlers/dto"
	"taskPlanner/internal/logger"

	"go.uber.org/zap"
)

type SuggestHandler struct {
	SuggestService SuggestService
}

func NewSuggestHandler(suggestService SuggestService) SuggestHandler {
	return SuggestHandler{
		SuggestService: suggestService,
	}
}

// GenerateSubtasks отдаёт 3-5 подзадач для переданного названия задачи
func (s *SuggestHandler) GenerateSubtasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	if s.SuggestService == nil {
		logger.Warn("HTTP: Сервис подсказок не настроен")
		responseWithError(w, http.StatusServiceUnavailable, "сервис подсказок не настроен")
		return
	}

	var request dto.SuggestRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return
	}

	if request.Title == "" {
		logger.Warn("HTTP: Ошибка валидации",
			zap.String("field", "title"),
			zap.String("error", "empty_field"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "название не может быть пустым")
		return
	}

	subtasks, err := s.SuggestService.SubtasksForTitle(r.Context(), request.Title)
	if err != nil {
		logger.Error("HTTP: Ошибка генерации подзадач", err,
			zap.String("title", request.Title),
			zap.Duration("ms", time.Since(start)))

		responseWithError(w, http.StatusInternalServerError, "не удалось получить подсказки")
		return
	}

	logger.Info("HTTP_OUT: Подзадачи сгенерированы",
		zap.Int("count", len(subtasks)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, dto.SuggestResponse{Subtasks: subtasks})
}

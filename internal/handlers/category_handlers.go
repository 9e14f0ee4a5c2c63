package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"taskPlanner/internal/handlers/dto"
	"taskPlanner/internal/logger"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CategoryHandler struct {
	CategoryService CategoryService
}

func NewCategoryHandler(categoryService CategoryService) CategoryHandler {
	return CategoryHandler{
		CategoryService: categoryService,
	}
}

func (s *CategoryHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	items := s.CategoryService.GetCategories(r.Context())

	logger.Info("HTTP_OUT: Категории получены",
		zap.Int("count", len(items)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, dto.FromCategoryList(items))
}

func (s *CategoryHandler) GetCategoryByID(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id := chi.URLParam(r, "id")
	if id == "" {
		responseWithError(w, http.StatusBadRequest, "id не может быть пустым")
		return
	}

	item, err := s.CategoryService.GetCategoryByID(r.Context(), id)
	if err != nil {
		handleBusinessError(w, err, "не удалось получить категорию")
		return
	}

	responseWithBody(w, http.StatusOK, dto.FromCategory(*item))
}

func (s *CategoryHandler) PostCategory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	if !checkContentType(r, "application/json") {
		responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type должен быть application/json")
		return
	}

	var request dto.CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return
	}

	if request.Name == "" {
		logger.Warn("HTTP: Ошибка валидации",
			zap.String("field", "name"),
			zap.String("error", "empty_field"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "имя не может быть пустым")
		return
	}

	created, err := s.CategoryService.CreateCategory(r.Context(), request.Name, request.Icon, request.Color)
	if err != nil {
		handleBusinessError(w, err, "не удалось создать категорию")
		return
	}

	logger.Info("HTTP_OUT: Категория создана",
		zap.String("category_id", created.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithBody(w, http.StatusCreated, dto.FromCategory(*created))
}

func (s *CategoryHandler) UpdateCategoryByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id := chi.URLParam(r, "id")
	if id == "" {
		responseWithError(w, http.StatusBadRequest, "id не может быть пустым")
		return
	}

	var request dto.CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return
	}

	updated, err := s.CategoryService.UpdateCategory(r.Context(), id, request.Name, request.Icon, request.Color)
	if err != nil {
		handleBusinessError(w, err, "не удалось обновить категорию")
		return
	}

	logger.Info("HTTP_OUT: Категория обновлена",
		zap.String("category_id", updated.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, dto.FromCategory(*updated))
}

func (s *CategoryHandler) DeleteCategoryByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id := chi.URLParam(r, "id")
	if id == "" {
		responseWithError(w, http.StatusBadRequest, "id не может быть пустым")
		return
	}

	if err := s.CategoryService.DeleteCategory(r.Context(), id); err != nil {
		handleBusinessError(w, err, "не удалось удалить категорию")
		return
	}

	logger.Info("HTTP_OUT: Категория удалена",
		zap.String("category_id", id),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusNoContent))

	w.WriteHeader(http.StatusNoContent)
}

func (s *CategoryHandler) ResetCategories(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	items, err := s.CategoryService.ResetToDefaults(r.Context())
	if err != nil {
		handleBusinessError(w, err, "не удалось сбросить категории")
		return
	}

	logger.Info("HTTP_OUT: Категории сброшены к встроенным",
		zap.Int("count", len(items)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, dto.FromCategoryList(items))
}

func (s *CategoryHandler) ExportCategories(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	data, filename, err := s.CategoryService.Export(r.Context())
	if err != nil {
		handleBusinessError(w, err, "не удалось выполнить экспорт")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(data))
}

func (s *CategoryHandler) ImportCategories(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	if !checkContentType(r, "application/json") {
		responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type должен быть application/json")
		return
	}

	body, err := readBody(r)
	if err != nil {
		responseWithError(w, http.StatusBadRequest, "не удалось прочитать тело запроса: "+err.Error())
		return
	}

	result, err := s.CategoryService.Import(r.Context(), body)
	if err != nil {
		handleBusinessError(w, err, "не удалось выполнить импорт")
		return
	}

	responseWithBody(w, http.StatusOK, result)
}

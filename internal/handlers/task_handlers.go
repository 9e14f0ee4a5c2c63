package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"taskPlanner/internal/handlers/dto"
	"taskPlanner/internal/logger"
	"taskPlanner/internal/models/task"
	"taskPlanner/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type TaskHandler struct {
	TaskService     TaskService
	CategoryService CategoryService
}

func NewTaskHandler(taskService TaskService, categoryService CategoryService) TaskHandler {
	return TaskHandler{
		TaskService:     taskService,
		CategoryService: categoryService,
	}
}

func (s *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	tasks := s.TaskService.GetTasks(r.Context())

	logger.Info("HTTP_OUT: Задачи получены",
		zap.Int("count", len(tasks)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, dto.FromTaskList(tasks, s.categoryNames(r), time.Now()))
}

func (s *TaskHandler) PostTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	if !checkContentType(r, "application/json") {
		logger.Warn("HTTP: Неверный тип контента",
			zap.String("expected", "application/json"),
			zap.String("received", r.Header.Get("Content-Type")),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type должен быть application/json")
		return
	}

	var request dto.CreateTaskRequest
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

	if request.DueDate.IsZero() {
		logger.Warn("HTTP: Ошибка валидации",
			zap.String("field", "dueDate"),
			zap.String("error", "empty_field"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "дедлайн должен быть задан")
		return
	}

	options := []task.TaskOption{
		task.WithDescription(request.Description),
		task.WithDueDate(request.DueDate),
	}
	if request.Priority != nil {
		if !task.ValidPriority(*request.Priority) {
			responseWithError(w, http.StatusBadRequest, "неизвестный приоритет")
			return
		}
		options = append(options, task.WithPriority(*request.Priority))
	}
	if request.Status != nil {
		if !task.ValidStatus(*request.Status) {
			responseWithError(w, http.StatusBadRequest, "неизвестный статус")
			return
		}
		options = append(options, task.WithStatus(*request.Status))
	}
	if request.EstimatedTime != nil {
		options = append(options, task.WithEstimatedTime(*request.EstimatedTime))
	}
	if request.CategoryID != "" {
		options = append(options, task.WithCategory(request.CategoryID))
	}

	logger.Info("HTTP: Вызов сервиса создания задач")
	created, err := s.TaskService.CreateTask(r.Context(), request.Title, options...)
	if err != nil {
		handleBusinessError(w, err, "не удалось создать задачу")
		return
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.String("task_id", created.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithBody(w, http.StatusCreated, dto.FromTask(*created, s.categoryName(r, created.CategoryID), time.Now()))
}

func (s *TaskHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id := chi.URLParam(r, "id")
	if id == "" {
		logger.Warn("HTTP: Неверное значение id",
			zap.String("error", "empty id"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "id не может быть пустым")
		return
	}

	logger.Info("HTTP: Вызов сервиса для получения задачи")
	item, err := s.TaskService.GetTaskByID(r.Context(), id)
	if err != nil {
		handleBusinessError(w, err, "не удалось получить задачу")
		return
	}

	logger.Info("HTTP_OUT: Задача получена",
		zap.String("task_id", item.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, dto.FromTask(*item, s.categoryName(r, item.CategoryID), time.Now()))
}

func (s *TaskHandler) UpdateTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id := chi.URLParam(r, "id")
	if id == "" {
		responseWithError(w, http.StatusBadRequest, "id не может быть пустым")
		return
	}

	var request dto.UpdateTaskRequest
	decoder := json.NewDecoder(r.Body)
	defer r.Body.Close()

	if err := decoder.Decode(&request); err != nil {
		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "неверно переданы параметры обновления: "+err.Error())
		return
	}

	options, err := updateOptions(request)
	if err != nil {
		logger.Warn("HTTP: Ошибка валидации",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	logger.Info("HTTP: запрос к сервису обновления данных")
	updated, err := s.TaskService.UpdateTask(r.Context(), id, options...)
	if err != nil {
		handleBusinessError(w, err, "не удалось обновить задачу")
		return
	}

	logger.Info("HTTP_OUT: Задача обновлена",
		zap.String("task_id", updated.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, dto.FromTask(*updated, s.categoryName(r, updated.CategoryID), time.Now()))
}

func (s *TaskHandler) DeleteTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id := chi.URLParam(r, "id")
	if id == "" {
		responseWithError(w, http.StatusBadRequest, "id не может быть пустым")
		return
	}

	logger.Info("HTTP: Обращение к сервису для удаления задачи")
	if err := s.TaskService.DeleteTask(r.Context(), id); err != nil {
		handleBusinessError(w, err, "не удалось удалить задачу")
		return
	}

	logger.Info("HTTP_OUT: Задача удалена",
		zap.String("task_id", id),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusNoContent))

	w.WriteHeader(http.StatusNoContent)
}

func (s *TaskHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	stats := s.TaskService.GetStats(r.Context())

	logger.Info("HTTP_OUT: Статистика получена",
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, stats)
}

func (s *TaskHandler) ClearTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	if err := s.TaskService.ClearTasks(r.Context()); err != nil {
		handleBusinessError(w, err, "не удалось очистить задачи")
		return
	}

	logger.Info("HTTP_OUT: Задачи очищены",
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusNoContent))

	w.WriteHeader(http.StatusNoContent)
}

func (s *TaskHandler) ExportTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	data, filename, err := s.TaskService.Export(r.Context())
	if err != nil {
		handleBusinessError(w, err, "не удалось выполнить экспорт")
		return
	}

	logger.Info("HTTP_OUT: Экспорт задач",
		zap.String("filename", filename),
		zap.Int("bytes", len(data)),
		zap.Duration("ms", time.Since(start)))

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(data))
}

func (s *TaskHandler) ImportTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
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

	result, err := s.TaskService.Import(r.Context(), body)
	if err != nil {
		handleBusinessError(w, err, "не удалось выполнить импорт")
		return
	}

	logger.Info("HTTP_OUT: Импорт задач",
		zap.Int("items", result.ItemsCount),
		zap.Duration("ms", time.Since(start)))

	responseWithBody(w, http.StatusOK, result)
}

func (s *TaskHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")
	responseWithBody(w, http.StatusOK, s.TaskService.Info(r.Context()))
}

func (s *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: Health check")
	responseWithJSON(w, http.StatusOK, toPayload("status", "ok"))
}

// categoryNames возвращает резолвер имени категории для списка задач
func (s *TaskHandler) categoryNames(r *http.Request) func(string) string {
	categories := s.CategoryService.GetCategories(r.Context())
	return func(id string) string {
		return service.CategoryName(categories, id)
	}
}

func (s *TaskHandler) categoryName(r *http.Request, id string) string {
	return service.CategoryName(s.CategoryService.GetCategories(r.Context()), id)
}

// updateOptions превращает частичное тело запроса в набор опций;
// некорректное значение любого поля отклоняет весь запрос
func updateOptions(request dto.UpdateTaskRequest) ([]task.TaskOption, error) {
	var options []task.TaskOption

	if request.Title != nil {
		opt := task.WithTitle(*request.Title)
		if opt == nil {
			return nil, fmt.Errorf("название не может быть пустым")
		}
		options = append(options, opt)
	}
	if request.Description != nil {
		options = append(options, task.WithDescription(*request.Description))
	}
	if request.Priority != nil {
		opt := task.WithPriority(*request.Priority)
		if opt == nil {
			return nil, fmt.Errorf("неизвестный приоритет %q", *request.Priority)
		}
		options = append(options, opt)
	}
	if request.Status != nil {
		opt := task.WithStatus(*request.Status)
		if opt == nil {
			return nil, fmt.Errorf("неизвестный статус %q", *request.Status)
		}
		options = append(options, opt)
	}
	if request.DueDate != nil {
		opt := task.WithDueDate(*request.DueDate)
		if opt == nil {
			return nil, fmt.Errorf("дедлайн не может быть пустым")
		}
		options = append(options, opt)
	}
	if request.EstimatedTime != nil {
		opt := task.WithEstimatedTime(*request.EstimatedTime)
		if opt == nil {
			return nil, fmt.Errorf("оценка должна быть положительной")
		}
		options = append(options, opt)
	}
	if request.ActualTime != nil {
		opt := task.WithActualTime(*request.ActualTime)
		if opt == nil {
			return nil, fmt.Errorf("фактическое время не может быть отрицательным")
		}
		options = append(options, opt)
	}
	if request.CategoryID != nil {
		opt := task.WithCategory(*request.CategoryID)
		if opt == nil {
			return nil, fmt.Errorf("категория не может быть пустой")
		}
		options = append(options, opt)
	}

	return options, nil
}

package service

import (
	"context"
	"time"

	"taskPlanner/internal/logger"
	"taskPlanner/internal/models/category"
	"taskPlanner/internal/models/settings"
	"taskPlanner/internal/models/task"
	"taskPlanner/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// здесь происходит проверка ошибок бизнес-логики

type TaskService struct {
	store    TaskStore
	settings SettingsProvider
	now      func() time.Time
}

func NewTaskService(store TaskStore, settings SettingsProvider) *TaskService {
	return &TaskService{
		store:    store,
		settings: settings,
		now:      time.Now,
	}
}

func (s *TaskService) CreateTask(ctx context.Context, title string, options ...task.TaskOption) (*task.Task, error) {
	if title == "" {
		return nil, NewValidationError("title", "пустой заголовок")
	}

	defaults := settings.Defaults()
	if s.settings != nil {
		defaults = s.settings.Current(ctx)
	}

	now := s.now()
	item := &task.Task{
		ID:            uuid.New().String(),
		Title:         title,
		Priority:      defaults.DefaultPriority,
		Status:        task.StatusPending,
		EstimatedTime: defaults.DefaultEstimatedTime,
		CreatedAt:     now,
		UpdatedAt:     now,
		CategoryID:    category.DefaultID,
	}
	applyOptions(item, options)

	if item.DueDate.IsZero() {
		return nil, NewValidationError("dueDate", "дедлайн обязателен")
	}

	items := s.store.Load(ctx)
	items = append(items, *item)
	if !s.store.Save(ctx, items) {
		return nil, NewStorageError("создание задачи", nil)
	}

	logger.Info("Service: Задача создана", zap.String("target_id", item.ID))
	return item, nil
}

func (s *TaskService) GetTasks(ctx context.Context) []task.Task {
	return s.store.Load(ctx)
}

func (s *TaskService) GetTaskByID(ctx context.Context, id string) (*task.Task, error) {
	items := s.store.Load(ctx)
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}
	logger.Info("Service: Задача не найдена", zap.String("target_id", id))
	return nil, NewNotFound("задача", id)
}

func (s *TaskService) UpdateTask(ctx context.Context, id string, options ...task.TaskOption) (*task.Task, error) {
	items := s.store.Load(ctx)
	idx := -1
	for i := range items {
		if items[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		logger.Info("Service: Задача не найдена", zap.String("target_id", id))
		return nil, NewNotFound("задача", id)
	}

	item := &items[idx]
	wasCompleted := item.Status == task.StatusCompleted
	applyOptions(item, options)

	item.UpdatedAt = s.now()
	if item.UpdatedAt.Before(item.CreatedAt) {
		item.UpdatedAt = item.CreatedAt
	}

	// признак "завершена вовремя" фиксируется один раз, при первом
	// переходе в completed, и дальше не пересчитывается
	if !wasCompleted && item.Status == task.StatusCompleted && item.IsCompletedOnTime == nil {
		onTime := !item.UpdatedAt.After(item.DueDate)
		item.IsCompletedOnTime = &onTime
	}

	if !s.store.Save(ctx, items) {
		return nil, NewStorageError("обновление задачи", nil)
	}
	return item, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, id string) error {
	items := s.store.Load(ctx)
	kept := items[:0]
	found := false
	for _, item := range items {
		if item.ID == id {
			found = true
			continue
		}
		kept = append(kept, item)
	}
	if !found {
		logger.Info("Service: Задача не найдена", zap.String("target_id", id))
		return NewNotFound("задача", id)
	}

	if !s.store.Save(ctx, kept) {
		return NewStorageError("удаление задачи", nil)
	}
	return nil
}

// GetStats считает агрегаты для страницы аналитики. Среднее время
// выполнения берётся по фактическому времени завершённых задач,
// при его отсутствии по оценке.
func (s *TaskService) GetStats(ctx context.Context) task.Stats {
	items := s.store.Load(ctx)
	now := s.now()

	stats := task.Stats{TotalTasks: len(items)}
	totalMinutes := 0
	for _, item := range items {
		if item.IsOverdue(now) {
			stats.OverdueTasks++
		}
		if item.Status != task.StatusCompleted {
			continue
		}
		stats.CompletedTasks++
		if item.ActualTime != nil {
			totalMinutes += *item.ActualTime
		} else {
			totalMinutes += item.EstimatedTime
		}
	}
	if stats.CompletedTasks > 0 {
		stats.AverageCompletionTime = float64(totalMinutes) / float64(stats.CompletedTasks)
	}
	return stats
}

func (s *TaskService) ClearTasks(ctx context.Context) error {
	if !s.store.Clear(ctx) {
		return NewStorageError("очистка задач", nil)
	}
	return nil
}

func (s *TaskService) Export(ctx context.Context) (string, string, error) {
	data, filename, err := s.store.Export(ctx)
	if err != nil {
		return "", "", NewStorageError("экспорт задач", err)
	}
	return data, filename, nil
}

func (s *TaskService) Import(ctx context.Context, data string) (storage.ImportResult, error) {
	result := s.store.Import(ctx, data)
	if !result.Success {
		return result, NewImportError(result.Message)
	}
	return result, nil
}

func (s *TaskService) CreateBackup(ctx context.Context) string {
	return s.store.CreateBackup(ctx)
}

func (s *TaskService) Info(ctx context.Context) storage.Info {
	return s.store.Info(ctx)
}

// applyOptions пропускает nil-опции: конструкторы опций возвращают nil
// на некорректное значение
func applyOptions(item *task.Task, options []task.TaskOption) {
	for _, opt := range options {
		if opt == nil {
			logger.Warn("Service: Пропущена некорректная опция задачи",
				zap.String("target_id", item.ID))
			continue
		}
		opt(item)
	}
}

package service

import (
	"context"
	"time"

	"taskPlanner/internal/logger"
	"taskPlanner/internal/models/category"
	"taskPlanner/internal/models/task"
	"taskPlanner/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CategoryService struct {
	store CategoryStore
	tasks TaskStore
	now   func() time.Time
}

func NewCategoryService(store CategoryStore, tasks TaskStore) *CategoryService {
	return &CategoryService{
		store: store,
		tasks: tasks,
		now:   time.Now,
	}
}

func (s *CategoryService) GetCategories(ctx context.Context) []category.Category {
	return s.store.Load(ctx)
}

func (s *CategoryService) GetCategoryByID(ctx context.Context, id string) (*category.Category, error) {
	items := s.store.Load(ctx)
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}
	logger.Info("Service: Категория не найдена", zap.String("target_id", id))
	return nil, NewNotFound("категория", id)
}

func (s *CategoryService) CreateCategory(ctx context.Context, name, icon, color string) (*category.Category, error) {
	if name == "" {
		return nil, NewValidationError("name", "пустое имя")
	}
	if icon == "" {
		icon = "📁"
	}
	if color == "" {
		color = "bg-gradient-to-r from-gray-500 to-gray-600"
	}

	item := category.Category{
		ID:        uuid.New().String(),
		Name:      name,
		Icon:      icon,
		Color:     color,
		CreatedAt: s.now(),
	}

	items := s.store.Load(ctx)
	items = append(items, item)
	if !s.store.Save(ctx, items) {
		return nil, NewStorageError("создание категории", nil)
	}

	logger.Info("Service: Категория создана", zap.String("target_id", item.ID))
	return &item, nil
}

func (s *CategoryService) UpdateCategory(ctx context.Context, id, name, icon, color string) (*category.Category, error) {
	items := s.store.Load(ctx)
	idx := -1
	for i := range items {
		if items[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		logger.Info("Service: Категория не найдена", zap.String("target_id", id))
		return nil, NewNotFound("категория", id)
	}

	item := &items[idx]
	if name != "" {
		item.Name = name
	}
	if icon != "" {
		item.Icon = icon
	}
	if color != "" {
		item.Color = color
	}

	if !s.store.Save(ctx, items) {
		return nil, NewStorageError("обновление категории", nil)
	}
	return item, nil
}

// DeleteCategory запрещает удаление встроенной категории; задачи
// удаляемой категории переводятся во встроенную
func (s *CategoryService) DeleteCategory(ctx context.Context, id string) error {
	items := s.store.Load(ctx)
	idx := -1
	for i := range items {
		if items[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		logger.Info("Service: Категория не найдена", zap.String("target_id", id))
		return NewNotFound("категория", id)
	}
	if items[idx].IsDefault || items[idx].ID == category.DefaultID {
		logger.Info("Service: Попытка удалить встроенную категорию", zap.String("target_id", id))
		return NewDefaultCategoryError(id)
	}

	kept := append(items[:idx:idx], items[idx+1:]...)
	if !s.store.Save(ctx, kept) {
		return NewStorageError("удаление категории", nil)
	}

	s.reassignTasks(ctx, func(t *task.Task) bool { return t.CategoryID == id })
	return nil
}

// ResetToDefaults возвращает встроенный набор категорий; задачи
// исчезнувших категорий переводятся во встроенную
func (s *CategoryService) ResetToDefaults(ctx context.Context) ([]category.Category, error) {
	defaults := category.Defaults(s.now())
	if !s.store.Save(ctx, defaults) {
		return nil, NewStorageError("сброс категорий", nil)
	}

	known := make(map[string]bool, len(defaults))
	for _, item := range defaults {
		known[item.ID] = true
	}
	s.reassignTasks(ctx, func(t *task.Task) bool { return !known[t.CategoryID] })

	return defaults, nil
}

func (s *CategoryService) Export(ctx context.Context) (string, string, error) {
	data, filename, err := s.store.Export(ctx)
	if err != nil {
		return "", "", NewStorageError("экспорт категорий", err)
	}
	return data, filename, nil
}

func (s *CategoryService) Import(ctx context.Context, data string) (storage.ImportResult, error) {
	result := s.store.Import(ctx, data)
	if !result.Success {
		return result, NewImportError(result.Message)
	}
	return result, nil
}

func (s *CategoryService) Info(ctx context.Context) storage.Info {
	return s.store.Info(ctx)
}

func (s *CategoryService) reassignTasks(ctx context.Context, orphaned func(*task.Task) bool) {
	if s.tasks == nil {
		return
	}

	items := s.tasks.Load(ctx)
	changed := false
	for i := range items {
		if orphaned(&items[i]) {
			items[i].CategoryID = category.DefaultID
			items[i].UpdatedAt = s.now()
			changed = true
		}
	}
	if !changed {
		return
	}
	if !s.tasks.Save(ctx, items) {
		logger.Warn("Service: Не удалось перепривязать задачи к встроенной категории")
	}
}

// CategoryName возвращает отображаемое имя категории; для битой ссылки
// показывается общее имя
func CategoryName(items []category.Category, id string) string {
	for _, item := range items {
		if item.ID == id {
			return item.Name
		}
	}
	return category.UnknownName
}

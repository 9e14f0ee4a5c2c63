package handlers

import (
	"context"

	"taskPlanner/internal/models/category"
	"taskPlanner/internal/models/settings"
	"taskPlanner/internal/models/task"
	"taskPlanner/internal/storage"
)

type TaskService interface {
	CreateTask(ctx context.Context, title string, options ...task.TaskOption) (*task.Task, error)
	GetTasks(ctx context.Context) []task.Task
	GetTaskByID(ctx context.Context, id string) (*task.Task, error)
	UpdateTask(ctx context.Context, id string, options ...task.TaskOption) (*task.Task, error)
	DeleteTask(ctx context.Context, id string) error
	GetStats(ctx context.Context) task.Stats
	ClearTasks(ctx context.Context) error
	Export(ctx context.Context) (data string, filename string, err error)
	Import(ctx context.Context, data string) (storage.ImportResult, error)
	Info(ctx context.Context) storage.Info
}

type CategoryService interface {
	GetCategories(ctx context.Context) []category.Category
	GetCategoryByID(ctx context.Context, id string) (*category.Category, error)
	CreateCategory(ctx context.Context, name, icon, color string) (*category.Category, error)
	UpdateCategory(ctx context.Context, id, name, icon, color string) (*category.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	ResetToDefaults(ctx context.Context) ([]category.Category, error)
	Export(ctx context.Context) (data string, filename string, err error)
	Import(ctx context.Context, data string) (storage.ImportResult, error)
}

type SettingsService interface {
	Get(ctx context.Context) settings.Settings
	Update(ctx context.Context, next settings.Settings) (settings.Settings, error)
}

type SuggestService interface {
	SubtasksForTitle(ctx context.Context, title string) ([]string, error)
}

package service

import (
	"context"

	"taskPlanner/internal/models/category"
	"taskPlanner/internal/models/settings"
	"taskPlanner/internal/models/task"
	"taskPlanner/internal/storage"
)

type TaskStore interface {
	Load(ctx context.Context) []task.Task
	Save(ctx context.Context, items []task.Task) bool
	Clear(ctx context.Context) bool
	Subscribe(fn func(items []task.Task)) (cancel func())
	Export(ctx context.Context) (data string, filename string, err error)
	Import(ctx context.Context, data string) storage.ImportResult
	CreateBackup(ctx context.Context) string
	RestoreFromBackup(ctx context.Context) bool
	Info(ctx context.Context) storage.Info
}

type CategoryStore interface {
	Load(ctx context.Context) []category.Category
	Save(ctx context.Context, items []category.Category) bool
	Subscribe(fn func(items []category.Category)) (cancel func())
	Export(ctx context.Context) (data string, filename string, err error)
	Import(ctx context.Context, data string) storage.ImportResult
	Info(ctx context.Context) storage.Info
}

type SettingsStore interface {
	Load(ctx context.Context) settings.Settings
	Save(ctx context.Context, items settings.Settings) bool
}

// SettingsProvider отдаёт действующие настройки для дефолтов новых задач
type SettingsProvider interface {
	Current(ctx context.Context) settings.Settings
}

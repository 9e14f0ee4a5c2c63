package service

import (
	"context"

	"taskPlanner/internal/models/settings"
	"taskPlanner/internal/models/task"
)

type SettingsService struct {
	store SettingsStore
}

func NewSettingsService(store SettingsStore) *SettingsService {
	return &SettingsService{store: store}
}

func (s *SettingsService) Get(ctx context.Context) settings.Settings {
	return s.store.Load(ctx)
}

// Current реализует SettingsProvider для дефолтов новых задач
func (s *SettingsService) Current(ctx context.Context) settings.Settings {
	return s.Get(ctx)
}

func (s *SettingsService) Update(ctx context.Context, next settings.Settings) (settings.Settings, error) {
	if !settings.ValidDateFormat(next.DateFormat) {
		return settings.Settings{}, NewValidationError("dateFormat", "неизвестный формат даты")
	}
	if !settings.ValidTimeFormat(next.TimeFormat) {
		return settings.Settings{}, NewValidationError("timeFormat", "неизвестный формат времени")
	}
	if !task.ValidPriority(next.DefaultPriority) {
		return settings.Settings{}, NewValidationError("defaultPriority", "неизвестный приоритет")
	}
	if next.DefaultEstimatedTime <= 0 {
		return settings.Settings{}, NewValidationError("defaultEstimatedTime", "должно быть положительным")
	}

	if !s.store.Save(ctx, next) {
		return settings.Settings{}, NewStorageError("сохранение настроек", nil)
	}
	return next, nil
}

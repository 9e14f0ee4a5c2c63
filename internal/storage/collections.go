package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"taskPlanner/internal/broadcast"
	"taskPlanner/internal/kv"
	"taskPlanner/internal/models/category"
	"taskPlanner/internal/models/settings"
	"taskPlanner/internal/models/task"
)

// ключи коллекций в общем key-value хранилище
const (
	TasksKey          = "planner-tasks"
	TasksVersionKey   = "planner-tasks-version"
	TasksVersion      = "1.0.0"
	TasksBackupPrefix = "planner-tasks-backup-"
	TasksChannel      = "task-storage-sync"

	CategoriesKey          = "planner-categories"
	CategoriesVersionKey   = "planner-categories-version"
	CategoriesVersion      = "1.1.0"
	CategoriesBackupPrefix = "planner-categories-backup-"
	CategoriesChannel      = "category-storage-sync"

	SettingsKey          = "planner-settings"
	SettingsVersionKey   = "planner-settings-version"
	SettingsVersion      = "1.0.0"
	SettingsBackupPrefix = "planner-settings-backup-"
	SettingsChannel      = "settings-storage-sync"
)

type TaskStore = Store[[]task.Task]
type CategoryStore = Store[[]category.Category]
type SettingsStore = Store[settings.Settings]

func NewTaskStore(store kv.Store, hub *broadcast.Hub) *TaskStore {
	return New(Config[[]task.Task]{
		Key:          TasksKey,
		VersionKey:   TasksVersionKey,
		Version:      TasksVersion,
		BackupPrefix: TasksBackupPrefix,
		Channel:      TasksChannel,
		MessageType:  "TASKS_UPDATED",
		Migrations: []Migration{
			{
				Version:     "1.0.0",
				Description: "конверт с метаданными вместо голого массива задач",
				Apply:       wrapLegacyCollection("tasks", "1.0.0"),
			},
		},
		Codec: Codec[[]task.Task]{
			Collection: "tasks",
			Empty:      func() []task.Task { return []task.Task{} },
			Count:      func(items []task.Task) int { return len(items) },
			Decode: func(raw json.RawMessage) ([]task.Task, error) {
				var items []task.Task
				if err := json.Unmarshal(raw, &items); err != nil {
					return nil, fmt.Errorf("разбор задач: %w", err)
				}
				return items, nil
			},
			CleanImport: cleanImportTasks,
		},
	}, store, hub)
}

func NewCategoryStore(store kv.Store, hub *broadcast.Hub) *CategoryStore {
	return New(Config[[]category.Category]{
		Key:          CategoriesKey,
		VersionKey:   CategoriesVersionKey,
		Version:      CategoriesVersion,
		BackupPrefix: CategoriesBackupPrefix,
		Channel:      CategoriesChannel,
		MessageType:  "CATEGORIES_UPDATED",
		Migrations: []Migration{
			{
				Version:     "1.0.0",
				Description: "конверт с метаданными вместо голого массива категорий",
				Apply:       wrapLegacyCollection("categories", "1.0.0"),
			},
			{
				Version:     "1.1.0",
				Description: "удаление выведенных встроенных категорий, кроме personal",
				Apply:       migrateCategoryDefaults,
			},
		},
		Codec: Codec[[]category.Category]{
			Collection: "categories",
			Empty:      func() []category.Category { return category.Defaults(time.Now()) },
			Count:      func(items []category.Category) int { return len(items) },
			Decode: func(raw json.RawMessage) ([]category.Category, error) {
				var items []category.Category
				if err := json.Unmarshal(raw, &items); err != nil {
					return nil, fmt.Errorf("разбор категорий: %w", err)
				}
				return items, nil
			},
			CleanImport: cleanImportCategories,
		},
	}, store, hub)
}

func NewSettingsStore(store kv.Store, hub *broadcast.Hub) *SettingsStore {
	return New(Config[settings.Settings]{
		Key:          SettingsKey,
		VersionKey:   SettingsVersionKey,
		Version:      SettingsVersion,
		BackupPrefix: SettingsBackupPrefix,
		Channel:      SettingsChannel,
		MessageType:  "SETTINGS_UPDATED",
		Migrations: []Migration{
			{
				Version:     "1.0.0",
				Description: "конверт с метаданными вместо голого объекта настроек",
				Apply:       wrapLegacyObject("settings", "1.0.0"),
			},
		},
		Codec: Codec[settings.Settings]{
			Collection: "settings",
			Empty:      settings.Defaults,
			Count:      func(settings.Settings) int { return 1 },
			Decode: func(raw json.RawMessage) (settings.Settings, error) {
				// частично сохранённые настройки накладываются на дефолтные
				return settings.Merge(raw)
			},
			CleanImport: func(json.RawMessage) (settings.Settings, int) {
				// настройки не импортируются снимком
				return settings.Defaults(), 0
			},
		},
	}, store, hub)
}

// wrapLegacyCollection - миграция самой старой формы: голый массив
// элементов превращается в конверт с метаданными
func wrapLegacyCollection(collection, version string) func(raw []byte) ([]byte, error) {
	return func(raw []byte) ([]byte, error) {
		if sniffShape(raw) != shapeLegacyArray {
			return raw, nil
		}

		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("разбор унаследованного массива: %w", err)
		}

		now := time.Now()
		return encodeEnvelope(Envelope{
			Version: version,
			Items:   raw,
			Metadata: Metadata{
				LastModified: now,
				TotalItems:   len(items),
				CreatedAt:    now,
			},
		}, collection, nil, false)
	}
}

// wrapLegacyObject - то же для одиночного объекта (настройки)
func wrapLegacyObject(collection, version string) func(raw []byte) ([]byte, error) {
	return func(raw []byte) ([]byte, error) {
		if sniffShape(raw) != shapeLegacyObject {
			return raw, nil
		}

		now := time.Now()
		return encodeEnvelope(Envelope{
			Version: version,
			Items:   raw,
			Metadata: Metadata{
				LastModified: now,
				TotalItems:   1,
				CreatedAt:    now,
			},
		}, collection, nil, false)
	}
}

// выведенные из употребления встроенные категории старых версий
var retiredDefaultIDs = map[string]bool{
	"work":   true,
	"study":  true,
	"health": true,
}

// migrateCategoryDefaults убирает старые встроенные категории,
// пользовательские не трогает и гарантирует наличие personal
func migrateCategoryDefaults(raw []byte) ([]byte, error) {
	env, err := decodeEnvelope(raw, "categories")
	if err != nil {
		return nil, err
	}

	var items []category.Category
	if err := json.Unmarshal(env.Items, &items); err != nil {
		return nil, fmt.Errorf("разбор категорий: %w", err)
	}

	kept := []category.Category{}
	hasDefault := false
	for _, item := range items {
		if item.IsDefault && retiredDefaultIDs[item.ID] {
			continue
		}
		if item.ID == category.DefaultID {
			item.IsDefault = true
			hasDefault = true
		}
		kept = append(kept, item)
	}
	if !hasDefault {
		kept = append(category.Defaults(time.Now()), kept...)
	}

	itemsRaw, err := json.Marshal(kept)
	if err != nil {
		return nil, fmt.Errorf("сериализация категорий: %w", err)
	}

	env.Version = "1.1.0"
	env.Items = itemsRaw
	env.Metadata.TotalItems = len(kept)
	env.Metadata.LastModified = time.Now()
	return encodeEnvelope(env, "categories", nil, false)
}

// cleanImportTasks отбирает валидные задачи импортируемого массива:
// обязательны id, title и дедлайн; остальное дозаполняется
func cleanImportTasks(raw json.RawMessage) ([]task.Task, int) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, 0
	}

	now := time.Now()
	valid := []task.Task{}
	for _, entry := range entries {
		var item task.Task
		if err := json.Unmarshal(entry, &item); err != nil {
			continue
		}
		if item.ID == "" || item.Title == "" || item.DueDate.IsZero() {
			continue
		}

		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		if item.UpdatedAt.IsZero() {
			item.UpdatedAt = now
		}
		if item.UpdatedAt.Before(item.CreatedAt) {
			item.UpdatedAt = item.CreatedAt
		}
		if !task.ValidPriority(item.Priority) {
			item.Priority = task.PriorityMedium
		}
		if !task.ValidStatus(item.Status) {
			item.Status = task.StatusPending
		}
		if item.EstimatedTime <= 0 {
			item.EstimatedTime = 60
		}
		if item.CategoryID == "" {
			item.CategoryID = category.DefaultID
		}
		valid = append(valid, item)
	}
	return valid, len(valid)
}

// cleanImportCategories: обязательны id и имя; наличие категории
// с флагом default гарантируется
func cleanImportCategories(raw json.RawMessage) ([]category.Category, int) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, 0
	}

	now := time.Now()
	valid := []category.Category{}
	hasDefault := false
	for _, entry := range entries {
		var item category.Category
		if err := json.Unmarshal(entry, &item); err != nil {
			continue
		}
		if item.ID == "" || item.Name == "" {
			continue
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		if item.IsDefault {
			hasDefault = true
		}
		valid = append(valid, item)
	}
	if len(valid) == 0 {
		return nil, 0
	}
	if !hasDefault {
		valid = append(category.Defaults(now), valid...)
	}
	return valid, len(valid)
}

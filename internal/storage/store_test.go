package storage_test

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"taskPlanner/internal/broadcast"
	"taskPlanner/internal/kv/inmemory"
	"taskPlanner/internal/logger"
	"taskPlanner/internal/models/task"
	"taskPlanner/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init(true)
	defer logger.Sync()
	m.Run()
}

func newTaskStore(t *testing.T) (*storage.TaskStore, *inmemory.Handle) {
	t.Helper()

	handle := inmemory.New().NewHandle()
	store := storage.NewTaskStore(handle, broadcast.NewHub())
	require.NoError(t, store.Initialize(context.Background()))
	t.Cleanup(store.Close)
	return store, handle
}

func sampleTask(id string, due time.Time) task.Task {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return task.Task{
		ID:            id,
		Title:         "задача " + id,
		Priority:      task.PriorityMedium,
		Status:        task.StatusPending,
		DueDate:       due,
		EstimatedTime: 30,
		CreatedAt:     now,
		UpdatedAt:     now,
		CategoryID:    "personal",
	}
}

// TestStore_SaveLoadRoundTrip проверяет, что даты переживают цикл записи-чтения
func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store, _ := newTaskStore(t)
	ctx := context.Background()

	due := time.Date(2026, 4, 1, 9, 30, 0, 123456789, time.UTC)
	saved := sampleTask("t1", due)
	require.True(t, store.Save(ctx, []task.Task{saved}))

	loaded := store.Load(ctx)
	require.Len(t, loaded, 1)
	assert.Equal(t, saved.ID, loaded[0].ID)
	assert.True(t, due.Equal(loaded[0].DueDate), "дедлайн не пережил цикл записи-чтения")
	assert.True(t, saved.CreatedAt.Equal(loaded[0].CreatedAt))
}

// TestStore_LegacyArrayMigration проверяет подъём голого массива до конверта
func TestStore_LegacyArrayMigration(t *testing.T) {
	handle := inmemory.New().NewHandle()
	ctx := context.Background()

	legacy := `[{"id":"old1","title":"старая задача","priority":"high","status":"pending",` +
		`"dueDate":"2026-05-01T10:00:00Z","estimatedTime":45,` +
		`"createdAt":"2026-04-01T10:00:00Z","updatedAt":"2026-04-01T10:00:00Z","categoryId":"personal"}]`
	require.NoError(t, handle.Set(ctx, storage.TasksKey, legacy))

	store := storage.NewTaskStore(handle, broadcast.NewHub())
	require.NoError(t, store.Initialize(ctx))
	defer store.Close()

	// данные читаются и тег версии проставлен
	loaded := store.Load(ctx)
	require.Len(t, loaded, 1)
	assert.Equal(t, "old1", loaded[0].ID)

	tag, ok, err := handle.Get(ctx, storage.TasksVersionKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, storage.TasksVersion, tag)

	// под ключом теперь конверт с полем version
	raw, ok, err := handle.Get(ctx, storage.TasksKey)
	require.NoError(t, err)
	require.True(t, ok)
	var envelope map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &envelope))
	assert.Contains(t, envelope, "version")
	assert.Contains(t, envelope, "tasks")
	assert.Contains(t, envelope, "metadata")

	// перед миграцией снята копия исходных данных
	backups, err := handle.Keys(ctx, storage.TasksBackupPrefix)
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

// TestStore_SecondInitializeIsNoop повторная инициализация не трогает данные
func TestStore_SecondInitializeIsNoop(t *testing.T) {
	store, handle := newTaskStore(t)
	ctx := context.Background()

	require.True(t, store.Save(ctx, []task.Task{sampleTask("t1", time.Now().Add(time.Hour))}))
	before, _, err := handle.Get(ctx, storage.TasksKey)
	require.NoError(t, err)

	require.NoError(t, store.Initialize(ctx))

	after, _, err := handle.Get(ctx, storage.TasksKey)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

// TestStore_BackupRetention держит не больше пяти снимков, старые уходят первыми
func TestStore_BackupRetention(t *testing.T) {
	store, handle := newTaskStore(t)
	ctx := context.Background()

	require.True(t, store.Save(ctx, []task.Task{sampleTask("t1", time.Now().Add(time.Hour))}))

	var first string
	for i := 0; i < storage.MaxBackups+2; i++ {
		key := store.CreateBackup(ctx)
		require.NotEmpty(t, key)
		if i == 0 {
			first = key
		}
		time.Sleep(time.Millisecond)
	}

	backups, err := handle.Keys(ctx, storage.TasksBackupPrefix)
	require.NoError(t, err)
	assert.Len(t, backups, storage.MaxBackups)
	assert.NotContains(t, backups, first, "самый старый снимок должен был быть удалён")
}

// TestStore_RestoreFromBackup возвращает последнее сохранённое состояние
func TestStore_RestoreFromBackup(t *testing.T) {
	store, _ := newTaskStore(t)
	ctx := context.Background()

	require.True(t, store.Save(ctx, []task.Task{sampleTask("keep", time.Now().Add(time.Hour))}))
	require.NotEmpty(t, store.CreateBackup(ctx))

	require.True(t, store.Save(ctx, []task.Task{}))
	require.True(t, store.RestoreFromBackup(ctx))

	loaded := store.Load(ctx)
	require.Len(t, loaded, 1)
	assert.Equal(t, "keep", loaded[0].ID)
}

// TestStore_ImportValidation: битые снимки отклоняются, хранилище не меняется
func TestStore_ImportValidation(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: "мусор"},
		{name: "no collection field", data: `{"version":"1.0.0"}`},
		{name: "collection is object", data: `{"tasks":{"id":"x"}}`},
		{name: "empty array", data: `{"tasks":[]}`},
		{name: "all items invalid", data: `{"tasks":[{"title":"без id"},{"id":"без названия"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTaskStore(t)
			ctx := context.Background()

			original := sampleTask("orig", time.Now().Add(time.Hour))
			require.True(t, store.Save(ctx, []task.Task{original}))

			result := store.Import(ctx, tt.data)
			assert.False(t, result.Success)
			assert.Zero(t, result.ItemsCount)

			loaded := store.Load(ctx)
			require.Len(t, loaded, 1)
			assert.Equal(t, "orig", loaded[0].ID)
		})
	}
}

// TestStore_ImportBackfillsFields: валидные элементы дозаполняются
func TestStore_ImportBackfillsFields(t *testing.T) {
	store, _ := newTaskStore(t)
	ctx := context.Background()

	data := `{"tasks":[
		{"id":"t1","title":"полусырая","dueDate":"2026-06-01T10:00:00Z"},
		{"title":"без id, выбрасывается","dueDate":"2026-06-01T10:00:00Z"}
	]}`

	result := store.Import(ctx, data)
	require.True(t, result.Success, result.Message)
	assert.Equal(t, 1, result.ItemsCount)

	loaded := store.Load(ctx)
	require.Len(t, loaded, 1)
	got := loaded[0]
	assert.Equal(t, task.PriorityMedium, got.Priority)
	assert.Equal(t, task.StatusPending, got.Status)
	assert.Equal(t, 60, got.EstimatedTime)
	assert.Equal(t, "personal", got.CategoryID)
	assert.False(t, got.CreatedAt.IsZero())
}

// TestStore_ExportImportRoundTrip: экспортированный файл восстанавливает состояние
func TestStore_ExportImportRoundTrip(t *testing.T) {
	source, _ := newTaskStore(t)
	ctx := context.Background()

	items := []task.Task{
		sampleTask("a", time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)),
		sampleTask("b", time.Date(2026, 7, 2, 12, 0, 0, 0, time.UTC)),
	}
	require.True(t, source.Save(ctx, items))

	data, filename, err := source.Export(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filename, "tasks-backup-"))
	assert.True(t, strings.HasSuffix(filename, ".json"))
	assert.Contains(t, data, "exportedAt")

	target, _ := newTaskStore(t)
	result := target.Import(ctx, data)
	require.True(t, result.Success, result.Message)
	assert.Equal(t, 2, result.ItemsCount)

	loaded := target.Load(ctx)
	require.Len(t, loaded, 2)
	assert.Equal(t, "a", loaded[0].ID)
	assert.Equal(t, "b", loaded[1].ID)
}

// TestStore_Clear удаляет данные и тег, но предварительно снимает копию
func TestStore_Clear(t *testing.T) {
	store, handle := newTaskStore(t)
	ctx := context.Background()

	require.True(t, store.Save(ctx, []task.Task{sampleTask("t1", time.Now().Add(time.Hour))}))
	require.True(t, store.Clear(ctx))

	_, ok, err := handle.Get(ctx, storage.TasksKey)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = handle.Get(ctx, storage.TasksVersionKey)
	require.NoError(t, err)
	assert.False(t, ok)

	backups, err := handle.Keys(ctx, storage.TasksBackupPrefix)
	require.NoError(t, err)
	assert.NotEmpty(t, backups)

	assert.Empty(t, store.Load(ctx))
}

// TestStore_Info отражает фактическое состояние ключа
func TestStore_Info(t *testing.T) {
	store, _ := newTaskStore(t)
	ctx := context.Background()

	info := store.Info(ctx)
	assert.False(t, info.Exists)

	require.True(t, store.Save(ctx, []task.Task{sampleTask("t1", time.Now().Add(time.Hour))}))

	info = store.Info(ctx)
	assert.True(t, info.Exists)
	assert.Equal(t, storage.TasksVersion, info.Version)
	assert.Equal(t, 1, info.ItemsCount)
	assert.Positive(t, info.Size)
	require.NotNil(t, info.LastModified)
	require.NotNil(t, info.CreatedAt)
}

// TestStore_CrossContextSync: запись в одном контексте видна подписчикам другого,
// последняя запись выигрывает; дубли уведомлений допустимы
func TestStore_CrossContextSync(t *testing.T) {
	memory := inmemory.New()
	hub := broadcast.NewHub()
	ctx := context.Background()

	writer := storage.NewTaskStore(memory.NewHandle(), hub)
	require.NoError(t, writer.Initialize(ctx))
	defer writer.Close()

	reader := storage.NewTaskStore(memory.NewHandle(), hub)
	require.NoError(t, reader.Initialize(ctx))
	defer reader.Close()

	var mu sync.Mutex
	sawLast := false
	notified := 0
	reader.Subscribe(func(items []task.Task) {
		mu.Lock()
		defer mu.Unlock()
		notified++
		if len(items) == 1 && items[0].ID == "v2" {
			sawLast = true
		}
	})

	first := sampleTask("v1", time.Now().Add(time.Hour))
	second := sampleTask("v2", time.Now().Add(2*time.Hour))
	require.True(t, writer.Save(ctx, []task.Task{first}))
	require.True(t, writer.Save(ctx, []task.Task{second}))

	// порядок доставки уведомлений не гарантируется, поэтому проверяется
	// факт получения последней версии, а само состояние - через Load
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return sawLast
	}, time.Second, 5*time.Millisecond, "подписчик другого контекста не увидел последнюю запись")

	// оба пути синхронизации могли сработать, это допустимо
	mu.Lock()
	assert.GreaterOrEqual(t, notified, 1)
	mu.Unlock()

	loaded := reader.Load(ctx)
	require.Len(t, loaded, 1)
	assert.Equal(t, "v2", loaded[0].ID)
}

// TestStore_LocalSubscriberNotifiedSynchronously: свои подписчики будятся
// сразу при успешной записи
func TestStore_LocalSubscriberNotifiedSynchronously(t *testing.T) {
	store, _ := newTaskStore(t)
	ctx := context.Background()

	var got []task.Task
	cancel := store.Subscribe(func(items []task.Task) { got = items })
	defer cancel()

	require.True(t, store.Save(ctx, []task.Task{sampleTask("t1", time.Now().Add(time.Hour))}))
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].ID)
}

// TestStore_CorruptedDataLoadsEmpty: битый JSON не валит чтение
func TestStore_CorruptedDataLoadsEmpty(t *testing.T) {
	store, handle := newTaskStore(t)
	ctx := context.Background()

	require.NoError(t, handle.Set(ctx, storage.TasksKey, "{битый"))
	assert.Empty(t, store.Load(ctx))
}

package inmemory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"taskPlanner/internal/kv/inmemory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHandle_SetGetDelete покрывает базовый цикл ключа
func TestHandle_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	h := inmemory.New().NewHandle()

	_, ok, err := h.Get(ctx, "planner-tasks")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, h.Set(ctx, "planner-tasks", `{"version":"1.0.0"}`))

	value, ok, err := h.Get(ctx, "planner-tasks")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"version":"1.0.0"}`, value)

	require.NoError(t, h.Delete(ctx, "planner-tasks"))
	_, ok, err = h.Get(ctx, "planner-tasks")
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestHandle_KeysPrefix возвращает ключи по префиксу в отсортированном порядке
func TestHandle_KeysPrefix(t *testing.T) {
	ctx := context.Background()
	h := inmemory.New().NewHandle()

	require.NoError(t, h.Set(ctx, "planner-tasks-backup-2", "b"))
	require.NoError(t, h.Set(ctx, "planner-tasks-backup-1", "a"))
	require.NoError(t, h.Set(ctx, "planner-categories", "c"))

	keys, err := h.Keys(ctx, "planner-tasks-backup-")
	require.NoError(t, err)
	assert.Equal(t, []string{"planner-tasks-backup-1", "planner-tasks-backup-2"}, keys)
}

// TestHandle_WatchOtherContext: запись одного handle будит watcher другого
func TestHandle_WatchOtherContext(t *testing.T) {
	ctx := context.Background()
	mem := inmemory.New()
	writer := mem.NewHandle()
	reader := mem.NewHandle()

	var mu sync.Mutex
	var got []string
	reader.Watch("planner-tasks", func(value string) {
		mu.Lock()
		got = append(got, value)
		mu.Unlock()
	})

	require.NoError(t, writer.Set(ctx, "planner-tasks", "v1"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0] == "v1"
	}, time.Second, 5*time.Millisecond)
}

// TestHandle_WatchOwnWritesSilent: свои записи watcher не будят
func TestHandle_WatchOwnWritesSilent(t *testing.T) {
	ctx := context.Background()
	h := inmemory.New().NewHandle()

	var mu sync.Mutex
	fired := false
	h.Watch("planner-tasks", func(value string) {
		mu.Lock()
		fired = true
		mu.Unlock()
	})

	require.NoError(t, h.Set(ctx, "planner-tasks", "v1"))

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.False(t, fired)
}

// TestHandle_WatchCancel: после отмены уведомления прекращаются
func TestHandle_WatchCancel(t *testing.T) {
	ctx := context.Background()
	mem := inmemory.New()
	writer := mem.NewHandle()
	reader := mem.NewHandle()

	var mu sync.Mutex
	count := 0
	cancel := reader.Watch("planner-tasks", func(value string) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	require.NoError(t, writer.Set(ctx, "planner-tasks", "v1"))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, writer.Set(ctx, "planner-tasks", "v2"))

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}

// TestHandle_CloseDetaches: закрытый handle уведомлений не получает
func TestHandle_CloseDetaches(t *testing.T) {
	ctx := context.Background()
	mem := inmemory.New()
	writer := mem.NewHandle()
	reader := mem.NewHandle()

	var mu sync.Mutex
	fired := false
	reader.Watch("planner-tasks", func(value string) {
		mu.Lock()
		fired = true
		mu.Unlock()
	})
	reader.Close()

	require.NoError(t, writer.Set(ctx, "planner-tasks", "v1"))

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.False(t, fired)
}

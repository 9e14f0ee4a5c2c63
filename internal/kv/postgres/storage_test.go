package postgres_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"taskPlanner/internal/kv/postgres"
	"taskPlanner/internal/logger"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestMain(m *testing.M) {
	logger.Init(true)
	defer logger.Sync()
	m.Run()
}

// PostgresKVTestSuite для интеграционных тестов key-value хранилища
type PostgresKVTestSuite struct {
	suite.Suite
	container  testcontainers.Container
	storage    *postgres.Storage
	ctx        context.Context
	cancel     context.CancelFunc
	connString string
}

// SetupSuite запускается один раз перед всеми тестами
func (s *PostgresKVTestSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithCancel(context.Background())

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(s.T(), err)
	s.container = container

	host, err := container.Host(s.ctx)
	require.NoError(s.T(), err)

	port, err := container.MappedPort(s.ctx, "5432")
	require.NoError(s.T(), err)

	s.connString = fmt.Sprintf("postgres://test:test@%s:%s/testdb", host, port.Port())

	s.storage, err = postgres.New(s.ctx, s.connString)
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.storage.Migrate(s.ctx))
	require.NoError(s.T(), s.storage.Listen(s.ctx))
}

// TearDownSuite очищает после всех тестов
func (s *PostgresKVTestSuite) TearDownSuite() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.storage != nil {
		s.storage.Close()
	}
	if s.container != nil {
		s.container.Terminate(context.Background())
	}
}

// SetupTest очищает таблицу перед каждым тестом
func (s *PostgresKVTestSuite) SetupTest() {
	conn, err := pgx.Connect(s.ctx, s.connString)
	require.NoError(s.T(), err)
	defer conn.Close(s.ctx)

	_, err = conn.Exec(s.ctx, "DELETE FROM kv_entries")
	require.NoError(s.T(), err)
}

// TestPostgresKVTestSuite запускает suite
func TestPostgresKVTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционные тесты в коротком режиме")
	}
	suite.Run(t, new(PostgresKVTestSuite))
}

// TestStorage_GetMissing: отсутствующий ключ не считается ошибкой
func (s *PostgresKVTestSuite) TestStorage_GetMissing() {
	ctx := context.Background()

	_, ok, err := s.storage.Get(ctx, "planner-tasks")
	require.NoError(s.T(), err)
	assert.False(s.T(), ok)
}

// TestStorage_SetGetDelete тестирует основной цикл ключа
func (s *PostgresKVTestSuite) TestStorage_SetGetDelete() {
	ctx := context.Background()

	err := s.storage.Set(ctx, "planner-tasks", `{"version":"1.0.0","tasks":[]}`)
	require.NoError(s.T(), err)

	value, ok, err := s.storage.Get(ctx, "planner-tasks")
	require.NoError(s.T(), err)
	require.True(s.T(), ok)
	assert.Equal(s.T(), `{"version":"1.0.0","tasks":[]}`, value)

	// повторная запись перезаписывает значение
	err = s.storage.Set(ctx, "planner-tasks", `{"version":"1.0.0","tasks":[{}]}`)
	require.NoError(s.T(), err)

	value, ok, err = s.storage.Get(ctx, "planner-tasks")
	require.NoError(s.T(), err)
	require.True(s.T(), ok)
	assert.Equal(s.T(), `{"version":"1.0.0","tasks":[{}]}`, value)

	err = s.storage.Delete(ctx, "planner-tasks")
	require.NoError(s.T(), err)

	_, ok, err = s.storage.Get(ctx, "planner-tasks")
	require.NoError(s.T(), err)
	assert.False(s.T(), ok)
}

// TestStorage_KeysPrefix возвращает ключи по префиксу в порядке возрастания
func (s *PostgresKVTestSuite) TestStorage_KeysPrefix() {
	ctx := context.Background()

	require.NoError(s.T(), s.storage.Set(ctx, "planner-tasks-backup-200", "b"))
	require.NoError(s.T(), s.storage.Set(ctx, "planner-tasks-backup-100", "a"))
	require.NoError(s.T(), s.storage.Set(ctx, "planner-categories", "c"))

	keys, err := s.storage.Keys(ctx, "planner-tasks-backup-")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{"planner-tasks-backup-100", "planner-tasks-backup-200"}, keys)

	keys, err = s.storage.Keys(ctx, "planner-")
	require.NoError(s.T(), err)
	assert.Len(s.T(), keys, 3)
}

// TestStorage_WatchNotifies: запись ключа будит watcher через pg_notify.
// Уведомление приходит и от собственной записи, это ожидаемо
func (s *PostgresKVTestSuite) TestStorage_WatchNotifies() {
	ctx := context.Background()

	var mu sync.Mutex
	var got []string
	cancel := s.storage.Watch("planner-tasks", func(value string) {
		mu.Lock()
		got = append(got, value)
		mu.Unlock()
	})
	defer cancel()

	require.NoError(s.T(), s.storage.Set(ctx, "planner-tasks", "v1"))

	require.Eventually(s.T(), func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) >= 1 && got[len(got)-1] == "v1"
	}, 5*time.Second, 10*time.Millisecond)
}

// TestStorage_WatchCancel: после отмены уведомления не приходят
func (s *PostgresKVTestSuite) TestStorage_WatchCancel() {
	ctx := context.Background()

	var mu sync.Mutex
	count := 0
	cancel := s.storage.Watch("planner-categories", func(value string) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	require.NoError(s.T(), s.storage.Set(ctx, "planner-categories", "v1"))
	require.Eventually(s.T(), func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count >= 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	mu.Lock()
	before := count
	mu.Unlock()

	require.NoError(s.T(), s.storage.Set(ctx, "planner-categories", "v2"))

	time.Sleep(200 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(s.T(), before, count)
}

// TestStorage_HealthCheck тестирует проверку соединения
func (s *PostgresKVTestSuite) TestStorage_HealthCheck() {
	require.NoError(s.T(), s.storage.HealthCheck(context.Background()))
}

// Unit тесты (без базы данных)
func TestStorage_New(t *testing.T) {
	tests := []struct {
		name       string
		connString string
	}{
		{
			name:       "invalid connection string",
			connString: "invalid",
		},
		{
			name:       "empty connection string",
			connString: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := postgres.New(context.Background(), tt.connString)
			assert.Error(t, err)
		})
	}
}

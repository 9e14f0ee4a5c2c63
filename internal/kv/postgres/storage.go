package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taskPlanner/internal/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// канал уведомлений, общий для всех процессов приложения
const notifyChannel = "kv_changed"

type Storage struct {
	pool *pgxpool.Pool

	wmu      sync.Mutex
	watchers map[string][]*watcher
	nextID   int
}

type watcher struct {
	id int
	fn func(value string)
}

func New(ctx context.Context, connString string) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: Ошибка загрузки конфига", err)
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = time.Minute * 5

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: Ошибка создания пула", err)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	logger.Info("Repository: Успешное создание подключения к PostgreSQL")
	return &Storage{
		pool:     pool,
		watchers: make(map[string][]*watcher),
	}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: Закрытие всех соединений PostgreSQL")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	err := s.pool.Ping(ctx)
	if err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

// Migrate создаёт таблицу kv_entries, если её ещё нет
func (s *Storage) Migrate(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS kv_entries (
				key        TEXT PRIMARY KEY,
				value      TEXT NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`

	_, err := s.pool.Exec(ctx, query)
	if err != nil {
		logger.Error("Repository: Не удалось создать таблицу kv_entries", err)
		return fmt.Errorf("создание таблицы: %w", err)
	}
	return nil
}

func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()

	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM kv_entries WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", false, nil
		}
		logger.Error("Repository: Не удалось прочитать ключ", err, zap.String("key", key))
		return "", false, fmt.Errorf("чтение ключа: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", time.Since(start)))
	}
	return value, true, nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	start := time.Now()

	query := `INSERT INTO kv_entries (key, value, updated_at)
				VALUES ($1, $2, NOW())
				ON CONFLICT (key) DO UPDATE
				SET value = $2, updated_at = NOW()`

	_, err := s.pool.Exec(ctx, query, key, value)
	if err != nil {
		logger.Error("Repository: Не удалось записать ключ", err, zap.String("key", key))
		return fmt.Errorf("запись ключа: %w", err)
	}

	// сигнал мутации для остальных процессов; payload - только ключ,
	// значение каждый получатель перечитывает сам
	_, err = s.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, key)
	if err != nil {
		logger.Warn("Repository: Не удалось отправить уведомление", zap.Error(err), zap.String("key", key))
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленная операция", zap.Duration("ms", time.Since(start)))
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM kv_entries WHERE key = $1`, key)
	if err != nil {
		logger.Error("Repository: Не удалось удалить ключ", err, zap.String("key", key))
		return fmt.Errorf("удаление ключа: %w", err)
	}
	return nil
}

func (s *Storage) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key FROM kv_entries WHERE key LIKE $1 || '%' ORDER BY key`, prefix)
	if err != nil {
		logger.Error("Repository: Не удалось получить список ключей", err)
		return nil, fmt.Errorf("получение ключей: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			logger.Warn("Repository: Ошибка сканирования ключа", zap.Error(err))
			continue
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return keys, nil
}

func (s *Storage) Watch(key string, fn func(value string)) (cancel func()) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	w := &watcher{id: s.nextID, fn: fn}
	s.nextID++
	s.watchers[key] = append(s.watchers[key], w)

	return func() {
		s.wmu.Lock()
		defer s.wmu.Unlock()

		kept := s.watchers[key][:0]
		for _, existing := range s.watchers[key] {
			if existing.id != w.id {
				kept = append(kept, existing)
			}
		}
		s.watchers[key] = kept
	}
}

// Listen держит выделенное соединение с LISTEN и раздаёт уведомления watcher-ам.
// Уведомление может прийти и от собственной записи - подписчики идемпотентны,
// дедупликации нет.
func (s *Storage) Listen(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		logger.Error("Repository: Не удалось получить соединение для LISTEN", err)
		return fmt.Errorf("получение соединения: %w", err)
	}

	_, err = conn.Exec(ctx, "LISTEN "+notifyChannel)
	if err != nil {
		conn.Release()
		logger.Error("Repository: Команда LISTEN не выполнена", err)
		return fmt.Errorf("команда listen: %w", err)
	}

	go func() {
		defer conn.Release()

		for {
			notification, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() != nil {
					logger.Info("Repository: Остановка прослушивания уведомлений")
					return
				}
				logger.Warn("Repository: Ошибка ожидания уведомления", zap.Error(err))
				return
			}
			s.dispatch(ctx, notification.Payload)
		}
	}()

	logger.Info("Repository: Прослушивание уведомлений запущено")
	return nil
}

func (s *Storage) dispatch(ctx context.Context, key string) {
	s.wmu.Lock()
	fns := make([]func(string), 0, len(s.watchers[key]))
	for _, w := range s.watchers[key] {
		fns = append(fns, w.fn)
	}
	s.wmu.Unlock()

	if len(fns) == 0 {
		return
	}

	value, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return
	}
	for _, fn := range fns {
		go fn(value)
	}
}

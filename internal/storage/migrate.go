package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"taskPlanner/internal/logger"

	"go.uber.org/zap"
)

// Migration - чистое преобразование сырого значения ключа к следующей версии
// схемы. Шаг не выполняет I/O: вход байты, выход байты.
type Migration struct {
	Version     string
	Description string
	Apply       func(raw []byte) ([]byte, error)
}

// runMigrations сверяет сохранённый тег версии с текущим и прогоняет
// недостающие шаги по возрастанию версий. Перед стартом снимается копия;
// упавший шаг откатывает данные из копии и возвращает ошибку наружу,
// частично мигрированные данные никогда не сохраняются.
func (s *Store[T]) runMigrations(ctx context.Context) error {
	storedVersion := ""
	if tag, ok, err := s.kv.Get(ctx, s.cfg.VersionKey); err == nil && ok {
		storedVersion = tag
	}

	raw, ok, err := s.kv.Get(ctx, s.cfg.Key)
	if err != nil {
		return fmt.Errorf("чтение данных перед миграцией: %w", err)
	}
	if !ok {
		// мигрировать нечего, тег появится при первой записи
		return nil
	}

	if storedVersion == s.cfg.Version {
		return nil
	}

	logger.Info("Storage: Запуск миграций",
		zap.String("key", s.cfg.Key),
		zap.String("from", storedVersion),
		zap.String("to", s.cfg.Version))

	s.backups.Create(ctx)

	migrated := []byte(raw)
	for _, migration := range s.cfg.Migrations {
		if compareVersions(migration.Version, storedVersion) <= 0 {
			continue
		}

		migrated, err = migration.Apply(migrated)
		if err != nil {
			logger.Error("Storage: Шаг миграции провален", err,
				zap.String("version", migration.Version),
				zap.String("description", migration.Description))

			if !s.backups.Restore(ctx) {
				logger.Warn("Storage: Восстановление после миграции не удалось",
					zap.String("key", s.cfg.Key))
			}
			return fmt.Errorf("миграция %s: %w", migration.Version, err)
		}

		logger.Info("Storage: Применён шаг миграции",
			zap.String("version", migration.Version),
			zap.String("description", migration.Description))
	}

	if err := s.kv.Set(ctx, s.cfg.Key, string(migrated)); err != nil {
		return fmt.Errorf("сохранение мигрированных данных: %w", err)
	}
	if err := s.kv.Set(ctx, s.cfg.VersionKey, s.cfg.Version); err != nil {
		return fmt.Errorf("обновление тега версии: %w", err)
	}

	logger.Info("Storage: Миграции завершены", zap.String("key", s.cfg.Key))
	return nil
}

// compareVersions сравнивает теги вида "1.1.0"; пустой тег старше любого
func compareVersions(a, b string) int {
	if a == b {
		return 0
	}
	if a == "" {
		return -1
	}
	if b == "" {
		return 1
	}

	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		av, bv := 0, 0
		if i < len(as) {
			av, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bv, _ = strconv.Atoi(bs[i])
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

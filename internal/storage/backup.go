package storage

import (
	"context"
	"sort"
	"strings"
	"time"

	"taskPlanner/internal/kv"
	"taskPlanner/internal/logger"

	"go.uber.org/zap"
)

// MaxBackups - сколько последних снимков хранится на коллекцию
const MaxBackups = 5

// backupManager снимает копию сырого конверта перед разрушающими операциями
// (миграция, очистка, импорт) и следит за ретеншеном
type backupManager struct {
	kv     kv.Store
	key    string
	prefix string
	max    int
}

// Create копирует текущее значение под ключ с ISO-меткой времени.
// Возвращает ключ снимка или пустую строку, если снимать нечего или запись не удалась.
func (b *backupManager) Create(ctx context.Context) string {
	raw, ok, err := b.kv.Get(ctx, b.key)
	if err != nil || !ok {
		return ""
	}

	// двоеточия и точки в метке заменяются, чтобы ключ оставался безопасным;
	// нули в ISO-метке дают лексикографический порядок по времени
	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000000000Z")
	timestamp = strings.NewReplacer(":", "-", ".", "-").Replace(timestamp)
	backupKey := b.prefix + timestamp

	if err := b.kv.Set(ctx, backupKey, raw); err != nil {
		logger.Error("Storage: Не удалось создать резервную копию", err, zap.String("key", backupKey))
		return ""
	}

	b.cleanup(ctx)
	logger.Info("Storage: Резервная копия создана", zap.String("key", backupKey))
	return backupKey
}

// Restore возвращает самый свежий снимок на основной ключ
func (b *backupManager) Restore(ctx context.Context) bool {
	backups := b.list(ctx)
	if len(backups) == 0 {
		return false
	}

	raw, ok, err := b.kv.Get(ctx, backups[0])
	if err != nil || !ok {
		return false
	}

	if err := b.kv.Set(ctx, b.key, raw); err != nil {
		logger.Error("Storage: Не удалось восстановить из копии", err, zap.String("key", backups[0]))
		return false
	}

	logger.Info("Storage: Восстановление из копии", zap.String("key", backups[0]))
	return true
}

func (b *backupManager) cleanup(ctx context.Context) {
	backups := b.list(ctx)
	if len(backups) <= b.max {
		return
	}

	for _, key := range backups[b.max:] {
		if err := b.kv.Delete(ctx, key); err != nil {
			logger.Warn("Storage: Не удалось удалить старую копию", zap.Error(err), zap.String("key", key))
		}
	}
	logger.Info("Storage: Удалены старые копии", zap.Int("count", len(backups)-b.max))
}

// list возвращает ключи снимков, самый свежий первым
func (b *backupManager) list(ctx context.Context) []string {
	keys, err := b.kv.Keys(ctx, b.prefix)
	if err != nil {
		logger.Warn("Storage: Не удалось получить список копий", zap.Error(err))
		return nil
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys
}

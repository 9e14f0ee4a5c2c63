package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"taskPlanner/internal/logger"

	"go.uber.org/zap"
)

type ImportResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	ItemsCount int    `json:"itemsCount"`
}

// Export отдаёт читаемый снимок конверта с отметкой exportedAt
// и именем файла вида <collection>-backup-<YYYY-MM-DD>.json
func (s *Store[T]) Export(ctx context.Context) (data string, filename string, err error) {
	env := Envelope{Version: s.cfg.Version}

	raw, ok, getErr := s.kv.Get(ctx, s.cfg.Key)
	if getErr == nil && ok {
		decoded, decodeErr := s.decodeRawEnvelope([]byte(raw))
		if decodeErr != nil {
			return "", "", fmt.Errorf("чтение данных для экспорта: %w", decodeErr)
		}
		env = decoded
		env.Version = s.cfg.Version
	} else {
		emptyRaw, marshalErr := json.Marshal(s.cfg.Codec.Empty())
		if marshalErr != nil {
			return "", "", fmt.Errorf("сериализация пустой коллекции: %w", marshalErr)
		}
		env.Items = emptyRaw
	}

	now := time.Now()
	encoded, err := encodeEnvelope(env, s.cfg.Codec.Collection, map[string]any{
		"exportedAt": now.UTC().Format(time.RFC3339),
	}, true)
	if err != nil {
		return "", "", fmt.Errorf("сборка файла экспорта: %w", err)
	}

	filename = fmt.Sprintf("%s-backup-%s.json", s.cfg.Codec.Collection, now.Format("2006-01-02"))
	return string(encoded), filename, nil
}

// Import проверяет и принимает внешний снимок. Перед применением снимается
// копия текущего состояния; при любой ошибке валидации хранилище не меняется.
func (s *Store[T]) Import(ctx context.Context, data string) ImportResult {
	s.backups.Create(ctx)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		logger.Warn("Storage: Импорт отклонён, некорректный JSON", zap.Error(err))
		return ImportResult{Message: "некорректный JSON: " + err.Error()}
	}

	collectionRaw, ok := fields[s.cfg.Codec.Collection]
	if !ok || sniffShape(collectionRaw) != shapeLegacyArray {
		logger.Warn("Storage: Импорт отклонён, нет массива коллекции",
			zap.String("collection", s.cfg.Codec.Collection))
		return ImportResult{
			Message: fmt.Sprintf("в файле нет массива %q", s.cfg.Codec.Collection),
		}
	}

	items, count := s.cfg.Codec.CleanImport(collectionRaw)
	if count == 0 {
		logger.Warn("Storage: Импорт отклонён, нет валидных элементов",
			zap.String("collection", s.cfg.Codec.Collection))
		return ImportResult{Message: "в файле нет ни одного валидного элемента"}
	}

	if !s.Save(ctx, items) {
		return ImportResult{Message: "не удалось сохранить импортированные данные"}
	}

	logger.Info("Storage: Импорт завершён",
		zap.String("collection", s.cfg.Codec.Collection),
		zap.Int("count", count))
	return ImportResult{
		Success:    true,
		Message:    fmt.Sprintf("импортировано элементов: %d", count),
		ItemsCount: count,
	}
}

package worker

import (
	"context"
	"time"

	"taskPlanner/internal/logger"

	"go.uber.org/zap"
)

// BackupSource - хранилище, умеющее снимать резервную копию
type BackupSource interface {
	Collection() string
	CreateBackup(ctx context.Context) string
}

// BackupWorker периодически снимает копии всех коллекций
type BackupWorker struct {
	sources  []BackupSource
	interval time.Duration
}

func NewBackupWorker(interval *time.Duration, sources ...BackupSource) *BackupWorker {
	var intervalToSet time.Duration
	if interval == nil {
		intervalToSet = 6 * time.Hour
	} else {
		intervalToSet = *interval
	}

	return &BackupWorker{
		sources:  sources,
		interval: intervalToSet,
	}
}

func (w *BackupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logger.Info("Worker: Фоновое резервное копирование", zap.Time("started_at", time.Now()))
			w.Run(ctx)
		case <-ctx.Done():
			logger.Info("Worker: Фоновое резервное копирование останавливается")
			return
		}
	}
}

func (w *BackupWorker) Run(ctx context.Context) {
	start := time.Now()

	created := 0
	for _, source := range w.sources {
		key := source.CreateBackup(ctx)
		if key == "" {
			logger.Warn("Worker: Копия коллекции не снята",
				zap.String("collection", source.Collection()))
			continue
		}
		created++
		logger.Info("Worker: Копия снята",
			zap.String("collection", source.Collection()),
			zap.String("backup_key", key))
	}

	logger.Info(
		"Worker: Завершение резервного копирования",
		zap.Duration("ms", time.Since(start)),
		zap.Int("collections", len(w.sources)),
		zap.Int("created", created),
	)
}

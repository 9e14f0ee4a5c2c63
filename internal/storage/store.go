package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"taskPlanner/internal/broadcast"
	"taskPlanner/internal/kv"
	"taskPlanner/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Codec описывает, как коллекция живёт внутри конверта
type Codec[T any] struct {
	// Collection - имя поля коллекции в конверте ("tasks", "categories", ...)
	Collection string
	Empty      func() T
	Count      func(items T) int
	Decode     func(raw json.RawMessage) (T, error)
	// CleanImport отбирает валидные элементы импортируемого массива,
	// дозаполняет недостающие поля и возвращает число выживших
	CleanImport func(raw json.RawMessage) (T, int)
}

type Config[T any] struct {
	Key          string
	VersionKey   string
	Version      string
	BackupPrefix string
	Channel      string
	MessageType  string
	Migrations   []Migration
	Codec        Codec[T]
}

// Store - адаптер версионированного key-value хранилища поверх общего kv.
// Создаётся явно и требует Initialize: никаких скрытых эффектов при
// конструировании, в тестах каждый экземпляр изолирован.
type Store[T any] struct {
	cfg     Config[T]
	kv      kv.Store
	hub     *broadcast.Hub
	backups backupManager
	origin  string

	mu          sync.Mutex
	subs        map[int]func(T)
	nextSub     int
	cancels     []func()
	initialized bool
}

func New[T any](cfg Config[T], store kv.Store, hub *broadcast.Hub) *Store[T] {
	return &Store[T]{
		cfg: cfg,
		kv:  store,
		hub: hub,
		backups: backupManager{
			kv:     store,
			key:    cfg.Key,
			prefix: cfg.BackupPrefix,
			max:    MaxBackups,
		},
		origin: uuid.New().String(),
		subs:   make(map[int]func(T)),
	}
}

// Initialize прогоняет миграции и подключает оба пути синхронизации:
// канал публикаций и сигнал мутации хранилища. До Initialize данные
// наружу не отдаются.
func (s *Store[T]) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.runMigrations(ctx); err != nil {
		return fmt.Errorf("инициализация хранилища %s: %w", s.cfg.Key, err)
	}

	if s.hub != nil {
		cancel := s.hub.Subscribe(s.cfg.Channel, s.onMessage)
		s.cancels = append(s.cancels, cancel)
	}

	// запасной путь для окружений без канала публикаций; дедупликации
	// между путями нет, уведомление - идемпотентный сигнал "обновись"
	if watcher, ok := s.kv.(kv.Watcher); ok {
		cancel := watcher.Watch(s.cfg.Key, s.onRawChange)
		s.cancels = append(s.cancels, cancel)
	}

	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()
	return nil
}

func (s *Store[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
	s.subs = make(map[int]func(T))
}

// Load никогда не возвращает ошибку: битые данные логируются,
// наружу уходит пустая коллекция
func (s *Store[T]) Load(ctx context.Context) T {
	raw, ok, err := s.kv.Get(ctx, s.cfg.Key)
	if err != nil {
		logger.Error("Storage: Ошибка чтения", err, zap.String("key", s.cfg.Key))
		return s.cfg.Codec.Empty()
	}
	if !ok {
		return s.cfg.Codec.Empty()
	}

	items, err := s.decodeRaw([]byte(raw))
	if err != nil {
		logger.Error("Storage: Повреждённые данные", err, zap.String("key", s.cfg.Key))
		return s.cfg.Codec.Empty()
	}
	return items
}

// Save оборачивает коллекцию в конверт и пишет её целиком.
// Успешная запись синхронно будит локальных подписчиков и, отдельно,
// публикует сообщение для остальных контекстов.
func (s *Store[T]) Save(ctx context.Context, items T) bool {
	itemsRaw, err := json.Marshal(items)
	if err != nil {
		logger.Error("Storage: Ошибка сериализации", err, zap.String("key", s.cfg.Key))
		return false
	}

	now := time.Now()
	env := Envelope{
		Version: s.cfg.Version,
		Items:   itemsRaw,
		Metadata: Metadata{
			LastModified: now,
			TotalItems:   s.cfg.Codec.Count(items),
			CreatedAt:    s.envelopeCreatedAt(ctx, now),
		},
	}

	data, err := encodeEnvelope(env, s.cfg.Codec.Collection, nil, false)
	if err != nil {
		logger.Error("Storage: Ошибка сборки конверта", err, zap.String("key", s.cfg.Key))
		return false
	}

	if err := s.kv.Set(ctx, s.cfg.Key, string(data)); err != nil {
		logger.Error("Storage: Ошибка записи", err, zap.String("key", s.cfg.Key))
		return false
	}
	if err := s.kv.Set(ctx, s.cfg.VersionKey, s.cfg.Version); err != nil {
		logger.Error("Storage: Ошибка записи тега версии", err, zap.String("key", s.cfg.VersionKey))
		return false
	}

	s.notifyLocal(items)
	s.publish(itemsRaw, now)
	return true
}

// Clear снимает копию и удаляет коллекцию вместе с тегом версии
func (s *Store[T]) Clear(ctx context.Context) bool {
	s.backups.Create(ctx)

	if err := s.kv.Delete(ctx, s.cfg.Key); err != nil {
		logger.Error("Storage: Ошибка очистки", err, zap.String("key", s.cfg.Key))
		return false
	}
	if err := s.kv.Delete(ctx, s.cfg.VersionKey); err != nil {
		logger.Warn("Storage: Не удалён тег версии", zap.Error(err), zap.String("key", s.cfg.VersionKey))
	}

	empty := s.cfg.Codec.Empty()
	emptyRaw, err := json.Marshal(empty)
	if err == nil {
		s.publish(emptyRaw, time.Now())
	}
	s.notifyLocal(empty)

	logger.Info("Storage: Данные очищены", zap.String("key", s.cfg.Key))
	return true
}

// Subscribe регистрирует локального подписчика; уведомления могут
// дублироваться, callback обязан быть идемпотентным
func (s *Store[T]) Subscribe(fn func(items T)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store[T]) CreateBackup(ctx context.Context) string {
	return s.backups.Create(ctx)
}

func (s *Store[T]) RestoreFromBackup(ctx context.Context) bool {
	return s.backups.Restore(ctx)
}

// Collection возвращает имя коллекции ("tasks", "categories", ...)
func (s *Store[T]) Collection() string {
	return s.cfg.Codec.Collection
}

type Info struct {
	Exists       bool       `json:"exists"`
	Version      string     `json:"version,omitempty"`
	ItemsCount   int        `json:"itemsCount"`
	Size         int        `json:"size"`
	LastModified *time.Time `json:"lastModified,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
}

func (s *Store[T]) Info(ctx context.Context) Info {
	raw, ok, err := s.kv.Get(ctx, s.cfg.Key)
	if err != nil || !ok {
		return Info{}
	}

	env, err := s.decodeRawEnvelope([]byte(raw))
	if err != nil {
		return Info{Exists: true, Size: len(raw)}
	}

	version := env.Version
	if tag, ok, err := s.kv.Get(ctx, s.cfg.VersionKey); err == nil && ok {
		version = tag
	}

	items, err := s.cfg.Codec.Decode(env.Items)
	count := 0
	if err == nil {
		count = s.cfg.Codec.Count(items)
	}

	info := Info{
		Exists:     true,
		Version:    version,
		ItemsCount: count,
		Size:       len(raw),
	}
	if !env.Metadata.LastModified.IsZero() {
		lm := env.Metadata.LastModified
		info.LastModified = &lm
	}
	if !env.Metadata.CreatedAt.IsZero() {
		ca := env.Metadata.CreatedAt
		info.CreatedAt = &ca
	}
	return info
}

// envelopeCreatedAt сохраняет исходную дату создания конверта между записями
func (s *Store[T]) envelopeCreatedAt(ctx context.Context, fallback time.Time) time.Time {
	raw, ok, err := s.kv.Get(ctx, s.cfg.Key)
	if err != nil || !ok {
		return fallback
	}
	env, err := s.decodeRawEnvelope([]byte(raw))
	if err != nil || env.Metadata.CreatedAt.IsZero() {
		return fallback
	}
	return env.Metadata.CreatedAt
}

// decodeRawEnvelope приводит любую известную форму данных к конверту.
// Унаследованные формы идут через первую миграцию.
func (s *Store[T]) decodeRawEnvelope(raw []byte) (Envelope, error) {
	switch sniffShape(raw) {
	case shapeEnvelope:
		return decodeEnvelope(raw, s.cfg.Codec.Collection)
	case shapeLegacyArray, shapeLegacyObject:
		if len(s.cfg.Migrations) == 0 {
			return Envelope{}, fmt.Errorf("неизвестная форма данных под ключом %s", s.cfg.Key)
		}
		migrated, err := s.cfg.Migrations[0].Apply(raw)
		if err != nil {
			return Envelope{}, fmt.Errorf("миграция унаследованной формы: %w", err)
		}
		return decodeEnvelope(migrated, s.cfg.Codec.Collection)
	default:
		return Envelope{}, fmt.Errorf("не удалось распознать форму данных под ключом %s", s.cfg.Key)
	}
}

func (s *Store[T]) decodeRaw(raw []byte) (T, error) {
	env, err := s.decodeRawEnvelope(raw)
	if err != nil {
		return s.cfg.Codec.Empty(), err
	}
	return s.cfg.Codec.Decode(env.Items)
}

func (s *Store[T]) notifyLocal(items T) {
	s.mu.Lock()
	fns := make([]func(T), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(items)
	}
}

// publish отправляет коллекцию в канал синхронизации; fire-and-forget
func (s *Store[T]) publish(itemsRaw json.RawMessage, at time.Time) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(s.cfg.Channel, broadcast.Message{
		Type:      s.cfg.MessageType,
		Payload:   itemsRaw,
		Origin:    s.origin,
		Timestamp: at,
	})
}

// onMessage - путь канала публикаций; собственные сообщения пропускаются
func (s *Store[T]) onMessage(msg broadcast.Message) {
	if msg.Origin == s.origin || msg.Type != s.cfg.MessageType {
		return
	}

	items, err := s.cfg.Codec.Decode(msg.Payload)
	if err != nil {
		logger.Warn("Storage: Не удалось разобрать сообщение синхронизации",
			zap.Error(err), zap.String("channel", s.cfg.Channel))
		return
	}
	s.notifyLocal(items)
}

// onRawChange - запасной путь: сигнал мутации ключа из другого контекста
func (s *Store[T]) onRawChange(value string) {
	items, err := s.decodeRaw([]byte(value))
	if err != nil {
		logger.Warn("Storage: Не удалось разобрать данные после мутации",
			zap.Error(err), zap.String("key", s.cfg.Key))
		return
	}
	s.notifyLocal(items)
}

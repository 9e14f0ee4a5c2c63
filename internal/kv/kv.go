package kv

import "context"

// Store - синхронное key-value хранилище, общее для всех контекстов приложения.
// Все операции ограничены по времени и не ставятся в очередь.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Watcher - сигнал о мутации ключа, запасной путь синхронизации.
// Доставка не гарантируется и не упорядочена, подписчик обязан быть идемпотентным.
type Watcher interface {
	Watch(key string, fn func(value string)) (cancel func())
}

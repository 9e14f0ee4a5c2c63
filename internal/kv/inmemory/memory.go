package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory - общая область хранения, аналог key-value хранилища одного origin.
// Каждый исполняемый контекст получает свой Handle через NewHandle.
type Memory struct {
	mu      sync.RWMutex
	data    map[string]string
	handles map[int]*Handle
	nextID  int
}

func New() *Memory {
	return &Memory{
		data:    make(map[string]string),
		handles: make(map[int]*Handle),
	}
}

// NewHandle создаёт точку доступа отдельного контекста.
// Запись через один handle будит watcher-ы всех остальных, но не свои.
func (m *Memory) NewHandle() *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := &Handle{
		mem:      m,
		id:       m.nextID,
		watchers: make(map[string][]*watcher),
	}
	m.handles[h.id] = h
	m.nextID++
	return h
}

type watcher struct {
	fn func(value string)
}

type Handle struct {
	mem *Memory
	id  int

	wmu      sync.Mutex
	watchers map[string][]*watcher
}

func (h *Handle) Get(ctx context.Context, key string) (string, bool, error) {
	h.mem.mu.RLock()
	defer h.mem.mu.RUnlock()

	value, ok := h.mem.data[key]
	return value, ok, nil
}

func (h *Handle) Set(ctx context.Context, key, value string) error {
	h.mem.mu.Lock()
	h.mem.data[key] = value

	// собираем watcher-ы чужих handle-ов до разблокировки
	var toNotify []func(string)
	for id, other := range h.mem.handles {
		if id == h.id {
			continue
		}
		toNotify = append(toNotify, other.watchersFor(key)...)
	}
	h.mem.mu.Unlock()

	// уведомление приходит в чужой контекст асинхронно, как событие мутации
	for _, fn := range toNotify {
		go fn(value)
	}
	return nil
}

func (h *Handle) Delete(ctx context.Context, key string) error {
	h.mem.mu.Lock()
	defer h.mem.mu.Unlock()

	delete(h.mem.data, key)
	return nil
}

func (h *Handle) Keys(ctx context.Context, prefix string) ([]string, error) {
	h.mem.mu.RLock()
	defer h.mem.mu.RUnlock()

	keys := []string{}
	for key := range h.mem.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (h *Handle) Watch(key string, fn func(value string)) (cancel func()) {
	h.wmu.Lock()
	defer h.wmu.Unlock()

	w := &watcher{fn: fn}
	h.watchers[key] = append(h.watchers[key], w)

	return func() {
		h.wmu.Lock()
		defer h.wmu.Unlock()

		kept := h.watchers[key][:0]
		for _, existing := range h.watchers[key] {
			if existing != w {
				kept = append(kept, existing)
			}
		}
		h.watchers[key] = kept
	}
}

// Close отключает handle от общей области, watcher-ы больше не будятся
func (h *Handle) Close() {
	h.mem.mu.Lock()
	defer h.mem.mu.Unlock()

	delete(h.mem.handles, h.id)
}

func (h *Handle) watchersFor(key string) []func(string) {
	h.wmu.Lock()
	defer h.wmu.Unlock()

	fns := make([]func(string), 0, len(h.watchers[key]))
	for _, w := range h.watchers[key] {
		fns = append(fns, w.fn)
	}
	return fns
}

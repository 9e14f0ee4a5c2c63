package broadcast

import (
	"encoding/json"
	"sync"
	"time"
)

// Message - типизированное сообщение канала синхронизации.
// Payload несёт свежую коллекцию целиком, это сигнал "обновись", а не дельта.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Origin    string          `json:"origin"`
	Timestamp time.Time       `json:"timestamp"`
}

// Hub - именованные каналы pub/sub между контекстами одного процесса.
// Публикация fire-and-forget: доставка не подтверждается и не упорядочена,
// при переполнении буфера подписчика сообщение молча теряется.
type Hub struct {
	mu       sync.Mutex
	channels map[string]map[int]*subscriber
	nextID   int
}

type subscriber struct {
	ch   chan Message
	done chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		channels: make(map[string]map[int]*subscriber),
	}
}

func (h *Hub) Subscribe(channel string, fn func(Message)) (cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &subscriber{
		ch:   make(chan Message, 16),
		done: make(chan struct{}),
	}

	go func() {
		for {
			select {
			case msg := <-sub.ch:
				fn(msg)
			case <-sub.done:
				return
			}
		}
	}()

	if h.channels[channel] == nil {
		h.channels[channel] = make(map[int]*subscriber)
	}
	id := h.nextID
	h.nextID++
	h.channels[channel][id] = sub

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		if existing, ok := h.channels[channel][id]; ok {
			close(existing.done)
			delete(h.channels[channel], id)
		}
	}
}

func (h *Hub) Publish(channel string, msg Message) {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.channels[channel]))
	for _, sub := range h.channels[channel] {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- msg:
		default:
			// подписчик не успевает - сообщение теряется
		}
	}
}

// Package realtime доставляет события пользователям по websocket.
package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Типы событий.
const (
	EventNotification = "notification"
	EventMessage      = "message"
	EventWishlist     = "wishlist"
	EventOrder        = "order"
)

// Event - сообщение, отправляемое клиенту.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

const subscriberBuffer = 16

// Hub хранит каналы подписчиков по пользователям.
type Hub struct {
	mu sync.RWMutex
	//   map[userID] map[subscriberID] channel
	subs map[string]map[string]chan Event
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[string]chan Event)}
}

// Subscribe регистрирует подписчика userID. Канал закрывается после
// отмены ctx.
func (h *Hub) Subscribe(ctx context.Context, userID string) <-chan Event {
	ch := make(chan Event, subscriberBuffer)
	subID := uuid.NewString()

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[string]chan Event)
	}
	h.subs[userID][subID] = ch
	h.mu.Unlock()

	// Очистка при отключении клиента
	go func() {
		<-ctx.Done()
		h.mu.Lock()
		if userSubs, ok := h.subs[userID]; ok {
			delete(userSubs, subID)
			if len(userSubs) == 0 {
				delete(h.subs, userID)
			}
		}
		h.mu.Unlock()
		close(ch)
	}()

	return ch
}

// Publish отправляет событие всем подписчикам userID, не блокируясь:
// медленный клиент пропускает событие.
func (h *Hub) Publish(userID string, evt Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs[userID] {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribers возвращает число активных подписчиков userID.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

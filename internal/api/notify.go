package api

import (
	"context"
	"log"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/realtime"
)

// notify сохраняет уведомление и отправляет его по websocket.
// Ошибки только логируются: основное действие уже выполнено.
func (s *Server) notify(ctx context.Context, n *domain.Notification) {
	if n.UserID == "" || n.UserID == n.ActorID {
		return
	}
	created, err := s.store.CreateNotification(ctx, n)
	if err != nil {
		log.Printf("[notify] %s for user %s: %v", n.Type, n.UserID, err)
		return
	}
	s.hub.Publish(n.UserID, realtime.Event{Type: realtime.EventNotification, Data: created})
}

// awardPoints начисляет баллы, не прерывая запрос при ошибке.
func (s *Server) awardPoints(ctx context.Context, userID string, points int, reason string) {
	if err := s.store.AddPoints(ctx, userID, points); err != nil {
		log.Printf("[points] %d to user %s for %s: %v", points, userID, reason, err)
	}
}

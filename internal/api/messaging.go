package api

import (
	"net/http"
	"time"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/realtime"
	"github.com/go-chi/chi/v5"
)

type conversationResponse struct {
	*domain.Conversation
	Participant *domain.UserSummary `json:"participant,omitempty"`
}

// === Conversation Handlers ===

func (s *Server) listConversations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := currentUser(r)
	page, err := pageFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	convs, err := s.store.ListConversations(ctx, viewer.ID, page)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ids := make([]string, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.Other(viewer.ID))
	}
	users, err := s.loaders(ctx).Users(ctx, ids)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result := make([]conversationResponse, 0, len(convs))
	for _, c := range convs {
		item := conversationResponse{Conversation: c}
		if u, ok := users[c.Other(viewer.ID)]; ok {
			item.Participant = u.Summary()
		}
		result = append(result, item)
	}
	writeJSON(w, http.StatusOK, result)
}

// openConversation возвращает существующий диалог пары или создает новый.
func (s *Server) openConversation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ParticipantID string `json:"participant_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	viewer := currentUser(r)
	if req.ParticipantID == "" {
		writeError(w, r, domain.Invalidf("participant_id is required"))
		return
	}
	if req.ParticipantID == viewer.ID {
		writeError(w, r, domain.Invalidf("cannot start a conversation with yourself"))
		return
	}

	ctx := r.Context()
	conv, created, err := s.store.GetOrCreateConversation(ctx, viewer.ID, req.ParticipantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := conversationResponse{Conversation: conv}
	if other, err := s.store.GetUserByID(ctx, req.ParticipantID); err == nil {
		resp.Participant = other.Summary()
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

// participantConversation загружает диалог, проверяя участие пользователя.
func (s *Server) participantConversation(r *http.Request) (*domain.Conversation, error) {
	conv, err := s.store.GetConversation(r.Context(), chi.URLParam(r, "conversationID"))
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(currentUser(r).ID) {
		return nil, domain.Forbidden("not a participant of this conversation")
	}
	return conv, nil
}

// === Message Handlers ===

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	conv, err := s.participantConversation(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	messages, err := s.store.ListMessages(r.Context(), conv.ID, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if messages == nil {
		messages = []*domain.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	conv, err := s.participantConversation(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	sender := currentUser(r)
	msg, err := s.store.CreateMessage(ctx, &domain.Message{
		ConversationID: conv.ID,
		SenderID:       sender.ID,
		Content:        req.Content,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	recipient := conv.Other(sender.ID)
	s.hub.Publish(recipient, realtime.Event{Type: realtime.EventMessage, Data: msg})
	s.notify(ctx, &domain.Notification{
		UserID:   recipient,
		ActorID:  sender.ID,
		Type:     domain.NotificationMessage,
		EntityID: conv.ID,
		Message:  sender.Username + " sent you a message",
	})
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) markConversationRead(w http.ResponseWriter, r *http.Request) {
	conv, err := s.participantConversation(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := s.store.MarkConversationRead(r.Context(), conv.ID, currentUser(r).ID, time.Now().UTC())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

// === Notification Handlers ===

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	unreadOnly := r.URL.Query().Get("unread") == "true"
	list, err := s.store.ListNotifications(r.Context(), currentUser(r).ID, unreadOnly, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*domain.Notification{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) unreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.CountUnreadNotifications(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"unread": n})
}

func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	err := s.store.MarkNotificationRead(r.Context(), chi.URLParam(r, "notificationID"), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) markAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.MarkAllNotificationsRead(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

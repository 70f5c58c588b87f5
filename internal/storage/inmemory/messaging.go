package inmemory

import (
	"context"
	"time"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/storage"
	"github.com/google/uuid"
)

// === Conversation Methods ===

func (s *Store) GetOrCreateConversation(ctx context.Context, a, b string) (*domain.Conversation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	first, second := domain.ConversationPair(a, b)
	key := pairKey{first, second}
	if id, ok := s.convByPair[key]; ok {
		return clonePtr(s.conversations[id]), false, nil
	}
	if _, ok := s.users[b]; !ok {
		return nil, false, domain.NotFound("user")
	}

	now := s.tick()
	conv := &domain.Conversation{
		ID:           uuid.NewString(),
		ParticipantA: first,
		ParticipantB: second,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.conversations[conv.ID] = conv
	s.convByPair[key] = conv.ID
	return clonePtr(conv), true, nil
}

func (s *Store) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, domain.NotFound("conversation")
	}
	return clonePtr(conv), nil
}

func (s *Store) ListConversations(ctx context.Context, userID string, page storage.Page) ([]*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Conversation
	for _, c := range s.conversations {
		if c.HasParticipant(userID) {
			result = append(result, clonePtr(c))
		}
	}
	return paginate(result, page, func(a, b *domain.Conversation) bool {
		return a.UpdatedAt.After(b.UpdatedAt)
	}), nil
}

// === Message Methods ===

func (s *Store) CreateMessage(ctx context.Context, m *domain.Message) (*domain.Message, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[m.ConversationID]
	if !ok {
		return nil, domain.NotFound("conversation")
	}
	m.ID = uuid.NewString()
	m.CreatedAt = s.tick()
	m.ReadAt = nil
	s.messages[conv.ID] = append(s.messages[conv.ID], clonePtr(m))
	conv.UpdatedAt = m.CreatedAt
	return clonePtr(m), nil
}

func (s *Store) ListMessages(ctx context.Context, conversationID string, page storage.Page) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.messages[conversationID]
	msgs := make([]*domain.Message, 0, len(stored))
	for _, m := range stored {
		msgs = append(msgs, clonePtr(m))
	}
	// Новые сверху, клиент сам разворачивает ленту
	return paginate(msgs, page, func(a, b *domain.Message) bool {
		return a.CreatedAt.After(b.CreatedAt)
	}), nil
}

func (s *Store) MarkConversationRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated int64
	for _, m := range s.messages[conversationID] {
		if m.SenderID != readerID && m.ReadAt == nil {
			t := at
			m.ReadAt = &t
			updated++
		}
	}
	return updated, nil
}

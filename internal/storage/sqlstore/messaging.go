package sqlstore

import (
	"context"
	"errors"
	"time"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// === Conversation Methods ===

func (s *Store) findConversation(db *gorm.DB, first, second string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := db.First(&conv, "participant_a = ? AND participant_b = ?", first, second).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *Store) GetOrCreateConversation(ctx context.Context, a, b string) (*domain.Conversation, bool, error) {
	db := s.conn(ctx)
	first, second := domain.ConversationPair(a, b)

	conv, err := s.findConversation(db, first, second)
	if err == nil {
		return conv, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	found, err := exists(db, &domain.User{}, "id = ?", b)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, domain.NotFound("user")
	}

	conv = &domain.Conversation{ID: uuid.NewString(), ParticipantA: first, ParticipantB: second}
	if err := db.Create(conv).Error; err != nil {
		if !isUniqueViolation(err) {
			return nil, false, err
		}
		// Диалог создан параллельным запросом - возвращаем его
		conv, err = s.findConversation(db, first, second)
		if err != nil {
			return nil, false, err
		}
		return conv, false, nil
	}
	return conv, true, nil
}

func (s *Store) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	var conv domain.Conversation
	if err := s.conn(ctx).First(&conv, "id = ?", id).Error; err != nil {
		return nil, translate(err, "conversation", "")
	}
	return &conv, nil
}

func (s *Store) ListConversations(ctx context.Context, userID string, page storage.Page) ([]*domain.Conversation, error) {
	var result []*domain.Conversation
	query := s.conn(ctx).Where("participant_a = ? OR participant_b = ?", userID, userID).Order("updated_at DESC")
	err := paged(query, page).Find(&result).Error
	return result, err
}

// === Message Methods ===

func (s *Store) CreateMessage(ctx context.Context, m *domain.Message) (*domain.Message, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	m.ID = uuid.NewString()
	m.CreatedAt = time.Now().UTC()
	m.ReadAt = nil
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Conversation{}).Where("id = ?", m.ConversationID).
			UpdateColumn("updated_at", m.CreatedAt)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.NotFound("conversation")
		}
		return tx.Create(m).Error
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) ListMessages(ctx context.Context, conversationID string, page storage.Page) ([]*domain.Message, error) {
	var result []*domain.Message
	query := s.conn(ctx).Where("conversation_id = ?", conversationID).Order("created_at DESC")
	err := paged(query, page).Find(&result).Error
	return result, err
}

func (s *Store) MarkConversationRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error) {
	res := s.conn(ctx).Model(&domain.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND read_at IS NULL", conversationID, readerID).
		Update("read_at", at)
	return res.RowsAffected, res.Error
}

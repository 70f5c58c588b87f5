package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const MaxMessageLength = 5000

// Conversation - диалог двух пользователей. Пара участников хранится
// нормализованной (ParticipantA < ParticipantB) под уникальным индексом,
// поэтому поиск в любом порядке участников сводится к одному ключу.
type Conversation struct {
	ID           string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	ParticipantA string    `json:"participant_a" gorm:"type:varchar(36);not null;uniqueIndex:idx_conversation_pair"`
	ParticipantB string    `json:"participant_b" gorm:"type:varchar(36);not null;uniqueIndex:idx_conversation_pair;index"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"not null;index"`
}

// ConversationPair возвращает участников в каноническом порядке.
func ConversationPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

func (c *Conversation) HasParticipant(userID string) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}

// Other возвращает собеседника userID.
func (c *Conversation) Other(userID string) string {
	if c.ParticipantA == userID {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// Message принадлежит ровно одному диалогу.
type Message struct {
	ID             string     `json:"id" gorm:"type:varchar(36);primaryKey"`
	ConversationID string     `json:"conversation_id" gorm:"type:varchar(36);not null;index"`
	SenderID       string     `json:"sender_id" gorm:"type:varchar(36);not null"`
	Content        string     `json:"content" gorm:"type:text;not null"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at" gorm:"not null;index"`
}

func (m *Message) Validate() error {
	m.Content = strings.TrimSpace(m.Content)
	if m.Content == "" {
		return Invalidf("message content cannot be empty")
	}
	if utf8.RuneCountInString(m.Content) > MaxMessageLength {
		return Invalidf("message content is too long")
	}
	return nil
}

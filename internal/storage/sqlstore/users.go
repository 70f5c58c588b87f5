package sqlstore

import (
	"context"
	"strings"
	"time"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}

	db := s.conn(ctx)
	// Проверки дают понятное сообщение; гонку закрывает уникальный индекс
	if taken, err := exists(db, &domain.User{}, "email = ?", user.Email); err != nil {
		return nil, err
	} else if taken {
		return nil, domain.Conflict("email is already registered")
	}
	if taken, err := exists(db, &domain.User{}, "username = ?", user.Username); err != nil {
		return nil, err
	} else if taken {
		return nil, domain.Conflict("username is already taken")
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if err := db.Create(user).Error; err != nil {
		return nil, translate(err, "user", "email or username is already taken")
	}
	return user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	if err := s.conn(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err, "user", "")
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.conn(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, translate(err, "user", "")
	}
	return &user, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	if err := s.conn(ctx).First(&user, "username = ?", strings.ToLower(username)).Error; err != nil {
		return nil, translate(err, "user", "")
	}
	return &user, nil
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	result := make(map[string]*domain.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var users []*domain.User
	if err := s.conn(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

func (s *Store) UpdateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}

	res := s.conn(ctx).Model(&domain.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"display_name": user.DisplayName,
		"bio":          user.Bio,
		"avatar_url":   user.AvatarURL,
		"updated_at":   time.Now().UTC(),
	})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.NotFound("user")
	}
	return s.GetUserByID(ctx, user.ID)
}

func (s *Store) SearchUsers(ctx context.Context, query string, limit int) ([]*domain.User, error) {
	pattern := prefixPattern(query)
	var users []*domain.User
	err := s.conn(ctx).
		Where(`username LIKE ? ESCAPE '\' OR LOWER(display_name) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order("username ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

func (s *Store) AddPoints(ctx context.Context, userID string, delta int) error {
	res := s.conn(ctx).Model(&domain.User{}).Where("id = ?", userID).
		UpdateColumn("points", gorm.Expr("points + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("user")
	}
	return nil
}

func (s *Store) AdjustFollowCounts(ctx context.Context, followerID, followeeID string, delta int) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		following := tx.Model(&domain.User{}).Where("id = ?", followerID)
		followers := tx.Model(&domain.User{}).Where("id = ?", followeeID)
		if delta < 0 {
			following = following.Where("following_count >= ?", -delta)
			followers = followers.Where("followers_count >= ?", -delta)
		}
		if err := following.UpdateColumn("following_count", gorm.Expr("following_count + ?", delta)).Error; err != nil {
			return err
		}
		return followers.UpdateColumn("followers_count", gorm.Expr("followers_count + ?", delta)).Error
	})
}

// === Session Methods ===

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	return s.conn(ctx).Create(session).Error
}

func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	var session domain.Session
	if err := s.conn(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, translate(err, "session", "")
	}
	return &session, nil
}

func (s *Store) RevokeSession(ctx context.Context, id string) error {
	db := s.conn(ctx)
	res := db.Model(&domain.Session{}).Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", time.Now().UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		found, err := exists(db, &domain.Session{}, "id = ?", id)
		if err != nil {
			return err
		}
		if !found {
			return domain.NotFound("session")
		}
	}
	return nil
}

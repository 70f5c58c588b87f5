package sqlstore

import (
	"context"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// === Follow Methods ===

func (s *Store) CreateFollow(ctx context.Context, followerID, followeeID string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := exists(tx, &domain.User{}, "id = ?", followeeID)
		if err != nil {
			return err
		}
		if !found {
			return domain.NotFound("user")
		}
		err = tx.Create(&domain.Follow{FollowerID: followerID, FolloweeID: followeeID}).Error
		return translate(err, "follow", "already following this user")
	})
}

func (s *Store) DeleteFollow(ctx context.Context, followerID, followeeID string) error {
	res := s.conn(ctx).Delete(&domain.Follow{}, "follower_id = ? AND followee_id = ?", followerID, followeeID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("follow")
	}
	return nil
}

func (s *Store) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	return exists(s.conn(ctx), &domain.Follow{}, "follower_id = ? AND followee_id = ?", followerID, followeeID)
}

func (s *Store) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.conn(ctx).Model(&domain.Follow{}).Where("follower_id = ?", userID).Pluck("followee_id", &ids).Error
	return ids, err
}

func (s *Store) ListFollowers(ctx context.Context, userID string, page storage.Page) ([]*domain.User, error) {
	var users []*domain.User
	query := s.conn(ctx).Select("users.*").
		Joins("JOIN follows ON follows.follower_id = users.id").
		Where("follows.followee_id = ?", userID).
		Order("follows.created_at DESC")
	err := paged(query, page).Find(&users).Error
	return users, err
}

func (s *Store) ListFollowing(ctx context.Context, userID string, page storage.Page) ([]*domain.User, error) {
	var users []*domain.User
	query := s.conn(ctx).Select("users.*").
		Joins("JOIN follows ON follows.followee_id = users.id").
		Where("follows.follower_id = ?", userID).
		Order("follows.created_at DESC")
	err := paged(query, page).Find(&users).Error
	return users, err
}

// === Notification Methods ===

func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	n.ID = uuid.NewString()
	n.IsRead = false
	if err := s.conn(ctx).Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool, page storage.Page) ([]*domain.Notification, error) {
	query := s.conn(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	var result []*domain.Notification
	err := paged(query.Order("created_at DESC"), page).Find(&result).Error
	return result, err
}

func (s *Store) CountUnreadNotifications(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.conn(ctx).Model(&domain.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).Count(&count).Error
	return count, err
}

func (s *Store) MarkNotificationRead(ctx context.Context, id, userID string) error {
	db := s.conn(ctx)
	res := db.Model(&domain.Notification{}).Where("id = ? AND user_id = ?", id, userID).Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Повторная отметка прочитанного не ошибка
		found, err := exists(db, &domain.Notification{}, "id = ? AND user_id = ?", id, userID)
		if err != nil {
			return err
		}
		if !found {
			return domain.NotFound("notification")
		}
	}
	return nil
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	res := s.conn(ctx).Model(&domain.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).Update("is_read", true)
	return res.RowsAffected, res.Error
}

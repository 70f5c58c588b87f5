package sqlstore

import (
	"context"
	"time"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const collectionNameTaken = "a collection with this name already exists"

// === Collection Methods ===

func (s *Store) CreateCollection(ctx context.Context, c *domain.Collection) (*domain.Collection, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.ID = uuid.NewString()
	if err := s.conn(ctx).Create(c).Error; err != nil {
		return nil, translate(err, "collection", collectionNameTaken)
	}
	return c, nil
}

func (s *Store) GetCollection(ctx context.Context, id string) (*domain.Collection, error) {
	var c domain.Collection
	if err := s.conn(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err, "collection", "")
	}
	return &c, nil
}

func (s *Store) ListCollections(ctx context.Context, userID string) ([]*domain.Collection, error) {
	var result []*domain.Collection
	err := s.conn(ctx).Where("user_id = ?", userID).Order("name ASC").
		Limit(storage.MaxLimit).Find(&result).Error
	return result, err
}

func (s *Store) UpdateCollection(ctx context.Context, c *domain.Collection) (*domain.Collection, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	res := s.conn(ctx).Model(&domain.Collection{}).Where("id = ?", c.ID).Updates(map[string]any{
		"name":        c.Name,
		"description": c.Description,
		"updated_at":  time.Now().UTC(),
	})
	if res.Error != nil {
		return nil, translate(res.Error, "collection", collectionNameTaken)
	}
	if res.RowsAffected == 0 {
		return nil, domain.NotFound("collection")
	}
	return s.GetCollection(ctx, c.ID)
}

func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		// Закладки остаются, теряя ссылку на коллекцию
		if err := tx.Model(&domain.Bookmark{}).Where("collection_id = ?", id).
			Update("collection_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Collection{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.NotFound("collection")
		}
		return nil
	})
}

// === Bookmark Methods ===

func (s *Store) CreateBookmark(ctx context.Context, b *domain.Bookmark) (*domain.Bookmark, error) {
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := exists(tx, &domain.Post{}, "id = ?", b.PostID)
		if err != nil {
			return err
		}
		if !found {
			return domain.NotFound("post")
		}
		if b.CollectionID != nil {
			found, err := exists(tx, &domain.Collection{}, "id = ?", *b.CollectionID)
			if err != nil {
				return err
			}
			if !found {
				return domain.NotFound("collection")
			}
		}
		b.ID = uuid.NewString()
		return translate(tx.Create(b).Error, "bookmark", "post is already bookmarked")
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Store) DeleteBookmark(ctx context.Context, userID, postID string) error {
	res := s.conn(ctx).Delete(&domain.Bookmark{}, "user_id = ? AND post_id = ?", userID, postID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("bookmark")
	}
	return nil
}

func (s *Store) MoveBookmark(ctx context.Context, userID, postID string, collectionID *string) (*domain.Bookmark, error) {
	var b domain.Bookmark
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&b, "user_id = ? AND post_id = ?", userID, postID).Error; err != nil {
			return translate(err, "bookmark", "")
		}
		if collectionID != nil {
			found, err := exists(tx, &domain.Collection{}, "id = ?", *collectionID)
			if err != nil {
				return err
			}
			if !found {
				return domain.NotFound("collection")
			}
		}
		b.CollectionID = collectionID
		return tx.Model(&b).Update("collection_id", collectionID).Error
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) ListBookmarks(ctx context.Context, userID string, collectionID *string, page storage.Page) ([]*domain.Bookmark, error) {
	query := s.conn(ctx).Where("user_id = ?", userID)
	if collectionID != nil {
		query = query.Where("collection_id = ?", *collectionID)
	}
	var result []*domain.Bookmark
	err := paged(query.Order("created_at DESC"), page).Find(&result).Error
	return result, err
}

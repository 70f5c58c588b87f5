package sqlstore

import (
	"context"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	if err := post.Validate(); err != nil {
		return nil, err
	}

	post.ID = uuid.NewString()
	post.LikesCount, post.CommentsCount, post.RepostsCount = 0, 0, 0
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := exists(tx, &domain.User{}, "id = ?", post.AuthorID)
		if err != nil {
			return err
		}
		if !found {
			return domain.NotFound("author")
		}
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		if len(post.Hashtags) == 0 {
			return nil
		}
		tags := make([]*domain.PostHashtag, 0, len(post.Hashtags))
		for _, tag := range post.Hashtags {
			tags = append(tags, &domain.PostHashtag{PostID: post.ID, Tag: tag, CreatedAt: post.CreatedAt})
		}
		return tx.Create(&tags).Error
	})
	if err != nil {
		return nil, err
	}
	// GORM автоматически заполнит CreatedAt после создания
	return post, nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	var post domain.Post
	if err := s.conn(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, translate(err, "post", "")
	}
	return &post, nil
}

func (s *Store) GetPostsByIDs(ctx context.Context, ids []string) (map[string]*domain.Post, error) {
	result := make(map[string]*domain.Post, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var posts []*domain.Post
	if err := s.conn(ctx).Where("id IN ?", ids).Find(&posts).Error; err != nil {
		return nil, err
	}
	for _, p := range posts {
		result[p.ID] = p
	}
	return result, nil
}

func (s *Store) ListPosts(ctx context.Context, filter storage.PostFilter, page storage.Page) ([]*domain.Post, error) {
	db := s.conn(ctx)
	query := db.Model(&domain.Post{})
	if len(filter.AuthorIDs) > 0 {
		query = query.Where("author_id IN ?", filter.AuthorIDs)
	}
	if filter.Hashtag != "" {
		tagged := db.Model(&domain.PostHashtag{}).Select("post_id").Where("tag = ?", filter.Hashtag)
		query = query.Where("id IN (?)", tagged)
	}
	if !filter.Since.IsZero() {
		query = query.Where("created_at >= ?", filter.Since)
	}

	var posts []*domain.Post
	err := paged(query.Order("created_at DESC"), page).Find(&posts).Error
	return posts, err
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&domain.Post{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.NotFound("post")
		}
		// Зависимые строки удаляются вместе с постом
		for _, model := range []any{&domain.Comment{}, &domain.Like{}, &domain.Repost{}, &domain.Bookmark{}, &domain.PostHashtag{}} {
			if err := tx.Where("post_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	// Валидация
	if err := comment.Validate(); err != nil {
		return nil, err
	}

	// Проверяем существование поста и родителя в одной транзакции со вставкой
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := exists(tx, &domain.Post{}, "id = ?", comment.PostID)
		if err != nil {
			return err
		}
		if !found {
			return domain.NotFound("post")
		}

		if comment.ParentID != nil {
			found, err := exists(tx, &domain.Comment{}, "id = ? AND post_id = ?", *comment.ParentID, comment.PostID)
			if err != nil {
				return err
			}
			if !found {
				return domain.NotFound("parent comment")
			}
		}

		comment.ID = uuid.NewString()
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		return bump(tx, comment.PostID, storage.CounterComments, 1)
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	var comment domain.Comment
	if err := s.conn(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, translate(err, "comment", "")
	}
	return &comment, nil
}

func (s *Store) ListComments(ctx context.Context, postID string, page storage.Page) ([]*domain.Comment, error) {
	var comments []*domain.Comment
	query := s.conn(ctx).Where("post_id = ?", postID).Order("created_at ASC")
	err := paged(query, page).Find(&comments).Error
	return comments, err
}

// DeleteComment удаляет комментарий вместе со всей веткой ответов.
func (s *Store) DeleteComment(ctx context.Context, id string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var comment domain.Comment
		if err := tx.First(&comment, "id = ?", id).Error; err != nil {
			return translate(err, "comment", "")
		}
		// Собираем ветку по уровням
		ids := []string{id}
		for level := ids; len(level) > 0; {
			var next []string
			if err := tx.Model(&domain.Comment{}).Where("parent_id IN ?", level).Pluck("id", &next).Error; err != nil {
				return err
			}
			ids = append(ids, next...)
			level = next
		}
		res := tx.Where("id IN ?", ids).Delete(&domain.Comment{})
		if res.Error != nil {
			return res.Error
		}
		return bump(tx, comment.PostID, storage.CounterComments, -int(res.RowsAffected))
	})
}

// === Reaction Methods ===

func (s *Store) LikePost(ctx context.Context, postID, userID string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := exists(tx, &domain.Post{}, "id = ?", postID)
		if err != nil {
			return err
		}
		if !found {
			return domain.NotFound("post")
		}
		if err := tx.Create(&domain.Like{PostID: postID, UserID: userID}).Error; err != nil {
			return translate(err, "post", "post is already liked")
		}
		return bump(tx, postID, storage.CounterLikes, 1)
	})
}

func (s *Store) UnlikePost(ctx context.Context, postID, userID string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&domain.Like{}, "post_id = ? AND user_id = ?", postID, userID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.NotFound("like")
		}
		return bump(tx, postID, storage.CounterLikes, -1)
	})
}

func (s *Store) CreateRepost(ctx context.Context, repost *domain.Repost) (*domain.Repost, error) {
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := exists(tx, &domain.Post{}, "id = ?", repost.PostID)
		if err != nil {
			return err
		}
		if !found {
			return domain.NotFound("post")
		}
		repost.ID = uuid.NewString()
		if err := tx.Create(repost).Error; err != nil {
			return translate(err, "post", "post is already reposted")
		}
		return bump(tx, repost.PostID, storage.CounterReposts, 1)
	})
	if err != nil {
		return nil, err
	}
	return repost, nil
}

func (s *Store) DeleteRepost(ctx context.Context, postID, userID string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&domain.Repost{}, "post_id = ? AND user_id = ?", postID, userID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.NotFound("repost")
		}
		return bump(tx, postID, storage.CounterReposts, -1)
	})
}

package inmemory

import (
	"context"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/storage"
	"github.com/google/uuid"
)

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	if err := post.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[post.AuthorID]; !ok {
		return nil, domain.NotFound("author")
	}
	post.ID = uuid.NewString()
	now := s.tick()
	post.CreatedAt, post.UpdatedAt = now, now
	post.LikesCount, post.CommentsCount, post.RepostsCount = 0, 0, 0
	s.posts[post.ID] = clonePtr(post)

	for _, tag := range post.Hashtags {
		s.postsByTag[tag] = append(s.postsByTag[tag], post.ID)
	}
	return clonePtr(post), nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, domain.NotFound("post")
	}
	return clonePtr(post), nil
}

func (s *Store) GetPostsByIDs(ctx context.Context, ids []string) (map[string]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*domain.Post, len(ids))
	for _, id := range ids {
		if p, ok := s.posts[id]; ok {
			result[id] = clonePtr(p)
		}
	}
	return result, nil
}

func (s *Store) ListPosts(ctx context.Context, filter storage.PostFilter, page storage.Page) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var authors map[string]bool
	if len(filter.AuthorIDs) > 0 {
		authors = make(map[string]bool, len(filter.AuthorIDs))
		for _, id := range filter.AuthorIDs {
			authors[id] = true
		}
	}

	candidates := s.posts
	if filter.Hashtag != "" {
		candidates = make(map[string]*domain.Post)
		for _, id := range s.postsByTag[filter.Hashtag] {
			if p, ok := s.posts[id]; ok {
				candidates[id] = p
			}
		}
	}

	matched := make([]*domain.Post, 0, len(candidates))
	for _, p := range candidates {
		if authors != nil && !authors[p.AuthorID] {
			continue
		}
		if !filter.Since.IsZero() && p.CreatedAt.Before(filter.Since) {
			continue
		}
		matched = append(matched, clonePtr(p))
	}

	return paginate(matched, page, func(a, b *domain.Post) bool {
		return a.CreatedAt.After(b.CreatedAt)
	}), nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[id]
	if !ok {
		return domain.NotFound("post")
	}
	delete(s.posts, id)

	for _, tag := range post.Hashtags {
		ids := s.postsByTag[tag]
		for i, pid := range ids {
			if pid == id {
				s.postsByTag[tag] = append(ids[:i:i], ids[i+1:]...)
				break
			}
		}
	}
	for cid, c := range s.comments {
		if c.PostID == id {
			delete(s.comments, cid)
		}
	}
	for k := range s.likes {
		if k.a == id {
			delete(s.likes, k)
		}
	}
	for k := range s.reposts {
		if k.a == id {
			delete(s.reposts, k)
		}
	}
	for k := range s.bookmarks {
		if k.b == id {
			delete(s.bookmarks, k)
		}
	}
	return nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	if err := comment.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[comment.PostID]
	if !ok {
		return nil, domain.NotFound("post")
	}

	// Проверка родительского комментария
	if comment.ParentID != nil {
		parent, ok := s.comments[*comment.ParentID]
		if !ok || parent.PostID != comment.PostID {
			return nil, domain.NotFound("parent comment")
		}
	}

	comment.ID = uuid.NewString()
	comment.CreatedAt = s.tick()
	s.comments[comment.ID] = clonePtr(comment)
	post.CommentsCount++
	return clonePtr(comment), nil
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comment, ok := s.comments[id]
	if !ok {
		return nil, domain.NotFound("comment")
	}
	return clonePtr(comment), nil
}

func (s *Store) ListComments(ctx context.Context, postID string, page storage.Page) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var comments []*domain.Comment
	for _, c := range s.comments {
		if c.PostID == postID {
			comments = append(comments, clonePtr(c))
		}
	}
	// Сортируем по времени создания, чтобы пагинация была консистентной
	return paginate(comments, page, func(a, b *domain.Comment) bool {
		return a.CreatedAt.Before(b.CreatedAt)
	}), nil
}

// DeleteComment удаляет комментарий вместе со всей веткой ответов.
func (s *Store) DeleteComment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[id]
	if !ok {
		return domain.NotFound("comment")
	}
	removed := 0
	for queue := []string{id}; len(queue) > 0; queue = queue[1:] {
		parentID := queue[0]
		delete(s.comments, parentID)
		removed++
		for cid, c := range s.comments {
			if c.ParentID != nil && *c.ParentID == parentID {
				queue = append(queue, cid)
			}
		}
	}
	if post, ok := s.posts[comment.PostID]; ok {
		post.CommentsCount = max(0, post.CommentsCount-removed)
	}
	return nil
}

// === Reaction Methods ===

func (s *Store) LikePost(ctx context.Context, postID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return domain.NotFound("post")
	}
	key := pairKey{postID, userID}
	if _, ok := s.likes[key]; ok {
		return domain.Conflict("post is already liked")
	}
	s.likes[key] = &domain.Like{PostID: postID, UserID: userID, CreatedAt: s.tick()}
	post.LikesCount++
	return nil
}

func (s *Store) UnlikePost(ctx context.Context, postID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{postID, userID}
	if _, ok := s.likes[key]; !ok {
		return domain.NotFound("like")
	}
	delete(s.likes, key)
	if post, ok := s.posts[postID]; ok {
		post.LikesCount = max(0, post.LikesCount-1)
	}
	return nil
}

func (s *Store) CreateRepost(ctx context.Context, repost *domain.Repost) (*domain.Repost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[repost.PostID]
	if !ok {
		return nil, domain.NotFound("post")
	}
	key := pairKey{repost.PostID, repost.UserID}
	if _, ok := s.reposts[key]; ok {
		return nil, domain.Conflict("post is already reposted")
	}
	repost.ID = uuid.NewString()
	repost.CreatedAt = s.tick()
	s.reposts[key] = clonePtr(repost)
	post.RepostsCount++
	return clonePtr(repost), nil
}

func (s *Store) DeleteRepost(ctx context.Context, postID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{postID, userID}
	if _, ok := s.reposts[key]; !ok {
		return domain.NotFound("repost")
	}
	delete(s.reposts, key)
	if post, ok := s.posts[postID]; ok {
		post.RepostsCount = max(0, post.RepostsCount-1)
	}
	return nil
}

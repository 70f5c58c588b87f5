package inmemory

import (
	"context"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/storage"
	"github.com/google/uuid"
)

// === Collection Methods ===

func (s *Store) collectionNameTaken(userID, name, exceptID string) bool {
	for _, c := range s.collections {
		if c.UserID == userID && c.Name == name && c.ID != exceptID {
			return true
		}
	}
	return false
}

func (s *Store) CreateCollection(ctx context.Context, c *domain.Collection) (*domain.Collection, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collectionNameTaken(c.UserID, c.Name, "") {
		return nil, domain.Conflict("a collection with this name already exists")
	}
	c.ID = uuid.NewString()
	now := s.tick()
	c.CreatedAt, c.UpdatedAt = now, now
	s.collections[c.ID] = clonePtr(c)
	return clonePtr(c), nil
}

func (s *Store) GetCollection(ctx context.Context, id string) (*domain.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[id]
	if !ok {
		return nil, domain.NotFound("collection")
	}
	return clonePtr(c), nil
}

func (s *Store) ListCollections(ctx context.Context, userID string) ([]*domain.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Collection
	for _, c := range s.collections {
		if c.UserID == userID {
			result = append(result, clonePtr(c))
		}
	}
	return paginate(result, storage.Page{Limit: storage.MaxLimit}, func(a, b *domain.Collection) bool {
		return a.Name < b.Name
	}), nil
}

func (s *Store) UpdateCollection(ctx context.Context, c *domain.Collection) (*domain.Collection, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.collections[c.ID]
	if !ok {
		return nil, domain.NotFound("collection")
	}
	if s.collectionNameTaken(stored.UserID, c.Name, c.ID) {
		return nil, domain.Conflict("a collection with this name already exists")
	}
	stored.Name = c.Name
	stored.Description = c.Description
	stored.UpdatedAt = s.tick()
	return clonePtr(stored), nil
}

func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[id]; !ok {
		return domain.NotFound("collection")
	}
	delete(s.collections, id)
	for _, b := range s.bookmarks {
		if b.CollectionID != nil && *b.CollectionID == id {
			b.CollectionID = nil
		}
	}
	return nil
}

// === Bookmark Methods ===

func (s *Store) CreateBookmark(ctx context.Context, b *domain.Bookmark) (*domain.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[b.PostID]; !ok {
		return nil, domain.NotFound("post")
	}
	if b.CollectionID != nil {
		if _, ok := s.collections[*b.CollectionID]; !ok {
			return nil, domain.NotFound("collection")
		}
	}
	key := pairKey{b.UserID, b.PostID}
	if _, ok := s.bookmarks[key]; ok {
		return nil, domain.Conflict("post is already bookmarked")
	}
	b.ID = uuid.NewString()
	b.CreatedAt = s.tick()
	s.bookmarks[key] = clonePtr(b)
	return clonePtr(b), nil
}

func (s *Store) DeleteBookmark(ctx context.Context, userID, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{userID, postID}
	if _, ok := s.bookmarks[key]; !ok {
		return domain.NotFound("bookmark")
	}
	delete(s.bookmarks, key)
	return nil
}

func (s *Store) MoveBookmark(ctx context.Context, userID, postID string, collectionID *string) (*domain.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookmarks[pairKey{userID, postID}]
	if !ok {
		return nil, domain.NotFound("bookmark")
	}
	if collectionID != nil {
		if _, ok := s.collections[*collectionID]; !ok {
			return nil, domain.NotFound("collection")
		}
		id := *collectionID
		collectionID = &id
	}
	b.CollectionID = collectionID
	return clonePtr(b), nil
}

func (s *Store) ListBookmarks(ctx context.Context, userID string, collectionID *string, page storage.Page) ([]*domain.Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Bookmark
	for k, b := range s.bookmarks {
		if k.a != userID {
			continue
		}
		if collectionID != nil && (b.CollectionID == nil || *b.CollectionID != *collectionID) {
			continue
		}
		result = append(result, clonePtr(b))
	}
	return paginate(result, page, func(a, b *domain.Bookmark) bool {
		return a.CreatedAt.After(b.CreatedAt)
	}), nil
}

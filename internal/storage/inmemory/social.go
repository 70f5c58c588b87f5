package inmemory

import (
	"context"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/storage"
	"github.com/google/uuid"
)

// === Follow Methods ===

func (s *Store) CreateFollow(ctx context.Context, followerID, followeeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[followeeID]; !ok {
		return domain.NotFound("user")
	}
	key := pairKey{followerID, followeeID}
	if _, ok := s.follows[key]; ok {
		return domain.Conflict("already following this user")
	}
	s.follows[key] = &domain.Follow{FollowerID: followerID, FolloweeID: followeeID, CreatedAt: s.tick()}
	return nil
}

func (s *Store) DeleteFollow(ctx context.Context, followerID, followeeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{followerID, followeeID}
	if _, ok := s.follows[key]; !ok {
		return domain.NotFound("follow")
	}
	delete(s.follows, key)
	return nil
}

func (s *Store) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.follows[pairKey{followerID, followeeID}]
	return ok, nil
}

func (s *Store) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for k := range s.follows {
		if k.a == userID {
			ids = append(ids, k.b)
		}
	}
	return ids, nil
}

func (s *Store) listFollowUsers(userID string, page storage.Page, followers bool) []*domain.User {
	var edges []*domain.Follow
	for k, f := range s.follows {
		if (followers && k.b == userID) || (!followers && k.a == userID) {
			edges = append(edges, f)
		}
	}
	edges = paginate(edges, page, func(a, b *domain.Follow) bool {
		return a.CreatedAt.After(b.CreatedAt)
	})

	users := make([]*domain.User, 0, len(edges))
	for _, f := range edges {
		id := f.FolloweeID
		if followers {
			id = f.FollowerID
		}
		if u, ok := s.users[id]; ok {
			users = append(users, clonePtr(u))
		}
	}
	return users
}

func (s *Store) ListFollowers(ctx context.Context, userID string, page storage.Page) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listFollowUsers(userID, page, true), nil
}

func (s *Store) ListFollowing(ctx context.Context, userID string, page storage.Page) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listFollowUsers(userID, page, false), nil
}

// === Notification Methods ===

func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n.ID = uuid.NewString()
	n.CreatedAt = s.tick()
	n.IsRead = false
	s.notifications[n.ID] = clonePtr(n)
	return clonePtr(n), nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool, page storage.Page) ([]*domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Notification
	for _, n := range s.notifications {
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		result = append(result, clonePtr(n))
	}
	return paginate(result, page, func(a, b *domain.Notification) bool {
		return a.CreatedAt.After(b.CreatedAt)
	}), nil
}

func (s *Store) CountUnreadNotifications(ctx context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, n := range s.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return domain.NotFound("notification")
	}
	n.IsRead = true
	return nil
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated int64
	for _, n := range s.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			updated++
		}
	}
	return updated, nil
}

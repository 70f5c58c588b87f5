package inmemory

import (
	"context"
	"sort"
	"strings"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/google/uuid"
)

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usersByEmail[user.Email]; ok {
		return nil, domain.Conflict("email is already registered")
	}
	if _, ok := s.usersByUsername[user.Username]; ok {
		return nil, domain.Conflict("username is already taken")
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := s.tick()
	user.CreatedAt, user.UpdatedAt = now, now
	stored := clonePtr(user)
	s.users[user.ID] = stored
	s.usersByEmail[user.Email] = user.ID
	s.usersByUsername[user.Username] = user.ID
	return clonePtr(stored), nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.NotFound("user")
	}
	return clonePtr(u), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, domain.NotFound("user")
	}
	return clonePtr(s.users[id]), nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByUsername[strings.ToLower(username)]
	if !ok {
		return nil, domain.NotFound("user")
	}
	return clonePtr(s.users[id]), nil
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*domain.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			result[id] = clonePtr(u)
		}
	}
	return result, nil
}

func (s *Store) UpdateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.users[user.ID]
	if !ok {
		return nil, domain.NotFound("user")
	}
	// Меняются только профильные поля
	stored.DisplayName = user.DisplayName
	stored.Bio = user.Bio
	stored.AvatarURL = user.AvatarURL
	stored.UpdatedAt = s.tick()
	return clonePtr(stored), nil
}

func (s *Store) SearchUsers(ctx context.Context, query string, limit int) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	var found []*domain.User
	for _, u := range s.users {
		if strings.HasPrefix(u.Username, q) || strings.HasPrefix(strings.ToLower(u.DisplayName), q) {
			found = append(found, clonePtr(u))
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Username < found[j].Username })
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

func (s *Store) AddPoints(ctx context.Context, userID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return domain.NotFound("user")
	}
	u.Points += delta
	return nil
}

func (s *Store) AdjustFollowCounts(ctx context.Context, followerID, followeeID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	follower, ok := s.users[followerID]
	if !ok {
		return domain.NotFound("user")
	}
	followee, ok := s.users[followeeID]
	if !ok {
		return domain.NotFound("user")
	}
	follower.FollowingCount = max(0, follower.FollowingCount+delta)
	followee.FollowersCount = max(0, followee.FollowersCount+delta)
	return nil
}

// === Session Methods ===

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	session.CreatedAt = s.tick()
	s.sessions[session.ID] = clonePtr(session)
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.NotFound("session")
	}
	return clonePtr(sess), nil
}

func (s *Store) RevokeSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return domain.NotFound("session")
	}
	if sess.RevokedAt == nil {
		now := s.tick()
		sess.RevokedAt = &now
	}
	return nil
}

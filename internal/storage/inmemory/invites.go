package inmemory

import (
	"context"
	"time"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/storage"
	"github.com/google/uuid"
)

// === Invite Methods ===

func (s *Store) FindActiveInvite(ctx context.Context, inviterID string) (*domain.Invite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *domain.Invite
	for _, inv := range s.invites {
		if inv.InviterID != inviterID || !inv.Available() {
			continue
		}
		if found == nil || inv.CreatedAt.Before(found.CreatedAt) {
			found = inv
		}
	}
	if found == nil {
		return nil, domain.NotFound("invite")
	}
	return clonePtr(found), nil
}

func (s *Store) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.invites[code]
	return ok, nil
}

func (s *Store) CreateInvites(ctx context.Context, invites []*domain.Invite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Пакет вставляется целиком или не вставляется вовсе
	seen := make(map[string]bool, len(invites))
	for _, inv := range invites {
		if _, ok := s.invites[inv.Code]; ok || seen[inv.Code] {
			return domain.Conflict("invite code already exists")
		}
		seen[inv.Code] = true
	}

	for _, inv := range invites {
		inv.ID = uuid.NewString()
		now := s.tick()
		inv.CreatedAt, inv.UpdatedAt = now, now
		inv.IsActive = true
		inv.IsUsed = false
		s.invites[inv.Code] = clonePtr(inv)
	}
	return nil
}

func (s *Store) GetInviteByCode(ctx context.Context, code string) (*domain.Invite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invites[code]
	if !ok {
		return nil, domain.ErrInviteUnavailable
	}
	return clonePtr(inv), nil
}

func (s *Store) ListInvites(ctx context.Context, inviterID string) ([]*domain.Invite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Invite
	for _, inv := range s.invites {
		if inv.InviterID == inviterID {
			result = append(result, clonePtr(inv))
		}
	}
	return paginate(result, storage.Page{Limit: storage.MaxLimit}, func(a, b *domain.Invite) bool {
		return a.CreatedAt.After(b.CreatedAt)
	}), nil
}

func (s *Store) RedeemInvite(ctx context.Context, code, userID string, at time.Time) (*domain.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invites[code]
	if !ok {
		return nil, domain.ErrInviteUnavailable
	}
	// Самопогашение запрещено независимо от состояния кода
	if inv.InviterID == userID {
		return nil, domain.ErrSelfRedemption
	}
	if !inv.Available() {
		return nil, domain.ErrInviteUnavailable
	}

	inv.IsUsed = true
	uid := userID
	inv.InvitedUserID = &uid
	usedAt := at
	inv.UsedAt = &usedAt
	inv.UpdatedAt = at
	return clonePtr(inv), nil
}

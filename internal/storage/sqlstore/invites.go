package sqlstore

import (
	"context"
	"errors"
	"time"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// === Invite Methods ===

func (s *Store) FindActiveInvite(ctx context.Context, inviterID string) (*domain.Invite, error) {
	var inv domain.Invite
	err := s.conn(ctx).
		Where("inviter_id = ? AND is_active = ? AND is_used = ?", inviterID, true, false).
		Order("created_at ASC").
		First(&inv).Error
	if err != nil {
		return nil, translate(err, "invite", "")
	}
	return &inv, nil
}

func (s *Store) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	return exists(s.conn(ctx), &domain.Invite{}, "code = ?", code)
}

func (s *Store) CreateInvites(ctx context.Context, invites []*domain.Invite) error {
	if len(invites) == 0 {
		return nil
	}
	for _, inv := range invites {
		inv.ID = uuid.NewString()
		inv.IsActive = true
		inv.IsUsed = false
	}
	// Пакетная вставка в одной транзакции: либо все коды, либо ни одного
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&invites).Error
	})
	return translate(err, "invite", "invite code already exists")
}

func (s *Store) GetInviteByCode(ctx context.Context, code string) (*domain.Invite, error) {
	var inv domain.Invite
	if err := s.conn(ctx).First(&inv, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInviteUnavailable
		}
		return nil, err
	}
	return &inv, nil
}

func (s *Store) ListInvites(ctx context.Context, inviterID string) ([]*domain.Invite, error) {
	var result []*domain.Invite
	err := s.conn(ctx).Where("inviter_id = ?", inviterID).Order("created_at DESC").
		Limit(storage.MaxLimit).Find(&result).Error
	return result, err
}

func (s *Store) RedeemInvite(ctx context.Context, code, userID string, at time.Time) (*domain.Invite, error) {
	var inv domain.Invite
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&inv, "code = ?", code).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrInviteUnavailable
			}
			return err
		}
		// Самопогашение запрещено независимо от состояния кода
		if inv.InviterID == userID {
			return domain.ErrSelfRedemption
		}
		if !inv.Available() {
			return domain.ErrInviteUnavailable
		}

		// Условное обновление: параллельное погашение получит 0 строк
		res := tx.Model(&domain.Invite{}).
			Where("id = ? AND is_active = ? AND is_used = ?", inv.ID, true, false).
			Updates(map[string]any{
				"is_used":         true,
				"invited_user_id": userID,
				"used_at":         at,
				"updated_at":      at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrInviteUnavailable
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	inv.IsUsed = true
	inv.InvitedUserID = &userID
	inv.UsedAt = &at
	inv.UpdatedAt = at
	return &inv, nil
}

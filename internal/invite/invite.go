// Package invite выпускает и погашает реферальные коды.
package invite

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/storage"
)

const (
	CodeLength  = 8
	MaxBulk     = 50
	maxAttempts = 10
)

// Без I, O, 0 и 1, чтобы код было легко продиктовать.
const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

var ErrCodeSpaceExhausted = errors.New("could not generate a unique invite code")

// NewCode возвращает случайный код из CodeLength символов.
func NewCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	// len(alphabet) делит 256, поэтому распределение равномерное
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf), nil
}

// Normalize приводит введенный пользователем код к хранимому виду.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Store - то, что сервису нужно от хранилища.
type Store interface {
	storage.Invites
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	AddPoints(ctx context.Context, userID string, delta int) error
}

// Service реализует выпуск и погашение кодов.
type Service struct {
	store    Store
	generate func() (string, error)
	now      func() time.Time
}

func NewService(store Store) *Service {
	return &Service{
		store:    store,
		generate: NewCode,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Generate возвращает активный неиспользованный код пригласившего или
// выпускает новый.
func (s *Service) Generate(ctx context.Context, inviterID string) (*domain.Invite, error) {
	existing, err := s.store.FindActiveInvite(ctx, inviterID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	for range maxAttempts {
		code, err := s.uniqueCode(ctx, nil)
		if err != nil {
			return nil, err
		}
		inv := &domain.Invite{Code: code, InviterID: inviterID}
		err = s.store.CreateInvites(ctx, []*domain.Invite{inv})
		if err == nil {
			return inv, nil
		}
		// Код заняли между проверкой и вставкой
		if !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
	}
	return nil, ErrCodeSpaceExhausted
}

// GenerateBulk выпускает n различных кодов и вставляет их одним пакетом.
func (s *Service) GenerateBulk(ctx context.Context, inviterID string, n int) ([]*domain.Invite, error) {
	if n < 1 || n > MaxBulk {
		return nil, domain.Invalidf("count must be between 1 and %d", MaxBulk)
	}

	var lastErr error
	// Конфликт на уровне пакета повторяется один раз с новыми кодами
	for range 2 {
		batch := make([]*domain.Invite, 0, n)
		taken := make(map[string]bool, n)
		for range n {
			code, err := s.uniqueCode(ctx, taken)
			if err != nil {
				return nil, err
			}
			taken[code] = true
			batch = append(batch, &domain.Invite{Code: code, InviterID: inviterID})
		}

		lastErr = s.store.CreateInvites(ctx, batch)
		if lastErr == nil {
			return batch, nil
		}
		if !errors.Is(lastErr, domain.ErrConflict) {
			return nil, lastErr
		}
		log.Printf("[invite] batch of %d codes collided, retrying", n)
	}
	return nil, lastErr
}

// uniqueCode генерирует код, не занятый в хранилище и в taken.
func (s *Service) uniqueCode(ctx context.Context, taken map[string]bool) (string, error) {
	for range maxAttempts {
		code, err := s.generate()
		if err != nil {
			return "", err
		}
		if taken[code] {
			continue
		}
		exists, err := s.store.InviteCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

// Validate проверяет, что код можно погасить, и возвращает пригласившего.
func (s *Service) Validate(ctx context.Context, code string) (*domain.Invite, *domain.User, error) {
	inv, err := s.store.GetInviteByCode(ctx, Normalize(code))
	if err != nil {
		return nil, nil, err
	}
	if !inv.Available() {
		return nil, nil, domain.ErrInviteUnavailable
	}
	inviter, err := s.store.GetUserByID(ctx, inv.InviterID)
	if err != nil {
		return nil, nil, err
	}
	return inv, inviter, nil
}

// Redeem погашает код для userID. Бонусные баллы начисляются обеим
// сторонам без отката погашения при ошибке.
func (s *Service) Redeem(ctx context.Context, code, userID string) (*domain.Invite, error) {
	inv, err := s.store.RedeemInvite(ctx, Normalize(code), userID, s.now())
	if err != nil {
		return nil, err
	}
	for _, id := range []string{inv.InviterID, userID} {
		if err := s.store.AddPoints(ctx, id, domain.InviteBonusPoints); err != nil {
			log.Printf("[invite] failed to award bonus to %s for code %s: %v", id, inv.Code, err)
		}
	}
	return inv, nil
}

func (s *Service) List(ctx context.Context, inviterID string) ([]*domain.Invite, error) {
	return s.store.ListInvites(ctx, inviterID)
}

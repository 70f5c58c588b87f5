package invite

import (
	"context"
	"strings"
	"testing"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/storage/inmemory"
	"github.com/UkralStul/ecosocial/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted выдает коды по порядку, затем повторяет последний.
func scripted(codes ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		code := codes[min(i, len(codes)-1)]
		i++
		return code, nil
	}
}

func TestNewCode(t *testing.T) {
	seen := make(map[string]bool)
	for range 200 {
		code, err := NewCode()
		require.NoError(t, err)
		require.Len(t, code, CodeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(alphabet, r), "unexpected rune %q", r)
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 195)
}

func TestGenerate_ReusesActiveCode(t *testing.T) {
	store := inmemory.New()
	alice := storagetest.MustUser(t, store, "alice")
	svc := NewService(store)
	ctx := context.Background()

	first, err := svc.Generate(ctx, alice.ID)
	require.NoError(t, err)
	second, err := svc.Generate(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Code, second.Code)

	list, err := svc.List(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestGenerateBulk_ForcedCollisions(t *testing.T) {
	store := inmemory.New()
	alice := storagetest.MustUser(t, store, "alice")
	ctx := context.Background()
	require.NoError(t, store.CreateInvites(ctx, []*domain.Invite{{Code: "TAKEN234", InviterID: alice.ID}}))

	svc := NewService(store)
	svc.generate = scripted("TAKEN234", "CODEAAAA", "CODEAAAA", "TAKEN234", "CODEBBBB", "CODECCCC")

	invites, err := svc.GenerateBulk(ctx, alice.ID, 3)
	require.NoError(t, err)
	require.Len(t, invites, 3)

	codes := []string{invites[0].Code, invites[1].Code, invites[2].Code}
	assert.Equal(t, []string{"CODEAAAA", "CODEBBBB", "CODECCCC"}, codes)
	for _, code := range codes {
		exists, err := store.InviteCodeExists(ctx, code)
		require.NoError(t, err)
		assert.True(t, exists)
	}
}

func TestGenerateBulk_Limits(t *testing.T) {
	store := inmemory.New()
	alice := storagetest.MustUser(t, store, "alice")
	svc := NewService(store)

	_, err := svc.GenerateBulk(context.Background(), alice.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalid)
	_, err = svc.GenerateBulk(context.Background(), alice.ID, MaxBulk+1)
	assert.ErrorIs(t, err, domain.ErrInvalid)
}

func TestGenerate_Exhausted(t *testing.T) {
	store := inmemory.New()
	alice := storagetest.MustUser(t, store, "alice")
	bob := storagetest.MustUser(t, store, "bob")
	ctx := context.Background()
	require.NoError(t, store.CreateInvites(ctx, []*domain.Invite{{Code: "TAKEN234", InviterID: bob.ID}}))

	svc := NewService(store)
	svc.generate = scripted("TAKEN234")
	_, err := svc.Generate(ctx, alice.ID)
	assert.ErrorIs(t, err, ErrCodeSpaceExhausted)
}

func TestRedeem(t *testing.T) {
	store := inmemory.New()
	ctx := context.Background()
	alice := storagetest.MustUser(t, store, "alice")
	bob := storagetest.MustUser(t, store, "bob")
	carol := storagetest.MustUser(t, store, "carol")
	svc := NewService(store)

	inv, err := svc.Generate(ctx, alice.ID)
	require.NoError(t, err)

	_, inviter, err := svc.Validate(ctx, strings.ToLower(inv.Code))
	require.NoError(t, err)
	assert.Equal(t, alice.ID, inviter.ID)

	_, err = svc.Redeem(ctx, inv.Code, alice.ID)
	assert.ErrorIs(t, err, domain.ErrSelfRedemption)

	redeemed, err := svc.Redeem(ctx, " "+strings.ToLower(inv.Code)+" ", bob.ID)
	require.NoError(t, err)
	assert.True(t, redeemed.IsUsed)
	require.NotNil(t, redeemed.UsedAt)

	// Повторное погашение - код недоступен
	_, err = svc.Redeem(ctx, inv.Code, carol.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	// Самопогашение отклоняется и для использованного кода
	_, err = svc.Redeem(ctx, inv.Code, alice.ID)
	assert.ErrorIs(t, err, domain.ErrSelfRedemption)

	_, _, err = svc.Validate(ctx, inv.Code)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	for _, id := range []string{alice.ID, bob.ID} {
		u, err := store.GetUserByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.InviteBonusPoints, u.Points)
	}
	c, err := store.GetUserByID(ctx, carol.ID)
	require.NoError(t, err)
	assert.Zero(t, c.Points)

	// Использованный код не переиспользуется
	next, err := svc.Generate(ctx, alice.ID)
	require.NoError(t, err)
	assert.NotEqual(t, inv.Code, next.Code)
}

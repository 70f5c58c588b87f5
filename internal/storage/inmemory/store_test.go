package inmemory

import (
	"context"
	"sync"
	"testing"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/storage"
	"github.com/UkralStul/ecosocial/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage { return New() })
}

func TestStore_ReturnsCopies(t *testing.T) {
	store := New()
	ctx := context.Background()
	u := storagetest.MustUser(t, store, "alice")
	post := storagetest.MustPost(t, store, u.ID, "Original")

	// Изменение возвращенного значения не затрагивает хранилище
	post.Content = "Mutated"
	got, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", got.Content)
}

func TestStore_Pagination(t *testing.T) {
	store := New()
	ctx := context.Background()
	u := storagetest.MustUser(t, store, "alice")
	post := storagetest.MustPost(t, store, u.ID, "Post")

	// Создаем 5 комментариев
	var ids []string
	for i := 0; i < 5; i++ {
		c, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: u.ID, Content: "some comment"})
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}

	firstPage, err := store.ListComments(ctx, post.ID, storage.Page{Limit: 2})
	require.NoError(t, err)
	require.Len(t, firstPage, 2)

	secondPage, err := store.ListComments(ctx, post.ID, storage.Page{Limit: 3, Offset: 2})
	require.NoError(t, err)
	require.Len(t, secondPage, 3)

	// Комментарии идут в порядке создания без пересечений
	got := []string{firstPage[0].ID, firstPage[1].ID, secondPage[0].ID, secondPage[1].ID, secondPage[2].ID}
	assert.Equal(t, ids, got)

	empty, err := store.ListComments(ctx, post.ID, storage.Page{Limit: 3, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_ConcurrentLikes(t *testing.T) {
	store := New()
	ctx := context.Background()
	author := storagetest.MustUser(t, store, "alice")
	post := storagetest.MustPost(t, store, author.ID, "Post")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Один и тот же пользователь: выигрывает ровно одна попытка
			_ = store.LikePost(ctx, post.ID, author.ID)
		}()
	}
	wg.Wait()

	got, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikesCount)
}

func TestStore_ConcurrentRedeem(t *testing.T) {
	store := New()
	ctx := context.Background()
	inviter := storagetest.MustUser(t, store, "alice")
	require.NoError(t, store.CreateInvites(ctx, []*domain.Invite{{Code: "RACE2345", InviterID: inviter.ID}}))

	users := make([]*domain.User, 10)
	for i := range users {
		users[i] = storagetest.MustUser(t, store, "user_"+string(rune('a'+i)))
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for _, u := range users {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			if _, err := store.RedeemInvite(ctx, "RACE2345", userID, store.now()); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}(u.ID)
	}
	wg.Wait()
	assert.Equal(t, 1, success)
}

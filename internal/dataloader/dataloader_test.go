package dataloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/storage"
	"github.com/UkralStul/ecosocial/internal/storage/inmemory"
	"github.com/UkralStul/ecosocial/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore считает вызовы GetUsersByIDs.
type countingStore struct {
	storage.Users
	mu    sync.Mutex
	calls int
}

func (c *countingStore) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.Users.GetUsersByIDs(ctx, ids)
}

func TestLoaders_BatchesAndSkipsMissing(t *testing.T) {
	mem := inmemory.New()
	alice := storagetest.MustUser(t, mem, "alice")
	bob := storagetest.MustUser(t, mem, "bob")
	store := &countingStore{Users: mem}

	loaders := NewLoaders(store)
	users, err := loaders.Users(context.Background(), []string{alice.ID, bob.ID, "missing", alice.ID})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, "bob", users[bob.ID].Username)
	assert.Equal(t, 1, store.calls)

	// Повторная загрузка берется из кэша лоадера
	_, err = loaders.Users(context.Background(), []string{alice.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, store.calls)
}

func TestMiddleware(t *testing.T) {
	var got *Loaders
	h := Middleware(inmemory.New())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = For(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotNil(t, got)
	assert.Nil(t, For(context.Background()))
}

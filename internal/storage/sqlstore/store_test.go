package sqlstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/storage"
	"github.com/UkralStul/ecosocial/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage { return newTestStore(t) })
}

func TestStore_PostJSONColumns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := storagetest.MustUser(t, s, "alice")

	post, err := s.CreatePost(ctx, &domain.Post{
		AuthorID:    u.ID,
		Content:     "hi @bob see https://example.com #eco",
		MediaURLs:   []string{"https://cdn.example.com/a.jpg"},
		Hashtags:    []string{"eco"},
		Mentions:    []string{"bob"},
		LinkPreview: &domain.LinkPreview{URL: "https://example.com", Title: "Example"},
	})
	require.NoError(t, err)

	got, err := s.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example.com/a.jpg"}, []string(got.MediaURLs))
	assert.Equal(t, []string{"eco"}, []string(got.Hashtags))
	assert.Equal(t, []string{"bob"}, []string(got.Mentions))
	require.NotNil(t, got.LinkPreview)
	assert.Equal(t, "Example", got.LinkPreview.Title)
}

func TestStore_CounterNeverNegative(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := storagetest.MustUser(t, s, "alice")
	post := storagetest.MustPost(t, s, u.ID, "Post")

	require.NoError(t, bump(s.conn(ctx), post.ID, storage.CounterLikes, -1))
	got, err := s.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.LikesCount)
}

func TestPrefixPattern(t *testing.T) {
	assert.Equal(t, `ali%`, prefixPattern(" Ali "))
	assert.Equal(t, `a\_b\%%`, prefixPattern("a_b%"))
}

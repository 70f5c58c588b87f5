package trending

import (
	"testing"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/stretchr/testify/assert"
)

func post(id string, likes, comments, reposts int, tags ...string) *domain.Post {
	return &domain.Post{ID: id, LikesCount: likes, CommentsCount: comments, RepostsCount: reposts, Hashtags: tags}
}

func TestScore(t *testing.T) {
	assert.Equal(t, 10, Score(post("a", 1, 0, 3)))
	assert.Equal(t, 7, Score(post("b", 1, 3, 0)))
	assert.Equal(t, 0, Score(post("c", 0, 0, 0)))
}

func TestRank(t *testing.T) {
	low := post("low", 1, 3, 0)  // 7
	high := post("high", 1, 0, 3) // 10
	tieA := post("tie-a", 2, 0, 0)
	tieB := post("tie-b", 0, 1, 0)
	input := []*domain.Post{low, tieA, high, tieB}

	ranked := Rank(input, 0)
	assert.Equal(t, []*domain.Post{high, low, tieA, tieB}, ranked)
	// Исходный срез не меняется
	assert.Equal(t, low, input[0])

	assert.Equal(t, []*domain.Post{high}, Rank(input, 1))
	assert.Empty(t, Rank(nil, 5))
}

func TestTopHashtags(t *testing.T) {
	posts := []*domain.Post{
		post("1", 5, 0, 0, "compost", "garden"),
		post("2", 1, 0, 0, "compost"),
		post("3", 0, 0, 1, "bikes"),
		post("4", 0, 0, 0, "garden"),
	}
	top := TopHashtags(posts, 2)
	assert.Equal(t, []TagCount{
		{Tag: "compost", Posts: 2, Score: 6},
		{Tag: "garden", Posts: 2, Score: 5},
	}, top)
}

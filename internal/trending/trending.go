// Package trending ранжирует недавние посты по вовлеченности.
package trending

import (
	"cmp"
	"slices"
	"time"

	"github.com/UkralStul/ecosocial/internal/domain"
)

const (
	// Window - глубина выборки кандидатов.
	Window = 7 * 24 * time.Hour
	// MaxCandidates ограничивает число постов, из которых считается рейтинг.
	MaxCandidates = 500

	DefaultLimit = 20
	MaxLimit     = 100
)

// Веса реакций.
const (
	likeWeight    = 1
	commentWeight = 2
	repostWeight  = 3
)

// Score - оценка вовлеченности поста.
func Score(p *domain.Post) int {
	return p.LikesCount*likeWeight + p.CommentsCount*commentWeight + p.RepostsCount*repostWeight
}

// Rank сортирует копию posts по убыванию оценки (при равенстве порядок
// сохраняется) и обрезает до limit.
func Rank(posts []*domain.Post, limit int) []*domain.Post {
	ranked := slices.Clone(posts)
	slices.SortStableFunc(ranked, func(a, b *domain.Post) int {
		return cmp.Compare(Score(b), Score(a))
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// TagCount - хэштег с числом постов и суммарной оценкой.
type TagCount struct {
	Tag   string `json:"tag"`
	Posts int    `json:"posts"`
	Score int    `json:"score"`
}

// TopHashtags считает хэштеги по постам и возвращает самые популярные.
func TopHashtags(posts []*domain.Post, limit int) []TagCount {
	byTag := make(map[string]*TagCount)
	for _, p := range posts {
		score := Score(p)
		for _, tag := range p.Hashtags {
			tc, ok := byTag[tag]
			if !ok {
				tc = &TagCount{Tag: tag}
				byTag[tag] = tc
			}
			tc.Posts++
			tc.Score += score
		}
	}

	out := make([]TagCount, 0, len(byTag))
	for _, tc := range byTag {
		out = append(out, *tc)
	}
	slices.SortFunc(out, func(a, b TagCount) int {
		return cmp.Or(
			cmp.Compare(b.Posts, a.Posts),
			cmp.Compare(b.Score, a.Score),
			cmp.Compare(a.Tag, b.Tag),
		)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

package api

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/UkralStul/ecosocial/internal/dataloader"
	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/richtext"
	"github.com/UkralStul/ecosocial/internal/storage"
	"github.com/UkralStul/ecosocial/internal/trending"
	"github.com/go-chi/chi/v5"
)

// Упоминания сверх лимита не порождают уведомлений.
const maxMentionNotifications = 10

// loaders возвращает загрузчики запроса или создает новые вне middleware.
func (s *Server) loaders(ctx context.Context) *dataloader.Loaders {
	if l := dataloader.For(ctx); l != nil {
		return l
	}
	return dataloader.NewLoaders(s.store)
}

// attachAuthors заполняет Author у постов одним пакетным запросом.
func (s *Server) attachAuthors(ctx context.Context, posts []*domain.Post) error {
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.AuthorID)
	}
	users, err := s.loaders(ctx).Users(ctx, ids)
	if err != nil {
		return err
	}
	for _, p := range posts {
		if u, ok := users[p.AuthorID]; ok {
			p.Author = u.Summary()
		}
	}
	return nil
}

func (s *Server) writePosts(w http.ResponseWriter, r *http.Request, posts []*domain.Post) {
	if posts == nil {
		posts = []*domain.Post{}
	}
	if err := s.attachAuthors(r.Context(), posts); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// === Post Handlers ===

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content     string              `json:"content"`
		MediaURLs   []string            `json:"media_urls"`
		LinkPreview *domain.LinkPreview `json:"link_preview"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	author := currentUser(r)

	post, err := s.store.CreatePost(ctx, &domain.Post{
		AuthorID:    author.ID,
		Content:     req.Content,
		MediaURLs:   req.MediaURLs,
		LinkPreview: req.LinkPreview,
		Hashtags:    richtext.Hashtags(req.Content),
		Mentions:    richtext.Mentions(req.Content),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.notifyMentions(ctx, author, post.Mentions, post.ID, "post", "")

	post.Author = author.Summary()
	writeJSON(w, http.StatusCreated, post)
}

// notifyMentions уведомляет упомянутых пользователей. where - "post" или
// "comment", skipID уже получил уведомление другого типа.
func (s *Server) notifyMentions(ctx context.Context, author *domain.User, mentions []string, postID, where, skipID string) {
	if len(mentions) > maxMentionNotifications {
		mentions = mentions[:maxMentionNotifications]
	}
	for _, username := range mentions {
		user, err := s.store.GetUserByUsername(ctx, username)
		if err != nil || user.ID == skipID {
			continue
		}
		s.notify(ctx, &domain.Notification{
			UserID:   user.ID,
			ActorID:  author.ID,
			Type:     domain.NotificationMention,
			EntityID: postID,
			Message:  author.Username + " mentioned you in a " + where,
		})
	}
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.store.GetPostByID(r.Context(), chi.URLParam(r, "postID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.attachAuthors(r.Context(), []*domain.Post{post}); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) deletePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	post, err := s.store.GetPostByID(ctx, chi.URLParam(r, "postID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if post.AuthorID != currentUser(r).ID {
		writeError(w, r, domain.Forbidden("only the author can delete this post"))
		return
	}
	if err := s.store.DeletePost(ctx, post.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// feed - посты подписок и собственные посты, новые первыми.
func (s *Server) feed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := pageFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	viewer := currentUser(r)
	ids, err := s.store.FollowingIDs(ctx, viewer.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	posts, err := s.store.ListPosts(ctx, storage.PostFilter{AuthorIDs: append(ids, viewer.ID)}, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.writePosts(w, r, posts)
}

func (s *Server) userPosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := pageFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.store.GetUserByUsername(ctx, chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	posts, err := s.store.ListPosts(ctx, storage.PostFilter{AuthorIDs: []string{user.ID}}, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.writePosts(w, r, posts)
}

func (s *Server) hashtagPosts(w http.ResponseWriter, r *http.Request) {
	tag := strings.ToLower(strings.TrimPrefix(chi.URLParam(r, "tag"), "#"))
	if tag == "" {
		writeError(w, r, domain.Invalidf("hashtag is required"))
		return
	}
	page, err := pageFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	posts, err := s.store.ListPosts(r.Context(), storage.PostFilter{Hashtag: tag}, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.writePosts(w, r, posts)
}

// recentPosts выбирает кандидатов для трендов постранично, не более MaxCandidates.
func (s *Server) recentPosts(ctx context.Context) ([]*domain.Post, error) {
	filter := storage.PostFilter{Since: time.Now().UTC().Add(-trending.Window)}
	var result []*domain.Post
	for offset := 0; offset < trending.MaxCandidates; offset += storage.MaxLimit {
		batch, err := s.store.ListPosts(ctx, filter, storage.Page{Limit: storage.MaxLimit, Offset: offset})
		if err != nil {
			return nil, err
		}
		result = append(result, batch...)
		if len(batch) < storage.MaxLimit {
			break
		}
	}
	return result, nil
}

func trendingLimit(r *http.Request) (int, error) {
	page, err := pageFrom(r)
	if err != nil {
		return 0, err
	}
	if r.URL.Query().Get("limit") == "" {
		return trending.DefaultLimit, nil
	}
	return min(page.Limit, trending.MaxLimit), nil
}

func (s *Server) trendingPosts(w http.ResponseWriter, r *http.Request) {
	limit, err := trendingLimit(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	candidates, err := s.recentPosts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.writePosts(w, r, trending.Rank(candidates, limit))
}

func (s *Server) trendingHashtags(w http.ResponseWriter, r *http.Request) {
	limit, err := trendingLimit(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	candidates, err := s.recentPosts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	tags := trending.TopHashtags(candidates, limit)
	if tags == nil {
		tags = []trending.TagCount{}
	}
	writeJSON(w, http.StatusOK, tags)
}

// === Comment Handlers ===

func (s *Server) createComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content  string  `json:"content"`
		ParentID *string `json:"parent_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	author := currentUser(r)

	comment, err := s.store.CreateComment(ctx, &domain.Comment{
		PostID:   chi.URLParam(r, "postID"),
		ParentID: req.ParentID,
		AuthorID: author.ID,
		Content:  req.Content,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	postAuthorID := ""
	if post, err := s.store.GetPostByID(ctx, comment.PostID); err == nil {
		postAuthorID = post.AuthorID
		s.notify(ctx, &domain.Notification{
			UserID:   post.AuthorID,
			ActorID:  author.ID,
			Type:     domain.NotificationComment,
			EntityID: post.ID,
			Message:  author.Username + " commented on your post",
		})
	}
	s.notifyMentions(ctx, author, richtext.Mentions(comment.Content), comment.PostID, "comment", postAuthorID)

	comment.Author = author.Summary()
	writeJSON(w, http.StatusCreated, comment)
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := pageFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	postID := chi.URLParam(r, "postID")
	if _, err := s.store.GetPostByID(ctx, postID); err != nil {
		writeError(w, r, err)
		return
	}
	comments, err := s.store.ListComments(ctx, postID, page)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ids := make([]string, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.AuthorID)
	}
	users, err := s.loaders(ctx).Users(ctx, ids)
	if err != nil {
		writeError(w, r, err)
		return
	}
	for _, c := range comments {
		if u, ok := users[c.AuthorID]; ok {
			c.Author = u.Summary()
		}
	}
	if comments == nil {
		comments = []*domain.Comment{}
	}
	writeJSON(w, http.StatusOK, comments)
}

// deleteComment доступно автору комментария и автору поста.
func (s *Server) deleteComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := currentUser(r)
	comment, err := s.store.GetCommentByID(ctx, chi.URLParam(r, "commentID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if comment.AuthorID != viewer.ID {
		post, err := s.store.GetPostByID(ctx, comment.PostID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if post.AuthorID != viewer.ID {
			writeError(w, r, domain.Forbidden("cannot delete this comment"))
			return
		}
	}
	if err := s.store.DeleteComment(ctx, comment.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// === Reaction Handlers ===

func (s *Server) like(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := currentUser(r)
	postID := chi.URLParam(r, "postID")
	if err := s.store.LikePost(ctx, postID, viewer.ID); err != nil {
		writeError(w, r, err)
		return
	}
	s.notifyPostAuthor(ctx, postID, viewer, domain.NotificationLike, " liked your post")
	s.writeCounters(w, r, postID, http.StatusOK)
}

func (s *Server) unlike(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postID")
	if err := s.store.UnlikePost(r.Context(), postID, currentUser(r).ID); err != nil {
		writeError(w, r, err)
		return
	}
	s.writeCounters(w, r, postID, http.StatusOK)
}

func (s *Server) repost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quote string `json:"quote"`
	}
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	viewer := currentUser(r)
	postID := chi.URLParam(r, "postID")
	repost, err := s.store.CreateRepost(ctx, &domain.Repost{
		PostID: postID,
		UserID: viewer.ID,
		Quote:  strings.TrimSpace(req.Quote),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.notifyPostAuthor(ctx, postID, viewer, domain.NotificationRepost, " reposted your post")
	writeJSON(w, http.StatusCreated, repost)
}

func (s *Server) unrepost(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postID")
	if err := s.store.DeleteRepost(r.Context(), postID, currentUser(r).ID); err != nil {
		writeError(w, r, err)
		return
	}
	s.writeCounters(w, r, postID, http.StatusOK)
}

func (s *Server) notifyPostAuthor(ctx context.Context, postID string, actor *domain.User, kind, suffix string) {
	post, err := s.store.GetPostByID(ctx, postID)
	if err != nil {
		log.Printf("[api] %s notification for post %s: %v", kind, postID, err)
		return
	}
	s.notify(ctx, &domain.Notification{
		UserID:   post.AuthorID,
		ActorID:  actor.ID,
		Type:     kind,
		EntityID: post.ID,
		Message:  actor.Username + suffix,
	})
}

type countersResponse struct {
	PostID        string `json:"post_id"`
	LikesCount    int    `json:"likes_count"`
	CommentsCount int    `json:"comments_count"`
	RepostsCount  int    `json:"reposts_count"`
}

func (s *Server) writeCounters(w http.ResponseWriter, r *http.Request, postID string, status int) {
	post, err := s.store.GetPostByID(r.Context(), postID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, countersResponse{
		PostID:        post.ID,
		LikesCount:    post.LikesCount,
		CommentsCount: post.CommentsCount,
		RepostsCount:  post.RepostsCount,
	})
}

package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/UkralStul/ecosocial/internal/auth"
	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/storage"
	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

const profilePostsLimit = 10

type sessionResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// === Auth Handlers ===

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		Username    string `json:"username"`
		Password    string `json:"password"`
		DisplayName string `json:"display_name"`
		InviteCode  string `json:"invite_code"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()

	// Код приглашения проверяется до создания аккаунта
	if req.InviteCode != "" {
		if _, _, err := s.invites.Validate(ctx, req.InviteCode); err != nil {
			writeError(w, r, err)
			return
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.store.CreateUser(ctx, &domain.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		DisplayName:  req.DisplayName,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	if req.InviteCode != "" {
		inv, err := s.invites.Redeem(ctx, req.InviteCode, user.ID)
		if err != nil {
			log.Printf("[api] user %s registered but invite %s was not redeemed: %v", user.ID, req.InviteCode, err)
		} else {
			s.notify(ctx, &domain.Notification{
				UserID:   inv.InviterID,
				ActorID:  user.ID,
				Type:     domain.NotificationInvite,
				EntityID: inv.ID,
				Message:  user.Username + " joined with your invite",
			})
			if fresh, err := s.store.GetUserByID(ctx, user.ID); err == nil {
				user = fresh
			}
		}
	}

	token, err := s.auth.Login(ctx, w, user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{User: user, Token: token})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()

	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, r, auth.ErrBadCredentials)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		writeError(w, r, err)
		return
	}

	token, err := s.auth.Login(ctx, w, user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: user, Token: token})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.auth.Logout(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// === User Handlers ===

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

func (s *Server) updateMe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayName *string `json:"display_name"`
		Bio         *string `json:"bio"`
		AvatarURL   *string `json:"avatar_url"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user := *currentUser(r)
	if req.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.Bio != nil {
		user.Bio = strings.TrimSpace(*req.Bio)
	}
	if req.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*req.AvatarURL)
	}
	updated, err := s.store.UpdateUser(r.Context(), &user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type profileResponse struct {
	*domain.User
	IsFollowing bool           `json:"is_following"`
	RecentPosts []*domain.Post `json:"recent_posts"`
}

// getProfile собирает публичный профиль: подписка и последние посты
// загружаются параллельно.
func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := s.store.GetUserByUsername(ctx, chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := profileResponse{User: user.Public()}
	g, gctx := errgroup.WithContext(ctx)
	if viewer, ok := auth.UserFrom(ctx); ok && viewer.ID != user.ID {
		g.Go(func() error {
			following, err := s.store.IsFollowing(gctx, viewer.ID, user.ID)
			resp.IsFollowing = following
			return err
		})
	}
	g.Go(func() error {
		posts, err := s.store.ListPosts(gctx, storage.PostFilter{AuthorIDs: []string{user.ID}}, storage.Page{Limit: profilePostsLimit})
		resp.RecentPosts = posts
		return err
	})
	if err := g.Wait(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.attachAuthors(ctx, resp.RecentPosts); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) searchUsers(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, r, domain.Invalidf("query parameter q is required"))
		return
	}
	page, err := pageFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	users, err := s.store.SearchUsers(r.Context(), q, page.Limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries(users))
}

func summaries(users []*domain.User) []*domain.UserSummary {
	result := make([]*domain.UserSummary, 0, len(users))
	for _, u := range users {
		result = append(result, u.Summary())
	}
	return result
}

// === Follow Handlers ===

func (s *Server) follow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := currentUser(r)
	target, err := s.store.GetUserByUsername(ctx, chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if target.ID == viewer.ID {
		writeError(w, r, domain.Invalidf("cannot follow yourself"))
		return
	}
	if err := s.store.CreateFollow(ctx, viewer.ID, target.ID); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.AdjustFollowCounts(ctx, viewer.ID, target.ID, 1); err != nil {
		log.Printf("[api] follow counts %s -> %s: %v", viewer.ID, target.ID, err)
	}
	s.notify(ctx, &domain.Notification{
		UserID:   target.ID,
		ActorID:  viewer.ID,
		Type:     domain.NotificationFollow,
		EntityID: viewer.ID,
		Message:  viewer.Username + " started following you",
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) unfollow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := currentUser(r)
	target, err := s.store.GetUserByUsername(ctx, chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.DeleteFollow(ctx, viewer.ID, target.ID); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.AdjustFollowCounts(ctx, viewer.ID, target.ID, -1); err != nil {
		log.Printf("[api] follow counts %s -> %s: %v", viewer.ID, target.ID, err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listFollowers(w http.ResponseWriter, r *http.Request) {
	s.listFollowRelation(w, r, s.store.ListFollowers)
}

func (s *Server) listFollowing(w http.ResponseWriter, r *http.Request) {
	s.listFollowRelation(w, r, s.store.ListFollowing)
}

func (s *Server) listFollowRelation(w http.ResponseWriter, r *http.Request,
	list func(ctx context.Context, userID string, page storage.Page) ([]*domain.User, error)) {
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
	users, err := list(ctx, user.ID, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries(users))
}

package api

import (
	"net/http"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/go-chi/chi/v5"
)

func (s *Server) createInvite(w http.ResponseWriter, r *http.Request) {
	inv, err := s.invites.Generate(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

func (s *Server) createInvitesBulk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Count int `json:"count"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	invites, err := s.invites.GenerateBulk(r.Context(), currentUser(r).ID, req.Count)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, invites)
}

func (s *Server) listInvites(w http.ResponseWriter, r *http.Request) {
	invites, err := s.invites.List(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if invites == nil {
		invites = []*domain.Invite{}
	}
	writeJSON(w, http.StatusOK, invites)
}

type inviteCheckResponse struct {
	Code    string              `json:"code"`
	Valid   bool                `json:"valid"`
	Inviter *domain.UserSummary `json:"inviter"`
}

// validateInvite доступен без входа: код проверяют до регистрации.
func (s *Server) validateInvite(w http.ResponseWriter, r *http.Request) {
	inv, inviter, err := s.invites.Validate(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inviteCheckResponse{Code: inv.Code, Valid: true, Inviter: inviter.Summary()})
}

func (s *Server) redeemInvite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Code == "" {
		writeError(w, r, domain.Invalidf("code is required"))
		return
	}
	ctx := r.Context()
	user := currentUser(r)
	inv, err := s.invites.Redeem(ctx, req.Code, user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.notify(ctx, &domain.Notification{
		UserID:   inv.InviterID,
		ActorID:  user.ID,
		Type:     domain.NotificationInvite,
		EntityID: inv.ID,
		Message:  user.Username + " redeemed your invite",
	})
	writeJSON(w, http.StatusOK, inv)
}

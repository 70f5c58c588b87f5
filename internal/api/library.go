package api

import (
	"context"
	"net/http"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/go-chi/chi/v5"
)

// ownCollection загружает коллекцию и проверяет владельца.
func (s *Server) ownCollection(ctx context.Context, id, userID string) (*domain.Collection, error) {
	c, err := s.store.GetCollection(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, domain.Forbidden("collection belongs to another user")
	}
	return c, nil
}

type bookmarkRequest struct {
	CollectionID *string `json:"collection_id"`
}

// decodeBookmark читает необязательное тело и проверяет коллекцию.
func (s *Server) decodeBookmark(w http.ResponseWriter, r *http.Request) (*string, error) {
	var req bookmarkRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		return nil, err
	}
	if req.CollectionID != nil && *req.CollectionID == "" {
		req.CollectionID = nil
	}
	if req.CollectionID != nil {
		if _, err := s.ownCollection(r.Context(), *req.CollectionID, currentUser(r).ID); err != nil {
			return nil, err
		}
	}
	return req.CollectionID, nil
}

// === Bookmark Handlers ===

func (s *Server) addBookmark(w http.ResponseWriter, r *http.Request) {
	collectionID, err := s.decodeBookmark(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.store.CreateBookmark(r.Context(), &domain.Bookmark{
		UserID:       currentUser(r).ID,
		PostID:       chi.URLParam(r, "postID"),
		CollectionID: collectionID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// moveBookmark переносит закладку в коллекцию; null убирает ее из коллекции.
func (s *Server) moveBookmark(w http.ResponseWriter, r *http.Request) {
	collectionID, err := s.decodeBookmark(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.store.MoveBookmark(r.Context(), currentUser(r).ID, chi.URLParam(r, "postID"), collectionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) removeBookmark(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteBookmark(r.Context(), currentUser(r).ID, chi.URLParam(r, "postID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listBookmarks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := currentUser(r)
	page, err := pageFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var collectionID *string
	if id := r.URL.Query().Get("collection_id"); id != "" {
		if _, err := s.ownCollection(ctx, id, viewer.ID); err != nil {
			writeError(w, r, err)
			return
		}
		collectionID = &id
	}

	bookmarks, err := s.store.ListBookmarks(ctx, viewer.ID, collectionID, page)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ids := make([]string, 0, len(bookmarks))
	for _, b := range bookmarks {
		ids = append(ids, b.PostID)
	}
	posts, err := s.store.GetPostsByIDs(ctx, ids)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list := make([]*domain.Post, 0, len(posts))
	for _, p := range posts {
		list = append(list, p)
	}
	if err := s.attachAuthors(ctx, list); err != nil {
		writeError(w, r, err)
		return
	}
	for _, b := range bookmarks {
		b.Post = posts[b.PostID]
	}
	if bookmarks == nil {
		bookmarks = []*domain.Bookmark{}
	}
	writeJSON(w, http.StatusOK, bookmarks)
}

// === Collection Handlers ===

type collectionRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (s *Server) listCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := s.store.ListCollections(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if collections == nil {
		collections = []*domain.Collection{}
	}
	writeJSON(w, http.StatusOK, collections)
}

func (s *Server) createCollection(w http.ResponseWriter, r *http.Request) {
	var req collectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c := &domain.Collection{UserID: currentUser(r).ID}
	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	created, err := s.store.CreateCollection(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateCollection(w http.ResponseWriter, r *http.Request) {
	var req collectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	c, err := s.ownCollection(ctx, chi.URLParam(r, "collectionID"), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	updated, err := s.store.UpdateCollection(ctx, c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := s.ownCollection(ctx, chi.URLParam(r, "collectionID"), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.DeleteCollection(ctx, c.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"net/http"
	"unicode/utf8"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/richtext"
	"github.com/go-chi/chi/v5"
)

const maxAnnotateLength = 10000

// === Task Handlers ===

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.store.ListTasks(r.Context(), true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Points      int    `json:"points"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	task, err := s.store.CreateTask(r.Context(), &domain.Task{
		Title:       req.Title,
		Description: req.Description,
		Points:      req.Points,
		CreatedBy:   "admin",
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// completeTask засчитывает задание один раз и начисляет баллы.
func (s *Server) completeTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(r)
	task, err := s.store.GetTask(ctx, chi.URLParam(r, "taskID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !task.IsActive {
		writeError(w, r, domain.NotFound("task"))
		return
	}
	completion := &domain.TaskCompletion{TaskID: task.ID, UserID: user.ID, PointsAwarded: task.Points}
	if err := s.store.CompleteTask(ctx, completion); err != nil {
		writeError(w, r, err)
		return
	}
	s.awardPoints(ctx, user.ID, task.Points, "task "+task.ID)
	writeJSON(w, http.StatusCreated, completion)
}

// === Text Handlers ===

func (s *Server) annotateText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if utf8.RuneCountInString(req.Text) > maxAnnotateLength {
		writeError(w, r, domain.Invalidf("text is too long"))
		return
	}
	spans := []richtext.Span{}
	for span := range richtext.Annotate(req.Text) {
		spans = append(spans, span)
	}
	writeJSON(w, http.StatusOK, map[string]any{"spans": spans})
}

// === Realtime ===

func (s *Server) websocket(w http.ResponseWriter, r *http.Request) {
	s.hub.Serve(w, r, currentUser(r).ID)
}

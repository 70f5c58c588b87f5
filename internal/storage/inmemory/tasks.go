package inmemory

import (
	"context"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/storage"
	"github.com/google/uuid"
)

func (s *Store) CreateTask(ctx context.Context, t *domain.Task) (*domain.Task, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = uuid.NewString()
	t.CreatedAt = s.tick()
	t.IsActive = true
	s.tasks[t.ID] = clonePtr(t)
	return clonePtr(t), nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, domain.NotFound("task")
	}
	return clonePtr(t), nil
}

func (s *Store) ListTasks(ctx context.Context, activeOnly bool) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Task
	for _, t := range s.tasks {
		if activeOnly && !t.IsActive {
			continue
		}
		result = append(result, clonePtr(t))
	}
	return paginate(result, storage.Page{Limit: storage.MaxLimit}, func(a, b *domain.Task) bool {
		return a.CreatedAt.After(b.CreatedAt)
	}), nil
}

func (s *Store) CompleteTask(ctx context.Context, c *domain.TaskCompletion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[c.TaskID]; !ok {
		return domain.NotFound("task")
	}
	key := pairKey{c.TaskID, c.UserID}
	if _, ok := s.completions[key]; ok {
		return domain.Conflict("task is already completed")
	}
	c.CreatedAt = s.tick()
	s.completions[key] = clonePtr(c)
	return nil
}

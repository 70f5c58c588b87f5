package sqlstore

import (
	"context"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *Store) CreateTask(ctx context.Context, t *domain.Task) (*domain.Task, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.ID = uuid.NewString()
	t.IsActive = true
	if err := s.conn(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	var t domain.Task
	if err := s.conn(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, translate(err, "task", "")
	}
	return &t, nil
}

func (s *Store) ListTasks(ctx context.Context, activeOnly bool) ([]*domain.Task, error) {
	query := s.conn(ctx).Order("created_at DESC").Limit(100)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var result []*domain.Task
	return result, query.Find(&result).Error
}

func (s *Store) CompleteTask(ctx context.Context, c *domain.TaskCompletion) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := exists(tx, &domain.Task{}, "id = ?", c.TaskID)
		if err != nil {
			return err
		}
		if !found {
			return domain.NotFound("task")
		}
		return translate(tx.Create(c).Error, "task", "task is already completed")
	})
}

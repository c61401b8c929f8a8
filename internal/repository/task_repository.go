package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medassist/medassist/internal/domain/task"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

var _ task.Repository = (*TaskRepository)(nil)

func (r *TaskRepository) Create(ctx context.Context, t *task.Task) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	var t task.Task
	err := r.db.WithContext(ctx).Where("deleted_at IS NULL").First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, task.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepository) Update(ctx context.Context, t *task.Task) error {
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *TaskRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&task.Task{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", gorm.Expr("NOW()"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return task.ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepository) List(ctx context.Context, q *task.ListTasksQuery) ([]*task.Task, error) {
	query := r.db.WithContext(ctx).Model(&task.Task{}).Where("deleted_at IS NULL")

	if q.Status != nil {
		query = query.Where("status = ?", *q.Status)
	}
	if q.Search != "" {
		query = query.Where("name ILIKE ?", "%"+q.Search+"%")
	}

	var ts []*task.Task
	err := query.Order("created_at DESC").Find(&ts).Error
	if err != nil {
		return nil, err
	}
	return ts, nil
}

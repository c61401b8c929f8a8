package task

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, t *Task) error

	// GetByID returns ErrTaskNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)

	Update(ctx context.Context, t *Task) error

	SoftDelete(ctx context.Context, id uuid.UUID) error

	// List returns tasks matching the query, newest first. Search does a
	// case-insensitive substring match on the name.
	List(ctx context.Context, q *ListTasksQuery) ([]*Task, error)
}

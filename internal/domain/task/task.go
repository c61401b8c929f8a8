package task

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusCompleted
}

// Task is a practice to-do item ("call Mr. Sharma about his report").
type Task struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	Name    string `gorm:"column:name;type:varchar(255);not null"`
	Details string `gorm:"column:details;type:text"`

	Status Status     `gorm:"column:status;type:varchar(20);not null;default:'pending';index"`
	DueAt  *time.Time `gorm:"column:due_at;index"`

	CompletedAt *time.Time `gorm:"column:completed_at"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
}

func (Task) TableName() string {
	return "clinical.tasks"
}

func (t *Task) Complete() error {
	if t.Status == StatusCompleted {
		return ErrTaskAlreadyCompleted
	}
	now := time.Now()
	t.Status = StatusCompleted
	t.CompletedAt = &now
	return nil
}

type CreateTaskCommand struct {
	Name      string
	Details   string
	DueAt     *time.Time
	CreatedBy uuid.UUID
}

type ListTasksQuery struct {
	Status *Status
	Search string
}

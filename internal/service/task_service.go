package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medassist/medassist/internal/domain/task"
	"github.com/medassist/medassist/pkg/metrics"
)

type TaskService struct {
	repo      task.Repository
	auditSvc  *AuditService
	collector *metrics.Collector
	log       *zap.Logger
}

func NewTaskService(repo task.Repository, auditSvc *AuditService, collector *metrics.Collector, log *zap.Logger) *TaskService {
	return &TaskService{repo: repo, auditSvc: auditSvc, collector: collector, log: log}
}

func (s *TaskService) CreateTask(ctx context.Context, cmd *task.CreateTaskCommand, callerRole, ip string) (*task.Task, error) {
	if strings.TrimSpace(cmd.Name) == "" {
		return nil, task.ErrTaskNameRequired
	}

	t := &task.Task{
		Name:      strings.TrimSpace(cmd.Name),
		Details:   strings.TrimSpace(cmd.Details),
		Status:    task.StatusPending,
		DueAt:     cmd.DueAt,
		CreatedBy: cmd.CreatedBy,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	s.collector.TasksCreatedTotal.Inc()

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       cmd.CreatedBy,
		UserRole:     callerRole,
		Action:       "create",
		ResourceType: "task",
		ResourceID:   t.ID.String(),
		IPAddress:    ip,
	})

	return t, nil
}

func (s *TaskService) CompleteTask(ctx context.Context, id uuid.UUID, callerID uuid.UUID, callerRole, ip string) (*task.Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := t.Complete(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("updating task: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "update",
		ResourceType: "task",
		ResourceID:   id.String(),
		IPAddress:    ip,
	})

	return t, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, id uuid.UUID, callerID uuid.UUID, callerRole, ip string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "delete",
		ResourceType: "task",
		ResourceID:   id.String(),
		IPAddress:    ip,
	})

	return s.repo.SoftDelete(ctx, id)
}

// PendingTasks lists every task not yet completed.
func (s *TaskService) PendingTasks(ctx context.Context) ([]*task.Task, error) {
	pending := task.StatusPending
	return s.repo.List(ctx, &task.ListTasksQuery{Status: &pending})
}

func (s *TaskService) AllTasks(ctx context.Context) ([]*task.Task, error) {
	return s.repo.List(ctx, &task.ListTasksQuery{})
}

// SearchTasks matches the query against task names.
func (s *TaskService) SearchTasks(ctx context.Context, query string) ([]*task.Task, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &ValidationError{Fields: []string{"query is required"}}
	}
	return s.repo.List(ctx, &task.ListTasksQuery{Search: query})
}

package task

import "errors"

var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrTaskNameRequired     = errors.New("task name is required")
	ErrTaskAlreadyCompleted = errors.New("task is already completed")
)

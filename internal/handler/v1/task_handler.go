package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	taskdomain "github.com/medassist/medassist/internal/domain/task"
	"github.com/medassist/medassist/internal/service"
)

type TaskHandler struct {
	taskSvc *service.TaskService
}

func NewTaskHandler(taskSvc *service.TaskService) *TaskHandler {
	return &TaskHandler{taskSvc: taskSvc}
}

type createTaskRequest struct {
	Name    string     `json:"name" binding:"required"`
	Details string     `json:"details"`
	DueAt   *time.Time `json:"due_at"`
}

func (h *TaskHandler) Create(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	t, err := h.taskSvc.CreateTask(c.Request.Context(), &taskdomain.CreateTaskCommand{
		Name:      req.Name,
		Details:   req.Details,
		DueAt:     req.DueAt,
		CreatedBy: claims.UserID,
	}, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, t)
}

func (h *TaskHandler) List(c *gin.Context) {
	if search := c.Query("search"); search != "" {
		tasks, err := h.taskSvc.SearchTasks(c.Request.Context(), search)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		respondOK(c, tasks)
		return
	}

	if c.Query("status") == string(taskdomain.StatusPending) {
		tasks, err := h.taskSvc.PendingTasks(c.Request.Context())
		if err != nil {
			respondServiceError(c, err)
			return
		}
		respondOK(c, tasks)
		return
	}

	tasks, err := h.taskSvc.AllTasks(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, tasks)
}

func (h *TaskHandler) Complete(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	t, err := h.taskSvc.CompleteTask(c.Request.Context(), id, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, t)
}

func (h *TaskHandler) Delete(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.taskSvc.DeleteTask(c.Request.Context(), id, claims.UserID, string(claims.Role), c.ClientIP()); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"deleted": true})
}

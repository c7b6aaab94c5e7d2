package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/cookbook/internal/tasks"
)

// TaskQueue is the part of the task client used by the admin endpoints.
type TaskQueue interface {
	Add(tasks ...backlite.Task) *backlite.TaskAddOp
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// SweepRunner triggers and reports the orphaned-upload sweep.
type SweepRunner interface {
	RunNow()
	IsSweeping() bool
	NextRun() *time.Time
}

// TasksController handles task queue management endpoints.
type TasksController struct {
	client        TaskQueue
	sweeper       SweepRunner
	retentionDays int
}

// NewTasksController creates a new TasksController. Either dependency may be
// nil; the matching task types are then rejected.
func NewTasksController(client TaskQueue, sweeper SweepRunner, retentionDays int) *TasksController {
	return &TasksController{client: client, sweeper: sweeper, retentionDays: retentionDays}
}

// TaskTypeInfo describes an available task type.
type TaskTypeInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Queue       string `json:"queue,omitempty"`
}

// RunTaskRequest is the request body for running a task.
type RunTaskRequest struct {
	// RetentionDays overrides the configured retention for cleanup_audit_events.
	RetentionDays int `json:"retention_days,omitempty" binding:"omitempty,min=1"`
}

// ListTaskTypes handles GET /api/admin/tasks/types
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	types := []TaskTypeInfo{}
	if tc.client != nil {
		types = append(types, TaskTypeInfo{
			Type:        "cleanup_audit_events",
			Description: "Delete audit events older than the retention period",
			Queue:       tasks.CleanupAuditEventsTask{}.Config().Name,
		})
	}
	if tc.sweeper != nil {
		types = append(types, TaskTypeInfo{
			Type:        "sweep_uploads",
			Description: "Delete stored images no recipe, step or avatar references",
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"task_types": types,
	})
}

// GetTaskStatus handles GET /api/admin/tasks/:id
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	if tc.client == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "task queue is disabled"})
		return
	}
	taskID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.client.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": taskStatusToString(status),
	})
}

// RunTask handles POST /api/admin/tasks/:type/run
func (tc *TasksController) RunTask(c *gin.Context) {
	taskType := c.Param("type")

	var req RunTaskRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, bindingError(err))
			return
		}
	}

	switch taskType {
	case "cleanup_audit_events":
		if tc.client == nil {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "task queue is disabled"})
			return
		}
		retention := req.RetentionDays
		if retention == 0 {
			retention = tc.retentionDays
		}
		ids, err := tc.client.Add(tasks.CleanupAuditEventsTask{RetentionDays: retention}).Save()
		if err != nil {
			respondInternalError(c, err, "enqueue task")
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"task_id": ids[0],
			"type":    taskType,
			"message": "task enqueued",
		})

	case "sweep_uploads":
		if tc.sweeper == nil {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "upload sweep is disabled"})
			return
		}
		if tc.sweeper.IsSweeping() {
			respondConflict(c, "upload sweep already in progress")
			return
		}
		tc.sweeper.RunNow()
		c.JSON(http.StatusAccepted, gin.H{
			"type":    taskType,
			"message": "sweep started",
		})

	default:
		respondBadRequest(c, fmt.Sprintf("unknown task type: %s", taskType))
	}
}

// SweepStatus handles GET /api/admin/uploads/sweep
func (tc *TasksController) SweepStatus(c *gin.Context) {
	if tc.sweeper == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"enabled":  true,
		"sweeping": tc.sweeper.IsSweeping(),
		"next_run": tc.sweeper.NextRun(),
	})
}

func taskStatusToString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

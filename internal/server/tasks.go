package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ShayCichocki/agentsmith/internal/state"
	"github.com/ShayCichocki/agentsmith/pkg/models"
)

type createTaskRequest struct {
	Description string         `json:"description" binding:"required,min=10"`
	Metadata    map[string]any `json:"task_metadata"`
}

type pageQuery struct {
	Skip  int `form:"skip" binding:"gte=0"`
	Limit int `form:"limit,default=100" binding:"gte=1,lte=1000"`
}

type listTasksQuery struct {
	pageQuery
	Status string `form:"status" binding:"omitempty,oneof=pending processing completed failed"`
}

// statusResponse is served by the polling endpoints.
type statusResponse struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Result map[string]any `json:"result,omitempty"`
	Output *string        `json:"output,omitempty"`
	Error  *string        `json:"error,omitempty"`
	Source string         `json:"source"`
}

func (s *Server) createTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBind(c, err)
		return
	}

	task, err := s.deps.Tasks.Submit(c.Request.Context(), owner(c), req.Description, req.Metadata)
	if err != nil {
		s.abortErr(c, "Task", err)
		return
	}
	c.JSON(http.StatusAccepted, task)
}

func (s *Server) listTasks(c *gin.Context) {
	var q listTasksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortBind(c, err)
		return
	}

	tasks, err := s.deps.Store.ListTasks(c.Request.Context(), state.TaskFilter{
		OwnerID: owner(c),
		Status:  models.TaskStatus(q.Status),
		Offset:  q.Skip,
		Limit:   q.Limit,
	})
	if err != nil {
		s.abortErr(c, "Task", err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}

// ownedTask loads a task, hiding other owners' tasks as not found.
func (s *Server) ownedTask(c *gin.Context) (*models.Task, bool) {
	task, err := s.deps.Store.GetTask(c.Request.Context(), c.Param("id"))
	if err == nil && task.OwnerID != owner(c) {
		err = state.ErrNotFound
	}
	if err != nil {
		s.abortErr(c, "Task", err)
		return nil, false
	}
	return task, true
}

func (s *Server) getTask(c *gin.Context) {
	task, ok := s.ownedTask(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, task)
}

// taskStatus answers from the cache when the snapshot belongs to the
// caller. Anything else goes to the store, which 404s other owners.
func (s *Server) taskStatus(c *gin.Context) {
	id := c.Param("id")
	snap, ok, err := s.deps.Mirror.TaskSnapshot(c.Request.Context(), id)
	if err != nil {
		s.log.WarnContext(c.Request.Context(), "cache read failed", "task_id", id, "error", err)
	}
	if ok && err == nil && snap.Owner == owner(c) {
		c.JSON(http.StatusOK, statusResponse{
			ID: id, Status: snap.Status, Result: snap.Result, Error: snap.Error, Source: "cache",
		})
		return
	}

	task, found := s.ownedTask(c)
	if !found {
		return
	}
	c.JSON(http.StatusOK, statusResponse{
		ID: id, Status: string(task.Status), Result: task.Result, Error: task.Error, Source: "store",
	})
}

func (s *Server) taskResult(c *gin.Context) {
	task, ok := s.ownedTask(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"task_id": task.ID,
		"status":  task.Status,
		"result":  task.Result,
		"error":   task.Error,
	})
}

func (s *Server) deleteTask(c *gin.Context) {
	task, ok := s.ownedTask(c)
	if !ok {
		return
	}
	if err := s.deps.Store.DeleteTask(c.Request.Context(), task.ID); err != nil {
		s.abortErr(c, "Task", err)
		return
	}
	s.deps.Mirror.ForgetTask(c.Request.Context(), task.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully", "task_id": task.ID})
}

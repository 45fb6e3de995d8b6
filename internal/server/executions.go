package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ShayCichocki/agentsmith/internal/state"
	"github.com/ShayCichocki/agentsmith/pkg/models"
)

type createExecutionRequest struct {
	AgentID  string         `json:"agent_id" binding:"required,uuid"`
	Input    string         `json:"input_data" binding:"required,min=1"`
	Metadata map[string]any `json:"execution_metadata"`
}

type listExecutionsQuery struct {
	pageQuery
	AgentID string `form:"agent_id" binding:"omitempty,uuid"`
}

func (s *Server) createExecution(c *gin.Context) {
	var req createExecutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBind(c, err)
		return
	}

	// Other owners' agents are reported as missing.
	if agent, err := s.deps.Store.GetAgent(c.Request.Context(), req.AgentID); err == nil && agent.OwnerID != owner(c) {
		abort(c, http.StatusNotFound, "Agent not found")
		return
	}

	e, err := s.deps.Executions.Submit(c.Request.Context(), owner(c), req.AgentID, req.Input, req.Metadata)
	if err != nil {
		s.abortErr(c, "Execution", err)
		return
	}
	c.JSON(http.StatusAccepted, e)
}

func (s *Server) listExecutions(c *gin.Context) {
	var q listExecutionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortBind(c, err)
		return
	}

	execs, err := s.deps.Store.ListExecutions(c.Request.Context(), state.ExecutionFilter{
		OwnerID: owner(c),
		AgentID: q.AgentID,
		Offset:  q.Skip,
		Limit:   q.Limit,
	})
	if err != nil {
		s.abortErr(c, "Execution", err)
		return
	}
	if execs == nil {
		execs = []models.Execution{}
	}
	c.JSON(http.StatusOK, execs)
}

// ownedExecution loads an execution, hiding other owners' executions as not found.
func (s *Server) ownedExecution(c *gin.Context) (*models.Execution, bool) {
	e, err := s.deps.Store.GetExecution(c.Request.Context(), c.Param("id"))
	if err == nil && e.OwnerID != owner(c) {
		err = state.ErrNotFound
	}
	if err != nil {
		s.abortErr(c, "Execution", err)
		return nil, false
	}
	return e, true
}

func (s *Server) getExecution(c *gin.Context) {
	e, ok := s.ownedExecution(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, e)
}

func (s *Server) executionStatus(c *gin.Context) {
	id := c.Param("id")
	snap, ok, err := s.deps.Mirror.ExecutionSnapshot(c.Request.Context(), id)
	if err != nil {
		s.log.WarnContext(c.Request.Context(), "cache read failed", "execution_id", id, "error", err)
	}
	if ok && err == nil && snap.Owner == owner(c) {
		c.JSON(http.StatusOK, statusResponse{
			ID: id, Status: snap.Status, Output: snap.Output, Error: snap.Error, Source: "cache",
		})
		return
	}

	e, found := s.ownedExecution(c)
	if !found {
		return
	}
	c.JSON(http.StatusOK, statusResponse{
		ID: id, Status: string(e.Status), Output: e.Output, Error: e.Error, Source: "store",
	})
}

func (s *Server) deleteExecution(c *gin.Context) {
	e, ok := s.ownedExecution(c)
	if !ok {
		return
	}
	if err := s.deps.Store.DeleteExecution(c.Request.Context(), e.ID); err != nil {
		s.abortErr(c, "Execution", err)
		return
	}
	s.deps.Mirror.ForgetExecution(c.Request.Context(), e.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Execution deleted successfully", "execution_id": e.ID})
}

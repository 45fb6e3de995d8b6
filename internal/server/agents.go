package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ShayCichocki/agentsmith/internal/state"
	"github.com/ShayCichocki/agentsmith/pkg/models"
)

type createAgentRequest struct {
	Name         string         `json:"name" binding:"required,min=1,max=255"`
	AgentType    string         `json:"agent_type" binding:"required,archetype"`
	Description  string         `json:"description"`
	SystemPrompt string         `json:"system_prompt" binding:"required,min=10"`
	Capabilities []string       `json:"capabilities"`
	Model        string         `json:"model"`
	Temperature  *float64       `json:"temperature" binding:"omitempty,gte=0,lte=2"`
	MaxTokens    *int           `json:"max_tokens" binding:"omitempty,gte=1"`
	Metadata     map[string]any `json:"agent_metadata"`
}

type updateAgentRequest struct {
	Name         *string        `json:"name" binding:"omitempty,min=1,max=255"`
	Description  *string        `json:"description"`
	SystemPrompt *string        `json:"system_prompt" binding:"omitempty,min=10"`
	Capabilities []string       `json:"capabilities"`
	Temperature  *float64       `json:"temperature" binding:"omitempty,gte=0,lte=2"`
	MaxTokens    *int           `json:"max_tokens" binding:"omitempty,gte=1"`
	Metadata     map[string]any `json:"agent_metadata"`
}

type fromTemplateQuery struct {
	AgentType   string `form:"agent_type" binding:"required,archetype"`
	Name        string `form:"name" binding:"required,min=1,max=255"`
	Description string `form:"description"`
}

type listAgentsQuery struct {
	pageQuery
	AgentType string `form:"agent_type" binding:"omitempty,archetype"`
}

func (s *Server) createAgent(c *gin.Context) {
	var req createAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBind(c, err)
		return
	}

	archetype, _ := models.ParseArchetype(req.AgentType)
	temperature := models.DefaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := models.DefaultMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}
	model := req.Model
	if model == "" {
		model = s.deps.Synth.Model()
	}
	meta := req.Metadata
	if meta == nil {
		meta = map[string]any{}
	}

	agent := models.Agent{
		ID:           uuid.NewString(),
		OwnerID:      owner(c),
		Name:         req.Name,
		Archetype:    archetype,
		Description:  req.Description,
		SystemPrompt: req.SystemPrompt,
		Capabilities: req.Capabilities,
		Model:        model,
		Temperature:  models.FormatTemperature(temperature),
		MaxTokens:    models.FormatMaxTokens(maxTokens),
		Metadata:     meta,
	}
	if err := s.deps.Store.CreateAgent(c.Request.Context(), &agent); err != nil {
		s.abortErr(c, "Agent", err)
		return
	}
	c.JSON(http.StatusCreated, agent)
}

func (s *Server) createAgentFromTemplate(c *gin.Context) {
	var q fromTemplateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortBind(c, err)
		return
	}

	archetype, _ := models.ParseArchetype(q.AgentType)
	agent := s.deps.Synth.FromTemplate(archetype, q.Name, q.Description).Agent(uuid.NewString(), owner(c))
	if err := s.deps.Store.CreateAgent(c.Request.Context(), &agent); err != nil {
		s.abortErr(c, "Agent", err)
		return
	}
	c.JSON(http.StatusCreated, agent)
}

func (s *Server) listAgents(c *gin.Context) {
	var q listAgentsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortBind(c, err)
		return
	}

	f := state.AgentFilter{OwnerID: owner(c), Offset: q.Skip, Limit: q.Limit}
	if q.AgentType != "" {
		f.Archetype, _ = models.ParseArchetype(q.AgentType)
	}
	agents, err := s.deps.Store.ListAgents(c.Request.Context(), f)
	if err != nil {
		s.abortErr(c, "Agent", err)
		return
	}
	if agents == nil {
		agents = []models.Agent{}
	}
	c.JSON(http.StatusOK, agents)
}

// ownedAgent loads an agent, hiding other owners' agents as not found.
func (s *Server) ownedAgent(c *gin.Context) (*models.Agent, bool) {
	agent, err := s.deps.Store.GetAgent(c.Request.Context(), c.Param("id"))
	if err == nil && agent.OwnerID != owner(c) {
		err = state.ErrNotFound
	}
	if err != nil {
		s.abortErr(c, "Agent", err)
		return nil, false
	}
	return agent, true
}

func (s *Server) getAgent(c *gin.Context) {
	agent, ok := s.ownedAgent(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, agent)
}

func (s *Server) updateAgent(c *gin.Context) {
	var req updateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBind(c, err)
		return
	}

	agent, ok := s.ownedAgent(c)
	if !ok {
		return
	}

	if !applyAgentUpdate(agent, req) {
		abort(c, http.StatusUnprocessableEntity, "no fields to update")
		return
	}
	if err := s.deps.Store.UpdateAgent(c.Request.Context(), agent); err != nil {
		s.abortErr(c, "Agent", err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

// applyAgentUpdate copies the set fields of req onto a and reports
// whether anything was set.
func applyAgentUpdate(a *models.Agent, req updateAgentRequest) bool {
	changed := false
	if req.Name != nil {
		a.Name = *req.Name
		changed = true
	}
	if req.Description != nil {
		a.Description = *req.Description
		changed = true
	}
	if req.SystemPrompt != nil {
		a.SystemPrompt = *req.SystemPrompt
		changed = true
	}
	if req.Capabilities != nil {
		a.Capabilities = req.Capabilities
		changed = true
	}
	if req.Temperature != nil {
		a.Temperature = models.FormatTemperature(*req.Temperature)
		changed = true
	}
	if req.MaxTokens != nil {
		a.MaxTokens = models.FormatMaxTokens(*req.MaxTokens)
		changed = true
	}
	if req.Metadata != nil {
		a.Metadata = req.Metadata
		changed = true
	}
	return changed
}

func (s *Server) deleteAgent(c *gin.Context) {
	agent, ok := s.ownedAgent(c)
	if !ok {
		return
	}
	if err := s.deps.Store.DeleteAgent(c.Request.Context(), agent.ID); err != nil {
		s.abortErr(c, "Agent", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Agent deleted successfully", "agent_id": agent.ID})
}

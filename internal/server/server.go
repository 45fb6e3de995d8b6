// Package server exposes the agentsmith pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ShayCichocki/agentsmith/internal/architect"
	"github.com/ShayCichocki/agentsmith/internal/cache"
	"github.com/ShayCichocki/agentsmith/internal/logging"
	"github.com/ShayCichocki/agentsmith/internal/orchestrator"
	"github.com/ShayCichocki/agentsmith/internal/state"
	"github.com/ShayCichocki/agentsmith/internal/telemetry"
)

// Store is the persistence the HTTP layer reads and writes directly.
type Store interface {
	state.TaskStore
	state.AgentStore
	state.ExecutionStore
	Ping(ctx context.Context) error
}

// Config controls the HTTP server.
type Config struct {
	Addr        string
	CORSOrigins []string
	Version     string
	Debug       bool
}

// Deps are the components the handlers call into.
type Deps struct {
	Store      Store
	Tasks      *orchestrator.TaskOrchestrator
	Executions *orchestrator.ExecutionOrchestrator
	Synth      *architect.Synthesizer
	Mirror     *cache.Mirror
	Metrics    *telemetry.Metrics
	Log        *logging.Logger
}

// Server is the agentsmith HTTP API.
type Server struct {
	cfg        Config
	deps       Deps
	log        *logging.Logger
	engine     *gin.Engine
	httpServer *http.Server
	startTime  time.Time
}

// New builds the server and its routes.
func New(cfg Config, deps Deps) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	registerValidators()

	log := deps.Log
	if log == nil {
		log = logging.Nop()
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(log.Component("http")))
	engine.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	s := &Server{
		cfg:       cfg,
		deps:      deps,
		log:       log.Component("server"),
		engine:    engine,
		startTime: time.Now(),
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.setupRoutes()
	return s
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", ownerHeader}
	c.AllowCredentials = true
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
	} else {
		c.AllowOrigins = origins
	}
	return c
}

func (s *Server) setupRoutes() {
	s.engine.GET("/", s.handleRoot)
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))

	api := s.engine.Group("/api")
	api.Use(ownerMiddleware())

	tasks := api.Group("/tasks")
	{
		tasks.POST("", s.createTask)
		tasks.GET("", s.listTasks)
		tasks.GET("/:id", s.getTask)
		tasks.GET("/:id/status", s.taskStatus)
		tasks.GET("/:id/result", s.taskResult)
		tasks.DELETE("/:id", s.deleteTask)
	}

	agents := api.Group("/agents")
	{
		agents.POST("/create", s.createAgent)
		agents.POST("/create-from-template", s.createAgentFromTemplate)
		agents.GET("", s.listAgents)
		agents.GET("/:id", s.getAgent)
		agents.PUT("/:id", s.updateAgent)
		agents.DELETE("/:id", s.deleteAgent)
	}

	executions := api.Group("/executions")
	{
		executions.POST("", s.createExecution)
		executions.GET("", s.listExecutions)
		executions.GET("/:id", s.getExecution)
		executions.GET("/:id/status", s.executionStatus)
		executions.DELETE("/:id", s.deleteExecution)
	}

	api.GET("/templates", s.listTemplates)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.log.Info("listening", "addr", s.cfg.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for active ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

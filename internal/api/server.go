package api

import (
	"net/http"

	"goab/domain/metric"
	"goab/internal/logging"
	"goab/internal/pipeline"
	"goab/ports"

	"github.com/gin-gonic/gin"
)

// Server exposes metric evaluation over HTTP
type Server struct {
	router    *gin.Engine
	evaluator *pipeline.Evaluator
	defaults  metric.Defaults
	repo      ports.ResultRepository // nil when persistence is disabled
	logger    *logging.Logger
}

// NewServer creates the HTTP server. repo may be nil.
func NewServer(evaluator *pipeline.Evaluator, defaults metric.Defaults, repo ports.ResultRepository, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		router:    gin.New(),
		evaluator: evaluator,
		defaults:  defaults,
		repo:      repo,
		logger:    logger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(func(c *gin.Context) {
		c.Next()
		s.logger.Debug("%s %s -> %d", c.Request.Method, c.Request.URL.Path, c.Writer.Status())
	})
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	v1.GET("/estimators", s.handleEstimators)
	v1.POST("/evaluate", s.handleEvaluate)
	if s.repo != nil {
		v1.GET("/runs", s.handleListRuns)
		v1.GET("/runs/:runId/results", s.handleRunResults)
	}
}

// Handler returns the router for use with an http.Server or httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until the listener fails
func (s *Server) Start(addr string) error {
	s.logger.Info("listening on %s", addr)
	return s.router.Run(addr)
}

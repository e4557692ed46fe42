// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the query pipeline over HTTP for the frontend.
// Every pipeline outcome, including failures, is served with HTTP 200 and
// the AnswerResult envelope; only malformed requests get a 4xx.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mrmallick07/project-samarth-backend/internal/datagov"
	"github.com/mrmallick07/project-samarth-backend/pkg/types"
)

// Answerer runs one query through the pipeline. *pipeline.Coordinator
// satisfies it.
type Answerer interface {
	Answer(ctx context.Context, query string) types.AnswerResult
}

// Server is the HTTP boundary in front of one coordinator.
type Server struct {
	coordinator Answerer
	registry    *datagov.Registry
	cfg         types.ServerConfig
	version     string
	apiKeySet   bool
}

// New builds the HTTP boundary. A nil registry falls back to the builtin
// dataset catalog.
func New(coordinator Answerer, registry *datagov.Registry, cfg types.ServerConfig, version string, apiKeySet bool) *Server {
	if registry == nil {
		registry = datagov.BuiltinRegistry()
	}
	return &Server{
		coordinator: coordinator,
		registry:    registry,
		cfg:         cfg,
		version:     version,
		apiKeySet:   apiKeySet,
	}
}

// Router assembles the gin engine with CORS and all routes.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(s.cfg.AllowedOrigins) == 0 || s.cfg.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = s.cfg.AllowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type"}
	router.Use(cors.New(corsConfig))

	router.GET("/", s.handleLanding)
	router.GET("/api/health", s.handleHealth)
	router.GET("/api/datasets", s.handleDatasets)
	router.POST("/api/query", s.handleQuery)

	return router
}

// Run serves the router on the configured address, blocking until the
// listener fails.
func (s *Server) Run() error {
	host := s.cfg.Host
	if host == "" {
		host = "0.0.0.0"
	}
	port := s.cfg.Port
	if port == 0 {
		port = 5000
	}
	return s.Router().Run(fmt.Sprintf("%s:%d", host, port))
}

type queryRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.AnswerResult{
			Success:   false,
			Answer:    "The request body must be JSON with a \"query\" string field.",
			Sources:   []types.Citation{},
			Timestamp: time.Now().UTC(),
			Error:     "bad_request",
		})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, types.AnswerResult{
			Success:   false,
			Answer:    "The \"query\" field must not be empty.",
			Sources:   []types.Citation{},
			Timestamp: time.Now().UTC(),
			Error:     "bad_request",
		})
		return
	}

	c.JSON(http.StatusOK, s.coordinator.Answer(c.Request.Context(), req.Query))
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":             "healthy",
		"service":            "project-samarth-backend",
		"version":            s.version,
		"api_key_configured": s.apiKeySet,
		"timestamp":          time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleDatasets(c *gin.Context) {
	datasets := s.registry.All()
	c.JSON(http.StatusOK, gin.H{
		"datasets": datasets,
		"count":    len(datasets),
	})
}

func (s *Server) handleLanding(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "Project Samarth Q&A API",
		"endpoints": gin.H{
			"query":    "POST /api/query",
			"health":   "GET /api/health",
			"datasets": "GET /api/datasets",
		},
	})
}

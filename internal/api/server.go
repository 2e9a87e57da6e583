// Package api exposes the monitoring engine over a REST API.
package api

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/sovtrack/sovtrack/internal/db"
	"github.com/sovtrack/sovtrack/internal/llm"
	"github.com/sovtrack/sovtrack/internal/orchestrator"
)

// Server is the REST API server
type Server struct {
	store     db.Store
	orch      *orchestrator.Orchestrator
	providers *llm.Registry
	router    *gin.Engine
}

// NewServer creates a new API server. rps of zero disables rate limiting.
func NewServer(store db.Store, orch *orchestrator.Orchestrator, providers *llm.Registry, rps float64, burst int) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if rps > 0 {
		router.Use(rateLimit(rps, burst))
	}

	s := &Server{
		store:     store,
		orch:      orch,
		providers: providers,
		router:    router,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/health", s.getHealth)

		v1.GET("/projects", s.listProjects)
		v1.GET("/projects/:id", s.getProject)
		v1.POST("/projects", s.createProject)
		v1.POST("/projects/:id/analyze", s.analyzeProject)
		v1.GET("/projects/:id/results", s.listResults)
		v1.GET("/projects/:id/snapshots", s.listSnapshots)

		v1.GET("/models", s.listModels)
		v1.PUT("/models/current", s.setCurrentModel)

		v1.GET("/quota/:user_id", s.getQuota)
	}
}

// Run starts the HTTP server and blocks
func (s *Server) Run(host string, port int) error {
	return s.router.Run(fmt.Sprintf("%s:%d", host, port))
}

// Router exposes the gin engine for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// rateLimit returns per-client-IP rate limiting middleware using token
// buckets.
func rateLimit(rps float64, burst int) gin.HandlerFunc {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		limiter, exists := limiters[ip]
		if !exists {
			limiter = rate.NewLimiter(rate.Limit(rps), burst)
			limiters[ip] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}

// getHealth handles GET /api/v1/health
func (s *Server) getHealth(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		s.errorResponse(c, http.StatusServiceUnavailable, "database unavailable: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"providers": s.providers.Names(),
	})
}

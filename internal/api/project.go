package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sovtrack/sovtrack/internal/models"
	"github.com/sovtrack/sovtrack/internal/orchestrator"
)

// Project request/response structures
type CreateProjectRequest struct {
	OwnerID       int64    `json:"owner_id" binding:"required"`
	BrandName     string   `json:"brand_name" binding:"required"`
	BrandDomain   string   `json:"brand_domain,omitempty"`
	BrandKeywords []string `json:"brand_keywords,omitempty"`
	Industry      string   `json:"industry,omitempty"`
	Language      string   `json:"language,omitempty"`
	CountryCode   string   `json:"country_code,omitempty"`
	Competitors   []string `json:"competitors,omitempty"`
	EnabledLLMs   []string `json:"enabled_llms" binding:"required"`
	QueriesPerLLM int      `json:"queries_per_llm,omitempty"`
}

type AnalyzeRequest struct {
	Force      bool `json:"force,omitempty"`
	MaxWorkers int  `json:"max_workers,omitempty"`
}

// Project endpoints

// listProjects handles GET /api/v1/projects
func (s *Server) listProjects(c *gin.Context) {
	projects, err := s.store.ListProjects(c.Request.Context())
	if err != nil {
		s.errorResponse(c, http.StatusInternalServerError, "Failed to list projects: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects, "count": len(projects)})
}

// getProject handles GET /api/v1/projects/:id
func (s *Server) getProject(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		s.errorResponse(c, http.StatusBadRequest, "Invalid project id")
		return
	}

	project, err := s.store.GetProject(c.Request.Context(), id)
	if err != nil {
		s.errorResponse(c, http.StatusNotFound, "Project not found")
		return
	}
	c.JSON(http.StatusOK, project)
}

// createProject handles POST /api/v1/projects
func (s *Server) createProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	for _, tag := range req.EnabledLLMs {
		if !models.IsKnownProvider(tag) {
			s.errorResponse(c, http.StatusBadRequest, "Unknown LLM provider: "+tag)
			return
		}
	}

	language := req.Language
	if language == "" {
		language = "en"
	}
	queriesPerLLM := req.QueriesPerLLM
	if queriesPerLLM < 1 {
		queriesPerLLM = 5
	}

	project := &models.Project{
		OwnerID:       req.OwnerID,
		BrandName:     req.BrandName,
		BrandDomain:   req.BrandDomain,
		BrandKeywords: req.BrandKeywords,
		Industry:      req.Industry,
		Language:      language,
		CountryCode:   req.CountryCode,
		Competitors:   req.Competitors,
		EnabledLLMs:   req.EnabledLLMs,
		QueriesPerLLM: queriesPerLLM,
		IsActive:      true,
	}

	if err := s.store.CreateProject(c.Request.Context(), project); err != nil {
		s.errorResponse(c, http.StatusInternalServerError, "Failed to create project: "+err.Error())
		return
	}
	c.JSON(http.StatusCreated, project)
}

// analyzeProject handles POST /api/v1/projects/:id/analyze
func (s *Server) analyzeProject(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		s.errorResponse(c, http.StatusBadRequest, "Invalid project id")
		return
	}

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		s.errorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	summary, err := s.orch.AnalyzeProject(c.Request.Context(), id, orchestrator.Options{
		MaxWorkers:     req.MaxWorkers,
		ForceOverwrite: req.Force,
	})
	if err != nil {
		s.errorResponse(c, http.StatusInternalServerError, "Analysis failed: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, summary)
}

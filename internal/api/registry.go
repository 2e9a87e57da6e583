package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sovtrack/sovtrack/internal/models"
)

type SetCurrentModelRequest struct {
	Provider string `json:"provider" binding:"required"`
	ModelID  string `json:"model_id" binding:"required"`
}

// Model registry endpoints

// listModels handles GET /api/v1/models
func (s *Server) listModels(c *gin.Context) {
	provider := c.Query("provider")
	if provider != "" && !models.IsKnownProvider(provider) {
		s.errorResponse(c, http.StatusBadRequest, "Unknown LLM provider: "+provider)
		return
	}

	entries, err := s.store.ListRegistryEntries(c.Request.Context(), provider)
	if err != nil {
		s.errorResponse(c, http.StatusInternalServerError, "Failed to list models: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": entries, "count": len(entries)})
}

// setCurrentModel handles PUT /api/v1/models/current
func (s *Server) setCurrentModel(c *gin.Context) {
	var req SetCurrentModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if !models.IsKnownProvider(req.Provider) {
		s.errorResponse(c, http.StatusBadRequest, "Unknown LLM provider: "+req.Provider)
		return
	}

	if err := s.store.SetCurrentModel(c.Request.Context(), req.Provider, req.ModelID); err != nil {
		s.errorResponse(c, http.StatusNotFound, "Failed to set current model: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"provider": req.Provider, "model_id": req.ModelID, "current": true})
}

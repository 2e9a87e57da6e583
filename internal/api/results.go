package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sovtrack/sovtrack/internal/models"
)

// Result and snapshot endpoints

// listResults handles GET /api/v1/projects/:id/results
func (s *Server) listResults(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		s.errorResponse(c, http.StatusBadRequest, "Invalid project id")
		return
	}

	date := c.DefaultQuery("date", time.Now().Format("2006-01-02"))
	if _, err := time.Parse("2006-01-02", date); err != nil {
		s.errorResponse(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}

	provider := c.Query("provider")
	providers := []string{provider}
	if provider == "" {
		providers = models.KnownProviders
	} else if !models.IsKnownProvider(provider) {
		s.errorResponse(c, http.StatusBadRequest, "Unknown LLM provider: "+provider)
		return
	}

	var results []*models.Result
	for _, p := range providers {
		rows, err := s.store.ListResults(c.Request.Context(), id, date, p)
		if err != nil {
			s.errorResponse(c, http.StatusInternalServerError, "Failed to list results: "+err.Error())
			return
		}
		results = append(results, rows...)
	}

	c.JSON(http.StatusOK, gin.H{
		"project_id": id,
		"date":       date,
		"results":    results,
		"count":      len(results),
	})
}

// listSnapshots handles GET /api/v1/projects/:id/snapshots
func (s *Server) listSnapshots(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		s.errorResponse(c, http.StatusBadRequest, "Invalid project id")
		return
	}

	from := c.Query("from")
	to := c.Query("to")
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d); err != nil {
			s.errorResponse(c, http.StatusBadRequest, "Invalid date range, expected YYYY-MM-DD")
			return
		}
	}

	snapshots, err := s.store.ListSnapshots(c.Request.Context(), id, from, to)
	if err != nil {
		s.errorResponse(c, http.StatusInternalServerError, "Failed to list snapshots: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"project_id": id,
		"snapshots":  snapshots,
		"count":      len(snapshots),
	})
}

// getQuota handles GET /api/v1/quota/:user_id
func (s *Server) getQuota(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		s.errorResponse(c, http.StatusBadRequest, "Invalid user id")
		return
	}

	ledger, err := s.store.GetQuotaLedger(c.Request.Context(), userID)
	if err != nil {
		s.errorResponse(c, http.StatusInternalServerError, "Failed to read quota: "+err.Error())
		return
	}
	if ledger == nil {
		s.errorResponse(c, http.StatusNotFound, "No quota ledger for user")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":    ledger.UserID,
		"limit":      ledger.Limit,
		"used":       ledger.Used,
		"remaining":  ledger.Remaining(),
		"reset_date": ledger.ResetDate,
	})
}

package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/saasbench/saasbench/internal/store"
)

// ListRuns returns the simulation run audit trail, newest first.
func (s *Server) ListRuns(c *gin.Context) {
	q := s.db.WithContext(c.Request.Context()).
		Model(&store.SimulationRun{}).
		Order("started_at desc")

	if status := strings.TrimSpace(c.Query("status")); status != "" {
		switch store.RunStatus(status) {
		case store.RunStatusCompleted, store.RunStatusFailed:
			q = q.Where("status = ?", status)
		default:
			AbortWithError(c, newValidationError("status", "invalid_status", "unknown run status"))
			return
		}
	}

	var runs []store.SimulationRun
	if err := q.Find(&runs).Error; err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": runs})
}

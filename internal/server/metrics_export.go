package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	metricsdomain "github.com/saasbench/saasbench/internal/metrics/domain"
)

var knownScopeTypes = map[metricsdomain.ScopeType]bool{
	metricsdomain.ScopeGlobal:   true,
	metricsdomain.ScopeVendor:   true,
	metricsdomain.ScopeIndustry: true,
	metricsdomain.ScopeFeature:  true,
}

// ListMetrics returns persisted metric rows, optionally filtered by scope
// and period window.
func (s *Server) ListMetrics(c *gin.Context) {
	q := s.db.WithContext(c.Request.Context()).
		Model(&metricsdomain.MetricRow{}).
		Order("period_end, scope_type, scope")

	if scopeType := strings.TrimSpace(c.Query("scope_type")); scopeType != "" {
		if !knownScopeTypes[metricsdomain.ScopeType(scopeType)] {
			AbortWithError(c, newValidationError("scope_type", "invalid_scope_type", "unknown scope type"))
			return
		}
		q = q.Where("scope_type = ?", scopeType)
	}
	if scope := strings.TrimSpace(c.Query("scope")); scope != "" {
		q = q.Where("scope = ?", scope)
	}

	from, err := parseOptionalTime(c.Query("from"))
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_time", "invalid from timestamp"))
		return
	}
	if from != nil {
		q = q.Where("period_end >= ?", *from)
	}

	to, err := parseOptionalTime(c.Query("to"))
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_time", "invalid to timestamp"))
		return
	}
	if to != nil {
		q = q.Where("period_end <= ?", *to)
	}

	var rows []metricsdomain.MetricRow
	if err := q.Find(&rows).Error; err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rows})
}

type metricsSummary struct {
	PeriodEnd string                    `json:"period_end"`
	Global    *metricsdomain.MetricRow  `json:"global"`
	Vendors   []metricsdomain.MetricRow `json:"vendors"`
}

// MetricsSummary reports the latest computed period: the global row plus
// vendor rows ranked by ARR.
func (s *Server) MetricsSummary(c *gin.Context) {
	ctx := c.Request.Context()

	var global metricsdomain.MetricRow
	err := s.db.WithContext(ctx).
		Where("scope_type = ?", metricsdomain.ScopeGlobal).
		Order("period_end desc").
		First(&global).Error
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var vendors []metricsdomain.MetricRow
	err = s.db.WithContext(ctx).
		Where("scope_type = ? AND period_end = ?", metricsdomain.ScopeVendor, global.PeriodEnd).
		Order("arr desc, scope").
		Find(&vendors).Error
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": metricsSummary{
		PeriodEnd: global.PeriodEnd.UTC().Format("2006-01-02"),
		Global:    &global,
		Vendors:   vendors,
	}})
}

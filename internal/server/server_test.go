package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/saasbench/saasbench/internal/config"
	metricsdomain "github.com/saasbench/saasbench/internal/metrics/domain"
	obsmetrics "github.com/saasbench/saasbench/internal/observability/metrics"
	"github.com/saasbench/saasbench/internal/store"
)

func setupServer(t *testing.T, name string) (*gorm.DB, *Server) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&metricsdomain.MetricRow{}, &store.SimulationRun{}))

	engine := registerGin(obsmetrics.New())
	srv := NewServer(ServerParams{
		Gin: engine,
		Cfg: config.Config{},
		DB:  db,
		Log: zap.NewNop(),
	})
	return db, srv
}

func seedMetricRows(t *testing.T, db *gorm.DB) {
	t.Helper()
	feb1 := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	mar1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := []metricsdomain.MetricRow{
		{ScopeType: metricsdomain.ScopeGlobal, Scope: "global", PeriodStart: feb1.AddDate(0, -1, 0), PeriodEnd: feb1,
			ARPU: 250, ARR: 6000, ActiveCount: 2, FeaturePenetration: datatypes.JSONMap{}, SchemaVersion: 1},
		{ScopeType: metricsdomain.ScopeGlobal, Scope: "global", PeriodStart: feb1, PeriodEnd: mar1,
			ARPU: 260, ARR: 6240, ActiveCount: 2, FeaturePenetration: datatypes.JSONMap{}, SchemaVersion: 1},
		{ScopeType: metricsdomain.ScopeVendor, Scope: "VendorX", PeriodStart: feb1, PeriodEnd: mar1,
			ARPU: 260, ARR: 6240, ActiveCount: 2, FeaturePenetration: datatypes.JSONMap{}, SchemaVersion: 1},
	}
	assert.NoError(t, db.Create(&rows).Error)
}

func doGet(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	_, srv := setupServer(t, "server_health")
	rec := doGet(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListMetricsFilters(t *testing.T) {
	db, srv := setupServer(t, "server_metrics")
	seedMetricRows(t, db)

	rec := doGet(t, srv, "/v1/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []metricsdomain.MetricRow `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 3)

	rec = doGet(t, srv, "/v1/metrics?scope_type=global")
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)

	rec = doGet(t, srv, "/v1/metrics?scope_type=vendor&scope=VendorX")
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 1)

	rec = doGet(t, srv, "/v1/metrics?from=2024-03-01")
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
}

func TestListMetricsRejectsUnknownScopeType(t *testing.T) {
	_, srv := setupServer(t, "server_badscope")

	rec := doGet(t, srv, "/v1/metrics?scope_type=galaxy")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doGet(t, srv, "/v1/metrics?from=yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsSummaryPicksLatestPeriod(t *testing.T) {
	db, srv := setupServer(t, "server_summary")
	seedMetricRows(t, db)

	rec := doGet(t, srv, "/v1/metrics/summary")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			PeriodEnd string                    `json:"period_end"`
			Global    metricsdomain.MetricRow   `json:"global"`
			Vendors   []metricsdomain.MetricRow `json:"vendors"`
		} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2024-03-01", resp.Data.PeriodEnd)
	assert.InDelta(t, 260.0, resp.Data.Global.ARPU, 1e-9)
	assert.Len(t, resp.Data.Vendors, 1)
}

func TestMetricsSummaryEmptyStore(t *testing.T) {
	_, srv := setupServer(t, "server_summary_empty")
	rec := doGet(t, srv, "/v1/metrics/summary")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRuns(t *testing.T) {
	db, srv := setupServer(t, "server_runs")

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.NoError(t, db.Create(&store.SimulationRun{
		ID: 1, Seed: 42, ConfigDigest: "digest", Status: store.RunStatusCompleted,
		Companies: 10, Subscriptions: 10, Events: 25, StartedAt: now,
	}).Error)

	rec := doGet(t, srv, "/v1/runs")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []store.SimulationRun `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 1)

	rec = doGet(t, srv, "/v1/runs?status=failed")
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Data)

	rec = doGet(t, srv, "/v1/runs?status=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

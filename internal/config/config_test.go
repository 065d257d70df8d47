package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/saasbench/saasbench/internal/simerr"
)

func TestDefaultSimulationIsValid(t *testing.T) {
	assert.NoError(t, DefaultSimulation().Validate())
}

func TestValidateRejectsOversubscribedRates(t *testing.T) {
	cfg := DefaultSimulation()
	cfg.Segments.Default = SegmentRates{Churn: 0.6, Upgrade: 0.3, Downgrade: 0.2}

	err := cfg.Validate()
	assert.Error(t, err)

	var cfgErr *simerr.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "simulation.segments.default", cfgErr.Key)
}

func TestValidateRejectsProbabilityOutOfRange(t *testing.T) {
	cfg := DefaultSimulation()
	cfg.Segments.Industries = map[string]SegmentRates{
		"Retail": {Churn: 1.2},
	}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsZeroWeights(t *testing.T) {
	cfg := DefaultSimulation()
	cfg.VendorWeights = map[string]float64{"Notion": 0}
	assert.Error(t, cfg.Validate())

	cfg = DefaultSimulation()
	cfg.IndustryWeights = nil
	assert.Error(t, cfg.Validate())

	cfg = DefaultSimulation()
	cfg.TierLevelWeights = []float64{0, 0, 0}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadWindowAndStep(t *testing.T) {
	cfg := DefaultSimulation()
	cfg.End = cfg.Start
	assert.Error(t, cfg.Validate())

	cfg = DefaultSimulation()
	cfg.Step = "quarter"
	assert.Error(t, cfg.Validate())
}

func TestRatesForFallsBackToDefault(t *testing.T) {
	cfg := DefaultSimulation()

	rates := cfg.RatesFor("Finance", false)
	assert.Equal(t, cfg.Segments.Default, rates)

	retail := cfg.RatesFor("Retail", false)
	assert.Equal(t, 0.35, retail.Churn)
}

func TestRatesForAppliesSSORetentionBonus(t *testing.T) {
	cfg := DefaultSimulation()

	base := cfg.RatesFor("Technology", false)
	sso := cfg.RatesFor("Technology", true)

	assert.InDelta(t, base.Churn*cfg.SSORetentionBonus, sso.Churn, 1e-12)
	assert.Equal(t, base.Upgrade, sso.Upgrade)
	assert.Equal(t, base.Downgrade, sso.Downgrade)
}

func TestPeriodsCoverTheWindow(t *testing.T) {
	cfg := DefaultSimulation()

	periods := cfg.Periods()
	assert.Len(t, periods, 12)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), periods[0])
	assert.Equal(t, cfg.End, periods[len(periods)-1])
}

func TestPeriodsWeekly(t *testing.T) {
	cfg := DefaultSimulation()
	cfg.Step = StepWeek
	cfg.End = cfg.Start.AddDate(0, 0, 21)

	periods := cfg.Periods()
	assert.Len(t, periods, 3)
	assert.Equal(t, cfg.Start.AddDate(0, 0, 7), periods[0])
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	assert.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DB.Type)
	assert.Equal(t, int64(42), cfg.Simulation.Seed)
	assert.Equal(t, 10000, cfg.Simulation.Population)
}

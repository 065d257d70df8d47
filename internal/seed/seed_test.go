package seed

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/saasbench/saasbench/internal/config"
	pricingdomain "github.com/saasbench/saasbench/internal/pricing/domain"
	pricingservice "github.com/saasbench/saasbench/internal/pricing/service"
)

func TestDemoRulesIngestCleanly(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:seed_demo?mode=memory&cache=shared"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&pricingdomain.PricingRule{}))

	svc := pricingservice.NewService(pricingservice.ServiceParam{DB: db, Log: zap.NewNop()})
	assert.NoError(t, svc.Ingest(context.Background(), DemoRules()))

	rs, err := svc.RuleSet(context.Background())
	assert.NoError(t, err)
	assert.Len(t, rs.All(), 36) // 9 vendors x 4 tiers
}

func TestDemoRulesCoverConfiguredVendors(t *testing.T) {
	rs := pricingdomain.NewRuleSet(DemoRules())

	for vendor, weight := range config.DefaultSimulation().VendorWeights {
		if weight <= 0 {
			continue
		}
		assert.NotEmptyf(t, rs.Vendor(vendor), "vendor %s has no demo rules", vendor)
	}
}

func TestDemoRulesGateSSOOnUpperTiers(t *testing.T) {
	for _, rule := range DemoRules() {
		assert.Equal(t, rule.TierLevel >= 3, rule.HasSSO, "vendor %s tier %s", rule.Vendor, rule.Tier)
		assert.Greater(t, rule.PricePerSeatCents, int64(0))
	}
}

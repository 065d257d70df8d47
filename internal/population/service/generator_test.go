package service

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/saasbench/saasbench/internal/config"
	lifecycledomain "github.com/saasbench/saasbench/internal/lifecycle/domain"
	"github.com/saasbench/saasbench/internal/population/domain"
	pricingdomain "github.com/saasbench/saasbench/internal/pricing/domain"
	"github.com/saasbench/saasbench/internal/seed"
	"github.com/saasbench/saasbench/internal/simerr"
)

func demoRuleSet() *pricingdomain.RuleSet {
	return pricingdomain.NewRuleSet(seed.DemoRules())
}

func TestGenerateInvariants(t *testing.T) {
	cfg := config.DefaultSimulation()
	cfg.Population = 500
	svc := NewService(ServiceParam{Log: zap.NewNop()})
	rules := demoRuleSet()

	res, err := svc.Generate(rules, cfg, rand.New(rand.NewSource(cfg.Seed)))
	assert.NoError(t, err)

	assert.Len(t, res.Companies, cfg.Population)
	assert.Len(t, res.Subscriptions, cfg.Population)
	assert.Len(t, res.Events, cfg.Population)
	assert.Equal(t, cfg.Population+1, res.NextEventIndex)

	assert.Equal(t, "cmp_000001", res.Companies[0].ID)
	assert.Equal(t, "sub_000500", res.Subscriptions[499].ID)

	for i, sub := range res.Subscriptions {
		company := res.Companies[i]
		assert.Equal(t, company.ID, sub.CompanyID)
		assert.Equal(t, domain.SubscriptionStatusActive, sub.Status)
		assert.Nil(t, sub.EndedAt)
		assert.Equal(t, cfg.Start, sub.StartedAt)

		rule := rules.Lookup(sub.Vendor, sub.Tier)
		assert.NotNil(t, rule, "subscription %s references unknown rule", sub.ID)
		assert.GreaterOrEqual(t, sub.SeatCount, rule.SeatMin)
		assert.LessOrEqual(t, sub.SeatCount, rule.SeatMax)
		assert.LessOrEqual(t, sub.SeatCount, company.SizeBand.SeatCap())

		ev := res.Events[i]
		assert.Equal(t, lifecycledomain.EventSignup, ev.Type)
		assert.Equal(t, sub.ID, ev.SubscriptionID)
		assert.Equal(t, cfg.Start, ev.OccurredAt)
		assert.Equal(t, sub.Tier, ev.Payload[lifecycledomain.PayloadTier])
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	cfg := config.DefaultSimulation()
	cfg.Population = 300
	svc := NewService(ServiceParam{Log: zap.NewNop()})
	rules := demoRuleSet()

	a, err := svc.Generate(rules, cfg, rand.New(rand.NewSource(cfg.Seed)))
	assert.NoError(t, err)
	b, err := svc.Generate(rules, cfg, rand.New(rand.NewSource(cfg.Seed)))
	assert.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestGenerateSeedChangesOutcome(t *testing.T) {
	cfg := config.DefaultSimulation()
	cfg.Population = 300
	svc := NewService(ServiceParam{Log: zap.NewNop()})
	rules := demoRuleSet()

	a, err := svc.Generate(rules, cfg, rand.New(rand.NewSource(1)))
	assert.NoError(t, err)
	b, err := svc.Generate(rules, cfg, rand.New(rand.NewSource(2)))
	assert.NoError(t, err)

	assert.NotEqual(t, a.Subscriptions, b.Subscriptions)
}

func TestGenerateRejectsVendorWithoutRules(t *testing.T) {
	cfg := config.DefaultSimulation()
	cfg.Population = 10
	cfg.VendorWeights = map[string]float64{"GhostVendor": 1}
	svc := NewService(ServiceParam{Log: zap.NewNop()})

	_, err := svc.Generate(demoRuleSet(), cfg, rand.New(rand.NewSource(cfg.Seed)))
	assert.Error(t, err)

	var cfgErr *simerr.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "simulation.vendor_weights", cfgErr.Key)
}

func TestGenerateRespectsVendorWeights(t *testing.T) {
	cfg := config.DefaultSimulation()
	cfg.Population = 2000
	cfg.VendorWeights = map[string]float64{"Notion": 0.8, "Coda": 0.2}
	svc := NewService(ServiceParam{Log: zap.NewNop()})

	res, err := svc.Generate(demoRuleSet(), cfg, rand.New(rand.NewSource(cfg.Seed)))
	assert.NoError(t, err)

	notion := 0
	for _, sub := range res.Subscriptions {
		if sub.Vendor == "Notion" {
			notion++
		}
	}
	share := float64(notion) / float64(cfg.Population)
	assert.InDelta(t, 0.8, share, 0.05)
}

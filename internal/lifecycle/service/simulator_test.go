package service

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/saasbench/saasbench/internal/config"
	"github.com/saasbench/saasbench/internal/lifecycle/domain"
	populationdomain "github.com/saasbench/saasbench/internal/population/domain"
	populationservice "github.com/saasbench/saasbench/internal/population/service"
	pricingdomain "github.com/saasbench/saasbench/internal/pricing/domain"
	"github.com/saasbench/saasbench/internal/seed"
)

func generate(t *testing.T, cfg config.SimulationConfig, rules *pricingdomain.RuleSet) *populationdomain.Result {
	t.Helper()
	gen := populationservice.NewService(populationservice.ServiceParam{Log: zap.NewNop()})
	res, err := gen.Generate(rules, cfg, rand.New(rand.NewSource(cfg.Seed)))
	assert.NoError(t, err)
	return res
}

func TestRunIsDeterministic(t *testing.T) {
	cfg := config.DefaultSimulation()
	cfg.Population = 400
	rules := pricingdomain.NewRuleSet(seed.DemoRules())
	svc := NewService(ServiceParam{Log: zap.NewNop()})

	resA := generate(t, cfg, rules)
	resB := generate(t, cfg, rules)

	eventsA, err := svc.Run(resA.Subscriptions, resA.Companies, rules, cfg, resA.NextEventIndex)
	assert.NoError(t, err)
	eventsB, err := svc.Run(resB.Subscriptions, resB.Companies, rules, cfg, resB.NextEventIndex)
	assert.NoError(t, err)

	assert.Equal(t, eventsA, eventsB)
	assert.Equal(t, resA.Subscriptions, resB.Subscriptions)
}

func TestRunEventInvariants(t *testing.T) {
	cfg := config.DefaultSimulation()
	cfg.Population = 600
	rules := pricingdomain.NewRuleSet(seed.DemoRules())
	svc := NewService(ServiceParam{Log: zap.NewNop()})

	res := generate(t, cfg, rules)
	events, err := svc.Run(res.Subscriptions, res.Companies, rules, cfg, res.NextEventIndex)
	assert.NoError(t, err)

	// Event ids continue the signup sequence without gaps.
	for i, ev := range events {
		assert.Equal(t, domain.EventID(res.NextEventIndex+i), ev.ID)
	}

	subByID := make(map[string]*populationdomain.Subscription)
	for i := range res.Subscriptions {
		subByID[res.Subscriptions[i].ID] = &res.Subscriptions[i]
	}

	churned := make(map[string]bool)
	for _, ev := range events {
		_, ok := subByID[ev.SubscriptionID]
		assert.True(t, ok, "event %s references unknown subscription", ev.ID)
		assert.Falsef(t, churned[ev.SubscriptionID], "event %s after churn for %s", ev.ID, ev.SubscriptionID)

		switch ev.Type {
		case domain.EventChurn:
			churned[ev.SubscriptionID] = true
		case domain.EventUpgrade, domain.EventDowngrade:
			assert.NotEqual(t, ev.Payload[domain.PayloadOldTier], ev.Payload[domain.PayloadNewTier])
		default:
			t.Fatalf("unexpected event type %q", ev.Type)
		}
	}

	for _, sub := range res.Subscriptions {
		if churned[sub.ID] {
			assert.Equal(t, populationdomain.SubscriptionStatusChurned, sub.Status)
			assert.NotNil(t, sub.EndedAt)
		} else {
			assert.True(t, sub.Active())
			assert.Nil(t, sub.EndedAt)

			// Seats stay within the final tier range after any re-clamp.
			rule := rules.Lookup(sub.Vendor, sub.Tier)
			assert.NotNil(t, rule)
			assert.GreaterOrEqual(t, sub.SeatCount, rule.SeatMin)
			assert.LessOrEqual(t, sub.SeatCount, rule.SeatMax)
		}
	}
}

func singleTierConfig(population int) (config.SimulationConfig, *pricingdomain.RuleSet) {
	cfg := config.SimulationConfig{
		Population:       population,
		Seed:             42,
		Start:            time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:              time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Step:             config.StepMonth,
		VendorWeights:    map[string]float64{"PlainCo": 0.5, "GatedCo": 0.5},
		TierLevelWeights: []float64{1},
		IndustryWeights:  map[string]float64{"Technology": 1},
		Segments: config.SegmentsConfig{
			Default: config.SegmentRates{Churn: 0.2},
		},
		SSORetentionBonus: 0.5,
	}
	rules := pricingdomain.NewRuleSet([]pricingdomain.PricingRule{
		{Vendor: "PlainCo", Tier: "Only", TierLevel: 1, PricePerSeatCents: 1000, SeatMin: 1, SeatMax: 100},
		{Vendor: "GatedCo", Tier: "Only", TierLevel: 1, PricePerSeatCents: 2000, SeatMin: 1, SeatMax: 100, HasSSO: true},
	})
	return cfg, rules
}

func TestRunAppliesSSORetentionBonus(t *testing.T) {
	cfg, rules := singleTierConfig(10000)
	svc := NewService(ServiceParam{Log: zap.NewNop()})

	res := generate(t, cfg, rules)
	_, err := svc.Run(res.Subscriptions, res.Companies, rules, cfg, res.NextEventIndex)
	assert.NoError(t, err)

	churnShare := func(vendor string) float64 {
		total, gone := 0, 0
		for _, sub := range res.Subscriptions {
			if sub.Vendor != vendor {
				continue
			}
			total++
			if !sub.Active() {
				gone++
			}
		}
		return float64(gone) / float64(total)
	}

	assert.InDelta(t, 0.20, churnShare("PlainCo"), 0.02)
	assert.InDelta(t, 0.10, churnShare("GatedCo"), 0.02)
}

func TestRunConvergesToConfiguredChurn(t *testing.T) {
	cfg, rules := singleTierConfig(10000)
	cfg.VendorWeights = map[string]float64{"PlainCo": 1}
	cfg.IndustryWeights = map[string]float64{"Retail": 1}
	cfg.Segments.Industries = map[string]config.SegmentRates{
		"Retail": {Churn: 0.35},
	}
	svc := NewService(ServiceParam{Log: zap.NewNop()})

	res := generate(t, cfg, rules)
	_, err := svc.Run(res.Subscriptions, res.Companies, rules, cfg, res.NextEventIndex)
	assert.NoError(t, err)

	gone := 0
	for _, sub := range res.Subscriptions {
		if !sub.Active() {
			gone++
		}
	}
	assert.InDelta(t, 0.35, float64(gone)/float64(cfg.Population), 0.02)
}

func TestRunWithoutAdjacentTierFoldsToStay(t *testing.T) {
	cfg, rules := singleTierConfig(2000)
	cfg.Segments.Default = config.SegmentRates{Upgrade: 0.5, Downgrade: 0.5}
	svc := NewService(ServiceParam{Log: zap.NewNop()})

	res := generate(t, cfg, rules)
	events, err := svc.Run(res.Subscriptions, res.Companies, rules, cfg, res.NextEventIndex)
	assert.NoError(t, err)

	// Single-tier vendors have no upgrade or downgrade candidates.
	assert.Empty(t, events)
	for _, sub := range res.Subscriptions {
		assert.True(t, sub.Active())
	}
}

func TestRunRejectsUnknownTier(t *testing.T) {
	cfg, rules := singleTierConfig(10)
	svc := NewService(ServiceParam{Log: zap.NewNop()})

	res := generate(t, cfg, rules)
	res.Subscriptions[0].Tier = "Ghost"

	_, err := svc.Run(res.Subscriptions, res.Companies, rules, cfg, res.NextEventIndex)
	assert.Error(t, err)
}

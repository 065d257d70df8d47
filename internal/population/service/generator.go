package service

import (
	"math/rand"
	"sort"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/saasbench/saasbench/internal/config"
	lifecycledomain "github.com/saasbench/saasbench/internal/lifecycle/domain"
	"github.com/saasbench/saasbench/internal/population/domain"
	pricingdomain "github.com/saasbench/saasbench/internal/pricing/domain"
	"github.com/saasbench/saasbench/internal/simerr"
)

type ServiceParam struct {
	fx.In

	Log *zap.Logger
}

type Service struct {
	log *zap.Logger
}

func NewService(p ServiceParam) domain.Service {
	return &Service{log: p.Log.Named("population.generator")}
}

// sizeBandsByLevel correlates company size with tier level: entry weights
// are relative, higher levels skew toward larger companies.
var sizeBandsByLevel = map[int][]weighted[domain.SizeBand]{
	1: {{domain.SizeBand1To10, 0.70}, {domain.SizeBand11To50, 0.30}},
	2: {{domain.SizeBand11To50, 0.60}, {domain.SizeBand51To200, 0.40}},
	3: {{domain.SizeBand51To200, 0.50}, {domain.SizeBand201To1000, 0.50}},
	4: {{domain.SizeBand201To1000, 0.40}, {domain.SizeBand1000Plus, 0.60}},
}

func (s *Service) Generate(rules *pricingdomain.RuleSet, cfg config.SimulationConfig, rng *rand.Rand) (*domain.Result, error) {
	vendors := sortedWeights(cfg.VendorWeights)
	industries := sortedWeights(cfg.IndustryWeights)

	for _, v := range vendors {
		if v.weight > 0 && len(rules.Vendor(v.value)) == 0 {
			return nil, simerr.Configf("simulation.vendor_weights", "vendor %s has no pricing rules", v.value)
		}
	}

	res := &domain.Result{
		Companies:     make([]domain.Company, 0, cfg.Population),
		Subscriptions: make([]domain.Subscription, 0, cfg.Population),
		Events:        make([]lifecycledomain.Event, 0, cfg.Population),
	}

	for i := 1; i <= cfg.Population; i++ {
		industry := pick(rng, industries)
		vendor := pick(rng, vendors)

		level := s.pickTierLevel(rng, cfg, industry)
		rule := pickRuleAtLevel(rng, rules.Vendor(vendor), level)

		band := pick(rng, bandsForLevel(rule.TierLevel))
		seats, err := sampleSeats(rng, rule, band)
		if err != nil {
			return nil, err
		}

		company := domain.Company{
			ID:        domain.CompanyID(i),
			Industry:  domain.Industry(industry),
			SizeBand:  band,
			CreatedAt: cfg.Start,
		}
		sub := domain.Subscription{
			ID:        domain.SubscriptionID(i),
			CompanyID: company.ID,
			Vendor:    rule.Vendor,
			Tier:      rule.Tier,
			SeatCount: seats,
			Status:    domain.SubscriptionStatusActive,
			StartedAt: cfg.Start,
		}
		res.Companies = append(res.Companies, company)
		res.Subscriptions = append(res.Subscriptions, sub)
		res.Events = append(res.Events, lifecycledomain.Event{
			ID:             lifecycledomain.EventID(i),
			SubscriptionID: sub.ID,
			Type:           lifecycledomain.EventSignup,
			OccurredAt:     cfg.Start,
			Payload: datatypes.JSONMap{
				lifecycledomain.PayloadTier:  rule.Tier,
				lifecycledomain.PayloadSeats: seats,
			},
		})
	}
	res.NextEventIndex = cfg.Population + 1

	s.log.Info("population generated",
		zap.Int("companies", len(res.Companies)),
		zap.Int("subscriptions", len(res.Subscriptions)),
	)
	return res, nil
}

// pickTierLevel draws a tier level from the configured popularity weights,
// skewed upward by the industry bias.
func (s *Service) pickTierLevel(rng *rand.Rand, cfg config.SimulationConfig, industry string) int {
	bias := cfg.IndustryTierBias[industry]
	levels := make([]weighted[int], len(cfg.TierLevelWeights))
	for i, w := range cfg.TierLevelWeights {
		levels[i] = weighted[int]{i + 1, w * (1 + bias*float64(i))}
	}
	return pick(rng, levels)
}

// pickRuleAtLevel selects a rule at the requested tier level, falling back
// to the nearest available level when the vendor does not price one there.
func pickRuleAtLevel(rng *rand.Rand, vendorRules []*pricingdomain.PricingRule, level int) *pricingdomain.PricingRule {
	var candidates []*pricingdomain.PricingRule
	bestDist := -1
	for _, r := range vendorRules {
		dist := r.TierLevel - level
		if dist < 0 {
			dist = -dist
		}
		switch {
		case bestDist == -1 || dist < bestDist:
			bestDist = dist
			candidates = candidates[:0]
			candidates = append(candidates, r)
		case dist == bestDist:
			candidates = append(candidates, r)
		}
	}
	return candidates[rng.Intn(len(candidates))]
}

func bandsForLevel(level int) []weighted[domain.SizeBand] {
	if level < 1 {
		level = 1
	}
	if level > 4 {
		level = 4
	}
	return sizeBandsByLevel[level]
}

// sampleSeats draws a seat count within the intersection of the tier's seat
// range and the size band's plausible headcount.
func sampleSeats(rng *rand.Rand, rule *pricingdomain.PricingRule, band domain.SizeBand) (int, error) {
	lo := rule.SeatMin
	if lo < 1 {
		lo = 1
	}
	hi := rule.SeatMax
	if bandCap := band.SeatCap(); bandCap < hi {
		hi = bandCap
	}
	if hi < lo {
		return 0, simerr.Configf("simulation", "size band %s has no matching tier %s/%s (seats [%d,%d])",
			band, rule.Vendor, rule.Tier, rule.SeatMin, rule.SeatMax)
	}
	return lo + rng.Intn(hi-lo+1), nil
}

type weighted[T any] struct {
	value  T
	weight float64
}

// sortedWeights flattens a weight map into a deterministic, key-sorted
// slice. Map iteration order must never leak into the sampled sequence.
func sortedWeights(weights map[string]float64) []weighted[string] {
	keys := make([]string, 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]weighted[string], len(keys))
	for i, k := range keys {
		out[i] = weighted[string]{k, weights[k]}
	}
	return out
}

// pick draws one value from a relative-weight categorical distribution.
func pick[T any](rng *rand.Rand, options []weighted[T]) T {
	var total float64
	for _, o := range options {
		total += o.weight
	}
	x := rng.Float64() * total
	for _, o := range options {
		x -= o.weight
		if x < 0 {
			return o.value
		}
	}
	return options[len(options)-1].value
}

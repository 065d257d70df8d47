package service

import (
	"math/rand"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/saasbench/saasbench/internal/config"
	"github.com/saasbench/saasbench/internal/lifecycle/domain"
	populationdomain "github.com/saasbench/saasbench/internal/population/domain"
	pricingdomain "github.com/saasbench/saasbench/internal/pricing/domain"
	"github.com/saasbench/saasbench/internal/simerr"
)

type outcome int

const (
	outcomeStay outcome = iota
	outcomeChurn
	outcomeUpgrade
	outcomeDowngrade
)

type ServiceParam struct {
	fx.In

	Log *zap.Logger
}

type Service struct {
	log *zap.Logger
}

func NewService(p ServiceParam) *Service {
	return &Service{log: p.Log.Named("lifecycle.simulator")}
}

// Run advances the clock from cfg.Start to cfg.End in fixed steps. Within a
// period every active subscription is evaluated independently on its own
// random substream; across periods evaluation is strictly sequential, each
// period reading only post-previous-period state.
func (s *Service) Run(
	subs []populationdomain.Subscription,
	companies []populationdomain.Company,
	rules *pricingdomain.RuleSet,
	cfg config.SimulationConfig,
	nextEventIndex int,
) ([]domain.Event, error) {
	industryByCompany := make(map[string]populationdomain.Industry, len(companies))
	for _, c := range companies {
		industryByCompany[c.ID] = c.Industry
	}

	var events []domain.Event
	eventIndex := nextEventIndex

	for period, stepEnd := range cfg.Periods() {
		for i := range subs {
			sub := &subs[i]
			if !sub.Active() {
				continue
			}

			rule := rules.Lookup(sub.Vendor, sub.Tier)
			if rule == nil {
				return nil, simerr.Integrityf("subscription", sub.ID, "references unknown tier %s/%s", sub.Vendor, sub.Tier)
			}
			industry, ok := industryByCompany[sub.CompanyID]
			if !ok {
				return nil, simerr.Integrityf("subscription", sub.ID, "references unknown company %s", sub.CompanyID)
			}

			rates := cfg.RatesFor(string(industry), rule.HasSSO)
			rng := substream(cfg.Seed, sub.ID, period)

			var ev *domain.Event
			switch drawOutcome(rng, rates) {
			case outcomeChurn:
				ev = churn(sub, stepEnd)
			case outcomeUpgrade:
				ev = changeTier(sub, rule, rules.Upgrades(rule), domain.EventUpgrade, stepEnd)
			case outcomeDowngrade:
				ev = changeTier(sub, rule, rules.Downgrades(rule), domain.EventDowngrade, stepEnd)
			}
			if ev != nil {
				ev.ID = domain.EventID(eventIndex)
				eventIndex++
				events = append(events, *ev)
			}
		}
	}

	s.log.Info("simulation complete",
		zap.Int("periods", len(cfg.Periods())),
		zap.Int("events", len(events)),
	)
	return events, nil
}

// drawOutcome samples the categorical {churn, upgrade, downgrade, stay}
// distribution. The stay mass is the residual 1 - sum(rates); config
// validation guarantees the residual is non-negative.
func drawOutcome(rng *rand.Rand, rates config.SegmentRates) outcome {
	x := rng.Float64()
	switch {
	case x < rates.Churn:
		return outcomeChurn
	case x < rates.Churn+rates.Upgrade:
		return outcomeUpgrade
	case x < rates.Churn+rates.Upgrade+rates.Downgrade:
		return outcomeDowngrade
	default:
		return outcomeStay
	}
}

// churn terminates the subscription. Terminal: no transition is processed
// for it in later periods.
func churn(sub *populationdomain.Subscription, at time.Time) *domain.Event {
	ended := at
	sub.Status = populationdomain.SubscriptionStatusChurned
	sub.EndedAt = &ended
	return &domain.Event{
		SubscriptionID: sub.ID,
		Type:           domain.EventChurn,
		OccurredAt:     at,
		Payload: datatypes.JSONMap{
			domain.PayloadTier:  sub.Tier,
			domain.PayloadSeats: sub.SeatCount,
		},
	}
}

// changeTier moves the subscription to the adjacent tier from candidates
// (already sorted: cheapest upgrade first, priciest downgrade first). Seats
// are re-clamped to the new tier's range and the subscription stays active.
// With no candidate tier the drawn mass folds back into stay.
func changeTier(
	sub *populationdomain.Subscription,
	from *pricingdomain.PricingRule,
	candidates []*pricingdomain.PricingRule,
	typ domain.EventType,
	at time.Time,
) *domain.Event {
	if len(candidates) == 0 {
		return nil
	}
	to := candidates[0]

	oldTier, oldSeats := sub.Tier, sub.SeatCount
	seats := oldSeats
	if seats < to.SeatMin {
		seats = to.SeatMin
	}
	if seats > to.SeatMax {
		seats = to.SeatMax
	}
	sub.Tier = to.Tier
	sub.SeatCount = seats

	return &domain.Event{
		SubscriptionID: sub.ID,
		Type:           typ,
		OccurredAt:     at,
		Payload: datatypes.JSONMap{
			domain.PayloadOldTier:  oldTier,
			domain.PayloadNewTier:  to.Tier,
			domain.PayloadOldSeats: oldSeats,
			domain.PayloadNewSeats: seats,
		},
	}
}

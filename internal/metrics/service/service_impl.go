package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/saasbench/saasbench/internal/config"
	lifecycledomain "github.com/saasbench/saasbench/internal/lifecycle/domain"
	"github.com/saasbench/saasbench/internal/metrics/domain"
	obsmetrics "github.com/saasbench/saasbench/internal/observability/metrics"
	populationdomain "github.com/saasbench/saasbench/internal/population/domain"
	pricingdomain "github.com/saasbench/saasbench/internal/pricing/domain"
	"github.com/saasbench/saasbench/pkg/db/option"
	"github.com/saasbench/saasbench/pkg/repository"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Cfg     config.Config
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	cfg     config.SimulationConfig
	metrics *obsmetrics.Metrics

	subrepo     repository.Repository[populationdomain.Subscription]
	companyrepo repository.Repository[populationdomain.Company]
	eventrepo   repository.Repository[lifecycledomain.Event]
	rulerepo    repository.Repository[pricingdomain.PricingRule]
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("metrics.aggregator"),
		cfg:         p.Cfg.Simulation,
		metrics:     p.Metrics,
		subrepo:     repository.ProvideStore[populationdomain.Subscription](p.DB),
		companyrepo: repository.ProvideStore[populationdomain.Company](p.DB),
		eventrepo:   repository.ProvideStore[lifecycledomain.Event](p.DB),
		rulerepo:    repository.ProvideStore[pricingdomain.PricingRule](p.DB),
	}
}

// world is an immutable in-memory snapshot of the store, shared by every
// scope/period computation in one aggregation pass.
type world struct {
	rules         *pricingdomain.RuleSet
	subs          []*populationdomain.Subscription
	industryBySub map[string]populationdomain.Industry
	eventsBySub   map[string][]*lifecycledomain.Event
	industries    []string
	vendors       []string
}

func (s *Service) Compute(ctx context.Context, scopeType domain.ScopeType, scope string, periodStart, periodEnd time.Time) (*domain.MetricRow, error) {
	w, err := s.loadWorld(ctx)
	if err != nil {
		return nil, err
	}
	row := s.compute(w, scopeType, scope, periodStart, periodEnd)
	return &row, nil
}

func (s *Service) Refresh(ctx context.Context, from, to time.Time) ([]domain.MetricRow, error) {
	w, err := s.loadWorld(ctx)
	if err != nil {
		return nil, err
	}

	type scopeKey struct {
		typ   domain.ScopeType
		scope string
	}
	scopes := []scopeKey{{domain.ScopeGlobal, "global"}}
	for _, v := range w.vendors {
		scopes = append(scopes, scopeKey{domain.ScopeVendor, v})
	}
	for _, ind := range w.industries {
		scopes = append(scopes, scopeKey{domain.ScopeIndustry, ind})
	}
	scopes = append(scopes,
		scopeKey{domain.ScopeFeature, domain.FeatureScopeSSO},
		scopeKey{domain.ScopeFeature, domain.FeatureScopeNoSSO},
	)

	var rows []domain.MetricRow
	prev := s.cfg.Start
	for _, boundary := range s.cfg.Periods() {
		inWindow := (from.IsZero() || !boundary.Before(from)) && (to.IsZero() || !boundary.After(to))
		if inWindow {
			for _, sc := range scopes {
				rows = append(rows, s.compute(w, sc.typ, sc.scope, prev, boundary))
			}
		}
		prev = boundary
	}

	if len(rows) > 0 {
		err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "scope_type"}, {Name: "scope"}, {Name: "period_end"}},
			UpdateAll: true,
		}).CreateInBatches(rows, 500).Error
		if err != nil {
			return nil, fmt.Errorf("upsert metric rows: %w", err)
		}
	}

	if s.metrics != nil {
		s.metrics.AggregationRuns.Inc()
		s.metrics.MetricRowsWritten.Add(float64(len(rows)))
	}
	s.log.Info("metric rows refreshed",
		zap.Int("rows", len(rows)),
		zap.Int("scopes", len(scopes)),
	)
	return rows, nil
}

// compute derives one metric row. The churn denominator is snapshotted
// strictly at period start, before this period's churn events are applied.
func (s *Service) compute(w *world, scopeType domain.ScopeType, scope string, periodStart, periodEnd time.Time) domain.MetricRow {
	var (
		activeEnd     int
		revenue       float64
		denomStart    int
		churned       int
		featureCounts = make(map[pricingdomain.Feature]int)
	)

	for _, sub := range w.subs {
		events := w.eventsBySub[sub.ID]

		endState := replay(w.rules, sub, events, periodEnd)
		if endState.active && s.inScope(w, sub, endState.rule, scopeType, scope) {
			activeEnd++
			revenue += endState.rule.PricePerSeat() * float64(endState.seats)
			for _, f := range pricingdomain.Features() {
				if endState.rule.Has(f) {
					featureCounts[f]++
				}
			}
		}

		startState := replay(w.rules, sub, events, periodStart)
		if startState.active && s.inScope(w, sub, startState.rule, scopeType, scope) {
			denomStart++
			// Scope membership for the numerator is judged at period start,
			// like the denominator. A tier change and a churn inside the same
			// period both occur on the boundary, so the subscription cannot
			// leave a feature scope before its churn is counted.
			if churnedWithin(events, periodStart, periodEnd) {
				churned++
			}
		}
	}

	row := domain.MetricRow{
		ScopeType:          scopeType,
		Scope:              scope,
		PeriodStart:        periodStart,
		PeriodEnd:          periodEnd,
		ActiveCount:        activeEnd,
		FeaturePenetration: datatypes.JSONMap{},
		SchemaVersion:      domain.SchemaVersion,
	}

	if activeEnd > 0 {
		row.ARPU = revenue / float64(activeEnd)
		row.ARR = row.ARPU * 12 * float64(activeEnd)
		for _, f := range pricingdomain.Features() {
			row.FeaturePenetration[string(f)] = float64(featureCounts[f]) / float64(activeEnd)
		}
	} else {
		row.ZeroDenominator = true
		for _, f := range pricingdomain.Features() {
			row.FeaturePenetration[string(f)] = float64(0)
		}
	}
	if denomStart > 0 {
		row.ChurnRate = float64(churned) / float64(denomStart)
	} else {
		row.ZeroDenominator = true
	}
	if row.ZeroDenominator {
		s.log.Warn("zero denominator, metrics reported as zero",
			zap.String("scope_type", string(scopeType)),
			zap.String("scope", scope),
			zap.Time("period_end", periodEnd),
		)
	}
	return row
}

func (s *Service) inScope(w *world, sub *populationdomain.Subscription, rule *pricingdomain.PricingRule, scopeType domain.ScopeType, scope string) bool {
	switch scopeType {
	case domain.ScopeVendor:
		return sub.Vendor == scope
	case domain.ScopeIndustry:
		return string(w.industryBySub[sub.ID]) == scope
	case domain.ScopeFeature:
		if scope == domain.FeatureScopeSSO {
			return rule.HasSSO
		}
		return !rule.HasSSO
	default:
		return true
	}
}

// subState is a subscription's reconstructed shape at one instant.
type subState struct {
	active bool
	rule   *pricingdomain.PricingRule
	seats  int
}

// replay folds the subscription's ordered event log up to and including t.
// The event log, not the mutable subscription row, is the source of truth
// for historical periods.
func replay(rules *pricingdomain.RuleSet, sub *populationdomain.Subscription, events []*lifecycledomain.Event, t time.Time) subState {
	var st subState
	for _, ev := range events {
		if ev.OccurredAt.After(t) {
			break
		}
		switch ev.Type {
		case lifecycledomain.EventSignup:
			st.active = true
			st.rule = rules.Lookup(sub.Vendor, payloadString(ev.Payload, lifecycledomain.PayloadTier))
			st.seats = payloadInt(ev.Payload, lifecycledomain.PayloadSeats)
		case lifecycledomain.EventUpgrade, lifecycledomain.EventDowngrade:
			st.rule = rules.Lookup(sub.Vendor, payloadString(ev.Payload, lifecycledomain.PayloadNewTier))
			st.seats = payloadInt(ev.Payload, lifecycledomain.PayloadNewSeats)
		case lifecycledomain.EventChurn:
			st.active = false
		}
	}
	if st.rule == nil {
		st.active = false
	}
	return st
}

// churnedWithin reports a churn event in (start, end].
func churnedWithin(events []*lifecycledomain.Event, start, end time.Time) bool {
	for _, ev := range events {
		if ev.Type == lifecycledomain.EventChurn && ev.OccurredAt.After(start) && !ev.OccurredAt.After(end) {
			return true
		}
	}
	return false
}

func (s *Service) loadWorld(ctx context.Context) (*world, error) {
	ruleRows, err := s.rulerepo.Find(ctx, &pricingdomain.PricingRule{})
	if err != nil {
		return nil, fmt.Errorf("load pricing rules: %w", err)
	}
	rules := make([]pricingdomain.PricingRule, len(ruleRows))
	vendorSeen := make(map[string]bool)
	var vendors []string
	for i, r := range ruleRows {
		rules[i] = *r
		if !vendorSeen[r.Vendor] {
			vendorSeen[r.Vendor] = true
			vendors = append(vendors, r.Vendor)
		}
	}
	sort.Strings(vendors)

	companies, err := s.companyrepo.Find(ctx, &populationdomain.Company{})
	if err != nil {
		return nil, fmt.Errorf("load companies: %w", err)
	}
	industryByCompany := make(map[string]populationdomain.Industry, len(companies))
	industrySeen := make(map[string]bool)
	var industries []string
	for _, c := range companies {
		industryByCompany[c.ID] = c.Industry
		if !industrySeen[string(c.Industry)] {
			industrySeen[string(c.Industry)] = true
			industries = append(industries, string(c.Industry))
		}
	}
	sort.Strings(industries)

	subs, err := s.subrepo.Find(ctx, &populationdomain.Subscription{}, option.WithOrder("id"))
	if err != nil {
		return nil, fmt.Errorf("load subscriptions: %w", err)
	}
	industryBySub := make(map[string]populationdomain.Industry, len(subs))
	for _, sub := range subs {
		industryBySub[sub.ID] = industryByCompany[sub.CompanyID]
	}

	events, err := s.eventrepo.Find(ctx, &lifecycledomain.Event{}, option.WithOrder("occurred_at, id"))
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	eventsBySub := make(map[string][]*lifecycledomain.Event, len(subs))
	for _, ev := range events {
		eventsBySub[ev.SubscriptionID] = append(eventsBySub[ev.SubscriptionID], ev)
	}

	return &world{
		rules:         pricingdomain.NewRuleSet(rules),
		subs:          subs,
		industryBySub: industryBySub,
		eventsBySub:   eventsBySub,
		industries:    industries,
		vendors:       vendors,
	}, nil
}

func payloadString(payload datatypes.JSONMap, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

// payloadInt tolerates native ints (in-process), float64, and json.Number
// (gorm decodes stored JSONMap numbers as json.Number).
func payloadInt(payload datatypes.JSONMap, key string) int {
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return int(n)
	default:
		return 0
	}
}

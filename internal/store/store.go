package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/saasbench/saasbench/internal/clock"
	lifecycledomain "github.com/saasbench/saasbench/internal/lifecycle/domain"
	obsmetrics "github.com/saasbench/saasbench/internal/observability/metrics"
	populationdomain "github.com/saasbench/saasbench/internal/population/domain"
	pricingdomain "github.com/saasbench/saasbench/internal/pricing/domain"
	"github.com/saasbench/saasbench/internal/simerr"
	pkgdb "github.com/saasbench/saasbench/pkg/db"
	"github.com/saasbench/saasbench/pkg/repository"
)

// RunData is one complete generated run, staged for persistence.
type RunData struct {
	Seed         int64
	ConfigDigest string

	Companies     []populationdomain.Company
	Subscriptions []populationdomain.Subscription
	Events        []lifecycledomain.Event
}

type StoreParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Store struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	metrics *obsmetrics.Metrics
}

func NewStore(p StoreParam) *Store {
	return &Store{
		db:      p.DB,
		log:     p.Log.Named("store"),
		genID:   p.GenID,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

// PersistRun validates and bulk-inserts a generated run in a single
// transaction. Any integrity violation rolls the whole run back so a
// partial population is never visible to the aggregator.
func (s *Store) PersistRun(ctx context.Context, rules *pricingdomain.RuleSet, data RunData) (*SimulationRun, error) {
	startedAt := s.clock.Now()

	if err := ValidateRun(rules, data); err != nil {
		s.recordRun(ctx, data, RunStatusFailed, startedAt)
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		companies := make([]*populationdomain.Company, len(data.Companies))
		for i := range data.Companies {
			companies[i] = &data.Companies[i]
		}
		if err := repository.ProvideStore[populationdomain.Company](tx).BatchCreate(ctx, companies); err != nil {
			return fmt.Errorf("insert companies: %w", err)
		}

		subs := make([]*populationdomain.Subscription, len(data.Subscriptions))
		for i := range data.Subscriptions {
			subs[i] = &data.Subscriptions[i]
		}
		if err := repository.ProvideStore[populationdomain.Subscription](tx).BatchCreate(ctx, subs); err != nil {
			return fmt.Errorf("insert subscriptions: %w", err)
		}

		events := make([]*lifecycledomain.Event, len(data.Events))
		for i := range data.Events {
			events[i] = &data.Events[i]
		}
		if err := repository.ProvideStore[lifecycledomain.Event](tx).BatchCreate(ctx, events); err != nil {
			return fmt.Errorf("insert events: %w", err)
		}
		return nil
	})
	if err != nil {
		s.recordRun(ctx, data, RunStatusFailed, startedAt)
		if pkgdb.IsDuplicateKeyErr(err) {
			return nil, simerr.Integrityf("run", data.ConfigDigest, "store already holds entities with these ids; persist into a fresh database")
		}
		return nil, err
	}

	run := s.recordRun(ctx, data, RunStatusCompleted, startedAt)
	if s.metrics != nil {
		s.metrics.CompaniesPersisted.Add(float64(len(data.Companies)))
		s.metrics.SubscriptionsPersisted.Add(float64(len(data.Subscriptions)))
		for _, ev := range data.Events {
			s.metrics.EventsPersisted.WithLabelValues(string(ev.Type)).Inc()
		}
	}
	s.log.Info("run persisted",
		zap.Int64("seed", data.Seed),
		zap.Int("companies", len(data.Companies)),
		zap.Int("subscriptions", len(data.Subscriptions)),
		zap.Int("events", len(data.Events)),
	)
	return run, nil
}

func (s *Store) recordRun(ctx context.Context, data RunData, status RunStatus, startedAt time.Time) *SimulationRun {
	finished := s.clock.Now()
	run := &SimulationRun{
		ID:            s.genID.Generate(),
		Seed:          data.Seed,
		ConfigDigest:  data.ConfigDigest,
		Status:        status,
		Companies:     len(data.Companies),
		Subscriptions: len(data.Subscriptions),
		Events:        len(data.Events),
		StartedAt:     startedAt,
		FinishedAt:    &finished,
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		s.log.Error("record simulation run", zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.RunsPersisted.WithLabelValues(string(status)).Inc()
	}
	return run
}

// ValidateRun enforces the referential and event-ordering invariants before
// anything touches the database.
func ValidateRun(rules *pricingdomain.RuleSet, data RunData) error {
	companyIDs := make(map[string]bool, len(data.Companies))
	for _, c := range data.Companies {
		companyIDs[c.ID] = true
	}

	subIDs := make(map[string]bool, len(data.Subscriptions))
	activeByCompany := make(map[string]string)
	for _, sub := range data.Subscriptions {
		if sub.SeatCount <= 0 {
			return simerr.Integrityf("subscription", sub.ID, "seat count must be positive, got %d", sub.SeatCount)
		}
		if !companyIDs[sub.CompanyID] {
			return simerr.Integrityf("subscription", sub.ID, "references unknown company %s", sub.CompanyID)
		}
		if rules.Lookup(sub.Vendor, sub.Tier) == nil {
			return simerr.Integrityf("subscription", sub.ID, "references unknown pricing rule %s/%s", sub.Vendor, sub.Tier)
		}
		if (sub.EndedAt != nil) != (sub.Status != populationdomain.SubscriptionStatusActive) {
			return simerr.Integrityf("subscription", sub.ID, "ended_at must be set iff status is not active")
		}
		if sub.Active() {
			if other, dup := activeByCompany[sub.CompanyID]; dup {
				return simerr.Integrityf("subscription", sub.ID, "company %s already has active subscription %s", sub.CompanyID, other)
			}
			activeByCompany[sub.CompanyID] = sub.ID
		}
		subIDs[sub.ID] = true
	}

	return ValidateEventLog(subIDs, data.Events)
}

// ValidateEventLog checks the per-subscription ordering invariants: exactly
// one signup and it opens the sequence, at most one churn and it closes it,
// and no tier change after churn.
func ValidateEventLog(subIDs map[string]bool, events []lifecycledomain.Event) error {
	bySub := make(map[string][]*lifecycledomain.Event)
	for i := range events {
		ev := &events[i]
		if !subIDs[ev.SubscriptionID] {
			return simerr.Integrityf("event", ev.ID, "references unknown subscription %s", ev.SubscriptionID)
		}
		bySub[ev.SubscriptionID] = append(bySub[ev.SubscriptionID], ev)
	}

	for subID := range subIDs {
		seq := bySub[subID]
		if len(seq) == 0 {
			return simerr.Integrityf("subscription", subID, "has no signup event")
		}
		sort.SliceStable(seq, func(i, j int) bool {
			if !seq[i].OccurredAt.Equal(seq[j].OccurredAt) {
				return seq[i].OccurredAt.Before(seq[j].OccurredAt)
			}
			return seq[i].ID < seq[j].ID
		})

		if seq[0].Type != lifecycledomain.EventSignup {
			return simerr.Integrityf("event", seq[0].ID, "sequence for %s must open with a signup, got %s", subID, seq[0].Type)
		}

		churned := false
		for i, ev := range seq {
			switch ev.Type {
			case lifecycledomain.EventSignup:
				if i != 0 {
					return simerr.Integrityf("event", ev.ID, "signup must open the sequence for %s", subID)
				}
			case lifecycledomain.EventChurn:
				if churned {
					return simerr.Integrityf("event", ev.ID, "subscription %s already churned", subID)
				}
				churned = true
			case lifecycledomain.EventUpgrade, lifecycledomain.EventDowngrade:
				if i == 0 {
					return simerr.Integrityf("event", ev.ID, "%s before signup for %s", ev.Type, subID)
				}
				if churned {
					return simerr.Integrityf("event", ev.ID, "%s after churn for %s", ev.Type, subID)
				}
			default:
				return simerr.Integrityf("event", ev.ID, "unknown event type %q", ev.Type)
			}
		}
	}
	return nil
}

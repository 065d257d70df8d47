package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/saasbench/saasbench/internal/pricing/domain"
	"github.com/saasbench/saasbench/internal/simerr"
	"github.com/saasbench/saasbench/pkg/repository"
)

type ServiceParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	rulerepo repository.Repository[domain.PricingRule]
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("pricing.service"),
		rulerepo: repository.ProvideStore[domain.PricingRule](p.DB),
	}
}

// LoadFile parses a collected rules file (JSON array of rules). The file is
// treated as an opaque collector artifact; all semantic checks happen in
// Ingest.
func LoadFile(path string) ([]domain.PricingRule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var rules []domain.PricingRule
	if err := json.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return rules, nil
}

func (s *Service) Ingest(ctx context.Context, rules []domain.PricingRule) error {
	if len(rules) == 0 {
		return simerr.Rulef("", "", "rule set is empty")
	}
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if err := validateRule(r); err != nil {
			return err
		}
		key := r.Vendor + "/" + r.Tier
		if seen[key] {
			return simerr.Rulef(r.Vendor, r.Tier, "duplicate (vendor, tier)")
		}
		seen[key] = true
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&domain.PricingRule{}).Error; err != nil {
			return err
		}
		batch := make([]*domain.PricingRule, len(rules))
		for i := range rules {
			rules[i].ID = 0
			batch[i] = &rules[i]
		}
		return repository.ProvideStore[domain.PricingRule](tx).BatchCreate(ctx, batch)
	})
	if err != nil {
		return fmt.Errorf("persist pricing rules: %w", err)
	}

	s.log.Info("pricing rules ingested", zap.Int("rules", len(rules)))
	return nil
}

func (s *Service) RuleSet(ctx context.Context) (*domain.RuleSet, error) {
	rows, err := s.rulerepo.Find(ctx, &domain.PricingRule{})
	if err != nil {
		return nil, fmt.Errorf("load pricing rules: %w", err)
	}
	rules := make([]domain.PricingRule, len(rows))
	for i, r := range rows {
		rules[i] = *r
	}
	return domain.NewRuleSet(rules), nil
}

func validateRule(r domain.PricingRule) error {
	if r.Vendor == "" || r.Tier == "" {
		return simerr.Rulef(r.Vendor, r.Tier, "vendor and tier are required")
	}
	if r.PricePerSeatCents <= 0 {
		return simerr.Rulef(r.Vendor, r.Tier, "price per seat must be positive, got %d cents", r.PricePerSeatCents)
	}
	if r.SeatMin < 1 || r.SeatMax < r.SeatMin {
		return simerr.Rulef(r.Vendor, r.Tier, "malformed seat range [%d,%d]", r.SeatMin, r.SeatMax)
	}
	if r.TierLevel < 1 {
		return simerr.Rulef(r.Vendor, r.Tier, "tier level must be positive, got %d", r.TierLevel)
	}
	return nil
}

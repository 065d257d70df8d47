// Package domain contains persistence models for scraped pricing rules.
package domain

import (
	"sort"
	"time"
)

// Feature names a gated capability carried by a pricing tier.
type Feature string

const (
	FeatureSSO          Feature = "sso"
	FeatureAPI          Feature = "api"
	FeatureAutomation   Feature = "automation"
	FeatureAnalytics    Feature = "analytics"
	FeatureIntegrations Feature = "integrations"
	FeatureAI           Feature = "ai"
)

// Features enumerates every known feature gate, in stable order.
func Features() []Feature {
	return []Feature{
		FeatureSSO, FeatureAPI, FeatureAutomation,
		FeatureAnalytics, FeatureIntegrations, FeatureAI,
	}
}

// PricingRule is the normalized description of one vendor tier. Rules are
// produced by an external collector, validated at ingestion and immutable
// for the duration of a run. Identified by (vendor, tier).
type PricingRule struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	Vendor    string `gorm:"type:text;not null;uniqueIndex:ux_pricing_vendor_tier,priority:1" json:"vendor"`
	Tier      string `gorm:"type:text;not null;uniqueIndex:ux_pricing_vendor_tier,priority:2" json:"tier"`
	TierLevel int    `gorm:"not null;index" json:"tier_level"`

	// PricePerSeatCents is the monthly list price per seat.
	PricePerSeatCents int64 `gorm:"not null" json:"price_per_seat_cents"`

	SeatMin int `gorm:"not null" json:"seat_min"`
	SeatMax int `gorm:"not null" json:"seat_max"`

	HasSSO          bool `gorm:"not null;default:false" json:"has_sso"`
	HasAPI          bool `gorm:"not null;default:false" json:"has_api"`
	HasAutomation   bool `gorm:"not null;default:false" json:"has_automation"`
	HasAnalytics    bool `gorm:"not null;default:false" json:"has_analytics"`
	HasIntegrations bool `gorm:"not null;default:false" json:"has_integrations"`
	HasAI           bool `gorm:"not null;default:false" json:"has_ai"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (PricingRule) TableName() string { return "pricing_rules" }

// PricePerSeat returns the monthly per-seat price in currency units.
func (r PricingRule) PricePerSeat() float64 { return float64(r.PricePerSeatCents) / 100 }

// Has reports whether the tier gates the named feature.
func (r PricingRule) Has(f Feature) bool {
	switch f {
	case FeatureSSO:
		return r.HasSSO
	case FeatureAPI:
		return r.HasAPI
	case FeatureAutomation:
		return r.HasAutomation
	case FeatureAnalytics:
		return r.HasAnalytics
	case FeatureIntegrations:
		return r.HasIntegrations
	case FeatureAI:
		return r.HasAI
	default:
		return false
	}
}

// RuleSet indexes pricing rules for lookup during generation and
// simulation. It is built once per run and read-only afterwards.
type RuleSet struct {
	rules    []PricingRule
	byKey    map[string]*PricingRule
	byVendor map[string][]*PricingRule
}

// NewRuleSet indexes the given rules.
func NewRuleSet(rules []PricingRule) *RuleSet {
	rs := &RuleSet{
		rules:    rules,
		byKey:    make(map[string]*PricingRule, len(rules)),
		byVendor: make(map[string][]*PricingRule),
	}
	for i := range rs.rules {
		r := &rs.rules[i]
		rs.byKey[ruleKey(r.Vendor, r.Tier)] = r
		rs.byVendor[r.Vendor] = append(rs.byVendor[r.Vendor], r)
	}
	return rs
}

func ruleKey(vendor, tier string) string { return vendor + "\x00" + tier }

// All returns every rule in ingestion order.
func (rs *RuleSet) All() []PricingRule { return rs.rules }

// Lookup returns the rule for (vendor, tier), or nil.
func (rs *RuleSet) Lookup(vendor, tier string) *PricingRule {
	return rs.byKey[ruleKey(vendor, tier)]
}

// Vendor returns the rules for one vendor in ingestion order.
func (rs *RuleSet) Vendor(vendor string) []*PricingRule {
	return rs.byVendor[vendor]
}

// Upgrades returns the same-vendor tiers with a strictly higher per-seat
// price than from, cheapest first.
func (rs *RuleSet) Upgrades(from *PricingRule) []*PricingRule {
	return rs.filterVendor(from, func(r *PricingRule) bool {
		return r.PricePerSeatCents > from.PricePerSeatCents
	}, true)
}

// Downgrades returns the same-vendor tiers with a strictly lower per-seat
// price than from, most expensive first.
func (rs *RuleSet) Downgrades(from *PricingRule) []*PricingRule {
	return rs.filterVendor(from, func(r *PricingRule) bool {
		return r.PricePerSeatCents < from.PricePerSeatCents
	}, false)
}

func (rs *RuleSet) filterVendor(from *PricingRule, keep func(*PricingRule) bool, asc bool) []*PricingRule {
	var out []*PricingRule
	for _, r := range rs.byVendor[from.Vendor] {
		if r != from && keep(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if asc {
			return out[i].PricePerSeatCents < out[j].PricePerSeatCents
		}
		return out[i].PricePerSeatCents > out[j].PricePerSeatCents
	})
	return out
}

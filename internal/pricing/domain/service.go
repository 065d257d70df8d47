package domain

import "context"

// Service validates and serves the pricing rule store.
type Service interface {
	// Ingest validates and persists a collected rule set, replacing any
	// previously loaded rules. Fatal on the first invalid rule.
	Ingest(ctx context.Context, rules []PricingRule) error

	// RuleSet loads the stored rules into an indexed, read-only set.
	RuleSet(ctx context.Context) (*RuleSet, error)
}

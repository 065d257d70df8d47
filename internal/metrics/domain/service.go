package domain

import (
	"context"
	"time"
)

// Service computes business metrics from the persisted entity/event set.
// Read-only: aggregation never mutates simulation state, so re-running over
// an unchanged store is idempotent.
type Service interface {
	// Compute derives the metric row for one scope and period window.
	Compute(ctx context.Context, scopeType ScopeType, scope string, periodStart, periodEnd time.Time) (*MetricRow, error)

	// Refresh recomputes and upserts metric rows for every known scope and
	// every period boundary within [from, to].
	Refresh(ctx context.Context, from, to time.Time) ([]MetricRow, error)
}

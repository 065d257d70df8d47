// Package domain contains the derived metric row model. Rows are pure
// functions of the stored entities; they are recomputed on demand and never
// hand-edited.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// SchemaVersion stamps every MetricRow. Any change to the row's column
// names or types requires a bump, per the schema-stability contract with
// external reporting consumers.
const SchemaVersion = 1

// ScopeType selects the grouping dimension of a metric row.
type ScopeType string

const (
	ScopeGlobal   ScopeType = "global"
	ScopeVendor   ScopeType = "vendor"
	ScopeIndustry ScopeType = "industry"
	ScopeFeature  ScopeType = "feature"
)

// Feature scope values used by the SSO premium/retention comparison.
const (
	FeatureScopeSSO   = "sso"
	FeatureScopeNoSSO = "no_sso"
)

// MetricRow holds one scope's business metrics for one period.
// ZeroDenominator flags metrics reported as zero because the scope had no
// active subscriptions (an aggregation warning, never an error).
type MetricRow struct {
	ScopeType   ScopeType `gorm:"primaryKey;type:text" json:"scope_type"`
	Scope       string    `gorm:"primaryKey;type:text" json:"scope"`
	PeriodEnd   time.Time `gorm:"primaryKey" json:"period_end"`
	PeriodStart time.Time `gorm:"not null" json:"period_start"`

	ARPU        float64 `gorm:"not null" json:"arpu"`
	ARR         float64 `gorm:"not null" json:"arr"`
	ChurnRate   float64 `gorm:"not null" json:"churn_rate"`
	ActiveCount int     `gorm:"not null" json:"active_count"`

	FeaturePenetration datatypes.JSONMap `gorm:"type:jsonb" json:"feature_penetration"`

	ZeroDenominator bool `gorm:"not null;default:false" json:"zero_denominator"`
	SchemaVersion   int  `gorm:"not null" json:"schema_version"`
}

// TableName sets the database table name.
func (MetricRow) TableName() string { return "metric_rows" }

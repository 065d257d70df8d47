// Package domain contains persistence models for the synthetic population.
package domain

import (
	"fmt"
	"time"
)

// Industry is the fixed industry segment enumeration.
type Industry string

const (
	IndustryTechnology    Industry = "Technology"
	IndustryMarketing     Industry = "Marketing"
	IndustryConsulting    Industry = "Consulting"
	IndustryFinance       Industry = "Finance"
	IndustryEducation     Industry = "Education"
	IndustryHealthcare    Industry = "Healthcare"
	IndustryRetail        Industry = "Retail"
	IndustryManufacturing Industry = "Manufacturing"
	IndustryNonprofit     Industry = "Nonprofit"
	IndustryOther         Industry = "Other"
)

// SizeBand buckets companies by headcount. Bands correlate with tier level:
// larger companies skew toward higher tiers.
type SizeBand string

const (
	SizeBand1To10     SizeBand = "1-10"
	SizeBand11To50    SizeBand = "11-50"
	SizeBand51To200   SizeBand = "51-200"
	SizeBand201To1000 SizeBand = "201-1000"
	SizeBand1000Plus  SizeBand = "1000+"
)

// SeatCap returns the maximum plausible seat count for the band.
func (b SizeBand) SeatCap() int {
	switch b {
	case SizeBand1To10:
		return 10
	case SizeBand11To50:
		return 50
	case SizeBand51To200:
		return 200
	case SizeBand201To1000:
		return 1000
	default:
		return 5000
	}
}

// Company is a synthetic customer. Immutable after creation.
type Company struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	Industry  Industry  `gorm:"type:text;not null;index" json:"industry"`
	SizeBand  SizeBand  `gorm:"type:text;not null" json:"size_band"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (Company) TableName() string { return "companies" }

// SubscriptionStatus represents lifecycle states for a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusChurned    SubscriptionStatus = "churned"
	SubscriptionStatusUpgraded   SubscriptionStatus = "upgraded"
	SubscriptionStatusDowngraded SubscriptionStatus = "downgraded"
)

// Subscription binds a company to a vendor tier. A company has at most one
// active subscription at any instant. Subscriptions are never deleted, only
// marked churned, preserving history for cohort analysis.
type Subscription struct {
	ID        string             `gorm:"primaryKey;type:text" json:"id"`
	CompanyID string             `gorm:"type:text;not null;index" json:"company_id"`
	Vendor    string             `gorm:"type:text;not null;index" json:"vendor"`
	Tier      string             `gorm:"type:text;not null" json:"tier"`
	SeatCount int                `gorm:"not null" json:"seat_count"`
	Status    SubscriptionStatus `gorm:"type:text;not null;index" json:"status"`
	StartedAt time.Time          `gorm:"not null;index" json:"started_at"`
	EndedAt   *time.Time         `gorm:"" json:"ended_at,omitempty"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// Active reports whether the subscription is still running.
func (s Subscription) Active() bool { return s.Status == SubscriptionStatusActive }

// CompanyID formats the deterministic company identifier for index i.
func CompanyID(i int) string { return fmt.Sprintf("cmp_%06d", i) }

// SubscriptionID formats the deterministic subscription identifier.
func SubscriptionID(i int) string { return fmt.Sprintf("sub_%06d", i) }

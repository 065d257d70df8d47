// Package domain contains the append-only lifecycle event model.
package domain

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// EventType enumerates subscription lifecycle transitions.
type EventType string

const (
	EventSignup    EventType = "signup"
	EventUpgrade   EventType = "upgrade"
	EventDowngrade EventType = "downgrade"
	EventChurn     EventType = "churn"
)

// Payload keys shared by tier-change events.
const (
	PayloadOldTier  = "old_tier"
	PayloadNewTier  = "new_tier"
	PayloadOldSeats = "old_seats"
	PayloadNewSeats = "new_seats"
	PayloadTier     = "tier"
	PayloadSeats    = "seats"
)

// Event records one lifecycle transition. Events are write-once and ordered
// by OccurredAt (then ID) within a subscription: exactly one signup opens
// the sequence, at most one churn closes it, and nothing follows a churn.
type Event struct {
	ID             string            `gorm:"primaryKey;type:text" json:"id"`
	SubscriptionID string            `gorm:"type:text;not null;index" json:"subscription_id"`
	Type           EventType         `gorm:"type:text;not null;index" json:"type"`
	OccurredAt     time.Time         `gorm:"not null;index" json:"occurred_at"`
	Payload        datatypes.JSONMap `gorm:"type:jsonb" json:"payload,omitempty"`
}

// TableName sets the database table name.
func (Event) TableName() string { return "events" }

// EventID formats the deterministic event identifier for index i.
func EventID(i int) string { return fmt.Sprintf("evt_%06d", i) }

// Package store is the persistence boundary: it owns bulk ingestion of
// generated runs and guards referential and event-ordering integrity.
package store

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// RunStatus reports the outcome of one simulation run.
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// SimulationRun is the audit record for one persisted run: the seed and
// config digest are enough to reproduce its event sequence byte for byte.
type SimulationRun struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Seed         int64        `gorm:"not null" json:"seed"`
	ConfigDigest string       `gorm:"type:text;not null" json:"config_digest"`
	Status       RunStatus    `gorm:"type:text;not null" json:"status"`

	Companies     int `gorm:"not null" json:"companies"`
	Subscriptions int `gorm:"not null" json:"subscriptions"`
	Events        int `gorm:"not null" json:"events"`

	StartedAt  time.Time  `gorm:"not null" json:"started_at"`
	FinishedAt *time.Time `gorm:"" json:"finished_at,omitempty"`
}

// TableName sets the database table name.
func (SimulationRun) TableName() string { return "simulation_runs" }

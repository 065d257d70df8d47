// Package migration creates the store schema on startup so the binary is
// usable out of the box against SQLite or Postgres.
package migration

import (
	"fmt"

	"gorm.io/gorm"

	lifecycledomain "github.com/saasbench/saasbench/internal/lifecycle/domain"
	metricsdomain "github.com/saasbench/saasbench/internal/metrics/domain"
	populationdomain "github.com/saasbench/saasbench/internal/population/domain"
	pricingdomain "github.com/saasbench/saasbench/internal/pricing/domain"
	"github.com/saasbench/saasbench/internal/store"
)

// RunMigrations creates or updates every table the pipeline persists.
func RunMigrations(conn *gorm.DB) error {
	err := conn.AutoMigrate(
		&pricingdomain.PricingRule{},
		&populationdomain.Company{},
		&populationdomain.Subscription{},
		&lifecycledomain.Event{},
		&metricsdomain.MetricRow{},
		&store.SimulationRun{},
	)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

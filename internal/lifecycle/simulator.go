package lifecycle

import (
	"github.com/saasbench/saasbench/internal/config"
	"github.com/saasbench/saasbench/internal/lifecycle/domain"
	populationdomain "github.com/saasbench/saasbench/internal/population/domain"
	pricingdomain "github.com/saasbench/saasbench/internal/pricing/domain"
)

// Simulator advances subscriptions through the simulation window, mutating
// their status/tier/seats in place and emitting lifecycle events.
//
// The interface lives here rather than in domain so that domain stays a
// leaf holding only the event model: the population package depends on it
// for Result.Events, and this signature depends on population types.
type Simulator interface {
	Run(
		subs []populationdomain.Subscription,
		companies []populationdomain.Company,
		rules *pricingdomain.RuleSet,
		cfg config.SimulationConfig,
		nextEventIndex int,
	) ([]domain.Event, error)
}

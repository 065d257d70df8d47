package domain

import (
	"math/rand"

	"github.com/saasbench/saasbench/internal/config"
	lifecycledomain "github.com/saasbench/saasbench/internal/lifecycle/domain"
	pricingdomain "github.com/saasbench/saasbench/internal/pricing/domain"
)

// Result is a freshly generated population: one company per index, exactly
// one active subscription per company and its opening signup event.
type Result struct {
	Companies     []Company
	Subscriptions []Subscription
	Events        []lifecycledomain.Event

	// NextEventIndex is the first free deterministic event index; the
	// simulator continues numbering from here.
	NextEventIndex int
}

// Service builds the synthetic population. Pure: all randomness comes from
// the supplied source.
type Service interface {
	Generate(rules *pricingdomain.RuleSet, cfg config.SimulationConfig, rng *rand.Rand) (*Result, error)
}

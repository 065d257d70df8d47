// Package seed ships a demo pricing rule set so a simulation can run
// without a collected rules file. Prices and tier shapes follow the
// collaboration-tool market the default configuration weights.
package seed

import (
	pricingdomain "github.com/saasbench/saasbench/internal/pricing/domain"
)

type tierShape struct {
	name    string
	level   int
	seatMax int
	sso     bool
}

var tierShapes = []tierShape{
	{"Starter", 1, 50, false},
	{"Business", 2, 200, false},
	{"Professional", 3, 1000, true},
	{"Enterprise", 4, 5000, true},
}

// perSeatCents is the monthly per-seat list price by vendor and tier level.
// SSO-gated levels carry a visible premium.
var perSeatCents = map[string][4]int64{
	"Notion":   {800, 1500, 2800, 6000},
	"Asana":    {1099, 2499, 3499, 7000},
	"Monday":   {900, 1200, 1900, 5500},
	"Trello":   {500, 1000, 1750, 4500},
	"Miro":     {800, 1600, 2400, 5200},
	"Figma":    {1200, 1500, 4500, 7500},
	"Airtable": {1000, 2000, 4500, 8000},
	"Clickup":  {700, 1200, 1900, 5000},
	"Coda":     {1000, 3000, 4000, 8500},
}

// DemoRules builds the bundled rule set, one rule per vendor tier.
func DemoRules() []pricingdomain.PricingRule {
	vendors := []string{
		"Notion", "Asana", "Monday", "Trello", "Miro",
		"Figma", "Airtable", "Clickup", "Coda",
	}

	var rules []pricingdomain.PricingRule
	for _, vendor := range vendors {
		prices := perSeatCents[vendor]
		for i, shape := range tierShapes {
			rules = append(rules, pricingdomain.PricingRule{
				Vendor:            vendor,
				Tier:              shape.name,
				TierLevel:         shape.level,
				PricePerSeatCents: prices[i],
				SeatMin:           1,
				SeatMax:           shape.seatMax,
				HasSSO:            shape.sso,
				HasAPI:            shape.level >= 2,
				HasAutomation:     shape.level >= 2,
				HasAnalytics:      shape.level >= 3,
				HasIntegrations:   true,
				HasAI:             shape.level >= 3,
			})
		}
	}
	return rules
}

// Package config loads and validates the declarative simulation
// configuration. Every knob that can change simulated outcomes is a named,
// typed field; defaults live in DefaultSimulation and are echoed to the log
// at startup so no run depends on hidden values.
package config

import (
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/saasbench/saasbench/internal/simerr"
)

// Config holds application configuration.
type Config struct {
	AppName     string `mapstructure:"app_name"`
	Environment string `mapstructure:"environment"`

	DB         DBConfig         `mapstructure:"database"`
	Server     ServerConfig     `mapstructure:"server"`
	Simulation SimulationConfig `mapstructure:"simulation"`
}

// DBConfig selects and configures the persistence dialect.
type DBConfig struct {
	Type     string `mapstructure:"type"` // sqlite | postgres
	Path     string `mapstructure:"path"` // sqlite file path
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ServerConfig configures the read-only export API.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// StepSize is the fixed discrete period the simulator advances by.
type StepSize string

const (
	StepMonth StepSize = "month"
	StepWeek  StepSize = "week"
	StepDay   StepSize = "day"
)

// Next returns the end of the period starting at t.
func (s StepSize) Next(t time.Time) time.Time {
	switch s {
	case StepWeek:
		return t.AddDate(0, 0, 7)
	case StepDay:
		return t.AddDate(0, 0, 1)
	default:
		return t.AddDate(0, 1, 0)
	}
}

// SegmentRates holds the per-period outcome probabilities for one segment.
// The residual mass (1 - churn - upgrade - downgrade) is the stay
// probability.
type SegmentRates struct {
	Churn     float64 `mapstructure:"churn"`
	Upgrade   float64 `mapstructure:"upgrade"`
	Downgrade float64 `mapstructure:"downgrade"`
}

// Sum returns the total assigned probability mass.
func (r SegmentRates) Sum() float64 { return r.Churn + r.Upgrade + r.Downgrade }

// SegmentsConfig maps industries to outcome rates. Industries without an
// explicit entry fall back to Default.
type SegmentsConfig struct {
	Default    SegmentRates            `mapstructure:"default"`
	Industries map[string]SegmentRates `mapstructure:"industries"`
}

// SimulationConfig controls population generation and lifecycle simulation.
type SimulationConfig struct {
	Population int       `mapstructure:"population"`
	Seed       int64     `mapstructure:"seed"`
	Start      time.Time `mapstructure:"start"`
	End        time.Time `mapstructure:"end"`
	Step       StepSize  `mapstructure:"step"`

	// VendorWeights assigns relative market share per vendor. Companies are
	// assigned a vendor proportionally to these weights.
	VendorWeights map[string]float64 `mapstructure:"vendor_weights"`

	// TierLevelWeights holds relative popularity per tier level, index 0 is
	// level 1. Typical shape: free tier dominant, enterprise rare.
	TierLevelWeights []float64 `mapstructure:"tier_level_weights"`

	// IndustryWeights assigns relative company counts per industry segment.
	IndustryWeights map[string]float64 `mapstructure:"industry_weights"`

	// IndustryTierBias skews tier selection toward higher levels for the
	// named industries. Effective weight per level is
	// tier_level_weights[level-1] * (1 + bias*(level-1)).
	IndustryTierBias map[string]float64 `mapstructure:"industry_tier_bias"`

	Segments SegmentsConfig `mapstructure:"segments"`

	// SSORetentionBonus multiplies the segment churn rate when the
	// subscription's current tier gates SSO. Values below 1 model the higher
	// switching cost of SSO-integrated customers.
	SSORetentionBonus float64 `mapstructure:"sso_retention_bonus"`
}

// RatesFor resolves the outcome rates for an (industry, sso-gate) segment.
func (c SimulationConfig) RatesFor(industry string, sso bool) SegmentRates {
	rates, ok := c.Segments.Industries[industry]
	if !ok {
		rates = c.Segments.Default
	}
	if sso {
		rates.Churn *= c.SSORetentionBonus
	}
	return rates
}

// Periods returns the period-end boundaries from start to end.
func (c SimulationConfig) Periods() []time.Time {
	var out []time.Time
	for t := c.Step.Next(c.Start); !t.After(c.End); t = c.Step.Next(t) {
		out = append(out, t)
	}
	return out
}

// DefaultSimulation returns the documented demo configuration. It mirrors
// the bundled demo pricing rule set and is logged verbatim at startup.
func DefaultSimulation() SimulationConfig {
	return SimulationConfig{
		Population: 10000,
		Seed:       42,
		Start:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Step:       StepMonth,
		VendorWeights: map[string]float64{
			"Notion": 0.15, "Asana": 0.12, "Monday": 0.13,
			"Trello": 0.14, "Miro": 0.11, "Figma": 0.13,
			"Airtable": 0.10, "Clickup": 0.08, "Coda": 0.04,
		},
		TierLevelWeights: []float64{0.60, 0.25, 0.12, 0.03},
		IndustryWeights: map[string]float64{
			"Technology": 0.25, "Marketing": 0.18, "Consulting": 0.15,
			"Finance": 0.10, "Education": 0.08, "Healthcare": 0.07,
			"Retail": 0.06, "Manufacturing": 0.05, "Nonprofit": 0.04,
			"Other": 0.02,
		},
		IndustryTierBias: map[string]float64{
			"Technology": 0.50,
			"Consulting": 0.40,
		},
		Segments: SegmentsConfig{
			Default: SegmentRates{Churn: 0.10, Upgrade: 0.05, Downgrade: 0.03},
			Industries: map[string]SegmentRates{
				"Retail": {Churn: 0.35, Upgrade: 0.02, Downgrade: 0.05},
			},
		},
		SSORetentionBonus: 0.5,
	}
}

// Load reads configuration from the given YAML file plus environment
// overrides (SAASBENCH_ prefix). An empty path loads pure defaults.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SAASBENCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app_name", "saasbench")
	v.SetDefault("environment", "development")
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "saasbench.db")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("server.addr", ":8080")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, simerr.Configf("config", "read %s: %v", path, err)
		}
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeHookFunc(time.DateOnly),
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return Config{}, simerr.Configf("config", "decode %s: %v", path, err)
	}

	if !v.IsSet("simulation") {
		cfg.Simulation = DefaultSimulation()
	}
	if cfg.Simulation.Step == "" {
		cfg.Simulation.Step = StepMonth
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces the configuration invariants. It fails fast, before any
// simulation work begins.
func (c Config) Validate() error {
	switch c.DB.Type {
	case "sqlite", "postgres":
	default:
		return simerr.Configf("database.type", "unsupported type %q", c.DB.Type)
	}
	return c.Simulation.Validate()
}

// Validate enforces the simulation invariants.
func (c SimulationConfig) Validate() error {
	if c.Population <= 0 {
		return simerr.Configf("simulation.population", "must be positive, got %d", c.Population)
	}
	if !c.Start.Before(c.End) {
		return simerr.Configf("simulation.start", "start %s must precede end %s",
			c.Start.Format(time.DateOnly), c.End.Format(time.DateOnly))
	}
	switch c.Step {
	case StepMonth, StepWeek, StepDay:
	default:
		return simerr.Configf("simulation.step", "must be month, week or day, got %q", c.Step)
	}
	if err := validateWeights("simulation.vendor_weights", c.VendorWeights); err != nil {
		return err
	}
	if err := validateWeights("simulation.industry_weights", c.IndustryWeights); err != nil {
		return err
	}
	if len(c.TierLevelWeights) == 0 {
		return simerr.Configf("simulation.tier_level_weights", "at least one tier level weight is required")
	}
	var tierSum float64
	for i, w := range c.TierLevelWeights {
		if w < 0 {
			return simerr.Configf("simulation.tier_level_weights", "level %d weight must not be negative", i+1)
		}
		tierSum += w
	}
	if tierSum == 0 {
		return simerr.Configf("simulation.tier_level_weights", "weights sum to zero")
	}
	for industry, bias := range c.IndustryTierBias {
		if bias < 0 {
			return simerr.Configf("simulation.industry_tier_bias", "bias for %s must not be negative", industry)
		}
	}
	if c.SSORetentionBonus < 0 || c.SSORetentionBonus > 1 {
		return simerr.Configf("simulation.sso_retention_bonus", "must be within [0,1], got %v", c.SSORetentionBonus)
	}
	if err := validateRates("simulation.segments.default", c.Segments.Default); err != nil {
		return err
	}
	for industry, rates := range c.Segments.Industries {
		if err := validateRates("simulation.segments.industries."+industry, rates); err != nil {
			return err
		}
	}
	return nil
}

func validateWeights(key string, weights map[string]float64) error {
	if len(weights) == 0 {
		return simerr.Configf(key, "at least one weight is required")
	}
	var sum float64
	for name, w := range weights {
		if w < 0 {
			return simerr.Configf(key, "weight for %s must not be negative", name)
		}
		sum += w
	}
	if sum == 0 {
		return simerr.Configf(key, "weights sum to zero")
	}
	return nil
}

func validateRates(key string, rates SegmentRates) error {
	for name, p := range map[string]float64{
		"churn": rates.Churn, "upgrade": rates.Upgrade, "downgrade": rates.Downgrade,
	} {
		if p < 0 || p > 1 {
			return simerr.Configf(key+"."+name, "probability must be within [0,1], got %v", p)
		}
	}
	if rates.Sum() > 1 {
		return simerr.Configf(key, "outcome probabilities sum to %v, must not exceed 1", rates.Sum())
	}
	return nil
}

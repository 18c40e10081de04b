package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/kvh-4114/trade-strategies-sub001/services/engine"
)

// Config holds one run's full configuration. A loaded Config is immutable for
// the duration of a run; parameter sweeps are repeated invocations with
// different files.
type Config struct {
	Instruments []string `yaml:"instruments"`

	Data struct {
		CSVDir        string `yaml:"csv_dir"`
		ClickHouseDSN string `yaml:"clickhouse_dsn"`
	} `yaml:"data"`

	Strategy struct {
		Name    string  `yaml:"name"` // dual_lr or meanrev
		BarDays int     `yaml:"bar_days"`
		Entry   Channel `yaml:"entry"`
		Exit    Channel `yaml:"exit"`

		TrendPeriod     int     `yaml:"trend_period"`
		TrendMultiplier float64 `yaml:"trend_multiplier"`
		MeanPeriod      int     `yaml:"mean_period"`
		EntryRule       string  `yaml:"entry_rule"`
		ExitRule        string  `yaml:"exit_rule"`
		Tolerance       float64 `yaml:"tolerance"`
		Periods         int     `yaml:"periods"`
		MinPercent      float64 `yaml:"min_percent"`
		TargetPercent   float64 `yaml:"target_percent"`
		MaxBars         int     `yaml:"max_bars"`
	} `yaml:"strategy"`

	Portfolio struct {
		Frequency      string  `yaml:"frequency"`
		Start          string  `yaml:"start"`
		End            string  `yaml:"end"`
		LookbackBars   int     `yaml:"lookback_bars"`
		MinHistoryBars int     `yaml:"min_history_bars"`
		EntryFraction  float64 `yaml:"entry_fraction"`
		HoldFraction   float64 `yaml:"hold_fraction"`
		Allocation     float64 `yaml:"allocation"`
		StartingCash   float64 `yaml:"starting_cash"`
	} `yaml:"portfolio"`

	Output struct {
		SQLitePath string `yaml:"sqlite_path"`
		ArrowDir   string `yaml:"arrow_dir"`
	} `yaml:"output"`

	Server struct {
		Listen string `yaml:"listen"`
	} `yaml:"server"`
}

// Channel mirrors engine.ChannelConfig in YAML.
type Channel struct {
	Period    int `yaml:"period"`
	Lookahead int `yaml:"lookahead"`
}

// Load reads a YAML config file and applies defaults. Environment overrides
// cover the deploy-specific endpoints only.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		cfg.Data.ClickHouseDSN = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Output.SQLitePath = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Strategy.Name == "" {
		c.Strategy.Name = "dual_lr"
	}
	if c.Strategy.BarDays == 0 {
		c.Strategy.BarDays = 4
	}
	if c.Strategy.Entry.Period == 0 {
		c.Strategy.Entry = Channel{Period: 13, Lookahead: 0}
	}
	if c.Strategy.Exit.Period == 0 {
		c.Strategy.Exit = Channel{Period: 21, Lookahead: -3}
	}
	if c.Strategy.TrendPeriod == 0 {
		c.Strategy.TrendPeriod = 10
	}
	if c.Strategy.TrendMultiplier == 0 {
		c.Strategy.TrendMultiplier = 3.0
	}
	if c.Strategy.MeanPeriod == 0 {
		c.Strategy.MeanPeriod = 20
	}
	if c.Strategy.EntryRule == "" {
		c.Strategy.EntryRule = "close_below"
	}
	if c.Strategy.ExitRule == "" {
		c.Strategy.ExitRule = "mean"
	}
	if c.Portfolio.Frequency == "" {
		c.Portfolio.Frequency = "monthly"
	}
	if c.Portfolio.LookbackBars == 0 {
		c.Portfolio.LookbackBars = 90
	}
	if c.Portfolio.MinHistoryBars == 0 {
		c.Portfolio.MinHistoryBars = 30
	}
	if c.Portfolio.EntryFraction == 0 {
		c.Portfolio.EntryFraction = 0.2
	}
	if c.Portfolio.HoldFraction == 0 {
		c.Portfolio.HoldFraction = 0.3
	}
	if c.Portfolio.Allocation == 0 {
		c.Portfolio.Allocation = 10000
	}
	if c.Portfolio.StartingCash == 0 {
		c.Portfolio.StartingCash = 1000000
	}
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
}

// Validate checks cross-field constraints that Load cannot default away.
func (c *Config) Validate() error {
	if len(c.Instruments) == 0 {
		return engine.ConfigError{Field: "instruments", Reason: "at least one required"}
	}
	if c.Data.CSVDir == "" && c.Data.ClickHouseDSN == "" {
		return engine.ConfigError{Field: "data", Reason: "csv_dir or clickhouse_dsn required"}
	}
	switch c.Strategy.Name {
	case "dual_lr", "meanrev":
	default:
		return engine.ConfigError{Field: "strategy.name", Reason: fmt.Sprintf("unknown strategy %q", c.Strategy.Name)}
	}
	if _, err := c.SimConfig(); err != nil {
		return err
	}
	return nil
}

// RuleParams maps the flat strategy knobs onto the evaluator parameter set.
func (c *Config) RuleParams() engine.RuleParams {
	return engine.RuleParams{
		Tolerance:     c.Strategy.Tolerance,
		Periods:       c.Strategy.Periods,
		MinPercent:    c.Strategy.MinPercent,
		TargetPercent: c.Strategy.TargetPercent,
		MaxBars:       c.Strategy.MaxBars,
	}
}

// SimConfig builds the validated simulator configuration.
func (c *Config) SimConfig() (engine.SimConfig, error) {
	start, err := time.Parse("2006-01-02", c.Portfolio.Start)
	if err != nil {
		return engine.SimConfig{}, engine.ConfigError{Field: "portfolio.start", Reason: err.Error()}
	}
	end, err := time.Parse("2006-01-02", c.Portfolio.End)
	if err != nil {
		return engine.SimConfig{}, engine.ConfigError{Field: "portfolio.end", Reason: err.Error()}
	}
	sim := engine.SimConfig{
		Calendar: engine.CalendarConfig{
			Frequency: c.Portfolio.Frequency,
			Start:     start,
			End:       end,
		},
		LookbackBars:   c.Portfolio.LookbackBars,
		MinHistoryBars: c.Portfolio.MinHistoryBars,
		EntryFraction:  c.Portfolio.EntryFraction,
		HoldFraction:   c.Portfolio.HoldFraction,
		Allocation:     decimal.NewFromFloat(c.Portfolio.Allocation),
		StartingCash:   decimal.NewFromFloat(c.Portfolio.StartingCash),
	}
	if err := sim.Validate(); err != nil {
		return engine.SimConfig{}, err
	}
	return sim, nil
}

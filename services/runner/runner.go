// Package runner executes one configured backtest end to end: data load,
// per-instrument rule evaluation, portfolio simulation, reporting, artifact
// persistence.
package runner

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kvh-4114/trade-strategies-sub001/services/config"
	"github.com/kvh-4114/trade-strategies-sub001/services/engine"
	"github.com/kvh-4114/trade-strategies-sub001/services/loader"
	"github.com/kvh-4114/trade-strategies-sub001/services/recorder"
	"github.com/kvh-4114/trade-strategies-sub001/services/storage"
	"github.com/kvh-4114/trade-strategies-sub001/strategies"
)

// Result is everything one run produces.
type Result struct {
	RunID          string            `json:"run_id"`
	StrategyTrades []engine.Trade    `json:"strategy_trades"`
	Trades         []engine.Trade    `json:"trades"`
	Snapshots      []engine.Snapshot `json:"snapshots"`
	Report         engine.Report     `json:"report"`
}

// Runner holds the wiring for repeated runs of one configuration.
type Runner struct {
	cfg *config.Config
	rec recorder.Recorder
	log *zap.Logger
}

func New(cfg *config.Config, rec recorder.Recorder, log *zap.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{cfg: cfg, rec: rec, log: log}, nil
}

// buildStrategy resolves the configured per-instrument strategy. Bad rule
// names surface here, before any data is touched.
func (r *Runner) buildStrategy() (strategies.Strategy, error) {
	switch r.cfg.Strategy.Name {
	case "dual_lr":
		s := strategies.NewDualLRStrategy(r.log)
		s.BarDays = r.cfg.Strategy.BarDays
		s.Entry = engine.ChannelConfig{Period: r.cfg.Strategy.Entry.Period, Lookahead: r.cfg.Strategy.Entry.Lookahead}
		s.Exit = engine.ChannelConfig{Period: r.cfg.Strategy.Exit.Period, Lookahead: r.cfg.Strategy.Exit.Lookahead}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		return s, nil
	case "meanrev":
		s, err := strategies.NewMeanRevStrategy(r.cfg.Strategy.EntryRule, r.cfg.Strategy.ExitRule, r.cfg.RuleParams(), r.log)
		if err != nil {
			return nil, err
		}
		s.Trend = engine.TrendConfig{Period: r.cfg.Strategy.TrendPeriod, Multiplier: r.cfg.Strategy.TrendMultiplier}
		s.MeanPeriod = r.cfg.Strategy.MeanPeriod
		if err := s.Validate(); err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, engine.ConfigError{Field: "strategy.name", Reason: fmt.Sprintf("unknown strategy %q", r.cfg.Strategy.Name)}
}

// loadUniverse reads every instrument's daily bars from the configured
// source. ClickHouse wins when both are configured.
func (r *Runner) loadUniverse(ctx context.Context) (map[string][]engine.Bar, error) {
	if dsn := r.cfg.Data.ClickHouseDSN; dsn != "" {
		store, err := storage.Open(dsn, r.log)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.Universe(ctx, r.cfg.Instruments)
	}
	return loader.ReadDir(r.cfg.Data.CSVDir, r.cfg.Instruments)
}

// Run executes the full pipeline once.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	runID := uuid.New().String()
	log := r.log.With(zap.String("run_id", runID))

	universe, err := r.loadUniverse(ctx)
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}
	log.Info("universe loaded", zap.Int("instruments", len(universe)))

	strat, err := r.buildStrategy()
	if err != nil {
		return nil, err
	}

	var strategyTrades []engine.Trade
	for _, sym := range r.cfg.Instruments {
		trades, err := strat.Run(sym, universe[sym])
		if err != nil {
			if engine.Skippable(err) {
				log.Warn("instrument skipped", zap.String("instrument", sym), zap.Error(err))
				continue
			}
			return nil, fmt.Errorf("strategy %s on %s: %w", strat.Name(), sym, err)
		}
		strategyTrades = append(strategyTrades, trades...)
	}
	log.Info("rule evaluation complete",
		zap.String("strategy", strat.Name()),
		zap.Int("trades", len(strategyTrades)))

	simCfg, err := r.cfg.SimConfig()
	if err != nil {
		return nil, err
	}
	sim, err := engine.NewSimulator(simCfg, log)
	if err != nil {
		return nil, err
	}
	simResult, err := sim.Run(universe)
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	report := engine.AnnualReport(simResult.Trades, simResult.Snapshots)
	log.Info("simulation complete",
		zap.Int("trades", len(simResult.Trades)),
		zap.Int("snapshots", len(simResult.Snapshots)),
		zap.Float64("total_return_pct", report.Overall.TotalReturnPct))

	if err := r.persist(ctx, runID, strategyTrades, simResult, report); err != nil {
		return nil, err
	}

	return &Result{
		RunID:          runID,
		StrategyTrades: strategyTrades,
		Trades:         simResult.Trades,
		Snapshots:      simResult.Snapshots,
		Report:         report,
	}, nil
}

func (r *Runner) persist(ctx context.Context, runID string, strategyTrades []engine.Trade, sim engine.SimResult, report engine.Report) error {
	if err := r.rec.RecordTrades(runID, append(append([]engine.Trade{}, strategyTrades...), sim.Trades...)); err != nil {
		return fmt.Errorf("record trades: %w", err)
	}
	if err := r.rec.RecordSnapshots(runID, sim.Snapshots); err != nil {
		return fmt.Errorf("record snapshots: %w", err)
	}
	if err := r.rec.RecordAnnual(runID, report.Annual); err != nil {
		return fmt.Errorf("record annual stats: %w", err)
	}

	if dsn := r.cfg.Data.ClickHouseDSN; dsn != "" {
		store, err := storage.Open(dsn, r.log)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.SaveTrades(ctx, runID, sim.Trades); err != nil {
			return err
		}
		if err := store.SaveSnapshots(ctx, runID, sim.Snapshots); err != nil {
			return err
		}
	}
	return nil
}

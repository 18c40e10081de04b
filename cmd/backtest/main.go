// Command backtest runs one configured backtest and prints the annual report.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/kvh-4114/trade-strategies-sub001/services/arrowfeed"
	"github.com/kvh-4114/trade-strategies-sub001/services/config"
	"github.com/kvh-4114/trade-strategies-sub001/services/recorder"
	"github.com/kvh-4114/trade-strategies-sub001/services/runner"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "Run configuration (YAML)")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	logger, err := buildLogger(*verbose)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Output.SQLitePath != "" {
		sq, err := recorder.NewSQLiteRecorder(cfg.Output.SQLitePath)
		if err != nil {
			logger.Fatal("open recorder", zap.Error(err))
		}
		rec = sq
	}
	defer rec.Close()

	run, err := runner.New(cfg, rec, logger)
	if err != nil {
		logger.Fatal("build runner", zap.Error(err))
	}
	result, err := run.Run(context.Background())
	if err != nil {
		logger.Fatal("run", zap.Error(err))
	}

	if dir := cfg.Output.ArrowDir; dir != "" {
		if err := writeArrow(dir, result); err != nil {
			logger.Fatal("write arrow artifacts", zap.Error(err))
		}
	}

	printReport(result)
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func writeArrow(dir string, result *runner.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := arrowfeed.EncodeSnapshots(result.Snapshots)
	if err != nil {
		return err
	}
	return os.WriteFile(dir+"/snapshots_"+result.RunID+".arrow", data, 0o644)
}

func printReport(result *runner.Result) {
	fmt.Printf("run %s: %d trades, %d snapshots\n\n", result.RunID, len(result.Trades), len(result.Snapshots))
	fmt.Printf("%-6s %10s %10s %7s %6s %8s %8s %9s %9s %9s %8s\n",
		"year", "return%", "maxDD%", "trades", "wins", "winrate%", "pf", "avgWin%", "avgLoss%", "holdDays", "avgPos")
	for _, st := range result.Report.Annual {
		fmt.Printf("%-6d %10.2f %10.2f %7d %6d %8.1f %8.2f %9.2f %9.2f %9.1f %8.1f\n",
			st.Year, st.ReturnPct, st.MaxDrawdownPct, st.Trades, st.Wins, st.WinRatePct,
			st.ProfitFactor, st.AvgWinPct, st.AvgLossPct, st.AvgHoldDays, st.AvgPositions)
	}
	o := result.Report.Overall
	fmt.Printf("\ntotal return %.2f%%  max drawdown %.2f%%  trades %d  win rate %.1f%%  profit factor %.2f\n",
		o.TotalReturnPct, o.MaxDrawdownPct, o.Trades, o.WinRatePct, o.ProfitFactor)
}

// Package recorder persists run artifacts locally for after-the-fact
// analysis.
package recorder

import (
	"github.com/kvh-4114/trade-strategies-sub001/services/engine"
)

// Recorder persists one run's trades, equity curve, and annual report.
type Recorder interface {
	RecordTrades(runID string, trades []engine.Trade) error
	RecordSnapshots(runID string, snaps []engine.Snapshot) error
	RecordAnnual(runID string, stats []engine.AnnualStats) error
	Close() error
}

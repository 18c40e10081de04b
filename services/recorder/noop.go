package recorder

import "github.com/kvh-4114/trade-strategies-sub001/services/engine"

// NoopRecorder is used when no SQLite path is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordTrades(_ string, _ []engine.Trade) error       { return nil }
func (n *NoopRecorder) RecordSnapshots(_ string, _ []engine.Snapshot) error { return nil }
func (n *NoopRecorder) RecordAnnual(_ string, _ []engine.AnnualStats) error { return nil }
func (n *NoopRecorder) Close() error                                        { return nil }

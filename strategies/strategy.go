package strategies

import (
	"github.com/kvh-4114/trade-strategies-sub001/services/engine"
)

// Strategy turns one instrument's daily bar history into a closed trade log.
// Implementations are deterministic: the same bars always produce the same
// trades.
type Strategy interface {
	Name() string
	Run(instrument string, daily []engine.Bar) ([]engine.Trade, error)
}

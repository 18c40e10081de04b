package strategies

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kvh-4114/trade-strategies-sub001/services/engine"
)

// MeanRevStrategy buys weakness against the trend bands and sells the
// recovery. The band state machine supplies the lower band for entries and
// the upper band for exits; the mean is a simple moving average of close.
// Which rule variant fires on each side comes from configuration and is
// resolved at construction, so a bad rule name never reaches a run.
type MeanRevStrategy struct {
	Trend      engine.TrendConfig
	MeanPeriod int
	Allocation decimal.Decimal

	entry *engine.EntryEvaluator
	exit  *engine.ExitEvaluator
	log   *zap.Logger
}

func NewMeanRevStrategy(entryRule, exitRule string, params engine.RuleParams, log *zap.Logger) (*MeanRevStrategy, error) {
	entry, err := engine.NewEntryEvaluator(entryRule, params)
	if err != nil {
		return nil, err
	}
	exit, err := engine.NewExitEvaluator(exitRule, params)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &MeanRevStrategy{
		Trend:      engine.TrendConfig{Period: 10, Multiplier: 3.0},
		MeanPeriod: 20,
		Allocation: decimal.NewFromInt(10000),
		entry:      entry,
		exit:       exit,
		log:        log,
	}, nil
}

func (s *MeanRevStrategy) Name() string { return "meanrev" }

func (s *MeanRevStrategy) Validate() error {
	if err := s.Trend.Validate(); err != nil {
		return err
	}
	if s.MeanPeriod < 1 {
		return engine.ConfigError{Field: "meanrev.mean_period", Reason: "must be >= 1"}
	}
	if !s.Allocation.IsPositive() {
		return engine.ConfigError{Field: "meanrev.allocation", Reason: "must be positive"}
	}
	return nil
}

// Run replays the rule set over one instrument's daily bars.
func (s *MeanRevStrategy) Run(instrument string, daily []engine.Bar) ([]engine.Trade, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	states, err := engine.ComputeTrend(daily, s.Trend)
	if err != nil {
		return nil, fmt.Errorf("trend %s: %w", instrument, err)
	}
	closes := engine.Closes(daily)
	mean := engine.SMA(closes, s.MeanPeriod)

	ledger := engine.NewLedger()
	entryBar := -1
	var entryPrice float64

	// Trailing history for the consecutive-below variant: only bars with a
	// live band state are recorded, so the window never straddles warmup.
	var histCloses, histBands []float64

	for i, bar := range daily {
		st := states[i]
		if st.Direction == engine.TrendNone {
			continue
		}
		histCloses = append(histCloses, bar.Close)
		histBands = append(histBands, st.LowerBand)

		if ledger.Position(instrument) == nil {
			fire, err := s.entry.Evaluate(engine.EntrySnapshot{
				Close:      bar.Close,
				LowerBand:  st.LowerBand,
				Closes:     histCloses,
				LowerBands: histBands,
			})
			if err != nil {
				return nil, err
			}
			if !fire {
				continue
			}
			price := decimal.NewFromFloat(bar.Close)
			if !price.IsPositive() {
				continue
			}
			shares := s.Allocation.Div(price).IntPart()
			if shares < 1 {
				continue
			}
			if err := ledger.Open(instrument, engine.Entry{Date: bar.Timestamp, Price: price, Shares: shares, Tag: "meanrev"}); err != nil {
				return nil, err
			}
			entryBar = i
			entryPrice = bar.Close
			continue
		}

		fire, err := s.exit.Evaluate(engine.ExitSnapshot{
			Close:      bar.Close,
			Mean:       mean[i],
			UpperBand:  st.UpperBand,
			EntryPrice: entryPrice,
			BarsHeld:   i - entryBar,
		})
		if err != nil {
			return nil, err
		}
		if !fire {
			continue
		}
		if _, err := ledger.Close(instrument, bar.Timestamp, decimal.NewFromFloat(bar.Close), "exit_rule"); err != nil {
			return nil, err
		}
		entryBar = -1
	}

	if last := daily[len(daily)-1]; ledger.Position(instrument) != nil {
		if _, err := ledger.Close(instrument, last.Timestamp, decimal.NewFromFloat(last.Close), "end_of_data"); err != nil {
			return nil, err
		}
	}
	return ledger.Trades(), nil
}

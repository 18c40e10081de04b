package strategies

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kvh-4114/trade-strategies-sub001/services/engine"
)

// DualLRStrategy trades regression-candle breakouts on smoothed multi-day
// bars. Two independently tuned channels drive it: a fast one for entries and
// a slower, backcast one for exits, so entries catch trends early while exits
// let winners run.
//
// Entry: regression candle green and close above the regression high.
// Pyramid: same signal while holding, at most once per position.
// Exit: regression candle red, or close below the regression low.
type DualLRStrategy struct {
	BarDays        int
	Entry          engine.ChannelConfig
	Exit           engine.ChannelConfig
	InitialCapital decimal.Decimal
	PyramidCapital decimal.Decimal

	log *zap.Logger
}

func NewDualLRStrategy(log *zap.Logger) *DualLRStrategy {
	if log == nil {
		log = zap.NewNop()
	}
	return &DualLRStrategy{
		BarDays:        4,
		Entry:          engine.ChannelConfig{Period: 13, Lookahead: 0},
		Exit:           engine.ChannelConfig{Period: 21, Lookahead: -3},
		InitialCapital: decimal.NewFromInt(7000),
		PyramidCapital: decimal.NewFromInt(5000),
		log:            log,
	}
}

func (s *DualLRStrategy) Name() string { return "dual_lr" }

// Validate rejects unusable parameters at configuration time.
func (s *DualLRStrategy) Validate() error {
	if s.BarDays < 1 {
		return engine.ConfigError{Field: "dual_lr.bar_days", Reason: "must be >= 1"}
	}
	if err := s.Entry.Validate("dual_lr.entry"); err != nil {
		return err
	}
	if err := s.Exit.Validate("dual_lr.exit"); err != nil {
		return err
	}
	if !s.InitialCapital.IsPositive() {
		return engine.ConfigError{Field: "dual_lr.initial_capital", Reason: "must be positive"}
	}
	if !s.PyramidCapital.IsPositive() {
		return engine.ConfigError{Field: "dual_lr.pyramid_capital", Reason: "must be positive"}
	}
	return nil
}

// Run replays the rule set over one instrument. Daily bars are aggregated to
// BarDays buckets and smoothed before the channels are fit; signals and fills
// both use the smoothed close.
func (s *DualLRStrategy) Run(instrument string, daily []engine.Bar) ([]engine.Trade, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	agg, err := engine.AggregateBars(daily, s.BarDays, engine.EpochOrigin)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", instrument, err)
	}
	smooth, err := engine.SmoothCandles(agg)
	if err != nil {
		return nil, fmt.Errorf("smooth %s: %w", instrument, err)
	}
	entryCh, err := s.Entry.Candles(smooth)
	if err != nil {
		return nil, fmt.Errorf("entry channel %s: %w", instrument, err)
	}
	exitCh, err := s.Exit.Candles(smooth)
	if err != nil {
		return nil, fmt.Errorf("exit channel %s: %w", instrument, err)
	}

	ledger := engine.NewLedger()
	pyramided := false

	for i, bar := range smooth {
		if !engine.Defined(entryCh.Open[i]) || !engine.Defined(exitCh.Open[i]) {
			continue
		}
		entryGreen := entryCh.Close[i] > entryCh.Open[i]
		exitRed := exitCh.Close[i] < exitCh.Open[i]
		signal := entryGreen && bar.Close > entryCh.High[i]
		price := decimal.NewFromFloat(bar.Close)

		if ledger.Position(instrument) == nil {
			pyramided = false
			if !signal || !price.IsPositive() {
				continue
			}
			shares := s.InitialCapital.Div(price).IntPart()
			if shares < 1 {
				continue
			}
			if err := ledger.Open(instrument, engine.Entry{Date: bar.Timestamp, Price: price, Shares: shares, Tag: "first"}); err != nil {
				return nil, err
			}
			s.log.Debug("opened", zap.String("instrument", instrument), zap.Time("date", bar.Timestamp), zap.Int64("shares", shares))
			continue
		}

		if !pyramided && signal && price.IsPositive() {
			if shares := s.PyramidCapital.Div(price).IntPart(); shares >= 1 {
				if err := ledger.Pyramid(instrument, engine.Entry{Date: bar.Timestamp, Price: price, Shares: shares, Tag: "pyramid"}); err != nil {
					return nil, err
				}
				pyramided = true
			}
		}

		if exitRed || bar.Close < exitCh.Low[i] {
			reason := "lr_red"
			if !exitRed {
				reason = "below_lr_low"
			}
			if _, err := ledger.Close(instrument, bar.Timestamp, price, reason); err != nil {
				return nil, err
			}
		}
	}

	// Open positions do not survive the end of data.
	if last := smooth[len(smooth)-1]; ledger.Position(instrument) != nil {
		if _, err := ledger.Close(instrument, last.Timestamp, decimal.NewFromFloat(last.Close), "end_of_data"); err != nil {
			return nil, err
		}
	}
	return ledger.Trades(), nil
}

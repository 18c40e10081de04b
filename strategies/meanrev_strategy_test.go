package strategies

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kvh-4114/trade-strategies-sub001/services/engine"
)

func rangeDays(bars []engine.Bar, start time.Time, n int, close float64) []engine.Bar {
	offset := len(bars)
	for i := 0; i < n; i++ {
		ts := start.AddDate(0, 0, offset+i)
		bars = append(bars, engine.Bar{
			Timestamp: ts,
			Open:      close,
			High:      close + 1,
			Low:       close - 1,
			Close:     close,
			Volume:    100,
		})
	}
	return bars
}

// One dip below the band opens the position, the time stop closes it two bars
// later. Every band value on the path is hand-checked: at the dip the carried
// lower band is still 98, so close 95 fires the entry.
func TestMeanRev_DipAndTimeStop(t *testing.T) {
	start := time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC)
	var daily []engine.Bar
	daily = rangeDays(daily, start, 6, 100)
	daily = rangeDays(daily, start, 1, 95)
	daily = rangeDays(daily, start, 8, 100)

	s, err := NewMeanRevStrategy("close_below", "time_based", engine.RuleParams{MaxBars: 2}, nil)
	if err != nil {
		t.Fatalf("strategy: %v", err)
	}
	s.Trend = engine.TrendConfig{Period: 3, Multiplier: 1.0}
	s.MeanPeriod = 3

	trades, err := s.Run("AMD", daily)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(trades))
	}

	tr := trades[0]
	if !tr.AvgEntryPrice.Equal(decimal.NewFromInt(95)) {
		t.Errorf("entry = %s, want 95", tr.AvgEntryPrice)
	}
	if !tr.ExitPrice.Equal(decimal.NewFromInt(100)) {
		t.Errorf("exit = %s, want 100", tr.ExitPrice)
	}
	if tr.Shares != 105 { // 10000 / 95 floored
		t.Errorf("shares = %d, want 105", tr.Shares)
	}
	if !tr.PnL.Equal(decimal.NewFromInt(525)) {
		t.Errorf("pnl = %s, want 525", tr.PnL)
	}
	if tr.ExitReason != "exit_rule" {
		t.Errorf("exit reason = %q, want exit_rule", tr.ExitReason)
	}
	// Two bars held on daily data.
	if got := tr.ExitDate.Sub(tr.EntryDates[0]); got != 48*time.Hour {
		t.Errorf("held %s, want 48h", got)
	}
}

func TestMeanRev_OpenPositionClosedAtEnd(t *testing.T) {
	start := time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC)
	var daily []engine.Bar
	daily = rangeDays(daily, start, 6, 100)
	daily = rangeDays(daily, start, 1, 95)

	s, err := NewMeanRevStrategy("close_below", "time_based", engine.RuleParams{MaxBars: 10}, nil)
	if err != nil {
		t.Fatalf("strategy: %v", err)
	}
	s.Trend = engine.TrendConfig{Period: 3, Multiplier: 1.0}

	trades, err := s.Run("AMD", daily)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(trades))
	}
	if trades[0].ExitReason != "end_of_data" {
		t.Errorf("exit reason = %q, want end_of_data", trades[0].ExitReason)
	}
	if !trades[0].ExitPrice.Equal(decimal.NewFromInt(95)) {
		t.Errorf("exit = %s, want last close 95", trades[0].ExitPrice)
	}
}

func TestMeanRev_UnknownRuleRejectedAtConstruction(t *testing.T) {
	var cfgErr engine.ConfigError
	if _, err := NewMeanRevStrategy("bogus", "mean", engine.RuleParams{}, nil); !errors.As(err, &cfgErr) {
		t.Fatalf("entry rule: err = %v, want ConfigError", err)
	}
	if _, err := NewMeanRevStrategy("close_below", "bogus", engine.RuleParams{}, nil); !errors.As(err, &cfgErr) {
		t.Fatalf("exit rule: err = %v, want ConfigError", err)
	}
	if _, err := NewMeanRevStrategy("close_below", "time_based", engine.RuleParams{}, nil); !errors.As(err, &cfgErr) {
		t.Fatalf("time_based without max_bars: err = %v, want ConfigError", err)
	}
}

func TestMeanRev_InsufficientHistory(t *testing.T) {
	start := time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC)
	daily := rangeDays(nil, start, 5, 100)

	s, err := NewMeanRevStrategy("close_below", "mean", engine.RuleParams{}, nil)
	if err != nil {
		t.Fatalf("strategy: %v", err)
	}
	if _, err := s.Run("AMD", daily); !errors.Is(err, engine.ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}

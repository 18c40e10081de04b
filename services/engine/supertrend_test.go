package engine

import (
	"errors"
	"testing"
	"time"
)

func trendBars(prices ...float64) []Bar {
	bars := make([]Bar, len(prices))
	for i, p := range prices {
		bars[i] = Bar{
			Timestamp: day(2020, time.January, 1).AddDate(0, 0, i),
			Open:      p,
			High:      p + 1,
			Low:       p - 1,
			Close:     p,
		}
	}
	return bars
}

func TestComputeTrend_InsufficientData(t *testing.T) {
	bars := trendBars(1, 2, 3)
	cfg := TrendConfig{Period: 3, Multiplier: 3}
	if _, err := ComputeTrend(bars, cfg); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestComputeTrend_Warmup(t *testing.T) {
	bars := trendBars(10, 11, 12, 13, 14, 15)
	cfg := TrendConfig{Period: 3, Multiplier: 2}
	states, err := ComputeTrend(bars, cfg)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	for i := 0; i < cfg.Period; i++ {
		if states[i].Direction != TrendNone {
			t.Errorf("state[%d].Direction = %v, want TrendNone", i, states[i].Direction)
		}
	}
	if states[cfg.Period].Direction == TrendNone {
		t.Errorf("state[%d] should be initialized", cfg.Period)
	}
}

func TestComputeTrend_TighteningOnly(t *testing.T) {
	// Rising then falling prices. While the close stays inside a band, that
	// band may only move toward price, never away from it.
	bars := trendBars(100, 101, 103, 102, 104, 106, 105, 107, 103, 99, 95, 92, 94, 90)
	cfg := TrendConfig{Period: 3, Multiplier: 3}
	states, err := ComputeTrend(bars, cfg)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}

	for i := cfg.Period + 1; i < len(states); i++ {
		prev, cur := states[i-1], states[i]
		prevClose := bars[i-1].Close
		if prevClose <= prev.UpperBand && cur.UpperBand > prev.UpperBand {
			t.Errorf("bar %d: upper band loosened %v -> %v with close inside", i, prev.UpperBand, cur.UpperBand)
		}
		if prevClose >= prev.LowerBand && cur.LowerBand < prev.LowerBand {
			t.Errorf("bar %d: lower band loosened %v -> %v with close inside", i, prev.LowerBand, cur.LowerBand)
		}
	}
}

func TestComputeTrend_FlipAndLine(t *testing.T) {
	// Strong rally then a crash deep enough to cross the carried lower band.
	bars := trendBars(100, 102, 104, 106, 108, 110, 112, 114, 80, 60, 50, 45)
	cfg := TrendConfig{Period: 3, Multiplier: 2}
	states, err := ComputeTrend(bars, cfg)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}

	flips := 0
	for i := cfg.Period + 1; i < len(states); i++ {
		if states[i].Direction != states[i-1].Direction {
			flips++
		}
		switch states[i].Direction {
		case TrendUp:
			if states[i].Line != states[i].LowerBand {
				t.Errorf("bar %d: uptrend line %v != lower band %v", i, states[i].Line, states[i].LowerBand)
			}
		case TrendDown:
			if states[i].Line != states[i].UpperBand {
				t.Errorf("bar %d: downtrend line %v != upper band %v", i, states[i].Line, states[i].UpperBand)
			}
		}
	}
	if flips == 0 {
		t.Fatal("expected at least one direction flip in crash scenario")
	}
}

func TestNextTrendState_OneFlipPerBar(t *testing.T) {
	prev := TrendState{Direction: TrendUp, UpperBand: 110, LowerBand: 90, Line: 90}
	next := NextTrendState(prev, 100, 108, 88, 85)
	if next.Direction != TrendDown {
		t.Fatalf("expected flip to TrendDown, got %v", next.Direction)
	}
	// Same transition applied again from the flipped state must not flip
	// back without the close crossing the opposite band.
	again := NextTrendState(next, 85, 108, 88, 86)
	if again.Direction != TrendDown {
		t.Fatalf("direction flapped back to %v without crossing upper band", again.Direction)
	}
}

func TestTrueRangeAvg_Warmup(t *testing.T) {
	bars := trendBars(10, 11, 12, 13)
	atr := TrueRangeAvg(bars, 2)
	if Defined(atr[0]) || Defined(atr[1]) {
		t.Error("samples before index period should be absent")
	}
	if !Defined(atr[2]) || !Defined(atr[3]) {
		t.Error("samples from index period on should be defined")
	}
}

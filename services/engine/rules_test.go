package engine

import (
	"errors"
	"testing"
)

func mustEntry(t *testing.T, name string, params RuleParams) *EntryEvaluator {
	t.Helper()
	e, err := NewEntryEvaluator(name, params)
	if err != nil {
		t.Fatalf("entry %q: %v", name, err)
	}
	return e
}

func mustExit(t *testing.T, name string, params RuleParams) *ExitEvaluator {
	t.Helper()
	e, err := NewExitEvaluator(name, params)
	if err != nil {
		t.Fatalf("exit %q: %v", name, err)
	}
	return e
}

func evalEntry(t *testing.T, e *EntryEvaluator, s EntrySnapshot) bool {
	t.Helper()
	fire, err := e.Evaluate(s)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	return fire
}

func evalExit(t *testing.T, e *ExitEvaluator, s ExitSnapshot) bool {
	t.Helper()
	fire, err := e.Evaluate(s)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	return fire
}

func TestUnknownRuleNames(t *testing.T) {
	var cfgErr ConfigError
	if _, err := NewEntryEvaluator("buy_the_dip", RuleParams{}); !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigError for unknown entry rule, got %v", err)
	}
	if _, err := NewExitEvaluator("moon", RuleParams{}); !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigError for unknown exit rule, got %v", err)
	}
}

func TestEntryCloseBelowBand(t *testing.T) {
	e := mustEntry(t, "close_below", RuleParams{})
	if !evalEntry(t, e, EntrySnapshot{Close: 99, LowerBand: 100}) {
		t.Error("close 99 below band 100 should fire")
	}
	if evalEntry(t, e, EntrySnapshot{Close: 100, LowerBand: 100}) {
		t.Error("close equal to band should not fire")
	}
	if evalEntry(t, e, EntrySnapshot{Close: 99, LowerBand: Absent()}) {
		t.Error("absent band should not fire")
	}
}

func TestEntryTouchBand(t *testing.T) {
	e := mustEntry(t, "touch", RuleParams{Tolerance: 0.001})
	if !evalEntry(t, e, EntrySnapshot{Close: 100.05, LowerBand: 100}) {
		t.Error("close within tolerance should fire")
	}
	if evalEntry(t, e, EntrySnapshot{Close: 100.2, LowerBand: 100}) {
		t.Error("close above tolerance should not fire")
	}
}

func TestEntryConsecutiveBelow(t *testing.T) {
	e := mustEntry(t, "consecutive_below", RuleParams{Periods: 2})

	fire := evalEntry(t, e, EntrySnapshot{
		Closes:     []float64{98, 99},
		LowerBands: []float64{100, 100},
	})
	if !fire {
		t.Error("closes [98 99] vs bands [100 100] should fire")
	}

	fire = evalEntry(t, e, EntrySnapshot{
		Closes:     []float64{101, 99},
		LowerBands: []float64{100, 100},
	})
	if fire {
		t.Error("closes [101 99] vs bands [100 100] should not fire")
	}

	// Short history never fires.
	fire = evalEntry(t, e, EntrySnapshot{
		Closes:     []float64{99},
		LowerBands: []float64{100},
	})
	if fire {
		t.Error("one bar of history cannot satisfy two consecutive periods")
	}
}

func TestEntryConsecutiveBelow_RequiresPeriods(t *testing.T) {
	var cfgErr ConfigError
	if _, err := NewEntryEvaluator("consecutive_below", RuleParams{}); !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError for periods 0, got %v", err)
	}
}

func TestEntryPercentBelow(t *testing.T) {
	e := mustEntry(t, "percent_below", RuleParams{MinPercent: 1.0})
	if !evalEntry(t, e, EntrySnapshot{Close: 98.9, LowerBand: 100}) {
		t.Error("1.1% below should fire")
	}
	if evalEntry(t, e, EntrySnapshot{Close: 99.5, LowerBand: 100}) {
		t.Error("0.5% below should not fire")
	}
	if evalEntry(t, e, EntrySnapshot{Close: -1, LowerBand: 0}) {
		t.Error("zero band must not fire")
	}
}

func TestExitReturnToMean(t *testing.T) {
	e := mustExit(t, "mean", RuleParams{})
	if !evalExit(t, e, ExitSnapshot{Close: 100, Mean: 100}) {
		t.Error("close at mean should fire")
	}
	if evalExit(t, e, ExitSnapshot{Close: 99, Mean: 100}) {
		t.Error("close below mean should not fire")
	}
	if evalExit(t, e, ExitSnapshot{Close: 99, Mean: Absent()}) {
		t.Error("absent mean should not fire")
	}
}

func TestExitOppositeBand(t *testing.T) {
	e := mustExit(t, "opposite_band", RuleParams{})
	if !evalExit(t, e, ExitSnapshot{Close: 111, UpperBand: 110}) {
		t.Error("close above upper band should fire")
	}
	if evalExit(t, e, ExitSnapshot{Close: 109, UpperBand: 110}) {
		t.Error("close below upper band should not fire")
	}
}

func TestExitProfitTarget(t *testing.T) {
	e := mustExit(t, "profit_target", RuleParams{TargetPercent: 5})
	if !evalExit(t, e, ExitSnapshot{Close: 105, EntryPrice: 100}) {
		t.Error("5% gain should fire at exactly the target")
	}
	if evalExit(t, e, ExitSnapshot{Close: 104.99, EntryPrice: 100}) {
		t.Error("4.99% gain should not fire")
	}
	if evalExit(t, e, ExitSnapshot{Close: 200, EntryPrice: 0}) {
		t.Error("zero entry price must not fire")
	}
	if _, err := e.Evaluate(ExitSnapshot{Close: 105, EntryPrice: Absent()}); !errors.Is(err, ErrMissingArgument) {
		t.Errorf("unknown entry price should be ErrMissingArgument, got %v", err)
	}
}

func TestExitTimeBased(t *testing.T) {
	e := mustExit(t, "time_based", RuleParams{MaxBars: 10})
	if !evalExit(t, e, ExitSnapshot{BarsHeld: 10}) {
		t.Error("holding max bars should fire")
	}
	if evalExit(t, e, ExitSnapshot{BarsHeld: 9}) {
		t.Error("holding fewer bars should not fire")
	}
	if _, err := e.Evaluate(ExitSnapshot{BarsHeld: -1}); !errors.Is(err, ErrMissingArgument) {
		t.Errorf("unknown hold count should be ErrMissingArgument, got %v", err)
	}
}

package engine

import (
	"fmt"
	"math"
)

// Rule variants are a closed, tagged set. Unknown names are rejected when the
// configuration is loaded, never at evaluation time.

type EntryRule int

const (
	EntryCloseBelowBand EntryRule = iota
	EntryTouchBand
	EntryConsecutiveBelow
	EntryPercentBelow
)

type ExitRule int

const (
	ExitReturnToMean ExitRule = iota
	ExitOppositeBand
	ExitProfitTarget
	ExitTimeBased
)

// RuleParams carries the variant-specific knobs from configuration.
type RuleParams struct {
	Tolerance     float64 // touch-band: fractional tolerance above the band
	Periods       int     // consecutive-below: required consecutive bars
	MinPercent    float64 // percent-below: minimum percent below the band
	TargetPercent float64 // profit-target: target gain percent
	MaxBars       int     // time-based: maximum bars held
}

// EntryEvaluator is a stateless decision function for one configured entry
// rule variant. All state lives in the ledger and the trend state machine.
type EntryEvaluator struct {
	rule   EntryRule
	params RuleParams
}

// ExitEvaluator is the exit-side counterpart of EntryEvaluator.
type ExitEvaluator struct {
	rule   ExitRule
	params RuleParams
}

// NewEntryEvaluator resolves a rule name to its variant. Unknown names fail
// with ConfigError.
func NewEntryEvaluator(name string, params RuleParams) (*EntryEvaluator, error) {
	var rule EntryRule
	switch name {
	case "close_below":
		rule = EntryCloseBelowBand
	case "touch":
		rule = EntryTouchBand
	case "consecutive_below":
		rule = EntryConsecutiveBelow
	case "percent_below":
		rule = EntryPercentBelow
	default:
		return nil, ConfigError{Field: "rules.entry", Reason: fmt.Sprintf("unknown rule %q", name)}
	}
	if rule == EntryConsecutiveBelow && params.Periods < 1 {
		return nil, ConfigError{Field: "rules.entry.periods", Reason: "consecutive_below requires periods >= 1"}
	}
	return &EntryEvaluator{rule: rule, params: params}, nil
}

// NewExitEvaluator resolves a rule name to its variant. Unknown names fail
// with ConfigError.
func NewExitEvaluator(name string, params RuleParams) (*ExitEvaluator, error) {
	var rule ExitRule
	switch name {
	case "mean":
		rule = ExitReturnToMean
	case "opposite_band":
		rule = ExitOppositeBand
	case "profit_target":
		rule = ExitProfitTarget
	case "time_based":
		rule = ExitTimeBased
	default:
		return nil, ConfigError{Field: "rules.exit", Reason: fmt.Sprintf("unknown rule %q", name)}
	}
	if rule == ExitTimeBased && params.MaxBars < 1 {
		return nil, ConfigError{Field: "rules.exit.max_bars", Reason: "time_based requires max_bars >= 1"}
	}
	return &ExitEvaluator{rule: rule, params: params}, nil
}

// EntrySnapshot is the per-bar input to entry evaluation. Closes and
// LowerBands are the trailing history ending at the current bar (most recent
// last); only the consecutive-below variant reads them.
type EntrySnapshot struct {
	Close      float64
	LowerBand  float64
	Closes     []float64
	LowerBands []float64
}

// Evaluate returns true when the configured entry rule fires.
func (e *EntryEvaluator) Evaluate(s EntrySnapshot) (bool, error) {
	if !Defined(s.LowerBand) && e.rule != EntryConsecutiveBelow {
		return false, nil
	}
	switch e.rule {
	case EntryCloseBelowBand:
		return s.Close < s.LowerBand, nil
	case EntryTouchBand:
		return s.Close <= s.LowerBand*(1+e.params.Tolerance), nil
	case EntryConsecutiveBelow:
		n := e.params.Periods
		if len(s.Closes) < n || len(s.LowerBands) < n {
			return false, nil
		}
		// Checked most-recent first; one bar at or above the band within
		// the window invalidates the signal.
		for i := 0; i < n; i++ {
			c := s.Closes[len(s.Closes)-1-i]
			b := s.LowerBands[len(s.LowerBands)-1-i]
			if !Defined(b) || c >= b {
				return false, nil
			}
		}
		return true, nil
	case EntryPercentBelow:
		if s.LowerBand == 0 {
			return false, nil
		}
		pctBelow := (s.LowerBand - s.Close) / s.LowerBand * 100
		return pctBelow >= e.params.MinPercent, nil
	}
	return false, fmt.Errorf("unreachable entry rule %d", e.rule)
}

// ExitSnapshot is the per-bar input to exit evaluation. EntryPrice is NaN
// when no entry price is known; BarsHeld is -1 when unknown. Each variant
// validates the contextual values it needs.
type ExitSnapshot struct {
	Close      float64
	Mean       float64
	UpperBand  float64
	EntryPrice float64
	BarsHeld   int
}

// Evaluate returns true when the configured exit rule fires.
func (e *ExitEvaluator) Evaluate(s ExitSnapshot) (bool, error) {
	switch e.rule {
	case ExitReturnToMean:
		if !Defined(s.Mean) {
			return false, nil
		}
		return s.Close >= s.Mean, nil
	case ExitOppositeBand:
		if !Defined(s.UpperBand) {
			return false, nil
		}
		return s.Close >= s.UpperBand, nil
	case ExitProfitTarget:
		if math.IsNaN(s.EntryPrice) {
			return false, fmt.Errorf("%w: profit_target needs an entry price", ErrMissingArgument)
		}
		if s.EntryPrice == 0 {
			return false, nil
		}
		profitPct := (s.Close - s.EntryPrice) / s.EntryPrice * 100
		return profitPct >= e.params.TargetPercent, nil
	case ExitTimeBased:
		if s.BarsHeld < 0 {
			return false, fmt.Errorf("%w: time_based needs bars held", ErrMissingArgument)
		}
		return s.BarsHeld >= e.params.MaxBars, nil
	}
	return false, fmt.Errorf("unreachable exit rule %d", e.rule)
}

package engine

import "fmt"

// TrendDirection is the per-bar trend flag of the band state machine.
type TrendDirection int

const (
	TrendNone TrendDirection = 0 // warmup, no state yet
	TrendUp   TrendDirection = 1
	TrendDown TrendDirection = -1
)

// TrendConfig configures the hysteresis-band trend indicator.
type TrendConfig struct {
	Period     int     // volatility (true range average) period
	Multiplier float64 // band width in volatility units
}

// Validate rejects unusable trend parameters at configuration time.
func (c TrendConfig) Validate() error {
	if c.Period < 1 {
		return ConfigError{Field: "trend.period", Reason: fmt.Sprintf("must be >= 1, got %d", c.Period)}
	}
	if c.Multiplier <= 0 {
		return ConfigError{Field: "trend.multiplier", Reason: fmt.Sprintf("must be > 0, got %g", c.Multiplier)}
	}
	return nil
}

// TrendState is one bar's stored state: the carried final bands and the
// direction flag. Line is the flip level (lower band in an uptrend, upper
// band in a downtrend).
type TrendState struct {
	Direction TrendDirection
	UpperBand float64
	LowerBand float64
	Line      float64
}

// TrueRangeAvg computes the simple moving average of the true range.
// tr[0] has no previous close and contributes zero; samples before index
// period are absent.
func TrueRangeAvg(bars []Bar, period int) []float64 {
	tr := make([]float64, len(bars))
	for i := 1; i < len(bars); i++ {
		hl := bars[i].High - bars[i].Low
		hc := absf(bars[i].High - bars[i-1].Close)
		lc := absf(bars[i].Low - bars[i-1].Close)
		tr[i] = max3(hl, hc, lc)
	}
	out := make([]float64, len(bars))
	for i := range out {
		if i < period {
			out[i] = Absent()
			continue
		}
		var sum float64
		for j := i - period + 1; j <= i; j++ {
			sum += tr[j]
		}
		out[i] = sum / float64(period)
	}
	return out
}

// NextTrendState applies one state transition. prev is the stored state of
// the previous bar, prevClose that bar's close, basicUpper/basicLower the
// current bar's raw bands, and close the current close.
//
// A final band only moves toward price, or resets to the basic band after the
// prior close broke through it; it never loosens while the prior close stayed
// inside it. The direction flips at most once per bar.
func NextTrendState(prev TrendState, prevClose, basicUpper, basicLower, close float64) TrendState {
	upper := prev.UpperBand
	if basicUpper < prev.UpperBand || prevClose > prev.UpperBand {
		upper = basicUpper
	}
	lower := prev.LowerBand
	if basicLower > prev.LowerBand || prevClose < prev.LowerBand {
		lower = basicLower
	}

	next := TrendState{UpperBand: upper, LowerBand: lower}
	if prev.Direction == TrendDown {
		if close > upper {
			next.Direction = TrendUp
			next.Line = lower
		} else {
			next.Direction = TrendDown
			next.Line = upper
		}
	} else {
		if close < lower {
			next.Direction = TrendDown
			next.Line = upper
		} else {
			next.Direction = TrendUp
			next.Line = lower
		}
	}
	return next
}

// ComputeTrend runs the state machine over the full bar sequence and returns
// one state record per bar. Records before warmup have Direction TrendNone.
//
// The recurrence is a strict one-step Markov chain over the stored bands:
// restarting mid-sequence without the carried state yields a different,
// incorrect trajectory, so this is the only supported way to evaluate it.
func ComputeTrend(bars []Bar, cfg TrendConfig) ([]TrendState, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(bars) <= cfg.Period {
		return nil, fmt.Errorf("%w: trend needs %d bars, have %d", ErrInsufficientData, cfg.Period+1, len(bars))
	}

	atr := TrueRangeAvg(bars, cfg.Period)
	states := make([]TrendState, len(bars))
	for i := cfg.Period; i < len(bars); i++ {
		mid := (bars[i].High + bars[i].Low) / 2
		basicUpper := mid + cfg.Multiplier*atr[i]
		basicLower := mid - cfg.Multiplier*atr[i]

		if i == cfg.Period {
			st := TrendState{UpperBand: basicUpper, LowerBand: basicLower}
			if bars[i].Close > basicLower {
				st.Direction = TrendUp
				st.Line = basicLower
			} else {
				st.Direction = TrendDown
				st.Line = basicUpper
			}
			states[i] = st
			continue
		}
		states[i] = NextTrendState(states[i-1], bars[i-1].Close, basicUpper, basicLower, bars[i].Close)
	}
	return states, nil
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

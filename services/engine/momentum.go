package engine

import "fmt"

// MomentumScore ranks an instrument by its percent return over a lookback-bar
// window. The base price sits lookback-1 intervals behind the latest close.
// A lookback longer than the available history is clamped, and the minHistory
// floor applies to the clamped window, so young instruments rank only once
// their effective window clears it.
func MomentumScore(closes []float64, lookback, minHistory int) (float64, error) {
	if lookback < 1 {
		return 0, ConfigError{Field: "lookback", Reason: "must be >= 1"}
	}
	if minHistory < 2 {
		minHistory = 2
	}
	actual := lookback
	if max := len(closes) - 1; actual > max {
		actual = max
	}
	if actual < minHistory {
		return 0, fmt.Errorf("%w: effective lookback %d, need %d", ErrInsufficientData, actual, minHistory)
	}
	current := closes[len(closes)-1]
	past := closes[len(closes)-actual]
	if past <= 0 {
		return 0, fmt.Errorf("%w: non-positive base price", ErrDegenerateNormalization)
	}
	return (current/past - 1) * 100, nil
}

package engine

import "fmt"

// ChannelConfig configures one regression channel. The dual-channel strategy
// evaluates two of these per bar: a short responsive one for entries and a
// longer, backcast one for exits.
type ChannelConfig struct {
	Period    int
	Lookahead int // projection offset: +1 forward, 0 current bar, negative backcast
}

// Validate rejects unusable channel parameters at configuration time.
func (c ChannelConfig) Validate(field string) error {
	if c.Period < 1 {
		return ConfigError{Field: field + ".period", Reason: fmt.Sprintf("must be >= 1, got %d", c.Period)}
	}
	return nil
}

// warmup is the index of the first defined projected sample.
func (c ChannelConfig) warmup() int {
	la := c.Lookahead
	if la < 0 {
		la = -la
	}
	return c.Period - 1 + la
}

// linfit fits y = slope*x + intercept over x = 0..len(window)-1.
func linfit(window []float64) (slope, intercept float64) {
	n := float64(len(window))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range window {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	den := n*sumXX - sumX*sumX
	if den == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / den
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// NormalizedSlope fits the trailing period values and returns the slope as
// percent-per-bar of the window mean. Fails with ErrInsufficientData when
// fewer than period values exist and ErrDegenerateNormalization when the
// window mean is zero.
func NormalizedSlope(values []float64, period int) (float64, error) {
	if period < 1 {
		return 0, ConfigError{Field: "slope.period", Reason: fmt.Sprintf("must be >= 1, got %d", period)}
	}
	if len(values) < period {
		return 0, fmt.Errorf("%w: slope needs %d values, have %d", ErrInsufficientData, period, len(values))
	}
	window := values[len(values)-period:]
	var mean float64
	for _, v := range window {
		mean += v
	}
	mean /= float64(period)
	if mean == 0 {
		return 0, fmt.Errorf("%w: zero window mean", ErrDegenerateNormalization)
	}
	slope, _ := linfit(window)
	return slope / mean * 100, nil
}

// Project computes the fitted-line value for every bar, projected at
// x = period-1+lookahead within each trailing window. Samples before the
// warmup index (period-1 plus the magnitude of the shift) are absent.
func (c ChannelConfig) Project(values []float64) []float64 {
	out := make([]float64, len(values))
	targetX := float64(c.Period - 1 + c.Lookahead)
	for i := range values {
		if i < c.warmup() {
			out[i] = Absent()
			continue
		}
		slope, intercept := linfit(values[i-c.Period+1 : i+1])
		out[i] = slope*targetX + intercept
	}
	return out
}

// ChannelSeries holds regression-projected OHLC series aligned with the
// source bars.
type ChannelSeries struct {
	Open  []float64
	High  []float64
	Low   []float64
	Close []float64
}

// Candles projects all four OHLC components of the input bars through the
// channel, producing the regression candle series the dual-channel strategy
// trades on.
func (c ChannelConfig) Candles(bars []Bar) (ChannelSeries, error) {
	if err := c.Validate("channel"); err != nil {
		return ChannelSeries{}, err
	}
	if len(bars) <= c.warmup() {
		return ChannelSeries{}, fmt.Errorf("%w: channel needs %d bars, have %d",
			ErrInsufficientData, c.warmup()+1, len(bars))
	}
	opens := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	for i, b := range bars {
		opens[i], highs[i], lows[i], closes[i] = b.Open, b.High, b.Low, b.Close
	}
	return ChannelSeries{
		Open:  c.Project(opens),
		High:  c.Project(highs),
		Low:   c.Project(lows),
		Close: c.Project(closes),
	}, nil
}

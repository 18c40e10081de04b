package engine

import "fmt"

// SmoothCandles derives the smoothed candle series from raw bars:
//
//	close[i] = (O+H+L+C)/4
//	open[0]  = (rawOpen[0] + rawClose[0]) / 2
//	open[i]  = (open[i-1] + close[i-1]) / 2
//	high[i]  = max(rawHigh[i], open[i], close[i])
//	low[i]   = min(rawLow[i], open[i], close[i])
//
// The open recursion carries state bar to bar, so the series must be computed
// in ascending time order for one instrument. Independent instruments can run
// in parallel.
func SmoothCandles(bars []Bar) ([]Bar, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no bars to smooth", ErrInsufficientData)
	}

	out := make([]Bar, len(bars))
	for i, b := range bars {
		sc := (b.Open + b.High + b.Low + b.Close) / 4
		var so float64
		if i == 0 {
			so = (b.Open + b.Close) / 2
		} else {
			so = (out[i-1].Open + out[i-1].Close) / 2
		}
		out[i] = Bar{
			Timestamp: b.Timestamp,
			Open:      so,
			High:      max3(b.High, so, sc),
			Low:       min3(b.Low, so, sc),
			Close:     sc,
			Volume:    b.Volume,
		}
	}
	return out, nil
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

func min3(a, b, c float64) float64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

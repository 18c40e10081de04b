package engine

import (
	"math"
	"time"
)

// Bar is a single OHLCV observation for one instrument.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Derived series are []float64 aligned 1:1 with the source bar slice.
// Samples that are not computable (warmup, shift, degenerate math) are
// marked absent with NaN rather than zero.

// Absent returns the marker for an undefined sample.
func Absent() float64 { return math.NaN() }

// Defined reports whether a derived sample carries a value.
func Defined(v float64) bool { return !math.IsNaN(v) }

// Closes extracts the close series from a bar slice.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// SMA computes a simple moving average over the trailing period.
// The first period-1 samples are absent.
func SMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		} else {
			out[i] = Absent()
		}
	}
	return out
}

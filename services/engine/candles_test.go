package engine

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestSmoothCandles_Recurrence(t *testing.T) {
	bars := []Bar{
		{Timestamp: day(2020, time.January, 1), Open: 10, High: 15, Low: 9, Close: 14},
		{Timestamp: day(2020, time.January, 2), Open: 14, High: 18, Low: 13, Close: 17},
		{Timestamp: day(2020, time.January, 3), Open: 17, High: 17, Low: 11, Close: 12},
	}
	out, err := SmoothCandles(bars)
	if err != nil {
		t.Fatalf("smooth: %v", err)
	}

	if got, want := out[0].Open, (10.0+14.0)/2; got != want {
		t.Errorf("open[0] = %v, want %v", got, want)
	}
	for i, b := range bars {
		want := (b.Open + b.High + b.Low + b.Close) / 4
		if out[i].Close != want {
			t.Errorf("close[%d] = %v, want %v", i, out[i].Close, want)
		}
	}
	for i := 1; i < len(out); i++ {
		want := (out[i-1].Open + out[i-1].Close) / 2
		if out[i].Open != want {
			t.Errorf("open[%d] = %v, want %v", i, out[i].Open, want)
		}
	}
	for i := range out {
		if out[i].High < math.Max(bars[i].High, math.Max(out[i].Open, out[i].Close)) {
			t.Errorf("high[%d] below its components", i)
		}
		if out[i].Low > math.Min(bars[i].Low, math.Min(out[i].Open, out[i].Close)) {
			t.Errorf("low[%d] above its components", i)
		}
	}
}

func TestSmoothCandles_Empty(t *testing.T) {
	if _, err := SmoothCandles(nil); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

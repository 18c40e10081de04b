package arrowfeed

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kvh-4114/trade-strategies-sub001/services/engine"
)

func TestBars_RoundTrip(t *testing.T) {
	in := []engine.Bar{
		{Timestamp: time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC), Open: 100, High: 102, Low: 99, Close: 101, Volume: 1000},
		{Timestamp: time.Date(2021, time.March, 2, 0, 0, 0, 0, time.UTC), Open: 101, High: 103, Low: 100, Close: 102.5, Volume: 2000},
	}

	data, err := EncodeBars("NVDA", in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	symbol, out, err := DecodeBars(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if symbol != "NVDA" {
		t.Errorf("symbol = %q, want NVDA", symbol)
	}
	if len(out) != len(in) {
		t.Fatalf("bars = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if !out[i].Timestamp.Equal(in[i].Timestamp) {
			t.Errorf("bar %d ts = %s, want %s", i, out[i].Timestamp, in[i].Timestamp)
		}
		if out[i] != (engine.Bar{
			Timestamp: out[i].Timestamp,
			Open:      in[i].Open, High: in[i].High, Low: in[i].Low,
			Close: in[i].Close, Volume: in[i].Volume,
		}) {
			t.Errorf("bar %d = %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestEncode_Empty(t *testing.T) {
	if _, err := EncodeBars("NVDA", nil); !errors.Is(err, engine.ErrInsufficientData) {
		t.Fatalf("bars err = %v, want ErrInsufficientData", err)
	}
	if _, err := EncodeSnapshots(nil); !errors.Is(err, engine.ErrInsufficientData) {
		t.Fatalf("snapshots err = %v, want ErrInsufficientData", err)
	}
}

func TestDecodeBars_Garbage(t *testing.T) {
	if _, _, err := DecodeBars([]byte("not an arrow stream")); err == nil {
		t.Fatal("garbage input must fail")
	}
}

func TestEncodeSnapshots_Writes(t *testing.T) {
	snaps := []engine.Snapshot{{
		Date:     time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC),
		Cash:     decimal.NewFromInt(8000),
		Invested: decimal.NewFromInt(2000),
		Value:    decimal.NewFromInt(10000),
		Peak:     decimal.NewFromInt(10000),
	}}
	data, err := EncodeSnapshots(snaps)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty stream")
	}
}

// Package arrowfeed serializes bar and snapshot series as Arrow IPC streams
// for columnar hand-off to external analysis tooling.
package arrowfeed

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"github.com/kvh-4114/trade-strategies-sub001/services/engine"
)

var barSchema = arrow.NewSchema([]arrow.Field{
	{Name: "symbol", Type: arrow.BinaryTypes.String},
	{Name: "ts_ms", Type: arrow.PrimitiveTypes.Int64},
	{Name: "open", Type: arrow.PrimitiveTypes.Float64},
	{Name: "high", Type: arrow.PrimitiveTypes.Float64},
	{Name: "low", Type: arrow.PrimitiveTypes.Float64},
	{Name: "close", Type: arrow.PrimitiveTypes.Float64},
	{Name: "volume", Type: arrow.PrimitiveTypes.Float64},
}, nil)

var snapshotSchema = arrow.NewSchema([]arrow.Field{
	{Name: "ts_ms", Type: arrow.PrimitiveTypes.Int64},
	{Name: "cash", Type: arrow.PrimitiveTypes.Float64},
	{Name: "invested", Type: arrow.PrimitiveTypes.Float64},
	{Name: "value", Type: arrow.PrimitiveTypes.Float64},
	{Name: "peak", Type: arrow.PrimitiveTypes.Float64},
	{Name: "positions", Type: arrow.PrimitiveTypes.Int32},
	{Name: "drawdown_pct", Type: arrow.PrimitiveTypes.Float64},
}, nil)

// EncodeBars writes one instrument's bars as a single-record IPC stream.
func EncodeBars(symbol string, bars []engine.Bar) ([]byte, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no bars to encode", engine.ErrInsufficientData)
	}
	pool := memory.NewGoAllocator()
	b := array.NewRecordBuilder(pool, barSchema)
	defer b.Release()

	for _, bar := range bars {
		b.Field(0).(*array.StringBuilder).Append(symbol)
		b.Field(1).(*array.Int64Builder).Append(bar.Timestamp.UnixMilli())
		b.Field(2).(*array.Float64Builder).Append(bar.Open)
		b.Field(3).(*array.Float64Builder).Append(bar.High)
		b.Field(4).(*array.Float64Builder).Append(bar.Low)
		b.Field(5).(*array.Float64Builder).Append(bar.Close)
		b.Field(6).(*array.Float64Builder).Append(bar.Volume)
	}
	rec := b.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(barSchema), ipc.WithAllocator(pool))
	if err := w.Write(rec); err != nil {
		return nil, fmt.Errorf("write bar record: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close bar stream: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeBars reads an IPC stream produced by EncodeBars. The symbol of the
// first row is returned; a stream mixes rows of one instrument only.
func DecodeBars(data []byte) (string, []engine.Bar, error) {
	r, err := ipc.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", nil, fmt.Errorf("open bar stream: %w", err)
	}
	defer r.Release()

	var symbol string
	var bars []engine.Bar
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, fmt.Errorf("read bar record: %w", err)
		}
		symbols := rec.Column(0).(*array.String)
		ts := rec.Column(1).(*array.Int64)
		open := rec.Column(2).(*array.Float64)
		high := rec.Column(3).(*array.Float64)
		low := rec.Column(4).(*array.Float64)
		close := rec.Column(5).(*array.Float64)
		volume := rec.Column(6).(*array.Float64)
		for i := 0; i < int(rec.NumRows()); i++ {
			if symbol == "" {
				symbol = symbols.Value(i)
			}
			bars = append(bars, engine.Bar{
				Timestamp: time.UnixMilli(ts.Value(i)).UTC(),
				Open:      open.Value(i),
				High:      high.Value(i),
				Low:       low.Value(i),
				Close:     close.Value(i),
				Volume:    volume.Value(i),
			})
		}
	}
	if len(bars) == 0 {
		return "", nil, fmt.Errorf("%w: empty bar stream", engine.ErrInsufficientData)
	}
	return symbol, bars, nil
}

// EncodeSnapshots writes an equity curve as a single-record IPC stream.
func EncodeSnapshots(snaps []engine.Snapshot) ([]byte, error) {
	if len(snaps) == 0 {
		return nil, fmt.Errorf("%w: no snapshots to encode", engine.ErrInsufficientData)
	}
	pool := memory.NewGoAllocator()
	b := array.NewRecordBuilder(pool, snapshotSchema)
	defer b.Release()

	for _, sn := range snaps {
		b.Field(0).(*array.Int64Builder).Append(sn.Date.UnixMilli())
		b.Field(1).(*array.Float64Builder).Append(sn.Cash.InexactFloat64())
		b.Field(2).(*array.Float64Builder).Append(sn.Invested.InexactFloat64())
		b.Field(3).(*array.Float64Builder).Append(sn.Value.InexactFloat64())
		b.Field(4).(*array.Float64Builder).Append(sn.Peak.InexactFloat64())
		b.Field(5).(*array.Int32Builder).Append(int32(sn.Positions))
		b.Field(6).(*array.Float64Builder).Append(sn.DrawdownPct.InexactFloat64())
	}
	rec := b.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(snapshotSchema), ipc.WithAllocator(pool))
	if err := w.Write(rec); err != nil {
		return nil, fmt.Errorf("write snapshot record: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close snapshot stream: %w", err)
	}
	return buf.Bytes(), nil
}

// Package loader reads daily OHLCV history from CSV files into engine bars.
package loader

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/kvh-4114/trade-strategies-sub001/services/engine"
)

// ReadBars parses one daily CSV: date,open,high,low,close,volume with an
// optional header. Dates are "2006-01-02" or unix milliseconds. Exported
// vendor files are sometimes UTF-16 with a BOM; those are decoded
// transparently. Rows are sorted ascending and duplicate timestamps are
// deduplicated keeping the last occurrence.
func ReadBars(r io.Reader) ([]engine.Bar, error) {
	br := bufio.NewReader(r)
	if b, _ := br.Peek(2); len(b) >= 2 && ((b[0] == 0xFF && b[1] == 0xFE) || (b[0] == 0xFE && b[1] == 0xFF)) {
		br = bufio.NewReader(transform.NewReader(br, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()))
	}
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var bars []engine.Bar
	row := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", row, err)
		}
		row++
		if len(rec) < 5 {
			continue
		}
		first := strings.TrimSpace(strings.TrimPrefix(rec[0], "\uFEFF"))
		if row == 1 && (strings.EqualFold(first, "date") || strings.EqualFold(first, "timestamp") || strings.EqualFold(first, "timestamp_ms")) {
			continue
		}
		ts, err := parseDate(first)
		if err != nil {
			continue
		}
		open, err1 := parseFloat(rec[1])
		high, err2 := parseFloat(rec[2])
		low, err3 := parseFloat(rec[3])
		close, err4 := parseFloat(rec[4])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}
		var volume float64
		if len(rec) >= 6 {
			volume, _ = parseFloat(rec[5])
		}
		bars = append(bars, engine.Bar{Timestamp: ts, Open: open, High: high, Low: low, Close: close, Volume: volume})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no parseable rows", engine.ErrInsufficientData)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	deduped := bars[:1]
	for _, b := range bars[1:] {
		if b.Timestamp.Equal(deduped[len(deduped)-1].Timestamp) {
			deduped[len(deduped)-1] = b
			continue
		}
		deduped = append(deduped, b)
	}
	return deduped, nil
}

// ReadFile loads one instrument's bars from path.
func ReadFile(path string) ([]engine.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	bars, err := ReadBars(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bars, nil
}

// ReadDir loads <instrument>.csv for every requested instrument from dir.
// Missing files are reported, not silently skipped.
func ReadDir(dir string, instruments []string) (map[string][]engine.Bar, error) {
	out := make(map[string][]engine.Bar, len(instruments))
	for _, sym := range instruments {
		bars, err := ReadFile(filepath.Join(dir, sym+".csv"))
		if err != nil {
			return nil, err
		}
		out[sym] = bars
	}
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(strings.Trim(s, `"`)), 64)
}

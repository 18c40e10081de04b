package engine

import (
	"fmt"
	"time"
)

// EpochOrigin is the shared bucket anchor. Aligning every instrument to the
// same origin keeps N-day bars synchronized across the whole universe, which
// cross-sectional ranking depends on.
var EpochOrigin = time.Unix(0, 0).UTC()

// AggregateBars resamples an ascending daily bar sequence into fixed-length
// buckets anchored at origin: open=first, high=max, low=min, close=last,
// volume=sum. Buckets with no input bars are dropped. Bucket edges are a pure
// function of origin and bucketDays, never of the instrument's start date.
func AggregateBars(bars []Bar, bucketDays int, origin time.Time) ([]Bar, error) {
	if bucketDays < 1 {
		return nil, ConfigError{Field: "aggregation.days", Reason: fmt.Sprintf("must be >= 1, got %d", bucketDays)}
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no bars to aggregate", ErrInsufficientData)
	}

	bucket := time.Duration(bucketDays) * 24 * time.Hour

	// The guard is on calendar span, not bar count: a bucket window that sits
	// fully inside the data range counts even when days inside it are missing,
	// while bucketDays bars straddling two partial windows do not.
	firstFull := bucketStart(bars[0].Timestamp, origin, bucket)
	if !firstFull.Equal(bars[0].Timestamp) {
		firstFull = firstFull.Add(bucket)
	}
	if bars[len(bars)-1].Timestamp.Sub(firstFull) < bucket-24*time.Hour {
		return nil, fmt.Errorf("%w: %d bars span no complete %d-day bucket", ErrInsufficientData, len(bars), bucketDays)
	}

	out := make([]Bar, 0, len(bars)/bucketDays+1)

	var cur Bar
	var curStart time.Time
	open := false
	for _, b := range bars {
		start := bucketStart(b.Timestamp, origin, bucket)
		if open && start.Equal(curStart) {
			if b.High > cur.High {
				cur.High = b.High
			}
			if b.Low < cur.Low {
				cur.Low = b.Low
			}
			cur.Close = b.Close
			cur.Volume += b.Volume
			continue
		}
		if open {
			out = append(out, cur)
		}
		cur = b
		cur.Timestamp = start
		curStart = start
		open = true
	}
	if open {
		out = append(out, cur)
	}
	return out, nil
}

// bucketStart floors ts to its bucket boundary relative to origin.
func bucketStart(ts time.Time, origin time.Time, bucket time.Duration) time.Time {
	d := ts.Sub(origin)
	idx := d / bucket
	if d < 0 && d%bucket != 0 {
		idx--
	}
	return origin.Add(idx * bucket)
}

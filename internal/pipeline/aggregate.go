// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package pipeline

import (
	"math"
	"sort"
	"time"

	"github.com/tomtom215/logscope/internal/models"
)

// BucketStart returns the start of the left-closed bucket of the given
// width containing t. Buckets are anchored at the Unix epoch in UTC, so
// daily buckets start at midnight UTC and weekly buckets on Thursdays.
//
// Whole-second widths are floored in seconds, which covers every instant
// time.Time can hold; UnixNano overflows outside 1678-2262.
func BucketStart(t time.Time, width time.Duration) time.Time {
	if width%time.Second == 0 {
		return time.Unix(floorDiv(t.Unix(), int64(width/time.Second)), 0).UTC()
	}
	w := int64(width)
	return time.Unix(0, floorDiv(t.UnixNano(), w)).UTC()
}

// floorDiv returns n rounded down to a multiple of w.
func floorDiv(n, w int64) int64 {
	q := n / w
	if n%w != 0 && n < 0 {
		q--
	}
	return q * w
}

type bucketKey struct {
	sec  int64
	nsec int
}

type bucketAcc struct {
	start  time.Time
	count  int
	values []float64
}

// Aggregate groups records into fixed-width buckets and summarizes
// process_time per bucket. Empty buckets are omitted and rows are ordered
// by bucket start. Records without a process_time count towards Count but
// not towards the statistics. An empty input, or a non-positive width,
// yields an empty result.
func Aggregate(records []models.LogRecord, width time.Duration) []models.AggregateRow {
	if len(records) == 0 || width <= 0 {
		return []models.AggregateRow{}
	}

	buckets := make(map[bucketKey]*bucketAcc)
	for i := range records {
		start := BucketStart(records[i].Timestamp, width)
		key := bucketKey{start.Unix(), start.Nanosecond()}
		acc, ok := buckets[key]
		if !ok {
			acc = &bucketAcc{start: start}
			buckets[key] = acc
		}
		acc.count++
		if v, ok := records[i].ProcessTime.Get(); ok {
			acc.values = append(acc.values, v)
		}
	}

	rows := make([]models.AggregateRow, 0, len(buckets))
	for _, acc := range buckets {
		rows = append(rows, summarize(acc))
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].BucketStart.Before(rows[j].BucketStart)
	})
	return rows
}

func summarize(acc *bucketAcc) models.AggregateRow {
	row := models.AggregateRow{BucketStart: acc.start, Count: acc.count}
	n := len(acc.values)
	if n == 0 {
		return row
	}

	sum := 0.0
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range acc.values {
		sum += v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	mean := sum / float64(n)
	row.Mean = models.Some(mean)
	row.Min = models.Some(lo)
	row.Max = models.Some(hi)

	// Sample standard deviation; undefined below two observations.
	if n >= 2 {
		ss := 0.0
		for _, v := range acc.values {
			d := v - mean
			ss += d * d
		}
		row.Std = models.Some(math.Sqrt(ss / float64(n-1)))
	}
	return row
}

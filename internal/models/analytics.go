// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package models

import (
	"fmt"
	"time"
)

// AggregateRow summarizes one non-empty time bucket. Statistics are over
// process_time. Std is absent (JSON null) when fewer than two latencies fell
// in the bucket; it is never reported as 0 in that case.
type AggregateRow struct {
	BucketStart time.Time    `json:"bucket_start"`
	Count       int          `json:"count"`
	Mean        Opt[float64] `json:"mean"`
	Min         Opt[float64] `json:"min"`
	Max         Opt[float64] `json:"max"`
	Std         Opt[float64] `json:"std"`
}

// Narration records the row counts around one filter stage.
type Narration struct {
	Column Column `json:"column"`
	Before int    `json:"before"`
	After  int    `json:"after"`
	Delta  int    `json:"delta"`
}

// NewNarration builds a narration with Delta = before - after.
func NewNarration(column Column, before, after int) Narration {
	return Narration{Column: column, Before: before, After: after, Delta: before - after}
}

// String renders the operator-facing text shown under the raw data table.
func (n Narration) String() string {
	if n.Column == ColumnIsValid {
		return fmt.Sprintf("After filtering invalid rows\n%d rows dropped, now left with %d rows\n", n.Delta, n.After)
	}
	return fmt.Sprintf("Column %s\nafter filtering \nthe rows dropped from %d to %d\ni.e. delta is %d\n",
		n.Column, n.Before, n.After, n.Delta)
}

// FilterState is the set of constraints for one pipeline run. It is built per
// request from user selections after the caller has resolved defaults, so an
// empty slice here really means "match nothing".
type FilterState struct {
	IPLabels  []string      `json:"ip_labels"`
	IPs       []string      `json:"ips"`
	Statuses  []string      `json:"statuses"`
	Methods   []string      `json:"methods"`
	Paths     []string      `json:"paths"`
	WindowKey string        `json:"window"`
	Window    time.Duration `json:"-"`
	BucketKey string        `json:"bucket"`
	Bucket    time.Duration `json:"-"`
}

// EmptyResultMessage is shown instead of a chart when no rows survive filtering.
const EmptyResultMessage = "No data matches your filters. Try broadening them."

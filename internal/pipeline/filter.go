// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package pipeline

import (
	"time"

	"github.com/tomtom215/logscope/internal/models"
)

// Apply keeps the records whose column value is a member of allowed.
//
// Membership is literal: an empty allowed set keeps nothing. An absent IP
// or method never matches; an absent status code or path matches only
// models.MissingValue. Deciding that "no selection" means
// "everything" is the caller's job. Order and duplicates in allowed are
// irrelevant. The input slice is not modified.
func Apply(records []models.LogRecord, allowed []string, column models.Column) ([]models.LogRecord, models.Narration) {
	set := make(map[string]struct{}, len(allowed))
	for _, v := range allowed {
		set[v] = struct{}{}
	}

	kept := make([]models.LogRecord, 0, len(records))
	for i := range records {
		v, ok := records[i].ColumnValue(column)
		if !ok {
			continue
		}
		if _, hit := set[v]; hit {
			kept = append(kept, records[i])
		}
	}
	return kept, models.NewNarration(column, len(records), len(kept))
}

// ApplyWindow keeps records with timestamp >= cutoff.
func ApplyWindow(records []models.LogRecord, cutoff time.Time) ([]models.LogRecord, models.Narration) {
	kept := make([]models.LogRecord, 0, len(records))
	for i := range records {
		if !records[i].Timestamp.Before(cutoff) {
			kept = append(kept, records[i])
		}
	}
	return kept, models.NewNarration(models.ColumnTimestamp, len(records), len(kept))
}

// stage is one step of the fixed filter sequence.
type stage struct {
	column  models.Column
	allowed func(models.FilterState) []string
}

// filterOrder is the narration order. The final record set does not depend
// on it, only the intermediate counts do.
var filterOrder = []stage{
	{models.ColumnPublicIP, func(s models.FilterState) []string { return s.IPs }},
	{models.ColumnStatusCode, func(s models.FilterState) []string { return s.Statuses }},
	{models.ColumnMethod, func(s models.FilterState) []string { return s.Methods }},
	{models.ColumnPath, func(s models.FilterState) []string { return s.Paths }},
}

// ApplyAll runs the set filters in order (IP, status, method, path) and then
// the time window relative to now.
func ApplyAll(records []models.LogRecord, state models.FilterState, now time.Time) ([]models.LogRecord, []models.Narration) {
	narrations := make([]models.Narration, 0, len(filterOrder)+1)
	current := records
	for _, st := range filterOrder {
		var n models.Narration
		current, n = Apply(current, st.allowed(state), st.column)
		narrations = append(narrations, n)
	}
	current, n := ApplyWindow(current, now.Add(-state.Window))
	narrations = append(narrations, n)
	return current, narrations
}

// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

// Package pipeline turns a raw access-log snapshot into filtered records and
// time-bucketed latency statistics.
//
// Stages, in order:
//
//	Normalize    raw documents -> LogRecord (typed optionals, UTC date, path fallback)
//	DropInvalid  remove records whose path contains "//"
//	ApplyAll     IP -> status -> method -> path -> time window
//	Aggregate    fixed-width epoch-anchored buckets, count/mean/min/max/std
//
// Every stage is a pure function over its input and returns new slices; the
// snapshot handed to Run is never modified, so one snapshot can be shared by
// concurrent requests. Each stage returns a models.Narration with the row
// counts before and after it.
package pipeline

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/tomtom215/logscope/internal/catalog"
	"github.com/tomtom215/logscope/internal/logging"
	"github.com/tomtom215/logscope/internal/metrics"
	"github.com/tomtom215/logscope/internal/models"
)

// Prepared is a normalized snapshot with invalid rows removed.
type Prepared struct {
	Records        []models.LogRecord
	Total          int
	InvalidDropped models.Narration
}

// Prepare normalizes docs and drops invalid rows.
func Prepare(docs []models.RawDocument) (*Prepared, error) {
	normalized, err := Normalize(docs)
	if err != nil {
		return nil, err
	}
	valid, n := DropInvalid(normalized)
	return &Prepared{Records: valid, Total: len(normalized), InvalidDropped: n}, nil
}

// Report is the result of one pipeline run.
type Report struct {
	RunID      string
	Filters    models.FilterState
	Total      int
	Invalid    models.Narration
	Records    []models.LogRecord
	Aggregates []models.AggregateRow
	Narrations []models.Narration
	Empty      bool
	Duration   time.Duration
}

// Err returns ErrEmptyResult for an empty report and nil otherwise.
func (r *Report) Err() error {
	if r.Empty {
		return ErrEmptyResult
	}
	return nil
}

// NarrationText concatenates the invalid-row line and every filter stage
// line, separated by a blank line after the invalid-row summary.
func (r *Report) NarrationText() string {
	var b strings.Builder
	b.WriteString(r.Invalid.String())
	b.WriteString("\n")
	for _, n := range r.Narrations {
		b.WriteString(n.String())
	}
	return b.String()
}

// Run executes the full pipeline over docs for one FilterState. now is the
// reference instant for the time window. A DataFormatError aborts the run;
// an empty outcome is reported through Report.Empty, not as an error.
func Run(ctx context.Context, docs []models.RawDocument, state models.FilterState, now time.Time) (*Report, error) {
	start := time.Now()
	prepared, err := Prepare(docs)
	if err != nil {
		metrics.RecordPipelineRun(metrics.OutcomeFormatError, time.Since(start))
		logging.Ctx(ctx).Error().Err(err).Int("documents", len(docs)).Msg("Snapshot normalization failed")
		return nil, err
	}
	return RunPrepared(ctx, prepared, state, now), nil
}

// RunPrepared filters and aggregates an already prepared snapshot. The
// snapshot is shared and left untouched.
func RunPrepared(ctx context.Context, prepared *Prepared, state models.FilterState, now time.Time) *Report {
	start := time.Now()
	runID := ulid.Make().String()
	ctx = logging.ContextWithRunID(ctx, runID)
	log := logging.Ctx(ctx)

	log.Debug().Int("dropped", prepared.InvalidDropped.Delta).
		Int("remaining", prepared.InvalidDropped.After).Msg("Invalid rows filtered")

	filtered, narrations := ApplyAll(prepared.Records, state, now)
	for _, n := range narrations {
		metrics.RecordStageRows(string(n.Column), n.Before, n.After)
		log.Debug().Str("column", string(n.Column)).Int("before", n.Before).
			Int("after", n.After).Int("delta", n.Delta).Msg("Filter applied")
	}

	sortNewestFirst(filtered)
	report := &Report{
		RunID:      runID,
		Filters:    state,
		Total:      prepared.Total,
		Invalid:    prepared.InvalidDropped,
		Records:    filtered,
		Aggregates: Aggregate(filtered, state.Bucket),
		Narrations: narrations,
		Empty:      len(filtered) == 0,
	}
	report.Duration = time.Since(start)

	outcome := metrics.OutcomeOK
	if report.Empty {
		outcome = metrics.OutcomeEmpty
		log.Info().Msg("No records match the current filters")
	}
	metrics.RecordPipelineRun(outcome, report.Duration)
	return report
}

func sortNewestFirst(records []models.LogRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
}

// Selectable lists the values a user may pick given the current method
// selection. Statuses and functions are taken from valid records inside the
// time window, matching what the operator can actually filter down to.
type Selectable struct {
	Statuses []string
	Methods  []string
	Paths    []string
}

// Options computes the selectable values over a prepared snapshot.
func Options(prepared *Prepared, cat *catalog.Catalog, selectedMethods []string, window time.Duration, now time.Time) Selectable {
	inWindow, _ := ApplyWindow(prepared.Records, now.Add(-window))
	return Selectable{
		Statuses: ObservedStatuses(inWindow),
		Methods:  cat.Methods(),
		Paths:    ResolvePaths(selectedMethods, cat, ObservedFunctions(inWindow)),
	}
}

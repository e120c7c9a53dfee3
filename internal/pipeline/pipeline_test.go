// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package pipeline

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/logscope/internal/catalog"
	"github.com/tomtom215/logscope/internal/models"
)

func snapshotDocs() []models.RawDocument {
	return []models.RawDocument{
		{"_id": "1", "timestamp": "2026-03-01T00:10:00Z", "path": "/api/users", "method": "GET", "status_code": 200, "public_ip": "44.227.217.144", "process_time": 10.0},
		{"_id": "2", "timestamp": "2026-03-01T00:40:00Z", "path": "/api/users", "method": "GET", "status_code": 200, "public_ip": "44.227.217.144", "process_time": 20.0},
		{"_id": "3", "timestamp": "2026-03-01T01:20:00Z", "path": "/api/users", "method": "GET", "status_code": 200, "public_ip": "44.227.217.144", "process_time": 30.0},
		{"_id": "4", "timestamp": "2026-03-01T01:30:00Z", "path": "/api//bookmarks", "method": "GET", "status_code": 200, "public_ip": "44.227.217.144", "process_time": 99.0},
		{"_id": "5", "timestamp": "2026-03-01T01:35:00Z", "function": "getUser", "method": "GET", "status_code": 200, "public_ip": "44.227.217.144", "process_time": 5.0},
	}
}

func fullState() models.FilterState {
	cat := catalog.Default()
	return models.FilterState{
		IPs:      []string{"44.227.217.144"},
		Statuses: []string{"200"},
		Methods:  cat.Methods(),
		Paths:    ResolvePaths(cat.Methods(), cat, []string{"getUser"}),
		Window:   7 * catalog.Day,
		Bucket:   time.Hour,
	}
}

func TestRunEndToEnd(t *testing.T) {
	t.Parallel()

	docs := snapshotDocs()
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	report, err := Run(context.Background(), docs, fullState(), now)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.RunID == "" {
		t.Error("expected run id")
	}
	if report.Empty || report.Err() != nil {
		t.Fatal("report should not be empty")
	}
	if report.Total != 5 || report.Invalid.Delta != 1 {
		t.Errorf("total = %d, invalid = %+v", report.Total, report.Invalid)
	}
	if !reflect.DeepEqual(ids(report.Records), []string{"5", "3", "2", "1"}) {
		t.Errorf("records = %v, want newest first without the invalid row", ids(report.Records))
	}
	for _, r := range report.Records {
		if r.ID == "4" {
			t.Error("record with // path must be excluded")
		}
	}
	if len(report.Aggregates) != 2 {
		t.Fatalf("aggregates = %+v", report.Aggregates)
	}
	if report.Aggregates[0].Count != 2 || report.Aggregates[1].Count != 2 {
		t.Errorf("aggregates = %+v", report.Aggregates)
	}
	if len(report.Narrations) != 5 {
		t.Errorf("narrations = %d", len(report.Narrations))
	}

	text := report.NarrationText()
	if !strings.HasPrefix(text, "After filtering invalid rows\n1 rows dropped, now left with 4 rows\n\n") {
		t.Errorf("narration text = %q", text)
	}
	if !strings.Contains(text, "Column public_ip\n") {
		t.Errorf("narration text missing IP stage: %q", text)
	}

	if _, present := docs[4]["path"]; present {
		t.Error("Run must not modify the snapshot")
	}
}

func TestRunEmptyResult(t *testing.T) {
	t.Parallel()

	state := fullState()
	state.Paths = nil

	report, err := Run(context.Background(), snapshotDocs(), state, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("empty result is not an error: %v", err)
	}
	if !report.Empty {
		t.Error("expected empty report")
	}
	if !errors.Is(report.Err(), ErrEmptyResult) {
		t.Errorf("Err() = %v", report.Err())
	}
	if len(report.Aggregates) != 0 {
		t.Errorf("aggregates = %+v", report.Aggregates)
	}
}

func TestRunWindowExcludesOldRecords(t *testing.T) {
	t.Parallel()

	state := fullState()
	state.Window = catalog.Day

	report, err := Run(context.Background(), snapshotDocs(), state, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if !report.Empty {
		t.Errorf("records older than the window should be excluded, got %v", ids(report.Records))
	}
	last := report.Narrations[len(report.Narrations)-1]
	if last.Column != models.ColumnTimestamp || last.After != 0 {
		t.Errorf("window narration = %+v", last)
	}
}

func TestRunDataFormatError(t *testing.T) {
	t.Parallel()

	docs := append(snapshotDocs(), models.RawDocument{"_id": "bad", "timestamp": "not a time"})
	report, err := Run(context.Background(), docs, fullState(), time.Now())
	if report != nil {
		t.Error("no partial report on a format error")
	}
	var dfe *DataFormatError
	if !errors.As(err, &dfe) {
		t.Fatalf("err = %v, want DataFormatError", err)
	}
	if dfe.ID != "bad" || dfe.Index != 5 {
		t.Errorf("dfe = %+v", dfe)
	}
}

func TestOptions(t *testing.T) {
	t.Parallel()

	prepared, err := Prepare(snapshotDocs())
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	opts := Options(prepared, catalog.Default(), []string{"WebSocket"}, 7*catalog.Day, now)

	if !reflect.DeepEqual(opts.Statuses, []string{"200"}) {
		t.Errorf("statuses = %v", opts.Statuses)
	}
	if !reflect.DeepEqual(opts.Paths, []string{"/api/ws", "getUser"}) {
		t.Errorf("paths = %v", opts.Paths)
	}
	if len(opts.Methods) != 5 {
		t.Errorf("methods = %v", opts.Methods)
	}

	later := Options(prepared, catalog.Default(), nil, catalog.Day, now.Add(30*catalog.Day))
	if len(later.Statuses) != 0 || len(later.Paths) != 0 {
		t.Errorf("nothing observed inside the window, got %+v", later)
	}
}

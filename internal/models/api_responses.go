// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package models

import (
	"time"

	"github.com/tomtom215/logscope/internal/catalog"
)

// APIResponse is the envelope for every JSON response, over HTTP and NATS.
//
//	{
//	  "status": "success",
//	  "data": {...},
//	  "metadata": {"timestamp": "2026-01-02T12:00:00Z", "query_time_ms": 4, "run_id": "01J..."},
//	  "warning": "No data matches your filters. Try broadening them."
//	}
//
// Status is "success" or "error". Warning is set for the empty-result state,
// which is a successful response with no rows.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
	Warning  string      `json:"warning,omitempty"`
}

// Metadata carries timing and caching information.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
	RunID       string    `json:"run_id,omitempty"`
}

// APIError is a structured error body.
//
// Codes: VALIDATION_ERROR, DATA_FORMAT_ERROR, SOURCE_UNAVAILABLE,
// AUTHENTICATION_ERROR, RATE_LIMIT_EXCEEDED, NOT_FOUND, INTERNAL_ERROR.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// AggregateResponse is the payload of the aggregate query.
type AggregateResponse struct {
	Filters        FilterState    `json:"filters"`
	Rows           []AggregateRow `json:"rows"`
	Narrations     []Narration    `json:"narrations"`
	TotalRecords   int            `json:"total_records"`
	InvalidDropped int            `json:"invalid_dropped"`
	MatchedRecords int            `json:"matched_records"`
}

// RecordsResponse is the payload of the raw filtered-records query.
type RecordsResponse struct {
	Filters FilterState `json:"filters"`
	Records []LogRecord `json:"records"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
}

// OptionsResponse lists every selectable value for the dashboard form.
type OptionsResponse struct {
	IPLabels     []string         `json:"ip_labels"`
	Statuses     []string         `json:"statuses"`
	Methods      []string         `json:"methods"`
	Paths        []string         `json:"paths"`
	TimeWindows  []catalog.Choice `json:"time_windows"`
	BucketWidths []catalog.Choice `json:"bucket_widths"`
	Defaults     FilterState      `json:"defaults"`
}

// SnapshotInfo describes the currently loaded snapshot.
type SnapshotInfo struct {
	ID        string    `json:"id"`
	Documents int       `json:"documents"`
	LoadedAt  time.Time `json:"loaded_at"`
	Origin    string    `json:"origin"`
	Source    string    `json:"source"`
	AgeSecond float64   `json:"age_seconds"`
	Error     string    `json:"error,omitempty"`
}

// HealthStatus is returned by the health endpoints.
type HealthStatus struct {
	Status        string    `json:"status"`
	Version       string    `json:"version"`
	SnapshotReady bool      `json:"snapshot_ready"`
	LastLoad      time.Time `json:"last_load,omitempty"`
	Uptime        float64   `json:"uptime_seconds"`
}

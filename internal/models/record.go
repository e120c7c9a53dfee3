// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package models

import (
	"strconv"
	"time"
)

// RawDocument is one access-log document as returned by a source: field name
// to arbitrary value, any field possibly absent.
type RawDocument map[string]any

// Column names a filterable LogRecord field. The values match the document
// field names written by the monitored API.
type Column string

const (
	ColumnPublicIP   Column = "public_ip"
	ColumnStatusCode Column = "status_code"
	ColumnMethod     Column = "method"
	ColumnPath       Column = "path"
	ColumnTimestamp  Column = "timestamp"
	ColumnIsValid    Column = "is_valid"
)

// Recognized document fields. Anything else lands in LogRecord.Extras.
const (
	FieldID          = "_id"
	FieldTimestamp   = "timestamp"
	FieldPath        = "path"
	FieldMethod      = "method"
	FieldType        = "type"
	FieldProcessTime = "process_time"
	FieldStatusCode  = "status_code"
	FieldPublicIP    = "public_ip"
	FieldFunction    = "function"
	FieldDate        = "date"
)

// LogRecord is one normalized API call.
type LogRecord struct {
	ID          string         `json:"id,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Date        string         `json:"date"`
	Path        Opt[string]    `json:"path"`
	Method      Opt[string]    `json:"method"`
	Type        Opt[string]    `json:"type"`
	ProcessTime Opt[float64]   `json:"process_time"`
	StatusCode  Opt[int]       `json:"status_code"`
	PublicIP    Opt[string]    `json:"public_ip"`
	Function    Opt[string]    `json:"function"`
	IsValid     bool           `json:"is_valid"`
	Country     string         `json:"country,omitempty"`
	Extras      map[string]any `json:"extras,omitempty"`
}

// MissingValue is the selectable stand-in for an absent status code or path.
const MissingValue = "(missing)"

// ColumnValue returns the string form of a set-filterable column used for
// membership tests. An absent status code or path reports MissingValue so
// it can be selected like any other value. An absent IP or method reports
// false and never matches.
func (r *LogRecord) ColumnValue(c Column) (string, bool) {
	switch c {
	case ColumnPublicIP:
		return r.PublicIP.Get()
	case ColumnStatusCode:
		if code, ok := r.StatusCode.Get(); ok {
			return strconv.Itoa(code), true
		}
		return MissingValue, true
	case ColumnMethod:
		return r.Method.Get()
	case ColumnPath:
		if p, ok := r.Path.Get(); ok {
			return p, true
		}
		return MissingValue, true
	default:
		return "", false
	}
}

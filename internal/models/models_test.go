// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package models

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestOptAbsentEncodesNull(t *testing.T) {
	t.Parallel()

	row := AggregateRow{Count: 1, Mean: Some(30.0), Std: None[float64]()}
	data, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"std":null`) {
		t.Errorf("expected std null, got %s", s)
	}
	if !strings.Contains(s, `"mean":30`) {
		t.Errorf("expected mean 30, got %s", s)
	}
}

func TestOptUnmarshal(t *testing.T) {
	t.Parallel()

	var v struct {
		A Opt[int]    `json:"a"`
		B Opt[string] `json:"b"`
		C Opt[int]    `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":200,"b":null}`), &v); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got, ok := v.A.Get(); !ok || got != 200 {
		t.Errorf("A = %v, %v", got, ok)
	}
	if v.B.Valid {
		t.Error("B should be absent")
	}
	if v.C.Valid {
		t.Error("C should be absent when the key is missing")
	}
	if v.C.Or(-1) != -1 {
		t.Error("Or should return fallback for absent values")
	}
}

func TestColumnValue(t *testing.T) {
	t.Parallel()

	r := LogRecord{
		StatusCode: Some(404),
		Method:     Some("GET"),
		Path:       Some("/api/users"),
	}
	if v, ok := r.ColumnValue(ColumnStatusCode); !ok || v != "404" {
		t.Errorf("status = %q, %v", v, ok)
	}
	if _, ok := r.ColumnValue(ColumnPublicIP); ok {
		t.Error("absent public_ip must not report a value")
	}
	if _, ok := r.ColumnValue(ColumnTimestamp); ok {
		t.Error("timestamp is not a set-filterable column")
	}

	var bare LogRecord
	for _, c := range []Column{ColumnStatusCode, ColumnPath} {
		if v, ok := bare.ColumnValue(c); !ok || v != MissingValue {
			t.Errorf("absent %s = %q, %v; want %q", c, v, ok, MissingValue)
		}
	}
	if _, ok := bare.ColumnValue(ColumnMethod); ok {
		t.Error("absent method must not report a value")
	}
}

func TestNarrationString(t *testing.T) {
	t.Parallel()

	n := NewNarration(ColumnMethod, 10, 7)
	want := "Column method\nafter filtering \nthe rows dropped from 10 to 7\ni.e. delta is 3\n"
	if got := n.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	inv := NewNarration(ColumnIsValid, 5, 4)
	want = "After filtering invalid rows\n1 rows dropped, now left with 4 rows\n"
	if got := inv.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logs.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileSource_Array(t *testing.T) {
	t.Parallel()

	path := writeFile(t, `
  [
    {"_id": "a", "timestamp": "2026-03-01T10:00:00Z", "method": "GET", "path": "/users/", "process_time": 12.5, "status_code": 200},
    {"_id": "b", "timestamp": 1772359200000, "method": "POST", "function": "login"}
  ]`)

	docs, err := NewFile(path).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("len = %d", len(docs))
	}
	if docs[0]["method"] != "GET" {
		t.Errorf("method = %v", docs[0]["method"])
	}
	if n, ok := docs[0]["process_time"].(json.Number); !ok || n.String() != "12.5" {
		t.Errorf("process_time = %#v, want json.Number", docs[0]["process_time"])
	}
	if _, ok := docs[1]["path"]; ok {
		t.Error("absent keys must stay absent")
	}
}

func TestFileSource_JSONLinesWithExtendedJSON(t *testing.T) {
	t.Parallel()

	path := writeFile(t, `{"_id":{"$oid":"65f0c0ffee0000000000abcd"},"timestamp":{"$date":"2026-03-01T10:00:00Z"},"status_code":{"$numberInt":"404"}}
{"_id":{"$oid":"65f0c0ffee0000000000abce"},"timestamp":{"$date":{"$numberLong":"1772359200000"}},"process_time":{"$numberDouble":"3.25"}}
`)

	docs, err := NewFile(path).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("len = %d", len(docs))
	}
	if docs[0]["_id"] != "65f0c0ffee0000000000abcd" {
		t.Errorf("_id = %#v", docs[0]["_id"])
	}
	if docs[0]["timestamp"] != "2026-03-01T10:00:00Z" {
		t.Errorf("relaxed $date = %#v", docs[0]["timestamp"])
	}
	if docs[0]["status_code"] != json.Number("404") {
		t.Errorf("status_code = %#v", docs[0]["status_code"])
	}
	want := time.UnixMilli(1772359200000).UTC()
	if got, ok := docs[1]["timestamp"].(time.Time); !ok || !got.Equal(want) {
		t.Errorf("canonical $date = %#v, want %v", docs[1]["timestamp"], want)
	}
	if docs[1]["process_time"] != "3.25" {
		t.Errorf("process_time = %#v", docs[1]["process_time"])
	}
}

func TestFileSource_Empty(t *testing.T) {
	t.Parallel()

	docs, err := NewFile(writeFile(t, "  \n")).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("len = %d", len(docs))
	}
}

func TestFileSource_Errors(t *testing.T) {
	t.Parallel()

	missing := NewFile(filepath.Join(t.TempDir(), "nope.json"))
	if _, err := missing.Fetch(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}
	if err := missing.Ping(context.Background()); err == nil {
		t.Error("Ping should fail for missing file")
	}

	broken := NewFile(writeFile(t, `{"_id": "a"}
{not json}`))
	if _, err := broken.Fetch(context.Background()); err == nil {
		t.Error("expected decode error")
	}
}

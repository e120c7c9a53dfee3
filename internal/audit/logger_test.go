// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package audit

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/logscope/internal/logging"
)

// flushed closes l so every queued event has been written.
func flushed(t *testing.T, l *Logger) {
	t.Helper()
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestLogger_LogAuth(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(10)
	l := NewLogger(store, DefaultConfig())

	req := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
	req.RemoteAddr = "203.0.113.9:51234"
	req.Header.Set("User-Agent", "curl/8.5")
	ctx := logging.ContextWithRequestID(context.Background(), "req-1")

	l.LogAuth(ctx, req, "admin", "jwt", nil)
	l.LogAuth(ctx, req, "admin", "jwt", errors.New("invalid username or password"))
	flushed(t, l)

	events, err := store.Query(context.Background(), QueryFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d", len(events))
	}
	failure, success := events[0], events[1]
	if failure.Type != EventTypeAuthFailure || failure.Outcome != OutcomeFailure || failure.Severity != SeverityWarning {
		t.Errorf("failure = %+v", failure)
	}
	if success.Type != EventTypeAuthSuccess || success.Actor.AuthMethod != "jwt" {
		t.Errorf("success = %+v", success)
	}
	if success.Source.IPAddress != "203.0.113.9" || success.Source.UserAgent != "curl/8.5" || success.RequestID != "req-1" {
		t.Errorf("request context not captured: %+v", success)
	}
	if success.ID == "" || success.ID == failure.ID || success.Timestamp.IsZero() {
		t.Errorf("ids = %q %q", success.ID, failure.ID)
	}
}

func TestLogger_LogRefresh(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(10)
	l := NewLogger(store, DefaultConfig())

	l.LogRefresh(context.Background(), nil, "admin", "snap-1", false, nil)
	l.LogRefresh(context.Background(), nil, "admin", "", true, errors.New("throttled"))
	l.LogRefresh(context.Background(), nil, "", "", false, errors.New("source unavailable"))
	flushed(t, l)

	tests := []struct {
		filter QueryFilter
		want   int
	}{
		{QueryFilter{}, 3},
		{QueryFilter{Types: []EventType{EventTypeSnapshotThrottled}}, 1},
		{QueryFilter{Outcome: OutcomeFailure}, 2},
		{QueryFilter{ActorID: "admin"}, 2},
		{QueryFilter{Limit: 1}, 1},
	}
	for _, tt := range tests {
		got, err := store.Query(context.Background(), tt.filter)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != tt.want {
			t.Errorf("Query(%+v) = %d events, want %d", tt.filter, len(got), tt.want)
		}
	}
}

func TestLogger_Disabled(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(10)
	l := NewLogger(store, Config{Enabled: false})
	l.Log(&Event{Type: EventTypeAuthSuccess})
	flushed(t, l)

	if got, _ := store.Query(context.Background(), QueryFilter{}); len(got) != 0 {
		t.Errorf("disabled logger stored %d events", len(got))
	}

	var nilLogger *Logger
	nilLogger.Log(&Event{})
}

func TestMemoryStore_EvictsAndDeletes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore(10)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		if err := store.Save(ctx, &Event{ID: string(rune('a' + i)), Timestamp: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatal(err)
		}
	}
	all, _ := store.Query(ctx, QueryFilter{})
	if len(all) > 10 || all[0].ID != "l" {
		t.Fatalf("after eviction: %d events, newest %q", len(all), all[0].ID)
	}

	start := base.Add(10 * time.Hour)
	if recent, _ := store.Query(ctx, QueryFilter{StartTime: &start}); len(recent) != 2 {
		t.Errorf("StartTime filter = %d", len(recent))
	}

	deleted, err := store.Delete(ctx, base.Add(11*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	remaining, _ := store.Query(ctx, QueryFilter{})
	if len(remaining) != 1 || deleted != int64(len(all)-1) {
		t.Errorf("deleted=%d remaining=%d", deleted, len(remaining))
	}
}

func TestLogger_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	l := NewLogger(NewMemoryStore(1), DefaultConfig())
	defer flushed(t, l)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v", err)
	}
}

// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package snapshot

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/logscope/internal/config"
	"github.com/tomtom215/logscope/internal/models"
	"github.com/tomtom215/logscope/internal/pipeline"
	"github.com/tomtom215/logscope/internal/source"
)

type fakeSource struct {
	calls atomic.Int32
	mu    sync.Mutex
	docs  []models.RawDocument
	err   error
	delay time.Duration
}

func (f *fakeSource) Fetch(ctx context.Context) ([]models.RawDocument, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs, f.err
}

func (f *fakeSource) set(docs []models.RawDocument, err error) {
	f.mu.Lock()
	f.docs, f.err = docs, err
	f.mu.Unlock()
}

func (f *fakeSource) Ping(context.Context) error { return nil }
func (f *fakeSource) Name() string               { return "fake" }
func (f *fakeSource) Close() error               { return nil }

func sampleDocs() []models.RawDocument {
	return []models.RawDocument{
		{"_id": "a", "timestamp": "2026-03-01T10:00:00Z", "method": "GET", "path": "/users/", "process_time": 10.0},
		{"_id": "b", "timestamp": "2026-03-01T11:00:00Z", "method": "GET", "path": "//bad"},
	}
}

func testConfig() config.SnapshotConfig {
	return config.SnapshotConfig{
		TTL:          time.Minute,
		RefreshBurst: 1,
		RefreshEvery: time.Hour,
	}
}

func newTestStore(t *testing.T, src *fakeSource, persist *BadgerStore) *Store {
	t.Helper()
	s := NewStore(src, persist, testConfig(), 5*time.Second)
	t.Cleanup(s.Close)
	return s
}

func openMemBadger(t *testing.T) *BadgerStore {
	t.Helper()
	b, err := OpenBadgerInMemory(time.Hour)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestStore_GetCaches(t *testing.T) {
	t.Parallel()

	src := &fakeSource{docs: sampleDocs()}
	s := newTestStore(t, src, nil)
	ctx := context.Background()

	first, err := s.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	second, err := s.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if first != second {
		t.Error("second Get should return the cached snapshot")
	}
	if src.calls.Load() != 1 {
		t.Errorf("fetches = %d, want 1", src.calls.Load())
	}
	if first.Origin != OriginSource || first.Source != "fake" || first.ID == "" {
		t.Errorf("snapshot = %+v", first)
	}
	if first.Prepared == nil || len(first.Prepared.Records) != 1 || first.Prepared.InvalidDropped.Delta != 1 {
		t.Errorf("prepared = %+v", first.Prepared)
	}
}

func TestStore_ConcurrentGetSharesOneLoad(t *testing.T) {
	t.Parallel()

	src := &fakeSource{docs: sampleDocs(), delay: 50 * time.Millisecond}
	s := newTestStore(t, src, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Get(context.Background()); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if got := src.calls.Load(); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}
}

func TestStore_RefreshIsRateLimited(t *testing.T) {
	t.Parallel()

	src := &fakeSource{docs: sampleDocs()}
	s := newTestStore(t, src, nil)
	ctx := context.Background()

	if _, err := s.Refresh(ctx); err != nil {
		t.Fatalf("first Refresh: %v", err)
	}
	if _, err := s.Refresh(ctx); !errors.Is(err, ErrRefreshThrottled) {
		t.Fatalf("second Refresh err = %v, want ErrRefreshThrottled", err)
	}
	if _, err := s.Reload(ctx); err != nil {
		t.Fatalf("Reload bypasses the limit: %v", err)
	}
	if src.calls.Load() != 2 {
		t.Errorf("fetches = %d, want 2", src.calls.Load())
	}
}

func TestStore_FallsBackToPersisted(t *testing.T) {
	t.Parallel()

	persist := openMemBadger(t)
	ctx := context.Background()

	good := &fakeSource{docs: sampleDocs()}
	original, err := newTestStore(t, good, persist).Get(ctx)
	if err != nil {
		t.Fatal(err)
	}

	down := &fakeSource{err: errors.New("connection refused")}
	s := newTestStore(t, down, persist)
	snap, err := s.Get(ctx)
	if err != nil {
		t.Fatalf("Get with persisted fallback: %v", err)
	}
	if snap.Origin != OriginPersisted || snap.ID != original.ID {
		t.Errorf("origin=%q id=%q, want persisted %q", snap.Origin, snap.ID, original.ID)
	}
	if snap.Prepared == nil || len(snap.Prepared.Records) != 1 {
		t.Errorf("persisted snapshot should normalize the same way: %+v", snap.Prepared)
	}
	if !snap.LoadedAt.Equal(original.LoadedAt) {
		t.Errorf("LoadedAt = %v, want %v", snap.LoadedAt, original.LoadedAt)
	}
}

func TestStore_SourceErrorWithoutPersisted(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, &fakeSource{err: errors.New("down")}, openMemBadger(t))
	if _, err := s.Get(context.Background()); !errors.Is(err, source.ErrUnavailable) {
		t.Fatalf("err = %v, want source.ErrUnavailable", err)
	}
	if _, ok := s.Info(); ok {
		t.Error("Info should report no snapshot")
	}
}

func TestStore_MalformedSnapshot(t *testing.T) {
	t.Parallel()

	persist := openMemBadger(t)
	src := &fakeSource{docs: []models.RawDocument{{"_id": "x", "method": "GET"}}}
	s := newTestStore(t, src, persist)

	snap, err := s.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if snap.Prepared != nil || !pipeline.IsDataFormatError(snap.Err) {
		t.Errorf("want data format error, got prepared=%v err=%v", snap.Prepared, snap.Err)
	}
	if _, err := persist.Load(); !errors.Is(err, ErrNoPersisted) {
		t.Errorf("malformed snapshots must not be persisted, Load err = %v", err)
	}
	info, ok := s.Info()
	if !ok || info.Error == "" {
		t.Errorf("Info = %+v, %v", info, ok)
	}
}

func TestStore_Info(t *testing.T) {
	t.Parallel()

	src := &fakeSource{docs: sampleDocs()}
	s := newTestStore(t, src, nil)
	if _, err := s.Get(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.now = func() time.Time { return s.Last().LoadedAt.Add(90 * time.Second) }

	info, ok := s.Info()
	if !ok {
		t.Fatal("expected info")
	}
	if info.Documents != 2 || info.Source != "fake" || info.Origin != OriginSource {
		t.Errorf("info = %+v", info)
	}
	if info.AgeSecond != 90 {
		t.Errorf("age = %v", info.AgeSecond)
	}
}

func TestRefresher_WarmsAndStops(t *testing.T) {
	t.Parallel()

	src := &fakeSource{docs: sampleDocs()}
	s := newTestStore(t, src, nil)
	r := NewRefresher(s, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for src.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v", err)
	}
	if src.calls.Load() < 3 {
		t.Errorf("fetches = %d, want periodic reloads", src.calls.Load())
	}
	if s.Last() == nil {
		t.Error("refresher should have installed a snapshot")
	}
}

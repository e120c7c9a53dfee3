// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package cache

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	nanos atomic.Int64
}

func newFakeClock() *fakeClock {
	c := &fakeClock{}
	c.nanos.Store(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano())
	return c
}

func (f *fakeClock) Now() time.Time           { return time.Unix(0, f.nanos.Load()) }
func (f *fakeClock) Advance(d time.Duration) { f.nanos.Add(int64(d)) }

func TestCacheSetGet(t *testing.T) {
	t.Parallel()

	c := New[string]("test", time.Minute)
	defer c.Close()

	c.Set("k", "v")
	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Fatalf("Get = %q, %v", got, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss")
	}

	stats := c.GetStats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.TotalKeys != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.HitRate() != 50 {
		t.Errorf("HitRate = %v", stats.HitRate())
	}
}

func TestCacheExpiry(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := newWithClock[int]("test", time.Minute, clock.Now)
	defer c.Close()

	c.Set("a", 1)
	c.SetWithTTL("b", 2, 10*time.Minute)

	clock.Advance(time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Error("entry should expire exactly at its TTL")
	}
	if v, ok := c.Get("b"); !ok || v != 2 {
		t.Error("custom TTL entry should still be present")
	}
	if c.GetStats().Evictions != 1 {
		t.Errorf("evictions = %d", c.GetStats().Evictions)
	}
}

func TestCacheCleanup(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := newWithClock[int]("test", time.Minute, clock.Now)
	defer c.Close()

	for i := 0; i < 10; i++ {
		c.Set(strings.Repeat("k", i+1), i)
	}
	c.SetWithTTL("keep", 99, time.Hour)
	clock.Advance(2 * time.Minute)
	c.cleanup()

	stats := c.GetStats()
	if stats.TotalKeys != 1 || stats.Evictions != 10 {
		t.Errorf("stats after cleanup = %+v", stats)
	}
}

func TestCacheDeleteAndClear(t *testing.T) {
	t.Parallel()

	c := New[int]("test", time.Minute)
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	c.Delete("never-set")
	if _, ok := c.Get("a"); ok {
		t.Error("deleted key still present")
	}
	if c.GetStats().Evictions != 1 {
		t.Errorf("deleting a missing key must not count as an eviction: %+v", c.GetStats())
	}

	c.Clear()
	if _, ok := c.Get("b"); ok {
		t.Error("Clear left entries behind")
	}
	if c.GetStats().TotalKeys != 0 {
		t.Errorf("TotalKeys = %d", c.GetStats().TotalKeys)
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := New[int]("test", time.Minute)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := GenerateKey("k", i%5)
			c.Set(key, i)
			c.Get(key)
			if i%7 == 0 {
				c.Delete(key)
			}
		}(i)
	}
	wg.Wait()
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	c := New[int]("test", time.Minute)
	c.Close()
	c.Close()
	c.Set("still", 1)
	if _, ok := c.Get("still"); !ok {
		t.Error("cache should remain usable after Close")
	}
}

func TestGenerateKey(t *testing.T) {
	t.Parallel()

	type params struct {
		Methods []string `json:"methods"`
		Bucket  string   `json:"bucket"`
	}
	a := GenerateKey("aggregate", params{Methods: []string{"GET"}, Bucket: "1d"})
	b := GenerateKey("aggregate", params{Methods: []string{"GET"}, Bucket: "1d"})
	c := GenerateKey("aggregate", params{Methods: []string{"GET"}, Bucket: "6h"})
	if a != b {
		t.Error("equal params must produce equal keys")
	}
	if a == c {
		t.Error("different params must produce different keys")
	}
	if !strings.HasPrefix(a, "aggregate:") || len(a) != len("aggregate:")+32 {
		t.Errorf("unexpected key format %q", a)
	}

	fallback := GenerateKey("bad", make(chan int))
	if !strings.HasPrefix(fallback, "bad:") {
		t.Errorf("fallback key = %q", fallback)
	}
}

// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package source

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/logscope/internal/config"
	"github.com/tomtom215/logscope/internal/models"
)

// stubSource returns err from Fetch while it is set.
type stubSource struct {
	calls atomic.Int32
	err   atomic.Pointer[error]
}

func (s *stubSource) Fetch(_ context.Context) ([]models.RawDocument, error) {
	s.calls.Add(1)
	if p := s.err.Load(); p != nil {
		return nil, *p
	}
	return []models.RawDocument{{"_id": "a"}}, nil
}

func (s *stubSource) Ping(context.Context) error { return nil }
func (s *stubSource) Name() string               { return "stub" }
func (s *stubSource) Close() error               { return nil }

func (s *stubSource) fail(err error) { s.err.Store(&err) }

func breakerConfig() config.BreakerConfig {
	return config.BreakerConfig{
		Enabled:      true,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Hour,
		MinRequests:  3,
		FailureRatio: 0.6,
	}
}

func TestBreakerSource_PassesThrough(t *testing.T) {
	t.Parallel()

	stub := &stubSource{}
	b := NewBreaker(stub, breakerConfig())

	docs, err := b.Fetch(context.Background())
	if err != nil || len(docs) != 1 {
		t.Fatalf("Fetch = %v, %v", docs, err)
	}
	if b.Name() != "stub" || b.State() != "closed" {
		t.Errorf("name=%q state=%q", b.Name(), b.State())
	}
}

func TestBreakerSource_OpensAfterFailures(t *testing.T) {
	t.Parallel()

	stub := &stubSource{}
	stub.fail(errors.New("connection refused"))
	b := NewBreaker(stub, breakerConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := b.Fetch(ctx); err == nil {
			t.Fatal("expected failure")
		}
	}
	if b.State() != "open" {
		t.Fatalf("state = %q, want open", b.State())
	}

	_, err := b.Fetch(ctx)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("err = %v, want ErrOpenState", err)
	}
	if got := stub.calls.Load(); got != 3 {
		t.Errorf("inner calls = %d, open breaker must not reach the source", got)
	}
}

func TestBreakerSource_BelowMinimumStaysClosed(t *testing.T) {
	t.Parallel()

	stub := &stubSource{}
	stub.fail(errors.New("boom"))
	b := NewBreaker(stub, breakerConfig())

	for i := 0; i < 2; i++ {
		_, _ = b.Fetch(context.Background())
	}
	if b.State() != "closed" {
		t.Errorf("state = %q, want closed below MinRequests", b.State())
	}
}

func TestBreakerSource_CancellationIsNotFailure(t *testing.T) {
	t.Parallel()

	stub := &stubSource{}
	stub.fail(context.Canceled)
	b := NewBreaker(stub, breakerConfig())

	for i := 0; i < 5; i++ {
		_, _ = b.Fetch(context.Background())
	}
	if b.State() != "closed" {
		t.Errorf("state = %q, cancellations must not trip the breaker", b.State())
	}
}

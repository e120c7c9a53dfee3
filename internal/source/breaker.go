// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package source

import (
	"context"
	"errors"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/logscope/internal/config"
	"github.com/tomtom215/logscope/internal/logging"
	"github.com/tomtom215/logscope/internal/metrics"
	"github.com/tomtom215/logscope/internal/models"
)

// BreakerSource guards a Source with a circuit breaker so a down store
// fails fast instead of stalling every refresh for the full timeout.
//
// The breaker uses real time for its interval and timeout. Tests drive it
// with counts, not clocks.
type BreakerSource struct {
	inner Source
	cb    *gobreaker.CircuitBreaker[[]models.RawDocument]
	name  string
}

// NewBreaker wraps inner. The circuit opens once at least cfg.MinRequests
// fetches were made in the current interval and the failure ratio reaches
// cfg.FailureRatio.
func NewBreaker(inner Source, cfg config.BreakerConfig) *BreakerSource {
	name := inner.Name() + "-source"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]models.RawDocument](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			trip := ratio >= cfg.FailureRatio
			if trip {
				logging.Warn().Str("breaker", name).Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", ratio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return trip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).
				Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
		// A cancelled request says nothing about the store's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &BreakerSource{inner: inner, cb: cb, name: name}
}

// Name implements Source.
func (b *BreakerSource) Name() string { return b.inner.Name() }

// Ping bypasses the breaker so readiness reflects the store itself.
func (b *BreakerSource) Ping(ctx context.Context) error { return b.inner.Ping(ctx) }

// Close implements Source.
func (b *BreakerSource) Close() error { return b.inner.Close() }

// State returns the breaker state as "closed", "half-open" or "open".
func (b *BreakerSource) State() string { return stateToString(b.cb.State()) }

// Fetch implements Source.
func (b *BreakerSource) Fetch(ctx context.Context) ([]models.RawDocument, error) {
	docs, err := b.cb.Execute(func() ([]models.RawDocument, error) {
		return b.inner.Fetch(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			logging.Warn().Err(err).Str("breaker", b.name).Msg("[CIRCUIT BREAKER] Request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		}
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	return docs, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

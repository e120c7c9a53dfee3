// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

// Package source reads the raw access-log snapshot from the configured
// document store. Every implementation returns the whole collection; the
// pipeline does all filtering in memory.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/logscope/internal/config"
	"github.com/tomtom215/logscope/internal/logging"
	"github.com/tomtom215/logscope/internal/metrics"
	"github.com/tomtom215/logscope/internal/models"
)

// ErrUnavailable wraps every failed snapshot load so callers can answer
// with 503 without inspecting driver errors.
var ErrUnavailable = errors.New("source unavailable")

// Source fetches every access-log document from a backing store.
type Source interface {
	// Fetch returns the full collection. Field names are passed through
	// unchanged; the pipeline normalizes them.
	Fetch(ctx context.Context) ([]models.RawDocument, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// Name identifies the source in logs and metrics.
	Name() string

	Close() error
}

// New builds the source selected by cfg.Kind, wrapped in a circuit breaker
// when cfg.Breaker.Enabled is set.
func New(ctx context.Context, cfg config.SourceConfig) (Source, error) {
	var (
		src Source
		err error
	)
	switch cfg.Kind {
	case config.SourceMongo:
		src, err = NewMongo(ctx, cfg.Mongo, cfg.Timeout)
	case config.SourceDuckDB:
		src, err = NewDuckDB(cfg.SQL)
	case config.SourceSQLite:
		src, err = NewSQLite(cfg.SQL)
	case config.SourceFile:
		src = NewFile(cfg.File.Path)
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
	if err != nil {
		return nil, err
	}

	logging.Info().Str("source", src.Name()).Bool("breaker", cfg.Breaker.Enabled).Msg("Source configured")
	if cfg.Breaker.Enabled {
		return NewBreaker(src, cfg.Breaker), nil
	}
	return src, nil
}

// timedFetch runs fetch and records its duration under name.
func timedFetch(name string, fetch func() ([]models.RawDocument, error)) ([]models.RawDocument, error) {
	start := time.Now()
	docs, err := fetch()
	metrics.RecordSourceFetch(name, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%s fetch: %w", name, err)
	}
	logging.Debug().Str("source", name).Int("documents", len(docs)).
		Dur("duration", time.Since(start)).Msg("Snapshot fetched")
	return docs, nil
}

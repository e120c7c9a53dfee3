// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

// Package snapshot owns the in-memory copy of the access-log collection.
//
// The whole collection is fetched once, normalized once, and shared
// read-only by every request until its TTL expires or a refresh replaces
// it. A replaced snapshot is never mutated, so requests that already hold
// it finish against consistent data.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/logscope/internal/cache"
	"github.com/tomtom215/logscope/internal/config"
	"github.com/tomtom215/logscope/internal/logging"
	"github.com/tomtom215/logscope/internal/metrics"
	"github.com/tomtom215/logscope/internal/models"
	"github.com/tomtom215/logscope/internal/pipeline"
	"github.com/tomtom215/logscope/internal/source"
)

// Snapshot origins.
const (
	OriginSource    = "source"
	OriginPersisted = "persisted"
)

const cacheKey = "current"

// ErrRefreshThrottled is returned by Refresh when the refresh rate limit is
// exhausted.
var ErrRefreshThrottled = errors.New("snapshot refresh throttled")

// Snapshot is one immutable load of the collection.
type Snapshot struct {
	ID        string
	Documents []models.RawDocument
	LoadedAt  time.Time
	Origin    string
	Source    string

	// Prepared is nil when normalization failed; Err then holds the
	// *pipeline.DataFormatError.
	Prepared *pipeline.Prepared
	Err      error
}

func newSnapshot(id string, docs []models.RawDocument, origin, src string, loadedAt time.Time) *Snapshot {
	s := &Snapshot{
		ID:        id,
		Documents: docs,
		LoadedAt:  loadedAt,
		Origin:    origin,
		Source:    src,
	}
	s.Prepared, s.Err = pipeline.Prepare(docs)
	return s
}

// Store loads snapshots from a Source, caches them for the configured TTL
// and falls back to the last persisted snapshot when the source fails.
type Store struct {
	src     source.Source
	persist *BadgerStore
	current *cache.Cache[*Snapshot]
	limiter *rate.Limiter
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time

	loadMu sync.Mutex

	lastMu sync.RWMutex
	last   *Snapshot
}

// NewStore creates a store. persist may be nil. fetchTimeout bounds each
// source fetch.
func NewStore(src source.Source, persist *BadgerStore, cfg config.SnapshotConfig, fetchTimeout time.Duration) *Store {
	return &Store{
		src:     src,
		persist: persist,
		current: cache.New[*Snapshot]("snapshot", cfg.TTL),
		limiter: rate.NewLimiter(rate.Every(cfg.RefreshEvery), cfg.RefreshBurst),
		ttl:     cfg.TTL,
		timeout: fetchTimeout,
		now:     time.Now,
	}
}

// Get returns the cached snapshot, loading it if absent or expired.
// Concurrent callers share a single load.
func (s *Store) Get(ctx context.Context) (*Snapshot, error) {
	if snap, ok := s.current.Get(cacheKey); ok {
		return snap, nil
	}
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if snap, ok := s.current.Get(cacheKey); ok {
		return snap, nil
	}
	return s.load(ctx)
}

// Refresh reloads from the source on user request, subject to the refresh
// rate limit.
func (s *Store) Refresh(ctx context.Context) (*Snapshot, error) {
	if !s.limiter.Allow() {
		return nil, ErrRefreshThrottled
	}
	return s.Reload(ctx)
}

// Reload unconditionally reloads from the source.
func (s *Store) Reload(ctx context.Context) (*Snapshot, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	return s.load(ctx)
}

// Last returns the most recently loaded snapshot, even if expired, or nil.
func (s *Store) Last() *Snapshot {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	return s.last
}

// Info describes the most recent snapshot. ok is false before the first
// successful load.
func (s *Store) Info() (models.SnapshotInfo, bool) {
	snap := s.Last()
	if snap == nil {
		return models.SnapshotInfo{}, false
	}
	info := models.SnapshotInfo{
		ID:        snap.ID,
		Documents: len(snap.Documents),
		LoadedAt:  snap.LoadedAt,
		Origin:    snap.Origin,
		Source:    snap.Source,
		AgeSecond: s.now().Sub(snap.LoadedAt).Seconds(),
	}
	if snap.Err != nil {
		info.Error = snap.Err.Error()
	}
	return info, true
}

// Ping checks the underlying source.
func (s *Store) Ping(ctx context.Context) error {
	return s.src.Ping(ctx)
}

// Close stops the cache sweep. The source and persist store are owned by
// the caller.
func (s *Store) Close() {
	s.current.Close()
}

// load must be called with loadMu held.
func (s *Store) load(ctx context.Context) (*Snapshot, error) {
	log := logging.Ctx(ctx)

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	docs, err := s.src.Fetch(fetchCtx)
	cancel()
	if err != nil {
		metrics.RecordSnapshotLoad(OriginSource, 0, err)
		log.Error().Err(err).Str("source", s.src.Name()).Msg("Snapshot fetch failed")

		fallback, ferr := s.loadPersisted()
		if ferr != nil {
			if !errors.Is(ferr, ErrNoPersisted) {
				log.Warn().Err(ferr).Msg("Persisted snapshot unavailable")
			}
			return nil, fmt.Errorf("load snapshot: %w: %w", source.ErrUnavailable, err)
		}
		log.Warn().Str("snapshot_id", fallback.ID).Time("loaded_at", fallback.LoadedAt).
			Msg("Serving persisted snapshot while the source is unavailable")
		s.install(fallback)
		return fallback, nil
	}

	snap := newSnapshot(ulid.Make().String(), docs, OriginSource, s.src.Name(), s.now().UTC())
	metrics.RecordSnapshotLoad(OriginSource, len(docs), nil)
	if snap.Err != nil {
		log.Error().Err(snap.Err).Str("snapshot_id", snap.ID).Msg("Snapshot contains malformed documents")
	} else if s.persist != nil {
		if perr := s.persist.Save(snap); perr != nil {
			log.Warn().Err(perr).Msg("Failed to persist snapshot")
		}
	}
	log.Info().Str("snapshot_id", snap.ID).Int("documents", len(docs)).Msg("Snapshot loaded")
	s.install(snap)
	return snap, nil
}

func (s *Store) loadPersisted() (*Snapshot, error) {
	if s.persist == nil {
		return nil, ErrNoPersisted
	}
	p, err := s.persist.Load()
	if err != nil {
		metrics.RecordSnapshotLoad(OriginPersisted, 0, err)
		return nil, err
	}
	snap := newSnapshot(p.ID, p.Documents, OriginPersisted, p.Source, p.LoadedAt)
	metrics.RecordSnapshotLoad(OriginPersisted, len(p.Documents), snap.Err)
	return snap, nil
}

func (s *Store) install(snap *Snapshot) {
	s.current.Set(cacheKey, snap)
	s.lastMu.Lock()
	s.last = snap
	s.lastMu.Unlock()
}

// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/logscope/internal/logging"
	"github.com/tomtom215/logscope/internal/models"
)

var latestKey = []byte("snapshot:latest")

// ErrNoPersisted is returned when no unexpired snapshot is on disk.
var ErrNoPersisted = errors.New("no persisted snapshot")

// Persisted is the on-disk form of a snapshot. Documents are stored as
// fetched; normalization runs again on load.
type Persisted struct {
	ID        string               `json:"id"`
	LoadedAt  time.Time            `json:"loaded_at"`
	Source    string               `json:"source"`
	Documents []models.RawDocument `json:"documents"`
}

// BadgerStore keeps the last good snapshot on disk so the dashboard can
// start, and keep serving, while the source is unreachable.
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenBadger opens (or creates) the store at path. Entries expire after ttl.
func OpenBadger(path string, ttl time.Duration) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	return openBadger(opts, ttl)
}

// OpenBadgerInMemory opens a store that lives only as long as the process.
func OpenBadgerInMemory(ttl time.Duration) (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return openBadger(opts, ttl)
}

func openBadger(opts badger.Options, ttl time.Duration) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}
	logging.Info().Str("path", opts.Dir).Bool("in_memory", opts.InMemory).
		Dur("ttl", ttl).Msg("Snapshot store opened")
	return &BadgerStore{db: db, ttl: ttl}, nil
}

// Save replaces the stored snapshot.
func (b *BadgerStore) Save(s *Snapshot) error {
	data, err := json.Marshal(Persisted{
		ID:        s.ID,
		LoadedAt:  s.LoadedAt,
		Source:    s.Source,
		Documents: s.Documents,
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(latestKey, data)
		if b.ttl > 0 {
			e = e.WithTTL(b.ttl)
		}
		return txn.SetEntry(e)
	})
}

// Load returns the stored snapshot, or ErrNoPersisted.
func (b *BadgerStore) Load() (*Persisted, error) {
	var p Persisted
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(latestKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNoPersisted
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			dec := json.NewDecoder(bytes.NewReader(val))
			dec.UseNumber()
			return dec.Decode(&p)
		})
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Close flushes and closes the database.
func (b *BadgerStore) Close() error {
	return b.db.Close()
}

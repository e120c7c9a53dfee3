// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package snapshot

import (
	"context"
	"time"

	"github.com/tomtom215/logscope/internal/logging"
)

// Refresher warms the store at startup and reloads it on a fixed interval
// so requests rarely pay for a fetch.
type Refresher struct {
	store    *Store
	interval time.Duration
}

// NewRefresher creates a refresher. A non-positive interval disables the
// periodic reload; the startup warm-up still runs.
func NewRefresher(store *Store, interval time.Duration) *Refresher {
	return &Refresher{store: store, interval: interval}
}

// Run blocks until ctx is done. Load failures are logged and retried on
// the next tick, never returned.
func (r *Refresher) Run(ctx context.Context) error {
	log := logging.WithComponent("snapshot-refresher")
	if _, err := r.store.Get(ctx); err != nil {
		log.Warn().Err(err).Msg("Initial snapshot load failed")
	}

	if r.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.store.Reload(ctx); err != nil {
				log.Warn().Err(err).Msg("Scheduled snapshot reload failed")
			}
		}
	}
}

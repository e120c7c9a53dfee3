// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

// Package audit keeps a trail of security-relevant actions: login attempts
// and forced snapshot refreshes.
//
// Logger.Log is non-blocking. Events go through a buffered channel to a
// background writer that saves them to a Store; when the buffer is full the
// event is dropped with a warning. Event IDs are ULIDs, so they sort by time.
//
//	logger := audit.NewLogger(audit.NewMemoryStore(5000), audit.DefaultConfig())
//	defer logger.Close()
//
//	logger.LogAuth(ctx, r, "admin", "jwt", err)
//	events, _ := logger.Query(ctx, audit.QueryFilter{
//	    Types: []audit.EventType{audit.EventTypeAuthFailure},
//	    Limit: 50,
//	})
//
// Logger.Run enforces the retention period and is meant to run under the
// supervisor tree.
package audit

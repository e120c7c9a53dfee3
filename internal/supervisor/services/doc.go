// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

// Package services adapts Logscope's long-running components to
// suture.Service: the HTTP server and Run(ctx) loops like the snapshot
// refresher. The NATS responder implements suture.Service itself.
package services

// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package api

import (
	"context"
	"time"

	"github.com/tomtom215/logscope/internal/audit"
	"github.com/tomtom215/logscope/internal/auth"
	"github.com/tomtom215/logscope/internal/middleware"
	"github.com/tomtom215/logscope/internal/models"
	"github.com/tomtom215/logscope/internal/query"
	"github.com/tomtom215/logscope/internal/snapshot"
)

// SnapshotManager is the part of *snapshot.Store the handlers use.
type SnapshotManager interface {
	Get(ctx context.Context) (*snapshot.Snapshot, error)
	Refresh(ctx context.Context) (*snapshot.Snapshot, error)
	Info() (models.SnapshotInfo, bool)
	Ping(ctx context.Context) error
}

// Handler contains dependencies for API handlers
//
// Handler methods are split across files:
//   - handlers_query.go: dashboard data (catalog, options, aggregate, records, narration, chart)
//   - handlers_snapshot.go: snapshot metadata and refresh
//   - handlers_auth.go: login
//   - handlers_audit.go: audit trail
//   - handlers_health.go: liveness, readiness, performance
type Handler struct {
	service   *query.Service
	snapshots SnapshotManager
	auth      *auth.Middleware
	perfMon   *middleware.PerformanceMonitor
	audit     *audit.Logger
	version   string
	startTime time.Time
}

// NewHandler creates a handler. perfMon may be nil.
func NewHandler(service *query.Service, snapshots SnapshotManager, authMW *auth.Middleware, perfMon *middleware.PerformanceMonitor, version string) *Handler {
	return &Handler{
		service:   service,
		snapshots: snapshots,
		auth:      authMW,
		perfMon:   perfMon,
		version:   version,
		startTime: time.Now(),
	}
}

// SetAuditLogger enables the audit trail for logins and refreshes.
func (h *Handler) SetAuditLogger(l *audit.Logger) {
	h.audit = l
}

// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/logscope/internal/middleware"
	"github.com/tomtom215/logscope/internal/models"
)

// HealthLive reports that the process is up.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, h.health("alive"))
}

// HealthReady reports 200 once a usable snapshot is loaded and 503 before.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	info, ok := h.snapshots.Info()
	if !ok || info.Error != "" {
		status := h.health("not_ready")
		respondJSON(w, r, http.StatusServiceUnavailable, &models.APIResponse{
			Status:   "error",
			Data:     status,
			Metadata: models.Metadata{Timestamp: time.Now().UTC()},
			Error:    &models.APIError{Code: "SERVICE_UNAVAILABLE", Message: "No usable snapshot loaded"},
		})
		return
	}
	status := h.health("ready")
	status.SnapshotReady = true
	status.LastLoad = info.LoadedAt
	respondSuccess(w, r, status)
}

func (h *Handler) health(state string) models.HealthStatus {
	return models.HealthStatus{
		Status:  state,
		Version: h.version,
		Uptime:  time.Since(h.startTime).Seconds(),
	}
}

// Performance returns per-route latency percentiles of this API.
func (h *Handler) Performance(w http.ResponseWriter, r *http.Request) {
	if h.perfMon == nil {
		respondSuccess(w, r, []middleware.EndpointStats{})
		return
	}
	respondSuccess(w, r, h.perfMon.GetStats())
}

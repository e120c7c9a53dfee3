// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/logscope/internal/auth"
	"github.com/tomtom215/logscope/internal/logging"
	"github.com/tomtom215/logscope/internal/snapshot"
)

// Snapshot returns metadata about the loaded snapshot, loading one if none
// is cached.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if _, err := h.snapshots.Get(r.Context()); err != nil {
		respondQueryError(w, r, err)
		return
	}
	info, _ := h.snapshots.Info()
	respondSuccess(w, r, info)
}

// RefreshSnapshot reloads the snapshot from the source. Requests beyond the
// refresh rate limit get 429.
func (h *Handler) RefreshSnapshot(w http.ResponseWriter, r *http.Request) {
	user := "anonymous"
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		user = claims.Username
	}

	snap, err := h.snapshots.Refresh(r.Context())
	if err != nil {
		h.audit.LogRefresh(r.Context(), r, user, "", errors.Is(err, snapshot.ErrRefreshThrottled), err)
		respondQueryError(w, r, err)
		return
	}
	h.audit.LogRefresh(r.Context(), r, user, snap.ID, false, nil)
	logging.Ctx(r.Context()).Info().Str("user", user).Str("snapshot_id", snap.ID).Str("origin", snap.Origin).Msg("Snapshot refreshed on request")

	info, _ := h.snapshots.Info()
	respondSuccess(w, r, info)
}

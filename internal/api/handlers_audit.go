// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package api

import (
	"net/http"
	"strconv"

	"github.com/tomtom215/logscope/internal/audit"
	"github.com/tomtom215/logscope/internal/query"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

// AuditEvents lists recent audit events, newest first.
//
// Query parameters: type (repeatable), outcome, actor, limit.
func (h *Handler) AuditEvents(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Audit logging is disabled", nil)
		return
	}

	q := r.URL.Query()
	filter := audit.QueryFilter{
		Outcome: audit.Outcome(q.Get("outcome")),
		ActorID: q.Get("actor"),
		Limit:   defaultAuditLimit,
	}
	for _, t := range q["type"] {
		filter.Types = append(filter.Types, audit.EventType(t))
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, r, http.StatusBadRequest, query.CodeValidation, "limit must be a positive integer", nil)
			return
		}
		filter.Limit = min(n, maxAuditLimit)
	}

	events, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, query.CodeInternal, "Failed to query audit events", err)
		return
	}
	respondSuccess(w, r, events)
}

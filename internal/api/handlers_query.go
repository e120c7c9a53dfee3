// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/tomtom215/logscope/internal/logging"
	"github.com/tomtom215/logscope/internal/query"
)

type queryFunc func(ctx context.Context, req query.Request) (*query.Result, error)

// serveQuery parses the URL into a query.Request, runs fn and writes the
// envelope.
func (h *Handler) serveQuery(w http.ResponseWriter, r *http.Request, fn queryFunc) {
	req, err := query.ParseValues(r.URL.Query())
	if err != nil {
		respondQueryError(w, r, err)
		return
	}
	res, err := fn(r.Context(), req)
	if err != nil {
		respondQueryError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Debug().Str("run_id", res.RunID).Bool("cached", res.Cached).
		Bool("empty", res.Empty).Msg("Query served")
	respondJSON(w, r, http.StatusOK, res.Response())
}

// Catalog returns the endpoint catalog.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, h.service.Catalog())
}

// Options returns every selectable filter value.
func (h *Handler) Options(w http.ResponseWriter, r *http.Request) {
	h.serveQuery(w, r, h.service.Options)
}

// Aggregate returns the bucketed statistics.
func (h *Handler) Aggregate(w http.ResponseWriter, r *http.Request) {
	h.serveQuery(w, r, h.service.Aggregate)
}

// Records returns the filtered records.
func (h *Handler) Records(w http.ResponseWriter, r *http.Request) {
	h.serveQuery(w, r, h.service.Records)
}

// Narration returns the filter report. With Accept: text/plain the text is
// written as is.
func (h *Handler) Narration(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Accept") != "text/plain" {
		h.serveQuery(w, r, h.service.Narration)
		return
	}
	req, err := query.ParseValues(r.URL.Query())
	if err != nil {
		respondQueryError(w, r, err)
		return
	}
	res, err := h.service.Narration(r.Context(), req)
	if err != nil {
		respondQueryError(w, r, err)
		return
	}
	text, _ := res.Data.(string)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

// Chart returns the PNG chart, or the JSON empty-result warning when no
// records match.
func (h *Handler) Chart(w http.ResponseWriter, r *http.Request) {
	req, err := query.ParseValues(r.URL.Query())
	if err != nil {
		respondQueryError(w, r, err)
		return
	}
	res, err := h.service.Chart(r.Context(), req)
	if err != nil {
		respondQueryError(w, r, err)
		return
	}
	img, ok := res.Data.([]byte)
	if res.Empty || !ok {
		respondJSON(w, r, http.StatusOK, res.Response())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.Header().Set("Cache-Control", "private, max-age=60")
	w.Header().Set("X-Run-ID", res.RunID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

/*
Package middleware provides the HTTP middleware shared by every dashboard
route: request IDs, Prometheus instrumentation, gzip compression for the
JSON payloads, and a rolling latency monitor.

All middleware has the chi signature func(http.Handler) http.Handler, so
the router mounts them with r.Use:

	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(monitor.Middleware)
	r.Use(middleware.Compression)

Authentication and security headers live in package auth.
*/
package middleware

// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

/*
Package api serves the dashboard over HTTP with the chi router.

Routes:

	GET  /health/live              liveness
	GET  /health/ready             readiness (a snapshot is loaded)
	GET  /metrics                  Prometheus
	POST /api/v1/auth/login        issue a session token
	GET  /api/v1/catalog           endpoint catalog
	GET  /api/v1/options           selectable filter values
	GET  /api/v1/aggregate         per-bucket latency statistics
	GET  /api/v1/records           filtered records, newest first
	GET  /api/v1/narration         plain-text filter report
	GET  /api/v1/chart.png         rendered chart
	GET  /api/v1/snapshot          snapshot metadata
	POST /api/v1/snapshot/refresh  reload from the source
	GET  /api/v1/performance       latency of this API

Query parameters for the data routes are ips, statuses, methods, paths,
window and bucket. A parameter that is absent takes the configured default;
a parameter that is present but empty selects nothing.

JSON responses use models.APIResponse.
*/
package api

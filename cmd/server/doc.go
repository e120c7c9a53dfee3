// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

/*
Command server runs the Logscope access-log analytics API.

Logscope reads request-log documents from a log store, normalizes them into
a snapshot, and answers dashboard queries over the snapshot: filtered
records, per-bucket call counts with latency statistics, a narration of
how many rows each filter dropped, and a rendered PNG chart.

# Process layout

	RootSupervisor ("logscope")
	├── DataSupervisor ("data-layer")
	│   └── snapshot refresher
	├── MessagingSupervisor ("messaging-layer")
	│   └── NATS query responder (NATS_ENABLED=true)
	└── APISupervisor ("api-layer")
	    └── HTTP server

Startup order:

 1. Configuration: koanf v2 (defaults, config.yaml, environment)
 2. Logging: zerolog, JSON or console
 3. Source: MongoDB, DuckDB, SQLite or a JSON export file, optionally
    behind a circuit breaker
 4. Snapshot store: in-memory TTL cache plus optional Badger persistence
 5. GeoIP: optional MaxMind country database
 6. Auth: none, jwt or basic
 7. Supervisor tree and signal handling

# Configuration

Common environment variables:

	SOURCE_KIND=mongo            # mongo, duckdb, sqlite or file
	MONGO_URI=mongodb://localhost:27017
	MONGO_DATABASE=logs
	MONGO_COLLECTION=requests
	SNAPSHOT_TTL=5m
	SNAPSHOT_PERSIST_PATH=/data/snapshot
	AUTH_MODE=jwt
	JWT_SECRET=$(openssl rand -base64 32)
	ADMIN_USERNAME=admin
	ADMIN_PASSWORD_HASH='$2a$10$...'
	NATS_ENABLED=true
	NATS_URL=nats://localhost:4222

# Signal handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains
in-flight requests for up to 10s and the NATS subscriptions are drained
before the connection closes.
*/
package main

// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

//go:build integration

// Package testinfra starts throwaway containers for integration tests.
//
// Tests using it are built only with the integration tag and skip when
// Docker is unavailable:
//
//	go test -tags integration ./internal/source/...
//
// # MongoDB
//
//	func TestMongoSource(t *testing.T) {
//	    ctx := context.Background()
//	    mongo := testinfra.StartMongo(ctx, t)
//	    _ = mongo.Seed(ctx, "markly", "APILogs", docs)
//	    src, _ := source.NewMongo(ctx, mongo.SourceConfig("markly", "APILogs"), 10*time.Second)
//	}
//
// StartMongo skips the test without Docker and terminates the container in
// t.Cleanup.
//
// The first run pulls the image; later runs use the local cache.
package testinfra

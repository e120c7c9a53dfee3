// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

//go:build integration

package testinfra

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
)

// dockerReachable reports whether a Docker daemon answers `docker info`
// within a few seconds.
func dockerReachable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, "docker", "info").Run() == nil
}

// testLogger forwards testcontainers lifecycle output to the test log.
type testLogger struct {
	t testing.TB
}

func (l testLogger) Printf(format string, v ...any) {
	l.t.Logf(format, v...)
}

// terminateOnCleanup stops c when the test finishes. A failed terminate is
// logged; the container is throwaway either way.
func terminateOnCleanup(t testing.TB, c testcontainers.Container) {
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := c.Terminate(ctx); err != nil {
			t.Logf("terminate container %s: %v", c.GetContainerID(), err)
		}
	})
}

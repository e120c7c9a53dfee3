// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package services

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// stuckServer serves until Shutdown, which then fails as if connections
// never drained.
type stuckServer struct {
	ln       net.Listener
	accepted chan struct{}
}

func (s *stuckServer) Serve(l net.Listener) error {
	s.ln = l
	close(s.accepted)
	for {
		conn, err := l.Accept()
		if err != nil {
			return http.ErrServerClosed
		}
		_ = conn.Close()
	}
}

func (s *stuckServer) Shutdown(context.Context) error {
	_ = s.ln.Close()
	return errors.New("connections did not drain")
}

var _ suture.Service = (*HTTPServerService)(nil)
var _ suture.Service = (*RunnerService)(nil)

func waitForAddr(t *testing.T, svc *HTTPServerService) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for svc.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("service never bound a listener")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return svc.Addr().String()
}

func TestHTTPServerService_ServesAndDrains(t *testing.T) {
	t.Parallel()

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
		ReadHeaderTimeout: time.Second,
	}
	svc := NewHTTPServerService(server, "127.0.0.1:0", time.Second)
	if svc.String() != "http-server" || svc.drainTimeout != time.Second {
		t.Errorf("svc = %s, drain %v", svc, svc.drainTimeout)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	resp, err := http.Get("http://" + waitForAddr(t, svc) + "/health/live")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestHTTPServerService_PortInUse(t *testing.T) {
	t.Parallel()

	held, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer held.Close()

	svc := NewHTTPServerService(&http.Server{ReadHeaderTimeout: time.Second}, held.Addr().String(), 0)
	if svc.drainTimeout != 10*time.Second {
		t.Errorf("default drain = %v", svc.drainTimeout)
	}
	if err := svc.Serve(context.Background()); err == nil {
		t.Fatal("Serve on a held port should fail")
	}
	if svc.Addr() != nil {
		t.Errorf("Addr = %v after a failed bind", svc.Addr())
	}
}

func TestHTTPServerService_DrainFailure(t *testing.T) {
	t.Parallel()

	srv := &stuckServer{accepted: make(chan struct{})}
	svc := NewHTTPServerService(srv, "127.0.0.1:0", 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()
	<-srv.accepted
	cancel()

	if err := <-done; err == nil || errors.Is(err, context.Canceled) {
		t.Errorf("Serve returned %v, want drain failure", err)
	}
}

func TestRunnerService(t *testing.T) {
	t.Parallel()

	t.Run("canceled loop", func(t *testing.T) {
		svc := NewRunnerService("snapshot-refresher", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := svc.Serve(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("Serve = %v", err)
		}
		if svc.String() != "snapshot-refresher" {
			t.Errorf("String() = %q", svc.String())
		}
	})

	t.Run("finished loop is not restarted", func(t *testing.T) {
		svc := NewRunnerService("disabled", func(context.Context) error { return nil })
		if err := svc.Serve(context.Background()); !errors.Is(err, suture.ErrDoNotRestart) {
			t.Errorf("Serve = %v", err)
		}
	})

	t.Run("failure propagates", func(t *testing.T) {
		boom := errors.New("boom")
		svc := NewRunnerService("broken", func(context.Context) error { return boom })
		if err := svc.Serve(context.Background()); !errors.Is(err, boom) {
			t.Errorf("Serve = %v", err)
		}
	})
}

// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/tomtom215/logscope/internal/logging"
)

// HTTPServer is the part of *http.Server the service drives.
type HTTPServer interface {
	Serve(l net.Listener) error
	Shutdown(ctx context.Context) error
}

// HTTPServerService serves the dashboard API under suture.
//
// Each Serve binds its own listener, so a port that is still held after a
// restart fails that attempt instead of the process. On cancellation open
// requests get drainTimeout to finish.
//
//	server := &http.Server{Handler: router}
//	tree.AddAPIService(services.NewHTTPServerService(server, ":8080", 10*time.Second))
type HTTPServerService struct {
	server       HTTPServer
	addr         string
	drainTimeout time.Duration

	mu    sync.Mutex
	bound net.Addr
}

// NewHTTPServerService serves server on addr. A non-positive drainTimeout
// means 10s.
func NewHTTPServerService(server HTTPServer, addr string, drainTimeout time.Duration) *HTTPServerService {
	if drainTimeout <= 0 {
		drainTimeout = 10 * time.Second
	}
	return &HTTPServerService{server: server, addr: addr, drainTimeout: drainTimeout}
}

// Addr returns the address of the current listener, or nil before the
// first bind. With port 0 this is where the kernel placed it.
func (h *HTTPServerService) Addr() net.Addr {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bound
}

// Serve implements suture.Service.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", h.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", h.addr, err)
	}
	h.mu.Lock()
	h.bound = ln.Addr()
	h.mu.Unlock()
	logging.Info().Str("addr", ln.Addr().String()).Msg("Dashboard API listening")

	served := make(chan error, 1)
	go func() { served <- h.server.Serve(ln) }()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", ln.Addr(), err)

	case <-ctx.Done():
		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.drainTimeout)
		defer cancel()
		shutdownErr := h.server.Shutdown(drainCtx)
		<-served
		if shutdownErr != nil {
			return fmt.Errorf("drain %s: %w", ln.Addr(), shutdownErr)
		}
		logging.Info().Str("addr", ln.Addr().String()).Msg("Dashboard API stopped")
		return ctx.Err()
	}
}

func (h *HTTPServerService) String() string { return "http-server" }

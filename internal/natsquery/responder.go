// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

// Package natsquery answers dashboard queries over NATS request/reply.
//
// Each operation listens on <prefix>.<op> (for example
// logscope.query.aggregate) in a shared queue group, so several Logscope
// instances split the load. The request payload is the JSON form of the
// HTTP query parameters and the reply is the same APIResponse envelope the
// HTTP API returns. The HTTP status is carried in the Status-Code header.
package natsquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"github.com/tomtom215/logscope/internal/config"
	"github.com/tomtom215/logscope/internal/logging"
	"github.com/tomtom215/logscope/internal/metrics"
	"github.com/tomtom215/logscope/internal/query"
)

// StatusHeader carries the HTTP-equivalent status of a reply.
const StatusHeader = "Status-Code"

// Operation subjects, relative to the configured prefix.
const (
	OpAggregate = "aggregate"
	OpOptions   = "options"
	OpRecords   = "records"
	OpNarration = "narration"
)

// Querier is the subset of query.Service the responder needs.
type Querier interface {
	Aggregate(ctx context.Context, req query.Request) (*query.Result, error)
	Options(ctx context.Context, req query.Request) (*query.Result, error)
	Records(ctx context.Context, req query.Request) (*query.Result, error)
	Narration(ctx context.Context, req query.Request) (*query.Result, error)
}

type queryFunc func(ctx context.Context, req query.Request) (*query.Result, error)

// Responder subscribes to the query subjects and replies to requests.
type Responder struct {
	nc      *nats.Conn
	querier Querier
	cfg     config.NATSConfig

	mu   sync.Mutex
	subs []*nats.Subscription
}

// Connect dials the configured server, retrying in the background when it
// is not reachable yet.
func Connect(cfg config.NATSConfig) (*nats.Conn, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("logscope"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logging.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// NewResponder creates a responder. Call Start or Serve to subscribe.
func NewResponder(nc *nats.Conn, q Querier, cfg config.NATSConfig) *Responder {
	return &Responder{nc: nc, querier: q, cfg: cfg}
}

// Subject returns the full subject for op.
func (r *Responder) Subject(op string) string {
	return r.cfg.SubjectPrefix + "." + op
}

// Start subscribes to every query subject.
func (r *Responder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.subs) > 0 {
		return errors.New("responder already started")
	}

	handlers := map[string]queryFunc{
		OpAggregate: r.querier.Aggregate,
		OpOptions:   r.querier.Options,
		OpRecords:   r.querier.Records,
		OpNarration: r.querier.Narration,
	}
	for op, fn := range handlers {
		subject := r.Subject(op)
		sub, err := r.nc.QueueSubscribe(subject, r.cfg.QueueGroup, r.handler(subject, fn))
		if err != nil {
			r.unsubscribeLocked()
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		r.subs = append(r.subs, sub)
	}
	if err := r.nc.Flush(); err != nil {
		r.unsubscribeLocked()
		return fmt.Errorf("flush subscriptions: %w", err)
	}
	logging.Info().Str("prefix", r.cfg.SubjectPrefix).Str("queue", r.cfg.QueueGroup).
		Int("subjects", len(r.subs)).Msg("NATS query responder started")
	return nil
}

// Stop drains the subscriptions so in-flight requests still get a reply.
func (r *Responder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs {
		if err := sub.Drain(); err != nil {
			logging.Warn().Err(err).Str("subject", sub.Subject).Msg("Failed to drain subscription")
		}
	}
	r.subs = nil
}

func (r *Responder) unsubscribeLocked() {
	for _, sub := range r.subs {
		_ = sub.Unsubscribe()
	}
	r.subs = nil
}

// Serve implements suture.Service.
func (r *Responder) Serve(ctx context.Context) error {
	if err := r.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	r.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logs.
func (r *Responder) String() string {
	return "nats-query-responder"
}

func (r *Responder) handler(subject string, fn queryFunc) nats.MsgHandler {
	return func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.RequestTimeout)
		defer cancel()

		requestID := msg.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = logging.GenerateRequestID()
		}
		ctx = logging.ContextWithRequestID(ctx, requestID)
		ctx = logging.ContextWithNewCorrelationID(ctx)

		status, resp := r.answer(ctx, msg.Data, fn)
		result := "ok"
		if status >= http.StatusBadRequest {
			result = strconv.Itoa(status)
		}
		metrics.RecordNATSRequest(subject, result)

		if msg.Reply == "" {
			logging.Ctx(ctx).Debug().Str("subject", subject).Msg("Dropping query without reply subject")
			return
		}
		data, err := json.Marshal(resp)
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Msg("Failed to marshal NATS reply")
			return
		}
		reply := nats.NewMsg(msg.Reply)
		reply.Header.Set(StatusHeader, strconv.Itoa(status))
		reply.Header.Set("X-Request-ID", requestID)
		reply.Data = data
		if err := msg.RespondMsg(reply); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("subject", subject).Msg("Failed to send NATS reply")
		}
	}
}

func (r *Responder) answer(ctx context.Context, payload []byte, fn queryFunc) (int, interface{}) {
	var req query.Request
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return query.ErrorResponse(fmt.Errorf("%w: %v", query.ErrInvalidQuery, err))
		}
	}
	res, err := fn(ctx, req)
	if err != nil {
		status, resp := query.ErrorResponse(err)
		if status >= http.StatusInternalServerError {
			logging.Ctx(ctx).Error().Err(err).Int("status", status).Msg("NATS query failed")
		}
		return status, resp
	}
	return http.StatusOK, res.Response()
}

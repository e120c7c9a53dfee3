// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package audit

import (
	"context"
	"crypto/rand"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/oklog/ulid/v2"

	"github.com/tomtom215/logscope/internal/logging"
)

// Config controls the audit logger.
type Config struct {
	Enabled     bool
	BufferSize  int
	Retention   time.Duration
	LogToStdout bool
}

// DefaultConfig keeps a week of events and does not echo them to the log.
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		BufferSize: 1000,
		Retention:  7 * 24 * time.Hour,
	}
}

// Logger records events asynchronously: Log never blocks the request and
// drops the event when the buffer is full.
type Logger struct {
	config    Config
	store     Store
	eventChan chan *Event
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	now       func() time.Time
}

// NewLogger starts the background writer. Close stops it.
func NewLogger(store Store, config Config) *Logger {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}
	l := &Logger{
		config:    config,
		store:     store,
		eventChan: make(chan *Event, config.BufferSize),
		stopChan:  make(chan struct{}),
		now:       time.Now,
	}
	l.wg.Add(1)
	go l.asyncWriter()
	return l
}

func (l *Logger) asyncWriter() {
	defer l.wg.Done()
	for {
		select {
		case <-l.stopChan:
			for {
				select {
				case event := <-l.eventChan:
					l.writeEvent(event)
				default:
					return
				}
			}
		case event := <-l.eventChan:
			l.writeEvent(event)
		}
	}
}

func (l *Logger) writeEvent(event *Event) {
	if l.config.LogToStdout {
		if data, err := json.Marshal(event); err == nil {
			logging.Info().RawJSON("event", data).Msg("Audit event")
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.store.Save(ctx, event); err != nil {
		logging.Error().Err(err).Str("event_id", event.ID).Msg("Failed to save audit event")
	}
}

// Log queues event, filling in ID and Timestamp when unset.
func (l *Logger) Log(event *Event) {
	if l == nil || !l.config.Enabled {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now().UTC()
	}
	if event.ID == "" {
		event.ID = ulid.MustNew(ulid.Timestamp(event.Timestamp), rand.Reader).String()
	}
	select {
	case l.eventChan <- event:
	default:
		logging.Warn().Str("event_id", event.ID).Msg("Audit event buffer full, dropping event")
	}
}

// Query reads events from the store.
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	return l.store.Query(ctx, filter)
}

// Close flushes queued events and stops the writer.
func (l *Logger) Close() error {
	l.stopOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()
	return nil
}

// Run deletes events older than the retention period once an hour until
// ctx is done.
func (l *Logger) Run(ctx context.Context) error {
	if l.config.Retention <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.cleanup(ctx)
		}
	}
}

func (l *Logger) cleanup(ctx context.Context) {
	count, err := l.store.Delete(ctx, l.now().Add(-l.config.Retention))
	if err != nil {
		logging.Error().Err(err).Msg("Audit cleanup error")
	} else if count > 0 {
		logging.Info().Int64("count", count).Msg("Cleaned up old audit events")
	}
}

// LogAuth records a login attempt.
func (l *Logger) LogAuth(ctx context.Context, r *http.Request, username, method string, err error) {
	if l == nil {
		return
	}
	event := &Event{
		Type:        EventTypeAuthSuccess,
		Severity:    SeverityInfo,
		Outcome:     OutcomeSuccess,
		Actor:       Actor{ID: username, AuthMethod: method},
		Description: "Login succeeded",
	}
	if err != nil {
		event.Type = EventTypeAuthFailure
		event.Severity = SeverityWarning
		event.Outcome = OutcomeFailure
		event.Description = "Login failed: " + err.Error()
	}
	l.Log(l.withRequest(ctx, r, event))
}

// LogRefresh records a forced snapshot refresh.
func (l *Logger) LogRefresh(ctx context.Context, r *http.Request, username, snapshotID string, throttled bool, err error) {
	if l == nil {
		return
	}
	event := &Event{
		Type:        EventTypeSnapshotRefresh,
		Severity:    SeverityInfo,
		Outcome:     OutcomeSuccess,
		Actor:       Actor{ID: username},
		SnapshotID:  snapshotID,
		Description: "Snapshot reloaded from the log store",
	}
	switch {
	case throttled:
		event.Type = EventTypeSnapshotThrottled
		event.Severity = SeverityWarning
		event.Outcome = OutcomeFailure
		event.Description = "Snapshot refresh rejected by the rate limiter"
	case err != nil:
		event.Severity = SeverityError
		event.Outcome = OutcomeFailure
		event.Description = "Snapshot refresh failed: " + err.Error()
	}
	l.Log(l.withRequest(ctx, r, event))
}

func (l *Logger) withRequest(ctx context.Context, r *http.Request, event *Event) *Event {
	event.RequestID = logging.RequestIDFromContext(ctx)
	event.CorrelationID = logging.CorrelationIDFromContext(ctx)
	if r != nil {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		event.Source = Source{IPAddress: ip, UserAgent: r.UserAgent()}
	}
	return event
}

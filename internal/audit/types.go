// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package audit

import (
	"context"
	"time"
)

// EventType categorizes audit events.
type EventType string

const (
	EventTypeAuthSuccess EventType = "auth.success"
	EventTypeAuthFailure EventType = "auth.failure"

	EventTypeSnapshotRefresh   EventType = "snapshot.refresh"
	EventTypeSnapshotThrottled EventType = "snapshot.refresh_throttled"
)

// Severity of an event.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Outcome of the audited action.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event is one audited action.
type Event struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Type        EventType `json:"type"`
	Severity    Severity  `json:"severity"`
	Outcome     Outcome   `json:"outcome"`
	Actor       Actor     `json:"actor"`
	Source      Source    `json:"source"`
	Description string    `json:"description"`

	// SnapshotID is set for snapshot events.
	SnapshotID string `json:"snapshot_id,omitempty"`

	RequestID     string `json:"request_id,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Actor is who performed the action. ID is empty for anonymous callers.
type Actor struct {
	ID         string `json:"id"`
	AuthMethod string `json:"auth_method,omitempty"`
}

// Source is where the request came from.
type Source struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent,omitempty"`
}

// QueryFilter selects events. Zero fields match everything.
type QueryFilter struct {
	Types     []EventType
	Outcome   Outcome
	ActorID   string
	StartTime *time.Time
	Limit     int
}

// Store persists audit events.
type Store interface {
	Save(ctx context.Context, event *Event) error
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)
	Delete(ctx context.Context, olderThan time.Time) (int64, error)
}

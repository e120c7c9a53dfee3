// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

// Package query turns a dashboard Request into pipeline runs over the
// current snapshot. It is shared by the HTTP handlers and the NATS
// responder so both transports resolve defaults and report errors the
// same way.
package query

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/logscope/internal/cache"
	"github.com/tomtom215/logscope/internal/catalog"
	"github.com/tomtom215/logscope/internal/chart"
	"github.com/tomtom215/logscope/internal/config"
	"github.com/tomtom215/logscope/internal/geoip"
	"github.com/tomtom215/logscope/internal/logging"
	"github.com/tomtom215/logscope/internal/models"
	"github.com/tomtom215/logscope/internal/pipeline"
	"github.com/tomtom215/logscope/internal/snapshot"
)

// SnapshotSource is the part of *snapshot.Store the service reads from.
type SnapshotSource interface {
	Get(ctx context.Context) (*snapshot.Snapshot, error)
}

// Result is the outcome of one query.
type Result struct {
	Data       interface{}
	RunID      string
	SnapshotID string
	Cached     bool
	Empty      bool
	Duration   time.Duration
}

// Service answers dashboard queries.
type Service struct {
	store   SnapshotSource
	catalog *catalog.Catalog
	labels  catalog.IPLabels
	dash    config.DashboardConfig
	geo     geoip.Provider
	reports *cache.Cache[*pipeline.Report]
	now     func() time.Time
}

// NewService wires a service. geo may be nil. Pipeline reports are cached
// for resultTTL per snapshot and filter state; zero disables the cache.
func NewService(store SnapshotSource, cat *catalog.Catalog, dash config.DashboardConfig, geo geoip.Provider, resultTTL time.Duration) *Service {
	labels := catalog.IPLabels(dash.IPLabels)
	if len(labels) == 0 {
		labels = catalog.DefaultIPLabels()
	}
	if geo == nil {
		geo = geoip.NoopProvider{}
	}
	s := &Service{
		store:   store,
		catalog: cat,
		labels:  labels,
		dash:    dash,
		geo:     geo,
		now:     time.Now,
	}
	if resultTTL > 0 {
		s.reports = cache.New[*pipeline.Report]("report", resultTTL)
	}
	return s
}

// Close stops the result cache sweep.
func (s *Service) Close() {
	if s.reports != nil {
		s.reports.Close()
	}
}

// Catalog returns the endpoint catalog.
func (s *Service) Catalog() []catalog.EndpointSpec {
	return s.catalog.Entries()
}

// prepared returns the current snapshot, failing when it could not be
// normalized.
func (s *Service) prepared(ctx context.Context) (*snapshot.Snapshot, error) {
	snap, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	if snap.Err != nil {
		return nil, snap.Err
	}
	return snap, nil
}

// Resolve fills in defaults for every selection the request left out and
// translates IP labels to addresses.
func (s *Service) Resolve(req Request, prepared *pipeline.Prepared, now time.Time) (models.FilterState, error) {
	windowKey := req.Window
	if windowKey == "" {
		windowKey = s.dash.DefaultWindow
	}
	window, err := catalog.ParseTimeWindow(windowKey)
	if err != nil {
		return models.FilterState{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	bucketKey := req.Bucket
	if bucketKey == "" {
		bucketKey = s.dash.DefaultBucket
	}
	bucket, err := catalog.ParseBucketWidth(bucketKey)
	if err != nil {
		return models.FilterState{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	labels := req.IPLabels
	if labels == nil {
		labels = s.dash.DefaultIPLabels
	}
	ips, unknown := s.labels.Resolve(labels)
	if len(unknown) > 0 {
		return models.FilterState{}, fmt.Errorf("%w: unknown ip label(s) %s", ErrInvalidQuery, strings.Join(unknown, ", "))
	}

	var methods []string
	if req.Methods == nil {
		methods = s.catalog.Methods()
	} else {
		methods = make([]string, len(req.Methods))
		for i, m := range req.Methods {
			methods[i] = s.catalog.CanonicalMethod(m)
		}
	}

	selectable := pipeline.Options(prepared, s.catalog, methods, window.Duration, now)

	statuses := req.Statuses
	if statuses == nil {
		statuses = selectable.Statuses
	}

	paths := req.Paths
	if paths == nil {
		if s.dash.AllPathsByDefault {
			paths = selectable.Paths
		} else {
			paths = s.dash.DefaultPaths
		}
	}

	return models.FilterState{
		IPLabels:  nonNil(labels),
		IPs:       ips,
		Statuses:  nonNil(statuses),
		Methods:   nonNil(methods),
		Paths:     nonNil(paths),
		WindowKey: window.Key,
		Window:    window.Duration,
		BucketKey: bucket.Key,
		Bucket:    bucket.Duration,
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// run resolves req and executes the pipeline, consulting the report cache.
func (s *Service) run(ctx context.Context, req Request) (*pipeline.Report, *snapshot.Snapshot, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, false, err
	}
	snap, err := s.prepared(ctx)
	if err != nil {
		return nil, nil, false, err
	}
	now := s.now()
	state, err := s.Resolve(req, snap.Prepared, now)
	if err != nil {
		return nil, nil, false, err
	}

	key := cache.GenerateKey("report", struct {
		Snapshot string             `json:"snapshot"`
		State    models.FilterState `json:"state"`
	}{snap.ID, state})
	if s.reports != nil {
		if report, ok := s.reports.Get(key); ok {
			return report, snap, true, nil
		}
	}

	report := pipeline.RunPrepared(ctx, snap.Prepared, state, now)
	if s.reports != nil {
		s.reports.Set(key, report)
	}
	return report, snap, false, nil
}

func newResult(data interface{}, report *pipeline.Report, snap *snapshot.Snapshot, cached bool) *Result {
	return &Result{
		Data:       data,
		RunID:      report.RunID,
		SnapshotID: snap.ID,
		Cached:     cached,
		Empty:      report.Empty,
		Duration:   report.Duration,
	}
}

// Aggregate returns the per-bucket statistics and the filter narration.
func (s *Service) Aggregate(ctx context.Context, req Request) (*Result, error) {
	report, snap, cached, err := s.run(ctx, req)
	if err != nil {
		return nil, err
	}
	narrations := make([]models.Narration, 0, len(report.Narrations)+1)
	narrations = append(narrations, report.Invalid)
	narrations = append(narrations, report.Narrations...)

	return newResult(&models.AggregateResponse{
		Filters:        report.Filters,
		Rows:           report.Aggregates,
		Narrations:     narrations,
		TotalRecords:   report.Total,
		InvalidDropped: report.Invalid.Delta,
		MatchedRecords: len(report.Records),
	}, report, snap, cached), nil
}

// Records returns the filtered records, newest first, truncated to the
// request limit (or the configured default) and enriched with countries.
func (s *Service) Records(ctx context.Context, req Request) (*Result, error) {
	report, snap, cached, err := s.run(ctx, req)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit == 0 {
		limit = s.dash.RecordsLimit
	}
	if s.dash.MaxRecordsLimit > 0 && limit > s.dash.MaxRecordsLimit {
		limit = s.dash.MaxRecordsLimit
	}
	n := min(limit, len(report.Records))

	// The report may be shared through the cache; enrich a copy.
	records := make([]models.LogRecord, n)
	copy(records, report.Records[:n])
	geoip.Enrich(s.geo, records)

	return newResult(&models.RecordsResponse{
		Filters: report.Filters,
		Records: records,
		Total:   len(report.Records),
		Limit:   limit,
	}, report, snap, cached), nil
}

// Narration returns the plain-text stage report.
func (s *Service) Narration(ctx context.Context, req Request) (*Result, error) {
	report, snap, cached, err := s.run(ctx, req)
	if err != nil {
		return nil, err
	}
	return newResult(report.NarrationText(), report, snap, cached), nil
}

// Options lists the selectable values for the form, along with the filter
// state the request resolves to.
func (s *Service) Options(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	snap, err := s.prepared(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	state, err := s.Resolve(req, snap.Prepared, now)
	if err != nil {
		return nil, err
	}
	selectable := pipeline.Options(snap.Prepared, s.catalog, state.Methods, state.Window, now)

	return &Result{
		Data: &models.OptionsResponse{
			IPLabels:     s.labels.Names(),
			Statuses:     selectable.Statuses,
			Methods:      selectable.Methods,
			Paths:        selectable.Paths,
			TimeWindows:  catalog.TimeWindows(),
			BucketWidths: catalog.BucketWidths(),
			Defaults:     state,
		},
		SnapshotID: snap.ID,
	}, nil
}

// Chart renders the aggregate as a PNG. An empty result renders nothing:
// Result.Empty is set and Data is nil.
func (s *Service) Chart(ctx context.Context, req Request) (*Result, error) {
	report, snap, cached, err := s.run(ctx, req)
	if err != nil {
		return nil, err
	}
	if report.Empty {
		return newResult(nil, report, snap, cached), nil
	}

	window, _ := catalog.ParseTimeWindow(report.Filters.WindowKey)
	bucket, _ := catalog.ParseBucketWidth(report.Filters.BucketKey)

	var buf bytes.Buffer
	err = chart.Render(&buf, report.Aggregates, chart.Options{
		WindowLabel: window.Label,
		BucketLabel: bucket.Label,
		Bucket:      bucket.Duration,
		Theme:       req.Theme,
		Width:       req.Width,
		Height:      req.Height,
	})
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("run_id", report.RunID).Msg("Chart rendering failed")
		return nil, err
	}
	return newResult(buf.Bytes(), report, snap, cached), nil
}

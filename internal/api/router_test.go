// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/logscope/internal/audit"
	"github.com/tomtom215/logscope/internal/auth"
	"github.com/tomtom215/logscope/internal/catalog"
	"github.com/tomtom215/logscope/internal/config"
	"github.com/tomtom215/logscope/internal/middleware"
	"github.com/tomtom215/logscope/internal/models"
	"github.com/tomtom215/logscope/internal/query"
	"github.com/tomtom215/logscope/internal/snapshot"
)

type fakeSource struct {
	mu   sync.Mutex
	docs []models.RawDocument
	err  error
}

func (f *fakeSource) Fetch(context.Context) ([]models.RawDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs, f.err
}
func (f *fakeSource) Ping(context.Context) error { return nil }
func (f *fakeSource) Name() string               { return "fake" }
func (f *fakeSource) Close() error               { return nil }

// recentDocs are relative to the wall clock so the default 7 day window
// always covers them.
func recentDocs() []models.RawDocument {
	now := time.Now().UTC()
	ts := func(d time.Duration) string { return now.Add(-d).Format(time.RFC3339) }
	return []models.RawDocument{
		{"_id": "1", "timestamp": ts(2 * time.Hour), "method": "GET", "path": "/api/bookmarks", "status_code": 200, "public_ip": "44.227.217.144", "process_time": 10.0},
		{"_id": "2", "timestamp": ts(time.Hour), "method": "GET", "path": "/api/bookmarks", "status_code": 500, "public_ip": "44.227.217.144", "process_time": 30.0},
		{"_id": "3", "timestamp": ts(26 * time.Hour), "method": "POST", "path": "/api/collections", "status_code": 201, "public_ip": "44.227.217.144", "process_time": 20.0},
		{"_id": "4", "timestamp": ts(3 * time.Hour), "method": "GET", "path": "//api/bookmarks", "status_code": 200, "public_ip": "44.227.217.144", "process_time": 1.0},
	}
}

type testServer struct {
	handler http.Handler
	src     *fakeSource
	store   *snapshot.Store
}

func dashboard() config.DashboardConfig {
	return config.DashboardConfig{
		IPLabels:          catalog.DefaultIPLabels(),
		DefaultIPLabels:   []string{"vercel"},
		AllPathsByDefault: true,
		DefaultWindow:     "7d",
		DefaultBucket:     "1d",
		RecordsLimit:      500,
		MaxRecordsLimit:   1000,
	}
}

func newTestServer(t *testing.T, sec config.SecurityConfig) *testServer {
	t.Helper()

	src := &fakeSource{docs: recentDocs()}
	store := snapshot.NewStore(src, nil, config.SnapshotConfig{
		TTL:          time.Minute,
		RefreshBurst: 1,
		RefreshEvery: time.Hour,
	}, 5*time.Second)
	t.Cleanup(store.Close)

	svc := query.NewService(store, catalog.Default(), dashboard(), nil, time.Minute)
	t.Cleanup(svc.Close)

	if sec.AuthMode == "" {
		sec.AuthMode = config.AuthNone
	}
	sec.RateLimitDisabled = true
	authMW, err := auth.NewMiddleware(sec)
	if err != nil {
		t.Fatalf("auth middleware: %v", err)
	}

	auditLog := audit.NewLogger(audit.NewMemoryStore(100), audit.DefaultConfig())
	t.Cleanup(func() { _ = auditLog.Close() })

	h := NewHandler(svc, store, authMW, middleware.NewPerformanceMonitor(100, 0), "test")
	h.SetAuditLogger(auditLog)
	router := NewRouter(h, authMW, NewChiMiddleware(ChiMiddlewareConfigFrom(sec)))
	return &testServer{handler: router.SetupChi(), src: src, store: store}
}

func (s *testServer) do(t *testing.T, method, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) (models.APIResponse, json.RawMessage) {
	t.Helper()
	var envelope struct {
		models.APIResponse
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return envelope.APIResponse, envelope.Data
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, config.SecurityConfig{})

	if rec := s.do(t, http.MethodGet, "/health/live", nil); rec.Code != http.StatusOK {
		t.Errorf("live = %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/health/ready", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready before load = %d", rec.Code)
	}
	if _, err := s.store.Get(context.Background()); err != nil {
		t.Fatal(err)
	}
	if rec := s.do(t, http.MethodGet, "/health/ready", nil); rec.Code != http.StatusOK {
		t.Errorf("ready after load = %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/metrics", nil); rec.Code != http.StatusOK {
		t.Errorf("metrics = %d", rec.Code)
	}
}

func TestAggregateEndpoint(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, config.SecurityConfig{})
	rec := s.do(t, http.MethodGet, "/api/v1/aggregate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d body = %s", rec.Code, rec.Body.String())
	}
	resp, data := decode(t, rec)
	if resp.Status != "success" || resp.Warning != "" || resp.Metadata.RunID == "" {
		t.Errorf("envelope = %+v", resp)
	}
	var agg models.AggregateResponse
	if err := json.Unmarshal(data, &agg); err != nil {
		t.Fatal(err)
	}
	if agg.MatchedRecords != 3 || agg.InvalidDropped != 1 || len(agg.Rows) == 0 {
		t.Errorf("aggregate = %+v", agg)
	}
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("missing request id header")
	}

	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}
	again := s.do(t, http.MethodGet, "/api/v1/aggregate", map[string]string{"If-None-Match": etag})
	if again.Code != http.StatusNotModified {
		t.Errorf("conditional GET = %d", again.Code)
	}
}

func TestQueryEndpoints(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, config.SecurityConfig{})

	tests := []struct {
		name    string
		target  string
		code    int
		warning bool
		errCode string
	}{
		{"catalog", "/api/v1/catalog", http.StatusOK, false, ""},
		{"options", "/api/v1/options?methods=GET", http.StatusOK, false, ""},
		{"records", "/api/v1/records?limit=1", http.StatusOK, false, ""},
		{"narration json", "/api/v1/narration", http.StatusOK, false, ""},
		{"explicit empty paths", "/api/v1/aggregate?paths=", http.StatusOK, true, ""},
		{"unknown ip label", "/api/v1/aggregate?ips=nobody", http.StatusBadRequest, false, query.CodeValidation},
		{"bad window", "/api/v1/aggregate?window=2w", http.StatusBadRequest, false, query.CodeValidation},
		{"bad status", "/api/v1/records?statuses=abc", http.StatusBadRequest, false, query.CodeValidation},
		{"empty chart", "/api/v1/chart.png?statuses=404", http.StatusOK, true, ""},
		{"snapshot", "/api/v1/snapshot", http.StatusOK, false, ""},
		{"performance", "/api/v1/performance", http.StatusOK, false, ""},
		{"not found", "/api/v1/nope", http.StatusNotFound, false, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, tt.target, nil)
			if rec.Code != tt.code {
				t.Fatalf("code = %d, want %d: %s", rec.Code, tt.code, rec.Body.String())
			}
			resp, _ := decode(t, rec)
			if (resp.Warning == models.EmptyResultMessage) != tt.warning {
				t.Errorf("warning = %q", resp.Warning)
			}
			if tt.errCode != "" && (resp.Error == nil || resp.Error.Code != tt.errCode) {
				t.Errorf("error = %+v, want %s", resp.Error, tt.errCode)
			}
		})
	}
}

func TestRecordsLimit(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, config.SecurityConfig{})
	rec := s.do(t, http.MethodGet, "/api/v1/records?limit=1", nil)
	_, data := decode(t, rec)
	var rr models.RecordsResponse
	if err := json.Unmarshal(data, &rr); err != nil {
		t.Fatal(err)
	}
	if rr.Total != 3 || len(rr.Records) != 1 || rr.Records[0].ID != "2" {
		t.Errorf("records = %+v", rr)
	}
}

func TestNarrationPlainText(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, config.SecurityConfig{})
	rec := s.do(t, http.MethodGet, "/api/v1/narration", map[string]string{"Accept": "text/plain"})
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("content type = %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "1 rows dropped, now left with 3 rows") {
		t.Errorf("narration = %q", rec.Body.String())
	}
}

func TestChartEndpoint(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, config.SecurityConfig{})
	rec := s.do(t, http.MethodGet, "/api/v1/chart.png?width=320&height=200", map[string]string{"Accept-Encoding": "gzip"})
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("code = %d type = %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.HasPrefix(rec.Body.String(), "\x89PNG") {
		t.Error("body is not a PNG")
	}
	if rec.Header().Get("Content-Encoding") != "" {
		t.Error("charts must not be gzipped")
	}
}

func TestCompressedJSON(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, config.SecurityConfig{})
	rec := s.do(t, http.MethodGet, "/api/v1/catalog", map[string]string{"Accept-Encoding": "gzip"})
	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Errorf("catalog should be gzipped, headers = %v", rec.Header())
	}
}

func TestRefreshSnapshot(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, config.SecurityConfig{})
	if rec := s.do(t, http.MethodPost, "/api/v1/snapshot/refresh", nil); rec.Code != http.StatusOK {
		t.Fatalf("first refresh = %d: %s", rec.Code, rec.Body.String())
	}
	rec := s.do(t, http.MethodPost, "/api/v1/snapshot/refresh", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second refresh = %d", rec.Code)
	}
	resp, _ := decode(t, rec)
	if resp.Error == nil || resp.Error.Code != query.CodeRateLimited {
		t.Errorf("error = %+v", resp.Error)
	}
	if rec := s.do(t, http.MethodGet, "/api/v1/snapshot/refresh", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET refresh = %d", rec.Code)
	}

	// Audit events are written asynchronously.
	var events []audit.Event
	deadline := time.Now().Add(2 * time.Second)
	for len(events) < 2 && time.Now().Before(deadline) {
		rec := s.do(t, http.MethodGet, "/api/v1/audit?type=snapshot.refresh&type=snapshot.refresh_throttled", nil)
		_, data := decode(t, rec)
		events = nil
		if err := json.Unmarshal(data, &events); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(events) != 2 || events[0].Type != audit.EventTypeSnapshotThrottled || events[1].SnapshotID == "" {
		t.Errorf("audit events = %+v", events)
	}
	if rec := s.do(t, http.MethodGet, "/api/v1/audit?limit=0", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad audit limit = %d", rec.Code)
	}
}

func TestSourceUnavailable(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, config.SecurityConfig{})
	s.src.mu.Lock()
	s.src.err = errors.New("connection refused")
	s.src.mu.Unlock()

	rec := s.do(t, http.MethodGet, "/api/v1/aggregate", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("code = %d", rec.Code)
	}
	resp, _ := decode(t, rec)
	if resp.Error == nil || resp.Error.Code != query.CodeSourceUnavailable {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestJWTAuthFlow(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	s := newTestServer(t, config.SecurityConfig{
		AuthMode:          config.AuthJWT,
		JWTSecret:         strings.Repeat("k", 32),
		SessionTimeout:    time.Hour,
		AdminUsername:     "admin",
		AdminPasswordHash: string(hash),
	})

	if rec := s.do(t, http.MethodGet, "/api/v1/catalog", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated = %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/health/live", nil); rec.Code != http.StatusOK {
		t.Errorf("health must stay public, got %d", rec.Code)
	}

	login := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := login(`{"username":"admin","password":"wrong"}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password = %d", rec.Code)
	}
	if rec := login(`{"username":"admin"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing password = %d", rec.Code)
	}

	rec := login(`{"username":"admin","password":"s3cret-pass"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d: %s", rec.Code, rec.Body.String())
	}
	_, data := decode(t, rec)
	var lr LoginResponse
	if err := json.Unmarshal(data, &lr); err != nil || lr.Token == "" {
		t.Fatalf("login response = %s, %v", data, err)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Error("expected session cookie")
	}

	authed := s.do(t, http.MethodGet, "/api/v1/catalog", map[string]string{"Authorization": "Bearer " + lr.Token})
	if authed.Code != http.StatusOK {
		t.Errorf("authenticated = %d", authed.Code)
	}
}

func TestLoginDisabledInNoneMode(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, config.SecurityConfig{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("code = %d", rec.Code)
	}
}

func TestSanitizeLogValue(t *testing.T) {
	t.Parallel()

	if got := sanitizeLogValue("a\nb\x7f"); got != `a\x0ab\x7f` {
		t.Errorf("sanitizeLogValue = %q", got)
	}
}

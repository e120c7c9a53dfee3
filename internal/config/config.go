// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

// Package config loads Logscope configuration from defaults, an optional
// YAML file and environment variables (in increasing priority) using koanf.
package config

import (
	"time"
)

// Source kinds.
const (
	SourceMongo  = "mongo"
	SourceDuckDB = "duckdb"
	SourceSQLite = "sqlite"
	SourceFile   = "file"
)

// Auth modes.
const (
	AuthNone  = "none"
	AuthJWT   = "jwt"
	AuthBasic = "basic"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Source    SourceConfig    `koanf:"source"`
	Snapshot  SnapshotConfig  `koanf:"snapshot"`
	Dashboard DashboardConfig `koanf:"dashboard"`
	Security  SecurityConfig  `koanf:"security"`
	NATS      NATSConfig      `koanf:"nats"`
	GeoIP     GeoIPConfig     `koanf:"geoip"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// SourceConfig selects and configures the upstream document store.
type SourceConfig struct {
	Kind    string        `koanf:"kind"`
	Timeout time.Duration `koanf:"timeout"`
	Mongo   MongoConfig   `koanf:"mongo"`
	SQL     SQLConfig     `koanf:"sql"`
	File    FileConfig    `koanf:"file"`
	Breaker BreakerConfig `koanf:"breaker"`
}

// MongoConfig points at the access-log collection.
type MongoConfig struct {
	URI        string `koanf:"uri"`
	Database   string `koanf:"database"`
	Collection string `koanf:"collection"`
}

// SQLConfig is shared by the DuckDB and SQLite sources. Query overrides
// Table when set; for DuckDB it may read files directly, e.g.
// SELECT * FROM read_json_auto('/data/api_logs.json').
type SQLConfig struct {
	DSN   string `koanf:"dsn"`
	Table string `koanf:"table"`
	Query string `koanf:"query"`
}

// FileConfig reads a JSON array or JSON-lines export.
type FileConfig struct {
	Path string `koanf:"path"`
}

// BreakerConfig tunes the circuit breaker in front of the source.
type BreakerConfig struct {
	Enabled      bool          `koanf:"enabled"`
	MaxRequests  uint32        `koanf:"max_requests"`
	Interval     time.Duration `koanf:"interval"`
	Timeout      time.Duration `koanf:"timeout"`
	MinRequests  uint32        `koanf:"min_requests"`
	FailureRatio float64       `koanf:"failure_ratio"`
}

// SnapshotConfig controls snapshot caching and refresh.
type SnapshotConfig struct {
	TTL             time.Duration `koanf:"ttl"`
	RefreshInterval time.Duration `koanf:"refresh_interval"`
	PersistPath     string        `koanf:"persist_path"`
	PersistTTL      time.Duration `koanf:"persist_ttl"`
	ResultCacheTTL  time.Duration `koanf:"result_cache_ttl"`
	RefreshBurst    int           `koanf:"refresh_burst"`
	RefreshEvery    time.Duration `koanf:"refresh_every"`
}

// DashboardConfig holds option tables and the caller-side defaults used
// when a query omits a selection.
type DashboardConfig struct {
	IPLabels          map[string]string `koanf:"ip_labels"`
	DefaultIPLabels   []string          `koanf:"default_ips"`
	DefaultPaths      []string          `koanf:"default_paths"`
	AllPathsByDefault bool              `koanf:"all_paths_by_default"`
	DefaultWindow     string            `koanf:"default_window"`
	DefaultBucket     string            `koanf:"default_bucket"`
	RecordsLimit      int               `koanf:"records_limit"`
	MaxRecordsLimit   int               `koanf:"max_records_limit"`
}

// SecurityConfig configures authentication, CORS and rate limits.
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode"`
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	AdminUsername     string        `koanf:"admin_username"`
	AdminPasswordHash string        `koanf:"admin_password_hash"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// NATSConfig configures the request/reply query responder.
type NATSConfig struct {
	Enabled        bool          `koanf:"enabled"`
	URL            string        `koanf:"url"`
	SubjectPrefix  string        `koanf:"subject_prefix"`
	QueueGroup     string        `koanf:"queue_group"`
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// Embedded starts an in-process NATS server listening on URL's host
	// and port, for single-instance deployments.
	Embedded bool `koanf:"embedded"`
}

// GeoIPConfig enables country lookup for client IPs.
type GeoIPConfig struct {
	DatabasePath string `koanf:"database_path"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

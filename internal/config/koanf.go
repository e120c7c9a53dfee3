// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/logscope/internal/catalog"
)

// DefaultConfigPaths lists the paths searched for a config file. The first
// existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/logscope/config.yaml",
	"/etc/logscope/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8501,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Source: SourceConfig{
			Kind:    SourceMongo,
			Timeout: 30 * time.Second,
			Mongo: MongoConfig{
				Database:   "markly",
				Collection: "APILogs",
			},
			SQL: SQLConfig{
				Table: "api_logs",
			},
			Breaker: BreakerConfig{
				Enabled:      true,
				MaxRequests:  3,
				Interval:     time.Minute,
				Timeout:      2 * time.Minute,
				MinRequests:  3,
				FailureRatio: 0.6,
			},
		},
		Snapshot: SnapshotConfig{
			TTL:             5 * time.Minute,
			RefreshInterval: 5 * time.Minute,
			PersistPath:     "",
			PersistTTL:      24 * time.Hour,
			ResultCacheTTL:  time.Minute,
			RefreshBurst:    1,
			RefreshEvery:    30 * time.Second,
		},
		Dashboard: DashboardConfig{
			IPLabels:          catalog.DefaultIPLabels(),
			DefaultIPLabels:   []string{"vercel"},
			DefaultPaths:      []string{},
			AllPathsByDefault: true,
			DefaultWindow:     catalog.DefaultWindowKey,
			DefaultBucket:     catalog.DefaultBucketKey,
			RecordsLimit:      500,
			MaxRecordsLimit:   10000,
		},
		Security: SecurityConfig{
			AuthMode:        AuthNone,
			SessionTimeout:  24 * time.Hour,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		NATS: NATSConfig{
			Enabled:        false,
			URL:            "nats://127.0.0.1:4222",
			SubjectPrefix:  "logscope.query",
			QueueGroup:     "logscope",
			RequestTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads configuration in three layers, later layers winning:
//  1. built-in defaults
//  2. optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. environment variables listed in envMappings
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}
	if err := processMapFields(k); err != nil {
		return nil, fmt.Errorf("failed to process map fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated strings when set by env.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"dashboard.default_ips",
	"dashboard.default_paths",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		if err := k.Set(path, splitList(s)); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// mapConfigPaths are parsed from "key=value,key=value" strings when set by
// env. An env value replaces the whole table.
var mapConfigPaths = []string{
	"dashboard.ip_labels",
}

func processMapFields(k *koanf.Koanf) error {
	for _, path := range mapConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		m := make(map[string]interface{})
		for _, pair := range splitList(s) {
			name, value, found := strings.Cut(pair, "=")
			if !found || strings.TrimSpace(name) == "" {
				return fmt.Errorf("%s: malformed entry %q, want label=value", path, pair)
			}
			m[strings.TrimSpace(name)] = strings.TrimSpace(value)
		}
		k.Delete(path)
		if err := k.Set(path, m); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// envMappings maps lower-cased environment variable names to config paths.
// Unlisted variables are ignored.
var envMappings = map[string]string{
	// Server
	"http_host":    "server.host",
	"http_port":    "server.port",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",

	// Source
	"source_kind":             "source.kind",
	"source_timeout":          "source.timeout",
	"mongo_uri":               "source.mongo.uri",
	"mongo_database":          "source.mongo.database",
	"mongo_collection":        "source.mongo.collection",
	"sql_dsn":                 "source.sql.dsn",
	"sql_table":               "source.sql.table",
	"sql_query":               "source.sql.query",
	"file_path":               "source.file.path",
	"breaker_enabled":         "source.breaker.enabled",
	"breaker_max_requests":    "source.breaker.max_requests",
	"breaker_interval":        "source.breaker.interval",
	"breaker_timeout":         "source.breaker.timeout",
	"breaker_min_requests":    "source.breaker.min_requests",
	"breaker_failure_ratio":   "source.breaker.failure_ratio",
	"snapshot_ttl":            "snapshot.ttl",
	"snapshot_refresh":        "snapshot.refresh_interval",
	"snapshot_persist_path":   "snapshot.persist_path",
	"snapshot_persist_ttl":    "snapshot.persist_ttl",
	"result_cache_ttl":        "snapshot.result_cache_ttl",
	"snapshot_refresh_burst":  "snapshot.refresh_burst",
	"snapshot_refresh_every":  "snapshot.refresh_every",

	// Dashboard
	"ip_labels":            "dashboard.ip_labels",
	"default_ips":          "dashboard.default_ips",
	"default_paths":        "dashboard.default_paths",
	"all_paths_by_default": "dashboard.all_paths_by_default",
	"default_window":       "dashboard.default_window",
	"default_bucket":       "dashboard.default_bucket",
	"records_limit":        "dashboard.records_limit",
	"max_records_limit":    "dashboard.max_records_limit",

	// Security
	"auth_mode":           "security.auth_mode",
	"jwt_secret":          "security.jwt_secret",
	"session_timeout":     "security.session_timeout",
	"admin_username":      "security.admin_username",
	"admin_password_hash": "security.admin_password_hash",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	// NATS
	"nats_enabled":         "nats.enabled",
	"nats_url":             "nats.url",
	"nats_embedded":        "nats.embedded",
	"nats_subject_prefix":  "nats.subject_prefix",
	"nats_queue_group":     "nats.queue_group",
	"nats_request_timeout": "nats.request_timeout",

	// GeoIP
	"geoip_database_path": "geoip.database_path",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

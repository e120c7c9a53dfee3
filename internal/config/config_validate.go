// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tomtom215/logscope/internal/catalog"
)

const (
	minJWTSecretLength   = 32
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateSource,
		c.validateSnapshot,
		c.validateDashboard,
		c.validateSecurity,
		c.validateNATS,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateSource() error {
	switch c.Source.Kind {
	case SourceMongo:
		if c.Source.Mongo.URI == "" {
			return fmt.Errorf("MONGO_URI is required when SOURCE_KIND=mongo")
		}
		if !strings.HasPrefix(c.Source.Mongo.URI, "mongodb://") && !strings.HasPrefix(c.Source.Mongo.URI, "mongodb+srv://") {
			return fmt.Errorf("MONGO_URI must start with mongodb:// or mongodb+srv://")
		}
		if c.Source.Mongo.Database == "" || c.Source.Mongo.Collection == "" {
			return fmt.Errorf("MONGO_DATABASE and MONGO_COLLECTION must not be empty")
		}
	case SourceDuckDB, SourceSQLite:
		if c.Source.SQL.Table == "" && c.Source.SQL.Query == "" {
			return fmt.Errorf("SQL_TABLE or SQL_QUERY is required when SOURCE_KIND=%s", c.Source.Kind)
		}
		if c.Source.Kind == SourceSQLite && c.Source.SQL.DSN == "" {
			return fmt.Errorf("SQL_DSN is required when SOURCE_KIND=sqlite")
		}
	case SourceFile:
		if c.Source.File.Path == "" {
			return fmt.Errorf("FILE_PATH is required when SOURCE_KIND=file")
		}
	default:
		return fmt.Errorf("SOURCE_KIND must be one of: mongo, duckdb, sqlite, file")
	}
	if c.Source.Timeout <= 0 {
		return fmt.Errorf("SOURCE_TIMEOUT must be positive")
	}
	return c.validateBreaker()
}

func (c *Config) validateBreaker() error {
	b := c.Source.Breaker
	if !b.Enabled {
		return nil
	}
	if b.FailureRatio <= 0 || b.FailureRatio > 1 {
		return fmt.Errorf("BREAKER_FAILURE_RATIO must be in (0, 1]")
	}
	if b.Timeout <= 0 {
		return fmt.Errorf("BREAKER_TIMEOUT must be positive")
	}
	if b.MaxRequests == 0 {
		return fmt.Errorf("BREAKER_MAX_REQUESTS must be at least 1")
	}
	return nil
}

func (c *Config) validateSnapshot() error {
	s := c.Snapshot
	if s.TTL <= 0 {
		return fmt.Errorf("SNAPSHOT_TTL must be positive")
	}
	if s.RefreshInterval < 0 {
		return fmt.Errorf("SNAPSHOT_REFRESH must not be negative")
	}
	if s.PersistPath != "" && s.PersistTTL <= 0 {
		return fmt.Errorf("SNAPSHOT_PERSIST_TTL must be positive when SNAPSHOT_PERSIST_PATH is set")
	}
	if s.RefreshBurst < 1 {
		return fmt.Errorf("SNAPSHOT_REFRESH_BURST must be at least 1")
	}
	if s.RefreshEvery <= 0 {
		return fmt.Errorf("SNAPSHOT_REFRESH_EVERY must be positive")
	}
	return nil
}

func (c *Config) validateDashboard() error {
	d := c.Dashboard
	if len(d.IPLabels) == 0 {
		return fmt.Errorf("IP_LABELS must define at least one label")
	}
	for name, ip := range d.IPLabels {
		if ip == "" {
			return fmt.Errorf("IP_LABELS entry %q has no address", name)
		}
	}
	if _, unknown := catalog.IPLabels(d.IPLabels).Resolve(d.DefaultIPLabels); len(unknown) > 0 {
		return fmt.Errorf("DEFAULT_IPS references unknown labels: %s", strings.Join(unknown, ", "))
	}
	if _, err := catalog.ParseTimeWindow(d.DefaultWindow); err != nil {
		return fmt.Errorf("DEFAULT_WINDOW must be one of: %s", strings.Join(catalog.WindowKeys(), ", "))
	}
	if _, err := catalog.ParseBucketWidth(d.DefaultBucket); err != nil {
		return fmt.Errorf("DEFAULT_BUCKET must be one of: %s", strings.Join(catalog.BucketKeys(), ", "))
	}
	if d.RecordsLimit < 1 || d.RecordsLimit > d.MaxRecordsLimit {
		return fmt.Errorf("RECORDS_LIMIT must be between 1 and MAX_RECORDS_LIMIT (%d)", d.MaxRecordsLimit)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	switch c.Security.AuthMode {
	case AuthNone:
	case AuthJWT:
		if len(c.Security.JWTSecret) < minJWTSecretLength {
			return fmt.Errorf("JWT_SECRET must be at least %d characters when AUTH_MODE=jwt", minJWTSecretLength)
		}
		if err := c.validateAdminCredentials(); err != nil {
			return err
		}
	case AuthBasic:
		if err := c.validateAdminCredentials(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("AUTH_MODE must be one of: none, jwt, basic")
	}
	if c.Security.SessionTimeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be positive")
	}
	if err := c.validateCORS(); err != nil {
		return err
	}
	return c.validateRateLimits()
}

func (c *Config) validateAdminCredentials() error {
	if c.Security.AdminUsername == "" {
		return fmt.Errorf("ADMIN_USERNAME is required when AUTH_MODE=%s", c.Security.AuthMode)
	}
	// bcrypt hashes are 60 characters and start with $2a$, $2b$ or $2y$.
	h := c.Security.AdminPasswordHash
	if len(h) != 60 || !strings.HasPrefix(h, "$2") {
		return fmt.Errorf("ADMIN_PASSWORD_HASH must be a bcrypt hash")
	}
	return nil
}

func (c *Config) validateCORS() error {
	if c.IsProduction() && c.Security.AuthMode != AuthNone && c.hasWildcardCORS() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production with authentication enabled. " +
			"Set CORS_ORIGINS to the dashboard origin(s)")
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, o := range c.Security.CORSOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	u, err := url.Parse(c.NATS.URL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("NATS_URL is invalid: %q", c.NATS.URL)
	}
	if u.Scheme != "nats" && u.Scheme != "tls" {
		return fmt.Errorf("NATS_URL scheme must be nats or tls")
	}
	if c.NATS.Embedded && u.Scheme != "nats" {
		return fmt.Errorf("NATS_EMBEDDED requires a nats:// URL")
	}
	if c.NATS.SubjectPrefix == "" || strings.ContainsAny(c.NATS.SubjectPrefix, " *>") {
		return fmt.Errorf("NATS_SUBJECT_PREFIX must be a literal subject")
	}
	if c.NATS.RequestTimeout <= 0 {
		return fmt.Errorf("NATS_REQUEST_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled", "off", "":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console", "":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console")
	}
}
